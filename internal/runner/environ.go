package runner

import (
	"os"
	"strings"
)

// sensitiveEnvPrefixes are env var name prefixes stripped from
// subprocess environments. Credentials reach a session only through an
// explicit passthrough (e.g. GH_TOKEN for the tests session).
var sensitiveEnvPrefixes = []string{
	"LABFORGE_",
	"AWS_SECRET",
	"AWS_SESSION",
	"GITHUB_TOKEN",
	"GH_TOKEN",
	"PYPI_TOKEN",
	"TWINE_PASSWORD",
}

// sensitiveEnvExact are env var names stripped by exact match.
var sensitiveEnvExact = []string{
	"API_KEY",
	"API_SECRET",
	"SECRET_KEY",
}

// baseEnviron builds the environment for spawned commands: the parent
// environment minus sensitive variables, plus explicit passthroughs,
// with the virtualenv activated via VIRTUAL_ENV and PATH.
func baseEnviron(opts Options) []string {
	environ := sanitizeEnv(os.Environ())

	for _, name := range opts.Passthrough {
		if v, ok := os.LookupEnv(name); ok {
			environ = append(environ, name+"="+v)
		}
	}

	if opts.Dir != "" {
		environ = append(environ, "VIRTUAL_ENV="+opts.Dir)
		environ = setPath(environ, opts.Dir+"/bin")
	}
	return environ
}

// sanitizeEnv filters sensitive environment variables from the list.
func sanitizeEnv(environ []string) []string {
	clean := make([]string, 0, len(environ))
	for _, entry := range environ {
		name, _, ok := strings.Cut(entry, "=")
		if !ok {
			clean = append(clean, entry)
			continue
		}
		upper := strings.ToUpper(name)
		skip := false
		for _, prefix := range sensitiveEnvPrefixes {
			if strings.HasPrefix(upper, prefix) {
				skip = true
				break
			}
		}
		if !skip {
			for _, exact := range sensitiveEnvExact {
				if upper == exact {
					skip = true
					break
				}
			}
		}
		if !skip {
			clean = append(clean, entry)
		}
	}
	return clean
}

// setPath prefixes dir to PATH, appending a PATH entry if none exists.
func setPath(environ []string, dir string) []string {
	for i, entry := range environ {
		name, val, ok := strings.Cut(entry, "=")
		if ok && strings.EqualFold(name, "PATH") {
			environ[i] = name + "=" + dir + string(os.PathListSeparator) + val
			return environ
		}
	}
	return append(environ, "PATH="+dir)
}
