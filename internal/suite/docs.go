package suite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/labforge/internal/session"
)

// sphinxCommand is the documentation-builder invocation shared by the
// docs and linkcheck sessions; only the trailing builder flag differs.
var sphinxCommand = []string{
	"docs/",
	"docs/build/html",
	"--nitpicky",
	"--fail-on-warning",
	"--keep-going",
	"-q",
}

var (
	buildHTML       = []string{"--builder", "html"}
	checkHyperlinks = []string{"--builder", "linkcheck"}
)

const docTroubleshooting = `
Tips for troubleshooting common documentation build failures are in the
documentation guide under docs/contributing/doc_guide.md (section
"Troubleshooting").
`

const linkcheckTroubleshooting = `
The Sphinx configuration variables linkcheck_ignore and
linkcheck_allowed_redirects in docs/conf.py can be used to specify
hyperlink patterns to be ignored along with allowed redirects. Both are
regular expressions.
`

func docsSession(maxVersion string) *session.Session {
	return &session.Session{
		Name:     "docs",
		Summary:  "Build documentation with Sphinx",
		Versions: []string{maxVersion},
		Body:     docsBody,
	}
}

func docsBody(ctx context.Context, rc *session.RunContext) error {
	if rc.CI {
		rc.Exec.Debug(docTroubleshooting)
	}

	requirements := session.RequirementsPath(session.CategoryDocs, rc.MaxVersion, session.ResolutionHighest)
	if err := rc.Exec.Install(ctx, "-r", requirements, "."); err != nil {
		return err
	}

	args := append(append([]string{}, sphinxCommand...), buildHTML...)
	args = append(args, rc.Posargs...)
	if err := rc.Exec.Run(ctx, "sphinx-build", args...); err != nil {
		return err
	}

	landing := filepath.Join(rc.WorkDir, "docs", "build", "html", "index.html")
	if !rc.CI {
		if _, err := os.Stat(landing); err == nil {
			rc.Exec.Debug(fmt.Sprintf("The documentation may be previewed at %s", landing))
		} else {
			rc.Exec.Debug(fmt.Sprintf("Documentation preview landing page not found: %s", landing))
		}
	}
	return nil
}

func linkcheckSession(maxVersion string) *session.Session {
	return &session.Session{
		Name:     "linkcheck",
		Summary:  "Check hyperlinks in documentation",
		Versions: []string{maxVersion},
		Body:     linkcheckBody,
	}
}

func linkcheckBody(ctx context.Context, rc *session.RunContext) error {
	if rc.CI {
		rc.Exec.Debug(linkcheckTroubleshooting)
	}

	requirements := session.RequirementsPath(session.CategoryDocs, rc.MaxVersion, session.ResolutionHighest)
	if err := rc.Exec.Install(ctx, "-r", requirements); err != nil {
		return err
	}
	if err := rc.Exec.Install(ctx, "."); err != nil {
		return err
	}

	args := append(append([]string{}, sphinxCommand...), checkHyperlinks...)
	args = append(args, rc.Posargs...)
	return rc.Exec.Run(ctx, "sphinx-build", args...)
}

func docsDevSession(maxVersion string) *session.Session {
	return &session.Session{
		Name:     "docs-dev",
		Summary:  "Build documentation against the development branch of a dependency",
		Versions: []string{maxVersion},
		Axes: []session.Axis{{
			Name:     repositoryAxis,
			Variants: []string{"sphinx", "sphinx_rtd_theme", "nbsphinx"},
		}},
		Body: docsDevBody,
	}
}

func docsDevBody(ctx context.Context, rc *session.RunContext) error {
	var repo string
	switch id := rc.Variant(repositoryAxis); id {
	case "sphinx":
		repo = "sphinx-doc/sphinx"
	case "sphinx_rtd_theme":
		repo = "readthedocs/sphinx_rtd_theme"
	case "nbsphinx":
		repo = "spatialaudio/nbsphinx"
	default:
		return fmt.Errorf("unknown repository %q", id)
	}

	if err := rc.Exec.Install(ctx, "git+https://github.com/"+repo, ".[docs]"); err != nil {
		return err
	}

	args := append(append([]string{}, sphinxCommand...), buildHTML...)
	args = append(args, rc.Posargs...)
	return rc.Exec.Run(ctx, "sphinx-build", args...)
}
