package suite

import (
	"fmt"

	"github.com/ppiankov/labforge/internal/session"
)

// Config holds the static project facts the suite is built from.
// Versions are declared ascending: the first entry is the minimum
// supported interpreter version and the last is the maximum.
type Config struct {
	Versions []string
	Package  string // import / coverage target
}

// Registry builds the full session registry for a project. Built once
// at process start; the returned registry is never mutated.
func Registry(cfg Config) (*session.Registry, error) {
	if len(cfg.Versions) == 0 {
		return nil, fmt.Errorf("no supported interpreter versions configured")
	}
	if cfg.Package == "" {
		return nil, fmt.Errorf("no package name configured")
	}
	maxVersion := cfg.Versions[len(cfg.Versions)-1]

	return session.NewRegistry(
		testsSession(cfg.Versions),
		testsDevSession(maxVersion),
		docsSession(maxVersion),
		docsDevSession(maxVersion),
		linkcheckSession(maxVersion),
		mypySession(maxVersion),
		importSession(),
		requirementsSession(),
		autotypingSession(),
		buildSession(),
		cffSession(),
		manifestSession(),
		lintSession(),
	)
}
