package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings holds persistent CLI defaults loaded from a config file.
type Settings struct {
	// Versions are the supported interpreter versions, ascending; the
	// last entry is the maximum, used for docs, mypy, and the doctest
	// gate.
	Versions []string `yaml:"versions"`
	// Package is the import and coverage target.
	Package string `yaml:"package"`
	// DefaultVersion is used when a selector collapses the version
	// axis without naming one. Empty means the maximum version.
	DefaultVersion string `yaml:"default_version"`
	// DefaultSession runs when no selector is given.
	DefaultSession string `yaml:"default_session"`

	// Backend is the virtualenv backend: "uv" (default) or "venv".
	Backend string `yaml:"backend"`
	// CIVar is the environment variable whose presence marks a
	// continuous-integration environment. Defaults to "CI".
	CIVar string `yaml:"ci_var"`
	// EnvPassthrough lists env var names forwarded into every
	// invocation environment.
	EnvPassthrough []string `yaml:"env_passthrough"`

	// History toggles the sqlite run-history store.
	History bool `yaml:"history"`
	// WatchPaths are re-run triggers for the watch command.
	WatchPaths []string `yaml:"watch_paths"`
}

// defaults mirror a typical scientific-project layout; the config file
// overrides them field by field.
var defaults = Settings{
	Versions:       []string{"3.10", "3.11", "3.12"},
	Package:        "plasmapy",
	DefaultSession: "tests(skipslow)",
	Backend:        "uv",
	CIVar:          "CI",
	History:        true,
	WatchPaths:     []string{"src", "tests", "docs"},
}

// LoadSettings reads a YAML config file into Settings.
// If the file does not exist, it returns the defaults and nil error.
func LoadSettings(path string) (*Settings, error) {
	s := defaults
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &s, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := validate(&s); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &s, nil
}

func validate(s *Settings) error {
	if len(s.Versions) == 0 {
		return fmt.Errorf("versions must not be empty")
	}
	if s.Package == "" {
		return fmt.Errorf("package must not be empty")
	}
	switch s.Backend {
	case "", "uv", "venv":
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}
	if s.DefaultVersion != "" && !containsVersion(s.Versions, s.DefaultVersion) {
		return fmt.Errorf("default_version %q is not among versions", s.DefaultVersion)
	}
	return nil
}

// MaxVersion returns the maximum supported interpreter version.
func (s *Settings) MaxVersion() string {
	return s.Versions[len(s.Versions)-1]
}

// MinVersion returns the minimum supported interpreter version.
func (s *Settings) MinVersion() string {
	return s.Versions[0]
}

// ResolveDefaultVersion returns the explicit default or the maximum.
func (s *Settings) ResolveDefaultVersion() string {
	if s.DefaultVersion != "" {
		return s.DefaultVersion
	}
	return s.MaxVersion()
}

// OnCI reports whether the configured CI marker variable is present.
// Presence check only; any value counts.
func (s *Settings) OnCI() bool {
	name := s.CIVar
	if name == "" {
		name = "CI"
	}
	_, ok := os.LookupEnv(name)
	return ok
}

func containsVersion(versions []string, v string) bool {
	for _, x := range versions {
		if x == v {
			return true
		}
	}
	return false
}
