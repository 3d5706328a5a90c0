package suite

import (
	"context"
	"fmt"

	"github.com/ppiankov/labforge/internal/session"
)

func buildSession() *session.Session {
	return &session.Session{
		Name:    "build",
		Summary: "Build and verify the source distribution and wheel",
		Body:    buildBody,
	}
}

func buildBody(ctx context.Context, rc *session.RunContext) error {
	if err := rc.Exec.Install(ctx, "twine", "build"); err != nil {
		return err
	}
	if err := rc.Exec.Run(ctx, "python", "-m", "build", "--sdist"); err != nil {
		return err
	}
	if err := rc.Exec.Run(ctx, "python", "-m", "build", "--wheel"); err != nil {
		return err
	}
	args := append([]string{"check", "dist/*"}, rc.Posargs...)
	return rc.Exec.Run(ctx, "twine", args...)
}

func requirementsSession() *session.Session {
	return &session.Session{
		Name:    "requirements",
		Summary: "Regenerate the pinned requirements files used in CI",
		Body:    requirementsBody,
	}
}

// requirementsMatrix lists the (category, version, resolution) triples
// whose pinned files are kept under ci_requirements/.
func requirementsMatrix(versions []string) []struct {
	Category   session.Category
	Version    string
	Resolution session.Resolution
} {
	type triple = struct {
		Category   session.Category
		Version    string
		Resolution session.Resolution
	}
	var matrix []triple
	for _, v := range versions {
		matrix = append(matrix, triple{session.CategoryTests, v, session.ResolutionHighest})
	}
	minVersion := versions[0]
	maxVersion := versions[len(versions)-1]
	matrix = append(matrix,
		triple{session.CategoryTests, minVersion, session.ResolutionLowestDirect},
		triple{session.CategoryDocs, maxVersion, session.ResolutionHighest},
		triple{session.CategoryAll, maxVersion, session.ResolutionHighest},
	)
	return matrix
}

// categoryFlags returns the extras flags passed to the compiler for a
// dependency category.
func categoryFlags(c session.Category) ([]string, error) {
	switch c {
	case session.CategoryAll:
		return []string{"--all-extras"}, nil
	case session.CategoryDocs:
		return []string{"--extra", "docs"}, nil
	case session.CategoryTests:
		return []string{"--extra", "tests"}, nil
	default:
		return nil, fmt.Errorf("unhandled category %v", c)
	}
}

var compileCommand = []string{
	"-m", "uv", "pip", "compile",
	"pyproject.toml",
	"--upgrade",
	"--quiet",
	// recorded in the generated file header
	"--custom-compile-command", "labforge run requirements",
}

func requirementsBody(ctx context.Context, rc *session.RunContext) error {
	if err := rc.Exec.Install(ctx, "uv >= 0.2.23"); err != nil {
		return err
	}

	for _, t := range requirementsMatrix(rc.Versions) {
		flags, err := categoryFlags(t.Category)
		if err != nil {
			return err
		}
		path := session.RequirementsPath(t.Category, t.Version, t.Resolution)

		args := append([]string{}, compileCommand...)
		args = append(args, "--python-version", t.Version)
		args = append(args, flags...)
		args = append(args, "--output-file", path, "--resolution", t.Resolution.String())
		args = append(args, rc.Posargs...)
		if err := rc.Exec.Run(ctx, "python", args...); err != nil {
			return err
		}
	}
	return nil
}
