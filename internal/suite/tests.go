// Package suite declares the built-in session suite: tests, docs,
// linkcheck, static analysis, packaging, and the pinned-requirements
// matrix. Sessions are registered statically; nothing is discovered at
// load time.
package suite

import (
	"context"
	"fmt"

	"github.com/ppiankov/labforge/internal/session"
)

// TestSpecifier selects the tests-session variant.
type TestSpecifier int

const (
	SpecifierAll TestSpecifier = iota
	SpecifierSkipSlow
	SpecifierCoverage
	SpecifierLowestDirect
)

func (s TestSpecifier) String() string {
	switch s {
	case SpecifierAll:
		return "all"
	case SpecifierSkipSlow:
		return "skipslow"
	case SpecifierCoverage:
		return "cov"
	case SpecifierLowestDirect:
		return "lowest-direct"
	default:
		return "unknown"
	}
}

// ParseTestSpecifier maps a variant ID to its specifier.
func ParseTestSpecifier(id string) (TestSpecifier, error) {
	switch id {
	case "all":
		return SpecifierAll, nil
	case "skipslow":
		return SpecifierSkipSlow, nil
	case "cov":
		return SpecifierCoverage, nil
	case "lowest-direct":
		return SpecifierLowestDirect, nil
	default:
		return 0, fmt.Errorf("unknown test specifier %q", id)
	}
}

// pytestCommand is the base test-runner invocation shared by every
// tests variant.
var pytestCommand = []string{
	"--pyargs",
	"--durations=5",
	"--tb=short",
	"-n=auto",
	"--dist=loadfile",
}

// doctestFlags are appended only at the maximum supported version for
// the all and skipslow variants. Doctest output differs subtly between
// interpreter and dependency versions, so only one cell of the matrix
// runs them.
var doctestFlags = []string{"--doctest-modules", "--doctest-continue-on-failure"}

var skipslowFlags = []string{"-m", "not slow"}

// coverageFlags instruments the named package, appending results across
// repeated invocations and emitting an XML report.
func coverageFlags(pkg string) []string {
	return []string{
		"--cov=" + pkg,
		"--cov-report=xml",
		"--cov-config=pyproject.toml",
		"--cov-append",
		"--cov-report", "xml:coverage.xml",
	}
}

const testSpecifierAxis = "test_specifier"

func testsSession(versions []string) *session.Session {
	return &session.Session{
		Name:     "tests",
		Summary:  "Run tests with pytest",
		Versions: versions,
		Axes: []session.Axis{{
			Name:     testSpecifierAxis,
			Variants: []string{"all", "skipslow", "cov", "lowest-direct"},
		}},
		Body: testsBody,
	}
}

func testsBody(ctx context.Context, rc *session.RunContext) error {
	spec, err := ParseTestSpecifier(rc.Variant(testSpecifierAxis))
	if err != nil {
		return err
	}

	resolution := session.ResolutionHighest
	if spec == SpecifierLowestDirect {
		resolution = session.ResolutionLowestDirect
	}
	requirements := session.RequirementsPath(session.CategoryTests, rc.Instance.Version, resolution)

	var options []string
	switch spec {
	case SpecifierSkipSlow:
		options = append(options, skipslowFlags...)
	case SpecifierCoverage:
		options = append(options, coverageFlags(rc.Package)...)
	case SpecifierAll, SpecifierLowestDirect:
		// no filter
	default:
		return fmt.Errorf("unhandled test specifier %v", spec)
	}

	// Doctests run only at the maximum supported version for the all
	// and skipslow variants. Literal conjunctive rule; coverage and
	// lowest-direct never run doctests.
	if rc.Instance.Version == rc.MaxVersion && (spec == SpecifierAll || spec == SpecifierSkipSlow) {
		options = append(options, doctestFlags...)
	}

	if token := rc.Env("GH_TOKEN"); token != "" {
		rc.Exec.Setenv("GH_TOKEN", token)
	}

	if err := rc.Exec.Install(ctx, "-r", requirements, ".[tests]"); err != nil {
		return err
	}

	args := append(append([]string{}, pytestCommand...), options...)
	args = append(args, rc.Posargs...)
	return rc.Exec.Run(ctx, "pytest", args...)
}

const repositoryAxis = "repository"

func testsDevSession(maxVersion string) *session.Session {
	return &session.Session{
		Name:     "tests-dev",
		Summary:  "Run tests against the development branch of a dependency",
		Versions: []string{maxVersion},
		Axes: []session.Axis{{
			Name:     repositoryAxis,
			Variants: []string{"numpy", "astropy", "xarray", "lmfit", "pandas"},
		}},
		Body: testsDevBody,
	}
}

// nightly wheel index for numpy pre-releases
var numpyNightlyArgs = []string{
	"-U", "--pre",
	"--only-binary", ":all:",
	"-i", "https://pypi.anaconda.org/scientific-python-nightly-wheels/simple",
	"numpy",
}

func testsDevBody(ctx context.Context, rc *session.RunContext) error {
	var installArgs []string
	switch repo := rc.Variant(repositoryAxis); repo {
	case "numpy":
		installArgs = numpyNightlyArgs
	case "astropy":
		installArgs = []string{"git+https://github.com/astropy/astropy"}
	case "xarray":
		installArgs = []string{"git+https://github.com/pydata/xarray"}
	case "lmfit":
		installArgs = []string{"git+https://github.com/lmfit/lmfit-py"}
	case "pandas":
		installArgs = []string{"git+https://github.com/pandas-dev/pandas"}
	default:
		return fmt.Errorf("unknown repository %q", repo)
	}

	if err := rc.Exec.Install(ctx, installArgs...); err != nil {
		return err
	}
	if err := rc.Exec.Install(ctx, ".[tests]"); err != nil {
		return err
	}
	args := append(append([]string{}, pytestCommand...), rc.Posargs...)
	return rc.Exec.Run(ctx, "pytest", args...)
}
