package suite

import (
	"context"
	"fmt"

	"github.com/ppiankov/labforge/internal/session"
)

const mypyTroubleshooting = `
For details about specific mypy errors, see
https://mypy.readthedocs.io/en/stable/error_codes.html

Especially difficult errors can be ignored with an inline comment of
the form "# type: ignore[error]". Please use sparingly. To add type
hints for common patterns automatically, run:
  labforge run 'autotyping(safe)'
`

var mypyCommand = []string{
	".",
	"--install-types",
	"--non-interactive",
	"--show-error-context",
	"--show-error-code-links",
	"--pretty",
}

func mypySession(maxVersion string) *session.Session {
	return &session.Session{
		Name:     "mypy",
		Summary:  "Perform static type checking",
		Versions: []string{maxVersion},
		Body:     mypyBody,
	}
}

func mypyBody(ctx context.Context, rc *session.RunContext) error {
	if rc.CI {
		rc.Exec.Debug(mypyTroubleshooting)
	}

	requirements := session.RequirementsPath(session.CategoryTests, rc.Instance.Version, session.ResolutionHighest)
	if err := rc.Exec.Install(ctx, "pip"); err != nil {
		return err
	}
	if err := rc.Exec.Install(ctx, "-r", requirements, ".[tests]"); err != nil {
		return err
	}

	args := append(append([]string{}, mypyCommand...), rc.Posargs...)
	return rc.Exec.Run(ctx, "mypy", args...)
}

func importSession() *session.Session {
	return &session.Session{
		Name:    "import",
		Summary: "Install the package and import it",
		Body:    importBody,
	}
}

func importBody(ctx context.Context, rc *session.RunContext) error {
	if err := rc.Exec.Install(ctx, "."); err != nil {
		return err
	}
	args := append([]string{"-c", "import " + rc.Package}, rc.Posargs...)
	return rc.Exec.Run(ctx, "python", args...)
}

func cffSession() *session.Session {
	return &session.Session{
		Name:    "cff",
		Summary: "Validate CITATION.cff against the metadata standard",
		Body:    cffBody,
	}
}

func cffBody(ctx context.Context, rc *session.RunContext) error {
	if err := rc.Exec.Install(ctx, "cffconvert"); err != nil {
		return err
	}
	args := append([]string{"--validate"}, rc.Posargs...)
	return rc.Exec.Run(ctx, "cffconvert", args...)
}

func manifestSession() *session.Session {
	return &session.Session{
		Name:    "manifest",
		Summary: "Check for missing files in MANIFEST.in",
		Body:    manifestBody,
	}
}

func manifestBody(ctx context.Context, rc *session.RunContext) error {
	if err := rc.Exec.Install(ctx, "check-manifest"); err != nil {
		return err
	}
	return rc.Exec.Run(ctx, "check-manifest", rc.Posargs...)
}

func lintSession() *session.Session {
	return &session.Session{
		Name:    "lint",
		Summary: "Run all pre-commit hooks on all files",
		Body:    lintBody,
	}
}

func lintBody(ctx context.Context, rc *session.RunContext) error {
	if err := rc.Exec.Install(ctx, "pre-commit"); err != nil {
		return err
	}
	args := append([]string{"run", "--all-files", "--show-diff-on-failure"}, rc.Posargs...)
	return rc.Exec.Run(ctx, "pre-commit", args...)
}

// AutotypeMode selects the autotyping flag set.
type AutotypeMode int

const (
	AutotypeSafe AutotypeMode = iota
	AutotypeAggressive
)

// ParseAutotypeMode maps a variant ID to its mode.
func ParseAutotypeMode(id string) (AutotypeMode, error) {
	switch id {
	case "safe":
		return AutotypeSafe, nil
	case "aggressive":
		return AutotypeAggressive, nil
	default:
		return 0, fmt.Errorf("unknown autotyping mode %q", id)
	}
}

var autotypingSafeFlags = []string{
	"--none-return",
	"--scalar-return",
	"--annotate-magics",
}

var autotypingAggressiveFlags = append(append([]string{}, autotypingSafeFlags...),
	"--bool-param",
	"--int-param",
	"--float-param",
	"--str-param",
	"--bytes-param",
	"--annotate-imprecise-magics",
)

// autotypingDefaultPaths are checked when no posargs are given.
var autotypingDefaultPaths = []string{"src", "tests", "tools", "*.py", ".github", "docs/*.py"}

const optionsAxis = "options"

func autotypingSession() *session.Session {
	return &session.Session{
		Name:    "autotyping",
		Summary: "Automatically add type hints with autotyping",
		Axes: []session.Axis{{
			Name:     optionsAxis,
			Variants: []string{"safe", "aggressive"},
		}},
		Body: autotypingBody,
	}
}

func autotypingBody(ctx context.Context, rc *session.RunContext) error {
	mode, err := ParseAutotypeMode(rc.Variant(optionsAxis))
	if err != nil {
		return err
	}

	var flags []string
	switch mode {
	case AutotypeSafe:
		flags = autotypingSafeFlags
	case AutotypeAggressive:
		flags = autotypingAggressiveFlags
	default:
		return fmt.Errorf("unhandled autotyping mode %v", mode)
	}

	if err := rc.Exec.Install(ctx, ".[tests,docs]", "autotyping", "typing_extensions"); err != nil {
		return err
	}

	paths := rc.Posargs
	if len(paths) == 0 {
		paths = autotypingDefaultPaths
	}
	args := append([]string{"-m", "autotyping"}, flags...)
	args = append(args, paths...)
	return rc.Exec.Run(ctx, "python", args...)
}
