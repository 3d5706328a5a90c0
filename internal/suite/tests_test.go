package suite

import (
	"strings"
	"testing"
)

func TestTestsBody_InstallsPinnedRequirements(t *testing.T) {
	rec := planFor(t, "tests-3.11(all)", planOpts{})

	if len(rec.Commands) != 2 {
		t.Fatalf("recorded %d commands, want 2: %v", len(rec.Commands), joinedCommands(rec))
	}
	install := rec.Commands[0]
	if install.Kind != "install" {
		t.Fatalf("first command is %q, want install", install.Kind)
	}
	wantArgs := []string{"-r", "ci_requirements/tests-3.11.txt", ".[tests]"}
	if strings.Join(install.Args, " ") != strings.Join(wantArgs, " ") {
		t.Errorf("install args = %v, want %v", install.Args, wantArgs)
	}
}

func TestTestsBody_BaseInvocation(t *testing.T) {
	rec := planFor(t, "tests-3.11(all)", planOpts{})

	run := rec.Commands[1]
	if run.Program != "pytest" {
		t.Fatalf("run program = %q, want pytest", run.Program)
	}
	for _, flag := range []string{"--pyargs", "--durations=5", "--tb=short", "-n=auto", "--dist=loadfile"} {
		if !containsArg(run.Args, flag) {
			t.Errorf("pytest args missing %q: %v", flag, run.Args)
		}
	}
}

func TestTestsBody_DoctestGate(t *testing.T) {
	cases := []struct {
		selector string
		want     bool
	}{
		// doctests only at the maximum version, only for all and skipslow
		{"tests-3.12(all)", true},
		{"tests-3.12(skipslow)", true},
		{"tests-3.12(cov)", false},
		{"tests-3.12(lowest-direct)", false},
		{"tests-3.11(all)", false},
		{"tests-3.10(skipslow)", false},
	}

	for _, tc := range cases {
		t.Run(tc.selector, func(t *testing.T) {
			rec := planFor(t, tc.selector, planOpts{})
			run := rec.Commands[len(rec.Commands)-1]
			got := containsArg(run.Args, "--doctest-modules")
			if got != tc.want {
				t.Errorf("doctest flags present = %v, want %v: %v", got, tc.want, run.Args)
			}
			if got != containsArg(run.Args, "--doctest-continue-on-failure") {
				t.Errorf("doctest flags not appended together: %v", run.Args)
			}
		})
	}
}

func TestTestsBody_SkipSlowFilter(t *testing.T) {
	rec := planFor(t, "tests-3.11(skipslow)", planOpts{})
	run := rec.Commands[1]

	args := strings.Join(run.Args, " ")
	if !strings.Contains(args, "-m not slow") {
		t.Errorf("skipslow args missing marker filter: %v", run.Args)
	}
}

func TestTestsBody_CoverageFlags(t *testing.T) {
	rec := planFor(t, "tests-3.11(cov)", planOpts{})
	run := rec.Commands[1]

	for _, flag := range []string{"--cov=plasmapy", "--cov-report=xml", "--cov-append", "--cov-config=pyproject.toml"} {
		if !containsArg(run.Args, flag) {
			t.Errorf("coverage args missing %q: %v", flag, run.Args)
		}
	}
}

func TestTestsBody_LowestDirectResolution(t *testing.T) {
	rec := planFor(t, "tests-3.10(lowest-direct)", planOpts{})

	install := rec.Commands[0]
	if !containsArg(install.Args, "ci_requirements/tests-3.10-lowest-direct.txt") {
		t.Errorf("install args = %v, want lowest-direct requirements file", install.Args)
	}
	run := rec.Commands[1]
	if containsArg(run.Args, "-m") {
		t.Errorf("lowest-direct must not filter tests: %v", run.Args)
	}
}

func TestTestsBody_PosargsAppendedLast(t *testing.T) {
	rec := planFor(t, "tests-3.11(all)", planOpts{posargs: []string{"tests/test_x.py", "-k", "dispersion"}})
	run := rec.Commands[1]

	n := len(run.Args)
	if n < 3 || run.Args[n-3] != "tests/test_x.py" || run.Args[n-2] != "-k" || run.Args[n-1] != "dispersion" {
		t.Errorf("posargs not appended verbatim at the end: %v", run.Args)
	}
}

func TestTestsBody_ForwardsGitHubToken(t *testing.T) {
	rec := planFor(t, "tests-3.11(all)", planOpts{env: map[string]string{"GH_TOKEN": "tok"}})
	if rec.Env["GH_TOKEN"] != "tok" {
		t.Errorf("GH_TOKEN not forwarded: %v", rec.Env)
	}

	rec = planFor(t, "tests-3.11(all)", planOpts{})
	if _, ok := rec.Env["GH_TOKEN"]; ok {
		t.Error("GH_TOKEN forwarded despite being unset")
	}
}

func TestParseTestSpecifier(t *testing.T) {
	for _, id := range []string{"all", "skipslow", "cov", "lowest-direct"} {
		spec, err := ParseTestSpecifier(id)
		if err != nil {
			t.Errorf("ParseTestSpecifier(%q): %v", id, err)
		}
		if spec.String() != id {
			t.Errorf("round trip %q: got %q", id, spec)
		}
	}
	if _, err := ParseTestSpecifier("fast"); err == nil {
		t.Error("expected error for unknown specifier")
	}
}

func TestTestsDevBody_NightlyNumpy(t *testing.T) {
	rec := planFor(t, "tests-dev(numpy)", planOpts{})

	if len(rec.Commands) != 3 {
		t.Fatalf("recorded %d commands, want 3: %v", len(rec.Commands), joinedCommands(rec))
	}
	nightly := rec.Commands[0]
	for _, arg := range []string{"--pre", "--only-binary", "numpy"} {
		if !containsArg(nightly.Args, arg) {
			t.Errorf("nightly install missing %q: %v", arg, nightly.Args)
		}
	}
	if !containsArg(rec.Commands[1].Args, ".[tests]") {
		t.Errorf("second install = %v, want .[tests]", rec.Commands[1].Args)
	}
	if rec.Commands[2].Program != "pytest" {
		t.Errorf("final command = %q, want pytest", rec.Commands[2].Program)
	}
}

func TestTestsDevBody_GitDependencies(t *testing.T) {
	cases := []struct {
		variant string
		repo    string
	}{
		{"astropy", "git+https://github.com/astropy/astropy"},
		{"xarray", "git+https://github.com/pydata/xarray"},
		{"lmfit", "git+https://github.com/lmfit/lmfit-py"},
		{"pandas", "git+https://github.com/pandas-dev/pandas"},
	}

	for _, tc := range cases {
		t.Run(tc.variant, func(t *testing.T) {
			rec := planFor(t, "tests-dev("+tc.variant+")", planOpts{})
			if !containsArg(rec.Commands[0].Args, tc.repo) {
				t.Errorf("install args = %v, want %q", rec.Commands[0].Args, tc.repo)
			}
		})
	}
}
