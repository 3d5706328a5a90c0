package reporter

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/labforge/internal/session"
)

func TestPrintResult(t *testing.T) {
	cases := []struct {
		name string
		res  *session.Result
		want []string
	}{
		{
			name: "passed",
			res:  &session.Result{Instance: "tests-3.12(all)", State: session.StatePassed, Duration: 90 * time.Second},
			want: []string{"✓", "tests-3.12(all)", "1m30s"},
		},
		{
			name: "failed",
			res:  &session.Result{Instance: "docs-3.12", State: session.StateFailed, Error: "sphinx-build exited with code 2"},
			want: []string{"✗", "docs-3.12", "sphinx-build exited with code 2"},
		},
		{
			name: "aborted",
			res:  &session.Result{Instance: "tests-3.12(cov)", State: session.StateAborted, Error: "earlier instance failed"},
			want: []string{"⊘", "tests-3.12(cov)", "earlier instance failed"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewTextReporter(&buf, false).PrintResult(tc.res)
			out := buf.String()
			for _, want := range tc.want {
				if !strings.Contains(out, want) {
					t.Errorf("output %q missing %q", out, want)
				}
			}
			if strings.Contains(out, "\033[") {
				t.Errorf("ANSI codes emitted with color disabled: %q", out)
			}
		})
	}
}

func TestPrintResult_Color(t *testing.T) {
	var buf bytes.Buffer
	NewTextReporter(&buf, true).PrintResult(&session.Result{
		Instance: "tests-3.12(all)", State: session.StatePassed,
	})
	if !strings.Contains(buf.String(), "\033[32m") {
		t.Errorf("no green escape in colored output: %q", buf.String())
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	NewTextReporter(&buf, false).PrintSummary(&session.RunReport{
		Total: 5, Passed: 3, Failed: 1, Aborted: 1,
		TotalDuration: 154 * time.Second,
	})
	out := buf.String()
	for _, want := range []string{"Total: 5", "Passed: 3", "Failed: 1", "Aborted: 1", "2m34s"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary %q missing %q", out, want)
		}
	}
}

func TestPrintSummary_OmitsZeroAborted(t *testing.T) {
	var buf bytes.Buffer
	NewTextReporter(&buf, false).PrintSummary(&session.RunReport{Total: 2, Passed: 2})
	if strings.Contains(buf.String(), "Aborted") {
		t.Errorf("summary shows aborted count of zero: %q", buf.String())
	}
}

func TestPrintHeader_Pluralizes(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextReporter(&buf, false)
	r.PrintHeader(1)
	r.PrintHeader(4)
	out := buf.String()
	if !strings.Contains(out, "1 session\n") || !strings.Contains(out, "4 sessions\n") {
		t.Errorf("pluralization wrong: %q", out)
	}
}

func TestPrintList(t *testing.T) {
	reg, err := session.NewRegistry(
		&session.Session{
			Name:     "tests",
			Summary:  "Run tests with pytest",
			Versions: []string{"3.12"},
			Axes:     []session.Axis{{Name: "spec", Variants: []string{"all", "cov"}}},
			Body:     func(ctx context.Context, rc *session.RunContext) error { return nil },
		},
		&session.Session{
			Name:    "manifest",
			Summary: "Check for missing files in MANIFEST.in",
			Body:    func(ctx context.Context, rc *session.RunContext) error { return nil },
		},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	var buf bytes.Buffer
	NewTextReporter(&buf, false).PrintList(reg)
	out := buf.String()

	for _, want := range []string{"tests — Run tests with pytest", "tests-3.12(all)", "tests-3.12(cov)", "manifest — Check"} {
		if !strings.Contains(out, want) {
			t.Errorf("list %q missing %q", out, want)
		}
	}
	// an axis-free versionless session lists no expansion line
	if strings.Count(out, "manifest") != 1 {
		t.Errorf("manifest expanded unexpectedly: %q", out)
	}
}

func TestPrintDryRun(t *testing.T) {
	plan := session.NewPlanRecorder("uv pip install")
	plan.Setenv("GH_TOKEN", "tok")
	plan.Setenv("A_FIRST", "1")
	_ = plan.Install(context.Background(), "-r", "ci_requirements/tests-3.12.txt")
	_ = plan.Run(context.Background(), "pytest", "--pyargs")

	var buf bytes.Buffer
	NewTextReporter(&buf, false).PrintDryRun("tests-3.12(all)", plan)
	out := buf.String()

	if !strings.Contains(out, "+ uv pip install -r ci_requirements/tests-3.12.txt") {
		t.Errorf("install line missing: %q", out)
	}
	if !strings.Contains(out, "$ pytest --pyargs") {
		t.Errorf("run line missing: %q", out)
	}
	// env lines sorted by key
	if strings.Index(out, "A_FIRST") > strings.Index(out, "GH_TOKEN") {
		t.Errorf("env lines not sorted: %q", out)
	}
}
