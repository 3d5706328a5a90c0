package reporter

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/ppiankov/labforge/internal/session"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorDim    = "\033[2m"
)

// TextReporter writes human-readable output to a writer.
type TextReporter struct {
	w     io.Writer
	color bool
}

// NewTextReporter creates a text reporter.
// If w is nil, defaults to os.Stdout. color enables ANSI codes.
func NewTextReporter(w io.Writer, color bool) *TextReporter {
	if w == nil {
		w = os.Stdout
	}
	return &TextReporter{w: w, color: color}
}

// PrintHeader writes the initial banner.
func (r *TextReporter) PrintHeader(instances int) {
	noun := "sessions"
	if instances == 1 {
		noun = "session"
	}
	fmt.Fprintf(r.w, "labforge — %d %s\n\n", instances, noun)
}

// PrintStart writes the per-instance start line.
func (r *TextReporter) PrintStart(id string) {
	fmt.Fprintf(r.w, "%s▶ %s%s\n", r.c(colorCyan), id, r.c(colorReset))
}

// PrintResult writes the per-instance outcome line.
func (r *TextReporter) PrintResult(res *session.Result) {
	dur := res.Duration.Truncate(time.Millisecond * 10)
	switch res.State {
	case session.StatePassed:
		fmt.Fprintf(r.w, "%s✓ %-40s%s %s\n", r.c(colorGreen), res.Instance, r.c(colorReset), dur)
	case session.StateFailed:
		fmt.Fprintf(r.w, "%s✗ %-40s%s %s  %s\n", r.c(colorRed), res.Instance, r.c(colorReset), dur, res.Error)
	case session.StateAborted:
		fmt.Fprintf(r.w, "%s⊘ %-40s%s (%s)\n", r.c(colorDim), res.Instance, r.c(colorReset), res.Error)
	default:
		fmt.Fprintf(r.w, "  %-40s %s\n", res.Instance, res.State)
	}
}

// PrintSummary writes the final summary line.
func (r *TextReporter) PrintSummary(report *session.RunReport) {
	fmt.Fprintf(r.w, "\n%s--- Summary ---%s\n", r.c(colorCyan), r.c(colorReset))
	fmt.Fprintf(r.w, "Total: %d  ", report.Total)
	fmt.Fprintf(r.w, "%sPassed: %d%s  ", r.c(colorGreen), report.Passed, r.c(colorReset))
	fmt.Fprintf(r.w, "%sFailed: %d%s  ", r.c(colorRed), report.Failed, r.c(colorReset))
	if report.Aborted > 0 {
		fmt.Fprintf(r.w, "%sAborted: %d%s  ", r.c(colorYellow), report.Aborted, r.c(colorReset))
	}
	fmt.Fprintf(r.w, "Duration: %s\n", report.TotalDuration.Truncate(time.Second))
}

// PrintList writes the session catalog: every session with its
// expanded instance IDs, declaration order.
func (r *TextReporter) PrintList(registry *session.Registry) {
	for _, s := range registry.Sessions() {
		fmt.Fprintf(r.w, "%s%s%s — %s\n", r.c(colorCyan), s.Name, r.c(colorReset), s.Summary)
		for _, in := range registry.Instances(s) {
			if in.ID() == s.Name {
				continue // versionless, axis-free session: no expansion
			}
			fmt.Fprintf(r.w, "  %s%s%s\n", r.c(colorDim), in.ID(), r.c(colorReset))
		}
	}
}

// PrintDryRun writes the planned commands for one instance.
func (r *TextReporter) PrintDryRun(id string, plan *session.PlanRecorder) {
	fmt.Fprintf(r.w, "%s%s%s\n", r.c(colorCyan), id, r.c(colorReset))
	keys := make([]string, 0, len(plan.Env))
	for k := range plan.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(r.w, "  %senv %s=%s%s\n", r.c(colorDim), k, plan.Env[k], r.c(colorReset))
	}
	for _, cmd := range plan.Commands {
		marker := "$"
		if cmd.Kind == "install" {
			marker = "+"
		}
		fmt.Fprintf(r.w, "  %s %s\n", marker, cmd)
	}
	fmt.Fprintln(r.w)
}

func (r *TextReporter) c(code string) string {
	if !r.color {
		return ""
	}
	return code
}
