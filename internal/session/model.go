package session

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// State represents the execution state of a session instance.
type State int

const (
	StatePending State = iota
	StateRunning
	StatePassed
	StateFailed
	StateAborted // earlier instance of the same selector failed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateRunning:
		return "RUNNING"
	case StatePassed:
		return "PASSED"
	case StateFailed:
		return "FAILED"
	case StateAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Executor runs external commands inside an invocation environment.
// The real implementation creates a virtualenv and spawns processes;
// the plan recorder used by --dry-run and tests only records argv.
type Executor interface {
	// Install installs packages into the environment. Arguments are
	// passed verbatim to the configured installer.
	Install(ctx context.Context, args ...string) error
	// Run executes program with args inside the environment. A
	// non-zero exit is returned as a *runner.ExitError.
	Run(ctx context.Context, program string, args ...string) error
	// Setenv forwards an environment variable into subsequent commands.
	Setenv(key, value string)
	// Debug emits a human-oriented hint (preview paths, troubleshooting).
	Debug(msg string)
}

// RunContext carries everything a session body needs. CI detection and
// version bounds are resolved once at startup and passed in explicitly.
type RunContext struct {
	Exec       Executor
	Instance   Instance
	Posargs    []string // caller-supplied extra args, appended verbatim
	CI         bool
	WorkDir    string
	MaxVersion string
	MinVersion string
	Versions   []string            // full supported-version sequence
	Package    string              // import/coverage target package
	Getenv     func(string) string // env lookup, injected for testability
}

// Env returns the value of an environment variable, or "" when no
// lookup was injected.
func (rc *RunContext) Env(key string) string {
	if rc.Getenv == nil {
		return ""
	}
	return rc.Getenv(key)
}

// Variant returns the selected variant ID for an axis.
func (rc *RunContext) Variant(axis string) string {
	return rc.Instance.Variant(axis)
}

// Body executes one session instance against an environment.
type Body func(ctx context.Context, rc *RunContext) error

// Axis is a closed, named set of variant IDs. Declaration order is
// selection order; the first variant is the axis default.
type Axis struct {
	Name     string
	Variants []string
}

// Session is a named unit of automation: a version axis, optional
// parameter axes, and a body producing external-process invocations.
type Session struct {
	Name     string
	Summary  string
	Versions []string // interpreter version axis; empty = versionless
	Axes     []Axis
	Body     Body
}

// Instance is one element of a session's axis cross product.
type Instance struct {
	Session  *Session
	Version  string   // "" for versionless sessions
	Variants []string // one ID per axis, in axis declaration order
}

// ID renders the canonical instance identifier:
// name[-version][(variant[,variant...])].
func (in Instance) ID() string {
	var b strings.Builder
	b.WriteString(in.Session.Name)
	if in.Version != "" {
		b.WriteByte('-')
		b.WriteString(in.Version)
	}
	if len(in.Variants) > 0 {
		b.WriteByte('(')
		b.WriteString(strings.Join(in.Variants, ","))
		b.WriteByte(')')
	}
	return b.String()
}

// Variant returns the selected variant ID for the named axis.
func (in Instance) Variant(axis string) string {
	for i, a := range in.Session.Axes {
		if a.Name == axis && i < len(in.Variants) {
			return in.Variants[i]
		}
	}
	return ""
}

// Result captures the outcome of executing a single instance.
type Result struct {
	Instance  string        `json:"instance"`
	State     State         `json:"state"`
	StartedAt time.Time     `json:"started_at,omitempty"`
	EndedAt   time.Time     `json:"ended_at,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	ExitCode  int           `json:"exit_code,omitempty"`
	Error     string        `json:"error,omitempty"`
	OutputDir string        `json:"output_dir,omitempty"`
}

// MarshalText lets State render as its name in JSON reports.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name back from a report.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "PENDING":
		*s = StatePending
	case "RUNNING":
		*s = StateRunning
	case "PASSED":
		*s = StatePassed
	case "FAILED":
		*s = StateFailed
	case "ABORTED":
		*s = StateAborted
	default:
		return fmt.Errorf("unknown state %q", text)
	}
	return nil
}

// RunReport is the final output of a labforge run.
type RunReport struct {
	RunID         string             `json:"run_id"`
	Timestamp     time.Time          `json:"timestamp"`
	Selectors     []string           `json:"selectors"`
	Results       map[string]*Result `json:"results"`
	Total         int                `json:"total"`
	Passed        int                `json:"passed"`
	Failed        int                `json:"failed"`
	Aborted       int                `json:"aborted"`
	TotalDuration time.Duration      `json:"total_duration"`
}
