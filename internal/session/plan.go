package session

import (
	"context"
	"strings"
)

// PlannedCommand is one recorded invocation from a dry run.
type PlannedCommand struct {
	Kind    string // "install" or "run"
	Program string
	Args    []string
}

func (c PlannedCommand) String() string {
	parts := append([]string{c.Program}, c.Args...)
	return strings.Join(parts, " ")
}

// PlanRecorder is an Executor that records the commands a session body
// would run instead of executing them. Used by --dry-run and tests.
type PlanRecorder struct {
	Installer string // program name shown for install steps
	Commands  []PlannedCommand
	Env       map[string]string
	Hints     []string
}

// NewPlanRecorder creates a recorder labeled with the installer name.
func NewPlanRecorder(installer string) *PlanRecorder {
	return &PlanRecorder{Installer: installer, Env: make(map[string]string)}
}

func (p *PlanRecorder) Install(_ context.Context, args ...string) error {
	p.Commands = append(p.Commands, PlannedCommand{Kind: "install", Program: p.Installer, Args: args})
	return nil
}

func (p *PlanRecorder) Run(_ context.Context, program string, args ...string) error {
	p.Commands = append(p.Commands, PlannedCommand{Kind: "run", Program: program, Args: args})
	return nil
}

func (p *PlanRecorder) Setenv(key, value string) {
	p.Env[key] = value
}

func (p *PlanRecorder) Debug(msg string) {
	p.Hints = append(p.Hints, msg)
}
