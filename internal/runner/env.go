package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// BackendUV and BackendVenv are the supported virtualenv backends.
const (
	BackendUV   = "uv"
	BackendVenv = "venv"
)

// ExitError reports a wrapped external command that exited non-zero.
// The code propagates unchanged to the invoking shell.
type ExitError struct {
	Program string
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Program, e.Code)
}

// Options configures a fresh invocation environment.
type Options struct {
	Version     string   // interpreter version, e.g. "3.12"; "" = ambient
	Backend     string   // BackendUV (default) or BackendVenv
	Dir         string   // virtualenv directory
	OutputDir   string   // per-instance log capture directory
	WorkDir     string   // working directory for spawned commands
	Reuse       bool     // keep an existing virtualenv, skip installs
	Passthrough []string // env var names forwarded from the parent

	Stdout io.Writer // command output mirror; logs are always captured
	Stderr io.Writer
}

// Env is an isolated, disposable execution context: one virtualenv,
// its installed packages, and an explicit environment variable set.
// Created fresh per session instance.
type Env struct {
	opts    Options
	environ []string
}

// New creates the environment: output directory, virtualenv, and the
// sanitized base environment with the virtualenv's bin dir on PATH.
func New(ctx context.Context, opts Options) (*Env, error) {
	if opts.Backend == "" {
		opts.Backend = BackendUV
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	e := &Env{opts: opts}
	e.environ = baseEnviron(opts)

	if opts.Reuse {
		if _, err := os.Stat(opts.Dir); err == nil {
			slog.Debug("reusing virtualenv", "dir", opts.Dir)
			return e, nil
		}
	}

	if err := e.createVenv(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Env) createVenv(ctx context.Context) error {
	var cmd *exec.Cmd
	switch e.opts.Backend {
	case BackendUV:
		args := []string{"venv"}
		if e.opts.Version != "" {
			args = append(args, "--python", e.opts.Version)
		}
		args = append(args, e.opts.Dir)
		cmd = exec.CommandContext(ctx, "uv", args...)
	case BackendVenv:
		cmd = exec.CommandContext(ctx, pythonProgram(e.opts.Version), "-m", "venv", e.opts.Dir)
	default:
		return fmt.Errorf("unknown venv backend %q", e.opts.Backend)
	}

	slog.Debug("creating virtualenv", "backend", e.opts.Backend, "dir", e.opts.Dir, "version", e.opts.Version)
	logW := e.logWriter("venv.log")
	cmd.Stdout = logW
	cmd.Stderr = logW
	err := cmd.Run()
	closeLogWriter(logW)
	if err != nil {
		return fmt.Errorf("create virtualenv (%s): %w", e.opts.Backend, err)
	}
	return nil
}

// Install installs packages into the environment. A failure here is an
// environment-preparation error: the session's main command never runs
// and the installer's diagnostic output is preserved verbatim.
func (e *Env) Install(ctx context.Context, args ...string) error {
	if e.opts.Reuse {
		slog.Debug("skipping install (reused environment)", "args", args)
		return nil
	}

	var cmd *exec.Cmd
	switch e.opts.Backend {
	case BackendUV:
		cmd = exec.CommandContext(ctx, "uv", append([]string{"pip", "install"}, args...)...)
	default:
		python := filepath.Join(e.opts.Dir, "bin", "python")
		cmd = exec.CommandContext(ctx, python, append([]string{"-m", "pip", "install"}, args...)...)
	}

	slog.Debug("installing", "backend", e.opts.Backend, "args", args)
	if err := e.runCmd(cmd, "install.log"); err != nil {
		return fmt.Errorf("install %v: %w", args, err)
	}
	return nil
}

// Run executes program with args inside the environment. Non-zero
// exits surface as *ExitError carrying the original code.
func (e *Env) Run(ctx context.Context, program string, args ...string) error {
	slog.Debug("spawning", "program", program, "args", args, "dir", e.opts.WorkDir)
	cmd := exec.CommandContext(ctx, e.lookup(program), args...)
	return e.runCmd(cmd, "output.log")
}

// Setenv forwards a variable into every subsequent command.
func (e *Env) Setenv(key, value string) {
	e.environ = append(e.environ, key+"="+value)
}

// Debug emits a human-oriented hint on the output mirror.
func (e *Env) Debug(msg string) {
	fmt.Fprintln(e.opts.Stdout, msg)
}

func (e *Env) runCmd(cmd *exec.Cmd, logName string) error {
	cmd.Dir = e.opts.WorkDir
	cmd.Env = e.environ

	logW := e.logWriter(logName)
	cmd.Stdout = io.MultiWriter(e.opts.Stdout, logW)
	cmd.Stderr = io.MultiWriter(e.opts.Stderr, logW)

	err := cmd.Run()
	closeLogWriter(logW)
	if err == nil {
		return nil
	}
	var xe *exec.ExitError
	if errors.As(err, &xe) {
		return &ExitError{Program: filepath.Base(cmd.Path), Code: xe.ExitCode()}
	}
	return err
}

// lookup prefers the virtualenv's bin directory for bare program names.
func (e *Env) lookup(program string) string {
	if filepath.IsAbs(program) || e.opts.Dir == "" {
		return program
	}
	candidate := filepath.Join(e.opts.Dir, "bin", program)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return program
}

func (e *Env) logWriter(name string) io.Writer {
	path := filepath.Join(e.opts.OutputDir, name)
	f, err := os.Create(path)
	if err != nil {
		slog.Warn("cannot create log file", "path", path, "error", err)
		return io.Discard
	}
	return f
}

// closeLogWriter closes the underlying file if the writer is an *os.File.
func closeLogWriter(w io.Writer) {
	if f, ok := w.(*os.File); ok {
		_ = f.Close()
	}
}

// pythonProgram returns the versioned interpreter name, e.g. python3.12.
func pythonProgram(version string) string {
	if version == "" {
		return "python3"
	}
	return "python" + version
}
