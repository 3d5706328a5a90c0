package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ppiankov/labforge/internal/config"
	"github.com/ppiankov/labforge/internal/history"
	"github.com/ppiankov/labforge/internal/reporter"
	"github.com/ppiankov/labforge/internal/runner"
	"github.com/ppiankov/labforge/internal/session"
	"github.com/ppiankov/labforge/internal/suite"
)

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [selector...] [-- extra-args]",
		Short: "Execute sessions sequentially in isolated environments",
		Long: `Run resolves each selector (name, name-version, name(variant), or
name-version(variant)) to session instances and executes them one at a
time, each in a fresh virtualenv. Arguments after -- are appended
verbatim to the wrapped tool's command line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadSettings(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			selectors, posargs := splitDash(cmd, args)
			if len(selectors) == 0 {
				selectors = []string{cfg.DefaultSession}
			}
			return runSessions(cfg, selectors, posargs, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the resolved commands without executing")
	cmd.Flags().BoolVar(&opts.noInstall, "no-install", false, "reuse existing virtualenvs and skip installs")
	cmd.Flags().StringVar(&opts.tuiMode, "tui", "auto", "display mode: full (live TUI), off (plain lines), auto (detect TTY)")

	return cmd
}

type runOptions struct {
	dryRun    bool
	noInstall bool
	tuiMode   string
}

// RunFailureError indicates at least one session instance failed. The
// wrapped external tool's exit code propagates unchanged through it.
type RunFailureError struct {
	Failed   int
	ExitCode int
}

func (e *RunFailureError) Error() string {
	noun := "sessions"
	if e.Failed == 1 {
		noun = "session"
	}
	return fmt.Sprintf("%d %s failed", e.Failed, noun)
}

// splitDash separates selectors from posargs at the -- marker.
func splitDash(cmd *cobra.Command, args []string) (selectors, posargs []string) {
	if i := cmd.ArgsLenAtDash(); i >= 0 {
		return args[:i], args[i:]
	}
	return args, nil
}

func runSessions(cfg *config.Settings, selectors, posargs []string, opts runOptions) error {
	registry, err := suite.Registry(suite.Config{Versions: cfg.Versions, Package: cfg.Package})
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}
	ci := cfg.OnCI()

	if opts.dryRun {
		return printPlan(registry, cfg, selectors, posargs, ci, workDir)
	}

	runDir := filepath.Join(".labforge", time.Now().Format("20060102-150405"))
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\ninterrupted — waiting for the running session to finish...")
		cancel()
	}()

	isTTY := isTerminal()
	displayMode := opts.tuiMode
	if displayMode == "" || displayMode == "auto" {
		if isTTY {
			displayMode = "full"
		} else {
			displayMode = "off"
		}
	}

	// command output goes to the terminal unless the TUI owns it;
	// per-instance logs are always captured in the run directory
	var cmdStdout io.Writer = os.Stdout
	var cmdStderr io.Writer = os.Stderr
	if displayMode == "full" {
		cmdStdout = io.Discard
		cmdStderr = io.Discard
	}

	textRep := reporter.NewTextReporter(os.Stdout, isTTY)

	var mu sync.Mutex
	results := make(map[string]*session.Result)
	var firstFailure *session.Result
	snapshot := func() map[string]*session.Result {
		mu.Lock()
		defer mu.Unlock()
		cp := make(map[string]*session.Result, len(results))
		for k, v := range results {
			cpy := *v
			cp[k] = &cpy
		}
		return cp
	}

	execFn := func(ctx context.Context, in session.Instance) *session.Result {
		id := in.ID()
		start := time.Now()
		outDir := filepath.Join(runDir, id)

		env, err := runner.New(ctx, runner.Options{
			Version:     in.Version,
			Backend:     cfg.Backend,
			Dir:         filepath.Join(outDir, "venv"),
			OutputDir:   outDir,
			WorkDir:     workDir,
			Reuse:       opts.noInstall,
			Passthrough: cfg.EnvPassthrough,
			Stdout:      cmdStdout,
			Stderr:      cmdStderr,
		})
		if err != nil {
			return &session.Result{
				State:     session.StateFailed,
				StartedAt: start,
				EndedAt:   time.Now(),
				Error:     err.Error(),
				OutputDir: outDir,
			}
		}

		rc := makeRunContext(in, env, cfg, posargs, ci, workDir)
		bodyErr := in.Session.Body(ctx, rc)
		end := time.Now()

		res := &session.Result{
			StartedAt: start,
			EndedAt:   end,
			Duration:  end.Sub(start),
			OutputDir: outDir,
		}
		if bodyErr != nil {
			res.State = session.StateFailed
			res.Error = bodyErr.Error()
			var xe *runner.ExitError
			if errors.As(bodyErr, &xe) {
				res.ExitCode = xe.Code
			}
		} else {
			res.State = session.StatePassed
		}
		return res
	}

	dispatcher := session.NewDispatcher(registry, session.DispatcherConfig{
		DefaultVersion: cfg.ResolveDefaultVersion(),
		ExecFn:         execFn,
		OnUpdate: func(id string, res *session.Result) {
			mu.Lock()
			results[id] = res
			if res.State == session.StateFailed && firstFailure == nil {
				firstFailure = res
			}
			mu.Unlock()

			if displayMode != "full" {
				switch res.State {
				case session.StateRunning:
					textRep.PrintStart(id)
				case session.StatePassed, session.StateFailed, session.StateAborted:
					textRep.PrintResult(res)
				}
			}
		},
	})

	// selector resolution happens before any environment exists
	groups, err := dispatcher.Plan(selectors)
	if err != nil {
		return err
	}
	var order []string
	total := 0
	for _, g := range groups {
		for _, in := range g {
			order = append(order, in.ID())
			total++
		}
	}

	var tuiProgram *tea.Program
	if displayMode == "full" {
		tuiModel := reporter.NewTUIModel(order, snapshot, cancel)
		tuiProgram = tea.NewProgram(tuiModel, tea.WithAltScreen())
		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				slog.Warn("TUI error", "error", err)
			}
		}()
	} else {
		textRep.PrintHeader(total)
	}

	report, err := dispatcher.Run(ctx, selectors)

	if tuiProgram != nil {
		tuiProgram.Quit()
		time.Sleep(100 * time.Millisecond)
	}
	if err != nil {
		return err
	}

	textRep.PrintSummary(report)

	reportPath := filepath.Join(runDir, "report.json")
	if err := reporter.WriteJSONReport(report, reportPath); err != nil {
		slog.Warn("failed to write report", "error", err)
	} else {
		fmt.Fprintf(os.Stdout, "\nReport: %s\n", reportPath)
	}

	if cfg.History {
		if err := recordHistory(report); err != nil {
			slog.Warn("failed to record history", "error", err)
		}
	}

	if report.Failed > 0 {
		code := 1
		mu.Lock()
		if firstFailure != nil && firstFailure.ExitCode != 0 {
			code = firstFailure.ExitCode
		}
		mu.Unlock()
		return &RunFailureError{Failed: report.Failed, ExitCode: code}
	}
	return nil
}

// printPlan resolves the selectors and records each body's commands
// without creating environments or spawning anything.
func printPlan(registry *session.Registry, cfg *config.Settings, selectors, posargs []string, ci bool, workDir string) error {
	dispatcher := session.NewDispatcher(registry, session.DispatcherConfig{
		DefaultVersion: cfg.ResolveDefaultVersion(),
	})
	groups, err := dispatcher.Plan(selectors)
	if err != nil {
		return err
	}

	textRep := reporter.NewTextReporter(os.Stdout, isTerminal())
	for _, group := range groups {
		for _, in := range group {
			plan := session.NewPlanRecorder(installerLabel(cfg.Backend))
			rc := makeRunContext(in, plan, cfg, posargs, ci, workDir)
			if err := in.Session.Body(context.Background(), rc); err != nil {
				return fmt.Errorf("plan %s: %w", in.ID(), err)
			}
			textRep.PrintDryRun(in.ID(), plan)
		}
	}
	return nil
}

func makeRunContext(in session.Instance, ex session.Executor, cfg *config.Settings, posargs []string, ci bool, workDir string) *session.RunContext {
	return &session.RunContext{
		Exec:       ex,
		Instance:   in,
		Posargs:    posargs,
		CI:         ci,
		WorkDir:    workDir,
		MaxVersion: cfg.MaxVersion(),
		MinVersion: cfg.MinVersion(),
		Versions:   cfg.Versions,
		Package:    cfg.Package,
		Getenv:     os.Getenv,
	}
}

func installerLabel(backend string) string {
	if backend == runner.BackendVenv {
		return "pip install"
	}
	return "uv pip install"
}

func recordHistory(report *session.RunReport) error {
	store, err := history.Open(filepath.Join(".labforge", "history.db"))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return store.Record(report)
}

// isTerminal checks if stdout is a terminal.
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
