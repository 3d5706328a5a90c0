package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
)

// ExecFn runs one instance and returns its result. Implementations
// create the invocation environment and invoke the session body.
type ExecFn func(ctx context.Context, in Instance) *Result

// DispatcherConfig holds dispatch parameters.
type DispatcherConfig struct {
	DefaultVersion string
	ExecFn         ExecFn
	OnUpdate       func(id string, result *Result) // called on state changes
}

// Dispatcher executes selected instances strictly sequentially: one
// instance's external process exits before the next begins. A failure
// aborts the remaining instances of the same selector; separate
// selectors run independently.
type Dispatcher struct {
	registry *Registry
	cfg      DispatcherConfig
}

// NewDispatcher creates a dispatcher over a registry.
func NewDispatcher(registry *Registry, cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{registry: registry, cfg: cfg}
}

// Plan resolves every selector up front so unsupported names surface
// as configuration errors before any environment is prepared. Groups
// keep the per-selector failure boundary.
func (d *Dispatcher) Plan(selectors []string) ([][]Instance, error) {
	var groups [][]Instance
	for _, sel := range selectors {
		instances, err := d.registry.Select(sel, d.cfg.DefaultVersion)
		if err != nil {
			return nil, err
		}
		groups = append(groups, instances)
	}
	return groups, nil
}

// Run executes all selected instances and returns the final report.
// A returned error means a configuration problem; execution failures
// are reported per instance inside the report.
func (d *Dispatcher) Run(ctx context.Context, selectors []string) (*RunReport, error) {
	groups, err := d.Plan(selectors)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results := make(map[string]*Result)

	for _, group := range groups {
		aborted := false
		for _, in := range group {
			id := in.ID()
			if prev, ok := results[id]; ok && prev.State != StateAborted {
				// same instance selected twice: keep the first outcome
				continue
			}
			if aborted || ctx.Err() != nil {
				results[id] = &Result{Instance: id, State: StateAborted, Error: "earlier instance failed"}
				d.notify(results[id])
				continue
			}

			running := &Result{Instance: id, State: StateRunning, StartedAt: time.Now()}
			d.notify(running)
			slog.Debug("dispatching", "instance", id)

			res := d.cfg.ExecFn(ctx, in)
			if res == nil {
				res = &Result{State: StateFailed, Error: "executor returned no result"}
			}
			res.Instance = id
			results[id] = res
			d.notify(res)

			if res.State == StateFailed {
				aborted = true
			}
		}
	}

	return buildReport(selectors, results, time.Since(start)), nil
}

func (d *Dispatcher) notify(res *Result) {
	if d.cfg.OnUpdate != nil {
		cpy := *res
		d.cfg.OnUpdate(res.Instance, &cpy)
	}
}

func buildReport(selectors []string, results map[string]*Result, duration time.Duration) *RunReport {
	report := &RunReport{
		Timestamp:     time.Now(),
		Selectors:     selectors,
		Results:       results,
		Total:         len(results),
		TotalDuration: duration,
	}

	// deterministic run ID from timestamp + selectors
	h := sha256.New()
	fmt.Fprintf(h, "%d", report.Timestamp.UnixNano())
	for _, s := range selectors {
		fmt.Fprintf(h, "|%s", s)
	}
	report.RunID = hex.EncodeToString(h.Sum(nil)[:6])

	for _, r := range results {
		switch r.State {
		case StatePassed:
			report.Passed++
		case StateFailed:
			report.Failed++
		case StateAborted:
			report.Aborted++
		}
	}
	return report
}
