package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/labforge/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past runs from the history store",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(filepath.Join(".labforge", "history.db"))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if runID != "" {
				return showRun(store, runID)
			}
			return showRecent(store, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "show per-instance results for a run ID")

	return cmd
}

func showRecent(store *history.Store, limit int) error {
	runs, err := store.Recent(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}

	for _, r := range runs {
		fmt.Printf("%s  %s  %-30s  total=%d passed=%d failed=%d aborted=%d  %s\n",
			r.RunID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Selectors,
			r.Total, r.Passed, r.Failed, r.Aborted, r.Duration)
	}
	return nil
}

func showRun(store *history.Store, runID string) error {
	instances, err := store.Instances(runID)
	if err != nil {
		return err
	}
	if len(instances) == 0 {
		return fmt.Errorf("no run with ID %q", runID)
	}

	for _, in := range instances {
		line := fmt.Sprintf("  %-40s  %-8s  %s", in.Instance, in.State, in.Duration)
		if in.Error != "" {
			line += fmt.Sprintf("  (%s)", in.Error)
		}
		fmt.Println(line)
	}
	return nil
}
