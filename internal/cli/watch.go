package cli

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ppiankov/labforge/internal/config"
)

// debounceDefault coalesces bursts of file events into one re-run.
const debounceDefault = 200 * time.Millisecond

func newWatchCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "watch [selector...] [-- extra-args]",
		Short: "Re-run sessions when watched paths change",
		Long:  "Watch runs the given selectors once, then re-runs them whenever a file under the configured watch paths changes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadSettings(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			selectors, posargs := splitDash(cmd, args)
			if len(selectors) == 0 {
				selectors = []string{cfg.DefaultSession}
			}

			// the live TUI would fight the watch loop for the terminal
			opts.tuiMode = "off"
			return watchSessions(cfg, selectors, posargs, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.noInstall, "no-install", false, "reuse existing virtualenvs and skip installs")

	return cmd
}

func watchSessions(cfg *config.Settings, selectors, posargs []string, opts runOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	watched := 0
	for _, root := range cfg.WatchPaths {
		n, err := addRecursive(watcher, root)
		if err != nil {
			slog.Warn("cannot watch path", "path", root, "error", err)
			continue
		}
		watched += n
	}
	if watched == 0 {
		return fmt.Errorf("no watchable paths among %v", cfg.WatchPaths)
	}
	slog.Info("watching for changes", "dirs", watched, "selectors", selectors)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	runOnce := func() {
		if err := runSessions(cfg, selectors, posargs, opts); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}

	runOnce()

	var debounce *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nwatch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ignoredPath(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			// watch new directories as they appear
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_, _ = addRecursive(watcher, event.Name)
				}
			}
			slog.Debug("change detected", "path", event.Name, "op", event.Op)
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDefault, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "error", err)

		case <-fire:
			fmt.Fprintln(os.Stdout, "\n--- change detected, re-running ---")
			runOnce()
		}
	}
}

// addRecursive watches dir and every subdirectory beneath it.
func addRecursive(watcher *fsnotify.Watcher, root string) (int, error) {
	n := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if ignoredPath(path) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

// ignoredPath filters run artifacts and hidden directories so re-runs
// don't retrigger themselves.
func ignoredPath(path string) bool {
	slash := filepath.ToSlash(path)
	if strings.Contains(slash, "docs/build") {
		return true
	}
	for _, part := range strings.Split(slash, "/") {
		if part == ".labforge" || part == "__pycache__" {
			return true
		}
		if strings.HasPrefix(part, ".") && part != "." && part != ".." && part != ".github" {
			return true
		}
	}
	return false
}
