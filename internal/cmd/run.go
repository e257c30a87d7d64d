package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mosaicterm/mosaic/internal/activity"
	"github.com/mosaicterm/mosaic/internal/backend"
	"github.com/mosaicterm/mosaic/internal/config"
	"github.com/mosaicterm/mosaic/internal/dispatch"
	"github.com/mosaicterm/mosaic/internal/logging"
	"github.com/mosaicterm/mosaic/internal/session"
	"github.com/mosaicterm/mosaic/internal/tui"
	"github.com/mosaicterm/mosaic/internal/watch"
	"github.com/mosaicterm/mosaic/internal/workspace"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Mosaic workspace",
	Long: `Start the workspace UI in the current directory. The first tab opens
with a single pane running your login shell. Commands given with --exec
run in that pane one after another, each waiting for the previous one
to settle.`,
	RunE: runRun,
}

var execSteps []string

func init() {
	runCmd.Flags().StringArrayVarP(&execSteps, "exec", "e", nil,
		"command to run in the first pane; repeatable, runs in order")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.Nop()
	if cfg.Logging.Enabled {
		logger, err = logging.New(cfg.Logging.Dir, cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
	}
	defer logger.Close()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	tracker := activity.New(activity.Config{
		IdleThreshold: cfg.Activity.IdleThreshold(),
		PollInterval:  cfg.Activity.PollInterval(),
	})

	local := backend.NewLocal(backend.LocalConfig{
		Shell:  cfg.Backend.Shell,
		Logger: logger,
	})

	registry := session.NewRegistry(session.Config{
		Backend:    local,
		Tracker:    tracker,
		Logger:     logger,
		Rows:       cfg.Backend.Rows,
		Cols:       cfg.Backend.Cols,
		CwdTimeout: cfg.Backend.CwdTimeout(),
	})
	defer registry.ReleaseAll()

	ws := workspace.New(workspace.Config{
		Registry:   registry,
		Tracker:    tracker,
		Logger:     logger,
		SplitCap:   cfg.Layout.SplitCap,
		StartupDir: cwd,
	})

	runner := dispatch.New(dispatch.Config{
		Sessions:    registry,
		Tracker:     tracker,
		Logger:      logger,
		WaitCeiling: cfg.Dispatch.WaitCeiling(),
	})

	app := tui.New(tui.Config{
		Workspace:  ws,
		Registry:   registry,
		Logger:     logger,
		Scrollback: cfg.TUI.ScrollbackLines,
		Dispatcher: runner,
		Startup:    startupSteps(execSteps),
	})

	// Surface config edits in the status line. Settings are read once at
	// startup, so all the watcher can do is tell the user to restart.
	watcher := watch.NewManager(logger)
	defer watcher.Close()
	if _, err := watcher.Watch(config.ConfigDir(), []string{"yaml", "yml"}, func(ev watch.Event) {
		if ev.Kind == watch.Changed || ev.Kind == watch.Created {
			app.Notify("configuration changed, restart to apply")
		}
	}); err != nil {
		logger.Debug("config watch unavailable", "error", err)
	}

	if err := app.Run(); err != nil {
		return fmt.Errorf("UI error: %w", err)
	}

	return nil
}

// startupSteps turns --exec values into dispatchable input, one newline
// terminated line per command.
func startupSteps(cmds []string) []string {
	steps := make([]string, 0, len(cmds))
	for _, c := range cmds {
		steps = append(steps, c+"\n")
	}
	return steps
}
