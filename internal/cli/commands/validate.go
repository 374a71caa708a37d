package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	"github.com/leapstack-labs/leapmetrics/internal/engine"
	"github.com/leapstack-labs/leapmetrics/internal/loader"
	"github.com/spf13/cobra"
)

// watchDebounce groups the burst of events an editor produces on save.
const watchDebounce = 200 * time.Millisecond

// ValidateOptions holds options for the validate command.
type ValidateOptions struct {
	Live  bool
	Watch bool
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}

	cmd := &cobra.Command{
		Use:   "validate [metrics-dir]",
		Short: "Check metric definitions without executing them",
		Long: `Validate every metric definition file: required fields, metric name,
owner and schedule format, and the shape of the SQL query.

Warnings are reported but never fail a definition. With --live each query is
also planned by DuckDB with EXPLAIN, which needs the base tables loaded by
setup. The command exits non-zero when any definition failed.`,
		Example: `  # Validate the configured metrics directory
  leapmetrics validate

  # Also check queries against the database
  leapmetrics validate --live

  # Re-validate whenever a definition file changes
  leapmetrics validate --watch`,
		Aliases: []string{"check"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Live, "live", false, "Also plan each query with EXPLAIN against the database")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-validate when definition files change")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string, opts *ValidateOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	dir := cmdCtx.Cfg.MetricsDir
	if len(args) > 0 {
		dir = args[0]
	}
	live := opts.Live || cmdCtx.Cfg.LiveCheck

	report, err := validateOnce(ctx, cmdCtx, dir, live)
	if !opts.Watch {
		if err != nil {
			return err
		}
		if !report.OK() {
			return errBatchFailed
		}
		return nil
	}

	if err != nil && !errors.Is(err, engine.ErrNoDefinitions) {
		return err
	}

	cmdCtx.Renderer.Muted(fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", dir))
	return watchDefinitions(ctx, dir, cmdCtx.Logger, func() {
		if _, err := validateOnce(ctx, cmdCtx, dir, live); err != nil {
			cmdCtx.Renderer.Error(err.Error())
		}
	})
}

// validateOnce validates dir and renders the report.
func validateOnce(ctx context.Context, cmdCtx *CommandContext, dir string, live bool) (*engine.BatchReport, error) {
	r := cmdCtx.Renderer

	report, err := cmdCtx.Engine.ValidateAll(ctx, dir, live)
	if err != nil {
		return nil, err
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(batchOutput(report)); err != nil {
			return nil, err
		}
		return report, nil
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Validation"))
		r.Println()
	default:
		r.Header(1, "Validation")
	}

	if live {
		r.Muted("Live check enabled: queries are planned against the database")
	}
	renderBatchItems(r, report)
	renderBatchSummary(r, report, "Passed", "files")

	r.Println()
	if report.OK() {
		r.Success("All metrics passed validation")
	} else {
		r.Warning("Validation failed. Fix the errors before running")
	}
	return report, nil
}

// watchDefinitions calls onChange after definition files in dir change,
// one call at a time, until ctx is cancelled.
func watchDefinitions(ctx context.Context, dir string, logger *slog.Logger, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !loader.IsDefinitionFile(event.Name) || event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			logger.Debug("definition file changed", "file", event.Name, "op", event.Op.String())
			timer.Reset(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		case <-timer.C:
			onChange()
		}
	}
}
