package commands

import (
	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	"github.com/leapstack-labs/leapmetrics/internal/engine"
	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Validate bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run [metrics-dir]",
		Short: "Materialize every metric definition",
		Long: `Execute each metric definition and store its result in a table named
after the metric, replacing the previous result.

Definitions run in file-name order. A definition that fails to parse or
execute is reported and the remaining definitions still run. The command
exits non-zero when any definition failed.`,
		Example: `  # Run all metrics in the configured directory
  leapmetrics run

  # Validate each definition before executing it
  leapmetrics run --validate

  # Run the metrics of another directory as JSON
  leapmetrics run ./other/metrics --output json`,
		Aliases: []string{"build"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Validate, "validate", false, "Skip definitions that fail validation")

	return cmd
}

func runRun(cmd *cobra.Command, args []string, opts *RunOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	r := cmdCtx.Renderer
	ctx := cmd.Context()

	dir := cmdCtx.Cfg.MetricsDir
	if len(args) > 0 {
		dir = args[0]
	}

	report, err := eng.RunAll(ctx, dir, engine.RunOptions{Validate: opts.Validate})
	if err != nil {
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(batchOutput(report)); err != nil {
			return err
		}
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Execution Results"))
		r.Println()
		renderBatchItems(r, report)
		renderBatchSummary(r, report, "Success", "metrics")
	default:
		r.Header(1, "Execution Results")
		renderBatchItems(r, report)
		renderBatchSummary(r, report, "Success", "metrics")
	}

	if !report.OK() {
		return errBatchFailed
	}

	if r.EffectiveMode() != output.ModeJSON {
		tables, err := eng.ListMetricTables(ctx)
		if err != nil {
			return err
		}
		r.Println()
		renderTableList(r, "Metric Tables", tables)
		r.Success("All metrics executed successfully")
	}
	return nil
}
