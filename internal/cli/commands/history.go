package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/spf13/cobra"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recent runs",
		Long: `Show the most recent setup, validate, run and clean runs recorded in the
state database. Pass a run ID to list the outcome of each metric in that run.`,
		Example: `  # Show the last 10 runs
  leapmetrics history

  # Show the metrics of one run
  leapmetrics history 3f2a9c1e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 10, "Number of runs to show")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string, opts *HistoryOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	store := cmdCtx.Engine.GetStateStore()
	if store == nil {
		return errors.New("run history is disabled (state_path is empty)")
	}

	if len(args) > 0 {
		return showRun(cmdCtx.Renderer, store, args[0])
	}

	runs, err := store.ListRuns(opts.Limit)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		out := output.HistoryOutput{Runs: make([]output.RunInfo, 0, len(runs))}
		for _, run := range runs {
			out.Runs = append(out.Runs, runInfo(run))
		}
		return r.JSON(out)
	}

	r.Header(1, "Run History")
	if len(runs) == 0 {
		r.Muted("No runs recorded")
		return nil
	}

	rows := make([][]any, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []any{
			run.ID,
			run.Command,
			output.StatusLabel(string(run.Status)),
			run.StartedAt.Local().Format(time.DateTime),
			run.Succeeded,
			run.Failed,
		})
	}
	r.Table([]string{"ID", "Command", "Status", "Started", "Succeeded", "Failed"}, rows)
	return nil
}

func showRun(r *output.Renderer, store core.Store, id string) error {
	run, err := store.GetRun(id)
	if err != nil {
		return err
	}
	items, err := store.GetMetricRunsForRun(id)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		out := struct {
			output.RunInfo
			Metrics []output.MetricResult `json:"metrics"`
		}{RunInfo: runInfo(run), Metrics: make([]output.MetricResult, 0, len(items))}
		for _, mr := range items {
			out.Metrics = append(out.Metrics, output.MetricResult{
				File:       mr.File,
				Metric:     mr.Metric,
				Status:     string(mr.Status),
				Rows:       mr.Rows,
				DurationMS: mr.ExecutionMS,
				Error:      mr.Error,
			})
		}
		return r.JSON(out)
	}

	r.Header(1, fmt.Sprintf("Run %s", run.ID))
	r.Println(output.FormatKeyValue("Command", run.Command))
	r.Println(output.FormatKeyValue("Status", output.StatusLabel(string(run.Status))))
	r.Println(output.FormatKeyValue("Started", run.StartedAt.Local().Format(time.DateTime)))
	if run.Error != "" {
		r.Println(output.FormatKeyValue("Error", run.Error))
	}
	r.Println()

	for _, mr := range items {
		detail := fmt.Sprintf("%s, %d ms", output.FormatCount(int(mr.Rows), "row", "rows"), mr.ExecutionMS)
		if mr.Error != "" {
			detail = mr.Error
		}
		r.StatusLine(mr.Metric, string(mr.Status), detail)
	}
	return nil
}

func runInfo(run *core.Run) output.RunInfo {
	info := output.RunInfo{
		ID:        run.ID,
		Command:   run.Command,
		Status:    string(run.Status),
		StartedAt: run.StartedAt.Format(time.RFC3339),
		Succeeded: run.Succeeded,
		Failed:    run.Failed,
		Error:     run.Error,
	}
	if run.CompletedAt != nil {
		info.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return info
}
