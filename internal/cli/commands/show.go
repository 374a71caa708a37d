package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	"github.com/leapstack-labs/leapmetrics/internal/engine"
	"github.com/leapstack-labs/leapmetrics/internal/loader"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/spf13/cobra"
)

// NewShowCommand creates the show command.
func NewShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <metric>",
		Short: "Show a metric definition and its table",
		Long: `Show the definition of a metric, the row count and columns of its table
if it has been materialized, and its most recent recorded run.`,
		Example: `  # Show a metric
  leapmetrics show order_count

  # Show a metric as JSON
  leapmetrics show order_count --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0])
		},
	}

	return cmd
}

func runShow(cmd *cobra.Command, name string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	def, err := findDefinition(cmdCtx.Cfg.MetricsDir, name)
	if err != nil {
		return err
	}

	detail, err := metricDetail(cmd.Context(), cmdCtx.Engine, def)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(detail)
	case output.ModeMarkdown:
		showMarkdown(r, detail)
	default:
		showText(r, detail)
	}
	return nil
}

// findDefinition returns the definition named name, ignoring case.
func findDefinition(dir, name string) (*core.Definition, error) {
	entries, err := loader.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.Definition != nil && strings.EqualFold(entry.Definition.Name, name) {
			return entry.Definition, nil
		}
	}
	return nil, fmt.Errorf("metric %q not found in %s", name, dir)
}

func metricDetail(ctx context.Context, eng *engine.Engine, def *core.Definition) (output.MetricDetail, error) {
	detail := output.MetricDetail{
		Name:        def.Name,
		File:        def.File,
		Description: def.Description,
		Owner:       def.Owner,
		Schedule:    def.Schedule,
		SQL:         strings.TrimSpace(def.SQL),
	}

	tables, err := eng.ListMetricTables(ctx)
	if err != nil {
		return detail, err
	}
	for _, t := range tables {
		if strings.EqualFold(t.Name, def.Name) {
			detail.Table = &output.TableInfo{Name: t.Name, Rows: t.Rows}
			break
		}
	}
	if detail.Table != nil {
		meta, err := eng.TableMetadata(ctx, detail.Table.Name)
		if err != nil {
			return detail, err
		}
		for _, c := range meta.Columns {
			detail.Table.Columns = append(detail.Table.Columns,
				output.ColumnInfo{Name: c.Name, Type: c.Type, Nullable: c.Nullable})
		}
	}

	if store := eng.GetStateStore(); store != nil {
		last, err := store.GetLatestMetricRun(def.Name)
		if err != nil {
			return detail, err
		}
		if last != nil {
			detail.LastRun = &output.LastRunInfo{
				RunID:       last.RunID,
				Status:      string(last.Status),
				Rows:        last.Rows,
				ExecutionMS: last.ExecutionMS,
				Error:       last.Error,
				At:          last.CreatedAt.Format(time.RFC3339),
			}
		}
	}

	return detail, nil
}

func showText(r *output.Renderer, d output.MetricDetail) {
	s := r.Styles()
	r.Header(1, d.Name)
	r.Println(s.Key.Render("Description") + d.Description)
	r.Println(s.Key.Render("Owner") + d.Owner)
	r.Println(s.Key.Render("Schedule") + d.Schedule)
	r.Println(s.Key.Render("File") + d.File)

	if d.Table != nil {
		r.Println(s.Key.Render("Table") + output.FormatCount(int(d.Table.Rows), "row", "rows"))
	} else {
		r.Println(s.Key.Render("Table") + s.Muted.Render("not materialized"))
	}
	if d.LastRun != nil {
		r.Println(s.Key.Render("Last run") + fmt.Sprintf("%s at %s",
			output.StatusLabel(d.LastRun.Status), d.LastRun.At))
		if d.LastRun.Error != "" {
			r.Println(s.Key.Render("") + s.Error.Render(d.LastRun.Error))
		}
	}

	if d.Table != nil && len(d.Table.Columns) > 0 {
		r.Println()
		r.Table([]string{"Column", "Type", "Nullable"}, columnRows(d.Table.Columns))
	}

	r.Println()
	r.Println(s.Metric.Render(d.SQL))
}

func columnRows(columns []output.ColumnInfo) [][]any {
	rows := make([][]any, 0, len(columns))
	for _, c := range columns {
		nullable := "no"
		if c.Nullable {
			nullable = "yes"
		}
		rows = append(rows, []any{c.Name, c.Type, nullable})
	}
	return rows
}

func showMarkdown(r *output.Renderer, d output.MetricDetail) {
	r.Println(output.FormatHeader(1, d.Name))
	r.Println()
	r.Println(output.FormatKeyValue("Description", d.Description))
	r.Println(output.FormatKeyValue("Owner", d.Owner))
	r.Println(output.FormatKeyValue("Schedule", d.Schedule))
	r.Println(output.FormatKeyValue("File", d.File))
	if d.Table != nil {
		r.Println(output.FormatKeyValue("Rows", fmt.Sprintf("%d", d.Table.Rows)))
	}
	if d.LastRun != nil {
		r.Println(output.FormatKeyValue("Last Run", output.StatusLabel(d.LastRun.Status)))
	}
	if d.Table != nil && len(d.Table.Columns) > 0 {
		r.Println()
		r.Println(output.FormatHeader(2, "Columns"))
		r.Println()
		r.Table([]string{"Column", "Type", "Nullable"}, columnRows(d.Table.Columns))
	}
	r.Println()
	r.Println(output.FormatHeader(2, "SQL"))
	r.Println()
	r.Println(output.FormatCodeBlock("sql", d.SQL))
}
