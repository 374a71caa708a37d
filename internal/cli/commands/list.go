package commands

import (
	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	"github.com/leapstack-labs/leapmetrics/internal/engine"
	"github.com/spf13/cobra"
)

// ListOptions holds options for the list command.
type ListOptions struct {
	All bool
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List metric tables and their row counts",
		Long: `List the metric tables in the database with their row counts.
Base tables loaded by setup are hidden unless --all is given.

Output adapts to environment:
  - Terminal: Styled, colored output
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # List metric tables
  leapmetrics list

  # Include base tables
  leapmetrics list --all

  # List tables as JSON
  leapmetrics list --output json`,
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "Include base tables")

	return cmd
}

func runList(cmd *cobra.Command, opts *ListOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	r := cmdCtx.Renderer

	var tables []engine.TableInfo
	if opts.All {
		tables, err = eng.ListTables(cmd.Context())
	} else {
		tables, err = eng.ListMetricTables(cmd.Context())
	}
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return listJSON(r, tables)
	}

	title := "Metric Tables"
	if opts.All {
		title = "Tables"
	}
	renderTableList(r, title, tables)
	return nil
}

// renderTableList writes tables with their row counts, or a note when there are none.
func renderTableList(r *output.Renderer, title string, tables []engine.TableInfo) {
	r.Header(1, title)

	if len(tables) == 0 {
		r.Muted("No tables found")
		return
	}

	rows := make([][]any, 0, len(tables))
	for _, t := range tables {
		kind := "metric"
		if t.Base {
			kind = "base"
		}
		rows = append(rows, []any{t.Name, t.Rows, kind})
	}
	r.Table([]string{"Table", "Rows", "Kind"}, rows)
}

func listJSON(r *output.Renderer, tables []engine.TableInfo) error {
	out := output.ListOutput{Tables: make([]output.TableInfo, 0, len(tables))}
	for _, t := range tables {
		out.Tables = append(out.Tables, output.TableInfo{Name: t.Name, Rows: t.Rows, Base: t.Base})
		if t.Base {
			out.Summary.Base++
		} else {
			out.Summary.Metrics++
		}
	}
	out.Summary.Total = len(tables)
	return r.JSON(out)
}
