package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	"github.com/leapstack-labs/leapmetrics/internal/engine"
	"github.com/spf13/cobra"
)

// NewSetupCommand creates the setup command.
func NewSetupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Load the CSV sources into base tables",
		Long: `Load the configured CSV files into their base tables, replacing any
previous contents. DuckDB infers each table's schema from the file.

By default customers, orders and order_items are loaded from data/.
Base tables are protected: metrics can read them but never overwrite them.

Output adapts to environment:
  - Terminal: Styled, colored output
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # Load the default sources
  leapmetrics setup

  # Load into a different database file
  leapmetrics setup --database ./tmp/metrics.duckdb

  # Report loaded row counts as JSON
  leapmetrics setup --output json`,
		Aliases: []string{"seed"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetup(cmd)
		},
	}

	return cmd
}

func runSetup(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	r := cmdCtx.Renderer
	effectiveMode := r.EffectiveMode()

	// Show spinner for TTY mode
	var spinner *output.Spinner
	if effectiveMode == output.ModeText {
		spinner = r.NewSpinner("Loading sources...")
		spinner.Start()
	}

	results, err := eng.LoadSources(cmd.Context())
	if err != nil {
		if spinner != nil {
			spinner.Fail("Failed to load sources")
		}
		return err
	}

	if spinner != nil {
		spinner.Success("Sources loaded successfully")
	}

	switch effectiveMode {
	case output.ModeJSON:
		return setupJSON(r, results)
	case output.ModeMarkdown:
		setupMarkdown(r, results)
	default:
		setupText(r, results)
	}
	return nil
}

func setupText(r *output.Renderer, results []engine.SourceResult) {
	r.Header(1, "Data counts")
	for _, res := range results {
		r.StatusLine(res.Table, "loaded", output.FormatCount(int(res.Rows), "row", "rows"))
	}
	r.Println()
	r.Success("Database setup completed")
}

func setupMarkdown(r *output.Renderer, results []engine.SourceResult) {
	r.Println(output.FormatHeader(1, "Sources"))
	r.Println()
	for _, res := range results {
		r.Println(output.FormatKeyValue(res.Table, fmt.Sprintf("%s from `%s`",
			output.FormatCount(int(res.Rows), "row", "rows"), res.Path)))
	}
}

func setupJSON(r *output.Renderer, results []engine.SourceResult) error {
	out := output.SetupOutput{Sources: make([]output.SourceInfo, 0, len(results))}
	for _, res := range results {
		out.Sources = append(out.Sources, output.SourceInfo{Table: res.Table, Path: res.Path, Rows: res.Rows})
		out.Summary.TotalRows += res.Rows
	}
	out.Summary.TotalSources = len(results)
	return r.JSON(out)
}
