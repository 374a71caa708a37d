package commands

import (
	"fmt"
	"path/filepath"

	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	"github.com/leapstack-labs/leapmetrics/internal/engine"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// batchOutput converts a batch report into its JSON form.
func batchOutput(report *engine.BatchReport) output.BatchOutput {
	results := make([]output.MetricResult, 0, len(report.Items))
	for _, item := range report.Items {
		res := output.MetricResult{
			File:       item.File,
			Metric:     item.Metric,
			Status:     string(item.Status),
			Rows:       item.Rows,
			DurationMS: item.Duration.Milliseconds(),
		}
		if item.Err != nil {
			res.Error = item.Err.Error()
		}
		if item.Result != nil {
			res.Errors = findingInfos(item.Result.Errors)
			res.Warnings = findingInfos(item.Result.Warnings)
		}
		results = append(results, res)
	}

	return output.BatchOutput{
		Command: report.Command,
		RunID:   report.RunID,
		Results: results,
		Summary: output.BatchSummary{
			Total:      report.Total,
			Succeeded:  report.Succeeded,
			Failed:     report.Failed,
			DurationMS: report.Duration.Milliseconds(),
		},
	}
}

func findingInfos(findings []core.Finding) []output.FindingInfo {
	if len(findings) == 0 {
		return nil
	}
	infos := make([]output.FindingInfo, 0, len(findings))
	for _, f := range findings {
		infos = append(infos, output.FindingInfo{Field: f.Field, Message: f.Message, Live: f.Live})
	}
	return infos
}

// renderBatchItems writes one status line per item followed by its findings.
func renderBatchItems(r *output.Renderer, report *engine.BatchReport) {
	for _, item := range report.Items {
		r.StatusLine(item.Metric, string(item.Status), itemDetail(report.Command, item))

		if item.Result != nil {
			for _, f := range item.Result.Errors {
				r.Println("    ERROR: " + findingText(f))
			}
			for _, f := range item.Result.Warnings {
				r.Println("    WARNING: " + findingText(f))
			}
		}
		// Validation failures are already listed as findings
		if item.Err != nil && (item.Result == nil || item.Result.Passed()) {
			r.Println("    ERROR: " + item.Err.Error())
		}
	}
}

func itemDetail(command string, item engine.BatchItem) string {
	file := filepath.Base(item.File)
	if command != core.CommandRun || !item.OK() {
		return file
	}
	return fmt.Sprintf("%s, %s in %s", file,
		output.FormatCount(int(item.Rows), "row", "rows"), output.FormatDuration(item.Duration))
}

func findingText(f core.Finding) string {
	if f.Live {
		return "[live] " + f.Message
	}
	return f.Message
}

// renderBatchSummary writes the success, failed and total counts.
func renderBatchSummary(r *output.Renderer, report *engine.BatchReport, okLabel, unit string) {
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println()
		r.Println(output.FormatHeader(2, "Summary"))
		r.Println()
		r.Println(output.FormatKeyValue(okLabel, fmt.Sprintf("%d %s", report.Succeeded, unit)))
		r.Println(output.FormatKeyValue("Failed", fmt.Sprintf("%d %s", report.Failed, unit)))
		r.Println(output.FormatKeyValue("Total", fmt.Sprintf("%d %s", report.Total, unit)))
		return
	}

	r.Println()
	r.Printf("%s: %d %s\n", okLabel, report.Succeeded, unit)
	r.Printf("Failed: %d %s\n", report.Failed, unit)
	r.Printf("Total: %d %s\n", report.Total, unit)
}
