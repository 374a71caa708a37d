package engine

// validate.go - batch validation of definition files

import (
	"context"
	"time"

	"github.com/leapstack-labs/leapmetrics/internal/validate"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// ValidateAll validates every definition in dir without executing anything.
// With live set, each query is also planned by the database with EXPLAIN.
// Parse failures and duplicate names count as failed items.
func (e *Engine) ValidateAll(ctx context.Context, dir string, live bool) (*BatchReport, error) {
	start := time.Now()

	entries, err := e.loadDefinitions(dir)
	if err != nil {
		return nil, err
	}

	validator, err := e.newValidator(ctx, live)
	if err != nil {
		return nil, err
	}

	e.logger.Info("validating metrics", "count", len(entries), "live", live)

	run := e.beginRun(core.CommandValidate)
	report := &BatchReport{Command: core.CommandValidate}
	if run != nil {
		report.RunID = run.ID
	}

	names := nameRegistry{}
	for _, entry := range entries {
		itemStart := time.Now()
		item := BatchItem{File: entry.File, Metric: entry.Label(), Status: core.MetricRunStatusFailed}

		if entry.Err != nil {
			item.Err = entry.Err
		} else {
			def := entry.Definition
			result := validator.Validate(ctx, def)
			if first := names.claim(def); first != "" {
				result.AddError(core.FieldName, duplicateMessage(def.Name, first))
			}
			item.Result = &result
			if err := validate.AsError(def, result); err != nil {
				item.Err = err
			} else {
				item.Status = core.MetricRunStatusSuccess
			}
		}

		item.Duration = time.Since(itemStart)
		report.add(item)
		e.recordItem(run, item)
	}

	report.Duration = time.Since(start)
	e.finishRun(run, report.Succeeded, report.Failed, "")

	e.logger.Info("validation completed", "passed", report.Succeeded, "failed", report.Failed)
	return report, nil
}
