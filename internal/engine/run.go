package engine

// run.go - batch orchestration for running and validating metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/leapmetrics/internal/loader"
	"github.com/leapstack-labs/leapmetrics/internal/validate"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// BatchItem is the outcome of one definition file within a batch.
type BatchItem struct {
	File     string
	Metric   string
	Status   core.MetricRunStatus
	Rows     int64
	Duration time.Duration
	// Result holds the validation findings when the item was validated.
	Result *core.ValidationResult
	Err    error
}

// OK reports whether the item succeeded.
func (i BatchItem) OK() bool {
	return i.Status == core.MetricRunStatusSuccess
}

// BatchReport aggregates the items of a batch. Per-item failures never abort a batch.
type BatchReport struct {
	Command   string
	RunID     string
	Items     []BatchItem
	Succeeded int
	Failed    int
	Total     int
	Duration  time.Duration
}

// OK reports whether every item succeeded.
func (r *BatchReport) OK() bool {
	return r.Failed == 0
}

func (r *BatchReport) add(item BatchItem) {
	r.Items = append(r.Items, item)
	r.Total++
	if item.OK() {
		r.Succeeded++
	} else {
		r.Failed++
	}
}

// RunOptions controls RunAll.
type RunOptions struct {
	// Validate runs the static checks before executing each definition.
	// A definition that fails them is counted as failed and not executed.
	Validate bool
}

// loadDefinitions discovers and parses the definition files of dir, or of the
// configured metrics directory when dir is empty.
func (e *Engine) loadDefinitions(dir string) ([]loader.Entry, error) {
	if dir == "" {
		dir = e.metricsDir
	}
	entries, err := loader.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDefinitions, dir)
	}
	e.logger.Debug("discovered definitions", "dir", dir, "count", len(entries))
	return entries, nil
}

// nameRegistry detects metric names defined by more than one file.
type nameRegistry map[string]string

// claim records def's name and returns the file that already defined it, if any.
func (n nameRegistry) claim(def *core.Definition) string {
	key := strings.ToLower(strings.TrimSpace(def.Name))
	if key == "" {
		return ""
	}
	if first, ok := n[key]; ok {
		return first
	}
	n[key] = def.File
	return ""
}

func duplicateMessage(name, first string) string {
	return fmt.Sprintf("Duplicate metric name '%s', already defined in %s", name, first)
}

// newValidator builds a validator for the engine's protected tables.
func (e *Engine) newValidator(ctx context.Context, live bool) (*validate.Validator, error) {
	opts := []validate.Option{
		validate.WithProtected(e.ProtectedTables()...),
		validate.WithLogger(e.logger),
	}
	if live {
		if err := e.ensureDBConnected(ctx); err != nil {
			return nil, err
		}
		opts = append(opts, validate.WithLiveCheck(e.db))
	}
	return validate.New(opts...), nil
}

// RunAll materializes every definition in discovery order.
// Parse and execution failures are counted and the batch continues.
func (e *Engine) RunAll(ctx context.Context, dir string, opts RunOptions) (*BatchReport, error) {
	start := time.Now()

	entries, err := e.loadDefinitions(dir)
	if err != nil {
		return nil, err
	}

	var validator *validate.Validator
	if opts.Validate {
		if validator, err = e.newValidator(ctx, false); err != nil {
			return nil, err
		}
	}

	e.logger.Info("starting run", "metrics", len(entries), "validate", opts.Validate)

	run := e.beginRun(core.CommandRun)
	report := &BatchReport{Command: core.CommandRun}
	if run != nil {
		report.RunID = run.ID
	}

	names := nameRegistry{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			e.finishRun(run, report.Succeeded, report.Failed, err.Error())
			return report, err
		}

		item := e.runEntry(ctx, entry, names, validator)
		report.add(item)
		e.recordItem(run, item)

		if item.OK() {
			e.logger.Info("metric executed", "metric", item.Metric, "rows", item.Rows, "duration", item.Duration)
		} else {
			e.logger.Error("metric failed", "metric", item.Metric, "file", item.File, "error", item.Err)
		}
	}

	report.Duration = time.Since(start)
	e.finishRun(run, report.Succeeded, report.Failed, "")

	e.logger.Info("run completed", "succeeded", report.Succeeded, "failed", report.Failed, "total", report.Total)
	return report, nil
}

func (e *Engine) runEntry(ctx context.Context, entry loader.Entry, names nameRegistry, validator *validate.Validator) BatchItem {
	start := time.Now()
	item := BatchItem{File: entry.File, Metric: entry.Label(), Status: core.MetricRunStatusFailed}

	if entry.Err != nil {
		item.Err = entry.Err
		return item
	}
	def := entry.Definition

	if first := names.claim(def); first != "" {
		item.Err = &ExecutionError{Metric: def.Label(), File: def.File, Err: errors.New(duplicateMessage(def.Name, first))}
		return item
	}

	if validator != nil {
		result := validator.Validate(ctx, def)
		item.Result = &result
		if err := validate.AsError(def, result); err != nil {
			item.Err = err
			return item
		}
	}

	rows, err := e.ExecuteMetric(ctx, def)
	item.Duration = time.Since(start)
	if err != nil {
		item.Err = err
		return item
	}

	item.Rows = rows
	item.Status = core.MetricRunStatusSuccess
	return item
}
