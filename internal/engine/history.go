package engine

// history.go - run-history recording. Store failures are logged and never fail a batch.

import (
	"fmt"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// beginRun creates a run record, or returns nil if history is disabled.
func (e *Engine) beginRun(command string) *core.Run {
	if e.store == nil {
		return nil
	}
	run, err := e.store.CreateRun(command)
	if err != nil {
		e.logger.Warn("failed to record run", "command", command, "error", err)
		return nil
	}
	e.logger.Debug("created run", "run_id", run.ID, "command", command)
	return run
}

// recordItem stores the outcome of one batch item.
func (e *Engine) recordItem(run *core.Run, item BatchItem) {
	if run == nil {
		return
	}
	mr := &core.MetricRun{
		RunID:       run.ID,
		Metric:      item.Metric,
		File:        item.File,
		Status:      item.Status,
		Rows:        item.Rows,
		ExecutionMS: item.Duration.Milliseconds(),
	}
	if item.Err != nil {
		mr.Error = item.Err.Error()
	}
	if err := e.store.RecordMetricRun(mr); err != nil {
		e.logger.Warn("failed to record metric run", "run_id", run.ID, "metric", item.Metric, "error", err)
	}
}

// finishRun completes a run record with its counts.
func (e *Engine) finishRun(run *core.Run, succeeded, failed int, errMsg string) {
	if run == nil {
		return
	}
	status := core.RunStatusCompleted
	if failed > 0 || errMsg != "" {
		status = core.RunStatusFailed
		if errMsg == "" {
			errMsg = fmt.Sprintf("%d item(s) failed", failed)
		}
	}
	if err := e.store.CompleteRun(run.ID, status, succeeded, failed, errMsg); err != nil {
		e.logger.Warn("failed to complete run", "run_id", run.ID, "error", err)
	}
}
