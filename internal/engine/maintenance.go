package engine

// maintenance.go - listing and dropping tables

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapmetrics/pkg/adapter"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// TableInfo describes a table in the target database.
type TableInfo struct {
	Name string
	Rows int64
	// Base marks tables loaded from CSV sources.
	Base bool
}

// CleanupReport is the outcome of dropping tables.
type CleanupReport struct {
	Dropped   []string
	Remaining []string
	Errors    []error
	// Cancelled is set when a reset was not confirmed. Nothing was dropped.
	Cancelled bool
}

// OK reports whether every drop succeeded.
func (r *CleanupReport) OK() bool {
	return len(r.Errors) == 0
}

// Confirmer asks the operator to approve a destructive action.
// Only a true result with a nil error counts as approval.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// ListTables returns every table with its row count, sorted by name.
func (e *Engine) ListTables(ctx context.Context) ([]TableInfo, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}

	names, err := e.db.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	tables := make([]TableInfo, 0, len(names))
	for _, name := range names {
		rows, err := e.db.CountRows(ctx, name)
		if err != nil {
			return nil, &MaintenanceError{Table: name, Op: "count", Err: err}
		}
		tables = append(tables, TableInfo{Name: name, Rows: rows, Base: e.IsProtected(name)})
	}
	return tables, nil
}

// ListMetricTables returns the derived tables, excluding base tables.
func (e *Engine) ListMetricTables(ctx context.Context) ([]TableInfo, error) {
	tables, err := e.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	var metrics []TableInfo
	for _, t := range tables {
		if !t.Base {
			metrics = append(metrics, t)
		}
	}
	return metrics, nil
}

// TableMetadata describes the columns and row count of a table.
func (e *Engine) TableMetadata(ctx context.Context, table string) (*core.TableMetadata, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}
	meta, err := e.db.GetTableMetadata(ctx, table)
	if err != nil {
		return nil, &MaintenanceError{Table: table, Op: "describe", Err: err}
	}
	return meta, nil
}

// CleanupMetrics drops every derived table. Base tables are never touched.
// A failed drop is recorded and the remaining tables are still dropped.
func (e *Engine) CleanupMetrics(ctx context.Context) (*CleanupReport, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}

	names, err := e.db.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	var targets []string
	for _, name := range names {
		if !e.IsProtected(name) {
			targets = append(targets, name)
		}
	}

	e.logger.Info("cleaning up metric tables", "count", len(targets))
	return e.dropTables(ctx, core.CommandClean, targets)
}

// Reset drops every table, base tables included, after confirm approves.
// Without approval nothing is dropped and the report is marked Cancelled.
func (e *Engine) Reset(ctx context.Context, confirm Confirmer) (*CleanupReport, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}

	names, err := e.db.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf("This will drop ALL %d table(s) including base tables (%s). Continue?",
		len(names), strings.Join(e.ProtectedTables(), ", "))

	ok, err := confirm.Confirm(ctx, prompt)
	if err != nil || !ok {
		e.logger.Info("reset cancelled", "error", err)
		return &CleanupReport{Cancelled: true, Remaining: names}, nil
	}

	e.logger.Warn("resetting database", "tables", len(names))
	return e.dropTables(ctx, core.CommandReset, names)
}

func (e *Engine) dropTables(ctx context.Context, command string, targets []string) (*CleanupReport, error) {
	run := e.beginRun(command)
	report := &CleanupReport{}

	for _, name := range targets {
		if err := e.db.Exec(ctx, "DROP TABLE IF EXISTS "+adapter.QuoteIdent(name)); err != nil {
			e.logger.Error("failed to drop table", "table", name, "error", err)
			report.Errors = append(report.Errors, &MaintenanceError{Table: name, Op: "drop", Err: err})
			continue
		}
		e.logger.Debug("dropped table", "table", name)
		report.Dropped = append(report.Dropped, name)
	}

	remaining, err := e.db.ListTables(ctx)
	if err != nil {
		e.finishRun(run, len(report.Dropped), len(report.Errors), err.Error())
		return report, err
	}
	report.Remaining = remaining

	e.finishRun(run, len(report.Dropped), len(report.Errors), "")
	return report, nil
}
