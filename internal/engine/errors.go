package engine

import (
	"errors"
	"fmt"
)

// ErrNoDefinitions is returned when the metrics directory holds no definition files.
var ErrNoDefinitions = errors.New("no metric definition files found")

// ErrProtectedTable is returned when a metric would overwrite a base table.
var ErrProtectedTable = errors.New("name is reserved for a base table")

// ErrInvalidName is returned when a metric name is not a plain identifier.
var ErrInvalidName = errors.New("metric name must be a plain identifier")

// DataLoadError reports a CSV source that could not be loaded.
type DataLoadError struct {
	Table string
	Path  string
	Err   error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("failed to load %s from %s: %v", e.Table, e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// ExecutionError reports a metric that could not be materialized.
type ExecutionError struct {
	Metric string
	File   string
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("metric %s (%s): %v", e.Metric, e.File, e.Err)
	}
	return fmt.Sprintf("metric %s: %v", e.Metric, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// MaintenanceError reports a table that could not be dropped or inspected.
type MaintenanceError struct {
	Table string
	Op    string
	Err   error
}

func (e *MaintenanceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *MaintenanceError) Unwrap() error {
	return e.Err
}
