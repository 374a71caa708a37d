package core

import "time"

// Store defines the interface for the run-history store.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Run operations
	CreateRun(command string) (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, status RunStatus, succeeded, failed int, errMsg string) error
	ListRuns(limit int) ([]*Run, error)

	// Metric run operations
	RecordMetricRun(mr *MetricRun) error
	GetMetricRunsForRun(runID string) ([]*MetricRun, error)
	GetLatestMetricRun(metric string) (*MetricRun, error)
}

// Batch command names recorded on runs.
const (
	CommandSetup    = "setup"
	CommandValidate = "validate"
	CommandRun      = "run"
	CommandClean    = "clean"
	CommandReset    = "reset"
)

// RunStatus represents the status of a batch run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents one batch invocation (run, validate, setup, clean).
type Run struct {
	ID          string
	Command     string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Succeeded   int
	Failed      int
	Error       string
}

// MetricRunStatus represents the outcome of one item in a batch.
type MetricRunStatus string

// Metric run status constants.
const (
	MetricRunStatusSuccess MetricRunStatus = "success"
	MetricRunStatusFailed  MetricRunStatus = "failed"
)

// MetricRun records the outcome of a single metric within a run.
type MetricRun struct {
	ID          string
	RunID       string
	Metric      string
	File        string
	Status      MetricRunStatus
	Rows        int64
	ExecutionMS int64
	Error       string
	CreatedAt   time.Time
}
