// Package state records the history of leapmetrics batches in SQLite.
// It tracks each run and the outcome of every metric within it.
//
// Core types are defined in pkg/core and re-exported here via type aliases.
package state

import (
	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// Type aliases - these types are defined in pkg/core.
type (
	// Store is an alias for core.Store.
	Store = core.Store

	// RunStatus is an alias for core.RunStatus.
	RunStatus = core.RunStatus

	// Run is an alias for core.Run.
	Run = core.Run

	// MetricRunStatus is an alias for core.MetricRunStatus.
	MetricRunStatus = core.MetricRunStatus

	// MetricRun is an alias for core.MetricRun.
	MetricRun = core.MetricRun
)

// Re-export constants for convenience.
const (
	RunStatusRunning   = core.RunStatusRunning
	RunStatusCompleted = core.RunStatusCompleted
	RunStatusFailed    = core.RunStatusFailed

	MetricRunStatusSuccess = core.MetricRunStatusSuccess
	MetricRunStatusFailed  = core.MetricRunStatusFailed
)

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)
