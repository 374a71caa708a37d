// Package adapter provides the database adapter contract, shared database/sql
// plumbing and the adapter registry for leapmetrics.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories.
package adapter

import (
	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// Type aliases for the core adapter types.
type (
	// Adapter is an alias for core.Adapter.
	Adapter = core.Adapter

	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.Column.
	Column = core.Column

	// Metadata is an alias for core.TableMetadata.
	Metadata = core.TableMetadata

	// Rows is an alias for core.Rows.
	Rows = core.Rows
)
