package core

import (
	"context"
	"database/sql"
)

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the database.
	Connect(ctx context.Context, cfg AdapterConfig) error

	// Close closes the database connection.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// GetTableMetadata retrieves metadata for a table.
	GetTableMetadata(ctx context.Context, table string) (*TableMetadata, error)

	// LoadCSV creates or replaces a table from a CSV file with an inferred schema.
	LoadCSV(ctx context.Context, tableName, filePath string) error

	// ListTables returns the base tables of the default schema, sorted by name.
	ListTables(ctx context.Context) ([]string, error)

	// CountRows returns COUNT(*) for a table.
	CountRows(ctx context.Context, table string) (int64, error)

	// Explain asks the engine to plan a query without running it.
	Explain(ctx context.Context, sql string) error
}

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	Type   string
	Path   string
	Schema string
	Params map[string]any
}

// Column represents a column in a database table.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// TableMetadata holds metadata about a database table.
type TableMetadata struct {
	Schema   string
	Name     string
	Columns  []Column
	RowCount int64
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}
