// Package config provides shared configuration defaults for leapmetrics.
// It is decoupled from CLI concerns so the engine and tests can use it directly.
package config

import "github.com/leapstack-labs/leapmetrics/pkg/core"

// Default configuration values.
const (
	DefaultMetricsDir = "metrics"
	DefaultDatabase   = "metrics.duckdb"
	DefaultStateFile  = ".leapmetrics/state.db"
	DefaultTarget     = "duckdb"
	DefaultSchema     = "main"
)

// Base table names loaded from CSV sources.
const (
	TableCustomers  = "customers"
	TableOrders     = "orders"
	TableOrderItems = "order_items"
)

// DefaultSources returns the default CSV sources in load order.
func DefaultSources() []core.SourceConfig {
	return []core.SourceConfig{
		{Table: TableCustomers, Path: "data/customers.csv"},
		{Table: TableOrders, Path: "data/orders.csv"},
		{Table: TableOrderItems, Path: "data/order_items.csv"},
	}
}

// ProtectedTables returns the base table names of the given sources.
// Derived metric tables may never use one of these names.
func ProtectedTables(sources []core.SourceConfig) []string {
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Table)
	}
	return names
}

// ApplyTargetDefaults applies default values to a TargetConfig.
func ApplyTargetDefaults(t *core.TargetConfig) {
	if t == nil {
		return
	}
	if t.Type == "" {
		t.Type = DefaultTarget
	}
	if t.Schema == "" {
		t.Schema = DefaultSchema
	}
}
