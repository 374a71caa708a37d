// Package core defines the shared language of the leapmetrics system.
//
// This package contains:
//   - Domain entities (Definition, Finding, Run, MetricRun)
//   - Service interfaces (Adapter, Store)
//   - Configuration types (AdapterConfig, TargetConfig, SourceConfig)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
