package core

// TargetConfig holds the database target configuration.
type TargetConfig struct {
	Type string `koanf:"type"` // duckdb

	// Database is the file path of the database, or ":memory:".
	Database string `koanf:"database"`

	Schema string `koanf:"schema"`

	// Params holds adapter-specific configuration (e.g., DuckDB extensions, settings)
	Params map[string]any `koanf:"params"`
}

// SourceConfig maps a base table to the CSV file it is loaded from.
type SourceConfig struct {
	Table string `koanf:"table"`
	Path  string `koanf:"path"`
}

// AdapterConfig converts the target into the config passed to Adapter.Connect.
func (t *TargetConfig) AdapterConfig() AdapterConfig {
	return AdapterConfig{
		Type:   t.Type,
		Path:   t.Database,
		Schema: t.Schema,
		Params: t.Params,
	}
}
