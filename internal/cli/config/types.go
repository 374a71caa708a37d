// Package config provides configuration management for the leapmetrics CLI.
//
// The shared target and source types live in pkg/core and are re-exported
// here via type aliases for convenience.
package config

import (
	sharedcfg "github.com/leapstack-labs/leapmetrics/internal/config"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// TargetConfig is an alias for the shared target configuration.
type TargetConfig = core.TargetConfig

// SourceConfig is an alias for the shared CSV source configuration.
type SourceConfig = core.SourceConfig

// Config holds all CLI configuration options.
type Config struct {
	MetricsDir   string         `koanf:"metrics_dir"`
	DatabasePath string         `koanf:"database"`
	StatePath    string         `koanf:"state_path"`
	Verbose      bool           `koanf:"verbose"`
	OutputFormat string         `koanf:"output"`
	LiveCheck    bool           `koanf:"live_check"`
	Sources      []SourceConfig `koanf:"sources"`
	Target       *TargetConfig  `koanf:"target"`

	// ProjectRoot is the directory relative paths were resolved against.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultMetricsDir = sharedcfg.DefaultMetricsDir
	DefaultDatabase   = sharedcfg.DefaultDatabase
	DefaultStateFile  = sharedcfg.DefaultStateFile
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// Config file names, in lookup order.
const (
	ConfigFileName    = "leapmetrics.yaml"
	ConfigFileNameAlt = "leapmetrics.yml"
)

// EnvPrefix is the prefix of environment variables read into the config.
const EnvPrefix = "LEAPMETRICS_"

// ProtectedTables returns the base table names that metric definitions may not use.
func (c *Config) ProtectedTables() []string {
	return sharedcfg.ProtectedTables(c.Sources)
}
