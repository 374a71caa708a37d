package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/leapstack-labs/leapmetrics/pkg/adapter"
)

// validOutputs lists the accepted values of the output key.
var validOutputs = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MetricsDir == "" {
		return fmt.Errorf("metrics_dir is required")
	}

	if c.OutputFormat != "" && !contains(validOutputs, c.OutputFormat) {
		return fmt.Errorf("invalid output format %q (expected one of: %s)", c.OutputFormat, strings.Join(validOutputs, ", "))
	}

	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		if s.Table == "" {
			return fmt.Errorf("sources[%d]: table is required", i)
		}
		if s.Path == "" {
			return fmt.Errorf("sources[%d] (%s): path is required", i, s.Table)
		}
		if seen[s.Table] {
			return fmt.Errorf("sources[%d]: duplicate table %q", i, s.Table)
		}
		seen[s.Table] = true
	}

	if err := ValidateTarget(c.Target); err != nil {
		return fmt.Errorf("invalid target configuration: %w", err)
	}
	return nil
}

// ValidateTarget checks the target type against the adapter registry.
func ValidateTarget(t *TargetConfig) error {
	if t == nil || t.Type == "" {
		return fmt.Errorf("target type is required")
	}

	typ := strings.ToLower(t.Type)
	if !adapter.IsRegistered(typ) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}
	t.Type = typ
	return nil
}

// ValidateDirectories checks if required directories exist.
func (c *Config) ValidateDirectories() error {
	if _, err := os.Stat(c.MetricsDir); os.IsNotExist(err) {
		return fmt.Errorf("metrics directory does not exist: %s\nHint: Create the directory or use --metrics-dir to specify a different path", c.MetricsDir)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
