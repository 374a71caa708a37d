package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefinition_Has(t *testing.T) {
	built := &Definition{Name: "x"}
	assert.True(t, built.Has(FieldOwner), "definitions built in code declare every field")

	parsed := &Definition{Name: "x", Declared: map[string]bool{FieldName: true}}
	assert.True(t, parsed.Has(FieldName))
	assert.False(t, parsed.Has(FieldOwner))
}

func TestDefinition_Label(t *testing.T) {
	assert.Equal(t, "revenue", (&Definition{Name: "revenue", File: "a.yaml"}).Label())
	assert.Equal(t, "a.yaml", (&Definition{Name: "  ", File: "a.yaml"}).Label())
	assert.Equal(t, "<unnamed>", (&Definition{}).Label())
}

func TestValidationResult_Passed(t *testing.T) {
	var r ValidationResult
	assert.True(t, r.Passed())

	r.AddWarning(FieldOwner, "owner does not look like an email")
	assert.True(t, r.Passed(), "warnings must not fail a definition")

	r.AddError(FieldSQL, "sql cannot be empty")
	assert.False(t, r.Passed())
	assert.Equal(t, SeverityError, r.Errors[0].Severity)
	assert.Equal(t, SeverityWarning, r.Warnings[0].Severity)
}

func TestTargetConfig_AdapterConfig(t *testing.T) {
	target := TargetConfig{
		Type:     "duckdb",
		Database: "metrics.duckdb",
		Schema:   "main",
		Params:   map[string]any{"settings": map[string]any{"threads": "2"}},
	}

	assert.Equal(t, AdapterConfig{
		Type:   "duckdb",
		Path:   "metrics.duckdb",
		Schema: "main",
		Params: target.Params,
	}, target.AdapterConfig())
}
