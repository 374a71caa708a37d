// Package loader reads metric definition files.
package loader

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"gopkg.in/yaml.v3"
)

// FieldMetricName is accepted as an alias for the name field.
const FieldMetricName = "metric_name"

// ParseError represents a definition file that could not be read or decoded.
type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		if e.Line > 0 {
			return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
		}
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

// yamlLinePattern extracts the line number from yaml.v3 syntax errors.
var yamlLinePattern = regexp.MustCompile(`line (\d+):`)

// ParseFile reads and parses a metric definition file.
func ParseFile(path string) (*core.Definition, error) {
	content, err := os.ReadFile(path) //nolint:gosec // path comes from Discover
	if err != nil {
		return nil, &ParseError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}
	return Parse(path, content)
}

// Parse decodes a metric definition from YAML content.
// Keys other than the definition fields are ignored.
func Parse(path string, content []byte) (*core.Definition, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		perr := &ParseError{File: path, Message: fmt.Sprintf("invalid YAML: %v", err)}
		if m := yamlLinePattern.FindStringSubmatch(err.Error()); len(m) == 2 {
			perr.Line, _ = strconv.Atoi(m[1])
		}
		return nil, perr
	}

	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, &ParseError{File: path, Message: "empty document"}
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &ParseError{
			File:    path,
			Line:    root.Line,
			Message: "expected a mapping of definition fields",
		}
	}

	def := &core.Definition{
		File:     path,
		Declared: make(map[string]bool, len(core.RequiredFields)),
	}

	var alias string
	var hasAlias bool

	// Mapping nodes alternate key and value
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]

		field := key.Value
		if field != FieldMetricName && !isRequired(field) {
			continue
		}

		if val.Kind != yaml.ScalarNode {
			return nil, &ParseError{
				File:    path,
				Line:    val.Line,
				Message: fmt.Sprintf("field %q must be a string", field),
			}
		}

		value := val.Value
		if val.Tag == "!!null" {
			value = ""
		}

		if field == FieldMetricName {
			alias, hasAlias = value, true
			continue
		}

		def.Declared[field] = true
		setField(def, field, value)
	}

	if hasAlias && !def.Declared[core.FieldName] {
		def.Declared[core.FieldName] = true
		def.Name = alias
	}

	return def, nil
}

func isRequired(field string) bool {
	for _, f := range core.RequiredFields {
		if f == field {
			return true
		}
	}
	return false
}

func setField(def *core.Definition, field, value string) {
	switch field {
	case core.FieldName:
		def.Name = value
	case core.FieldDescription:
		def.Description = value
	case core.FieldOwner:
		def.Owner = value
	case core.FieldSchedule:
		def.Schedule = value
	case core.FieldSQL:
		def.SQL = value
	}
}
