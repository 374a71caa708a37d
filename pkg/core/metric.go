package core

import "strings"

// Field names of a metric definition file.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldOwner       = "owner"
	FieldSchedule    = "schedule"
	FieldSQL         = "sql"
)

// RequiredFields lists the definition fields in validation order.
var RequiredFields = []string{FieldName, FieldDescription, FieldOwner, FieldSchedule, FieldSQL}

// Definition is a metric definition read from a YAML file.
type Definition struct {
	Name        string
	Description string
	Owner       string
	Schedule    string
	SQL         string

	// File is the path the definition was read from.
	File string

	// Declared holds the required fields that appeared as keys in the file.
	Declared map[string]bool
}

// Has reports whether field was declared in the source file.
// Definitions built in code (Declared == nil) count every field as declared.
func (d *Definition) Has(field string) bool {
	if d.Declared == nil {
		return true
	}
	return d.Declared[field]
}

// Value returns the value of a required field by name.
func (d *Definition) Value(field string) string {
	switch field {
	case FieldName:
		return d.Name
	case FieldDescription:
		return d.Description
	case FieldOwner:
		return d.Owner
	case FieldSchedule:
		return d.Schedule
	case FieldSQL:
		return d.SQL
	}
	return ""
}

// Label returns the metric name, or the file name when the name is missing.
func (d *Definition) Label() string {
	if strings.TrimSpace(d.Name) != "" {
		return d.Name
	}
	if d.File != "" {
		return d.File
	}
	return "<unnamed>"
}

// Severity classifies a validation finding.
type Severity string

// Severity levels.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is a single validation message.
type Finding struct {
	Severity Severity
	Field    string
	Message  string
	// Live marks findings produced by running the query plan against the database.
	Live bool
}

func (f Finding) String() string {
	return f.Message
}

// ValidationResult collects the findings for one definition.
type ValidationResult struct {
	Errors   []Finding
	Warnings []Finding
}

// Passed reports whether the definition has no errors. Warnings never fail a definition.
func (r ValidationResult) Passed() bool {
	return len(r.Errors) == 0
}

// AddError appends an error finding.
func (r *ValidationResult) AddError(field, msg string) {
	r.Errors = append(r.Errors, Finding{Severity: SeverityError, Field: field, Message: msg})
}

// AddWarning appends a warning finding.
func (r *ValidationResult) AddWarning(field, msg string) {
	r.Warnings = append(r.Warnings, Finding{Severity: SeverityWarning, Field: field, Message: msg})
}
