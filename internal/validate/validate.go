// Package validate checks metric definitions before they are executed.
//
// Static checks look only at the definition itself. The optional live check
// asks the database to plan the query with EXPLAIN, which requires the
// referenced tables to exist already.
package validate

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// namePattern is the identifier form a metric name must take.
var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// cronFields is the number of whitespace-separated fields of a cron expression.
const cronFields = 5

// Explainer plans a query without running it.
type Explainer interface {
	Explain(ctx context.Context, sql string) error
}

// Validator applies the definition checks in a fixed order.
type Validator struct {
	protected map[string]bool
	explainer Explainer
	logger    *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithProtected sets the table names a metric may not use.
func WithProtected(names ...string) Option {
	return func(v *Validator) {
		for _, n := range names {
			v.protected[strings.ToLower(n)] = true
		}
	}
}

// WithLiveCheck enables the EXPLAIN check against the given database.
func WithLiveCheck(e Explainer) Option {
	return func(v *Validator) {
		v.explainer = e
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.logger = l
		}
	}
}

// New creates a Validator.
func New(opts ...Option) *Validator {
	v := &Validator{
		protected: make(map[string]bool),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// LiveCheck reports whether the EXPLAIN check is enabled.
func (v *Validator) LiveCheck() bool {
	return v.explainer != nil
}

// IsProtected reports whether name is a protected base table.
// Table names are case-insensitive in DuckDB.
func (v *Validator) IsProtected(name string) bool {
	return v.protected[strings.ToLower(name)]
}

// Validate runs every check against def. Warnings never fail a definition.
func (v *Validator) Validate(ctx context.Context, def *core.Definition) core.ValidationResult {
	var result core.ValidationResult

	v.checkStructure(def, &result)
	v.checkSQL(def, &result)

	if v.explainer != nil && !isBlank(def.SQL) {
		if err := v.explainer.Explain(ctx, def.SQL); err != nil {
			result.Errors = append(result.Errors, core.Finding{
				Severity: core.SeverityError,
				Message:  fmt.Sprintf("SQL execution error: %v", err),
				Live:     true,
			})
		}
	}

	v.logger.Debug("validated metric",
		slog.String("metric", def.Label()),
		slog.Int("errors", len(result.Errors)),
		slog.Int("warnings", len(result.Warnings)))

	return result
}

func (v *Validator) checkStructure(def *core.Definition, result *core.ValidationResult) {
	for _, field := range core.RequiredFields {
		switch {
		case !def.Has(field):
			result.AddError(field, fmt.Sprintf("Missing required field: '%s'", field))
		case isBlank(def.Value(field)):
			result.AddError(field, fmt.Sprintf("Field '%s' cannot be empty", field))
		}
	}

	if def.Has(core.FieldName) && !isBlank(def.Name) {
		if !ValidName(def.Name) {
			result.AddError(core.FieldName, fmt.Sprintf(
				"Invalid metric name '%s'. Only letters, numbers and underscores allowed", def.Name))
		} else if v.IsProtected(def.Name) {
			result.AddError(core.FieldName, fmt.Sprintf(
				"Metric name '%s' is reserved for a base table", def.Name))
		}
	}

	if !isBlank(def.Owner) && !strings.Contains(def.Owner, "@") {
		result.AddWarning(core.FieldOwner, fmt.Sprintf(
			"Owner '%s' doesn't look like email format", def.Owner))
	}

	if !isBlank(def.Schedule) && len(strings.Fields(def.Schedule)) != cronFields {
		result.AddWarning(core.FieldSchedule, fmt.Sprintf(
			"Schedule '%s' doesn't match cron format (%d fields expected)", def.Schedule, cronFields))
	}
}

func (v *Validator) checkSQL(def *core.Definition, result *core.ValidationResult) {
	if isBlank(def.SQL) {
		result.AddError(core.FieldSQL, "SQL query cannot be empty")
		return
	}

	sql := strings.ToUpper(strings.TrimSpace(def.SQL))

	if !strings.HasPrefix(sql, "SELECT") {
		result.AddError(core.FieldSQL, "SQL must start with SELECT")
	}

	for _, keyword := range []string{"SELECT", "FROM"} {
		if !strings.Contains(sql, keyword) {
			result.AddError(core.FieldSQL, "SQL missing required keyword: "+keyword)
		}
	}
}

// ValidName reports whether name has the identifier form of a metric name.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ValidationError reports the error findings of a definition that failed validation.
type ValidationError struct {
	Metric   string
	File     string
	Findings []core.Finding
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Findings))
	for _, f := range e.Findings {
		msgs = append(msgs, f.Message)
	}
	prefix := e.Metric
	if e.File != "" {
		prefix = fmt.Sprintf("%s (%s)", e.Metric, e.File)
	}
	return fmt.Sprintf("validation failed for %s: %s", prefix, strings.Join(msgs, "; "))
}

// AsError returns a *ValidationError for a failed result, or nil if it passed.
func AsError(def *core.Definition, result core.ValidationResult) error {
	if result.Passed() {
		return nil
	}
	return &ValidationError{
		Metric:   def.Label(),
		File:     def.File,
		Findings: result.Errors,
	}
}
