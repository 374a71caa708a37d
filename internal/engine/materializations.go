package engine

// materializations.go - metric table materialization

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapmetrics/internal/validate"
	"github.com/leapstack-labs/leapmetrics/pkg/adapter"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// ExecuteMetric creates or replaces the table named after the metric from its
// query and returns the resulting row count. It does not validate def first.
func (e *Engine) ExecuteMetric(ctx context.Context, def *core.Definition) (int64, error) {
	name := strings.TrimSpace(def.Name)
	fail := func(err error) (int64, error) {
		return 0, &ExecutionError{Metric: def.Label(), File: def.File, Err: err}
	}

	if name == "" {
		return fail(errors.New("metric name is empty"))
	}
	if !validate.ValidName(name) {
		return fail(fmt.Errorf("%w: %q", ErrInvalidName, name))
	}
	if e.IsProtected(name) {
		return fail(ErrProtectedTable)
	}

	if err := e.ensureDBConnected(ctx); err != nil {
		return fail(err)
	}

	e.logger.Debug("executing metric", "metric", name, "file", def.File)

	query := strings.TrimRight(strings.TrimSpace(def.SQL), "; \t\n")
	createSQL := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS %s", adapter.QuoteIdent(name), query)
	if err := e.db.Exec(ctx, createSQL); err != nil {
		return fail(err)
	}

	count, err := e.db.CountRows(ctx, name)
	if err != nil {
		return fail(err)
	}
	return count, nil
}
