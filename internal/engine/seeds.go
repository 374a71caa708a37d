package engine

// seeds.go - CSV source loading

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// SourceResult reports one loaded base table.
type SourceResult struct {
	Table string
	Path  string
	Rows  int64
}

// LoadSources loads every configured CSV file into its base table, in order.
// The first failure aborts the remaining sources.
func (e *Engine) LoadSources(ctx context.Context) ([]SourceResult, error) {
	e.logger.Info("loading sources", "count", len(e.sources))

	// Ensure database is connected before loading sources
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, &DataLoadError{Table: e.sources[0].Table, Path: e.sources[0].Path, Err: err}
	}

	run := e.beginRun(core.CommandSetup)

	results := make([]SourceResult, 0, len(e.sources))
	for _, src := range e.sources {
		res, err := e.loadSource(ctx, src)
		if err != nil {
			e.finishRun(run, len(results), 1, err.Error())
			return results, err
		}
		results = append(results, res)
	}

	e.finishRun(run, len(results), 0, "")
	return results, nil
}

func (e *Engine) loadSource(ctx context.Context, src core.SourceConfig) (SourceResult, error) {
	start := time.Now()
	e.logger.Debug("loading source file", "table", src.Table, "path", src.Path)

	if _, err := os.Stat(src.Path); err != nil {
		return SourceResult{}, &DataLoadError{Table: src.Table, Path: src.Path, Err: err}
	}

	if err := e.db.LoadCSV(ctx, src.Table, src.Path); err != nil {
		return SourceResult{}, &DataLoadError{Table: src.Table, Path: src.Path, Err: err}
	}

	rows, err := e.db.CountRows(ctx, src.Table)
	if err != nil {
		return SourceResult{}, &DataLoadError{Table: src.Table, Path: src.Path, Err: fmt.Errorf("loaded but could not count rows: %w", err)}
	}

	e.logger.Info("loaded source", "table", src.Table, "rows", rows, "duration", time.Since(start))

	return SourceResult{Table: src.Table, Path: src.Path, Rows: rows}, nil
}
