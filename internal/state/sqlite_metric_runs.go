package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

const metricRunColumns = `id, run_id, metric, file, status, row_count, execution_ms, error, created_at`

const qualifiedMetricRunColumns = `mr.id, mr.run_id, mr.metric, mr.file, mr.status, mr.row_count,
		mr.execution_ms, mr.error, mr.created_at`

// RecordMetricRun records the outcome of one metric within a run.
// ID and CreatedAt are filled in when empty.
func (s *SQLiteStore) RecordMetricRun(mr *core.MetricRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if mr.ID == "" {
		mr.ID = generateID()
	}
	if mr.CreatedAt.IsZero() {
		mr.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO metric_runs (`+metricRunColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mr.ID, mr.RunID, mr.Metric, mr.File, string(mr.Status), mr.Rows, mr.ExecutionMS,
		nullString(mr.Error), mr.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record metric run: %w", err)
	}
	return nil
}

// GetMetricRunsForRun retrieves the metric runs of a run in the order they were recorded.
func (s *SQLiteStore) GetMetricRunsForRun(runID string) ([]*core.MetricRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT `+metricRunColumns+` FROM metric_runs WHERE run_id = ? ORDER BY created_at, rowid`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get metric runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*core.MetricRun
	for rows.Next() {
		mr, err := scanMetricRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan metric run: %w", err)
		}
		result = append(result, mr)
	}
	return result, rows.Err()
}

// GetLatestMetricRun retrieves the most recent execution of a metric by a run batch.
// Validation passes are not executions and are skipped.
// Returns nil without error if the metric never ran.
func (s *SQLiteStore) GetLatestMetricRun(metric string) (*core.MetricRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(
		`SELECT `+qualifiedMetricRunColumns+`
		FROM metric_runs mr
		JOIN runs r ON r.id = mr.run_id
		WHERE mr.metric = ? AND r.command = ?
		ORDER BY mr.created_at DESC, mr.rowid DESC
		LIMIT 1`,
		metric, core.CommandRun,
	)
	mr, err := scanMetricRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest metric run: %w", err)
	}
	return mr, nil
}

func scanMetricRun(sc scanner) (*core.MetricRun, error) {
	mr := &core.MetricRun{}
	var status string
	var errMsg sql.NullString

	if err := sc.Scan(&mr.ID, &mr.RunID, &mr.Metric, &mr.File, &status, &mr.Rows,
		&mr.ExecutionMS, &errMsg, &mr.CreatedAt); err != nil {
		return nil, err
	}
	mr.Status = core.MetricRunStatus(status)
	mr.Error = errMsg.String
	return mr, nil
}
