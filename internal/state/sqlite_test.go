package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/leapmetrics/internal/testutil"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	if err := store.Open(":memory:"); err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := store.InitSchema(); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)

	if err := store.Open(":memory:"); err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)

	if _, err := store.CreateRun("run"); err == nil {
		t.Error("expected error from CreateRun on unopened store")
	}
	if err := store.InitSchema(); err == nil {
		t.Error("expected error from InitSchema on unopened store")
	}
	if err := store.Close(); err != nil {
		t.Errorf("closing an unopened store should be a no-op, got %v", err)
	}
}

func TestSQLiteStore_InitSchema(t *testing.T) {
	store := setupTestStore(t)

	// Verify tables exist by querying them
	for _, table := range []string{"runs", "metric_runs"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		if err != nil {
			t.Errorf("table %s does not exist: %v", table, err)
		} else {
			_ = rows.Close()
		}
	}

	version, err := store.GetMigrationVersion()
	if err != nil {
		t.Fatalf("failed to get migration version: %v", err)
	}
	if version != 1 {
		t.Errorf("expected migration version 1, got %d", version)
	}

	// Running migrations again is a no-op
	if err := store.InitSchema(); err != nil {
		t.Fatalf("second InitSchema failed: %v", err)
	}
}

func TestSQLiteStore_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	store := NewSQLiteStore(nil)
	if err := store.Open(path); err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := store.InitSchema(); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	run, err := store.CreateRun("run")
	if err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	_ = store.Close()

	reopened := NewSQLiteStore(nil)
	if err := reopened.Open(path); err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	if _, err := reopened.GetRun(run.ID); err != nil {
		t.Errorf("run did not persist: %v", err)
	}
	if reopened.Path() != path {
		t.Errorf("expected path %q, got %q", path, reopened.Path())
	}
}

// --- Run lifecycle tests ---

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T, store *SQLiteStore) *Run
		operation func(t *testing.T, store *SQLiteStore, run *Run)
		verify    func(t *testing.T, store *SQLiteStore, run *Run)
	}{
		{
			name: "create run",
			setup: func(t *testing.T, store *SQLiteStore) *Run {
				run, err := store.CreateRun("run")
				if err != nil {
					t.Fatalf("failed to create run: %v", err)
				}
				return run
			},
			verify: func(t *testing.T, _ *SQLiteStore, run *Run) {
				if run.ID == "" {
					t.Error("run ID should not be empty")
				}
				if run.Command != "run" {
					t.Errorf("expected command 'run', got %q", run.Command)
				}
				if run.Status != RunStatusRunning {
					t.Errorf("expected status 'running', got %q", run.Status)
				}
			},
		},
		{
			name: "get run",
			setup: func(t *testing.T, store *SQLiteStore) *Run {
				run, err := store.CreateRun("validate")
				if err != nil {
					t.Fatalf("failed to create run: %v", err)
				}
				return run
			},
			operation: func(t *testing.T, store *SQLiteStore, run *Run) {
				retrieved, err := store.GetRun(run.ID)
				if err != nil {
					t.Fatalf("failed to get run: %v", err)
				}
				if retrieved.ID != run.ID {
					t.Errorf("expected ID %q, got %q", run.ID, retrieved.ID)
				}
				if retrieved.Command != "validate" {
					t.Errorf("expected command 'validate', got %q", retrieved.Command)
				}
				if retrieved.CompletedAt != nil {
					t.Error("completed_at should be nil for a running run")
				}
			},
		},
		{
			name: "get run not found",
			setup: func(_ *testing.T, _ *SQLiteStore) *Run {
				return nil
			},
			operation: func(t *testing.T, store *SQLiteStore, _ *Run) {
				if _, err := store.GetRun("nonexistent-id"); err == nil {
					t.Error("expected error for nonexistent run")
				}
			},
		},
		{
			name: "complete run success",
			setup: func(_ *testing.T, store *SQLiteStore) *Run {
				run, _ := store.CreateRun("run")
				return run
			},
			operation: func(t *testing.T, store *SQLiteStore, run *Run) {
				if err := store.CompleteRun(run.ID, RunStatusCompleted, 3, 0, ""); err != nil {
					t.Fatalf("failed to complete run: %v", err)
				}
			},
			verify: func(t *testing.T, store *SQLiteStore, run *Run) {
				retrieved, _ := store.GetRun(run.ID)
				if retrieved.Status != RunStatusCompleted {
					t.Errorf("expected status 'completed', got %q", retrieved.Status)
				}
				if retrieved.CompletedAt == nil {
					t.Error("completed_at should not be nil")
				}
				if retrieved.Succeeded != 3 || retrieved.Failed != 0 {
					t.Errorf("expected 3/0, got %d/%d", retrieved.Succeeded, retrieved.Failed)
				}
				if retrieved.Error != "" {
					t.Errorf("expected no error, got %q", retrieved.Error)
				}
			},
		},
		{
			name: "complete run with error",
			setup: func(_ *testing.T, store *SQLiteStore) *Run {
				run, _ := store.CreateRun("run")
				return run
			},
			operation: func(t *testing.T, store *SQLiteStore, run *Run) {
				if err := store.CompleteRun(run.ID, RunStatusFailed, 1, 2, "2 metric(s) failed"); err != nil {
					t.Fatalf("failed to complete run: %v", err)
				}
			},
			verify: func(t *testing.T, store *SQLiteStore, run *Run) {
				retrieved, _ := store.GetRun(run.ID)
				if retrieved.Status != RunStatusFailed {
					t.Errorf("expected status 'failed', got %q", retrieved.Status)
				}
				if retrieved.Error != "2 metric(s) failed" {
					t.Errorf("expected error message, got %q", retrieved.Error)
				}
			},
		},
		{
			name: "complete unknown run",
			setup: func(_ *testing.T, _ *SQLiteStore) *Run {
				return nil
			},
			operation: func(t *testing.T, store *SQLiteStore, _ *Run) {
				if err := store.CompleteRun("nonexistent-id", RunStatusCompleted, 0, 0, ""); err == nil {
					t.Error("expected error for nonexistent run")
				}
			},
		},
		{
			name: "list runs newest first",
			setup: func(_ *testing.T, store *SQLiteStore) *Run {
				_, _ = store.CreateRun("setup")
				time.Sleep(10 * time.Millisecond)
				_, _ = store.CreateRun("validate")
				time.Sleep(10 * time.Millisecond)
				run, _ := store.CreateRun("run")
				return run
			},
			verify: func(t *testing.T, store *SQLiteStore, run *Run) {
				runs, err := store.ListRuns(2)
				if err != nil {
					t.Fatalf("failed to list runs: %v", err)
				}
				if len(runs) != 2 {
					t.Fatalf("expected 2 runs, got %d", len(runs))
				}
				if runs[0].ID != run.ID {
					t.Errorf("expected newest run first, got %q", runs[0].Command)
				}
				if runs[1].Command != "validate" {
					t.Errorf("expected second run 'validate', got %q", runs[1].Command)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)

			run := tt.setup(t, store)
			if tt.operation != nil {
				tt.operation(t, store, run)
			}
			if tt.verify != nil {
				tt.verify(t, store, run)
			}
		})
	}
}

// --- Metric run tests ---

func TestSQLiteStore_MetricRuns(t *testing.T) {
	store := setupTestStore(t)

	run, err := store.CreateRun("run")
	if err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	ok := &MetricRun{
		RunID:       run.ID,
		Metric:      "order_count",
		File:        "metrics/order_count.yaml",
		Status:      MetricRunStatusSuccess,
		Rows:        1,
		ExecutionMS: 12,
	}
	if err := store.RecordMetricRun(ok); err != nil {
		t.Fatalf("failed to record metric run: %v", err)
	}
	if ok.ID == "" || ok.CreatedAt.IsZero() {
		t.Error("RecordMetricRun should fill ID and CreatedAt")
	}

	time.Sleep(5 * time.Millisecond)
	failed := &MetricRun{
		RunID:  run.ID,
		Metric: "broken",
		File:   "metrics/broken.yaml",
		Status: MetricRunStatusFailed,
		Error:  "Catalog Error: Table with name refunds does not exist",
	}
	if err := store.RecordMetricRun(failed); err != nil {
		t.Fatalf("failed to record metric run: %v", err)
	}

	runs, err := store.GetMetricRunsForRun(run.ID)
	if err != nil {
		t.Fatalf("failed to get metric runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 metric runs, got %d", len(runs))
	}
	if runs[0].Metric != "order_count" || runs[0].Rows != 1 || runs[0].ExecutionMS != 12 {
		t.Errorf("unexpected first metric run: %+v", runs[0])
	}
	if runs[1].Status != MetricRunStatusFailed || runs[1].Error == "" {
		t.Errorf("unexpected second metric run: %+v", runs[1])
	}

	latest, err := store.GetLatestMetricRun("order_count")
	if err != nil {
		t.Fatalf("failed to get latest metric run: %v", err)
	}
	if latest == nil || latest.ID != ok.ID {
		t.Errorf("expected latest run %q, got %+v", ok.ID, latest)
	}

	missing, err := store.GetLatestMetricRun("never_ran")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for a metric that never ran")
	}
}

func TestSQLiteStore_LatestMetricRunIgnoresValidation(t *testing.T) {
	store := setupTestStore(t)

	run, err := store.CreateRun(core.CommandRun)
	if err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	executed := &MetricRun{RunID: run.ID, Metric: "order_count", Status: MetricRunStatusSuccess, Rows: 1}
	if err := store.RecordMetricRun(executed); err != nil {
		t.Fatalf("failed to record metric run: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	check, err := store.CreateRun(core.CommandValidate)
	if err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	validated := &MetricRun{RunID: check.ID, Metric: "order_count", Status: MetricRunStatusSuccess}
	if err := store.RecordMetricRun(validated); err != nil {
		t.Fatalf("failed to record metric run: %v", err)
	}

	latest, err := store.GetLatestMetricRun("order_count")
	if err != nil {
		t.Fatalf("failed to get latest metric run: %v", err)
	}
	if latest == nil || latest.ID != executed.ID || latest.Rows != 1 {
		t.Errorf("expected the executed run %q, got %+v", executed.ID, latest)
	}

	onlyValidated := &MetricRun{RunID: check.ID, Metric: "draft_metric", Status: MetricRunStatusSuccess}
	if err := store.RecordMetricRun(onlyValidated); err != nil {
		t.Fatalf("failed to record metric run: %v", err)
	}
	none, err := store.GetLatestMetricRun("draft_metric")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if none != nil {
		t.Errorf("a validated-only metric has no latest run, got %+v", none)
	}
}
