package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapmetrics/internal/loader"
	"github.com/leapstack-labs/leapmetrics/internal/state"
	"github.com/leapstack-labs/leapmetrics/internal/testutil"
	"github.com/leapstack-labs/leapmetrics/internal/validate"
	"github.com/leapstack-labs/leapmetrics/pkg/adapter"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testProject is a temporary project with CSV sources and a metrics directory.
type testProject struct {
	root       string
	metricsDir string
	sources    []core.SourceConfig
}

// newTestProject writes customers, orders and order_items CSVs with 10, 25 and 40 rows.
func newTestProject(t *testing.T) *testProject {
	t.Helper()
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	metricsDir := filepath.Join(root, "metrics")
	require.NoError(t, os.MkdirAll(dataDir, 0o750))
	require.NoError(t, os.MkdirAll(metricsDir, 0o750))

	var customers, orders, items strings.Builder
	customers.WriteString("customer_id,name,signup_date\n")
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&customers, "%d,Customer %d,2024-01-%02d\n", i, i, i)
	}
	orders.WriteString("order_id,customer_id,order_date,status\n")
	for i := 1; i <= 25; i++ {
		fmt.Fprintf(&orders, "%d,%d,2024-02-%02d,completed\n", i, (i%10)+1, (i%28)+1)
	}
	items.WriteString("item_id,order_id,product,quantity,price\n")
	for i := 1; i <= 40; i++ {
		fmt.Fprintf(&items, "%d,%d,Product %d,%d,%d.50\n", i, (i%25)+1, i%5, (i%3)+1, 10+i)
	}

	p := &testProject{root: root, metricsDir: metricsDir}
	for _, f := range []struct{ table, content string }{
		{"customers", customers.String()},
		{"orders", orders.String()},
		{"order_items", items.String()},
	} {
		path := filepath.Join(dataDir, f.table+".csv")
		require.NoError(t, os.WriteFile(path, []byte(f.content), 0o600))
		p.sources = append(p.sources, core.SourceConfig{Table: f.table, Path: path})
	}
	return p
}

func (p *testProject) writeMetric(t *testing.T, file, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(p.metricsDir, file), []byte(content), 0o600))
}

func metricYAML(name, sql string) string {
	return fmt.Sprintf(`name: %s
description: Test metric %s
owner: data@example.com
schedule: "0 6 * * *"
sql: %q
`, name, name, sql)
}

// newTestEngine creates an engine on in-memory DuckDB and SQLite.
func newTestEngine(t *testing.T, p *testProject) *Engine {
	t.Helper()
	eng, err := New(Config{
		MetricsDir:    p.metricsDir,
		Sources:       p.sources,
		AdapterConfig: &adapter.Config{Type: "duckdb", Path: ":memory:"},
		StatePath:     ":memory:",
		Logger:        testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func setupEngine(t *testing.T, p *testProject) *Engine {
	t.Helper()
	eng := newTestEngine(t, p)
	_, err := eng.LoadSources(context.Background())
	require.NoError(t, err)
	return eng
}

func assertRowCount(t *testing.T, eng *Engine, table string, want int64) {
	t.Helper()
	db, err := eng.DB(context.Background())
	require.NoError(t, err)
	got, err := db.CountRows(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, want, got, "rows in %s", table)
}

func TestNew_Defaults(t *testing.T) {
	eng, err := New(Config{MetricsDir: "metrics"})
	require.NoError(t, err)
	defer func() { _ = eng.Close() }()

	assert.Nil(t, eng.GetStateStore(), "run history is disabled without a state path")
	assert.Equal(t, []string{"customers", "orders", "order_items"}, eng.ProtectedTables())
	assert.Equal(t, "duckdb", eng.dbConfig.Type)
	assert.True(t, eng.IsProtected("ORDERS"))
	assert.False(t, eng.IsProtected("order_count"))
}

func TestNew_InvalidStatePath(t *testing.T) {
	_, err := New(Config{StatePath: "/nonexistent/path/state.db"})
	require.Error(t, err, "New() should fail with invalid state path")
}

func TestLoadSources(t *testing.T) {
	p := newTestProject(t)
	eng := newTestEngine(t, p)

	results, err := eng.LoadSources(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, SourceResult{Table: "customers", Path: p.sources[0].Path, Rows: 10}, results[0])
	assert.Equal(t, int64(25), results[1].Rows)
	assert.Equal(t, int64(40), results[2].Rows)

	// Reloading replaces the tables
	results, err = eng.LoadSources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(25), results[1].Rows)

	runs, err := eng.GetStateStore().ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "setup", runs[0].Command)
	assert.Equal(t, 3, runs[0].Succeeded)
}

func TestLoadSources_MissingFile(t *testing.T) {
	p := newTestProject(t)
	require.NoError(t, os.Remove(p.sources[1].Path))
	eng := newTestEngine(t, p)

	results, err := eng.LoadSources(context.Background())
	require.Error(t, err)

	var loadErr *DataLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "orders", loadErr.Table)
	assert.Equal(t, p.sources[1].Path, loadErr.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Len(t, results, 1, "sources before the failure are loaded")

	tables, err := eng.ListTables(context.Background())
	require.NoError(t, err)
	assert.Len(t, tables, 1, "sources after the failure are not loaded")
}

func TestExecuteMetric_EndToEnd(t *testing.T) {
	p := newTestProject(t)
	eng := setupEngine(t, p)
	ctx := context.Background()

	def := &core.Definition{Name: "order_count", SQL: "SELECT COUNT(*) AS n FROM orders"}
	rows, err := eng.ExecuteMetric(ctx, def)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	db, err := eng.DB(ctx)
	require.NoError(t, err)
	result, err := db.Query(ctx, "SELECT n FROM order_count")
	require.NoError(t, err)
	defer func() { _ = result.Close() }()
	require.True(t, result.Next())
	var n int64
	require.NoError(t, result.Scan(&n))
	assert.Equal(t, int64(25), n)
}

func TestExecuteMetric_Idempotent(t *testing.T) {
	p := newTestProject(t)
	eng := setupEngine(t, p)
	ctx := context.Background()

	def := &core.Definition{
		Name: "orders_per_customer",
		SQL:  "SELECT customer_id, COUNT(*) AS orders FROM orders GROUP BY customer_id;",
	}

	first, err := eng.ExecuteMetric(ctx, def)
	require.NoError(t, err)
	second, err := eng.ExecuteMetric(ctx, def)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(10), second)

	tables, err := eng.ListMetricTables(ctx)
	require.NoError(t, err)
	assert.Len(t, tables, 1, "re-execution replaces the table")
}

func TestExecuteMetric_Failures(t *testing.T) {
	p := newTestProject(t)
	eng := setupEngine(t, p)

	tests := []struct {
		name    string
		def     *core.Definition
		wantErr error
		substr  string
	}{
		{
			name:    "protected base table",
			def:     &core.Definition{Name: "orders", SQL: "SELECT 1 AS x FROM customers", File: "bad.yaml"},
			wantErr: ErrProtectedTable,
		},
		{
			name:    "protected name in other case",
			def:     &core.Definition{Name: "Customers", SQL: "SELECT 1 AS x FROM orders"},
			wantErr: ErrProtectedTable,
		},
		{
			name:   "unknown table",
			def:    &core.Definition{Name: "refund_total", SQL: "SELECT SUM(amount) FROM refunds"},
			substr: "refunds",
		},
		{
			name:    "invalid identifier",
			def:     &core.Definition{Name: "2revenue", SQL: "SELECT 1 AS x FROM orders"},
			wantErr: ErrInvalidName,
		},
		{
			name:    "schema qualified base table",
			def:     &core.Definition{Name: "main.customers", SQL: "SELECT 1 AS x FROM orders LIMIT 1"},
			wantErr: ErrInvalidName,
		},
		{
			name:    "quoted base table",
			def:     &core.Definition{Name: `"customers"`, SQL: "SELECT 1 AS x FROM orders LIMIT 1"},
			wantErr: ErrInvalidName,
		},
		{
			name:   "empty name",
			def:    &core.Definition{SQL: "SELECT 1 AS x FROM orders", File: "anon.yaml"},
			substr: "metric name is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.ExecuteMetric(context.Background(), tt.def)
			require.Error(t, err)

			var execErr *ExecutionError
			require.ErrorAs(t, err, &execErr)
			assert.Equal(t, tt.def.Label(), execErr.Metric)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.substr != "" {
				assert.Contains(t, err.Error(), tt.substr)
			}
		})
	}

	// Base tables are untouched
	tables, err := eng.ListTables(context.Background())
	require.NoError(t, err)
	for _, tbl := range tables {
		assert.True(t, tbl.Base, "unexpected table %s", tbl.Name)
	}
	assertRowCount(t, eng, "customers", 10)
	assertRowCount(t, eng, "orders", 25)
}

func TestRunAll(t *testing.T) {
	p := newTestProject(t)
	eng := setupEngine(t, p)
	ctx := context.Background()

	p.writeMetric(t, "a_order_count.yaml", metricYAML("order_count", "SELECT COUNT(*) AS n FROM orders"))
	p.writeMetric(t, "b_broken.yaml", "name: [unclosed\n")
	p.writeMetric(t, "c_refunds.yml", metricYAML("refund_total", "SELECT SUM(amount) AS total FROM refunds"))
	p.writeMetric(t, "d_items.yaml", metricYAML("items_per_order", "SELECT order_id, COUNT(*) AS n FROM order_items GROUP BY order_id"))

	report, err := eng.RunAll(ctx, "", RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 2, report.Failed)
	assert.False(t, report.OK())
	require.Len(t, report.Items, 4)

	assert.Equal(t, "order_count", report.Items[0].Metric)
	assert.Equal(t, int64(1), report.Items[0].Rows)

	var parseErr *loader.ParseError
	assert.ErrorAs(t, report.Items[1].Err, &parseErr, "parse failure is an item failure")
	assert.Equal(t, "b_broken.yaml", report.Items[1].Metric)

	var execErr *ExecutionError
	assert.ErrorAs(t, report.Items[2].Err, &execErr)

	assert.True(t, report.Items[3].OK(), "failures do not stop later metrics")
	assert.Equal(t, int64(25), report.Items[3].Rows)

	// Run history
	require.NotEmpty(t, report.RunID)
	store := eng.GetStateStore()
	run, err := store.GetRun(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, state.RunStatusFailed, run.Status)
	assert.Equal(t, 2, run.Succeeded)
	assert.Equal(t, 2, run.Failed)

	metricRuns, err := store.GetMetricRunsForRun(report.RunID)
	require.NoError(t, err)
	assert.Len(t, metricRuns, 4)

	latest, err := store.GetLatestMetricRun("order_count")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, core.MetricRunStatusSuccess, latest.Status)
}

func TestRunAll_DuplicateNames(t *testing.T) {
	p := newTestProject(t)
	eng := setupEngine(t, p)

	p.writeMetric(t, "a.yaml", metricYAML("order_count", "SELECT COUNT(*) AS n FROM orders"))
	p.writeMetric(t, "b.yaml", metricYAML("order_count", "SELECT 0 AS n FROM orders"))

	report, err := eng.RunAll(context.Background(), p.metricsDir, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Items[1].Err.Error(), "already defined in")
}

func TestRunAll_WithValidation(t *testing.T) {
	p := newTestProject(t)
	eng := setupEngine(t, p)

	p.writeMetric(t, "a.yaml", metricYAML("order_count", "SELECT COUNT(*) AS n FROM orders"))
	p.writeMetric(t, "b.yaml", "name: no_sql\ndescription: d\nowner: a@b\nschedule: 0 6 * * *\n")
	p.writeMetric(t, "c.yaml", metricYAML("orders", "SELECT 1 AS x FROM customers"))

	report, err := eng.RunAll(context.Background(), "", RunOptions{Validate: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 2, report.Failed)

	var verr *validate.ValidationError
	require.ErrorAs(t, report.Items[1].Err, &verr)
	require.ErrorAs(t, report.Items[2].Err, &verr)

	tables, err := eng.ListMetricTables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 1, "invalid definitions are not executed")
	assert.Equal(t, "order_count", tables[0].Name)
}

func TestRunAll_NoDefinitions(t *testing.T) {
	p := newTestProject(t)
	eng := newTestEngine(t, p)

	_, err := eng.RunAll(context.Background(), "", RunOptions{})
	assert.ErrorIs(t, err, ErrNoDefinitions)

	_, err = eng.ValidateAll(context.Background(), "", false)
	assert.ErrorIs(t, err, ErrNoDefinitions)

	_, err = eng.RunAll(context.Background(), filepath.Join(p.root, "missing"), RunOptions{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoDefinitions)
}

func TestValidateAll(t *testing.T) {
	p := newTestProject(t)
	eng := newTestEngine(t, p)

	p.writeMetric(t, "a.yaml", metricYAML("order_count", "SELECT COUNT(*) AS n FROM orders"))
	p.writeMetric(t, "b.yaml", metricYAML("2revenue", "SELECT 1 AS x FROM orders"))
	p.writeMetric(t, "c.yaml", "name: [unclosed\n")
	p.writeMetric(t, "d.yaml", strings.Replace(metricYAML("team_metric", "SELECT 1 AS x FROM orders"), "data@example.com", "data team", 1))
	p.writeMetric(t, "e.yaml", metricYAML("order_count", "SELECT 2 AS n FROM orders"))

	report, err := eng.ValidateAll(context.Background(), "", false)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 3, report.Failed)

	assert.True(t, report.Items[0].OK())
	assert.False(t, report.Items[1].OK())
	assert.Nil(t, report.Items[2].Result, "parse failures have no findings")

	team := report.Items[3]
	assert.True(t, team.OK(), "a warning never fails a definition")
	require.NotNil(t, team.Result)
	assert.Len(t, team.Result.Warnings, 1)

	dup := report.Items[4]
	assert.False(t, dup.OK())
	assert.Contains(t, dup.Err.Error(), "Duplicate metric name 'order_count'")

	tables, err := eng.ListTables(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tables, "validation never writes to the database")
}

func TestValidateAll_KeepsLatestExecution(t *testing.T) {
	p := newTestProject(t)
	eng := setupEngine(t, p)
	ctx := context.Background()

	p.writeMetric(t, "order_count.yaml", metricYAML("order_count", "SELECT COUNT(*) AS n FROM orders"))

	run, err := eng.RunAll(ctx, "", RunOptions{})
	require.NoError(t, err)
	require.True(t, run.OK())

	check, err := eng.ValidateAll(ctx, "", false)
	require.NoError(t, err)
	require.True(t, check.OK())

	latest, err := eng.GetStateStore().GetLatestMetricRun("order_count")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, run.RunID, latest.RunID)
	assert.Equal(t, int64(1), latest.Rows)
}

func TestValidateAll_Live(t *testing.T) {
	p := newTestProject(t)
	eng := setupEngine(t, p)

	p.writeMetric(t, "a.yaml", metricYAML("order_count", "SELECT COUNT(*) AS n FROM orders"))
	p.writeMetric(t, "b.yaml", metricYAML("refund_total", "SELECT SUM(amount) AS total FROM refunds"))

	report, err := eng.ValidateAll(context.Background(), "", true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)

	require.NotNil(t, report.Items[1].Result)
	require.Len(t, report.Items[1].Result.Errors, 1)
	assert.True(t, report.Items[1].Result.Errors[0].Live)
}
