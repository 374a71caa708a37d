// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
)

// Row counts of the CSV sources written by SetupTestProject.
const (
	CustomerRows  = 10
	OrderRows     = 25
	OrderItemRows = 40
)

// SetupTestProject creates a temporary leapmetrics project: a config file,
// customers, orders and order_items CSVs and two metric definitions.
// The database and state files live inside the project.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	// Create directories
	dirs := []string{
		filepath.Join(tmpDir, "data"),
		filepath.Join(tmpDir, "metrics"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}

	var customers, orders, items strings.Builder
	customers.WriteString("customer_id,name,email\n")
	for i := 1; i <= CustomerRows; i++ {
		fmt.Fprintf(&customers, "%d,Customer %d,customer%d@example.com\n", i, i, i)
	}
	orders.WriteString("order_id,customer_id,order_date,total\n")
	for i := 1; i <= OrderRows; i++ {
		fmt.Fprintf(&orders, "%d,%d,2024-03-%02d,%d.00\n", i, (i%CustomerRows)+1, (i%28)+1, 20+i)
	}
	items.WriteString("item_id,order_id,product,quantity\n")
	for i := 1; i <= OrderItemRows; i++ {
		fmt.Fprintf(&items, "%d,%d,Product %d,%d\n", i, (i%OrderRows)+1, i%4, (i%3)+1)
	}

	files := map[string]string{
		"leapmetrics.yaml": `metrics_dir: metrics
database: metrics.duckdb
state_path: .leapmetrics/state.db
`,
		"data/customers.csv":   customers.String(),
		"data/orders.csv":      orders.String(),
		"data/order_items.csv": items.String(),
		"metrics/customer_count.yaml": `name: customer_count
description: Number of customers
owner: analytics@example.com
schedule: "0 6 * * *"
sql: SELECT COUNT(*) AS n FROM customers
`,
		"metrics/order_count.yaml": `name: order_count
description: Number of orders
owner: analytics@example.com
schedule: "0 6 * * *"
sql: SELECT COUNT(*) AS n FROM orders
`,
	}

	for name, content := range files {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}

	return tmpDir
}

// WriteMetric adds a definition file to the project's metrics directory.
func WriteMetric(t *testing.T, projectDir, file, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(projectDir, "metrics", file), []byte(content), 0o600); err != nil {
		t.Fatalf("failed to create %s: %v", file, err)
	}
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererAuto creates a new test renderer with auto mode detection.
// In tests, non-TTY defaults to markdown output.
func NewTestRendererAuto() *TestRenderer {
	return NewTestRenderer(output.ModeAuto, false)
}

// NewTestRendererText creates a new test renderer in text mode (simulated TTY).
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, true)
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the combined stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertContains checks that the string contains the expected substring.
func AssertContains(t *testing.T, s, expected string) {
	t.Helper()
	if !strings.Contains(s, expected) {
		t.Errorf("string %q does not contain expected %q", s, expected)
	}
}

// AssertNotContains checks that the string does not contain the substring.
func AssertNotContains(t *testing.T, s, unexpected string) {
	t.Helper()
	if strings.Contains(s, unexpected) {
		t.Errorf("string %q unexpectedly contains %q", s, unexpected)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and basic structure.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	// Check for balanced code fences
	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	// Check that headers have content
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}

// AssertOutputMode checks that the renderer output matches expected mode characteristics.
func AssertOutputMode(t *testing.T, tr *TestRenderer, expectedMode output.OutputMode) {
	t.Helper()

	combinedOutput := tr.Output() + tr.ErrorOutput()

	switch expectedMode {
	case output.ModeMarkdown:
		AssertNoANSI(t, combinedOutput)
		// Markdown mode should not contain ANSI codes
	case output.ModeText:
		// Text mode may contain ANSI codes if TTY
		// No specific assertion needed
	case output.ModeJSON:
		AssertNoANSI(t, combinedOutput)
		// JSON mode should not contain ANSI codes
	}
}
