package output

// JSON output types. Field names are stable for scripts and agents.

// SourceInfo is one loaded CSV source.
type SourceInfo struct {
	Table string `json:"table"`
	Path  string `json:"path"`
	Rows  int64  `json:"rows"`
}

// SetupOutput is the JSON output of the setup command.
type SetupOutput struct {
	Sources []SourceInfo `json:"sources"`
	Summary SetupSummary `json:"summary"`
}

// SetupSummary totals a setup.
type SetupSummary struct {
	TotalSources int   `json:"total_sources"`
	TotalRows    int64 `json:"total_rows"`
}

// FindingInfo is one validation finding.
type FindingInfo struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Live    bool   `json:"live,omitempty"`
}

// MetricResult is the outcome of one definition file in a batch.
type MetricResult struct {
	File       string        `json:"file"`
	Metric     string        `json:"metric"`
	Status     string        `json:"status"`
	Rows       int64         `json:"rows,omitempty"`
	DurationMS int64         `json:"duration_ms"`
	Error      string        `json:"error,omitempty"`
	Errors     []FindingInfo `json:"errors,omitempty"`
	Warnings   []FindingInfo `json:"warnings,omitempty"`
}

// BatchOutput is the JSON output of the validate and run commands.
type BatchOutput struct {
	Command string         `json:"command"`
	RunID   string         `json:"run_id,omitempty"`
	Results []MetricResult `json:"results"`
	Summary BatchSummary   `json:"summary"`
}

// BatchSummary totals a batch.
type BatchSummary struct {
	Total      int   `json:"total"`
	Succeeded  int   `json:"succeeded"`
	Failed     int   `json:"failed"`
	DurationMS int64 `json:"duration_ms"`
}

// TableInfo is one table in the target database.
type TableInfo struct {
	Name    string       `json:"name"`
	Rows    int64        `json:"rows"`
	Base    bool         `json:"base"`
	Columns []ColumnInfo `json:"columns,omitempty"`
}

// ColumnInfo is one column of a materialized table.
type ColumnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// ListOutput is the JSON output of the list command.
type ListOutput struct {
	Tables  []TableInfo `json:"tables"`
	Summary ListSummary `json:"summary"`
}

// ListSummary totals a table listing.
type ListSummary struct {
	Total   int `json:"total"`
	Base    int `json:"base"`
	Metrics int `json:"metrics"`
}

// LastRunInfo is the most recent recorded run of a metric.
type LastRunInfo struct {
	RunID       string `json:"run_id"`
	Status      string `json:"status"`
	Rows        int64  `json:"rows"`
	ExecutionMS int64  `json:"execution_ms"`
	Error       string `json:"error,omitempty"`
	At          string `json:"at"`
}

// MetricDetail is the JSON output of the show command.
type MetricDetail struct {
	Name        string       `json:"name"`
	File        string       `json:"file"`
	Description string       `json:"description"`
	Owner       string       `json:"owner"`
	Schedule    string       `json:"schedule"`
	SQL         string       `json:"sql"`
	Table       *TableInfo   `json:"table,omitempty"`
	LastRun     *LastRunInfo `json:"last_run,omitempty"`
}

// RunInfo is one recorded run.
type RunInfo struct {
	ID          string `json:"id"`
	Command     string `json:"command"`
	Status      string `json:"status"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
	Succeeded   int    `json:"succeeded"`
	Failed      int    `json:"failed"`
	Error       string `json:"error,omitempty"`
}

// HistoryOutput is the JSON output of the history command.
type HistoryOutput struct {
	Runs []RunInfo `json:"runs"`
}

// CleanOutput is the JSON output of the clean command.
type CleanOutput struct {
	Mode      string   `json:"mode"`
	Cancelled bool     `json:"cancelled"`
	Dropped   []string `json:"dropped"`
	Remaining []string `json:"remaining"`
	Errors    []string `json:"errors,omitempty"`
}
