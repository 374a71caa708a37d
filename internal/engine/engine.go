// Package engine runs the leapmetrics pipeline against the target database.
// It loads the CSV sources, validates and materializes metric definitions,
// and maintains the derived tables.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	intconfig "github.com/leapstack-labs/leapmetrics/internal/config"
	"github.com/leapstack-labs/leapmetrics/internal/state"
	"github.com/leapstack-labs/leapmetrics/pkg/adapter"
	"github.com/leapstack-labs/leapmetrics/pkg/core"

	_ "github.com/leapstack-labs/leapmetrics/pkg/adapters/duckdb" // register the default adapter
)

// Engine orchestrates the metrics pipeline.
type Engine struct {
	// Database adapter (lazy initialized)
	db          adapter.Adapter
	dbConfig    adapter.Config
	dbConnected bool
	dbMu        sync.Mutex

	// Structured logger
	logger *slog.Logger

	// store is nil when run history is disabled
	store      core.Store
	ownsStore  bool
	metricsDir string
	sources    []core.SourceConfig
	protected  map[string]bool
}

// Config holds engine configuration.
type Config struct {
	// MetricsDir is the directory holding the metric definition files
	MetricsDir string
	// Sources are the CSV files loaded into base tables, in load order.
	// Defaults to customers, orders and order_items under data/.
	Sources []core.SourceConfig
	// AdapterConfig describes the target database
	AdapterConfig *adapter.Config
	// DB is an already connected adapter. It takes precedence over AdapterConfig.
	DB adapter.Adapter
	// StatePath is the run-history database. Empty disables run history.
	StatePath string
	// Store is an already opened run-history store. It takes precedence over StatePath.
	Store core.Store
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates a new engine. Unless Config.DB is set the database
// connection is opened on first use.
func New(cfg Config) (*Engine, error) {
	// Initialize logger (use discard handler if nil)
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Debug("initializing engine", "metrics_dir", cfg.MetricsDir, "state_path", cfg.StatePath)

	sources := cfg.Sources
	if len(sources) == 0 {
		sources = intconfig.DefaultSources()
	}

	protected := make(map[string]bool, len(sources))
	for _, name := range intconfig.ProtectedTables(sources) {
		protected[strings.ToLower(name)] = true
	}

	store := cfg.Store
	ownsStore := false
	if store == nil && cfg.StatePath != "" {
		sqlite := state.NewSQLiteStore(logger)
		if err := sqlite.Open(cfg.StatePath); err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		if err := sqlite.InitSchema(); err != nil {
			_ = sqlite.Close()
			return nil, fmt.Errorf("failed to initialize state schema: %w", err)
		}
		store = sqlite
		ownsStore = true
	}

	// Build adapter config
	var dbConfig adapter.Config
	if cfg.AdapterConfig != nil {
		dbConfig = *cfg.AdapterConfig
	}
	// Ensure adapter type is set
	if dbConfig.Type == "" {
		dbConfig.Type = intconfig.DefaultTarget
	}

	return &Engine{
		db:          cfg.DB,
		dbConfig:    dbConfig,
		dbConnected: cfg.DB != nil,
		logger:      logger,
		store:       store,
		ownsStore:   ownsStore,
		metricsDir:  cfg.MetricsDir,
		sources:     sources,
		protected:   protected,
	}, nil
}

// ensureDBConnected lazily connects to the database.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	e.logger.Debug("connecting to database", "adapter_type", e.dbConfig.Type, "path", e.dbConfig.Path)

	db, err := adapter.Open(ctx, e.dbConfig, e.logger)
	if err != nil {
		return err
	}

	e.db = db
	e.dbConnected = true

	e.logger.Debug("database connected")

	return nil
}

// Close releases all resources.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	var errs []error
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.store != nil && e.ownsStore {
		if err := e.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing engine: %v", errs)
	}
	return nil
}

// IsProtected reports whether table is a base table loaded from a source.
func (e *Engine) IsProtected(table string) bool {
	return e.protected[strings.ToLower(table)]
}

// --- Getters (public accessors) ---

// GetStateStore returns the run-history store, or nil if it is disabled.
func (e *Engine) GetStateStore() core.Store {
	return e.store
}

// GetSources returns the configured CSV sources.
func (e *Engine) GetSources() []core.SourceConfig {
	return e.sources
}

// GetMetricsDir returns the metrics directory.
func (e *Engine) GetMetricsDir() string {
	return e.metricsDir
}

// ProtectedTables returns the base table names in load order.
func (e *Engine) ProtectedTables() []string {
	return intconfig.ProtectedTables(e.sources)
}

// DB connects if needed and returns the database adapter.
func (e *Engine) DB(ctx context.Context) (adapter.Adapter, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}
	return e.db, nil
}
