package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Factory builds an unconnected adapter.
type Factory func(*slog.Logger) Adapter

// ErrNoAdapterType is returned when a target names no adapter type.
var ErrNoAdapterType = errors.New("adapter type not specified")

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes an adapter available under name, case-insensitively.
// Adapter packages call it from init. It panics on an empty name, a nil
// factory or a name registered twice.
func Register(name string, factory Factory) {
	key := normalize(name)
	if key == "" {
		panic("adapter: Register called with an empty name")
	}
	if factory == nil {
		panic("adapter: Register factory is nil for " + key)
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[key]; dup {
		panic("adapter: Register called twice for " + key)
	}
	registry[key] = factory
}

// NewAdapter creates an unconnected adapter for cfg.Type.
// A nil logger is replaced by the adapter's discard logger.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	key := normalize(cfg.Type)
	if key == "" {
		return nil, ErrNoAdapterType
	}

	registryMu.RLock()
	factory, ok := registry[key]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	return factory(logger), nil
}

// Open creates the adapter for cfg.Type and connects it.
// The adapter is closed again when the connection fails.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Adapter, error) {
	db, err := NewAdapter(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Connect(ctx, cfg); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database %s: %w", normalize(cfg.Type), cfg.Path, err)
	}
	return db, nil
}

// ListAdapters returns the registered adapter names, sorted.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether name is a registered adapter type.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[normalize(name)]
	return ok
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// UnknownAdapterError is returned when target.type names no registered adapter.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q: set target.type in leapmetrics.yaml to one of %s",
		e.Type, strings.Join(e.Available, ", "))
}
