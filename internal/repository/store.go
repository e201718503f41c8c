package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/liliang-cn/aicanvas/internal/catalog"
)

// DefaultNamespace prefixes every key the store writes
const DefaultNamespace = "ai-canvas"

// Store is the persistence boundary for canvases, templates, settings and
// autosave snapshots. Backend failures are logged and reported as false, nil
// or empty results; no method returns an error.
type Store struct {
	kv     KV
	cat    *catalog.Catalog
	logger *zap.Logger
	ns     string
	now    func() time.Time
}

// NewStore creates a store over kv. An empty namespace selects DefaultNamespace.
func NewStore(kv KV, cat *catalog.Catalog, namespace string, logger *zap.Logger) *Store {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: kv, cat: cat, logger: logger, ns: namespace, now: time.Now}
}

// SetClock replaces the time source used to stamp writes
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Catalog returns the catalog records are normalized against
func (s *Store) Catalog() *catalog.Catalog {
	return s.cat
}

// Close closes the backend
func (s *Store) Close() error {
	return s.kv.Close()
}

func (s *Store) canvasesKey() string  { return s.ns + "-canvases" }
func (s *Store) templatesKey() string { return s.ns + "-templates" }
func (s *Store) settingsKey() string  { return s.ns + "-settings" }
func (s *Store) autosavePrefix() string {
	return s.ns + "-autosave-"
}
func (s *Store) autosaveKey(id string) string {
	return s.autosavePrefix() + id
}

// readJSON decodes the record at key into v. found is false when the key is
// absent or the record is corrupt; err is set only when the backend read
// itself failed, in which case the stored state is unknown.
func (s *Store) readJSON(ctx context.Context, key string, v any) (found bool, err error) {
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		s.logger.Error("failed to read from storage", zap.String("key", key), zap.Error(err))
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Error("corrupt record in storage", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	return true, nil
}

func (s *Store) writeJSON(ctx context.Context, key string, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode record", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		s.logger.Error("failed to write to storage", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *Store) remove(ctx context.Context, key string) bool {
	if err := s.kv.Delete(ctx, key); err != nil {
		s.logger.Error("failed to remove from storage", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}
