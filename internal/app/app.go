// Package app wires configuration into the logger, storage backend and
// services shared by the server and the command-line tool.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/liliang-cn/aicanvas/internal/autosave"
	"github.com/liliang-cn/aicanvas/internal/catalog"
	"github.com/liliang-cn/aicanvas/internal/config"
	"github.com/liliang-cn/aicanvas/internal/export"
	"github.com/liliang-cn/aicanvas/internal/repository"
	"github.com/liliang-cn/aicanvas/internal/service"
)

// NewLogger builds a production JSON logger, or a console logger in
// development mode, at the configured level.
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// OpenKV opens the configured key-value backend
func OpenKV(cfg config.StorageConfig) (repository.KV, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := repository.NewDB(cfg.Path)
		if err != nil {
			return nil, err
		}
		return repository.NewSQLiteKV(db), nil
	case config.DriverRedis:
		return repository.NewRedisKV(cfg.RedisURL)
	case config.DriverMemory:
		return repository.NewMemoryKV(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// Services bundles the store and the services built on it
type Services struct {
	Store    *repository.Store
	Canvases *service.CanvasService
	Editor   *service.EditorService
}

// NewServices opens storage, seeds the built-in templates into an empty
// store and builds the services.
func NewServices(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Services, error) {
	kv, err := OpenKV(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	store := repository.NewStore(kv, catalog.Default(), cfg.Storage.Namespace, logger.Named("store"))
	store.SeedTemplates(ctx)

	layout := export.Layout{PageLines: cfg.Export.PageLines, Width: cfg.Export.PageWidth}
	editor := service.NewEditorService(store, autosave.Options{
		Debounce:     cfg.Autosave.Debounce,
		Interval:     cfg.Autosave.Interval,
		SavedDisplay: cfg.Autosave.SavedDisplay,
	}, logger.Named("editor"))

	return &Services{
		Store:    store,
		Canvases: service.NewCanvasService(store, layout, logger.Named("canvas")),
		Editor:   editor,
	}, nil
}

// Close ends all editing sessions and closes storage
func (s *Services) Close() error {
	s.Editor.CloseAll()
	return s.Store.Close()
}
