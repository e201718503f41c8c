package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/liliang-cn/aicanvas/internal/config"
	"github.com/liliang-cn/aicanvas/internal/domain"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LogConfig{Level: "debug", Development: true})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger(config.LogConfig{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = NewLogger(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestOpenKV(t *testing.T) {
	s := miniredis.RunT(t)
	drivers := []config.StorageConfig{
		{Driver: config.DriverMemory},
		{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "canvas.db")},
		{Driver: config.DriverRedis, RedisURL: "redis://" + s.Addr()},
	}
	for _, cfg := range drivers {
		t.Run(cfg.Driver, func(t *testing.T) {
			kv, err := OpenKV(cfg)
			require.NoError(t, err)
			defer kv.Close()

			ctx := context.Background()
			require.NoError(t, kv.Set(ctx, "k", []byte("v")))
			got, err := kv.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, []byte("v"), got)
		})
	}

	_, err := OpenKV(config.StorageConfig{Driver: "etcd"})
	assert.Error(t, err)
}

func TestNewServicesSeedsTemplates(t *testing.T) {
	cfg := &config.Config{
		Storage:  config.StorageConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "canvas.db"), Namespace: "test"},
		Autosave: config.AutosaveConfig{Debounce: 2 * time.Second, Interval: 30 * time.Second, SavedDisplay: 3 * time.Second},
		Export:   config.ExportConfig{PageLines: 50, PageWidth: 90},
	}
	ctx := context.Background()

	svc, err := NewServices(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	seeded := svc.Canvases.ListTemplates(ctx, domain.TemplateFilters{})
	assert.NotEmpty(t, seeded)

	_, err = svc.Canvases.CreateCanvas(ctx, &domain.CreateCanvasRequest{Name: "Churn POC", UseCaseName: "Predict Churn", Owner: "Dana"})
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	// Reopening keeps existing data and does not reseed.
	svc, err = NewServices(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer svc.Close()
	assert.Equal(t, 1, svc.Canvases.Stats(ctx).CanvasCount)
	assert.Len(t, svc.Canvases.ListTemplates(ctx, domain.TemplateFilters{}), len(seeded))
}
