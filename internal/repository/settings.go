package repository

import (
	"context"
	"encoding/json"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/liliang-cn/aicanvas/internal/domain"
)

// BundleVersion is written into exported data bundles
const BundleVersion = "1.0"

var timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})$`)

// reviveTimestamps replaces every string in v that looks like an RFC 3339
// timestamp with the time.Time it encodes. Other values pass through unchanged.
func reviveTimestamps(v any) any {
	switch x := v.(type) {
	case string:
		if timestampPattern.MatchString(x) {
			if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
				return t
			}
		}
		return x
	case map[string]any:
		for k, val := range x {
			x[k] = reviveTimestamps(val)
		}
		return x
	case []any:
		for i, val := range x {
			x[i] = reviveTimestamps(val)
		}
		return x
	}
	return v
}

// GetSettings returns the settings blob with timestamps revived, or nil
func (s *Store) GetSettings(ctx context.Context) map[string]any {
	var settings map[string]any
	if found, _ := s.readJSON(ctx, s.settingsKey(), &settings); !found {
		return nil
	}
	return reviveTimestamps(settings).(map[string]any)
}

// SaveSettings replaces the settings blob
func (s *Store) SaveSettings(ctx context.Context, settings map[string]any) bool {
	return s.writeJSON(ctx, s.settingsKey(), settings)
}

// ExportAllData returns every canvas and template as one bundle
func (s *Store) ExportAllData(ctx context.Context) *domain.DataBundle {
	return &domain.DataBundle{
		Canvases:   s.GetAllCanvases(ctx),
		Templates:  s.GetAllTemplates(ctx),
		ExportedAt: s.now().UTC(),
		Version:    BundleVersion,
	}
}

// ImportData replaces the collections present in the encoded bundle.
// Absent collections are left untouched.
func (s *Store) ImportData(ctx context.Context, data []byte) bool {
	var bundle domain.DataBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		s.logger.Error("failed to parse data bundle", zap.Error(err))
		return false
	}
	ok := true
	if bundle.Canvases != nil {
		canvases := make([]*domain.Canvas, 0, len(bundle.Canvases))
		for _, c := range bundle.Canvases {
			if c == nil {
				continue
			}
			s.normalize(c)
			canvases = append(canvases, c)
		}
		ok = s.writeJSON(ctx, s.canvasesKey(), canvases) && ok
	}
	if bundle.Templates != nil {
		ok = s.writeJSON(ctx, s.templatesKey(), bundle.Templates) && ok
	}
	return ok
}

// Stats reports collection sizes and the encoded size of the full bundle
func (s *Store) Stats(ctx context.Context) domain.StorageStats {
	bundle := s.ExportAllData(ctx)
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		s.logger.Error("failed to encode data bundle", zap.Error(err))
	}
	return domain.StorageStats{
		CanvasCount:   len(bundle.Canvases),
		TemplateCount: len(bundle.Templates),
		StorageSize:   len(data),
	}
}

// ClearAllData removes canvases, templates, settings and every autosave slot
func (s *Store) ClearAllData(ctx context.Context) bool {
	ok := s.remove(ctx, s.canvasesKey())
	ok = s.remove(ctx, s.templatesKey()) && ok
	ok = s.remove(ctx, s.settingsKey()) && ok

	keys, err := s.kv.Keys(ctx, s.autosavePrefix())
	if err != nil {
		s.logger.Error("failed to list autosave slots", zap.Error(err))
		return false
	}
	for _, k := range keys {
		ok = s.remove(ctx, k) && ok
	}
	return ok
}
