package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/liliang-cn/aicanvas/internal/canvas"
	"github.com/liliang-cn/aicanvas/internal/catalog"
	"github.com/liliang-cn/aicanvas/internal/domain"
	"github.com/liliang-cn/aicanvas/internal/export"
	"github.com/liliang-cn/aicanvas/internal/metrics"
	"github.com/liliang-cn/aicanvas/internal/repository"
)

// CanvasService handles canvas, template and whole-store operations
type CanvasService struct {
	store  *repository.Store
	cat    *catalog.Catalog
	editor *canvas.Editor
	layout export.Layout
	now    func() time.Time
	logger *zap.Logger
}

// NewCanvasService creates a new canvas service
func NewCanvasService(store *repository.Store, layout export.Layout, logger *zap.Logger) *CanvasService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CanvasService{
		store:  store,
		cat:    store.Catalog(),
		editor: canvas.NewEditor(store.Catalog(), time.Now),
		layout: layout,
		now:    time.Now,
		logger: logger,
	}
}

// SetClock replaces the time source for created canvases and edits
func (s *CanvasService) SetClock(now func() time.Time) {
	s.now = now
	s.editor = canvas.NewEditor(s.cat, now)
}

// Catalog returns the structure catalog
func (s *CanvasService) Catalog() *catalog.Catalog {
	return s.cat
}

// Canvas operations

func (s *CanvasService) CreateCanvas(ctx context.Context, req *domain.CreateCanvasRequest) (*domain.Canvas, error) {
	name := strings.TrimSpace(req.Name)
	owner := strings.TrimSpace(req.Owner)
	useCase := strings.TrimSpace(req.UseCaseName)
	if name == "" || owner == "" {
		return nil, fmt.Errorf("%w: name and owner are required", domain.ErrInvalidRequest)
	}

	var c *domain.Canvas
	if req.TemplateID != "" {
		t := s.store.GetTemplateByID(ctx, req.TemplateID)
		if t == nil {
			return nil, domain.ErrNotFound
		}
		c = canvas.FromTemplate(s.cat, t, name, owner, s.now())
		if useCase != "" {
			c.UseCaseName = useCase
		}
		t.UsageCount++
		if !s.store.SaveTemplate(ctx, t) {
			s.logger.Warn("failed to record template usage", zap.String("template_id", t.ID))
		}
	} else {
		if useCase == "" {
			return nil, fmt.Errorf("%w: use case name is required", domain.ErrInvalidRequest)
		}
		c = canvas.New(s.cat, name, useCase, owner, s.now())
	}

	if !s.store.SaveCanvas(ctx, c) {
		return nil, domain.ErrStorage
	}
	s.logger.Info("canvas created", zap.String("canvas_id", c.ID), zap.String("template_id", req.TemplateID))
	return c, nil
}

func (s *CanvasService) GetCanvas(ctx context.Context, id string) (*domain.Canvas, error) {
	c := s.store.GetCanvasByID(ctx, id)
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (s *CanvasService) ListCanvases(ctx context.Context, filters domain.CanvasFilters) []domain.CanvasSummary {
	return s.store.FilterCanvases(ctx, filters)
}

// UpdateCanvas patches top-level fields of the stored record directly,
// outside any editing session.
func (s *CanvasService) UpdateCanvas(ctx context.Context, id string, req *domain.UpdateCanvasRequest) (*domain.Canvas, error) {
	c, err := s.GetCanvas(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.editor.UpdateFields(c, req); err != nil {
		return nil, err
	}
	if !s.store.SaveCanvas(ctx, c) {
		return nil, domain.ErrStorage
	}
	return c, nil
}

func (s *CanvasService) DeleteCanvas(ctx context.Context, id string) error {
	if s.store.GetCanvasByID(ctx, id) == nil {
		return domain.ErrNotFound
	}
	if !s.store.DeleteCanvas(ctx, id) {
		return domain.ErrStorage
	}
	s.logger.Info("canvas deleted", zap.String("canvas_id", id))
	return nil
}

func (s *CanvasService) DuplicateCanvas(ctx context.Context, id, newName string) (*domain.Canvas, error) {
	if s.store.GetCanvasByID(ctx, id) == nil {
		return nil, domain.ErrNotFound
	}
	dup := s.store.DuplicateCanvas(ctx, id, strings.TrimSpace(newName))
	if dup == nil {
		return nil, domain.ErrStorage
	}
	return dup, nil
}

func (s *CanvasService) Metrics(ctx context.Context, id string) (*metrics.Report, error) {
	c, err := s.GetCanvas(ctx, id)
	if err != nil {
		return nil, err
	}
	r := metrics.Compute(c)
	return &r, nil
}

// Export and import

// ExportCanvas renders the canvas in the given format and returns the
// document with its download filename.
func (s *CanvasService) ExportCanvas(ctx context.Context, id string, f export.Format, opts export.Options) ([]byte, string, error) {
	c, err := s.GetCanvas(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = s.now()
	}

	var data []byte
	switch f {
	case export.FormatJSON:
		data, err = export.ExportJSON(c)
		if err != nil {
			return nil, "", err
		}
	case export.FormatMarkdown:
		data = []byte(export.Markdown(s.cat, c, opts))
	case export.FormatText:
		data = []byte(export.Text(s.cat, c, opts, s.layout))
	default:
		return nil, "", fmt.Errorf("%w: unsupported export format %q", domain.ErrInvalidRequest, f)
	}
	return data, export.Filename(c, f), nil
}

// ImportCanvas stores a canvas decoded from an exported JSON document. When a
// canvas with the same id exists it is replaced if overwrite is set, otherwise
// the import is stored under a fresh id.
func (s *CanvasService) ImportCanvas(ctx context.Context, data []byte, overwrite bool) (*domain.Canvas, error) {
	c, err := export.ImportJSON(s.cat, data)
	if err != nil {
		return nil, err
	}
	if existing := s.store.GetCanvasByID(ctx, c.ID); existing != nil && !overwrite {
		old := c.ID
		c.ID = uuid.New().String()
		s.logger.Info("imported canvas id already in use, assigned new id",
			zap.String("original_id", old), zap.String("canvas_id", c.ID))
	}
	if !s.store.SaveCanvas(ctx, c) {
		return nil, domain.ErrStorage
	}
	return c, nil
}

// Template operations

func (s *CanvasService) ListTemplates(ctx context.Context, filters domain.TemplateFilters) []domain.TemplateSummary {
	return s.store.FilterTemplates(ctx, filters)
}

func (s *CanvasService) GetTemplate(ctx context.Context, id string) (*domain.Template, error) {
	t := s.store.GetTemplateByID(ctx, id)
	if t == nil {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

// SaveTemplate stores a user-defined template. A missing id is generated.
func (s *CanvasService) SaveTemplate(ctx context.Context, t *domain.Template) (*domain.Template, error) {
	if strings.TrimSpace(t.Name) == "" {
		return nil, fmt.Errorf("%w: template name is required", domain.ErrInvalidRequest)
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
		t.UpdatedAt = t.CreatedAt
	}
	if t.Category == "" {
		t.Category = domain.TemplateCategoryCustom
	}
	if !s.store.SaveTemplate(ctx, t) {
		return nil, domain.ErrStorage
	}
	return t, nil
}

func (s *CanvasService) DeleteTemplate(ctx context.Context, id string) error {
	if s.store.GetTemplateByID(ctx, id) == nil {
		return domain.ErrNotFound
	}
	if !s.store.DeleteTemplate(ctx, id) {
		return domain.ErrStorage
	}
	return nil
}

// Whole-store operations

func (s *CanvasService) ExportAll(ctx context.Context) *domain.DataBundle {
	return s.store.ExportAllData(ctx)
}

func (s *CanvasService) ImportAll(ctx context.Context, data []byte) error {
	if !s.store.ImportData(ctx, data) {
		return fmt.Errorf("%w: data bundle could not be imported", domain.ErrInvalidRequest)
	}
	return nil
}

func (s *CanvasService) Stats(ctx context.Context) domain.StorageStats {
	return s.store.Stats(ctx)
}

func (s *CanvasService) GetSettings(ctx context.Context) map[string]any {
	settings := s.store.GetSettings(ctx)
	if settings == nil {
		return map[string]any{}
	}
	return settings
}

func (s *CanvasService) SaveSettings(ctx context.Context, settings map[string]any) error {
	if !s.store.SaveSettings(ctx, settings) {
		return domain.ErrStorage
	}
	return nil
}

// ClearAll removes all stored data and reseeds the built-in templates
func (s *CanvasService) ClearAll(ctx context.Context) error {
	if !s.store.ClearAllData(ctx) {
		return domain.ErrStorage
	}
	s.store.SeedTemplates(ctx)
	s.logger.Warn("all data cleared")
	return nil
}
