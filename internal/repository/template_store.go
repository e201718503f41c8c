package repository

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/liliang-cn/aicanvas/internal/catalog"
	"github.com/liliang-cn/aicanvas/internal/domain"
)

// GetAllTemplates returns every stored template
func (s *Store) GetAllTemplates(ctx context.Context) []*domain.Template {
	templates, err := s.loadTemplates(ctx)
	if err != nil {
		return []*domain.Template{}
	}
	return templates
}

// loadTemplates is the read half of a template read-modify-write
func (s *Store) loadTemplates(ctx context.Context) ([]*domain.Template, error) {
	var templates []*domain.Template
	found, err := s.readJSON(ctx, s.templatesKey(), &templates)
	if err != nil {
		return nil, err
	}
	if !found {
		return []*domain.Template{}, nil
	}
	return slices.DeleteFunc(templates, func(t *domain.Template) bool { return t == nil }), nil
}

// GetTemplateByID returns the template with the given id, or nil
func (s *Store) GetTemplateByID(ctx context.Context, id string) *domain.Template {
	for _, t := range s.GetAllTemplates(ctx) {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// SaveTemplate upserts t by id. Existing templates get a fresh UpdatedAt.
func (s *Store) SaveTemplate(ctx context.Context, t *domain.Template) bool {
	templates, err := s.loadTemplates(ctx)
	if err != nil {
		return false
	}
	stored := *t
	idx := slices.IndexFunc(templates, func(x *domain.Template) bool { return x.ID == t.ID })
	if idx >= 0 {
		stored.UpdatedAt = s.now()
		templates[idx] = &stored
	} else {
		templates = append(templates, &stored)
	}
	if !s.writeJSON(ctx, s.templatesKey(), templates) {
		return false
	}
	t.UpdatedAt = stored.UpdatedAt
	return true
}

// DeleteTemplate removes the template with the given id
func (s *Store) DeleteTemplate(ctx context.Context, id string) bool {
	templates, err := s.loadTemplates(ctx)
	if err != nil {
		return false
	}
	filtered := slices.DeleteFunc(templates, func(t *domain.Template) bool { return t.ID == id })
	return s.writeJSON(ctx, s.templatesKey(), filtered)
}

// SeedTemplates writes the built-in templates when the collection is empty.
// It reports how many templates were written. Nothing is written when the
// collection cannot be read.
func (s *Store) SeedTemplates(ctx context.Context) int {
	if templates, err := s.loadTemplates(ctx); err != nil || len(templates) > 0 {
		return 0
	}
	builtins, err := catalog.BuiltinTemplates(s.now())
	if err != nil {
		s.logger.Error("failed to load built-in templates", zap.Error(err))
		return 0
	}
	if !s.writeJSON(ctx, s.templatesKey(), builtins) {
		return 0
	}
	s.logger.Info("seeded built-in templates", zap.Int("count", len(builtins)))
	return len(builtins)
}

// FilterTemplates returns summaries of templates matching every provided facet
func (s *Store) FilterTemplates(ctx context.Context, filters domain.TemplateFilters) []domain.TemplateSummary {
	fold := cases.Fold()
	query := fold.String(strings.TrimSpace(filters.SearchQuery))

	out := []domain.TemplateSummary{}
	for _, t := range s.GetAllTemplates(ctx) {
		if len(filters.Categories) > 0 && !slices.Contains(filters.Categories, t.Category) {
			continue
		}
		if len(filters.Industries) > 0 && !slices.Contains(filters.Industries, t.Industry) {
			continue
		}
		if len(filters.AITypes) > 0 && !slices.ContainsFunc(filters.AITypes, func(a string) bool {
			return slices.Contains(t.AIType, a)
		}) {
			continue
		}
		if query != "" &&
			!strings.Contains(fold.String(t.Name), query) &&
			!strings.Contains(fold.String(t.Description), query) {
			continue
		}
		out = append(out, t.Summary())
	}
	return out
}
