package repository

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/liliang-cn/aicanvas/internal/canvas"
	"github.com/liliang-cn/aicanvas/internal/domain"
	"github.com/liliang-cn/aicanvas/internal/metrics"
)

// GetAllCanvases returns every stored canvas, normalized against the catalog.
// A missing, corrupt or unreadable collection yields an empty list.
func (s *Store) GetAllCanvases(ctx context.Context) []*domain.Canvas {
	canvases, err := s.loadCanvases(ctx)
	if err != nil {
		return []*domain.Canvas{}
	}
	return canvases
}

// loadCanvases reads the collection for a read-modify-write. A missing or
// corrupt collection is empty; a failed backend read is returned so the
// caller does not overwrite records it could not see.
func (s *Store) loadCanvases(ctx context.Context) ([]*domain.Canvas, error) {
	var canvases []*domain.Canvas
	found, err := s.readJSON(ctx, s.canvasesKey(), &canvases)
	if err != nil {
		return nil, err
	}
	if !found {
		return []*domain.Canvas{}, nil
	}
	out := make([]*domain.Canvas, 0, len(canvases))
	for _, c := range canvases {
		if c == nil {
			continue
		}
		s.normalize(c)
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) normalize(c *domain.Canvas) {
	if dropped := canvas.Normalize(s.cat, c); len(dropped) > 0 {
		s.logger.Warn("dropped unknown sections",
			zap.String("canvas_id", c.ID),
			zap.Strings("sections", dropped),
		)
	}
}

// GetCanvasByID returns the canvas with the given id, or nil.
func (s *Store) GetCanvasByID(ctx context.Context, id string) *domain.Canvas {
	for _, c := range s.GetAllCanvases(ctx) {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// SaveCanvas upserts c by id, stamping UpdatedAt with the current time.
// On success c.UpdatedAt reflects the stored value.
func (s *Store) SaveCanvas(ctx context.Context, c *domain.Canvas) bool {
	canvases, err := s.loadCanvases(ctx)
	if err != nil {
		return false
	}
	stored := c.Clone()
	stored.Touch(s.now())

	idx := slices.IndexFunc(canvases, func(x *domain.Canvas) bool { return x.ID == c.ID })
	if idx >= 0 {
		canvases[idx] = stored
	} else {
		canvases = append(canvases, stored)
	}

	if !s.writeJSON(ctx, s.canvasesKey(), canvases) {
		return false
	}
	c.UpdatedAt = stored.UpdatedAt
	return true
}

// DeleteCanvas removes the canvas and its autosave slot. The result reflects
// the main record; a failed autosave removal is logged and tolerated.
func (s *Store) DeleteCanvas(ctx context.Context, id string) bool {
	canvases, err := s.loadCanvases(ctx)
	if err != nil {
		return false
	}
	filtered := slices.DeleteFunc(canvases, func(c *domain.Canvas) bool { return c.ID == id })
	if !s.writeJSON(ctx, s.canvasesKey(), filtered) {
		return false
	}
	if err := s.kv.Delete(ctx, s.autosaveKey(id)); err != nil {
		s.logger.Warn("canvas deleted but autosave slot remains",
			zap.String("canvas_id", id),
			zap.Error(err),
		)
	}
	return true
}

// DuplicateCanvas copies the canvas under a new identity and persists it.
// It returns nil when the source is missing or the copy cannot be written.
func (s *Store) DuplicateCanvas(ctx context.Context, id, newName string) *domain.Canvas {
	src := s.GetCanvasByID(ctx, id)
	if src == nil {
		return nil
	}
	dup := canvas.Duplicate(src, newName, s.now())
	if !s.SaveCanvas(ctx, dup) {
		return nil
	}
	return dup
}

// FilterCanvases returns summaries of the canvases matching every provided facet.
func (s *Store) FilterCanvases(ctx context.Context, filters domain.CanvasFilters) []domain.CanvasSummary {
	fold := cases.Fold()
	query := fold.String(strings.TrimSpace(filters.SearchQuery))

	summaries := []domain.CanvasSummary{}
	for _, c := range s.GetAllCanvases(ctx) {
		if len(filters.Phases) > 0 && !slices.Contains(filters.Phases, c.Phase) {
			continue
		}
		if len(filters.Statuses) > 0 && !slices.Contains(filters.Statuses, c.Status) {
			continue
		}
		if len(filters.Tags) > 0 && !slices.ContainsFunc(filters.Tags, c.HasTag) {
			continue
		}
		if r := filters.DateRange; r != nil {
			if !r.Start.IsZero() && c.UpdatedAt.Before(r.Start) {
				continue
			}
			if !r.End.IsZero() && c.UpdatedAt.After(r.End) {
				continue
			}
		}
		if query != "" && !matchesQuery(fold, query, c) {
			continue
		}
		summaries = append(summaries, Summarize(c))
	}
	return summaries
}

func matchesQuery(fold cases.Caser, query string, c *domain.Canvas) bool {
	for _, field := range []string{c.Name, c.UseCaseName, c.Owner, c.UseCaseOwner} {
		if strings.Contains(fold.String(field), query) {
			return true
		}
	}
	return false
}

// Summarize builds the list view of c with a freshly computed completion.
func Summarize(c *domain.Canvas) domain.CanvasSummary {
	return domain.CanvasSummary{
		ID:                   c.ID,
		Name:                 c.Name,
		UseCaseName:          c.UseCaseName,
		Phase:                c.Phase,
		Status:               c.Status,
		Readiness:            c.Readiness,
		CompletionPercentage: metrics.FlatCompletion(c),
		LastUpdated:          c.UpdatedAt,
		Owner:                c.UseCaseOwner,
		Tags:                 slices.Clone(c.Tags),
	}
}

// SaveAutosave writes a snapshot of c into its autosave slot, stamped now.
func (s *Store) SaveAutosave(ctx context.Context, id string, c *domain.Canvas) bool {
	snap := c.Clone()
	snap.Touch(s.now())
	return s.writeJSON(ctx, s.autosaveKey(id), snap)
}

// GetAutosave returns the autosave snapshot for id, or nil.
func (s *Store) GetAutosave(ctx context.Context, id string) *domain.Canvas {
	var c domain.Canvas
	if found, _ := s.readJSON(ctx, s.autosaveKey(id), &c); !found {
		return nil
	}
	s.normalize(&c)
	return &c
}

// ClearAutosave removes the autosave slot for id.
func (s *Store) ClearAutosave(ctx context.Context, id string) bool {
	return s.remove(ctx, s.autosaveKey(id))
}
