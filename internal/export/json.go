package export

import (
	"encoding/json"
	"fmt"

	"github.com/liliang-cn/aicanvas/internal/canvas"
	"github.com/liliang-cn/aicanvas/internal/catalog"
	"github.com/liliang-cn/aicanvas/internal/domain"
)

// ExportJSON returns the canonical pretty-printed serialization of c
func ExportJSON(c *domain.Canvas) ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode canvas: %w", err)
	}
	return data, nil
}

// ImportJSON decodes a canvas exported by ExportJSON. Documents without an
// id, a use-case name or a known phase are rejected; accepted documents are
// normalized against the catalog. On rejection the canvas is nil and the
// error wraps domain.ErrInvalidRequest.
func ImportJSON(cat *catalog.Catalog, data []byte) (*domain.Canvas, error) {
	var c domain.Canvas
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: malformed canvas JSON: %v", domain.ErrInvalidRequest, err)
	}
	switch {
	case c.ID == "":
		return nil, fmt.Errorf("%w: canvas is missing an id", domain.ErrInvalidRequest)
	case c.UseCaseName == "":
		return nil, fmt.Errorf("%w: canvas is missing a use case name", domain.ErrInvalidRequest)
	case !c.Phase.Valid():
		return nil, fmt.Errorf("%w: unknown phase %q", domain.ErrInvalidRequest, c.Phase)
	}
	canvas.Normalize(cat, &c)
	return &c, nil
}
