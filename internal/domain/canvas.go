package domain

import (
	"slices"
	"time"
)

// Phase is a lifecycle stage of an initiative. Phases are strictly ordered.
type Phase string

const (
	PhaseIdeation     Phase = "ideation"
	PhasePOC          Phase = "poc"
	PhasePilot        Phase = "pilot"
	PhaseProduction   Phase = "production"
	PhaseOptimization Phase = "optimization"
)

// AllPhases lists phases in lifecycle order.
var AllPhases = []Phase{PhaseIdeation, PhasePOC, PhasePilot, PhaseProduction, PhaseOptimization}

// Index returns the position of the phase in AllPhases, or -1 if unknown.
func (p Phase) Index() int {
	return slices.Index(AllPhases, p)
}

// Valid reports whether p is a recognized phase.
func (p Phase) Valid() bool {
	return p.Index() >= 0
}

// ReadinessLevel is a traffic-light assessment of a layer.
type ReadinessLevel string

const (
	ReadinessRed    ReadinessLevel = "red"
	ReadinessYellow ReadinessLevel = "yellow"
	ReadinessGreen  ReadinessLevel = "green"
)

// Valid reports whether r is a recognized readiness level.
func (r ReadinessLevel) Valid() bool {
	switch r {
	case ReadinessRed, ReadinessYellow, ReadinessGreen:
		return true
	}
	return false
}

// Layer groups related sections of a canvas.
type Layer string

const (
	LayerStrategic  Layer = "strategic"
	LayerExecution  Layer = "execution"
	LayerValidation Layer = "validation"
)

// AllLayers lists layers in document order.
var AllLayers = []Layer{LayerStrategic, LayerExecution, LayerValidation}

// Valid reports whether l is a recognized layer.
func (l Layer) Valid() bool {
	return slices.Contains(AllLayers, l)
}

// Status is the lifecycle status of a canvas document.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusArchived   Status = "archived"
)

// Valid reports whether s is a recognized status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusInProgress, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// Comment is a discussion note attached to a section
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Resolved  bool      `json:"resolved"`
}

// SectionContent holds the answers for one section of one canvas.
// Answers has exactly one slot per catalog question, in question order.
type SectionContent struct {
	Answers           []string  `json:"answers" yaml:"answers"`
	Notes             string    `json:"notes" yaml:"notes"`
	Comments          []Comment `json:"comments" yaml:"comments"`
	ExpandedByDefault bool      `json:"expandedByDefault" yaml:"expandedByDefault"`
}

// Clone returns a deep copy of the section content.
func (s *SectionContent) Clone() *SectionContent {
	if s == nil {
		return nil
	}
	out := *s
	out.Answers = slices.Clone(s.Answers)
	out.Comments = slices.Clone(s.Comments)
	return &out
}

// LayerSections maps section ids to their content within one layer.
type LayerSections map[string]*SectionContent

// Readiness holds one readiness level per layer
type Readiness struct {
	Strategic  ReadinessLevel `json:"strategic"`
	Execution  ReadinessLevel `json:"execution"`
	Validation ReadinessLevel `json:"validation"`
}

// Get returns the readiness level of a layer.
func (r Readiness) Get(layer Layer) ReadinessLevel {
	switch layer {
	case LayerStrategic:
		return r.Strategic
	case LayerExecution:
		return r.Execution
	case LayerValidation:
		return r.Validation
	}
	return ""
}

// Set updates the readiness level of a layer. Unknown layers are ignored.
func (r *Readiness) Set(layer Layer, level ReadinessLevel) {
	switch layer {
	case LayerStrategic:
		r.Strategic = level
	case LayerExecution:
		r.Execution = level
	case LayerValidation:
		r.Validation = level
	}
}

// AnyRed reports whether at least one layer is at red.
func (r Readiness) AnyRed() bool {
	return r.Strategic == ReadinessRed || r.Execution == ReadinessRed || r.Validation == ReadinessRed
}

// Canvas is the per-initiative document.
type Canvas struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Owner        string    `json:"owner"`
	Phase        Phase     `json:"phase"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	LastEditedBy string    `json:"lastEditedBy"`

	UseCaseName  string `json:"useCaseName"`
	UseCaseOwner string `json:"useCaseOwner"`

	Readiness Readiness `json:"readiness"`

	Strategic  LayerSections `json:"strategic"`
	Execution  LayerSections `json:"execution"`
	Validation LayerSections `json:"validation"`

	Collaborators []string `json:"collaborators"`
	Tags          []string `json:"tags"`
	Version       int      `json:"version"`
	Status        Status   `json:"status"`
}

// Layer returns the section map for a layer, or nil for an unknown layer.
func (c *Canvas) Layer(layer Layer) LayerSections {
	switch layer {
	case LayerStrategic:
		return c.Strategic
	case LayerExecution:
		return c.Execution
	case LayerValidation:
		return c.Validation
	}
	return nil
}

// SetLayer replaces the section map for a layer.
func (c *Canvas) SetLayer(layer Layer, sections LayerSections) {
	switch layer {
	case LayerStrategic:
		c.Strategic = sections
	case LayerExecution:
		c.Execution = sections
	case LayerValidation:
		c.Validation = sections
	}
}

// Touch sets UpdatedAt to now, never earlier than CreatedAt.
func (c *Canvas) Touch(now time.Time) {
	if now.Before(c.CreatedAt) {
		now = c.CreatedAt
	}
	c.UpdatedAt = now
}

// Clone returns a deep copy of the canvas.
func (c *Canvas) Clone() *Canvas {
	if c == nil {
		return nil
	}
	out := *c
	for _, layer := range AllLayers {
		src := c.Layer(layer)
		if src == nil {
			continue
		}
		dst := make(LayerSections, len(src))
		for id, content := range src {
			dst[id] = content.Clone()
		}
		out.SetLayer(layer, dst)
	}
	out.Collaborators = slices.Clone(c.Collaborators)
	out.Tags = slices.Clone(c.Tags)
	return &out
}

// HasTag reports whether the canvas carries the given tag.
func (c *Canvas) HasTag(tag string) bool {
	return slices.Contains(c.Tags, tag)
}

// CanvasSummary is the lightweight list view of a canvas
type CanvasSummary struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	UseCaseName          string    `json:"useCaseName"`
	Phase                Phase     `json:"phase"`
	Status               Status    `json:"status"`
	Readiness            Readiness `json:"readiness"`
	CompletionPercentage int       `json:"completionPercentage"`
	LastUpdated          time.Time `json:"lastUpdated"`
	Owner                string    `json:"owner"`
	Tags                 []string  `json:"tags"`
}

// DateRange bounds the last-updated time of filtered canvases. Zero ends are open.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CanvasFilters selects canvases. Facets combine with AND; empty facets match everything.
type CanvasFilters struct {
	Phases      []Phase    `json:"phase,omitempty"`
	Statuses    []Status   `json:"status,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	DateRange   *DateRange `json:"dateRange,omitempty"`
	SearchQuery string     `json:"searchQuery,omitempty"`
}
