// Package canvas builds and edits canvas documents against the structure catalog.
package canvas

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/liliang-cn/aicanvas/internal/catalog"
	"github.com/liliang-cn/aicanvas/internal/domain"
)

// Suffix appended to names of duplicated canvases when no new name is given.
const copySuffix = " (Copy)"

// EmptySection returns blank content sized to the section's question count.
func EmptySection(cat *catalog.Catalog, sectionID string) *domain.SectionContent {
	return &domain.SectionContent{
		Answers:           make([]string, cat.QuestionCount(sectionID)),
		Notes:             "",
		Comments:          []domain.Comment{},
		ExpandedByDefault: true,
	}
}

// New creates an empty canvas with every catalog section present.
func New(cat *catalog.Catalog, name, useCaseName, owner string, now time.Time) *domain.Canvas {
	c := &domain.Canvas{
		ID:           uuid.New().String(),
		Name:         name,
		Owner:        owner,
		Phase:        domain.PhaseIdeation,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastEditedBy: owner,
		UseCaseName:  useCaseName,
		UseCaseOwner: owner,
		Readiness: domain.Readiness{
			Strategic:  domain.ReadinessRed,
			Execution:  domain.ReadinessRed,
			Validation: domain.ReadinessRed,
		},
		Collaborators: []string{},
		Tags:          []string{},
		Version:       1,
		Status:        domain.StatusDraft,
	}
	for _, layer := range domain.AllLayers {
		sections := make(domain.LayerSections)
		for _, def := range cat.SectionsByLayer(layer) {
			sections[def.ID] = EmptySection(cat, def.ID)
		}
		c.SetLayer(layer, sections)
	}
	return c
}

// FromTemplate creates a canvas seeded with a template's prefilled content.
// Identity, timestamps, readiness and version are always fresh.
func FromTemplate(cat *catalog.Catalog, t *domain.Template, name, owner string, now time.Time) *domain.Canvas {
	pre := t.PrefilledSections
	useCase := pre.UseCaseName
	if useCase == "" {
		useCase = t.Name
	}
	c := New(cat, name, useCase, owner, now)
	if pre.UseCaseOwner != "" {
		c.UseCaseOwner = pre.UseCaseOwner
	}
	if pre.Phase.Valid() {
		c.Phase = pre.Phase
	}
	if pre.Status.Valid() {
		c.Status = pre.Status
	}
	c.Tags = slices.Clone(pre.Tags)
	if c.Tags == nil {
		c.Tags = []string{}
	}
	for _, layer := range domain.AllLayers {
		target := c.Layer(layer)
		for id, content := range pre.Layer(layer) {
			if _, ok := target[id]; !ok || content == nil {
				continue
			}
			merged := content.Clone()
			merged.ExpandedByDefault = true
			if merged.Comments == nil {
				merged.Comments = []domain.Comment{}
			}
			merged.Answers = fitAnswers(merged.Answers, cat.QuestionCount(id))
			target[id] = merged
		}
	}
	return c
}

// Duplicate copies src under a new identity with fresh timestamps and version 1.
// An empty newName yields "<name> (Copy)" for both name and use-case name.
func Duplicate(src *domain.Canvas, newName string, now time.Time) *domain.Canvas {
	d := src.Clone()
	d.ID = uuid.New().String()
	if newName != "" {
		d.Name = newName
		d.UseCaseName = newName
	} else {
		d.Name = src.Name + copySuffix
		d.UseCaseName = src.UseCaseName + copySuffix
	}
	d.CreatedAt = now
	d.UpdatedAt = now
	d.Version = 1
	return d
}

// Normalize reconciles a loaded canvas with the catalog: missing sections are
// added empty, answer slots are padded or truncated to the question count, and
// sections the catalog does not know are dropped. The dropped ids are returned.
func Normalize(cat *catalog.Catalog, c *domain.Canvas) []string {
	var dropped []string
	for _, layer := range domain.AllLayers {
		sections := c.Layer(layer)
		if sections == nil {
			sections = make(domain.LayerSections)
			c.SetLayer(layer, sections)
		}
		known := make(map[string]bool)
		for _, def := range cat.SectionsByLayer(layer) {
			known[def.ID] = true
			content, ok := sections[def.ID]
			if !ok || content == nil {
				sections[def.ID] = EmptySection(cat, def.ID)
				continue
			}
			content.Answers = fitAnswers(content.Answers, len(def.Questions))
			if content.Comments == nil {
				content.Comments = []domain.Comment{}
			}
		}
		for id := range sections {
			if !known[id] {
				delete(sections, id)
				dropped = append(dropped, id)
			}
		}
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if c.Collaborators == nil {
		c.Collaborators = []string{}
	}
	if c.UpdatedAt.Before(c.CreatedAt) {
		c.UpdatedAt = c.CreatedAt
	}
	slices.Sort(dropped)
	return dropped
}

// Validate checks that every section of c is known to the catalog and sits in
// its layer, and that answer counts match question counts.
func Validate(cat *catalog.Catalog, c *domain.Canvas) error {
	count := 0
	for _, layer := range domain.AllLayers {
		for id, content := range c.Layer(layer) {
			def, ok := cat.SectionByID(id)
			if !ok || def.Layer != layer {
				return fmt.Errorf("%w: %s.%s", domain.ErrUnknownSection, layer, id)
			}
			if content == nil || len(content.Answers) != len(def.Questions) {
				return fmt.Errorf("%w: section %s must have %d answers", domain.ErrInvalidRequest, id, len(def.Questions))
			}
			count++
		}
	}
	if count != len(cat.AllSections()) {
		return fmt.Errorf("%w: canvas has %d of %d sections", domain.ErrInvalidRequest, count, len(cat.AllSections()))
	}
	return nil
}

// Section finds a section's content and layer by id.
func Section(cat *catalog.Catalog, c *domain.Canvas, sectionID string) (*domain.SectionContent, domain.Layer, error) {
	def, ok := cat.SectionByID(sectionID)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", domain.ErrUnknownSection, sectionID)
	}
	content := c.Layer(def.Layer)[sectionID]
	if content == nil {
		return nil, "", fmt.Errorf("%w: %s missing from canvas", domain.ErrUnknownSection, sectionID)
	}
	return content, def.Layer, nil
}

func fitAnswers(answers []string, n int) []string {
	if len(answers) == n {
		return answers
	}
	out := make([]string, n)
	copy(out, answers)
	return out
}
