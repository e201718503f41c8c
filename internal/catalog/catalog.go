// Package catalog holds the static structure of a canvas: the sections of each
// layer, their questions, and how relevant each section is in each phase.
package catalog

import (
	_ "embed"
	"fmt"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/liliang-cn/aicanvas/internal/domain"
)

//go:embed data/sections.yaml
var sectionsYAML []byte

//go:embed data/phases.yaml
var phasesYAML []byte

// SectionCount is the number of sections every canvas carries.
const SectionCount = 14

// Relevance is how much a section matters in a phase
type Relevance string

const (
	RelevanceHigh   Relevance = "high"
	RelevanceMedium Relevance = "medium"
	RelevanceLow    Relevance = "low"
)

// SectionDefinition describes one section of the canvas
type SectionDefinition struct {
	ID             string         `yaml:"id" json:"id"`
	Title          string         `yaml:"title" json:"title"`
	Layer          domain.Layer   `yaml:"layer" json:"layer"`
	Order          int            `yaml:"order" json:"order"`
	Icon           string         `yaml:"icon" json:"icon"`
	Description    string         `yaml:"description" json:"description"`
	Questions      []string       `yaml:"questions" json:"questions"`
	Examples       []string       `yaml:"examples" json:"examples"`
	Tips           []string       `yaml:"tips" json:"tips"`
	RelevantPhases []domain.Phase `yaml:"relevantPhases" json:"relevantPhases"`
}

// PhaseInfo describes a lifecycle phase
type PhaseInfo struct {
	ID           domain.Phase `yaml:"id" json:"id"`
	Name         string       `yaml:"name" json:"name"`
	Description  string       `yaml:"description" json:"description"`
	Icon         string       `yaml:"icon" json:"icon"`
	Color        string       `yaml:"color" json:"color"`
	Objectives   []string     `yaml:"objectives" json:"objectives"`
	Deliverables []string     `yaml:"deliverables" json:"deliverables"`
	Duration     string       `yaml:"duration" json:"duration"`
}

// LayerInfo describes a layer
type LayerInfo struct {
	Name        string `yaml:"name" json:"name"`
	Subtitle    string `yaml:"subtitle" json:"subtitle"`
	Description string `yaml:"description" json:"description"`
}

type sectionsFile struct {
	Sections []SectionDefinition `yaml:"sections"`
}

type phasesFile struct {
	Layers    map[domain.Layer]LayerInfo            `yaml:"layers"`
	Phases    []PhaseInfo                           `yaml:"phases"`
	Relevance map[string]map[domain.Phase]Relevance `yaml:"relevance"`
}

// Catalog is the read-only structure definition. It is safe for concurrent use.
type Catalog struct {
	sections  []SectionDefinition
	byID      map[string]int
	layers    map[domain.Layer]LayerInfo
	phases    map[domain.Phase]PhaseInfo
	relevance map[string]map[domain.Phase]Relevance
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := Parse(sectionsYAML, phasesYAML)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded data: %v", err))
	}
	return c
})

// Default returns the catalog built from the embedded structure files.
func Default() *Catalog {
	return defaultCatalog()
}

// Parse builds a catalog from section and phase YAML documents.
func Parse(sectionsDoc, phasesDoc []byte) (*Catalog, error) {
	var sf sectionsFile
	if err := yaml.Unmarshal(sectionsDoc, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse sections: %w", err)
	}
	var pf phasesFile
	if err := yaml.Unmarshal(phasesDoc, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse phases: %w", err)
	}

	c := &Catalog{
		sections:  sf.Sections,
		byID:      make(map[string]int, len(sf.Sections)),
		layers:    pf.Layers,
		phases:    make(map[domain.Phase]PhaseInfo, len(pf.Phases)),
		relevance: pf.Relevance,
	}
	slices.SortStableFunc(c.sections, func(a, b SectionDefinition) int {
		return a.Order - b.Order
	})
	for i, s := range c.sections {
		if !s.Layer.Valid() {
			return nil, fmt.Errorf("section %s: unknown layer %q", s.ID, s.Layer)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("section %s: duplicate id", s.ID)
		}
		c.byID[s.ID] = i
		for _, phase := range domain.AllPhases {
			if _, ok := c.relevance[s.ID][phase]; !ok {
				return nil, fmt.Errorf("section %s: missing relevance for phase %s", s.ID, phase)
			}
		}
	}
	for _, p := range pf.Phases {
		if !p.ID.Valid() {
			return nil, fmt.Errorf("unknown phase %q", p.ID)
		}
		c.phases[p.ID] = p
	}
	return c, nil
}

// AllSections returns every section in catalog order.
func (c *Catalog) AllSections() []SectionDefinition {
	return slices.Clone(c.sections)
}

// SectionsByLayer returns the sections of a layer in catalog order.
// An unknown layer yields an empty list.
func (c *Catalog) SectionsByLayer(layer domain.Layer) []SectionDefinition {
	var out []SectionDefinition
	for _, s := range c.sections {
		if s.Layer == layer {
			out = append(out, s)
		}
	}
	return out
}

// SectionByID looks up a section definition.
func (c *Catalog) SectionByID(id string) (SectionDefinition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return SectionDefinition{}, false
	}
	return c.sections[i], true
}

// QuestionCount returns the number of questions of a section, 0 if unknown.
func (c *Catalog) QuestionCount(id string) int {
	s, ok := c.SectionByID(id)
	if !ok {
		return 0
	}
	return len(s.Questions)
}

// Relevance reports how relevant a section is in a phase. Unknown sections
// and phases are low.
func (c *Catalog) Relevance(sectionID string, phase domain.Phase) Relevance {
	if r, ok := c.relevance[sectionID][phase]; ok {
		return r
	}
	return RelevanceLow
}

// IsHighlyRelevant reports whether the section lists phase among its relevant phases.
func (c *Catalog) IsHighlyRelevant(sectionID string, phase domain.Phase) bool {
	s, ok := c.SectionByID(sectionID)
	return ok && slices.Contains(s.RelevantPhases, phase)
}

// PhaseInfo returns the description of a phase.
func (c *Catalog) PhaseInfo(phase domain.Phase) (PhaseInfo, bool) {
	p, ok := c.phases[phase]
	return p, ok
}

// LayerInfo returns the description of a layer.
func (c *Catalog) LayerInfo(layer domain.Layer) (LayerInfo, bool) {
	l, ok := c.layers[layer]
	return l, ok
}
