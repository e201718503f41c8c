package domain

import "time"

// Template categories
const (
	TemplateCategoryPredictive     = "predictive-analytics"
	TemplateCategoryNLP            = "nlp"
	TemplateCategoryVision         = "computer-vision"
	TemplateCategoryRecommendation = "recommendation"
	TemplateCategoryAutomation     = "automation"
	TemplateCategoryFraud          = "fraud-detection"
	TemplateCategoryCustom         = "custom"
)

// TemplatePrefill is the partial canvas a template seeds new canvases with.
// Layer maps may hold any subset of the catalog sections.
type TemplatePrefill struct {
	UseCaseName  string        `json:"useCaseName,omitempty" yaml:"useCaseName"`
	UseCaseOwner string        `json:"useCaseOwner,omitempty" yaml:"useCaseOwner"`
	Phase        Phase         `json:"phase,omitempty" yaml:"phase"`
	Status       Status        `json:"status,omitempty" yaml:"status"`
	Tags         []string      `json:"tags,omitempty" yaml:"tags"`
	Strategic    LayerSections `json:"strategic,omitempty" yaml:"strategic"`
	Execution    LayerSections `json:"execution,omitempty" yaml:"execution"`
	Validation   LayerSections `json:"validation,omitempty" yaml:"validation"`
}

// Layer returns the prefilled sections for a layer.
func (p *TemplatePrefill) Layer(layer Layer) LayerSections {
	switch layer {
	case LayerStrategic:
		return p.Strategic
	case LayerExecution:
		return p.Execution
	case LayerValidation:
		return p.Validation
	}
	return nil
}

// Template is a read-only prototype used to seed new canvases
type Template struct {
	ID                string          `json:"id" yaml:"id"`
	Name              string          `json:"name" yaml:"name"`
	Description       string          `json:"description" yaml:"description"`
	Category          string          `json:"category" yaml:"category"`
	Industry          string          `json:"industry" yaml:"industry"`
	AIType            []string        `json:"aiType" yaml:"aiType"`
	PrefilledSections TemplatePrefill `json:"prefilledSections" yaml:"prefilledSections"`
	Thumbnail         string          `json:"thumbnail" yaml:"thumbnail"`
	UsageCount        int             `json:"usageCount" yaml:"usageCount"`
	CreatedBy         string          `json:"createdBy" yaml:"createdBy"`
	IsPublic          bool            `json:"isPublic" yaml:"isPublic"`
	CreatedAt         time.Time       `json:"createdAt" yaml:"-"`
	UpdatedAt         time.Time       `json:"updatedAt" yaml:"-"`
}

// TemplateSummary is the list view of a template
type TemplateSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Industry    string   `json:"industry"`
	AIType      []string `json:"aiType"`
	Thumbnail   string   `json:"thumbnail"`
	UsageCount  int      `json:"usageCount"`
}

// TemplateFilters selects templates. Facets combine with AND.
type TemplateFilters struct {
	Categories  []string `json:"category,omitempty"`
	Industries  []string `json:"industry,omitempty"`
	AITypes     []string `json:"aiType,omitempty"`
	SearchQuery string   `json:"searchQuery,omitempty"`
}

// Summary returns the list view of the template.
func (t *Template) Summary() TemplateSummary {
	return TemplateSummary{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Category:    t.Category,
		Industry:    t.Industry,
		AIType:      t.AIType,
		Thumbnail:   t.Thumbnail,
		UsageCount:  t.UsageCount,
	}
}
