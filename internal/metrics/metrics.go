// Package metrics derives completion, readiness and health figures from a
// canvas. All functions are pure.
//
// Percentages use integer arithmetic with round-half-up so results are exact
// and reproducible.
package metrics

import (
	"strings"

	"github.com/liliang-cn/aicanvas/internal/domain"
)

// Layer weights of the overall completion, in tenths.
const (
	strategicWeight  = 2
	executionWeight  = 4
	validationWeight = 4
)

// Hours a full canvas is estimated to take.
const totalEstimatedHours = 6

// HealthStatus buckets a health score
type HealthStatus string

const (
	HealthExcellent      HealthStatus = "excellent"
	HealthGood           HealthStatus = "good"
	HealthFair           HealthStatus = "fair"
	HealthNeedsAttention HealthStatus = "needs-attention"
)

// Health is a composite of completion and readiness
type Health struct {
	Score  int          `json:"score"`
	Status HealthStatus `json:"status"`
}

// ratio returns round(100*num/den) rounding half up, 0 when den is 0.
func ratio(num, den int) int {
	if den == 0 {
		return 0
	}
	return (200*num + den) / (2 * den)
}

// mean returns round(sum/n) rounding half up, 0 when n is 0.
func mean(sum, n int) int {
	if n == 0 {
		return 0
	}
	return (2*sum + n) / (2 * n)
}

func answered(s *domain.SectionContent) int {
	k := 0
	for _, a := range s.Answers {
		if strings.TrimSpace(a) != "" {
			k++
		}
	}
	return k
}

// SectionCompletion is the percentage of non-blank answers in a section.
func SectionCompletion(s *domain.SectionContent) int {
	if s == nil {
		return 0
	}
	return ratio(answered(s), len(s.Answers))
}

// LayerCompletion is the unweighted mean of the layer's section completions.
func LayerCompletion(c *domain.Canvas, layer domain.Layer) int {
	sections := c.Layer(layer)
	sum := 0
	for _, s := range sections {
		sum += SectionCompletion(s)
	}
	return mean(sum, len(sections))
}

// OverallCompletion weighs strategic 0.2, execution 0.4 and validation 0.4.
func OverallCompletion(c *domain.Canvas) int {
	weighted := strategicWeight*LayerCompletion(c, domain.LayerStrategic) +
		executionWeight*LayerCompletion(c, domain.LayerExecution) +
		validationWeight*LayerCompletion(c, domain.LayerValidation)
	return (weighted + 5) / 10
}

// FlatCompletion is answered questions over all questions, ignoring layers.
func FlatCompletion(c *domain.Canvas) int {
	return ratio(AnsweredQuestions(c), TotalQuestions(c))
}

// TotalQuestions counts every answer slot of the canvas.
func TotalQuestions(c *domain.Canvas) int {
	n := 0
	for _, layer := range domain.AllLayers {
		for _, s := range c.Layer(layer) {
			n += len(s.Answers)
		}
	}
	return n
}

// AnsweredQuestions counts the non-blank answers of the canvas.
func AnsweredQuestions(c *domain.Canvas) int {
	n := 0
	for _, layer := range domain.AllLayers {
		for _, s := range c.Layer(layer) {
			n += answered(s)
		}
	}
	return n
}

// IsSectionComplete reports whether every question of the section is answered.
func IsSectionComplete(s *domain.SectionContent) bool {
	return SectionCompletion(s) == 100
}

// IsLayerComplete reports whether every section of the layer is complete.
func IsLayerComplete(c *domain.Canvas, layer domain.Layer) bool {
	return LayerCompletion(c, layer) == 100
}

// ReadinessValue maps red, yellow and green to 0, 50 and 100.
func ReadinessValue(level domain.ReadinessLevel) int {
	switch level {
	case domain.ReadinessGreen:
		return 100
	case domain.ReadinessYellow:
		return 50
	}
	return 0
}

// ReadinessScore is the mean readiness value across the three layers.
func ReadinessScore(c *domain.Canvas) int {
	sum := 0
	for _, layer := range domain.AllLayers {
		sum += ReadinessValue(c.Readiness.Get(layer))
	}
	return mean(sum, len(domain.AllLayers))
}

// StatusForScore buckets a score; thresholds are inclusive lower bounds.
func StatusForScore(score int) HealthStatus {
	switch {
	case score >= 80:
		return HealthExcellent
	case score >= 60:
		return HealthGood
	case score >= 40:
		return HealthFair
	}
	return HealthNeedsAttention
}

// HealthScore combines completion (0.6) and readiness (0.4).
func HealthScore(c *domain.Canvas) Health {
	score := (6*OverallCompletion(c) + 4*ReadinessScore(c) + 5) / 10
	return Health{Score: score, Status: StatusForScore(score)}
}

// EstimateTimeRemaining returns the hours left, to one decimal place.
func EstimateTimeRemaining(c *domain.Canvas) float64 {
	completion := OverallCompletion(c)
	if completion >= 100 {
		return 0
	}
	tenths := (10*totalEstimatedHours*(100-completion) + 50) / 100
	return float64(tenths) / 10
}

// Report gathers every derived figure of a canvas
type Report struct {
	Sections          map[string]int       `json:"sections"`
	Layers            map[domain.Layer]int `json:"layers"`
	Overall           int                  `json:"overall"`
	Readiness         int                  `json:"readiness"`
	Health            Health               `json:"health"`
	HoursRemaining    float64              `json:"hoursRemaining"`
	TotalQuestions    int                  `json:"totalQuestions"`
	AnsweredQuestions int                  `json:"answeredQuestions"`
}

// Compute builds the full report for a canvas.
func Compute(c *domain.Canvas) Report {
	r := Report{
		Sections:          make(map[string]int),
		Layers:            make(map[domain.Layer]int, len(domain.AllLayers)),
		Overall:           OverallCompletion(c),
		Readiness:         ReadinessScore(c),
		Health:            HealthScore(c),
		HoursRemaining:    EstimateTimeRemaining(c),
		TotalQuestions:    TotalQuestions(c),
		AnsweredQuestions: AnsweredQuestions(c),
	}
	for _, layer := range domain.AllLayers {
		r.Layers[layer] = LayerCompletion(c, layer)
		for id, s := range c.Layer(layer) {
			r.Sections[id] = SectionCompletion(s)
		}
	}
	return r
}
