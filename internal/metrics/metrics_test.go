package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/liliang-cn/aicanvas/internal/canvas"
	"github.com/liliang-cn/aicanvas/internal/catalog"
	"github.com/liliang-cn/aicanvas/internal/domain"
)

func newCanvas() *domain.Canvas {
	return canvas.New(catalog.Default(), "Metrics", "Metrics canvas", "Ann", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func fill(s *domain.SectionContent, k int) {
	for i := 0; i < k && i < len(s.Answers); i++ {
		s.Answers[i] = "answer"
	}
}

func TestSectionCompletion(t *testing.T) {
	tests := []struct {
		name    string
		answers []string
		want    int
	}{
		{"no slots", []string{}, 0},
		{"all blank", []string{"", "", ""}, 0},
		{"whitespace is blank", []string{" ", "\t\n", "x"}, 33},
		{"two of three", []string{"a", "b", ""}, 67},
		{"half", []string{"a", ""}, 50},
		{"one of eight rounds half up", []string{"a", "", "", "", "", "", "", ""}, 13},
		{"full", []string{"a", "b", "c", "d"}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SectionCompletion(&domain.SectionContent{Answers: tt.answers}))
		})
	}
	assert.Equal(t, 0, SectionCompletion(nil))
}

func TestSectionCompletionMatchesFormula(t *testing.T) {
	for n := 1; n <= 9; n++ {
		for k := 0; k <= n; k++ {
			answers := make([]string, n)
			for i := 0; i < k; i++ {
				answers[i] = "x"
			}
			want := int(math.Floor(100*float64(k)/float64(n) + 0.5))
			assert.Equal(t, want, SectionCompletion(&domain.SectionContent{Answers: answers}), "k=%d n=%d", k, n)
		}
	}
}

func TestLayerCompletionBusinessProblemOnly(t *testing.T) {
	c := newCanvas()
	fill(c.Strategic["businessProblem"], 4)

	assert.Equal(t, 100, SectionCompletion(c.Strategic["businessProblem"]))
	assert.Equal(t, 0, SectionCompletion(c.Strategic["desiredOutcome"]))
	assert.Equal(t, 33, LayerCompletion(c, domain.LayerStrategic))
	assert.Equal(t, 0, LayerCompletion(c, domain.LayerExecution))
	assert.Equal(t, 0, LayerCompletion(c, "unknown"))
}

func TestOverallCompletionWeights(t *testing.T) {
	c := newCanvas()
	for _, s := range c.Strategic {
		fill(s, 4)
	}
	assert.Equal(t, 100, LayerCompletion(c, domain.LayerStrategic))
	assert.Equal(t, 20, OverallCompletion(c))

	for _, s := range c.Execution {
		fill(s, 5)
	}
	assert.Equal(t, 60, OverallCompletion(c))

	fill(c.Validation["successMetrics"], 1)
	s, e, v := LayerCompletion(c, domain.LayerStrategic), LayerCompletion(c, domain.LayerExecution), LayerCompletion(c, domain.LayerValidation)
	assert.Equal(t, 4, v)
	want := int(math.Floor(0.2*float64(s) + 0.4*float64(e) + 0.4*float64(v) + 0.5))
	assert.Equal(t, want, OverallCompletion(c))
}

func TestFlatCompletion(t *testing.T) {
	c := newCanvas()
	assert.Equal(t, 67, TotalQuestions(c))
	assert.Equal(t, 0, FlatCompletion(c))

	fill(c.Strategic["businessProblem"], 4)
	assert.Equal(t, 4, AnsweredQuestions(c))
	assert.Equal(t, 6, FlatCompletion(c))
}

func TestReadinessScore(t *testing.T) {
	c := newCanvas()
	assert.Equal(t, 0, ReadinessScore(c))

	c.Readiness = domain.Readiness{Strategic: domain.ReadinessGreen, Execution: domain.ReadinessYellow, Validation: domain.ReadinessRed}
	assert.Equal(t, 50, ReadinessScore(c))

	c.Readiness.Validation = domain.ReadinessYellow
	assert.Equal(t, 67, ReadinessScore(c))
}

func TestStatusForScoreBoundaries(t *testing.T) {
	tests := []struct {
		score int
		want  HealthStatus
	}{
		{100, HealthExcellent},
		{80, HealthExcellent},
		{79, HealthGood},
		{60, HealthGood},
		{59, HealthFair},
		{40, HealthFair},
		{39, HealthNeedsAttention},
		{0, HealthNeedsAttention},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusForScore(tt.score), "score %d", tt.score)
	}
}

func TestHealthScore(t *testing.T) {
	c := newCanvas()
	assert.Equal(t, Health{Score: 0, Status: HealthNeedsAttention}, HealthScore(c))

	for _, layer := range domain.AllLayers {
		for _, s := range c.Layer(layer) {
			fill(s, 5)
		}
		c.Readiness.Set(layer, domain.ReadinessGreen)
	}
	assert.Equal(t, Health{Score: 100, Status: HealthExcellent}, HealthScore(c))

	c.Readiness = domain.Readiness{Strategic: domain.ReadinessRed, Execution: domain.ReadinessRed, Validation: domain.ReadinessRed}
	assert.Equal(t, Health{Score: 60, Status: HealthGood}, HealthScore(c))
}

func TestEstimateTimeRemaining(t *testing.T) {
	c := newCanvas()
	assert.Equal(t, 6.0, EstimateTimeRemaining(c))

	for _, s := range c.Strategic {
		fill(s, 4)
	}
	assert.Equal(t, 4.8, EstimateTimeRemaining(c))

	fill(c.Execution["aiSolutionDesign"], 1)
	// execution layer: round(20/6)=3, overall: round(20+1.2)=21, remaining 79% of 6h = 4.74h
	assert.Equal(t, 21, OverallCompletion(c))
	assert.Equal(t, 4.7, EstimateTimeRemaining(c))

	for _, layer := range domain.AllLayers {
		for _, s := range c.Layer(layer) {
			fill(s, 5)
		}
	}
	assert.Equal(t, 0.0, EstimateTimeRemaining(c))
}

func TestCompute(t *testing.T) {
	c := newCanvas()
	fill(c.Strategic["businessProblem"], 4)
	c.Readiness.Strategic = domain.ReadinessGreen

	r := Compute(c)
	assert.Equal(t, 100, r.Sections["businessProblem"])
	assert.Len(t, r.Sections, 14)
	assert.Equal(t, 33, r.Layers[domain.LayerStrategic])
	assert.Equal(t, 7, r.Overall)
	assert.Equal(t, 33, r.Readiness)
	assert.Equal(t, 4, r.AnsweredQuestions)
	assert.Equal(t, 67, r.TotalQuestions)
}
