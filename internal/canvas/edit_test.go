package canvas

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liliang-cn/aicanvas/internal/catalog"
	"github.com/liliang-cn/aicanvas/internal/domain"
)

func newEditorAt(now *time.Time) *Editor {
	return NewEditor(catalog.Default(), func() time.Time { return *now })
}

func TestSetAnswerTouches(t *testing.T) {
	now := t0.Add(time.Minute)
	e := newEditorAt(&now)
	c := New(e.Catalog(), "Edit", "Editing", "Ann", t0)

	require.NoError(t, e.SetAnswer(c, "teamResources", 2, "$500K"))
	assert.Equal(t, "$500K", c.Execution["teamResources"].Answers[2])
	assert.True(t, c.UpdatedAt.Equal(now))

	assert.ErrorIs(t, e.SetAnswer(c, "teamResources", 5, "x"), domain.ErrInvalidRequest)
	assert.ErrorIs(t, e.SetAnswer(c, "teamResources", -1, "x"), domain.ErrInvalidRequest)
	assert.ErrorIs(t, e.SetAnswer(c, "nope", 0, "x"), domain.ErrUnknownSection)
	assert.ErrorIs(t, e.SetAnswer(c, "teamResources", 0, strings.Repeat("a", MaxAnswerLength+1)), domain.ErrInvalidRequest)
}

func TestTouchNeverBeforeCreation(t *testing.T) {
	now := t0.Add(-time.Hour)
	e := newEditorAt(&now)
	c := New(e.Catalog(), "Edit", "Editing", "Ann", t0)

	require.NoError(t, e.SetReadiness(c, domain.LayerExecution, domain.ReadinessYellow))
	assert.True(t, c.UpdatedAt.Equal(c.CreatedAt))
}

func TestUpdateSection(t *testing.T) {
	now := t0
	e := newEditorAt(&now)
	c := New(e.Catalog(), "Edit", "Editing", "Ann", t0)

	notes := "check with legal"
	collapsed := false
	err := e.UpdateSection(c, "businessProblem", &domain.UpdateSectionRequest{
		Answers:           []string{"a", "b", "c", "d"},
		Notes:             &notes,
		ExpandedByDefault: &collapsed,
	})
	require.NoError(t, err)
	s := c.Strategic["businessProblem"]
	assert.Equal(t, []string{"a", "b", "c", "d"}, s.Answers)
	assert.Equal(t, notes, s.Notes)
	assert.False(t, s.ExpandedByDefault)

	err = e.UpdateSection(c, "businessProblem", &domain.UpdateSectionRequest{Answers: []string{"short"}})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	long := strings.Repeat("n", MaxNotesLength+1)
	assert.ErrorIs(t, e.SetNotes(c, "businessProblem", long), domain.ErrInvalidRequest)
}

func TestPhaseChanges(t *testing.T) {
	now := t0
	e := newEditorAt(&now)
	c := New(e.Catalog(), "Edit", "Editing", "Ann", t0)

	assert.ErrorIs(t, e.SetPhase(c, domain.PhasePilot), domain.ErrInvalidPhaseTransition)
	assert.ErrorIs(t, e.SetPhase(c, "later"), domain.ErrInvalidRequest)
	require.NoError(t, e.SetPhase(c, domain.PhasePOC))

	assert.ErrorIs(t, e.AdvancePhase(c), domain.ErrPhaseBlocked)
	for _, l := range domain.AllLayers {
		require.NoError(t, e.SetReadiness(c, l, domain.ReadinessYellow))
	}
	require.NoError(t, e.AdvancePhase(c))
	assert.Equal(t, domain.PhasePilot, c.Phase)
}

func TestSetReadinessRejectsUnknown(t *testing.T) {
	now := t0
	e := newEditorAt(&now)
	c := New(e.Catalog(), "Edit", "Editing", "Ann", t0)

	assert.ErrorIs(t, e.SetReadiness(c, "tactical", domain.ReadinessGreen), domain.ErrInvalidRequest)
	assert.ErrorIs(t, e.SetReadiness(c, domain.LayerStrategic, "blue"), domain.ErrInvalidRequest)
}

func TestTags(t *testing.T) {
	now := t0
	e := newEditorAt(&now)
	c := New(e.Catalog(), "Edit", "Editing", "Ann", t0)

	require.NoError(t, e.AddTag(c, "retention"))
	require.NoError(t, e.AddTag(c, "retention"))
	require.NoError(t, e.AddTag(c, "q3_2026"))
	assert.Equal(t, []string{"retention", "q3_2026"}, c.Tags)

	assert.ErrorIs(t, e.AddTag(c, "x"), domain.ErrInvalidRequest)
	assert.ErrorIs(t, e.AddTag(c, "no!"), domain.ErrInvalidRequest)

	e.RemoveTag(c, "retention")
	assert.Equal(t, []string{"q3_2026"}, c.Tags)
}

func TestComments(t *testing.T) {
	now := t0.Add(time.Second)
	e := newEditorAt(&now)
	c := New(e.Catalog(), "Edit", "Editing", "Ann", t0)

	cm, err := e.AddComment(c, "riskAssessment", "Bo", "  what about drift?  ")
	require.NoError(t, err)
	assert.Equal(t, "what about drift?", cm.Text)
	assert.Equal(t, "Bo", c.LastEditedBy)
	require.Len(t, c.Validation["riskAssessment"].Comments, 1)

	_, err = e.AddComment(c, "riskAssessment", "Bo", "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	require.NoError(t, e.ResolveComment(c, "riskAssessment", cm.ID))
	assert.True(t, c.Validation["riskAssessment"].Comments[0].Resolved)
	assert.ErrorIs(t, e.ResolveComment(c, "riskAssessment", "missing"), domain.ErrNotFound)
}

func TestUpdateFields(t *testing.T) {
	now := t0
	e := newEditorAt(&now)
	c := New(e.Catalog(), "Edit", "Editing", "Ann", t0)

	name := " Renamed "
	status := domain.StatusInProgress
	require.NoError(t, e.UpdateFields(c, &domain.UpdateCanvasRequest{Name: &name, Status: &status, EditedBy: "Cy"}))
	assert.Equal(t, "Renamed", c.Name)
	assert.Equal(t, domain.StatusInProgress, c.Status)
	assert.Equal(t, "Cy", c.LastEditedBy)

	bad := domain.Status("gone")
	assert.ErrorIs(t, e.UpdateFields(c, &domain.UpdateCanvasRequest{Status: &bad}), domain.ErrInvalidRequest)
}
