package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liliang-cn/aicanvas/internal/autosave"
	"github.com/liliang-cn/aicanvas/internal/canvas"
	"github.com/liliang-cn/aicanvas/internal/domain"
)

func setAnswer(section string, index int, answer string) Mutation {
	return func(e *canvas.Editor, c *domain.Canvas) error {
		return e.SetAnswer(c, section, index, answer)
	}
}

func TestSessionAutosavesWorkingCopy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t, "Churn POC", "Predict Churn", "Dana")

	view, err := h.editor.Open(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.BaseVersion)
	assert.False(t, view.Recoverable)
	assert.Equal(t, autosave.StateIdle, view.Autosave.State)

	view, err = h.editor.Apply(c.ID, setAnswer("businessProblem", 0, "Customers leave"))
	require.NoError(t, err)
	assert.True(t, view.Autosave.Dirty)
	assert.Equal(t, 25, view.Metrics.Sections["businessProblem"])

	h.clock.Advance(2 * time.Second)
	snap := h.store.GetAutosave(ctx, c.ID)
	require.NotNil(t, snap)
	assert.Equal(t, "Customers leave", snap.Strategic["businessProblem"].Answers[0])

	stored, err := h.canvases.GetCanvas(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Strategic["businessProblem"].Answers[0])

	view, err = h.editor.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, autosave.StateSaved, view.Autosave.State)
	assert.False(t, view.Autosave.Dirty)
}

func TestOpenTwiceReturnsSameSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t, "Churn POC", "Predict Churn", "Dana")

	_, err := h.editor.Open(ctx, c.ID)
	require.NoError(t, err)
	_, err = h.editor.Apply(c.ID, setAnswer("businessProblem", 1, "kept"))
	require.NoError(t, err)

	view, err := h.editor.Open(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "kept", view.Canvas.Strategic["businessProblem"].Answers[1])
	assert.Equal(t, []string{c.ID}, h.editor.OpenIDs())

	_, err = h.editor.Open(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApplyIsAllOrNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t, "Churn POC", "Predict Churn", "Dana")
	_, err := h.editor.Open(ctx, c.ID)
	require.NoError(t, err)

	_, err = h.editor.Apply(c.ID,
		setAnswer("businessProblem", 0, "first"),
		setAnswer("noSuchSection", 0, "second"),
	)
	assert.ErrorIs(t, err, domain.ErrUnknownSection)

	view, err := h.editor.Get(c.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Canvas.Strategic["businessProblem"].Answers[0])
	assert.False(t, view.Autosave.Dirty)
}

func TestCommitBumpsVersionAndClearsAutosave(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t, "Churn POC", "Predict Churn", "Dana")
	_, err := h.editor.Open(ctx, c.ID)
	require.NoError(t, err)
	_, err = h.editor.Apply(c.ID, setAnswer("businessProblem", 0, "Customers leave"))
	require.NoError(t, err)
	h.clock.Advance(2 * time.Second)
	require.NotNil(t, h.store.GetAutosave(ctx, c.ID))

	view, err := h.editor.Commit(ctx, c.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, view.BaseVersion)
	assert.False(t, view.Autosave.Dirty)

	stored, err := h.canvases.GetCanvas(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
	assert.Equal(t, "Customers leave", stored.Strategic["businessProblem"].Answers[0])
	assert.Nil(t, h.store.GetAutosave(ctx, c.ID))

	// Nothing changed since the commit, so no further autosave is written.
	h.clock.Advance(time.Minute)
	assert.Nil(t, h.store.GetAutosave(ctx, c.ID))
}

func TestCommitRejectsStaleVersion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t, "Churn POC", "Predict Churn", "Dana")
	_, err := h.editor.Open(ctx, c.ID)
	require.NoError(t, err)

	// Another writer commits first.
	other, err := h.canvases.GetCanvas(ctx, c.ID)
	require.NoError(t, err)
	other.Version = 2
	require.True(t, h.store.SaveCanvas(ctx, other))

	_, err = h.editor.Commit(ctx, c.ID, 0)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
	_, err = h.editor.Commit(ctx, c.ID, 2)
	assert.NoError(t, err)
}

func TestRecoverAutosaveSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t, "Churn POC", "Predict Churn", "Dana")

	_, err := h.editor.Open(ctx, c.ID)
	require.NoError(t, err)
	_, err = h.editor.Apply(c.ID, setAnswer("successMetrics", 2, "unsaved work"))
	require.NoError(t, err)
	h.clock.Advance(2 * time.Second)
	require.NoError(t, h.editor.Close(c.ID))

	view, err := h.editor.Open(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, view.Recoverable)
	assert.Empty(t, view.Canvas.Validation["successMetrics"].Answers[2])

	view, err = h.editor.Recover(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, view.Recoverable)
	assert.Equal(t, "unsaved work", view.Canvas.Validation["successMetrics"].Answers[2])
	assert.Equal(t, 1, view.Canvas.Version)

	_, err = h.editor.Commit(ctx, c.ID, 0)
	require.NoError(t, err)
	_, err = h.editor.Recover(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestManualSave(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t, "Churn POC", "Predict Churn", "Dana")
	_, err := h.editor.Open(ctx, c.ID)
	require.NoError(t, err)

	view, err := h.editor.Save(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, autosave.StateSaved, view.Autosave.State)
	assert.NotNil(t, h.store.GetAutosave(ctx, c.ID))

	h.kv.Disabled = true
	_, err = h.editor.Save(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestCloseStopsSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.create(t, "Churn POC", "Predict Churn", "Dana")
	b := h.create(t, "Fraud Model", "Detect Fraud", "Lee")
	_, err := h.editor.Open(ctx, a.ID)
	require.NoError(t, err)
	_, err = h.editor.Open(ctx, b.ID)
	require.NoError(t, err)

	_, err = h.editor.Apply(a.ID, setAnswer("businessProblem", 0, "pending"))
	require.NoError(t, err)
	require.NoError(t, h.editor.Close(a.ID))
	h.clock.Advance(time.Minute)
	assert.Nil(t, h.store.GetAutosave(ctx, a.ID))

	_, err = h.editor.Get(a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, h.editor.Close(a.ID), domain.ErrNotFound)
	_, err = h.editor.Apply(a.ID, setAnswer("businessProblem", 0, "late"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	h.editor.CloseAll()
	assert.Empty(t, h.editor.OpenIDs())
	assert.Zero(t, h.clock.Pending())
}
