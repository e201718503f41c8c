package autosave

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liliang-cn/aicanvas/internal/canvas"
	"github.com/liliang-cn/aicanvas/internal/catalog"
	"github.com/liliang-cn/aicanvas/internal/domain"
	"github.com/liliang-cn/aicanvas/internal/testutil"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeSaver struct {
	mu    sync.Mutex
	fail  bool
	calls int
	last  *domain.Canvas
	hook  func()
}

func (f *fakeSaver) SaveAutosave(_ context.Context, _ string, c *domain.Canvas) bool {
	if f.hook != nil {
		f.hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return false
	}
	f.last = c
	return true
}

func (f *fakeSaver) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func setup(t *testing.T) (*Controller, *fakeSaver, *testutil.FakeClock, *domain.Canvas) {
	t.Helper()
	clk := testutil.NewFakeClock(t0)
	saver := &fakeSaver{}
	doc := canvas.New(catalog.Default(), "Churn POC", "Predict Churn", "Dana", t0)
	c, err := New(doc, saver, Options{Clock: clk})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, saver, clk, doc
}

func edit(doc *domain.Canvas, answer string) *domain.Canvas {
	next := doc.Clone()
	next.Strategic["businessProblem"].Answers[0] = answer
	return next
}

func TestUntouchedSessionNeverSaves(t *testing.T) {
	c, saver, clk, _ := setup(t)
	clk.Advance(5 * time.Minute)
	assert.Zero(t, saver.Calls())
	assert.Equal(t, StateIdle, c.Status().State)
}

func TestRapidEditsCollapseIntoOneSave(t *testing.T) {
	c, saver, clk, doc := setup(t)

	for i := range 5 {
		require.NoError(t, c.Update(edit(doc, fmt.Sprintf("draft %d", i))))
		clk.Advance(500 * time.Millisecond)
	}
	assert.Zero(t, saver.Calls())

	clk.Advance(1500 * time.Millisecond)
	assert.Equal(t, 1, saver.Calls())
	assert.Equal(t, "draft 4", saver.last.Strategic["businessProblem"].Answers[0])
	assert.Equal(t, StateSaved, c.Status().State)
	assert.False(t, c.Status().Dirty)
	assert.True(t, c.Status().LastSavedAt.Equal(t0.Add(4*500*time.Millisecond+2*time.Second)))

	clk.Advance(10 * time.Second)
	assert.Equal(t, 1, saver.Calls())
}

func TestPeriodicSaveDuringContinuousEditing(t *testing.T) {
	c, saver, clk, doc := setup(t)

	for i := 1; i <= 35; i++ {
		clk.Advance(time.Second)
		require.NoError(t, c.Update(edit(doc, fmt.Sprintf("keystroke %d", i))))
	}

	require.Equal(t, 1, saver.Calls())
	assert.Equal(t, "keystroke 29", saver.last.Strategic["businessProblem"].Answers[0])
	assert.True(t, c.Status().Dirty)
}

func TestManualSaveIgnoresFingerprint(t *testing.T) {
	c, saver, _, _ := setup(t)

	require.NoError(t, c.Save(context.Background()))
	require.NoError(t, c.Save(context.Background()))
	assert.Equal(t, 2, saver.Calls())
	assert.Equal(t, 2, c.Status().Saves)
}

func TestSavedStatusReturnsToIdle(t *testing.T) {
	c, _, clk, _ := setup(t)

	require.NoError(t, c.Save(context.Background()))
	assert.Equal(t, StateSaved, c.Status().State)

	clk.Advance(2900 * time.Millisecond)
	assert.Equal(t, StateSaved, c.Status().State)
	clk.Advance(100 * time.Millisecond)
	assert.Equal(t, StateIdle, c.Status().State)
}

func TestFailedSaveIsRetriedByNextTrigger(t *testing.T) {
	c, saver, clk, doc := setup(t)
	saver.fail = true

	require.NoError(t, c.Update(edit(doc, "unsaved")))
	clk.Advance(2 * time.Second)
	assert.Equal(t, 1, saver.Calls())
	assert.Equal(t, StateError, c.Status().State)
	assert.True(t, c.Status().Dirty)

	clk.Advance(3 * time.Second)
	assert.Equal(t, StateError, c.Status().State)

	saver.fail = false
	clk.Advance(25 * time.Second)
	assert.Equal(t, 2, saver.Calls())
	assert.Equal(t, StateSaved, c.Status().State)
	assert.False(t, c.Status().Dirty)
}

func TestManualSaveFailureReturnsError(t *testing.T) {
	c, saver, _, _ := setup(t)
	saver.fail = true

	err := c.Save(context.Background())
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Equal(t, StateError, c.Status().State)
}

func TestSavesAreSerialized(t *testing.T) {
	c, saver, _, _ := setup(t)

	var nested error
	saver.hook = func() {
		saver.hook = nil
		assert.Equal(t, StateSaving, c.Status().State)
		nested = c.Save(context.Background())
	}

	require.NoError(t, c.Save(context.Background()))
	assert.ErrorIs(t, nested, domain.ErrSaveInFlight)
	assert.Equal(t, 1, saver.Calls())
}

func TestDebounceRearmsWhileSaveInFlight(t *testing.T) {
	c, saver, clk, doc := setup(t)

	require.NoError(t, c.Update(edit(doc, "first")))
	saver.hook = func() {
		saver.hook = nil
		// An edit lands mid-save and its quiet period expires before the write returns.
		require.NoError(t, c.Update(edit(doc, "second")))
		clk.Advance(2 * time.Second)
	}
	clk.Advance(2 * time.Second)
	assert.Equal(t, 1, saver.Calls())
	assert.True(t, c.Status().Dirty)
	assert.True(t, clk.Now().Equal(t0.Add(4*time.Second)))

	clk.Advance(2 * time.Second)
	assert.Equal(t, 2, saver.Calls())
	assert.Equal(t, "second", saver.last.Strategic["businessProblem"].Answers[0])
}

func TestMarkSavedResetsBaseline(t *testing.T) {
	c, saver, clk, doc := setup(t)

	changed := edit(doc, "committed")
	require.NoError(t, c.Update(changed))
	require.NoError(t, c.MarkSaved(changed))
	assert.False(t, c.Status().Dirty)

	clk.Advance(time.Minute)
	assert.Zero(t, saver.Calls())
}

func TestCloseStopsTimers(t *testing.T) {
	c, saver, clk, doc := setup(t)

	require.NoError(t, c.Update(edit(doc, "pending")))
	c.Close()
	assert.Zero(t, clk.Pending())

	clk.Advance(time.Minute)
	assert.Zero(t, saver.Calls())
	assert.ErrorIs(t, c.Update(doc), domain.ErrSessionClosed)
	assert.ErrorIs(t, c.Save(context.Background()), domain.ErrSessionClosed)
	c.Close()
}

func TestCurrentReturnsCopy(t *testing.T) {
	c, _, _, doc := setup(t)
	require.NoError(t, c.Update(edit(doc, "mine")))

	got := c.Current()
	got.Strategic["businessProblem"].Answers[0] = "mutated"
	assert.Equal(t, "mine", c.Current().Strategic["businessProblem"].Answers[0])
	assert.Equal(t, doc.ID, c.ID())
}

func TestCloseWaitsForInFlightSave(t *testing.T) {
	c, saver, _, doc := setup(t)
	require.NoError(t, c.Update(edit(doc, "draft")))

	started, release := make(chan struct{}), make(chan struct{})
	saver.hook = func() {
		close(started)
		<-release
	}
	saveDone := make(chan error, 1)
	go func() { saveDone <- c.Save(context.Background()) }()
	<-started

	closed := make(chan struct{})
	go func() {
		c.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a save was still writing")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-saveDone)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return after the save finished")
	}
	assert.Equal(t, 1, saver.Calls())
	assert.ErrorIs(t, c.Save(context.Background()), domain.ErrSessionClosed)
}

// lateClock hands out timers whose stop never wins, as when a timer has
// already fired and its callback is waiting on the controller lock.
type lateClock struct {
	mu     sync.Mutex
	timers []lateTimer
}

type lateTimer struct {
	d  time.Duration
	fn func()
}

func (l *lateClock) Now() time.Time { return t0 }

func (l *lateClock) AfterFunc(d time.Duration, fn func()) func() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timers = append(l.timers, lateTimer{d: d, fn: fn})
	return func() bool { return false }
}

func (l *lateClock) display() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	var fns []func()
	for _, tm := range l.timers {
		if tm.d == DefaultSavedDisplay {
			fns = append(fns, tm.fn)
		}
	}
	return fns
}

func TestStaleDisplayTimerKeepsNewerSavedState(t *testing.T) {
	clk := &lateClock{}
	doc := canvas.New(catalog.Default(), "Churn POC", "Predict Churn", "Dana", t0)
	c, err := New(doc, &fakeSaver{}, Options{Clock: clk, Interval: -1})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	require.NoError(t, c.Save(context.Background()))
	require.NoError(t, c.Save(context.Background()))
	timers := clk.display()
	require.Len(t, timers, 2)

	timers[0]()
	assert.Equal(t, StateSaved, c.Status().State)

	timers[1]()
	assert.Equal(t, StateIdle, c.Status().State)
}
