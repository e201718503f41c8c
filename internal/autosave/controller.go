// Package autosave keeps an editing session's working copy mirrored into the
// store's autosave slot.
package autosave

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/liliang-cn/aicanvas/internal/domain"
)

// State is the controller's save status
type State string

const (
	StateIdle   State = "idle"
	StateSaving State = "saving"
	StateSaved  State = "saved"
	StateError  State = "error"
)

// Default timings
const (
	DefaultDebounce     = 2 * time.Second
	DefaultInterval     = 30 * time.Second
	DefaultSavedDisplay = 3 * time.Second
)

// Saver writes autosave snapshots
type Saver interface {
	SaveAutosave(ctx context.Context, id string, c *domain.Canvas) bool
}

// Options configures a Controller. Zero durations select the defaults; a
// negative Interval disables the periodic check.
type Options struct {
	Debounce     time.Duration
	Interval     time.Duration
	SavedDisplay time.Duration
	Clock        Clock
	Logger       *zap.Logger
}

func (o *Options) withDefaults() {
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.Interval == 0 {
		o.Interval = DefaultInterval
	}
	if o.SavedDisplay <= 0 {
		o.SavedDisplay = DefaultSavedDisplay
	}
	if o.Clock == nil {
		o.Clock = SystemClock{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Status is a point-in-time view of the controller
type Status struct {
	State       State     `json:"state"`
	LastSavedAt time.Time `json:"lastSavedAt,omitzero"`
	Dirty       bool      `json:"dirty"`
	Saves       int       `json:"saves"`
}

// Controller debounces and periodically flushes one canvas' working copy.
//
// Saves are serialized: while one is in flight, further attempts are refused
// with domain.ErrSaveInFlight. A failed save leaves the last-saved fingerprint
// untouched so the next trigger retries.
type Controller struct {
	id    string
	saver Saver
	opts  Options
	log   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	idle        *sync.Cond // signalled when an in-flight save returns
	current     *domain.Canvas
	lastSaved   []byte
	lastSavedAt time.Time
	state       State
	inFlight    bool
	closed      bool
	saves       int
	savedGen    int

	stopDebounce func() bool
	stopPeriodic func() bool
	stopDisplay  func() bool
}

// New starts a controller for the canvas. The initial document counts as
// already saved, so an untouched session never writes.
func New(initial *domain.Canvas, saver Saver, opts Options) (*Controller, error) {
	opts.withDefaults()
	fp, err := fingerprint(initial)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		id:        initial.ID,
		saver:     saver,
		opts:      opts,
		log:       opts.Logger.With(zap.String("canvas_id", initial.ID)),
		ctx:       ctx,
		cancel:    cancel,
		current:   initial.Clone(),
		lastSaved: fp,
		state:     StateIdle,
	}
	c.idle = sync.NewCond(&c.mu)
	c.mu.Lock()
	c.armPeriodicLocked()
	c.mu.Unlock()
	return c, nil
}

func fingerprint(c *domain.Canvas) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint canvas: %w", err)
	}
	return data, nil
}

// ID returns the canvas id this controller saves
func (c *Controller) ID() string {
	return c.id
}

// Update replaces the working copy and restarts the quiet-period timer.
func (c *Controller) Update(doc *domain.Canvas) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrSessionClosed
	}
	c.current = doc.Clone()
	c.armDebounceLocked()
	return nil
}

// Current returns a copy of the working document
func (c *Controller) Current() *domain.Canvas {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.Clone()
}

// Status reports the controller state
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	fp, err := fingerprint(c.current)
	return Status{
		State:       c.state,
		LastSavedAt: c.lastSavedAt,
		Dirty:       err != nil || !bytes.Equal(fp, c.lastSaved),
		Saves:       c.saves,
	}
}

// Save writes the working copy immediately, whether or not it changed.
func (c *Controller) Save(ctx context.Context) error {
	return c.save(ctx, true)
}

// MarkSaved records doc as the saved baseline without writing it, for use
// after the working copy has been committed elsewhere.
func (c *Controller) MarkSaved(doc *domain.Canvas) error {
	fp, err := fingerprint(doc)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = doc.Clone()
	c.lastSaved = fp
	if c.stopDebounce != nil {
		c.stopDebounce()
		c.stopDebounce = nil
	}
	return nil
}

// Close stops every timer and waits for an in-flight save to return. Later
// updates and saves fail with domain.ErrSessionClosed. Close must not be
// called from the Saver.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		for _, stop := range []func() bool{c.stopDebounce, c.stopPeriodic, c.stopDisplay} {
			if stop != nil {
				stop()
			}
		}
		c.stopDebounce, c.stopPeriodic, c.stopDisplay = nil, nil, nil
		c.cancel()
	}
	for c.inFlight {
		c.idle.Wait()
	}
}

func (c *Controller) save(ctx context.Context, force bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrSessionClosed
	}
	if c.inFlight {
		c.mu.Unlock()
		return domain.ErrSaveInFlight
	}
	fp, err := fingerprint(c.current)
	if err != nil {
		c.state = StateError
		c.mu.Unlock()
		return err
	}
	if !force && bytes.Equal(fp, c.lastSaved) {
		c.mu.Unlock()
		return nil
	}
	snap := c.current.Clone()
	c.inFlight = true
	c.state = StateSaving
	if c.stopDisplay != nil {
		c.stopDisplay()
		c.stopDisplay = nil
	}
	c.mu.Unlock()

	ok := c.saver.SaveAutosave(ctx, c.id, snap)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	c.idle.Broadcast()
	if !ok {
		c.state = StateError
		c.log.Warn("autosave failed")
		return fmt.Errorf("%w: autosave for canvas %s", domain.ErrStorage, c.id)
	}
	c.lastSaved = fp
	c.lastSavedAt = c.opts.Clock.Now()
	c.saves++
	c.savedGen++
	c.state = StateSaved
	c.log.Debug("autosaved", zap.Int("saves", c.saves))
	if !c.closed {
		gen := c.savedGen
		c.stopDisplay = c.opts.Clock.AfterFunc(c.opts.SavedDisplay, func() { c.clearSaved(gen) })
	}
	return nil
}

// clearSaved returns the saved indicator to idle. A timer from an earlier
// save that fired late is ignored.
func (c *Controller) clearSaved(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.savedGen {
		return
	}
	if c.state == StateSaved {
		c.state = StateIdle
	}
	c.stopDisplay = nil
}

func (c *Controller) armDebounceLocked() {
	if c.stopDebounce != nil {
		c.stopDebounce()
	}
	c.stopDebounce = c.opts.Clock.AfterFunc(c.opts.Debounce, c.onDebounce)
}

func (c *Controller) onDebounce() {
	err := c.save(c.ctx, false)
	if errors.Is(err, domain.ErrSaveInFlight) {
		c.mu.Lock()
		if !c.closed {
			c.armDebounceLocked()
		}
		c.mu.Unlock()
	}
}

func (c *Controller) armPeriodicLocked() {
	if c.opts.Interval < 0 {
		return
	}
	c.stopPeriodic = c.opts.Clock.AfterFunc(c.opts.Interval, c.onTick)
}

func (c *Controller) onTick() {
	c.save(c.ctx, false)
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.armPeriodicLocked()
	}
}
