package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/liliang-cn/aicanvas/internal/autosave"
	"github.com/liliang-cn/aicanvas/internal/canvas"
	"github.com/liliang-cn/aicanvas/internal/domain"
	"github.com/liliang-cn/aicanvas/internal/metrics"
	"github.com/liliang-cn/aicanvas/internal/repository"
)

// Mutation edits a session's working copy
type Mutation func(e *canvas.Editor, c *domain.Canvas) error

// SessionView is the client-facing state of an editing session
type SessionView struct {
	CanvasID    string          `json:"canvasId"`
	Canvas      *domain.Canvas  `json:"canvas"`
	BaseVersion int             `json:"baseVersion"`
	OpenedAt    time.Time       `json:"openedAt"`
	Autosave    autosave.Status `json:"autosave"`
	Recoverable bool            `json:"recoverable"`
	Metrics     metrics.Report  `json:"metrics"`
}

type session struct {
	mu          sync.Mutex
	ctrl        *autosave.Controller
	baseVersion int
	openedAt    time.Time
	recoverable bool
}

// EditorService manages editing sessions, one per open canvas. Each session
// owns an autosave controller mirroring its working copy into the canvas'
// autosave slot; Commit writes the working copy into the main record.
type EditorService struct {
	store  *repository.Store
	editor *canvas.Editor
	opts   autosave.Options
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// NewEditorService creates a new editor service
func NewEditorService(store *repository.Store, opts autosave.Options, logger *zap.Logger) *EditorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Logger == nil {
		opts.Logger = logger
	}
	now := time.Now
	if opts.Clock != nil {
		now = opts.Clock.Now
	}
	return &EditorService{
		store:    store,
		editor:   canvas.NewEditor(store.Catalog(), now),
		opts:     opts,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

func (s *EditorService) lookup(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: no editing session for canvas %s", domain.ErrNotFound, id)
	}
	return sess, nil
}

func (s *EditorService) view(id string, sess *session) *SessionView {
	doc := sess.ctrl.Current()
	return &SessionView{
		CanvasID:    id,
		Canvas:      doc,
		BaseVersion: sess.baseVersion,
		OpenedAt:    sess.openedAt,
		Autosave:    sess.ctrl.Status(),
		Recoverable: sess.recoverable,
		Metrics:     metrics.Compute(doc),
	}
}

// Open starts an editing session for the canvas, or returns the existing one.
// The session is flagged recoverable when the autosave slot holds a snapshot
// newer than the stored record.
func (s *EditorService) Open(ctx context.Context, id string) (*SessionView, error) {
	s.mu.Lock()
	if sess, ok := s.sessions[id]; ok {
		s.mu.Unlock()
		sess.mu.Lock()
		defer sess.mu.Unlock()
		return s.view(id, sess), nil
	}
	s.mu.Unlock()

	c := s.store.GetCanvasByID(ctx, id)
	if c == nil {
		return nil, domain.ErrNotFound
	}
	ctrl, err := autosave.New(c, s.store, s.opts)
	if err != nil {
		return nil, err
	}
	sess := &session{ctrl: ctrl, baseVersion: c.Version, openedAt: s.editorNow()}
	if snap := s.store.GetAutosave(ctx, id); snap != nil && snap.UpdatedAt.After(c.UpdatedAt) {
		sess.recoverable = true
	}

	s.mu.Lock()
	if existing, ok := s.sessions[id]; ok {
		s.mu.Unlock()
		ctrl.Close()
		existing.mu.Lock()
		defer existing.mu.Unlock()
		return s.view(id, existing), nil
	}
	s.sessions[id] = sess
	s.mu.Unlock()

	s.logger.Info("editing session opened", zap.String("canvas_id", id), zap.Bool("recoverable", sess.recoverable))
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.view(id, sess), nil
}

func (s *EditorService) editorNow() time.Time {
	if s.opts.Clock != nil {
		return s.opts.Clock.Now()
	}
	return time.Now()
}

// Get returns the session state
func (s *EditorService) Get(id string) (*SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.view(id, sess), nil
}

// Apply runs the mutations against the working copy in order. If any fails
// the working copy is left untouched.
func (s *EditorService) Apply(id string, mutations ...Mutation) (*SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	doc := sess.ctrl.Current()
	for _, m := range mutations {
		if err := m(s.editor, doc); err != nil {
			return nil, err
		}
	}
	if err := sess.ctrl.Update(doc); err != nil {
		return nil, err
	}
	return s.view(id, sess), nil
}

// Save writes the working copy to the autosave slot immediately
func (s *EditorService) Save(ctx context.Context, id string) (*SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.ctrl.Save(ctx); err != nil {
		return nil, err
	}
	return s.view(id, sess), nil
}

// Recover replaces the working copy with the autosave snapshot
func (s *EditorService) Recover(ctx context.Context, id string) (*SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	snap := s.store.GetAutosave(ctx, id)
	if snap == nil {
		return nil, fmt.Errorf("%w: no autosave snapshot for canvas %s", domain.ErrNotFound, id)
	}
	snap.ID = id
	snap.Version = sess.baseVersion
	if err := sess.ctrl.MarkSaved(snap); err != nil {
		return nil, err
	}
	sess.recoverable = false
	s.logger.Info("recovered autosave snapshot", zap.String("canvas_id", id))
	return s.view(id, sess), nil
}

// Commit writes the working copy into the main record. expectedVersion must
// match the stored version; zero means the version the session was opened at.
// The committed record's version is one more than the stored one.
func (s *EditorService) Commit(ctx context.Context, id string, expectedVersion int) (*SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if expectedVersion == 0 {
		expectedVersion = sess.baseVersion
	}
	stored := s.store.GetCanvasByID(ctx, id)
	if stored == nil {
		return nil, domain.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return nil, fmt.Errorf("%w: stored version %d, expected %d", domain.ErrVersionConflict, stored.Version, expectedVersion)
	}

	doc := sess.ctrl.Current()
	doc.Version = stored.Version + 1
	if !s.store.SaveCanvas(ctx, doc) {
		return nil, domain.ErrStorage
	}
	if !s.store.ClearAutosave(ctx, id) {
		s.logger.Warn("committed canvas but autosave slot remains", zap.String("canvas_id", id))
	}
	if err := sess.ctrl.MarkSaved(doc); err != nil {
		return nil, err
	}
	sess.baseVersion = doc.Version
	sess.recoverable = false
	s.logger.Info("canvas committed", zap.String("canvas_id", id), zap.Int("version", doc.Version))
	return s.view(id, sess), nil
}

// Close ends the session and stops its timers. The autosave slot is kept.
func (s *EditorService) Close(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: no editing session for canvas %s", domain.ErrNotFound, id)
	}
	sess.ctrl.Close()
	s.logger.Info("editing session closed", zap.String("canvas_id", id))
	return nil
}

// CloseAll ends every session
func (s *EditorService) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.ctrl.Close()
	}
	if len(sessions) > 0 {
		s.logger.Info("closed editing sessions", zap.Int("count", len(sessions)))
	}
}

// OpenIDs returns the ids of canvases with an active session, sorted
func (s *EditorService) OpenIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
