package canvas

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/liliang-cn/aicanvas/internal/catalog"
	"github.com/liliang-cn/aicanvas/internal/domain"
)

// Field limits, in characters.
const (
	MaxAnswerLength  = 5000
	MaxNotesLength   = 2000
	MaxCommentLength = 1000
	MinTagLength     = 2
	MaxTagLength     = 30
)

var tagPattern = regexp.MustCompile(`^[a-zA-Z0-9\-_\s]+$`)

// Editor applies mutations to canvases. Every mutation touches UpdatedAt.
type Editor struct {
	cat *catalog.Catalog
	now func() time.Time
}

// NewEditor creates an editor. A nil clock uses time.Now.
func NewEditor(cat *catalog.Catalog, now func() time.Time) *Editor {
	if now == nil {
		now = time.Now
	}
	return &Editor{cat: cat, now: now}
}

// Catalog returns the catalog the editor validates against.
func (e *Editor) Catalog() *catalog.Catalog {
	return e.cat
}

func (e *Editor) touch(c *domain.Canvas, editor string) {
	c.Touch(e.now())
	if editor != "" {
		c.LastEditedBy = editor
	}
}

// UpdateFields patches top-level fields.
func (e *Editor) UpdateFields(c *domain.Canvas, req *domain.UpdateCanvasRequest) error {
	if req.Status != nil && !req.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidRequest, *req.Status)
	}
	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.UseCaseName != nil {
		c.UseCaseName = strings.TrimSpace(*req.UseCaseName)
	}
	if req.UseCaseOwner != nil {
		c.UseCaseOwner = strings.TrimSpace(*req.UseCaseOwner)
	}
	if req.Owner != nil {
		c.Owner = strings.TrimSpace(*req.Owner)
	}
	if req.Status != nil {
		c.Status = *req.Status
	}
	if req.Collaborators != nil {
		c.Collaborators = slices.Clone(req.Collaborators)
	}
	e.touch(c, req.EditedBy)
	return nil
}

// UpdateSection patches a section's answers, notes or display flag.
func (e *Editor) UpdateSection(c *domain.Canvas, sectionID string, req *domain.UpdateSectionRequest) error {
	content, _, err := Section(e.cat, c, sectionID)
	if err != nil {
		return err
	}
	if req.Answers != nil {
		if len(req.Answers) != len(content.Answers) {
			return fmt.Errorf("%w: section %s takes %d answers", domain.ErrInvalidRequest, sectionID, len(content.Answers))
		}
		for _, a := range req.Answers {
			if utf8.RuneCountInString(a) > MaxAnswerLength {
				return fmt.Errorf("%w: answer exceeds %d characters", domain.ErrInvalidRequest, MaxAnswerLength)
			}
		}
	}
	if req.Notes != nil && utf8.RuneCountInString(*req.Notes) > MaxNotesLength {
		return fmt.Errorf("%w: notes exceed %d characters", domain.ErrInvalidRequest, MaxNotesLength)
	}

	if req.Answers != nil {
		content.Answers = slices.Clone(req.Answers)
	}
	if req.Notes != nil {
		content.Notes = *req.Notes
	}
	if req.ExpandedByDefault != nil {
		content.ExpandedByDefault = *req.ExpandedByDefault
	}
	e.touch(c, "")
	return nil
}

// SetAnswer replaces a single answer slot.
func (e *Editor) SetAnswer(c *domain.Canvas, sectionID string, index int, answer string) error {
	content, _, err := Section(e.cat, c, sectionID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(content.Answers) {
		return fmt.Errorf("%w: question index %d out of range for %s", domain.ErrInvalidRequest, index, sectionID)
	}
	if utf8.RuneCountInString(answer) > MaxAnswerLength {
		return fmt.Errorf("%w: answer exceeds %d characters", domain.ErrInvalidRequest, MaxAnswerLength)
	}
	content.Answers[index] = answer
	e.touch(c, "")
	return nil
}

// SetNotes replaces a section's notes.
func (e *Editor) SetNotes(c *domain.Canvas, sectionID, notes string) error {
	return e.UpdateSection(c, sectionID, &domain.UpdateSectionRequest{Notes: &notes})
}

// SetReadiness sets the readiness of one layer.
func (e *Editor) SetReadiness(c *domain.Canvas, layer domain.Layer, level domain.ReadinessLevel) error {
	if !layer.Valid() {
		return fmt.Errorf("%w: unknown layer %q", domain.ErrInvalidRequest, layer)
	}
	if !level.Valid() {
		return fmt.Errorf("%w: unknown readiness %q", domain.ErrInvalidRequest, level)
	}
	c.Readiness.Set(layer, level)
	e.touch(c, "")
	return nil
}

// SetPhase moves the canvas to phase, at most one step from the current one.
func (e *Editor) SetPhase(c *domain.Canvas, phase domain.Phase) error {
	if !phase.Valid() {
		return fmt.Errorf("%w: unknown phase %q", domain.ErrInvalidRequest, phase)
	}
	if !catalog.IsValidPhaseTransition(c.Phase, phase) {
		return fmt.Errorf("%w: %s to %s", domain.ErrInvalidPhaseTransition, c.Phase, phase)
	}
	c.Phase = phase
	e.touch(c, "")
	return nil
}

// AdvancePhase moves to the next phase unless a layer is red or the canvas is
// already in the final phase.
func (e *Editor) AdvancePhase(c *domain.Canvas) error {
	if ok, reason := catalog.CanAdvancePhase(c.Phase, c.Readiness); !ok {
		return fmt.Errorf("%w: %s", domain.ErrPhaseBlocked, reason)
	}
	next, _ := catalog.NextPhase(c.Phase)
	c.Phase = next
	e.touch(c, "")
	return nil
}

// ValidateTag checks the tag rules.
func ValidateTag(tag string) error {
	tag = strings.TrimSpace(tag)
	n := utf8.RuneCountInString(tag)
	if n < MinTagLength || n > MaxTagLength {
		return fmt.Errorf("%w: tag must be %d to %d characters", domain.ErrInvalidRequest, MinTagLength, MaxTagLength)
	}
	if !tagPattern.MatchString(tag) {
		return fmt.Errorf("%w: tag can only contain letters, numbers, hyphens, and underscores", domain.ErrInvalidRequest)
	}
	return nil
}

// AddTag adds a tag. Adding an existing tag is a no-op.
func (e *Editor) AddTag(c *domain.Canvas, tag string) error {
	if err := ValidateTag(tag); err != nil {
		return err
	}
	tag = strings.TrimSpace(tag)
	if c.HasTag(tag) {
		return nil
	}
	c.Tags = append(c.Tags, tag)
	e.touch(c, "")
	return nil
}

// RemoveTag removes a tag if present.
func (e *Editor) RemoveTag(c *domain.Canvas, tag string) {
	c.Tags = slices.DeleteFunc(c.Tags, func(t string) bool { return t == tag })
	e.touch(c, "")
}

// AddComment attaches a new unresolved comment to a section.
func (e *Editor) AddComment(c *domain.Canvas, sectionID, author, text string) (*domain.Comment, error) {
	content, _, err := Section(e.cat, c, sectionID)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > MaxCommentLength {
		return nil, fmt.Errorf("%w: comment must be 1 to %d characters", domain.ErrInvalidRequest, MaxCommentLength)
	}
	comment := domain.Comment{
		ID:        uuid.New().String(),
		Author:    author,
		Text:      text,
		Timestamp: e.now(),
	}
	content.Comments = append(content.Comments, comment)
	e.touch(c, author)
	return &comment, nil
}

// ResolveComment marks a comment resolved.
func (e *Editor) ResolveComment(c *domain.Canvas, sectionID, commentID string) error {
	content, _, err := Section(e.cat, c, sectionID)
	if err != nil {
		return err
	}
	for i := range content.Comments {
		if content.Comments[i].ID == commentID {
			content.Comments[i].Resolved = true
			e.touch(c, "")
			return nil
		}
	}
	return fmt.Errorf("%w: comment %s", domain.ErrNotFound, commentID)
}
