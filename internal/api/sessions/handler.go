// Package sessions serves editing sessions: the working copy of a canvas
// with its autosave state.
package sessions

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/liliang-cn/aicanvas/internal/api/apierr"
	"github.com/liliang-cn/aicanvas/internal/canvas"
	"github.com/liliang-cn/aicanvas/internal/domain"
	"github.com/liliang-cn/aicanvas/internal/service"
)

// Handler handles editing session requests
type Handler struct {
	editorService *service.EditorService
}

// NewHandler creates a new session handler
func NewHandler(editorService *service.EditorService) *Handler {
	return &Handler{editorService: editorService}
}

// RegisterRoutes registers session routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.ListSessions)
	r.POST("/:id", h.OpenSession)
	r.GET("/:id", h.GetSession)
	r.DELETE("/:id", h.CloseSession)

	r.PATCH("/:id", h.UpdateFields)
	r.PATCH("/:id/sections/:section", h.UpdateSection)
	r.PUT("/:id/sections/:section/answers", h.SetAnswer)
	r.POST("/:id/sections/:section/comments", h.AddComment)
	r.POST("/:id/sections/:section/comments/:comment/resolve", h.ResolveComment)
	r.PUT("/:id/readiness", h.SetReadiness)
	r.PUT("/:id/phase", h.SetPhase)
	r.POST("/:id/advance", h.AdvancePhase)
	r.POST("/:id/tags", h.AddTag)
	r.DELETE("/:id/tags/:tag", h.RemoveTag)

	r.POST("/:id/save", h.Save)
	r.POST("/:id/commit", h.Commit)
	r.POST("/:id/recover", h.Recover)
}

func (h *Handler) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"canvasIds": h.editorService.OpenIDs()})
}

func (h *Handler) OpenSession(c *gin.Context) {
	view, err := h.editorService.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) GetSession(c *gin.Context) {
	view, err := h.editorService.Get(c.Param("id"))
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) CloseSession(c *gin.Context) {
	if err := h.editorService.Close(c.Param("id")); err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session closed"})
}

// Edits

func (h *Handler) apply(c *gin.Context, m service.Mutation) {
	view, err := h.editorService.Apply(c.Param("id"), m)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) UpdateFields(c *gin.Context) {
	var req domain.UpdateCanvasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadRequest(c, err)
		return
	}
	h.apply(c, func(e *canvas.Editor, cv *domain.Canvas) error {
		return e.UpdateFields(cv, &req)
	})
}

func (h *Handler) UpdateSection(c *gin.Context) {
	var req domain.UpdateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadRequest(c, err)
		return
	}
	section := c.Param("section")
	h.apply(c, func(e *canvas.Editor, cv *domain.Canvas) error {
		return e.UpdateSection(cv, section, &req)
	})
}

func (h *Handler) SetAnswer(c *gin.Context) {
	var req domain.SetAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadRequest(c, err)
		return
	}
	section := c.Param("section")
	h.apply(c, func(e *canvas.Editor, cv *domain.Canvas) error {
		return e.SetAnswer(cv, section, req.Index, req.Answer)
	})
}

func (h *Handler) AddComment(c *gin.Context) {
	var req domain.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadRequest(c, err)
		return
	}
	section := c.Param("section")

	var added *domain.Comment
	view, err := h.editorService.Apply(c.Param("id"), func(e *canvas.Editor, cv *domain.Canvas) error {
		var err error
		added, err = e.AddComment(cv, section, req.Author, req.Text)
		return err
	})
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": added, "session": view})
}

func (h *Handler) ResolveComment(c *gin.Context) {
	section, comment := c.Param("section"), c.Param("comment")
	h.apply(c, func(e *canvas.Editor, cv *domain.Canvas) error {
		return e.ResolveComment(cv, section, comment)
	})
}

func (h *Handler) SetReadiness(c *gin.Context) {
	var req domain.SetReadinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadRequest(c, err)
		return
	}
	h.apply(c, func(e *canvas.Editor, cv *domain.Canvas) error {
		return e.SetReadiness(cv, req.Layer, req.Level)
	})
}

func (h *Handler) SetPhase(c *gin.Context) {
	var req domain.SetPhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadRequest(c, err)
		return
	}
	h.apply(c, func(e *canvas.Editor, cv *domain.Canvas) error {
		return e.SetPhase(cv, req.Phase)
	})
}

func (h *Handler) AdvancePhase(c *gin.Context) {
	h.apply(c, func(e *canvas.Editor, cv *domain.Canvas) error {
		return e.AdvancePhase(cv)
	})
}

func (h *Handler) AddTag(c *gin.Context) {
	var req domain.TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadRequest(c, err)
		return
	}
	h.apply(c, func(e *canvas.Editor, cv *domain.Canvas) error {
		return e.AddTag(cv, req.Tag)
	})
}

func (h *Handler) RemoveTag(c *gin.Context) {
	tag := c.Param("tag")
	h.apply(c, func(e *canvas.Editor, cv *domain.Canvas) error {
		e.RemoveTag(cv, tag)
		return nil
	})
}

// Persistence

func (h *Handler) Save(c *gin.Context) {
	view, err := h.editorService.Save(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) Commit(c *gin.Context) {
	var req domain.CommitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierr.BadRequest(c, err)
			return
		}
	}
	view, err := h.editorService.Commit(c.Request.Context(), c.Param("id"), req.ExpectedVersion)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) Recover(c *gin.Context) {
	view, err := h.editorService.Recover(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
