// Package canvases serves the catalog, stored canvases, templates and
// whole-store data endpoints.
package canvases

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/liliang-cn/aicanvas/internal/api/apierr"
	"github.com/liliang-cn/aicanvas/internal/catalog"
	"github.com/liliang-cn/aicanvas/internal/domain"
	"github.com/liliang-cn/aicanvas/internal/export"
	"github.com/liliang-cn/aicanvas/internal/service"
)

// maxUpload bounds imported documents and bundles
const maxUpload = 10 << 20

// Handler handles canvas API requests
type Handler struct {
	canvasService *service.CanvasService
	editorService *service.EditorService
}

// NewHandler creates a new canvas handler
func NewHandler(canvasService *service.CanvasService, editorService *service.EditorService) *Handler {
	return &Handler{
		canvasService: canvasService,
		editorService: editorService,
	}
}

// RegisterRoutes registers canvas routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Catalog
	cat := r.Group("/catalog")
	{
		cat.GET("/sections", h.ListSections)
		cat.GET("/sections/:id", h.GetSection)
		cat.GET("/phases", h.ListPhases)
		cat.GET("/phases/:phase/relevance", h.GetRelevance)
		cat.GET("/layers", h.ListLayers)
	}

	// Canvases
	canvases := r.Group("/canvases")
	{
		canvases.POST("", h.CreateCanvas)
		canvases.GET("", h.ListCanvases)
		canvases.POST("/import", h.ImportCanvas)
		canvases.GET("/:id", h.GetCanvas)
		canvases.PATCH("/:id", h.UpdateCanvas)
		canvases.DELETE("/:id", h.DeleteCanvas)
		canvases.POST("/:id/duplicate", h.DuplicateCanvas)
		canvases.GET("/:id/metrics", h.GetMetrics)
		canvases.GET("/:id/export/:format", h.ExportCanvas)
	}

	// Templates
	templates := r.Group("/templates")
	{
		templates.GET("", h.ListTemplates)
		templates.POST("", h.SaveTemplate)
		templates.GET("/:id", h.GetTemplate)
		templates.PUT("/:id", h.SaveTemplate)
		templates.DELETE("/:id", h.DeleteTemplate)
		templates.POST("/:id/canvases", h.InstantiateTemplate)
	}

	// Whole store
	r.GET("/data", h.ExportData)
	r.POST("/data", h.ImportData)
	r.DELETE("/data", h.ClearData)
	r.GET("/stats", h.GetStats)
	r.GET("/settings", h.GetSettings)
	r.PUT("/settings", h.SaveSettings)
}

// Catalog handlers

func (h *Handler) ListSections(c *gin.Context) {
	cat := h.canvasService.Catalog()
	if layer := c.Query("layer"); layer != "" {
		if !domain.Layer(layer).Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown layer " + layer})
			return
		}
		c.JSON(http.StatusOK, cat.SectionsByLayer(domain.Layer(layer)))
		return
	}
	c.JSON(http.StatusOK, cat.AllSections())
}

func (h *Handler) GetSection(c *gin.Context) {
	def, ok := h.canvasService.Catalog().SectionByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "section not found"})
		return
	}
	c.JSON(http.StatusOK, def)
}

func (h *Handler) ListPhases(c *gin.Context) {
	cat := h.canvasService.Catalog()
	phases := make([]catalog.PhaseInfo, 0, len(domain.AllPhases))
	for _, p := range domain.AllPhases {
		if info, ok := cat.PhaseInfo(p); ok {
			phases = append(phases, info)
		}
	}
	c.JSON(http.StatusOK, phases)
}

// GetRelevance maps every section id to its relevance in the phase
func (h *Handler) GetRelevance(c *gin.Context) {
	phase := domain.Phase(c.Param("phase"))
	if !phase.Valid() {
		c.JSON(http.StatusNotFound, gin.H{"error": "phase not found"})
		return
	}
	cat := h.canvasService.Catalog()
	relevance := make(map[string]catalog.Relevance, catalog.SectionCount)
	for _, def := range cat.AllSections() {
		relevance[def.ID] = cat.Relevance(def.ID, phase)
	}
	c.JSON(http.StatusOK, relevance)
}

func (h *Handler) ListLayers(c *gin.Context) {
	cat := h.canvasService.Catalog()
	layers := make([]gin.H, 0, len(domain.AllLayers))
	for _, l := range domain.AllLayers {
		info, _ := cat.LayerInfo(l)
		layers = append(layers, gin.H{
			"id":          l,
			"name":        info.Name,
			"subtitle":    info.Subtitle,
			"description": info.Description,
			"sections":    cat.SectionsByLayer(l),
		})
	}
	c.JSON(http.StatusOK, layers)
}

// Canvas handlers

func (h *Handler) CreateCanvas(c *gin.Context) {
	var req domain.CreateCanvasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadRequest(c, err)
		return
	}

	cv, err := h.canvasService.CreateCanvas(c.Request.Context(), &req)
	if err != nil {
		apierr.Write(c, err)
		return
	}

	c.JSON(http.StatusCreated, cv)
}

func (h *Handler) ListCanvases(c *gin.Context) {
	filters, err := canvasFilters(c)
	if err != nil {
		apierr.BadRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, h.canvasService.ListCanvases(c.Request.Context(), filters))
}

func (h *Handler) GetCanvas(c *gin.Context) {
	cv, err := h.canvasService.GetCanvas(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, cv)
}

func (h *Handler) UpdateCanvas(c *gin.Context) {
	var req domain.UpdateCanvasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadRequest(c, err)
		return
	}

	cv, err := h.canvasService.UpdateCanvas(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		apierr.Write(c, err)
		return
	}

	c.JSON(http.StatusOK, cv)
}

// DeleteCanvas removes the canvas and ends any editing session on it
func (h *Handler) DeleteCanvas(c *gin.Context) {
	id := c.Param("id")
	// End the session first so no pending autosave rewrites the slot.
	_ = h.editorService.Close(id)
	if err := h.canvasService.DeleteCanvas(c.Request.Context(), id); err != nil {
		apierr.Write(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "canvas deleted"})
}

func (h *Handler) DuplicateCanvas(c *gin.Context) {
	var req domain.DuplicateCanvasRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierr.BadRequest(c, err)
			return
		}
	}

	dup, err := h.canvasService.DuplicateCanvas(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		apierr.Write(c, err)
		return
	}

	c.JSON(http.StatusCreated, dup)
}

func (h *Handler) GetMetrics(c *gin.Context) {
	report, err := h.canvasService.Metrics(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ExportCanvas serves the canvas as a download. The metadata, readiness and
// comments query flags toggle the optional Markdown and text blocks.
func (h *Handler) ExportCanvas(c *gin.Context) {
	f, ok := export.ParseFormat(c.Param("format"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported export format " + c.Param("format")})
		return
	}

	opts := export.Options{
		IncludeMetadata:  queryBool(c, "metadata", true),
		IncludeReadiness: queryBool(c, "readiness", true),
		IncludeComments:  queryBool(c, "comments", false),
	}
	data, filename, err := h.canvasService.ExportCanvas(c.Request.Context(), c.Param("id"), f, opts)
	if err != nil {
		apierr.Write(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, f.ContentType(), data)
}

// ImportCanvas accepts an exported JSON document either as the request
// body or as the multipart field "file".
func (h *Handler) ImportCanvas(c *gin.Context) {
	data, err := readUpload(c)
	if err != nil {
		apierr.BadRequest(c, err)
		return
	}

	cv, err := h.canvasService.ImportCanvas(c.Request.Context(), data, queryBool(c, "overwrite", false))
	if err != nil {
		apierr.Write(c, err)
		return
	}

	c.JSON(http.StatusCreated, cv)
}

// Template handlers

func (h *Handler) ListTemplates(c *gin.Context) {
	filters := domain.TemplateFilters{
		Categories:  queryList(c, "category"),
		Industries:  queryList(c, "industry"),
		AITypes:     queryList(c, "aiType"),
		SearchQuery: c.Query("q"),
	}
	c.JSON(http.StatusOK, h.canvasService.ListTemplates(c.Request.Context(), filters))
}

func (h *Handler) GetTemplate(c *gin.Context) {
	t, err := h.canvasService.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) SaveTemplate(c *gin.Context) {
	var t domain.Template
	if err := c.ShouldBindJSON(&t); err != nil {
		apierr.BadRequest(c, err)
		return
	}

	status := http.StatusCreated
	if id := c.Param("id"); id != "" {
		if _, err := h.canvasService.GetTemplate(c.Request.Context(), id); err != nil {
			apierr.Write(c, err)
			return
		}
		t.ID = id
		status = http.StatusOK
	}

	saved, err := h.canvasService.SaveTemplate(c.Request.Context(), &t)
	if err != nil {
		apierr.Write(c, err)
		return
	}

	c.JSON(status, saved)
}

func (h *Handler) DeleteTemplate(c *gin.Context) {
	if err := h.canvasService.DeleteTemplate(c.Request.Context(), c.Param("id")); err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "template deleted"})
}

type instantiateRequest struct {
	Name        string `json:"name" binding:"required,min=3,max=100"`
	Owner       string `json:"owner" binding:"required,min=2,max=100"`
	UseCaseName string `json:"useCaseName,omitempty" binding:"omitempty,max=200"`
}

// InstantiateTemplate creates a canvas prefilled from the template
func (h *Handler) InstantiateTemplate(c *gin.Context) {
	var req instantiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadRequest(c, err)
		return
	}

	cv, err := h.canvasService.CreateCanvas(c.Request.Context(), &domain.CreateCanvasRequest{
		Name:        req.Name,
		Owner:       req.Owner,
		UseCaseName: req.UseCaseName,
		TemplateID:  c.Param("id"),
	})
	if err != nil {
		apierr.Write(c, err)
		return
	}

	c.JSON(http.StatusCreated, cv)
}

// Whole-store handlers

func (h *Handler) ExportData(c *gin.Context) {
	bundle := h.canvasService.ExportAll(c.Request.Context())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q",
		"ai-canvas-backup-"+bundle.ExportedAt.Format("2006-01-02")+".json"))
	c.JSON(http.StatusOK, bundle)
}

func (h *Handler) ImportData(c *gin.Context) {
	data, err := readUpload(c)
	if err != nil {
		apierr.BadRequest(c, err)
		return
	}
	if err := h.canvasService.ImportAll(c.Request.Context(), data); err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, h.canvasService.Stats(c.Request.Context()))
}

// ClearData wipes the store. It requires confirm=true and ends every open
// editing session first.
func (h *Handler) ClearData(c *gin.Context) {
	if !queryBool(c, "confirm", false) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "confirm=true is required to clear all data"})
		return
	}
	h.editorService.CloseAll()
	if err := h.canvasService.ClearAll(c.Request.Context()); err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "all data cleared"})
}

func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.canvasService.Stats(c.Request.Context()))
}

func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.canvasService.GetSettings(c.Request.Context()))
}

func (h *Handler) SaveSettings(c *gin.Context) {
	settings := make(map[string]any)
	if err := c.ShouldBindJSON(&settings); err != nil {
		apierr.BadRequest(c, err)
		return
	}
	if err := h.canvasService.SaveSettings(c.Request.Context(), settings); err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// Query helpers

// queryList accepts both repeated and comma-separated values
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func queryBool(c *gin.Context, key string, def bool) bool {
	v, ok := c.GetQuery(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func canvasFilters(c *gin.Context) (domain.CanvasFilters, error) {
	f := domain.CanvasFilters{
		Tags:        queryList(c, "tag"),
		SearchQuery: c.Query("q"),
	}
	for _, p := range queryList(c, "phase") {
		if !domain.Phase(p).Valid() {
			return f, fmt.Errorf("unknown phase %q", p)
		}
		f.Phases = append(f.Phases, domain.Phase(p))
	}
	for _, s := range queryList(c, "status") {
		if !domain.Status(s).Valid() {
			return f, fmt.Errorf("unknown status %q", s)
		}
		f.Statuses = append(f.Statuses, domain.Status(s))
	}

	from, to := c.Query("from"), c.Query("to")
	if from == "" && to == "" {
		return f, nil
	}
	f.DateRange = &domain.DateRange{}
	var err error
	if from != "" {
		if f.DateRange.Start, err = time.Parse(time.RFC3339, from); err != nil {
			return f, fmt.Errorf("invalid from: %w", err)
		}
	}
	if to != "" {
		if f.DateRange.End, err = time.Parse(time.RFC3339, to); err != nil {
			return f, fmt.Errorf("invalid to: %w", err)
		}
	}
	return f, nil
}

func readUpload(c *gin.Context) ([]byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, errors.New("file is required")
		}
		if fh.Size > maxUpload {
			return nil, errors.New("file too large")
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUpload+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxUpload {
		return nil, errors.New("request body too large")
	}
	if len(data) == 0 {
		return nil, errors.New("request body is empty")
	}
	return data, nil
}
