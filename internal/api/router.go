package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/liliang-cn/aicanvas/internal/api/canvases"
	"github.com/liliang-cn/aicanvas/internal/api/middleware"
	"github.com/liliang-cn/aicanvas/internal/api/sessions"
	"github.com/liliang-cn/aicanvas/internal/service"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	AllowOrigins []string
}

// SetupRouter sets up the Gin router
func SetupRouter(
	canvasService *service.CanvasService,
	editorService *service.EditorService,
	logger *zap.Logger,
	cfg RouterConfig,
) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))

	// CORS middleware
	r.Use(middleware.CORS(cfg.AllowOrigins))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	canvasHandler := canvases.NewHandler(canvasService, editorService)
	canvasHandler.RegisterRoutes(api)

	sessionHandler := sessions.NewHandler(editorService)
	sessionHandler.RegisterRoutes(api.Group("/sessions"))

	return r
}
