package api

import (
	"github.com/gin-gonic/gin"

	"github.com/liliang-cn/studydoc/internal/api/documents"
	"github.com/liliang-cn/studydoc/internal/api/interactions"
	"github.com/liliang-cn/studydoc/internal/api/middleware"
	"github.com/liliang-cn/studydoc/internal/service"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	APIKey       string
	AllowOrigins []string
}

// SetupRouter sets up the Gin router
func SetupRouter(
	documentService *service.DocumentService,
	interactionService *service.InteractionService,
	cfg RouterConfig,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS middleware
	r.Use(middleware.CORS(cfg.AllowOrigins))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(middleware.Auth(cfg.APIKey))

	documentsHandler := documents.NewHandler(documentService)
	documentsHandler.RegisterRoutes(api.Group("/documents"))

	interactionsHandler := interactions.NewHandler(interactionService, documentService)
	interactionsHandler.RegisterRoutes(api.Group("/interactions"))

	return r
}
