package documents

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/liliang-cn/studydoc/internal/domain"
	"github.com/liliang-cn/studydoc/internal/service"
)

// Handler handles document API requests
type Handler struct {
	documentService *service.DocumentService
}

// NewHandler creates a new documents handler
func NewHandler(documentService *service.DocumentService) *Handler {
	return &Handler{documentService: documentService}
}

// RegisterRoutes registers document routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.Import)
	r.GET("", h.List)
	r.GET("/search", h.Search)
	r.GET("/:id", h.Get)
}

// Import accepts a lesson file as JSON {name, content}
func (h *Handler) Import(c *gin.Context) {
	var req domain.ImportDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	document, err := h.documentService.Import(c.Request.Context(), req.Name, req.Content)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedFileType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, document)
}

func (h *Handler) List(c *gin.Context) {
	docs, err := h.documentService.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, domain.DocumentListResponse{Documents: docs, Total: len(docs)})
}

func (h *Handler) Get(c *gin.Context) {
	id := c.Param("id")
	content, err := h.documentService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, content)
}

// Search runs a semantic query over the index, e.g. GET /search?q=photosynthesis
func (h *Handler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	docs, err := h.documentService.Search(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, domain.SearchResponse{Query: query, Documents: docs})
}
