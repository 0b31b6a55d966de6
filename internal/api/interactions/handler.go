package interactions

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/liliang-cn/studydoc/internal/domain"
	"github.com/liliang-cn/studydoc/internal/service"
)

// Handler handles interaction API requests. Mutating endpoints return the
// state snapshot taken right after the call, so a client can render the
// pending placeholder immediately and poll for the completed turn.
type Handler struct {
	interactionService *service.InteractionService
	documentService    *service.DocumentService
}

// NewHandler creates a new interactions handler
func NewHandler(interactionService *service.InteractionService, documentService *service.DocumentService) *Handler {
	return &Handler{
		interactionService: interactionService,
		documentService:    documentService,
	}
}

// RegisterRoutes registers interaction routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.Open)
	r.GET("/:id", h.Get)
	r.POST("/:id/messages", h.SendMessage)
	r.POST("/:id/mode", h.ToggleMode)
	r.POST("/:id/quiz/question", h.NewQuestion)
	r.POST("/:id/quiz/answer", h.SubmitAnswer)
	r.POST("/:id/reformat", h.Reformat)
	r.DELETE("/:id", h.Close)
}

func (h *Handler) Open(c *gin.Context) {
	var req domain.OpenInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.interactionService.Open(c.Request.Context(), req.DocumentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, state)
}

func (h *Handler) Get(c *gin.Context) {
	sess := h.interactionService.Get(c.Param("id"))
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "interaction not found"})
		return
	}

	c.JSON(http.StatusOK, sess.Snapshot())
}

func (h *Handler) SendMessage(c *gin.Context) {
	sess := h.interactionService.Get(c.Param("id"))
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "interaction not found"})
		return
	}

	var req domain.ChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess.SendChatMessage(req.Message)
	c.JSON(http.StatusAccepted, sess.Snapshot())
}

func (h *Handler) ToggleMode(c *gin.Context) {
	sess := h.interactionService.Get(c.Param("id"))
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "interaction not found"})
		return
	}

	sess.ToggleMode()
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (h *Handler) NewQuestion(c *gin.Context) {
	sess := h.interactionService.Get(c.Param("id"))
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "interaction not found"})
		return
	}

	sess.RequestNewQuestion()
	c.JSON(http.StatusAccepted, sess.Snapshot())
}

func (h *Handler) SubmitAnswer(c *gin.Context) {
	sess := h.interactionService.Get(c.Param("id"))
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "interaction not found"})
		return
	}

	var req domain.QuizAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess.SubmitAnswer(req.Answer)
	c.JSON(http.StatusAccepted, sess.Snapshot())
}

// Reformat asks the model to clean up the lesson text. The rewritten
// content is persisted and reindexed when generation completes.
func (h *Handler) Reformat(c *gin.Context) {
	sess := h.interactionService.Get(c.Param("id"))
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "interaction not found"})
		return
	}

	content, err := h.documentService.Get(c.Request.Context(), sess.Snapshot().DocumentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	sess.ReformatDocument(content.Content)
	c.JSON(http.StatusAccepted, sess.Snapshot())
}

func (h *Handler) Close(c *gin.Context) {
	if err := h.interactionService.Close(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "interaction not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}
