package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stoik/triage/internal/models"
	"github.com/stoik/triage/services/triage-service/internal/db"
	svcmodels "github.com/stoik/triage/services/triage-service/internal/models"
	"github.com/stoik/triage/services/triage-service/internal/ollama"
	"github.com/stoik/triage/services/triage-service/internal/triage"
)

// Triage is the orchestrator surface used by the handlers.
type Triage interface {
	Search(ctx context.Context, query string, topK int) ([]models.SearchResult, error)
	Classify(ctx context.Context, id uuid.UUID) (models.ClassificationResult, error)
	ClassifyAll(ctx context.Context, onlyUnclassified bool) (svcmodels.ClassifyAllResult, error)
	ExtractEvents(ctx context.Context, id uuid.UUID) (triage.Extraction, error)
	CreateEvent(ctx context.Context, event models.ExtractedEvent) (models.CalendarEvent, error)
	Chat(ctx context.Context, req triage.ChatRequest) (triage.ChatReply, error)
	Embed(ctx context.Context, text string) []float64
	Status(ctx context.Context) triage.Status
}

// Repository is the read side of the store plus import.
type Repository interface {
	GetStats(ctx context.Context) (svcmodels.Stats, error)
	ImportEmails(ctx context.Context, filename string, emails []models.NewEmail) ([]uuid.UUID, error)
	GetEmailByID(ctx context.Context, id uuid.UUID) (models.EmailRecord, error)
	ListEmails(ctx context.Context, classification *models.Category, limit int) ([]models.EmailRecord, error)
	ListUnextracted(ctx context.Context, limit int) ([]models.EmailRecord, error)
	ListEvents(ctx context.Context) ([]models.CalendarEvent, error)
	ListConversations(ctx context.Context) ([]models.Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID) (models.Conversation, error)
	GetMessages(ctx context.Context, conversationID uuid.UUID) ([]models.StoredMessage, error)
}

const (
	MinTopK = 1
	MaxTopK = 50

	// maxUploadBytes bounds an import upload.
	maxUploadBytes = 100 << 20
)

type Handler struct {
	triage      Triage
	repo        Repository
	defaultTopK int
	logger      *zap.Logger
}

func NewHandler(t Triage, repo Repository, defaultTopK int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultTopK < MinTopK || defaultTopK > MaxTopK {
		defaultTopK = 10
	}
	return &Handler{triage: t, repo: repo, defaultTopK: defaultTopK, logger: logger}
}

// fail maps an error to a status code and a user-readable message.
func (h *Handler) fail(c *gin.Context, op string, err error, fallback string) {
	status, msg := http.StatusInternalServerError, fallback

	switch {
	case errors.Is(err, ollama.ErrUpstreamUnavailable):
		status, msg = http.StatusServiceUnavailable, ollama.UserMessage
	case errors.Is(err, db.ErrEmailNotFound):
		status, msg = http.StatusNotFound, "이메일을 찾을 수 없습니다."
	case errors.Is(err, db.ErrConversationNotFound):
		status, msg = http.StatusNotFound, "대화를 찾을 수 없습니다."
	case errors.Is(err, triage.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", zap.Int("status", status), zap.Error(err))
	} else {
		h.logger.Warn(op+" rejected", zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func parseID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "잘못된 "+what+" ID입니다.")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.repo.GetStats(c.Request.Context())
	if err != nil {
		h.fail(c, "Stats", err, "통계를 가져오는 중 오류가 발생했습니다.")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) OllamaStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.triage.Status(c.Request.Context()))
}

type embeddingRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *Handler) Embeddings(c *gin.Context) {
	var req embeddingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "text 필드가 필요합니다.")
		return
	}

	vec := h.triage.Embed(c.Request.Context(), req.Text)
	c.JSON(http.StatusOK, gin.H{
		"embedding": vec,
		"available": len(vec) > 0,
	})
}
