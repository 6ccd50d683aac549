package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stoik/triage/internal/models"
	"github.com/stoik/triage/services/triage-service/internal/metrics"
	"github.com/stoik/triage/services/triage-service/internal/ollama"
	"github.com/stoik/triage/services/triage-service/internal/parse"
	"github.com/stoik/triage/services/triage-service/internal/prompt"
	"github.com/stoik/triage/services/triage-service/internal/search"
)

// ErrInvalidInput is returned when caller-supplied input cannot be processed.
var ErrInvalidInput = errors.New("invalid input")

const (
	TaskChat           = "chat"
	TaskClassification = "classification"
	TaskExtraction     = "extraction"

	// ConversationTitleLimit is how many runes of the first message become the title.
	ConversationTitleLimit = 50

	DefaultChatTopK    = 5
	DefaultConcurrency = 4
	DefaultInterval    = time.Minute
	DefaultBatchSize   = 50
)

// Store is the persistence the orchestrator depends on.
type Store interface {
	search.CandidateSource
	GetEmailByID(ctx context.Context, id uuid.UUID) (models.EmailRecord, error)
	ListEmails(ctx context.Context, classification *models.Category, limit int) ([]models.EmailRecord, error)
	ListUnclassified(ctx context.Context, limit int) ([]models.EmailRecord, error)
	ListUnextracted(ctx context.Context, limit int) ([]models.EmailRecord, error)
	SaveClassification(ctx context.Context, id uuid.UUID, result models.ClassificationResult) error
	SaveEvent(ctx context.Context, emailID *uuid.UUID, event models.ExtractedEvent) (models.CalendarEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	CreateConversation(ctx context.Context, title string) (models.Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID) (models.Conversation, error)
	AddMessage(ctx context.Context, conversationID uuid.UUID, role models.Role, content string) (models.StoredMessage, error)
	GetMessages(ctx context.Context, conversationID uuid.UUID) ([]models.StoredMessage, error)
}

// EmbeddingCache is optional; a nil cache disables caching.
type EmbeddingCache interface {
	Get(ctx context.Context, model, text string) ([]float64, bool)
	Set(ctx context.Context, model, text string, vec []float64)
}

type Options struct {
	EmbedModel  string
	ChatTopK    int
	Concurrency int
	Interval    time.Duration
	BatchSize   int
}

type Service struct {
	store   Store
	gateway ollama.Gateway
	ranker  *search.Ranker
	parser  *parse.Parser
	cache   EmbeddingCache
	logger  *zap.Logger
	opts    Options

	// Performance counters logged by the worker
	stats workerStats
	// WaitGroup to track in-flight worker batches
	processingWg sync.WaitGroup
}

func NewService(store Store, gateway ollama.Gateway, cache EmbeddingCache, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ChatTopK <= 0 {
		opts.ChatTopK = DefaultChatTopK
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.EmbedModel == "" {
		opts.EmbedModel = ollama.DefaultEmbedModel
	}

	return &Service{
		store:   store,
		gateway: gateway,
		ranker:  search.NewRanker(store),
		parser:  parse.NewParser(logger),
		cache:   cache,
		logger:  logger,
		opts:    opts,
	}
}

// Search ranks stored emails against a keyword query.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]models.SearchResult, error) {
	results, err := s.ranker.Search(ctx, query, topK)
	switch {
	case err != nil:
		metrics.IncrementSearch("error")
		return nil, err
	case len(results) == 0:
		metrics.IncrementSearch("empty")
	default:
		metrics.IncrementSearch("hit")
	}
	return results, nil
}

// Classify runs the classification prompt for one email and stores the result.
// Unusable model output yields the default classification, not an error.
func (s *Service) Classify(ctx context.Context, id uuid.UUID) (models.ClassificationResult, error) {
	email, err := s.store.GetEmailByID(ctx, id)
	if err != nil {
		return models.ClassificationResult{}, err
	}
	return s.classifyEmail(ctx, email)
}

func (s *Service) classifyEmail(ctx context.Context, email models.EmailRecord) (models.ClassificationResult, error) {
	raw, err := s.complete(ctx, TaskClassification, prompt.Classification(email))
	if err != nil {
		return models.ClassificationResult{}, err
	}

	result, outcome := s.parser.Classification(raw)
	metrics.IncrementParseOutcome(TaskClassification, string(outcome))

	if err := s.store.SaveClassification(ctx, email.ID, result); err != nil {
		return result, fmt.Errorf("failed to save classification for %s: %w", email.ID, err)
	}

	s.logger.Debug("Classified email",
		zap.String("email_id", email.ID.String()),
		zap.String("classification", string(result.Classification)),
		zap.String("confidence", string(result.Confidence)),
		zap.String("outcome", string(outcome)),
	)
	return result, nil
}

// Extraction is the outcome of event extraction for one email.
type Extraction struct {
	EmailID uuid.UUID               `json:"emailId"`
	Events  []models.ExtractedEvent `json:"events"`
	Saved   []models.CalendarEvent  `json:"saved"`
}

// ExtractEvents runs the extraction prompt for one email, stores every valid event
// and marks the email processed. Unusable model output yields no events.
func (s *Service) ExtractEvents(ctx context.Context, id uuid.UUID) (Extraction, error) {
	email, err := s.store.GetEmailByID(ctx, id)
	if err != nil {
		return Extraction{}, err
	}
	return s.extractEmail(ctx, email)
}

func (s *Service) extractEmail(ctx context.Context, email models.EmailRecord) (Extraction, error) {
	out := Extraction{EmailID: email.ID, Events: []models.ExtractedEvent{}, Saved: []models.CalendarEvent{}}

	raw, err := s.complete(ctx, TaskExtraction, prompt.EventExtraction(email))
	if err != nil {
		return out, err
	}

	events, outcome := s.parser.Events(raw)
	metrics.IncrementParseOutcome(TaskExtraction, string(outcome))
	out.Events = events

	emailID := email.ID
	for _, event := range events {
		saved, err := s.store.SaveEvent(ctx, &emailID, event)
		if err != nil {
			return out, fmt.Errorf("failed to save event for %s: %w", email.ID, err)
		}
		out.Saved = append(out.Saved, saved)
	}

	if err := s.store.MarkProcessed(ctx, email.ID); err != nil {
		return out, fmt.Errorf("failed to mark %s processed: %w", email.ID, err)
	}

	s.logger.Debug("Extracted events",
		zap.String("email_id", email.ID.String()),
		zap.Int("events", len(events)),
		zap.String("outcome", string(outcome)),
	)
	return out, nil
}

// CreateEvent stores a manually entered event that is not tied to an email.
func (s *Service) CreateEvent(ctx context.Context, event models.ExtractedEvent) (models.CalendarEvent, error) {
	if strings.TrimSpace(event.Title) == "" || strings.TrimSpace(event.StartDate) == "" {
		return models.CalendarEvent{}, fmt.Errorf("%w: title and startDate are required", ErrInvalidInput)
	}
	return s.store.SaveEvent(ctx, nil, event)
}

type ChatRequest struct {
	Message        string
	ConversationID *uuid.UUID
}

type ChatReply struct {
	Response       string                `json:"response"`
	ConversationID uuid.UUID             `json:"conversationId"`
	Citations      []models.SearchResult `json:"citations"`
}

// Chat answers one turn of a conversation grounded on keyword-search references.
// A new conversation is started when req.ConversationID is nil.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (ChatReply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return ChatReply{}, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}

	var conv models.Conversation
	var err error
	if req.ConversationID == nil {
		conv, err = s.store.CreateConversation(ctx, prompt.Truncate(message, ConversationTitleLimit))
	} else {
		conv, err = s.store.GetConversation(ctx, *req.ConversationID)
	}
	if err != nil {
		return ChatReply{}, err
	}

	stored, err := s.store.GetMessages(ctx, conv.ID)
	if err != nil {
		return ChatReply{}, err
	}
	history := make([]models.ChatMessage, 0, len(stored))
	for _, m := range stored {
		history = append(history, models.ChatMessage{Role: m.Role, Content: m.Content})
	}

	if _, err := s.store.AddMessage(ctx, conv.ID, models.RoleUser, message); err != nil {
		return ChatReply{}, err
	}

	refs, err := s.Search(ctx, message, s.opts.ChatTopK)
	if err != nil {
		return ChatReply{}, err
	}

	answer, err := s.complete(ctx, TaskChat, prompt.ChatWithContext(message, refs, history))
	if err != nil {
		return ChatReply{}, err
	}

	if _, err := s.store.AddMessage(ctx, conv.ID, models.RoleAssistant, answer); err != nil {
		return ChatReply{}, err
	}

	return ChatReply{Response: answer, ConversationID: conv.ID, Citations: refs}, nil
}

// Embed returns the embedding for text, consulting the cache first.
// An empty vector means the embedding is unavailable.
func (s *Service) Embed(ctx context.Context, text string) []float64 {
	normalized := ollama.NormalizeEmbeddingText(text)

	if s.cache != nil {
		if vec, ok := s.cache.Get(ctx, s.opts.EmbedModel, normalized); ok {
			return vec
		}
	}

	vec := s.gateway.Embed(ctx, normalized)
	if s.cache != nil && len(vec) > 0 {
		s.cache.Set(ctx, s.opts.EmbedModel, normalized, vec)
	}
	return vec
}

type Status struct {
	Connected bool     `json:"connected"`
	BaseURL   string   `json:"baseUrl"`
	Models    []string `json:"models"`
}

// Status probes the model backend. It never fails.
func (s *Service) Status(ctx context.Context) Status {
	st := Status{BaseURL: s.gateway.BaseURL(), Models: []string{}}
	st.Connected = s.gateway.CheckConnection(ctx)
	if st.Connected {
		st.Models = s.gateway.ListModels(ctx)
	}
	return st
}

func (s *Service) complete(ctx context.Context, task string, messages []models.ChatMessage) (string, error) {
	start := time.Now()
	raw, err := s.gateway.Complete(ctx, messages, "")

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordModelCall(task, status, time.Since(start))

	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", task, err)
	}
	return raw, nil
}
