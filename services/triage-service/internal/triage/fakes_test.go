package triage

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/stoik/triage/internal/models"
	"github.com/stoik/triage/services/triage-service/internal/db"
)

type memStore struct {
	mu              sync.Mutex
	emails          map[uuid.UUID]*models.EmailRecord
	order           []uuid.UUID
	events          []models.CalendarEvent
	conversations   map[uuid.UUID]models.Conversation
	messages        map[uuid.UUID][]models.StoredMessage
	classifications int
}

func newMemStore(emails ...models.EmailRecord) *memStore {
	s := &memStore{
		emails:        map[uuid.UUID]*models.EmailRecord{},
		conversations: map[uuid.UUID]models.Conversation{},
		messages:      map[uuid.UUID][]models.StoredMessage{},
	}
	for _, e := range emails {
		e := e
		s.emails[e.ID] = &e
		s.order = append(s.order, e.ID)
	}
	return s
}

func (s *memStore) filter(keep func(models.EmailRecord) bool, limit int) []models.EmailRecord {
	out := []models.EmailRecord{}
	for _, id := range s.order {
		e := *s.emails[id]
		if keep(e) {
			out = append(out, e)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (s *memStore) SearchCandidates(_ context.Context, tokens []string, limit int) ([]models.EmailRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(func(e models.EmailRecord) bool {
		hay := strings.ToLower(e.Subject + e.Body + e.Sender + e.Date)
		for _, t := range tokens {
			if strings.Contains(hay, strings.ToLower(t)) {
				return true
			}
		}
		return false
	}, limit), nil
}

func (s *memStore) GetEmailByID(_ context.Context, id uuid.UUID) (models.EmailRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.emails[id]
	if !ok {
		return models.EmailRecord{}, db.ErrEmailNotFound
	}
	return *e, nil
}

func (s *memStore) ListEmails(_ context.Context, c *models.Category, limit int) ([]models.EmailRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(func(e models.EmailRecord) bool {
		return c == nil || (e.Classification != nil && *e.Classification == *c)
	}, limit), nil
}

func (s *memStore) ListUnclassified(_ context.Context, limit int) ([]models.EmailRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(func(e models.EmailRecord) bool { return e.Classification == nil }, limit), nil
}

func (s *memStore) ListUnextracted(_ context.Context, limit int) ([]models.EmailRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(func(e models.EmailRecord) bool { return !e.IsProcessed }, limit), nil
}

func (s *memStore) SaveClassification(_ context.Context, id uuid.UUID, r models.ClassificationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.emails[id]
	if !ok {
		return db.ErrEmailNotFound
	}
	c, conf := r.Classification, r.Confidence
	e.Classification = &c
	e.ClassificationConfidence = &conf
	s.classifications++
	return nil
}

func (s *memStore) SaveEvent(_ context.Context, emailID *uuid.UUID, ev models.ExtractedEvent) (models.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := models.CalendarEvent{
		ID:          uuid.New(),
		EmailID:     emailID,
		Title:       ev.Title,
		StartDate:   ev.StartDate,
		EndDate:     ev.EndDate,
		Location:    ev.Location,
		Description: ev.Description,
	}
	s.events = append(s.events, saved)
	return saved, nil
}

func (s *memStore) MarkProcessed(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.emails[id]
	if !ok {
		return db.ErrEmailNotFound
	}
	e.IsProcessed = true
	return nil
}

func (s *memStore) CreateConversation(_ context.Context, title string) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := models.Conversation{ID: uuid.New(), Title: title}
	s.conversations[c.ID] = c
	return c, nil
}

func (s *memStore) GetConversation(_ context.Context, id uuid.UUID) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return c, db.ErrConversationNotFound
	}
	return c, nil
}

func (s *memStore) AddMessage(_ context.Context, convID uuid.UUID, role models.Role, content string) (models.StoredMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[convID]; !ok {
		return models.StoredMessage{}, db.ErrConversationNotFound
	}
	m := models.StoredMessage{ID: uuid.New(), ConversationID: convID, Role: role, Content: content}
	s.messages[convID] = append(s.messages[convID], m)
	return m, nil
}

func (s *memStore) GetMessages(_ context.Context, convID uuid.UUID) ([]models.StoredMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.StoredMessage{}, s.messages[convID]...), nil
}

// stubGateway answers Complete with a function of the system prompt.
type stubGateway struct {
	mu        sync.Mutex
	respond   func(messages []models.ChatMessage) (string, error)
	calls     [][]models.ChatMessage
	embedding []float64
	embeds    int
	connected bool
}

func (g *stubGateway) Complete(_ context.Context, messages []models.ChatMessage, _ string) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, messages)
	g.mu.Unlock()
	return g.respond(messages)
}

func (g *stubGateway) CheckConnection(context.Context) bool { return g.connected }

func (g *stubGateway) Embed(context.Context, string) []float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.embeds++
	return g.embedding
}

func (g *stubGateway) ListModels(context.Context) []string { return []string{"llama3.2:latest"} }

func (g *stubGateway) BaseURL() string { return "http://ollama.test" }

type mapCache struct {
	mu   sync.Mutex
	data map[string][]float64
}

func (c *mapCache) Get(_ context.Context, model, text string) ([]float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[model+"|"+text]
	return v, ok
}

func (c *mapCache) Set(_ context.Context, model, text string, vec []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[model+"|"+text] = vec
}
