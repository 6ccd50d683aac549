package triage

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stoik/triage/internal/models"
	"github.com/stoik/triage/services/triage-service/internal/db"
	"github.com/stoik/triage/services/triage-service/internal/ollama"
)

const extractionPayload = `[{"title": "H-1234 블록 조립", "startDate": "2025-01-15 08:00", "endDate": "2025-01-20 17:00", "location": "제2공장 조립장", "description": null}]`

var h1234ID = uuid.MustParse("00000000-0000-0000-0000-000000001234")

func h1234() models.EmailRecord {
	return models.EmailRecord{
		ID:      h1234ID,
		Subject: "H-1234 block assembly schedule",
		Sender:  "park@example.com",
		Date:    "2025-01-04",
		Body:    "Assembly starts 2025-01-15 08:00, ends 2025-01-20 17:00, at Factory 2",
	}
}

func meetingEmail(n int) models.EmailRecord {
	return models.EmailRecord{
		ID:      uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n)),
		Subject: "주간 회의",
		Body:    "회의는 화요일입니다",
	}
}

func fixed(out string) func([]models.ChatMessage) (string, error) {
	return func([]models.ChatMessage) (string, error) { return out, nil }
}

func newTestService(store *memStore, gw *stubGateway) *Service {
	return NewService(store, gw, nil, Options{Concurrency: 2}, nil)
}

func TestService_ExtractEvents_EndToEnd(t *testing.T) {
	store := newMemStore(h1234())
	gw := &stubGateway{respond: fixed("추출 결과:\n" + extractionPayload)}
	svc := newTestService(store, gw)

	out, err := svc.ExtractEvents(context.Background(), h1234ID)
	require.NoError(t, err)
	require.Len(t, out.Events, 1)

	ev := out.Events[0]
	assert.Contains(t, ev.Title, "H-1234")
	assert.Equal(t, "2025-01-15 08:00", ev.StartDate)
	require.NotNil(t, ev.EndDate)
	assert.Equal(t, "2025-01-20 17:00", *ev.EndDate)
	require.NotNil(t, ev.Location)
	assert.Equal(t, "제2공장 조립장", *ev.Location)
	assert.Nil(t, ev.Description)

	require.Len(t, store.events, 1)
	require.NotNil(t, store.events[0].EmailID)
	assert.Equal(t, h1234ID, *store.events[0].EmailID)
	assert.True(t, store.emails[h1234ID].IsProcessed)

	require.Len(t, gw.calls, 1)
	assert.Equal(t, models.RoleSystem, gw.calls[0][0].Role)
	assert.Contains(t, gw.calls[0][1].Content, "수신일: 2025-01-04")
}

func TestService_ExtractEvents_MalformedOutputIsEmpty(t *testing.T) {
	store := newMemStore(h1234())
	svc := newTestService(store, &stubGateway{respond: fixed("not json")})

	out, err := svc.ExtractEvents(context.Background(), h1234ID)
	require.NoError(t, err)
	assert.Empty(t, out.Events)
	assert.Empty(t, store.events)
	assert.True(t, store.emails[h1234ID].IsProcessed)
}

func TestService_ExtractEvents_Errors(t *testing.T) {
	t.Run("unknown email", func(t *testing.T) {
		svc := newTestService(newMemStore(), &stubGateway{respond: fixed("[]")})
		_, err := svc.ExtractEvents(context.Background(), uuid.New())
		assert.ErrorIs(t, err, db.ErrEmailNotFound)
	})

	t.Run("upstream unavailable leaves the email pending", func(t *testing.T) {
		store := newMemStore(h1234())
		gw := &stubGateway{respond: func([]models.ChatMessage) (string, error) {
			return "", fmt.Errorf("%w: connection refused", ollama.ErrUpstreamUnavailable)
		}}
		_, err := newTestService(store, gw).ExtractEvents(context.Background(), h1234ID)
		assert.ErrorIs(t, err, ollama.ErrUpstreamUnavailable)
		assert.False(t, store.emails[h1234ID].IsProcessed)
	})
}

func TestService_Classify(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the parsed result", func(t *testing.T) {
		store := newMemStore(h1234())
		svc := newTestService(store, &stubGateway{respond: fixed(`{"classification": "reply_needed", "confidence": "medium"}`)})

		got, err := svc.Classify(ctx, h1234ID)
		require.NoError(t, err)
		assert.Equal(t, models.CategoryReplyNeeded, got.Classification)
		assert.Equal(t, models.ConfidenceMedium, got.Confidence)
		require.NotNil(t, store.emails[h1234ID].Classification)
		assert.Equal(t, models.CategoryReplyNeeded, *store.emails[h1234ID].Classification)
	})

	t.Run("malformed output falls back and is still stored", func(t *testing.T) {
		store := newMemStore(h1234())
		svc := newTestService(store, &stubGateway{respond: fixed("I am not sure.")})

		got, err := svc.Classify(ctx, h1234ID)
		require.NoError(t, err)
		assert.Equal(t, models.DefaultClassification(), got)
		assert.Equal(t, 1, store.classifications)
	})

	t.Run("idempotent for an unchanged email and response", func(t *testing.T) {
		store := newMemStore(h1234())
		gw := &stubGateway{respond: fixed(`{"classification": "meeting", "confidence": "high"}`)}
		svc := newTestService(store, gw)

		first, err := svc.Classify(ctx, h1234ID)
		require.NoError(t, err)
		second, err := svc.Classify(ctx, h1234ID)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		require.Len(t, gw.calls, 2)
		assert.Equal(t, gw.calls[0], gw.calls[1])
	})

	t.Run("upstream failure is surfaced", func(t *testing.T) {
		store := newMemStore(h1234())
		gw := &stubGateway{respond: func([]models.ChatMessage) (string, error) {
			return "", ollama.ErrUpstreamUnavailable
		}}
		_, err := newTestService(store, gw).Classify(ctx, h1234ID)
		assert.ErrorIs(t, err, ollama.ErrUpstreamUnavailable)
		assert.Nil(t, store.emails[h1234ID].Classification)
	})
}

func TestService_ClassifyAll(t *testing.T) {
	emails := []models.EmailRecord{h1234(), meetingEmail(1), meetingEmail(2), meetingEmail(3)}
	store := newMemStore(emails...)
	reference := models.CategoryReference
	store.emails[emails[3].ID].Classification = &reference

	gw := &stubGateway{respond: func(messages []models.ChatMessage) (string, error) {
		if strings.Contains(messages[1].Content, "H-1234") {
			return "", ollama.ErrUpstreamUnavailable
		}
		return `{"classification": "meeting", "confidence": "high"}`, nil
	}}
	svc := newTestService(store, gw)

	result, err := svc.ClassifyAll(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Classified)
	assert.Equal(t, 1, result.Failed)

	result, err = svc.ClassifyAll(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 3, result.Classified)
}

func TestService_Search(t *testing.T) {
	store := newMemStore(h1234(), meetingEmail(1))
	svc := newTestService(store, &stubGateway{})

	results, err := svc.Search(context.Background(), "h-1234", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, h1234ID.String(), results[0].MailID)
	assert.GreaterOrEqual(t, results[0].Score, 1)

	results, err = svc.Search(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestService_Chat(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(h1234(), meetingEmail(1))
	gw := &stubGateway{respond: fixed("화요일입니다. [출처: x]")}
	svc := newTestService(store, gw)

	longQuestion := "회의 " + strings.Repeat("가", 80)
	first, err := svc.Chat(ctx, ChatRequest{Message: longQuestion})
	require.NoError(t, err)
	assert.Equal(t, "화요일입니다. [출처: x]", first.Response)
	require.NotEmpty(t, first.Citations)
	assert.Equal(t, meetingEmail(1).ID.String(), first.Citations[0].MailID)

	conv := store.conversations[first.ConversationID]
	assert.Equal(t, []rune(longQuestion)[:ConversationTitleLimit], []rune(conv.Title))

	second, err := svc.Chat(ctx, ChatRequest{Message: "장소는?", ConversationID: &first.ConversationID})
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	msgs := store.messages[first.ConversationID]
	require.Len(t, msgs, 4)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)

	// second call: system, prior user, prior assistant, new user
	require.Len(t, gw.calls, 2)
	secondPrompt := gw.calls[1]
	require.Len(t, secondPrompt, 4)
	assert.Equal(t, longQuestion, secondPrompt[1].Content)
	assert.Contains(t, secondPrompt[3].Content, "질문: 장소는?")
}

func TestService_Chat_Errors(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemStore(), &stubGateway{respond: fixed("ok")})

	_, err := svc.Chat(ctx, ChatRequest{Message: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	missing := uuid.New()
	_, err = svc.Chat(ctx, ChatRequest{Message: "hi", ConversationID: &missing})
	assert.ErrorIs(t, err, db.ErrConversationNotFound)

	down := newTestService(newMemStore(), &stubGateway{respond: func([]models.ChatMessage) (string, error) {
		return "", ollama.ErrUpstreamUnavailable
	}})
	_, err = down.Chat(ctx, ChatRequest{Message: "hi"})
	assert.ErrorIs(t, err, ollama.ErrUpstreamUnavailable)
}

func TestService_CreateEvent(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &stubGateway{})

	_, err := svc.CreateEvent(context.Background(), models.ExtractedEvent{Title: " ", StartDate: "2025-01-01"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	saved, err := svc.CreateEvent(context.Background(), models.ExtractedEvent{Title: "안전 교육", StartDate: "2025-02-01"})
	require.NoError(t, err)
	assert.Nil(t, saved.EmailID)
	assert.Len(t, store.events, 1)
}

func TestService_Embed(t *testing.T) {
	ctx := context.Background()
	cache := &mapCache{data: map[string][]float64{}}

	gw := &stubGateway{embedding: []float64{0.1, 0.2}}
	svc := NewService(newMemStore(), gw, cache, Options{EmbedModel: "nomic-embed-text"}, nil)

	assert.Equal(t, []float64{0.1, 0.2}, svc.Embed(ctx, "line\nbreak"))
	assert.Equal(t, []float64{0.1, 0.2}, svc.Embed(ctx, "line break"))
	assert.Equal(t, 1, gw.embeds)

	empty := &stubGateway{embedding: []float64{}}
	svc = NewService(newMemStore(), empty, cache, Options{EmbedModel: "other"}, nil)
	assert.Empty(t, svc.Embed(ctx, "x"))
	assert.Empty(t, svc.Embed(ctx, "x"))
	assert.Equal(t, 2, empty.embeds)
}

func TestService_Status(t *testing.T) {
	up := newTestService(newMemStore(), &stubGateway{connected: true})
	st := up.Status(context.Background())
	assert.True(t, st.Connected)
	assert.Equal(t, "http://ollama.test", st.BaseURL)
	assert.Equal(t, []string{"llama3.2:latest"}, st.Models)

	down := newTestService(newMemStore(), &stubGateway{})
	st = down.Status(context.Background())
	assert.False(t, st.Connected)
	assert.Empty(t, st.Models)
}

func TestService_RunProcessesPendingAndShutsDown(t *testing.T) {
	store := newMemStore(h1234(), meetingEmail(1))
	gw := &stubGateway{respond: func(messages []models.ChatMessage) (string, error) {
		if strings.Contains(messages[0].Content, "classification") {
			return `{"classification": "meeting", "confidence": "high"}`, nil
		}
		if strings.Contains(messages[1].Content, "H-1234") {
			return extractionPayload, nil
		}
		return "[]", nil
	}}
	svc := NewService(store, gw, nil, Options{Concurrency: 2, Interval: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		pending, _ := store.ListUnextracted(context.Background(), 0)
		return len(pending) == 0
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.True(t, svc.Shutdown(time.Second))
	require.NoError(t, <-done)

	unclassified, _ := store.ListUnclassified(context.Background(), 0)
	assert.Empty(t, unclassified)
	assert.Len(t, store.events, 1)
}
