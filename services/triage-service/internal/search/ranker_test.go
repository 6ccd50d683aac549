package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stoik/triage/internal/models"
)

type fakeSource struct {
	emails    []models.EmailRecord
	err       error
	calls     int
	gotTokens []string
	gotLimit  int
}

func (f *fakeSource) SearchCandidates(_ context.Context, tokens []string, limit int) ([]models.EmailRecord, error) {
	f.calls++
	f.gotTokens = tokens
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if len(f.emails) > limit {
		return f.emails[:limit], nil
	}
	return f.emails, nil
}

func email(id, subject, body string) models.EmailRecord {
	return models.EmailRecord{
		ID:      uuid.MustParse(id),
		Subject: subject,
		Body:    body,
		Sender:  "kim@example.com",
		Date:    "2025-01-04",
	}
}

func TestRanker_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("whitespace query returns empty without hitting the store", func(t *testing.T) {
		src := &fakeSource{}
		results, err := NewRanker(src).Search(ctx, "   ", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
		assert.Equal(t, 0, src.calls)
	})

	t.Run("exact substring match is returned with score at least one", func(t *testing.T) {
		src := &fakeSource{emails: []models.EmailRecord{
			email("00000000-0000-0000-0000-000000000001", "H-1234 block assembly schedule", "Assembly starts 2025-01-15"),
		}}
		results, err := NewRanker(src).Search(ctx, "h-1234", 5)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.GreaterOrEqual(t, results[0].Score, 1)
		assert.Equal(t, "00000000-0000-0000-0000-000000000001", results[0].MailID)
		assert.Equal(t, []string{"h-1234"}, src.gotTokens)
		assert.Equal(t, MaxCandidates, src.gotLimit)
	})

	t.Run("sorted by score with ascending id tie-break", func(t *testing.T) {
		src := &fakeSource{emails: []models.EmailRecord{
			email("00000000-0000-0000-0000-000000000003", "meeting", "meeting"),
			email("00000000-0000-0000-0000-000000000002", "meeting", ""),
			email("00000000-0000-0000-0000-000000000001", "meeting", ""),
			email("00000000-0000-0000-0000-000000000004", "lunch", "nothing here"),
		}}
		results, err := NewRanker(src).Search(ctx, "meeting", 10)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "00000000-0000-0000-0000-000000000003", results[0].MailID)
		assert.Equal(t, 2, results[0].Score)
		assert.Equal(t, "00000000-0000-0000-0000-000000000001", results[1].MailID)
		assert.Equal(t, "00000000-0000-0000-0000-000000000002", results[2].MailID)
	})

	t.Run("topK zero is floored to one", func(t *testing.T) {
		src := &fakeSource{emails: []models.EmailRecord{
			email("00000000-0000-0000-0000-000000000001", "report", ""),
			email("00000000-0000-0000-0000-000000000002", "report", ""),
		}}
		results, err := NewRanker(src).Search(ctx, "report", 0)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("large topK is bounded by scoring candidates and the pre-filter cap", func(t *testing.T) {
		var emails []models.EmailRecord
		for i := 0; i < 150; i++ {
			emails = append(emails, email(fmt.Sprintf("00000000-0000-0000-0000-%012d", i+1), "report", ""))
		}
		results, err := NewRanker(&fakeSource{emails: emails}).Search(ctx, "report", 1000)
		require.NoError(t, err)
		assert.Len(t, results, MaxCandidates)
	})

	t.Run("candidates matching only on sender score zero and are dropped", func(t *testing.T) {
		src := &fakeSource{emails: []models.EmailRecord{
			email("00000000-0000-0000-0000-000000000001", "hello", "body"),
		}}
		results, err := NewRanker(src).Search(ctx, "kim@example.com", 3)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("store errors are wrapped", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := NewRanker(&fakeSource{err: boom}).Search(ctx, "report", 3)
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
	})
}

func TestRank_ResultFields(t *testing.T) {
	e := models.EmailRecord{ID: uuid.MustParse("00000000-0000-0000-0000-000000000009"), Body: "delivery delivery"}
	results := Rank([]models.EmailRecord{e}, []string{"delivery"}, 10)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, UntitledSubject, r.Subject)
	assert.Nil(t, r.Sender)
	assert.Nil(t, r.Date)
	assert.Equal(t, "delivery delivery", r.Body)
	assert.Equal(t, 2, r.Score)
	assert.NotNil(t, r.Attachments)
}
