package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/stoik/triage/internal/models"
)

const (
	// MaxCandidates caps the coarse pre-filter performed by the store.
	MaxCandidates = 100

	// UntitledSubject replaces empty subjects in results.
	UntitledSubject = "(제목 없음)"
)

// CandidateSource returns emails whose subject, body, sender or date contains any
// of the given tokens, case-insensitively.
type CandidateSource interface {
	SearchCandidates(ctx context.Context, tokens []string, limit int) ([]models.EmailRecord, error)
}

// Ranker scores store candidates against a keyword query.
type Ranker struct {
	source CandidateSource
}

func NewRanker(source CandidateSource) *Ranker {
	return &Ranker{source: source}
}

// Search returns at most max(1, topK) results ordered by descending score.
// Ties are broken by ascending mail id so results are deterministic.
func (r *Ranker) Search(ctx context.Context, query string, topK int) ([]models.SearchResult, error) {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return []models.SearchResult{}, nil
	}

	candidates, err := r.source.SearchCandidates(ctx, tokens, MaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("failed to load search candidates: %w", err)
	}

	return Rank(candidates, tokens, topK), nil
}

// Rank scores candidates against tokens, drops zero scores, sorts and truncates.
func Rank(candidates []models.EmailRecord, tokens []string, topK int) []models.SearchResult {
	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}

	results := make([]models.SearchResult, 0, len(candidates))
	for _, email := range candidates {
		score := ScoreText(email.Subject+" "+email.Body, tokens)
		if score == 0 {
			continue
		}
		results = append(results, toResult(email, score))
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].MailID < results[j].MailID
	})

	limit := topK
	if limit < 1 {
		limit = 1
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func toResult(email models.EmailRecord, score int) models.SearchResult {
	subject := email.Subject
	if subject == "" {
		subject = UntitledSubject
	}

	return models.SearchResult{
		MailID:      email.ID.String(),
		Subject:     subject,
		Score:       score,
		Sender:      optional(email.Sender),
		Date:        optional(email.Date),
		Body:        email.Body,
		Attachments: []string{},
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
