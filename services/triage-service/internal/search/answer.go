package search

import (
	"fmt"
	"strings"

	"github.com/stoik/triage/internal/models"
)

// AnswerListLimit caps how many hits are listed in a keyword answer.
const AnswerListLimit = 10

// FormatAnswer renders ranked hits as the plain-text keyword search answer.
func FormatAnswer(query string, results []models.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "검색어: %s\n\nTop 결과:\n", query)

	if len(results) == 0 {
		b.WriteString("- (결과 없음)")
		return b.String()
	}

	lines := make([]string, 0, min(len(results), AnswerListLimit))
	for _, r := range results[:min(len(results), AnswerListLimit)] {
		lines = append(lines, fmt.Sprintf("- %s (점수=%.1f, ID=%s)", r.Subject, float64(r.Score), r.MailID))
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}
