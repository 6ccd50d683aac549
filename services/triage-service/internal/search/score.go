package search

import (
	"regexp"
	"strings"
)

// Tokenize splits a query on runs of whitespace, dropping empty tokens.
func Tokenize(query string) []string {
	return strings.Fields(strings.TrimSpace(query))
}

// ScoreText sums the case-insensitive, non-overlapping occurrence counts of every
// token in text. The score is not normalized by text length.
func ScoreText(text string, tokens []string) int {
	if text == "" || len(tokens) == 0 {
		return 0
	}

	score := 0
	for _, token := range tokens {
		if token == "" {
			continue
		}
		re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(token))
		score += len(re.FindAllStringIndex(text, -1))
	}
	return score
}
