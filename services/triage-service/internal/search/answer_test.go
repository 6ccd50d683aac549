package search

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stoik/triage/internal/models"
)

func TestFormatAnswer(t *testing.T) {
	assert.Equal(t, "검색어: 회의\n\nTop 결과:\n- (결과 없음)", FormatAnswer("회의", nil))

	got := FormatAnswer("회의", []models.SearchResult{
		{MailID: "a", Subject: "주간 회의", Score: 3},
		{MailID: "b", Subject: UntitledSubject, Score: 1},
	})
	assert.Equal(t, "검색어: 회의\n\nTop 결과:\n- 주간 회의 (점수=3.0, ID=a)\n- (제목 없음) (점수=1.0, ID=b)", got)

	var many []models.SearchResult
	for i := 0; i < 15; i++ {
		many = append(many, models.SearchResult{MailID: fmt.Sprint(i), Subject: "s", Score: 1})
	}
	assert.Equal(t, AnswerListLimit, strings.Count(FormatAnswer("s", many), "\n- "))
}
