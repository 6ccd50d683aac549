package prompt

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stoik/triage/internal/models"
)

func sampleEmail() models.EmailRecord {
	return models.EmailRecord{
		ID:      uuid.MustParse("00000000-0000-0000-0000-000000000042"),
		Subject: "H-1234 block assembly schedule",
		Sender:  "박영희 <park@example.com>",
		Date:    "2025-01-04",
		Body:    "Assembly starts 2025-01-15 08:00, ends 2025-01-20 17:00, at Factory 2",
	}
}

func TestChatWithContext(t *testing.T) {
	refs := []models.SearchResult{
		{MailID: "mail-1", Subject: "회의 일정 안내", Body: "다음 주 화요일 오후 2시 정기 회의"},
		{MailID: "mail-2", Subject: "서버 점검 공지", Body: strings.Repeat("가", SnippetLimit+50)},
	}
	history := []models.ChatMessage{
		{Role: models.RoleUser, Content: "이전 질문"},
		{Role: models.RoleAssistant, Content: "이전 답변"},
	}

	msgs := ChatWithContext("회의는 언제인가요?", refs, history)
	require.Len(t, msgs, 4)

	assert.Equal(t, models.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "출처 ID")
	assert.Contains(t, msgs[0].Content, "지어내지 마세요")
	assert.Equal(t, history[0], msgs[1])
	assert.Equal(t, history[1], msgs[2])

	user := msgs[3]
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Contains(t, user.Content, "[1] 출처 ID: mail-1")
	assert.Contains(t, user.Content, "[2] 출처 ID: mail-2")
	assert.Contains(t, user.Content, "제목: 회의 일정 안내")
	assert.Contains(t, user.Content, "질문: 회의는 언제인가요?")
	assert.NotContains(t, user.Content, strings.Repeat("가", SnippetLimit+1))
	assert.True(t, strings.Index(user.Content, "mail-1") < strings.Index(user.Content, "질문:"))
}

func TestChatWithContext_NoReferences(t *testing.T) {
	msgs := ChatWithContext("안녕하세요", nil, nil)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Content, "(관련 이메일 없음)")
}

func TestClassification(t *testing.T) {
	email := sampleEmail()
	email.Body = strings.Repeat("나", ClassificationBodyLimit) + "TAIL"

	msgs := Classification(email)
	require.Len(t, msgs, 2)

	system := msgs[0].Content
	for _, c := range models.Categories {
		assert.Contains(t, system, string(c)+":")
	}
	assert.Contains(t, system, `{"classification":`)

	user := msgs[1].Content
	assert.Contains(t, user, "보낸 사람: 박영희 <park@example.com>")
	assert.Contains(t, user, "제목: H-1234 block assembly schedule")
	assert.NotContains(t, user, "TAIL")
}

func TestEventExtraction(t *testing.T) {
	msgs := EventExtraction(sampleEmail())
	require.Len(t, msgs, 2)

	system := msgs[0].Content
	assert.Equal(t, models.RoleSystem, msgs[0].Role)
	assert.Contains(t, system, "수신일(2025-01-04)")
	assert.Contains(t, system, "YYYY-MM-DD HH:mm")
	assert.Contains(t, system, "null")
	assert.Contains(t, system, "제2공장 조립장")
	assert.NotContains(t, system, "%!")

	user := msgs[1].Content
	assert.Contains(t, user, "제목: H-1234 block assembly schedule")
	assert.Contains(t, user, "Factory 2")
	assert.Contains(t, user, "수신일: 2025-01-04")
}

func TestBuildersAreDeterministic(t *testing.T) {
	email := sampleEmail()
	assert.Equal(t, Classification(email), Classification(email))
	assert.Equal(t, EventExtraction(email), EventExtraction(email))

	refs := []models.SearchResult{{MailID: "a", Subject: "s", Body: "b"}}
	assert.Equal(t, ChatWithContext("q", refs, nil), ChatWithContext("q", refs, nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "가나", Truncate("가나다", 2))
	assert.Equal(t, "", Truncate("abc", 0))
}
