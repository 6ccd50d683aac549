package mock

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stoik/triage/internal/models"
)

func conversation(system, user string) []models.ChatMessage {
	return []models.ChatMessage{
		{Role: models.RoleSystem, Content: system},
		{Role: models.RoleUser, Content: user},
	}
}

func TestDetectTask(t *testing.T) {
	assert.Equal(t, TaskClassification, DetectTask(conversation("당신은 이메일을 분류하는 비서입니다.", "")))
	assert.Equal(t, TaskExtraction, DetectTask(conversation("당신은 이메일에서 일정 정보를 추출하는 비서입니다.", "")))
	assert.Equal(t, TaskChat, DetectTask(conversation("당신은 이메일 비서입니다.", "")))
	assert.Equal(t, TaskChat, DetectTask(nil))
}

func TestComplete_Classification(t *testing.T) {
	system := "당신은 이메일을 분류하는 비서입니다. 회의, 긴급 같은 단어가 여기에도 있습니다."

	tests := []struct {
		user     string
		category models.Category
	}{
		{"제목: [긴급] 서버 장애 대응\n내용: 오늘까지 조치 바랍니다", models.CategoryUrgentReply},
		{"제목: 주간 회의 안내", models.CategoryMeeting},
		{"제목: 견적 검토 요청", models.CategoryReplyNeeded},
		{"제목: 월간 소식지", models.CategoryReference},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			var out models.ClassificationResult
			require.NoError(t, json.Unmarshal([]byte(Complete(conversation(system, tt.user))), &out))
			assert.Equal(t, tt.category, out.Classification)
			assert.True(t, out.Confidence.Valid())
		})
	}
}

func TestComplete_Extraction(t *testing.T) {
	system := "당신은 이메일에서 일정 정보를 추출하는 비서입니다."

	got := Complete(conversation(system, "제목: H-1234 블록 조립 일정"))
	assert.Contains(t, got, `"title": "H-1234 블록 조립"`)
	assert.Contains(t, got, `"location": "제2공장 조립장"`)

	assert.Equal(t, "[]", Complete(conversation(system, "제목: 월간 소식지")))
}

func TestComplete_Chat(t *testing.T) {
	user := "참고 자료:\n[1] 출처 ID: mail-7\n제목: 회의 일정\n\n질문: 회의는 언제인가요?\n\n답변의 각 사실마다..."
	got := Complete(conversation("당신은 이메일 비서입니다.", user))
	assert.Contains(t, got, "회의는 언제인가요?")
	assert.Contains(t, got, "[출처: mail-7]")

	got = Complete(conversation("당신은 이메일 비서입니다.", "참고 자료:\n(관련 이메일 없음)\n\n질문: 안녕?"))
	assert.Contains(t, got, "확인할 수 없습니다")
}

func TestEmbedding(t *testing.T) {
	a := Embedding("hello")
	assert.Len(t, a, EmbeddingDimensions)
	assert.Equal(t, a, Embedding("hello"))
	assert.NotEqual(t, a, Embedding("world"))
	for _, v := range a {
		assert.GreaterOrEqual(t, v, -1.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}
