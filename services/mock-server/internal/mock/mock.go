// Package mock produces canned, deterministic Ollama responses for local development.
package mock

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"regexp"
	"strings"

	"github.com/stoik/triage/internal/models"
)

const (
	TaskChat           = "chat"
	TaskClassification = "classification"
	TaskExtraction     = "extraction"

	// EmbeddingDimensions is the length of every generated vector.
	EmbeddingDimensions = 16
)

var (
	// Installed models reported by /api/tags
	Models = []string{"llama3.2:latest", "nomic-embed-text:latest"}

	sourceIDPattern = regexp.MustCompile(`출처 ID: (\S+)`)
	questionPattern = regexp.MustCompile(`질문: (.*)`)

	urgentKeywords  = []string{"긴급", "asap", "오늘까지", "즉시"}
	meetingKeywords = []string{"회의", "미팅", "교육", "점검", "meeting"}
	replyKeywords   = []string{"요청", "회신", "검토", "부탁", "?"}
)

const h1234Events = `[{"title": "H-1234 블록 조립", "startDate": "2025-01-15 08:00", "endDate": "2025-01-20 17:00", "location": "제2공장 조립장", "description": null}]`

// DetectTask infers which request a message sequence carries from its system prompt.
func DetectTask(messages []models.ChatMessage) string {
	for _, m := range messages {
		if m.Role != models.RoleSystem {
			continue
		}
		switch {
		case strings.Contains(m.Content, "분류하는 비서"):
			return TaskClassification
		case strings.Contains(m.Content, "일정 정보를 추출"):
			return TaskExtraction
		}
	}
	return TaskChat
}

// Complete returns the canned completion for messages.
func Complete(messages []models.ChatMessage) string {
	user := lastUserContent(messages)

	switch DetectTask(messages) {
	case TaskClassification:
		category, confidence := classify(user)
		return fmt.Sprintf(`{"classification": "%s", "confidence": "%s"}`, category, confidence)
	case TaskExtraction:
		if strings.Contains(user, "H-1234") {
			return "추출된 일정입니다:\n" + h1234Events
		}
		return "[]"
	default:
		return chat(user)
	}
}

func classify(text string) (models.Category, models.Confidence) {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, urgentKeywords):
		return models.CategoryUrgentReply, models.ConfidenceHigh
	case containsAny(lower, meetingKeywords):
		return models.CategoryMeeting, models.ConfidenceHigh
	case containsAny(lower, replyKeywords):
		return models.CategoryReplyNeeded, models.ConfidenceMedium
	}
	return models.CategoryReference, models.ConfidenceLow
}

func chat(user string) string {
	question := user
	if m := questionPattern.FindStringSubmatch(user); m != nil {
		question = strings.TrimSpace(m[1])
	}

	m := sourceIDPattern.FindStringSubmatch(user)
	if m == nil {
		return fmt.Sprintf("질문 \"%s\"에 대해 제공된 이메일에서 확인할 수 없습니다.", question)
	}
	return fmt.Sprintf("질문 \"%s\"에 관련된 이메일을 찾았습니다. [출처: %s]", question, m[1])
}

// Embedding derives a unit-range vector from the sha256 of text.
func Embedding(text string) []float64 {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float64, EmbeddingDimensions)
	for i := range vec {
		// two bytes per dimension, wrapping over the 32-byte digest
		v := binary.BigEndian.Uint16([]byte{sum[(2*i)%len(sum)], sum[(2*i+1)%len(sum)]})
		vec[i] = float64(v)/32767.5 - 1
	}
	return vec
}

func lastUserContent(messages []models.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
