// Package prompt builds the role-tagged message sequences sent to the model.
// Every builder is a pure function of its inputs.
package prompt

import (
	"fmt"
	"strings"

	"github.com/stoik/triage/internal/models"
)

const (
	// ClassificationBodyLimit is how many runes of the body the classifier sees.
	ClassificationBodyLimit = 500

	// SnippetLimit bounds each reference snippet embedded in a chat prompt.
	SnippetLimit = 1000
)

const chatSystem = `당신은 사내 이메일 보관함을 근거로 질문에 답하는 이메일 비서입니다.

규칙:
- 반드시 사용자 메시지에 제공된 참고 자료(이메일 발췌)에 있는 내용만으로 답하세요.
- 사용자가 질문한 언어로 답하세요.
- 사실을 말할 때마다 근거가 된 자료의 출처 ID를 [출처: <ID>] 형식으로 표기하세요.
- 참고 자료로 뒷받침되지 않는 질문이면 "제공된 이메일에서 확인할 수 없습니다"라고 분명히 말하세요.
- 자료에 없는 내용을 추측하거나 지어내지 마세요.
- 간결하고 정확하게 답하세요.`

const classificationSystem = `당신은 이메일을 분류하는 비서입니다. 아래 네 가지 범주 중 정확히 하나를 고르세요. 범주는 서로 배타적입니다.

- reference: 참고용. 읽기만 하면 되고 회신이나 조치가 필요 없는 공지, 보고, 안내.
- reply_needed: 회신 필요. 질문, 요청, 검토 의뢰 등 답장이 필요하지만 급하지 않은 메일.
- urgent_reply: 긴급 회신. 오늘 또는 임박한 마감, "긴급", "ASAP" 등 즉시 대응이 필요한 메일.
- meeting: 회의. 회의, 점검, 교육 등 참석 일정에 관한 초대나 안내.

confidence는 high, medium, low 중 하나입니다.

반드시 다음 형식의 JSON 객체 한 줄로만 응답하세요. 다른 설명은 쓰지 마세요.
{"classification": "reference|reply_needed|urgent_reply|meeting", "confidence": "high|medium|low"}`

const extractionSystemTemplate = `당신은 이메일에서 일정 정보를 추출하는 비서입니다.

규칙:
1. 이메일 한 통에서 가장 중요한 일정 하나만 추출하세요.
2. 일정이 여러 개이면 다음 우선순위로 하나를 고르세요.
   (1) 명명식, 진수식, 착공식 등 행사
   (2) 회의, 검사, 점검
   (3) 작업 착수 및 완료
   (4) 납품, 입고, 도착 일자
   (5) 제출 마감일
3. title과 startDate는 반드시 비어 있지 않아야 합니다. 둘 중 하나라도 알 수 없으면 일정을 만들지 마세요.
4. startDate와 endDate 형식은 "YYYY-MM-DD" 또는 "YYYY-MM-DD HH:mm"입니다.
5. "내일", "다음 주 화요일" 같은 상대적인 날짜는 메일 수신일(%s)을 기준으로 계산하세요.
6. endDate, location, description은 선택 항목입니다. 알 수 없으면 빈 문자열("")을 쓰지 말고 null로 두세요.
7. 일정이 없으면 빈 배열 []을 반환하세요.

반드시 다음 JSON 배열 형식으로만 응답하세요:
[{"title": "일정 제목", "startDate": "YYYY-MM-DD HH:mm", "endDate": "YYYY-MM-DD HH:mm" 또는 null, "location": "장소" 또는 null, "description": "설명" 또는 null}]

예시 1)
제목: H-1234 블록 조립 일정
내용: 조립은 2025-01-15 08:00에 시작하여 2025-01-20 17:00에 종료됩니다. 장소는 제2공장 조립장입니다.
수신일: 2025-01-04
응답:
[{"title": "H-1234 블록 조립", "startDate": "2025-01-15 08:00", "endDate": "2025-01-20 17:00", "location": "제2공장 조립장", "description": null}]

예시 2)
제목: 도장 자재 입고 및 견적 제출 요청
내용: 도장 자재는 다음 주 월요일에 입고됩니다. 견적서는 금요일까지 제출 바랍니다.
수신일: 2025-01-08
응답:
[{"title": "도장 자재 입고", "startDate": "2025-01-13", "endDate": null, "location": null, "description": "견적서 제출 마감 2025-01-10"}]

예시 3)
제목: 월간 소식지
내용: 이번 달 사내 소식을 전해 드립니다.
수신일: 2025-01-02
응답:
[]`

// ChatWithContext builds a chat turn grounded on numbered reference snippets.
// History is the prior transcript, oldest first, and is placed between the system
// message and the new user message.
func ChatWithContext(question string, refs []models.SearchResult, history []models.ChatMessage) []models.ChatMessage {
	messages := make([]models.ChatMessage, 0, len(history)+2)
	messages = append(messages, models.ChatMessage{Role: models.RoleSystem, Content: chatSystem})
	messages = append(messages, history...)

	var b strings.Builder
	b.WriteString("참고 자료:\n")
	if len(refs) == 0 {
		b.WriteString("(관련 이메일 없음)\n")
	}
	for i, ref := range refs {
		fmt.Fprintf(&b, "[%d] 출처 ID: %s\n", i+1, ref.MailID)
		fmt.Fprintf(&b, "제목: %s\n", ref.Subject)
		fmt.Fprintf(&b, "내용: %s\n\n", Truncate(ref.Body, SnippetLimit))
	}
	fmt.Fprintf(&b, "\n질문: %s\n\n", question)
	b.WriteString("답변의 각 사실마다 출처 ID를 [출처: <ID>] 형식으로 반드시 표기하세요.")

	return append(messages, models.ChatMessage{Role: models.RoleUser, Content: b.String()})
}

// Classification builds the four-way classification request for one email.
func Classification(email models.EmailRecord) []models.ChatMessage {
	user := fmt.Sprintf("보낸 사람: %s\n제목: %s\n내용:\n%s",
		email.Sender,
		email.Subject,
		Truncate(email.Body, ClassificationBodyLimit),
	)

	return []models.ChatMessage{
		{Role: models.RoleSystem, Content: classificationSystem},
		{Role: models.RoleUser, Content: user},
	}
}

// EventExtraction builds the single-dominant-event extraction request for one email.
func EventExtraction(email models.EmailRecord) []models.ChatMessage {
	user := fmt.Sprintf("다음 이메일에서 일정 정보를 추출해주세요.\n\n제목: %s\n\n내용:\n%s\n\n수신일: %s",
		email.Subject,
		email.Body,
		email.Date,
	)

	return []models.ChatMessage{
		{Role: models.RoleSystem, Content: fmt.Sprintf(extractionSystemTemplate, email.Date)},
		{Role: models.RoleUser, Content: user},
	}
}

// Truncate returns the first limit runes of s.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
