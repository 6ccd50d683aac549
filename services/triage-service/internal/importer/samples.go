package importer

import "github.com/stoik/triage/internal/models"

// SampleEmails returns the built-in demo mailbox.
func SampleEmails() []models.NewEmail {
	return []models.NewEmail{
		{
			Subject: "프로젝트 진행 상황 보고",
			Sender:  "김철수 <kim@example.com>",
			Date:    "2025-01-05 09:30:00",
			Body:    "안녕하세요, 프로젝트 진행 상황을 보고드립니다. 현재 1차 개발 단계가 완료되었으며, 다음 주 월요일부터 2차 개발에 착수할 예정입니다. 테스트 일정도 조율 중이오니 참고 부탁드립니다.",
		},
		{
			Subject: "회의 일정 안내",
			Sender:  "박영희 <park@example.com>",
			Date:    "2025-01-06 14:00:00",
			Body:    "다음 주 화요일 오후 2시에 정기 회의가 예정되어 있습니다. 회의실 A에서 진행되며, 주요 안건은 분기별 실적 검토와 향후 계획 수립입니다. 참석 여부를 회신해 주세요.",
		},
		{
			Subject: "견적서 요청의 건",
			Sender:  "이민수 <lee@example.com>",
			Date:    "2025-01-04 11:15:00",
			Body:    "안녕하세요, 제안서에 언급된 시스템 구축 비용에 대한 상세 견적서를 요청드립니다. 예산 검토를 위해 가능한 빨리 회신 부탁드리며, 항목별 세부 내역도 함께 보내주시면 감사하겠습니다.",
		},
		{
			Subject: "서버 점검 공지",
			Sender:  "시스템관리자 <admin@example.com>",
			Date:    "2025-01-07 08:00:00",
			Body:    "금일 오후 10시부터 내일 오전 6시까지 서버 정기 점검이 진행됩니다. 해당 시간 동안 시스템 접속이 불가하오니 양해 부탁드립니다. 중요한 작업은 점검 전 완료해 주시기 바랍니다.",
		},
		{
			Subject: "교육 참석 안내",
			Sender:  "인사팀 <hr@example.com>",
			Date:    "2025-01-03 16:45:00",
			Body:    "신규 시스템 사용법 교육이 다음 주 수요일에 진행됩니다. 대상자는 각 부서 담당자이며, 교육 시간은 오전 10시부터 12시까지입니다. 교육장 위치는 본관 3층 대회의실입니다.",
		},
		{
			Subject: "계약서 검토 요청",
			Sender:  "법무팀 <legal@example.com>",
			Date:    "2025-01-02 10:30:00",
			Body:    "첨부된 계약서 초안을 검토해 주시기 바랍니다. 수정 사항이나 의견이 있으시면 금주 금요일까지 회신 부탁드립니다. 계약 체결 일정이 촉박하오니 신속한 검토 부탁드립니다.",
		},
		{
			Subject: "월간 보고서 제출 안내",
			Sender:  "경영지원팀 <support@example.com>",
			Date:    "2025-01-01 09:00:00",
			Body:    "1월 월간 보고서 제출 마감일은 1월 10일입니다. 각 부서별 실적 및 향후 계획을 포함하여 작성해 주시기 바랍니다. 보고서 양식은 공유 폴더에서 다운로드 가능합니다.",
		},
		{
			Subject: "출장 경비 정산 안내",
			Sender:  "재무팀 <finance@example.com>",
			Date:    "2025-01-06 13:20:00",
			Body:    "지난달 출장 경비 정산을 위해 영수증 원본과 정산서를 제출해 주세요. 제출 마감은 이번 주 금요일이며, 지연 시 다음 달로 이월됩니다. 문의사항은 재무팀으로 연락 바랍니다.",
		},
	}
}
