package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is the canonical triage classification of an email.
type Category string

const (
	CategoryReference   Category = "reference"
	CategoryReplyNeeded Category = "reply_needed"
	CategoryUrgentReply Category = "urgent_reply"
	CategoryMeeting     Category = "meeting"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryReference, CategoryReplyNeeded, CategoryUrgentReply, CategoryMeeting}

// Valid reports whether c is one of the four known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryReference, CategoryReplyNeeded, CategoryUrgentReply, CategoryMeeting:
		return true
	}
	return false
}

// DisplayLabel returns the label shown in the inbox UI.
// The legacy folder label imported with an email is a separate field and is never mapped here.
func (c Category) DisplayLabel() string {
	switch c {
	case CategoryReference:
		return "참고"
	case CategoryReplyNeeded:
		return "회신필요"
	case CategoryUrgentReply:
		return "긴급회신"
	case CategoryMeeting:
		return "회의"
	}
	return string(c)
}

// Confidence is the model's self-reported certainty for a classification.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func (c Confidence) Valid() bool {
	return c == ConfidenceHigh || c == ConfidenceMedium || c == ConfidenceLow
}

// ClassificationResult is never empty: parse failures yield DefaultClassification.
type ClassificationResult struct {
	Classification Category   `json:"classification"`
	Confidence     Confidence `json:"confidence"`
}

// DefaultClassification is the safe result used whenever the model output cannot be used.
func DefaultClassification() ClassificationResult {
	return ClassificationResult{Classification: CategoryReference, Confidence: ConfidenceLow}
}

// EmailRecord is an imported email. Date is kept as the free text found in the source.
type EmailRecord struct {
	ID                       uuid.UUID   `json:"id"`
	Subject                  string      `json:"subject"`
	Sender                   string      `json:"sender"`
	Date                     string      `json:"date"`
	Body                     string      `json:"body"`
	Importance               *string     `json:"importance,omitempty"`
	Label                    *string     `json:"label,omitempty"`
	Classification           *Category   `json:"classification,omitempty"`
	ClassificationConfidence *Confidence `json:"classificationConfidence,omitempty"`
	IsProcessed              bool        `json:"isProcessed"`
	CreatedAt                time.Time   `json:"createdAt"`
}

// NewEmail holds the fields accepted on import.
type NewEmail struct {
	Subject    string  `json:"subject"`
	Sender     string  `json:"sender"`
	Date       string  `json:"date"`
	Body       string  `json:"body"`
	Importance *string `json:"importance,omitempty"`
	Label      *string `json:"label,omitempty"`
}

// ExtractedEvent is a calendar-worthy occurrence parsed out of model output.
// Title and StartDate are always non-empty after validation.
type ExtractedEvent struct {
	Title       string  `json:"title"`
	StartDate   string  `json:"startDate"`
	EndDate     *string `json:"endDate"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
}

// CalendarEvent is a persisted event. EmailID is a weak reference: deleting the
// email leaves the event in place.
type CalendarEvent struct {
	ID          uuid.UUID  `json:"id"`
	EmailID     *uuid.UUID `json:"emailId"`
	Title       string     `json:"title"`
	StartDate   string     `json:"startDate"`
	EndDate     *string    `json:"endDate"`
	Location    *string    `json:"location"`
	Description *string    `json:"description"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// SearchResult is recomputed per query and never persisted.
type SearchResult struct {
	MailID      string   `json:"mailId"`
	Subject     string   `json:"subject"`
	Score       int      `json:"score"`
	Sender      *string  `json:"sender"`
	Date        *string  `json:"date"`
	Body        string   `json:"body"`
	Attachments []string `json:"attachments,omitempty"`
}
