// Package parse turns free-text model completions into structured results.
//
// The extraction contract is intentionally narrow: the first non-greedy [...] span
// for arrays and the first greedy {...} span for objects. Anything that does not fit
// yields an empty slice (events) or the default classification, never an error.
package parse

import (
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/stoik/triage/internal/models"
)

// Outcome records how a completion was handled.
type Outcome string

const (
	OutcomeValid    Outcome = "valid"
	OutcomeEmpty    Outcome = "empty"
	OutcomeFailed   Outcome = "failed"
	OutcomeFallback Outcome = "fallback"
)

// rawPreviewLimit bounds how much of a bad completion is logged.
const rawPreviewLimit = 200

var (
	arrayPattern  = regexp.MustCompile(`(?s)\[.*?\]`)
	objectPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

type Parser struct {
	logger *zap.Logger
}

func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// Events extracts and validates calendar events from a completion.
// Entries without a non-empty title and start date are dropped.
func (p *Parser) Events(raw string) ([]models.ExtractedEvent, Outcome) {
	match := arrayPattern.FindString(raw)
	if match == "" {
		p.logger.Debug("No JSON array in model output", zap.String("raw", preview(raw)))
		return []models.ExtractedEvent{}, OutcomeEmpty
	}

	var entries []any
	if err := json.Unmarshal([]byte(match), &entries); err != nil {
		p.logger.Warn("Failed to parse event array from model output",
			zap.Error(err),
			zap.String("raw", preview(raw)),
		)
		return []models.ExtractedEvent{}, OutcomeFailed
	}

	events := make([]models.ExtractedEvent, 0, len(entries))
	for i, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			p.logger.Debug("Dropping non-object event entry", zap.Int("index", i))
			continue
		}
		event, reason := toEvent(obj)
		if reason != "" {
			p.logger.Debug("Dropping invalid event entry",
				zap.Int("index", i),
				zap.String("reason", reason),
			)
			continue
		}
		events = append(events, event)
	}

	if len(events) == 0 {
		return events, OutcomeEmpty
	}
	return events, OutcomeValid
}

// Classification extracts a classification object from a completion, falling back
// to DefaultClassification on any failure.
func (p *Parser) Classification(raw string) (models.ClassificationResult, Outcome) {
	match := objectPattern.FindString(raw)
	if match == "" {
		p.logger.Warn("No JSON object in classification output, using default",
			zap.String("raw", preview(raw)),
		)
		return models.DefaultClassification(), OutcomeFallback
	}

	var payload struct {
		Classification string `json:"classification"`
		Confidence     string `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(match), &payload); err != nil {
		p.logger.Warn("Failed to parse classification output, using default",
			zap.Error(err),
			zap.String("raw", preview(raw)),
		)
		return models.DefaultClassification(), OutcomeFallback
	}

	category := models.Category(strings.ToLower(strings.TrimSpace(payload.Classification)))
	if !category.Valid() {
		p.logger.Warn("Unknown classification in model output, using default",
			zap.String("classification", payload.Classification),
		)
		return models.DefaultClassification(), OutcomeFallback
	}

	confidence := models.Confidence(strings.ToLower(strings.TrimSpace(payload.Confidence)))
	if !confidence.Valid() {
		confidence = models.ConfidenceLow
	}

	return models.ClassificationResult{Classification: category, Confidence: confidence}, OutcomeValid
}

func toEvent(obj map[string]any) (models.ExtractedEvent, string) {
	title, _ := obj["title"].(string)
	if strings.TrimSpace(title) == "" {
		return models.ExtractedEvent{}, "missing title"
	}
	startDate, _ := obj["startDate"].(string)
	if strings.TrimSpace(startDate) == "" {
		return models.ExtractedEvent{}, "missing startDate"
	}

	return models.ExtractedEvent{
		Title:       title,
		StartDate:   startDate,
		EndDate:     optionalString(obj["endDate"]),
		Location:    optionalString(obj["location"]),
		Description: optionalString(obj["description"]),
	}, ""
}

func optionalString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func preview(raw string) string {
	runes := []rune(raw)
	if len(runes) <= rawPreviewLimit {
		return raw
	}
	return string(runes[:rawPreviewLimit]) + "..."
}
