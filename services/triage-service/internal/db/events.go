package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/stoik/triage/internal/models"
)

// SaveEvent persists an extracted event. Empty optional fields are stored as NULL.
func (s *Store) SaveEvent(ctx context.Context, emailID *uuid.UUID, event models.ExtractedEvent) (models.CalendarEvent, error) {
	saved := models.CalendarEvent{
		ID:          uuid.New(),
		EmailID:     emailID,
		Title:       event.Title,
		StartDate:   event.StartDate,
		EndDate:     nullIfEmpty(event.EndDate),
		Location:    nullIfEmpty(event.Location),
		Description: nullIfEmpty(event.Description),
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO calendar_events (id, email_id, title, start_date, end_date, location, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`,
		saved.ID,
		saved.EmailID,
		saved.Title,
		saved.StartDate,
		saved.EndDate,
		saved.Location,
		saved.Description,
	).Scan(&saved.CreatedAt)
	if err != nil {
		return saved, fmt.Errorf("failed to save event: %w", err)
	}

	return saved, nil
}

// ListEvents returns all events ordered by start date.
func (s *Store) ListEvents(ctx context.Context) ([]models.CalendarEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, email_id, title, start_date, end_date, location, description, created_at
		FROM calendar_events
		ORDER BY start_date, created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []models.CalendarEvent{}
	for rows.Next() {
		var e models.CalendarEvent
		if err := rows.Scan(
			&e.ID,
			&e.EmailID,
			&e.Title,
			&e.StartDate,
			&e.EndDate,
			&e.Location,
			&e.Description,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

func nullIfEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
