package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/stoik/triage/internal/models"
	svcmodels "github.com/stoik/triage/services/triage-service/internal/models"
)

// StorageMode is reported on the stats endpoint.
const StorageMode = "PostgreSQL"

func (s *Store) LogImport(ctx context.Context, filename string, count int) (svcmodels.ImportLog, error) {
	entry := svcmodels.ImportLog{ID: uuid.New(), Filename: filename, EmailsImported: count}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO import_logs (id, filename, emails_imported) VALUES ($1, $2, $3) RETURNING created_at`,
		entry.ID, entry.Filename, entry.EmailsImported,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return entry, fmt.Errorf("failed to log import: %w", err)
	}
	return entry, nil
}

// ImportEmails inserts emails and records the import in one call.
func (s *Store) ImportEmails(ctx context.Context, filename string, emails []models.NewEmail) ([]uuid.UUID, error) {
	ids, err := s.InsertEmails(ctx, emails)
	if err != nil {
		return nil, err
	}
	if _, err := s.LogImport(ctx, filename, len(ids)); err != nil {
		return ids, err
	}
	return ids, nil
}

func (s *Store) GetStats(ctx context.Context) (svcmodels.Stats, error) {
	stats := svcmodels.Stats{Mode: StorageMode}

	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM emails),
			(SELECT count(*) FROM emails WHERE is_processed = FALSE),
			(SELECT count(*) FROM calendar_events)
	`).Scan(&stats.EmailsCount, &stats.Unprocessed, &stats.EventsCount)
	if err != nil {
		return stats, fmt.Errorf("failed to count emails: %w", err)
	}

	var last svcmodels.ImportLog
	err = s.pool.QueryRow(ctx, `
		SELECT id, filename, emails_imported, created_at
		FROM import_logs
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&last.ID, &last.Filename, &last.EmailsImported, &last.CreatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return stats, fmt.Errorf("failed to get last import: %w", err)
	default:
		stats.LastImport = &last
	}

	return stats, nil
}
