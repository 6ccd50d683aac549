package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stoik/triage/internal/models"
)

var (
	// ErrEmailNotFound is returned when a requested email does not exist.
	ErrEmailNotFound = errors.New("email not found")

	// ErrConversationNotFound is returned when a requested conversation does not exist.
	ErrConversationNotFound = errors.New("conversation not found")
)

// insertBatchSize bounds how many rows go into one pgx.Batch during import.
const insertBatchSize = 100

// Store is the persistence layer for emails, events, conversations and import logs.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const emailColumns = `id, subject, sender, date, body, importance, label,
	classification, classification_confidence, is_processed, created_at`

func scanEmail(row pgx.Row) (models.EmailRecord, error) {
	var (
		e              models.EmailRecord
		classification *string
		confidence     *string
	)
	err := row.Scan(
		&e.ID,
		&e.Subject,
		&e.Sender,
		&e.Date,
		&e.Body,
		&e.Importance,
		&e.Label,
		&classification,
		&confidence,
		&e.IsProcessed,
		&e.CreatedAt,
	)
	if err != nil {
		return e, err
	}
	if classification != nil {
		c := models.Category(*classification)
		e.Classification = &c
	}
	if confidence != nil {
		c := models.Confidence(*confidence)
		e.ClassificationConfidence = &c
	}
	return e, nil
}

func collectEmails(rows pgx.Rows) ([]models.EmailRecord, error) {
	defer rows.Close()

	emails := []models.EmailRecord{}
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

// InsertEmails stores emails in batches inside one transaction and returns their new ids.
func (s *Store) InsertEmails(ctx context.Context, emails []models.NewEmail) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(emails))
	if len(emails) == 0 {
		return ids, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO emails (id, subject, sender, date, body, importance, label)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for start := 0; start < len(emails); start += insertBatchSize {
		end := min(start+insertBatchSize, len(emails))

		batch := &pgx.Batch{}
		for _, e := range emails[start:end] {
			id := uuid.New()
			ids = append(ids, id)
			batch.Queue(query, id, e.Subject, e.Sender, e.Date, e.Body, e.Importance, e.Label)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return nil, fmt.Errorf("failed to insert emails: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}

	return ids, nil
}

func (s *Store) GetEmailByID(ctx context.Context, id uuid.UUID) (models.EmailRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+emailColumns+` FROM emails WHERE id = $1`, id)
	e, err := scanEmail(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return e, ErrEmailNotFound
	}
	if err != nil {
		return e, fmt.Errorf("failed to get email: %w", err)
	}
	return e, nil
}

// ListEmails returns emails newest first, optionally filtered by classification.
// A limit of zero means no limit.
func (s *Store) ListEmails(ctx context.Context, classification *models.Category, limit int) ([]models.EmailRecord, error) {
	query := `SELECT ` + emailColumns + ` FROM emails
		WHERE ($1::text IS NULL OR classification = $1)
		ORDER BY created_at DESC, id
		LIMIT NULLIF($2::int, 0)`

	var filter *string
	if classification != nil {
		c := string(*classification)
		filter = &c
	}

	rows, err := s.pool.Query(ctx, query, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}
	emails, err := collectEmails(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan emails: %w", err)
	}
	return emails, nil
}

// ListUnclassified returns emails that have never been classified, oldest first.
func (s *Store) ListUnclassified(ctx context.Context, limit int) ([]models.EmailRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+emailColumns+` FROM emails
		WHERE classification IS NULL
		ORDER BY created_at, id
		LIMIT NULLIF($1::int, 0)`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unclassified emails: %w", err)
	}
	emails, err := collectEmails(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan emails: %w", err)
	}
	return emails, nil
}

// ListUnextracted returns emails whose events have not been extracted yet, oldest first.
func (s *Store) ListUnextracted(ctx context.Context, limit int) ([]models.EmailRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+emailColumns+` FROM emails
		WHERE is_processed = FALSE
		ORDER BY created_at, id
		LIMIT NULLIF($1::int, 0)`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unextracted emails: %w", err)
	}
	emails, err := collectEmails(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan emails: %w", err)
	}
	return emails, nil
}

// SearchCandidates returns up to limit emails where any token appears, case-insensitively,
// in the subject, body, sender or date. This is a coarse pre-filter; ranking happens in Go.
func (s *Store) SearchCandidates(ctx context.Context, tokens []string, limit int) ([]models.EmailRecord, error) {
	if len(tokens) == 0 {
		return []models.EmailRecord{}, nil
	}

	clauses := make([]string, 0, len(tokens))
	args := make([]any, 0, len(tokens)+1)
	for _, token := range tokens {
		args = append(args, "%"+escapeLike(token)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"subject ILIKE $%[1]d OR body ILIKE $%[1]d OR sender ILIKE $%[1]d OR date ILIKE $%[1]d", n))
	}
	args = append(args, limit)

	query := `SELECT ` + emailColumns + ` FROM emails
		WHERE ` + strings.Join(clauses, " OR ") + `
		ORDER BY created_at DESC, id
		LIMIT $` + fmt.Sprint(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query search candidates: %w", err)
	}
	emails, err := collectEmails(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan search candidates: %w", err)
	}
	return emails, nil
}

// escapeLike escapes LIKE metacharacters using the default backslash escape.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *Store) SaveClassification(ctx context.Context, id uuid.UUID, result models.ClassificationResult) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE emails SET classification = $1, classification_confidence = $2 WHERE id = $3`,
		string(result.Classification), string(result.Confidence), id,
	)
	if err != nil {
		return fmt.Errorf("failed to save classification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEmailNotFound
	}
	return nil
}

// MarkProcessed flags an email as having gone through event extraction.
func (s *Store) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `UPDATE emails SET is_processed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark email processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEmailNotFound
	}
	return nil
}
