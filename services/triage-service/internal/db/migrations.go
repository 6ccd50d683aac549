package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is idempotent so setup can run against an existing database.
const schema = `
	-- Imported emails
	CREATE TABLE IF NOT EXISTS emails (
	    id UUID PRIMARY KEY,
	    subject TEXT NOT NULL DEFAULT '',
	    sender TEXT NOT NULL DEFAULT '',
	    date TEXT NOT NULL DEFAULT '',
	    body TEXT NOT NULL DEFAULT '',
	    importance TEXT,
	    label TEXT,
	    classification VARCHAR(32),
	    classification_confidence VARCHAR(16),
	    is_processed BOOLEAN NOT NULL DEFAULT FALSE,
	    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_emails_classification ON emails(classification);
	CREATE INDEX IF NOT EXISTS idx_emails_is_processed ON emails(is_processed);
	CREATE INDEX IF NOT EXISTS idx_emails_created_at ON emails(created_at);

	-- Extracted events (email_id is a weak reference, no cascade)
	CREATE TABLE IF NOT EXISTS calendar_events (
	    id UUID PRIMARY KEY,
	    email_id UUID,
	    title TEXT NOT NULL,
	    start_date TEXT NOT NULL,
	    end_date TEXT,
	    location TEXT,
	    description TEXT,
	    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_calendar_events_email_id ON calendar_events(email_id);
	CREATE INDEX IF NOT EXISTS idx_calendar_events_start_date ON calendar_events(start_date);

	-- Chat transcripts
	CREATE TABLE IF NOT EXISTS conversations (
	    id UUID PRIMARY KEY,
	    title TEXT NOT NULL,
	    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS messages (
	    id UUID PRIMARY KEY,
	    seq BIGSERIAL,
	    conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	    role VARCHAR(16) NOT NULL,
	    content TEXT NOT NULL,
	    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation_seq ON messages(conversation_id, seq);

	-- Import history
	CREATE TABLE IF NOT EXISTS import_logs (
	    id UUID PRIMARY KEY,
	    filename TEXT NOT NULL,
	    emails_imported INTEGER NOT NULL,
	    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);
`

// Migrate creates every table the service needs.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
