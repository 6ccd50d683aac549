package models

import (
	"time"

	"github.com/google/uuid"
)

// ImportLog model for database (not shared with the API models package)
type ImportLog struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Filename       string    `db:"filename" json:"filename"`
	EmailsImported int       `db:"emails_imported" json:"emailsImported"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// Stats summarizes the store for the dashboard.
type Stats struct {
	Mode        string     `json:"mode"`
	EmailsCount int        `json:"emailsCount"`
	Unprocessed int        `json:"unprocessedCount"`
	EventsCount int        `json:"eventsCount"`
	LastImport  *ImportLog `json:"lastImport"`
}

// ClassifyAllResult reports a bulk classification run.
type ClassifyAllResult struct {
	Total      int `json:"total"`
	Classified int `json:"classified"`
	Failed     int `json:"failed"`
}
