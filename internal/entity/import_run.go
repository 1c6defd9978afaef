package entity

import (
	"time"

	"github.com/google/uuid"
)

// ImportRun is the audit record of one document import.
type ImportRun struct {
	ID           uuid.UUID  `json:"id"`
	Kind         string     `json:"kind"`
	SourcePath   string     `json:"source_path"`
	SourceHash   string     `json:"source_hash"`
	Format       string     `json:"format"`
	GazetteType  *string    `json:"gazette_type,omitempty"`
	Status       string     `json:"status"`
	Pages        int        `json:"pages"`
	Parsed       int        `json:"parsed"`
	Created      int        `json:"created"`
	Updated      int        `json:"updated"`
	Skipped      int        `json:"skipped"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}
