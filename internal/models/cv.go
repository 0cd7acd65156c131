package models

import (
	"time"

	"github.com/google/uuid"
)

type CandidateCV struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Filename    string    `json:"filename"`
	MimeType    string    `json:"mime_type"`
	StorageType string    `json:"storage_type"` // "local" | "gcs"
	Location    string    `json:"location"`
	TextContent string    `json:"-"`
	TextLength  int       `json:"text_length"`
	CreatedAt   time.Time `json:"created_at"`
}
