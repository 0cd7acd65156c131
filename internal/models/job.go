package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	JobTypeReportGeneration = "report-generation"
)

type Job struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	Type         string          `json:"type"` // "report-generation"
	ReferenceID  uuid.UUID       `json:"reference_id"`
	ConfigJSON   json.RawMessage `json:"config"`
	Status       string          `json:"status"` // "pending" | "processing" | "completed" | "failed"
	RetryCount   int             `json:"retry_count"`
	MaxRetries   int             `json:"max_retries"`
	ErrorMessage *string         `json:"error_message"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatusUpdate struct {
	JobID    uuid.UUID `json:"job_id"`
	Step     int       `json:"step"`
	StepName string    `json:"step_name"`
}

// MediaCommand tells the candidate's browser what to do with its capture tracks.
type MediaCommand struct {
	HandleID string `json:"handle_id"`
	Command  string `json:"command"` // "acquire" | "track" | "release"
	Kind     string `json:"kind,omitempty"`
	Enabled  bool   `json:"enabled"`
	Video    bool   `json:"video,omitempty"`
	Audio    bool   `json:"audio,omitempty"`
}

type SessionCompletedEvent struct {
	SessionID uuid.UUID `json:"session_id"`
	Reason    string    `json:"reason"`
	JobID     uuid.UUID `json:"job_id"`
	ReportURL string    `json:"report_url"`
}

type ReportReadyEvent struct {
	SessionID    uuid.UUID `json:"session_id"`
	ReportID     uuid.UUID `json:"report_id"`
	OverallScore int       `json:"overall_score"`
}

type ErrorEvent struct {
	JobID        uuid.UUID `json:"job_id"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
