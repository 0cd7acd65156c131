package models

import (
	"time"

	"github.com/google/uuid"
)

type InterviewSession struct {
	ID                   uuid.UUID        `json:"id"`
	UserID               uuid.UUID        `json:"user_id"`
	Difficulty           string           `json:"difficulty"`
	InterviewerGender    string           `json:"interviewer_gender"`
	TotalDurationSeconds int              `json:"total_duration_seconds"`
	ElapsedSeconds       int              `json:"elapsed_seconds"`
	QuestionsRevealed    int              `json:"questions_revealed"`
	EndReason            *string          `json:"end_reason"` // "expired" | "ended" | "abandoned"
	DeviceAvailable      bool             `json:"device_available"`
	StartedAt            time.Time        `json:"started_at"`
	EndedAt              *time.Time       `json:"ended_at"`
	Report               *InterviewReport `json:"report,omitempty"`
}

type InterviewReport struct {
	ID           uuid.UUID `json:"id"`
	SessionID    uuid.UUID `json:"session_id"`
	UserID       uuid.UUID `json:"user_id"`
	OverallScore int       `json:"overall_score"`
	Summary      string    `json:"summary"`
	Strengths    []string  `json:"strengths"`
	Improvements []string  `json:"improvements"`
	GeneratedBy  string    `json:"generated_by"` // "gemini" | "heuristic"
	CreatedAt    time.Time `json:"created_at"`
}

type StartInterviewRequest struct {
	MediaAvailable bool `json:"media_available"`
}

// ReportJobConfig travels inside a report-generation job.
type ReportJobConfig struct {
	Difficulty           string   `json:"difficulty"`
	Reason               string   `json:"reason"`
	ElapsedSeconds       int      `json:"elapsed_seconds"`
	TotalDurationSeconds int      `json:"total_duration_seconds"`
	Questions            []string `json:"questions"`
}
