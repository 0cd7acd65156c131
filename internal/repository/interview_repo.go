package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"interview-backend/internal/models"
)

type InterviewRepo struct {
	pool *pgxpool.Pool
}

func NewInterviewRepo(pool *pgxpool.Pool) *InterviewRepo {
	return &InterviewRepo{pool: pool}
}

func (r *InterviewRepo) Create(ctx context.Context, s *models.InterviewSession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	// Rows still open well past their countdown were left behind by a restart.
	_, _ = r.pool.Exec(ctx, `
		UPDATE interview_sessions
		SET ended_at = NOW(), end_reason = 'abandoned'
		WHERE user_id = $1 AND ended_at IS NULL
		  AND started_at + (total_duration_seconds + 60) * INTERVAL '1 second' < NOW()
	`, s.UserID)

	query := `
		INSERT INTO interview_sessions (id, user_id, difficulty, interviewer_gender, total_duration_seconds, device_available)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING started_at
	`

	return r.pool.QueryRow(ctx, query,
		s.ID, s.UserID, s.Difficulty, s.InterviewerGender, s.TotalDurationSeconds, s.DeviceAvailable,
	).Scan(&s.StartedAt)
}

// Finish records the outcome. Only the first call for a session has an effect.
func (r *InterviewRepo) Finish(ctx context.Context, id uuid.UUID, reason string, elapsed, revealed int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE interview_sessions
		SET ended_at = NOW(),
			end_reason = $2,
			elapsed_seconds = GREATEST(0, $3),
			questions_revealed = GREATEST(0, $4)
		WHERE id = $1
		  AND ended_at IS NULL
	`, id, reason, elapsed, revealed)
	return err
}

func (r *InterviewRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.InterviewSession, error) {
	s := &models.InterviewSession{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, difficulty, interviewer_gender, total_duration_seconds, elapsed_seconds,
			questions_revealed, end_reason, device_available, started_at, ended_at
		FROM interview_sessions WHERE id = $1
	`, id).Scan(
		&s.ID, &s.UserID, &s.Difficulty, &s.InterviewerGender, &s.TotalDurationSeconds, &s.ElapsedSeconds,
		&s.QuestionsRevealed, &s.EndReason, &s.DeviceAvailable, &s.StartedAt, &s.EndedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *InterviewRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.InterviewSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, difficulty, interviewer_gender, total_duration_seconds, elapsed_seconds,
			questions_revealed, end_reason, device_available, started_at, ended_at
		FROM interview_sessions
		WHERE user_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.InterviewSession
	for rows.Next() {
		var s models.InterviewSession
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.Difficulty, &s.InterviewerGender, &s.TotalDurationSeconds, &s.ElapsedSeconds,
			&s.QuestionsRevealed, &s.EndReason, &s.DeviceAvailable, &s.StartedAt, &s.EndedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *InterviewRepo) SaveReport(ctx context.Context, rep *models.InterviewReport) error {
	strengths, _ := json.Marshal(rep.Strengths)
	improvements, _ := json.Marshal(rep.Improvements)

	return r.pool.QueryRow(ctx, `
		INSERT INTO interview_reports (session_id, user_id, overall_score, summary, strengths_json, improvements_json, generated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO UPDATE SET
			overall_score = EXCLUDED.overall_score,
			summary = EXCLUDED.summary,
			strengths_json = EXCLUDED.strengths_json,
			improvements_json = EXCLUDED.improvements_json,
			generated_by = EXCLUDED.generated_by
		RETURNING id, created_at
	`, rep.SessionID, rep.UserID, rep.OverallScore, rep.Summary, strengths, improvements, rep.GeneratedBy,
	).Scan(&rep.ID, &rep.CreatedAt)
}

// GetReport returns (nil, nil) while the report is still being generated.
func (r *InterviewRepo) GetReport(ctx context.Context, sessionID uuid.UUID) (*models.InterviewReport, error) {
	rep := &models.InterviewReport{}
	var strengths, improvements []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, session_id, user_id, overall_score, summary, strengths_json, improvements_json, generated_by, created_at
		FROM interview_reports WHERE session_id = $1
	`, sessionID).Scan(
		&rep.ID, &rep.SessionID, &rep.UserID, &rep.OverallScore, &rep.Summary,
		&strengths, &improvements, &rep.GeneratedBy, &rep.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	json.Unmarshal(strengths, &rep.Strengths)
	json.Unmarshal(improvements, &rep.Improvements)
	return rep, nil
}
