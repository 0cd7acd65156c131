package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"interview-backend/internal/models"
)

type CVRepo struct {
	pool *pgxpool.Pool
}

func NewCVRepo(pool *pgxpool.Pool) *CVRepo {
	return &CVRepo{pool: pool}
}

func (r *CVRepo) Create(ctx context.Context, cv *models.CandidateCV) error {
	query := `INSERT INTO candidate_cvs (user_id, filename, mime_type, storage_type, location, text_content)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`

	cv.TextLength = len(cv.TextContent)
	return r.pool.QueryRow(ctx, query,
		cv.UserID, cv.Filename, cv.MimeType, cv.StorageType, cv.Location, cv.TextContent,
	).Scan(&cv.ID, &cv.CreatedAt)
}

// Latest returns the user's most recent CV, or pgx.ErrNoRows.
func (r *CVRepo) Latest(ctx context.Context, userID uuid.UUID) (*models.CandidateCV, error) {
	cv := &models.CandidateCV{}
	query := `SELECT id, user_id, filename, mime_type, storage_type, location, text_content, created_at
		FROM candidate_cvs WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`

	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&cv.ID, &cv.UserID, &cv.Filename, &cv.MimeType, &cv.StorageType, &cv.Location, &cv.TextContent, &cv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	cv.TextLength = len(cv.TextContent)
	return cv, nil
}
