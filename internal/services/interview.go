package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"interview-backend/internal/interview"
	"interview-backend/internal/metrics"
	"interview-backend/internal/models"
)

type InterviewStore interface {
	Create(ctx context.Context, s *models.InterviewSession) error
	Finish(ctx context.Context, id uuid.UUID, reason string, elapsed, revealed int) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.InterviewSession, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.InterviewSession, error)
	GetReport(ctx context.Context, sessionID uuid.UUID) (*models.InterviewReport, error)
}

type InterviewService struct {
	manager  *interview.Manager
	store    InterviewStore
	pub      Publisher
	duration int
}

func NewInterviewService(manager *interview.Manager, store InterviewStore, pub Publisher, durationSeconds int) *InterviewService {
	if durationSeconds <= 0 {
		durationSeconds = interview.DefaultDurationSeconds
	}
	return &InterviewService{
		manager:  manager,
		store:    store,
		pub:      pub,
		duration: durationSeconds,
	}
}

type StartInterviewParams struct {
	Difficulty     string
	Gender         string
	MediaAvailable bool
}

// Start persists a new session and mounts its controller. Unknown difficulty
// or gender values fall back to their defaults.
func (s *InterviewService) Start(ctx context.Context, userID uuid.UUID, p StartInterviewParams) (interview.Snapshot, error) {
	difficulty := interview.ParseDifficulty(p.Difficulty)
	gender := interview.ParseGender(p.Gender)

	row := &models.InterviewSession{
		ID:                   uuid.New(),
		UserID:               userID,
		Difficulty:           string(difficulty),
		InterviewerGender:    string(gender),
		TotalDurationSeconds: s.duration,
		DeviceAvailable:      p.MediaAvailable,
	}
	if err := s.store.Create(ctx, row); err != nil {
		return interview.Snapshot{}, err
	}

	ctrl, err := s.manager.Start(ctx, interview.StartParams{
		ID:         row.ID,
		UserID:     userID,
		Difficulty: difficulty,
		Gender:     gender,
		Device:     NewRemoteMediaDevice(s.pub, userID, p.MediaAvailable),
	})
	if err != nil {
		if ferr := s.store.Finish(context.Background(), row.ID, string(interview.EndAbandoned), 0, 0); ferr != nil {
			log.Printf("interview %s: failed to record aborted start: %v", row.ID, ferr)
		}
		if errors.Is(err, interview.ErrSessionClosed) {
			return interview.Snapshot{}, &ConflictError{Message: "Session was closed before it started"}
		}
		return interview.Snapshot{}, err
	}

	snap := ctrl.Snapshot()
	metrics.SessionsStarted.WithLabelValues(string(difficulty)).Inc()
	metrics.SessionsLive.Inc()
	if !snap.LivePreview {
		metrics.DeviceUnavailable.Inc()
	}

	go s.track(ctrl)
	return snap, nil
}

// track settles bookkeeping once a controller winds down. Abandoned sessions
// never reach the navigator, so their outcome is recorded here.
func (s *InterviewService) track(ctrl *interview.Controller) {
	<-ctrl.Done()
	metrics.SessionsLive.Dec()

	snap := ctrl.Snapshot()
	if snap.EndReason != interview.EndAbandoned {
		return
	}
	metrics.SessionsEnded.WithLabelValues(string(interview.EndAbandoned)).Inc()

	revealed := interview.RevealedCount(interview.Questions(snap.Difficulty), snap.ElapsedSeconds)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Finish(ctx, snap.ID, string(interview.EndAbandoned), snap.ElapsedSeconds, revealed); err != nil {
		log.Printf("interview %s: failed to record abandonment: %v", snap.ID, err)
	}
}

func (s *InterviewService) owned(userID, sessionID uuid.UUID) (*interview.Controller, error) {
	ctrl, err := s.manager.Get(sessionID)
	if err != nil || ctrl.UserID() != userID {
		return nil, &NotFoundError{Message: "Interview session not found"}
	}
	return ctrl, nil
}

func (s *InterviewService) Snapshot(userID, sessionID uuid.UUID) (interview.Snapshot, error) {
	ctrl, err := s.owned(userID, sessionID)
	if err != nil {
		return interview.Snapshot{}, err
	}
	return ctrl.Snapshot(), nil
}

func (s *InterviewService) End(userID, sessionID uuid.UUID) (interview.Snapshot, error) {
	ctrl, err := s.owned(userID, sessionID)
	if err != nil {
		return interview.Snapshot{}, err
	}
	if err := ctrl.End(); err != nil {
		if errors.Is(err, interview.ErrSessionNotActive) {
			return interview.Snapshot{}, &ConflictError{Message: "Interview session is not active"}
		}
		return interview.Snapshot{}, err
	}
	return ctrl.Snapshot(), nil
}

func (s *InterviewService) ToggleMic(userID, sessionID uuid.UUID) (interview.Snapshot, error) {
	ctrl, err := s.owned(userID, sessionID)
	if err != nil {
		return interview.Snapshot{}, err
	}
	ctrl.ToggleMic()
	return ctrl.Snapshot(), nil
}

func (s *InterviewService) ToggleCamera(userID, sessionID uuid.UUID) (interview.Snapshot, error) {
	ctrl, err := s.owned(userID, sessionID)
	if err != nil {
		return interview.Snapshot{}, err
	}
	ctrl.ToggleCamera()
	return ctrl.Snapshot(), nil
}

// Abandon unmounts the session: the device is released and no report is made.
func (s *InterviewService) Abandon(userID, sessionID uuid.UUID) error {
	if _, err := s.owned(userID, sessionID); err != nil {
		return err
	}
	if err := s.manager.Unmount(sessionID); err != nil {
		return &NotFoundError{Message: "Interview session not found"}
	}
	return nil
}

func (s *InterviewService) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.InterviewSession, error) {
	sessions, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []models.InterviewSession{}
	}
	return sessions, nil
}

func (s *InterviewService) Get(ctx context.Context, userID, sessionID uuid.UUID) (*models.InterviewSession, error) {
	row, err := s.store.GetByID(ctx, sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Message: "Interview not found"}
	}
	if err != nil {
		return nil, err
	}
	if row.UserID != userID {
		return nil, &NotFoundError{Message: "Interview not found"}
	}

	report, err := s.store.GetReport(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	row.Report = report
	return row, nil
}

func (s *InterviewService) Report(ctx context.Context, userID, sessionID uuid.UUID) (*models.InterviewReport, error) {
	row, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if row.Report == nil {
		return nil, &NotFoundError{Message: "Report is not ready yet"}
	}
	return row.Report, nil
}
