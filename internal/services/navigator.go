package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"interview-backend/internal/interview"
	"interview-backend/internal/metrics"
	"interview-backend/internal/models"
)

const MsgSessionCompleted = "session_completed"

type sessionFinisher interface {
	Finish(ctx context.Context, id uuid.UUID, reason string, elapsed, revealed int) error
}

type jobCreator interface {
	Create(ctx context.Context, j *models.Job) error
}

// ReportNavigator is where finished sessions go: the outcome is stored, a
// report job is queued, and the client is pointed at the report page.
type ReportNavigator struct {
	sessions    sessionFinisher
	jobs        jobCreator
	queue       JobQueue
	pub         Publisher
	frontendURL string
}

func NewReportNavigator(sessions sessionFinisher, jobs jobCreator, queue JobQueue, pub Publisher, frontendURL string) *ReportNavigator {
	return &ReportNavigator{
		sessions:    sessions,
		jobs:        jobs,
		queue:       queue,
		pub:         pub,
		frontendURL: frontendURL,
	}
}

func (n *ReportNavigator) ReportURL(sessionID uuid.UUID) string {
	return fmt.Sprintf("%s/interview/report/%s", n.frontendURL, sessionID)
}

func (n *ReportNavigator) CompleteSession(ctx context.Context, result interview.Result) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	metrics.SessionsEnded.WithLabelValues(string(result.Reason)).Inc()

	if err := n.sessions.Finish(ctx, result.SessionID, string(result.Reason), result.ElapsedSeconds, len(result.Revealed)); err != nil {
		log.Printf("interview %s: failed to record outcome: %v", result.SessionID, err)
	}

	jobID, err := n.queueReport(ctx, result)
	if err != nil {
		log.Printf("interview %s: failed to queue report: %v", result.SessionID, err)
	}

	err = n.pub.Publish(ctx, result.UserID, models.WSMessage{
		Type: MsgSessionCompleted,
		Payload: models.SessionCompletedEvent{
			SessionID: result.SessionID,
			Reason:    string(result.Reason),
			JobID:     jobID,
			ReportURL: n.ReportURL(result.SessionID),
		},
	})
	if err != nil {
		log.Printf("interview %s: publish %s: %v", result.SessionID, MsgSessionCompleted, err)
	}
}

func (n *ReportNavigator) queueReport(ctx context.Context, result interview.Result) (uuid.UUID, error) {
	cfg := models.ReportJobConfig{
		Difficulty:           string(result.Difficulty),
		Reason:               string(result.Reason),
		ElapsedSeconds:       result.ElapsedSeconds,
		TotalDurationSeconds: result.TotalDurationSeconds,
		Questions:            make([]string, 0, len(result.Revealed)),
	}
	for _, q := range result.Revealed {
		cfg.Questions = append(cfg.Questions, q.Text)
	}
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode job config: %w", err)
	}

	job := &models.Job{
		UserID:      result.UserID,
		Type:        models.JobTypeReportGeneration,
		ReferenceID: result.SessionID,
		ConfigJSON:  configJSON,
	}
	if err := n.jobs.Create(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create job: %w", err)
	}
	if err := n.queue.Enqueue(ctx, ReportQueue, job.ID); err != nil {
		return job.ID, fmt.Errorf("failed to enqueue job: %w", err)
	}
	return job.ID, nil
}
