package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"interview-backend/internal/metrics"
	"interview-backend/internal/models"
)

const MsgReportReady = "report_ready"

type reportStore interface {
	SaveReport(ctx context.Context, rep *models.InterviewReport) error
}

type cvLookup interface {
	Latest(ctx context.Context, userID uuid.UUID) (*models.CandidateCV, error)
}

type userLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ReportService turns a finished session into written feedback.
type ReportService struct {
	primary  FeedbackGenerator // nil when no model is configured
	fallback FeedbackGenerator
	reports  reportStore
	cvs      cvLookup
	users    userLookup
	pub      Publisher
	email    *EmailService
}

func NewReportService(primary FeedbackGenerator, reports reportStore, cvs cvLookup, users userLookup, pub Publisher, email *EmailService) *ReportService {
	return &ReportService{
		primary:  primary,
		fallback: HeuristicFeedback{},
		reports:  reports,
		cvs:      cvs,
		users:    users,
		pub:      pub,
		email:    email,
	}
}

// GenerateReport processes one report-generation job. Generator failures fall
// back to the heuristic; only storage failures are returned for retry.
func (s *ReportService) GenerateReport(ctx context.Context, job *models.Job) error {
	var cfg models.ReportJobConfig
	if err := json.Unmarshal(job.ConfigJSON, &cfg); err != nil {
		return fmt.Errorf("invalid report job config: %w", err)
	}

	in := ReportInput{Config: cfg}
	if cv, err := s.cvs.Latest(ctx, job.UserID); err == nil {
		in.CVText = cv.TextContent
	}

	s.pub.Publish(ctx, job.UserID, models.WSMessage{
		Type: "status_update",
		Payload: models.StatusUpdate{
			JobID: job.ID, Step: 1, StepName: "Reviewing your interview",
		},
	})

	fb, generator := s.generate(ctx, in)

	report := &models.InterviewReport{
		SessionID:    job.ReferenceID,
		UserID:       job.UserID,
		OverallScore: fb.OverallScore,
		Summary:      fb.Summary,
		Strengths:    fb.Strengths,
		Improvements: fb.Improvements,
		GeneratedBy:  generator,
	}
	if err := s.reports.SaveReport(ctx, report); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	s.pub.Publish(ctx, job.UserID, models.WSMessage{
		Type: MsgReportReady,
		Payload: models.ReportReadyEvent{
			SessionID:    report.SessionID,
			ReportID:     report.ID,
			OverallScore: report.OverallScore,
		},
	})

	if s.email != nil && s.users != nil {
		if user, err := s.users.GetByID(ctx, job.UserID); err == nil {
			go s.email.SendReportReadyEmail(user.Email, user.FullName, report.SessionID, report.OverallScore)
		}
	}

	return nil
}

func (s *ReportService) generate(ctx context.Context, in ReportInput) (*Feedback, string) {
	if s.primary != nil {
		start := time.Now()
		fb, err := s.primary.Generate(ctx, in)
		if err == nil {
			metrics.ReportDuration.WithLabelValues(s.primary.Name()).Observe(time.Since(start).Seconds())
			return fb, s.primary.Name()
		}
		log.Printf("%s feedback failed, using %s: %v", s.primary.Name(), s.fallback.Name(), err)
	}

	start := time.Now()
	fb, _ := s.fallback.Generate(ctx, in)
	metrics.ReportDuration.WithLabelValues(s.fallback.Name()).Observe(time.Since(start).Seconds())
	return fb, s.fallback.Name()
}
