package services

import (
	"context"
	"fmt"

	"interview-backend/internal/interview"
)

// HeuristicFeedback scores a session from how much of it the candidate
// completed. It is used when no model is configured or the model fails.
type HeuristicFeedback struct{}

func (HeuristicFeedback) Name() string { return "heuristic" }

func (HeuristicFeedback) Generate(_ context.Context, in ReportInput) (*Feedback, error) {
	cfg := in.Config
	difficulty := interview.ParseDifficulty(cfg.Difficulty)
	total := len(interview.Questions(difficulty))

	completion := 0.0
	if cfg.TotalDurationSeconds > 0 {
		completion = float64(cfg.ElapsedSeconds) / float64(cfg.TotalDurationSeconds)
	}
	if completion > 1 {
		completion = 1
	}
	coverage := 0.0
	if total > 0 {
		coverage = float64(len(cfg.Questions)) / float64(total)
	}

	score := int(40*completion + 40*coverage)
	switch difficulty {
	case interview.DifficultyHard:
		score += 20
	case interview.DifficultyMedium:
		score += 10
	}

	fb := &Feedback{
		OverallScore: clampScore(score),
		Summary: fmt.Sprintf("You answered %d of %d %s questions and used %d of %d seconds.",
			len(cfg.Questions), total, difficulty, cfg.ElapsedSeconds, cfg.TotalDurationSeconds),
		Strengths:    []string{},
		Improvements: []string{},
	}

	if cfg.Reason == string(interview.EndExpired) {
		fb.Strengths = append(fb.Strengths, "Stayed focused for the full interview")
	} else {
		fb.Improvements = append(fb.Improvements, "Try to use the full time to expand on your answers")
	}
	if coverage >= 1 {
		fb.Strengths = append(fb.Strengths, "Reached every question in the set")
	} else {
		fb.Improvements = append(fb.Improvements, "Keep answers concise so you reach every question")
	}
	if difficulty != interview.DifficultyHard {
		fb.Improvements = append(fb.Improvements, "Practice a harder difficulty once you feel comfortable")
	}
	if in.CVText == "" {
		fb.Improvements = append(fb.Improvements, "Upload your CV to get feedback tailored to your experience")
	}

	return fb, nil
}
