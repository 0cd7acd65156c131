package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"interview-backend/internal/models"
)

// ReportInput is everything a generator may use to assess one session.
type ReportInput struct {
	Config models.ReportJobConfig
	CVText string
}

// Feedback is the generator-specific part of a report.
type Feedback struct {
	OverallScore int      `json:"overall_score"`
	Summary      string   `json:"summary"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

type FeedbackGenerator interface {
	Name() string
	Generate(ctx context.Context, in ReportInput) (*Feedback, error)
}

type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // Token bucket
}

func NewGeminiService(apiKey, modelName string, concurrentReqs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.4)
	model.SetTopP(0.95)
	model.ResponseMIMEType = "application/json"

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		rateChan: rateChan,
	}, nil
}

func (s *GeminiService) Name() string { return "gemini" }

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

func (s *GeminiService) Generate(ctx context.Context, in ReportInput) (*Feedback, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	resp, err := s.model.GenerateContent(ctx, genai.Text(buildFeedbackPrompt(in)))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	return parseFeedback(extractText(resp))
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func parseFeedback(rawText string) (*Feedback, error) {
	rawText = strings.TrimSpace(rawText)
	rawText = strings.TrimPrefix(rawText, "```json")
	rawText = strings.TrimPrefix(rawText, "```")
	rawText = strings.TrimSuffix(rawText, "```")
	rawText = strings.TrimSpace(rawText)

	var fb Feedback
	if err := json.Unmarshal([]byte(rawText), &fb); err != nil {
		start := strings.Index(rawText, "{")
		end := strings.LastIndex(rawText, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no JSON object in model output: %w", err)
		}
		if err := json.Unmarshal([]byte(rawText[start:end+1]), &fb); err != nil {
			return nil, fmt.Errorf("invalid feedback JSON: %w", err)
		}
	}

	if strings.TrimSpace(fb.Summary) == "" {
		return nil, fmt.Errorf("model returned an empty summary")
	}
	fb.OverallScore = clampScore(fb.OverallScore)
	if fb.Strengths == nil {
		fb.Strengths = []string{}
	}
	if fb.Improvements == nil {
		fb.Improvements = []string{}
	}
	return &fb, nil
}

func buildFeedbackPrompt(in ReportInput) string {
	var b strings.Builder

	b.WriteString("You are an experienced technical recruiter reviewing a timed mock interview.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON object. No preamble, no markdown, no backticks.\n\n")

	b.WriteString(fmt.Sprintf("Difficulty: %s\n", in.Config.Difficulty))
	b.WriteString(fmt.Sprintf("Time used: %d of %d seconds\n", in.Config.ElapsedSeconds, in.Config.TotalDurationSeconds))
	switch in.Config.Reason {
	case "ended":
		b.WriteString("The candidate ended the interview early.\n")
	case "expired":
		b.WriteString("The candidate stayed until the time ran out.\n")
	}

	b.WriteString("\nQuestions the candidate was shown:\n")
	if len(in.Config.Questions) == 0 {
		b.WriteString("(none, the interview ended before the first question)\n")
	}
	for i, q := range in.Config.Questions {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, q))
	}

	if in.CVText != "" {
		cv := in.CVText
		if len(cv) > 8000 {
			cv = cv[:8000]
		}
		b.WriteString("\nTailor the advice to the candidate's CV:\n---CV---\n")
		b.WriteString(cv)
		b.WriteString("\n---END---\n")
	}

	b.WriteString(`
JSON schema:
{"overall_score": int 0-100, "summary": "string, 2-3 sentences", "strengths": ["string"], "improvements": ["string"]}

Give at most 4 strengths and 4 improvements. Be specific and encouraging.
`)

	return b.String()
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
