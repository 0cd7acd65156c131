package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"interview-backend/internal/interview"
	"interview-backend/internal/middleware"
	"interview-backend/internal/models"
	"interview-backend/internal/services"
)

type interviewService interface {
	Start(ctx context.Context, userID uuid.UUID, p services.StartInterviewParams) (interview.Snapshot, error)
	Snapshot(userID, sessionID uuid.UUID) (interview.Snapshot, error)
	End(userID, sessionID uuid.UUID) (interview.Snapshot, error)
	ToggleMic(userID, sessionID uuid.UUID) (interview.Snapshot, error)
	ToggleCamera(userID, sessionID uuid.UUID) (interview.Snapshot, error)
	Abandon(userID, sessionID uuid.UUID) error
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.InterviewSession, error)
	Get(ctx context.Context, userID, sessionID uuid.UUID) (*models.InterviewSession, error)
	Report(ctx context.Context, userID, sessionID uuid.UUID) (*models.InterviewReport, error)
}

type InterviewHandler struct {
	svc             interviewService
	durationSeconds int
}

func NewInterviewHandler(svc interviewService, durationSeconds int) *InterviewHandler {
	return &InterviewHandler{svc: svc, durationSeconds: durationSeconds}
}

// Questions lists a tier's question bank so the client can preview it.
func (h *InterviewHandler) Questions(w http.ResponseWriter, r *http.Request) {
	difficulty := interview.ParseDifficulty(r.URL.Query().Get("difficulty"))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"difficulty":             difficulty,
		"total_duration_seconds": h.durationSeconds,
		"questions":              interview.Questions(difficulty),
	})
}

func (h *InterviewHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req models.StartInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	snap, err := h.svc.Start(r.Context(), userID, services.StartInterviewParams{
		Difficulty:     r.URL.Query().Get("difficulty"),
		Gender:         r.URL.Query().Get("gender"),
		MediaAvailable: req.MediaAvailable,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, snap)
}

func (h *InterviewHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, h.svc.Snapshot)
}

func (h *InterviewHandler) End(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, h.svc.End)
}

func (h *InterviewHandler) ToggleMic(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, h.svc.ToggleMic)
}

func (h *InterviewHandler) ToggleCamera(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, h.svc.ToggleCamera)
}

func (h *InterviewHandler) withSession(w http.ResponseWriter, r *http.Request, status int, fn func(userID, sessionID uuid.UUID) (interview.Snapshot, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	snap, err := fn(middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, status, snap)
}

// Abandon is the unmount path: the session stops without a report.
func (h *InterviewHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Abandon(middleware.GetUserID(r.Context()), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InterviewHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	sessions, err := h.svc.History(r.Context(), middleware.GetUserID(r.Context()), limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": sessions})
}

func (h *InterviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	session, err := h.svc.Get(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *InterviewHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	report, err := h.svc.Report(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
