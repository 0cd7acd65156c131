package handlers

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"

	"interview-backend/internal/middleware"
	"interview-backend/internal/models"
	"interview-backend/internal/services"
)

type cvService interface {
	Upload(ctx context.Context, userID uuid.UUID, filename string, data []byte) (*models.CandidateCV, error)
	Latest(ctx context.Context, userID uuid.UUID) (*models.CandidateCV, error)
	Open(ctx context.Context, userID uuid.UUID) (*models.CandidateCV, io.ReadCloser, error)
}

type CVHandler struct {
	svc cvService
}

func NewCVHandler(svc cvService) *CVHandler {
	return &CVHandler{svc: svc}
}

func (h *CVHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// leave room for the multipart envelope
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxCVBytes+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, services.MaxCVBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Failed to read file", r))
		return
	}

	cv, err := h.svc.Upload(r.Context(), middleware.GetUserID(r.Context()), header.Filename, data)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cv)
}

func (h *CVHandler) Latest(w http.ResponseWriter, r *http.Request) {
	cv, err := h.svc.Latest(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cv)
}

func (h *CVHandler) Download(w http.ResponseWriter, r *http.Request) {
	cv, rc, err := h.svc.Open(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", cv.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", cv.Filename))
	if _, err := io.Copy(w, rc); err != nil {
		log.Printf("CV %s: download interrupted: %v", cv.ID, err)
	}
}
