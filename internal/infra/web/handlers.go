package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"study-plan-assistant/internal/domain"
	"study-plan-assistant/internal/domain/model"
)

type startJobRequest struct {
	Message string `json:"message"`
	// FallbackID is a client-generated id used verbatim as the job id, so
	// the client can poll even if it never sees this response.
	FallbackID string `json:"fallback_id,omitempty"`
}

type startJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

func (s *Server) startJob(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	userID := UserID(r.Context())

	var req startJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	jobID, err := s.dispatcher.Start(r.Context(), sessionID, userID, req.Message, req.FallbackID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, startJobResponse{
		JobID:  jobID,
		Status: string(model.JobStatusProcessing),
	})
}

func (s *Server) jobStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	jobID := chi.URLParam(r, "jobID")
	userID := UserID(r.Context())

	job, err := s.poller.Status(r.Context(), sessionID, userID, jobID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// chatSync is the convenience path: fast answers come back inline, slow ones
// degrade to the job id for polling.
func (s *Server) chatSync(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	userID := UserID(r.Context())

	var req startJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	job, err := s.dispatcher.StartAndWait(r.Context(), sessionID, userID, req.Message, req.FallbackID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if job.Terminal() {
		writeJSON(w, http.StatusOK, job)
		return
	}
	writeJSON(w, http.StatusAccepted, startJobResponse{
		JobID:  job.ID,
		Status: string(job.Status),
	})
}

func (s *Server) metricsSummary(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	summary, recent, err := s.journal.Summary(sessionID, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("metrics summary failed")
		http.Error(w, "Failed to read metrics", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summary": summary,
		"recent":  recent,
	})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrNotAuthorized):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, domain.ErrRateLimited):
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
	case errors.Is(err, domain.ErrDuplicateJob):
		http.Error(w, "Job already exists", http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, "Invalid request", http.StatusBadRequest)
	default:
		s.log.Error().Err(err).Msg("request failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
