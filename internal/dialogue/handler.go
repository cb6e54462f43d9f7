package dialogue

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type CreateSessionRequest struct {
	Language string `json:"language"`
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	sess, err := h.svc.CreateSession(r.Context(), req.Language)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{
		"session_id": sess.ID.String(),
		"state":      string(sess.State),
	})
}

type PostMessageRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	Language  string `json:"language"`
}

func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	// An absent session id starts a fresh session in COLLECTING.
	id := uuid.Nil
	if req.SessionID != "" {
		parsed, err := uuid.Parse(req.SessionID)
		if err != nil {
			http.Error(w, "Invalid session ID", http.StatusBadRequest)
			return
		}
		id = parsed
	}

	reply, err := h.svc.PostMessage(r.Context(), id, req.Text, req.Language)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "Session not found, start a new one", http.StatusNotFound)
			return
		}
		http.Error(w, "Processing failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(reply)
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}
	if err := h.svc.CloseSession(r.Context(), id); err != nil {
		http.Error(w, "Failed to close session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/session", h.CreateSession)
	r.Post("/session/message", h.PostMessage)
	r.Delete("/session/{id}", h.CloseSession)
}
