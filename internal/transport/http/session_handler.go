package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"classlive-session-service/internal/app"
	"classlive-session-service/internal/domain"
)

// SessionHandler exposes session creation over plain HTTP so the host has a
// join code to share before opening the socket.
type SessionHandler struct {
	service *app.SessionService
}

func NewSessionHandler(service *app.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

type createSessionRequest struct {
	QuizID string `json:"quizId"`
	HostID string `json:"hostId"`
}

// CreateSession handles POST /sessions.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.QuizID == "" || req.HostID == "" {
		http.Error(w, "missing quizId or hostId", http.StatusBadRequest)
		return
	}

	summary, err := h.service.Create(r.Context(), req.QuizID, req.HostID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrQuizEmpty):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(summary)
}
