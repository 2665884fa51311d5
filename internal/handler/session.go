package handler

import (
	"net/http"

	"github.com/constitutionhub/platform/internal/domain"
	"github.com/constitutionhub/platform/internal/repository"
	"github.com/constitutionhub/platform/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// SessionHandler handles learner session lifecycle endpoints.
type SessionHandler struct {
	manager  *session.Manager
	sessions repository.SessionRepository
	db       repository.DBTX
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(manager *session.Manager, sessions repository.SessionRepository, db repository.DBTX) *SessionHandler {
	return &SessionHandler{manager: manager, sessions: sessions, db: db}
}

// Create handles POST /sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := subjectID(w, r)
	if !ok {
		return
	}

	s, err := h.manager.CreateSession(r.Context(), userID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, s)
}

// Get handles GET /sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := subjectID(w, r)
	if !ok {
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid session id"))
		return
	}

	s := h.manager.Get(sessionID)
	if s == nil || s.UserID != userID {
		RespondError(w, domain.ErrNotFound("session", sessionID.String()))
		return
	}
	RespondJSON(w, http.StatusOK, s)
}

// Validate handles POST /sessions/{id}/validate — recomputes session health.
func (h *SessionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	userID, ok := subjectID(w, r)
	if !ok {
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid session id"))
		return
	}

	s := h.manager.Get(sessionID)
	if s == nil || s.UserID != userID {
		RespondError(w, domain.ErrNotFound("session", sessionID.String()))
		return
	}

	state := h.manager.ValidateSession(r.Context(), sessionID)
	RespondJSON(w, http.StatusOK, state)
}

// End handles POST /sessions/{id}/end.
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	userID, ok := subjectID(w, r)
	if !ok {
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid session id"))
		return
	}

	s := h.manager.Get(sessionID)
	if s == nil || s.UserID != userID {
		RespondError(w, domain.ErrNotFound("session", sessionID.String()))
		return
	}

	if err := h.manager.EndSession(r.Context(), sessionID); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

// History handles GET /sessions/history — the learner's terminal sessions.
func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := subjectID(w, r)
	if !ok {
		return
	}

	history, err := h.sessions.ListByUser(r.Context(), h.db, userID, 50)
	if err != nil {
		RespondError(w, domain.ErrInternal("list sessions", err))
		return
	}
	if history == nil {
		history = []domain.UserSession{}
	}
	RespondJSON(w, http.StatusOK, history)
}
