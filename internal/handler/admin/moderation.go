package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/constitutionhub/platform/internal/audit"
	"github.com/constitutionhub/platform/internal/domain"
	"github.com/constitutionhub/platform/internal/handler"
	"github.com/constitutionhub/platform/internal/middleware"
	"github.com/constitutionhub/platform/internal/repository"
	"github.com/constitutionhub/platform/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ModerationHandler handles admin alert review and session moderation.
type ModerationHandler struct {
	auditor   *audit.Logger
	validator *middleware.Validator
	sessions  *session.Manager
	history   repository.SessionRepository
	db        repository.DBTX
}

// NewModerationHandler creates a new ModerationHandler.
func NewModerationHandler(
	auditor *audit.Logger,
	validator *middleware.Validator,
	sessions *session.Manager,
	history repository.SessionRepository,
	db repository.DBTX,
) *ModerationHandler {
	return &ModerationHandler{
		auditor:   auditor,
		validator: validator,
		sessions:  sessions,
		history:   history,
		db:        db,
	}
}

// ListAlerts handles GET /admin/alerts.
func (h *ModerationHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	alerts, err := h.auditor.RecentAlerts(r.Context(), limit)
	if err != nil {
		handler.RespondError(w, domain.ErrInternal("list alerts", err))
		return
	}
	if alerts == nil {
		alerts = []domain.AuditEntry{}
	}
	handler.RespondJSON(w, http.StatusOK, alerts)
}

// ValidationStats handles GET /admin/validation/stats.
func (h *ModerationHandler) ValidationStats(w http.ResponseWriter, r *http.Request) {
	handler.RespondJSON(w, http.StatusOK, h.validator.Stats())
}

// ListUserSessions handles GET /admin/users/{id}/sessions.
func (h *ModerationHandler) ListUserSessions(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		handler.RespondError(w, domain.ErrValidation("invalid user id"))
		return
	}

	history, err := h.history.ListByUser(r.Context(), h.db, userID, 50)
	if err != nil {
		handler.RespondError(w, domain.ErrInternal("list sessions", err))
		return
	}
	if history == nil {
		history = []domain.UserSession{}
	}
	handler.RespondJSON(w, http.StatusOK, history)
}

// EndSession handles POST /admin/sessions/{id}/end — a forced end.
func (h *ModerationHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		handler.RespondError(w, domain.ErrValidation("invalid session id"))
		return
	}

	if err := h.sessions.EndSession(r.Context(), sessionID); err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

// BlockActivity handles POST /admin/sessions/{id}/block — blocks one
// activity type on an active session for a bounded duration.
func (h *ModerationHandler) BlockActivity(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		handler.RespondError(w, domain.ErrValidation("invalid session id"))
		return
	}

	var input struct {
		ActivityType    domain.ActivityType `json:"activity_type"`
		DurationMinutes int                 `json:"duration_minutes"`
	}
	if err := handler.DecodeJSON(r, &input); err != nil {
		handler.RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if input.ActivityType == "" {
		handler.RespondError(w, domain.ErrValidation("activity type is required"))
		return
	}
	if input.DurationMinutes <= 0 || input.DurationMinutes > 24*60 {
		handler.RespondError(w, domain.ErrValidation("duration must be between 1 minute and 24 hours"))
		return
	}

	if h.sessions.Get(sessionID) == nil {
		handler.RespondError(w, domain.ErrNotFound("session", sessionID.String()))
		return
	}

	h.sessions.BlockActivity(sessionID, input.ActivityType, time.Duration(input.DurationMinutes)*time.Minute)
	handler.RespondJSON(w, http.StatusOK, map[string]string{"status": "blocked"})
}
