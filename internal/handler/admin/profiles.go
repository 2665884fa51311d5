package admin

import (
	"net/http"
	"time"

	"github.com/constitutionhub/platform/internal/domain"
	"github.com/constitutionhub/platform/internal/engine"
	"github.com/constitutionhub/platform/internal/handler"
	"github.com/constitutionhub/platform/internal/repository"
	"github.com/constitutionhub/platform/internal/reset"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileAdminHandler handles admin learner-profile management.
type ProfileAdminHandler struct {
	pool     *pgxpool.Pool
	profiles repository.ProfileRepository
	engine   *engine.Engine
	resets   *reset.Service
}

// NewProfileAdminHandler creates a new ProfileAdminHandler.
func NewProfileAdminHandler(pool *pgxpool.Pool, profiles repository.ProfileRepository, eng *engine.Engine, resets *reset.Service) *ProfileAdminHandler {
	return &ProfileAdminHandler{pool: pool, profiles: profiles, engine: eng, resets: resets}
}

// ListProfiles handles GET /admin/profiles.
func (h *ProfileAdminHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	rows, err := h.pool.Query(r.Context(), `
		SELECT user_id, coins, experience_points, level, current_streak,
		       daily_coins_earned, last_daily_reset, version, updated_at
		FROM user_profiles ORDER BY experience_points DESC LIMIT 50`)
	if err != nil {
		handler.RespondError(w, domain.ErrInternal("list profiles", err))
		return
	}
	defer rows.Close()

	type profileSummary struct {
		UserID           uuid.UUID `json:"user_id"`
		Coins            int       `json:"coins"`
		ExperiencePoints int       `json:"experience_points"`
		Level            int       `json:"level"`
		CurrentStreak    int       `json:"current_streak"`
		DailyCoinsEarned int       `json:"daily_coins_earned"`
		LastDailyReset   string    `json:"last_daily_reset"`
		Version          int64     `json:"version"`
		UpdatedAt        time.Time `json:"updated_at"`
	}

	var profiles []profileSummary
	for rows.Next() {
		var p profileSummary
		if err := rows.Scan(&p.UserID, &p.Coins, &p.ExperiencePoints, &p.Level, &p.CurrentStreak,
			&p.DailyCoinsEarned, &p.LastDailyReset, &p.Version, &p.UpdatedAt); err != nil {
			handler.RespondError(w, domain.ErrInternal("scan profile", err))
			return
		}
		profiles = append(profiles, p)
	}

	handler.RespondJSON(w, http.StatusOK, profiles)
}

// GetProfile handles GET /admin/profiles/{id}.
func (h *ProfileAdminHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		handler.RespondError(w, domain.ErrValidation("invalid user id"))
		return
	}

	profile, err := h.profiles.FindByUserID(r.Context(), h.pool, userID)
	if err != nil {
		handler.RespondError(w, domain.ErrInternal("find profile", err))
		return
	}
	if profile == nil {
		handler.RespondError(w, domain.ErrNotFound("profile", userID.String()))
		return
	}
	handler.RespondJSON(w, http.StatusOK, profile)
}

// AwardCoins handles POST /admin/profiles/{id}/award — a direct coin grant
// that still passes every duplicate-prevention check.
func (h *ProfileAdminHandler) AwardCoins(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		handler.RespondError(w, domain.ErrValidation("invalid user id"))
		return
	}

	var input struct {
		AwardID string `json:"award_id"`
		Amount  int    `json:"amount"`
		Reason  string `json:"reason"`
	}
	if err := handler.DecodeJSON(r, &input); err != nil {
		handler.RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	summary, err := h.engine.ProcessCoinAward(r.Context(), domain.CoinAward{
		UserID:  userID,
		AwardID: input.AwardID,
		Amount:  input.Amount,
		Reason:  input.Reason,
	})
	if err != nil {
		handler.RespondError(w, err)
		return
	}

	status := http.StatusOK
	if summary.Blocked {
		status = http.StatusConflict
	}
	handler.RespondJSON(w, status, summary)
}

// ResetProfile handles POST /admin/profiles/{id}/reset — an immediate daily
// reset for one learner, outside the day-boundary cycle.
func (h *ProfileAdminHandler) ResetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		handler.RespondError(w, domain.ErrValidation("invalid user id"))
		return
	}

	profile, err := h.resets.ResetProfileNow(r.Context(), userID)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, profile)
}
