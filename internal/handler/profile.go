package handler

import (
	"net/http"

	"github.com/constitutionhub/platform/internal/domain"
	"github.com/constitutionhub/platform/internal/repository"
)

// ProfileHandler handles learner profile endpoints.
type ProfileHandler struct {
	profiles repository.ProfileRepository
	db       repository.DBTX
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profiles repository.ProfileRepository, db repository.DBTX) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, db: db}
}

// GetMe handles GET /profile/me.
func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := subjectID(w, r)
	if !ok {
		return
	}

	profile, err := h.profiles.FindByUserID(r.Context(), h.db, userID)
	if err != nil {
		RespondError(w, domain.ErrInternal("find profile", err))
		return
	}
	if profile == nil {
		RespondError(w, domain.ErrNotFound("profile", userID.String()))
		return
	}

	RespondJSON(w, http.StatusOK, profile)
}

type achievementsResponse struct {
	Achievements []domain.Achievement `json:"achievements"`
	Badges       []domain.Badge       `json:"badges"`
}

// GetMyAchievements handles GET /profile/me/achievements.
func (h *ProfileHandler) GetMyAchievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := subjectID(w, r)
	if !ok {
		return
	}

	profile, err := h.profiles.FindByUserID(r.Context(), h.db, userID)
	if err != nil {
		RespondError(w, domain.ErrInternal("find profile", err))
		return
	}
	if profile == nil {
		RespondError(w, domain.ErrNotFound("profile", userID.String()))
		return
	}

	resp := achievementsResponse{
		Achievements: profile.Achievements,
		Badges:       profile.Badges,
	}
	if resp.Achievements == nil {
		resp.Achievements = []domain.Achievement{}
	}
	if resp.Badges == nil {
		resp.Badges = []domain.Badge{}
	}
	RespondJSON(w, http.StatusOK, resp)
}

type streakResponse struct {
	CurrentStreak    int    `json:"current_streak"`
	LongestStreak    int    `json:"longest_streak"`
	LastActivityDate string `json:"last_activity_date"`
}

// GetMyStreak handles GET /profile/me/streak.
func (h *ProfileHandler) GetMyStreak(w http.ResponseWriter, r *http.Request) {
	userID, ok := subjectID(w, r)
	if !ok {
		return
	}

	profile, err := h.profiles.FindByUserID(r.Context(), h.db, userID)
	if err != nil {
		RespondError(w, domain.ErrInternal("find profile", err))
		return
	}
	if profile == nil {
		RespondError(w, domain.ErrNotFound("profile", userID.String()))
		return
	}

	RespondJSON(w, http.StatusOK, streakResponse{
		CurrentStreak:    profile.CurrentStreak,
		LongestStreak:    profile.LongestStreak,
		LastActivityDate: profile.LastActivityDate,
	})
}
