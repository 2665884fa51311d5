package handler

import (
	"net/http"
	"time"

	"github.com/constitutionhub/platform/internal/domain"
	"github.com/constitutionhub/platform/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ChallengeHandler handles daily challenge endpoints.
type ChallengeHandler struct {
	challenges repository.ChallengeRepository
	db         repository.DBTX
}

// NewChallengeHandler creates a new ChallengeHandler.
func NewChallengeHandler(challenges repository.ChallengeRepository, db repository.DBTX) *ChallengeHandler {
	return &ChallengeHandler{challenges: challenges, db: db}
}

// ListMine handles GET /challenges/me.
func (h *ChallengeHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := subjectID(w, r)
	if !ok {
		return
	}

	challenges, err := h.challenges.ListByUser(r.Context(), h.db, userID)
	if err != nil {
		RespondError(w, domain.ErrInternal("list challenges", err))
		return
	}
	if challenges == nil {
		challenges = []domain.DailyChallenge{}
	}
	RespondJSON(w, http.StatusOK, challenges)
}

type progressInput struct {
	Increment int `json:"increment"`
}

// RecordProgress handles POST /challenges/{id}/progress. Completion payout
// goes through the activity endpoints; this only advances the counter.
func (h *ChallengeHandler) RecordProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := subjectID(w, r)
	if !ok {
		return
	}

	challengeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid challenge id"))
		return
	}

	var input progressInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if input.Increment <= 0 {
		RespondError(w, domain.ErrValidation("increment must be positive"))
		return
	}

	challenge, err := h.challenges.FindByID(r.Context(), h.db, challengeID)
	if err != nil {
		RespondError(w, domain.ErrInternal("find challenge", err))
		return
	}
	if challenge == nil || challenge.UserID != userID {
		RespondError(w, domain.ErrNotFound("challenge", challengeID.String()))
		return
	}

	now := time.Now().UTC()
	if challenge.Expired(now) {
		RespondError(w, domain.ErrConflict("challenge window has closed"))
		return
	}
	if challenge.IsCompleted {
		RespondError(w, domain.ErrConflict("challenge already completed"))
		return
	}

	challenge.Progress += input.Increment
	if challenge.Progress > challenge.Target {
		challenge.Progress = challenge.Target
	}
	challenge.UpdatedAt = now

	if err := h.challenges.Save(r.Context(), h.db, challenge); err != nil {
		RespondError(w, domain.ErrInternal("save challenge", err))
		return
	}
	RespondJSON(w, http.StatusOK, challenge)
}
