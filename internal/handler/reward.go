package handler

import (
	"net/http"

	"github.com/constitutionhub/platform/internal/auth"
	"github.com/constitutionhub/platform/internal/domain"
	"github.com/constitutionhub/platform/internal/engine"
	"github.com/google/uuid"
)

// RewardHandler handles activity completion endpoints. The authenticated
// subject always overrides any user id in the request body.
type RewardHandler struct {
	engine *engine.Engine
}

// NewRewardHandler creates a new RewardHandler.
func NewRewardHandler(eng *engine.Engine) *RewardHandler {
	return &RewardHandler{engine: eng}
}

// CompleteQuiz handles POST /activities/quiz.
func (h *RewardHandler) CompleteQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := subjectID(w, r)
	if !ok {
		return
	}

	var event domain.QuizCompleted
	if err := DecodeJSON(r, &event); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	event.UserID = userID
	event.PerfectScore = event.TotalQuestions > 0 && event.CorrectAnswers == event.TotalQuestions

	summary, err := h.engine.ProcessQuizCompletion(r.Context(), event)
	if err != nil {
		RespondError(w, err)
		return
	}
	respondSummary(w, summary)
}

// CompleteGame handles POST /activities/game.
func (h *RewardHandler) CompleteGame(w http.ResponseWriter, r *http.Request) {
	userID, ok := subjectID(w, r)
	if !ok {
		return
	}

	var event domain.GameCompleted
	if err := DecodeJSON(r, &event); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	event.UserID = userID

	summary, err := h.engine.ProcessGameCompletion(r.Context(), event)
	if err != nil {
		RespondError(w, err)
		return
	}
	respondSummary(w, summary)
}

// CompleteChallenge handles POST /activities/challenge.
func (h *RewardHandler) CompleteChallenge(w http.ResponseWriter, r *http.Request) {
	userID, ok := subjectID(w, r)
	if !ok {
		return
	}

	var event domain.ChallengeCompleted
	if err := DecodeJSON(r, &event); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	event.UserID = userID

	summary, err := h.engine.ProcessChallengeCompletion(r.Context(), event)
	if err != nil {
		RespondError(w, err)
		return
	}
	respondSummary(w, summary)
}

// ClaimAchievement handles POST /activities/achievement.
func (h *RewardHandler) ClaimAchievement(w http.ResponseWriter, r *http.Request) {
	userID, ok := subjectID(w, r)
	if !ok {
		return
	}

	var event domain.AchievementUnlock
	if err := DecodeJSON(r, &event); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	event.UserID = userID

	summary, err := h.engine.ProcessAchievementUnlock(r.Context(), event)
	if err != nil {
		RespondError(w, err)
		return
	}
	respondSummary(w, summary)
}

// respondSummary maps a blocked verdict to 409 and everything else to 200.
func respondSummary(w http.ResponseWriter, summary *domain.RewardSummary) {
	status := http.StatusOK
	if summary.Blocked {
		status = http.StatusConflict
	}
	RespondJSON(w, status, summary)
}

// subjectID extracts and parses the authenticated subject, writing the
// error response itself on failure.
func subjectID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	sub := auth.SubjectFromContext(r.Context())
	if sub == "" {
		RespondError(w, domain.ErrUnauthorized("no subject in context"))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		RespondError(w, domain.ErrUnauthorized("invalid subject"))
		return uuid.Nil, false
	}
	return id, true
}
