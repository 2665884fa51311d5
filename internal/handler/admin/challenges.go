package admin

import (
	"net/http"
	"time"

	"github.com/constitutionhub/platform/internal/domain"
	"github.com/constitutionhub/platform/internal/handler"
	"github.com/constitutionhub/platform/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChallengeAdminHandler handles admin daily-challenge management.
type ChallengeAdminHandler struct {
	pool       *pgxpool.Pool
	challenges repository.ChallengeRepository
}

// NewChallengeAdminHandler creates a new ChallengeAdminHandler.
func NewChallengeAdminHandler(pool *pgxpool.Pool, challenges repository.ChallengeRepository) *ChallengeAdminHandler {
	return &ChallengeAdminHandler{pool: pool, challenges: challenges}
}

// ListChallenges handles GET /admin/challenges.
func (h *ChallengeAdminHandler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	rows, err := h.pool.Query(r.Context(), `
		SELECT id, user_id, challenge_type, title, progress, target,
		       is_completed, curriculum, expires_at, created_at, updated_at
		FROM daily_challenges ORDER BY created_at DESC LIMIT 100`)
	if err != nil {
		handler.RespondError(w, domain.ErrInternal("list challenges", err))
		return
	}
	defer rows.Close()

	var challenges []domain.DailyChallenge
	for rows.Next() {
		var c domain.DailyChallenge
		if err := rows.Scan(&c.ID, &c.UserID, &c.ChallengeType, &c.Title, &c.Progress, &c.Target,
			&c.IsCompleted, &c.Curriculum, &c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			handler.RespondError(w, domain.ErrInternal("scan challenge", err))
			return
		}
		challenges = append(challenges, c)
	}

	handler.RespondJSON(w, http.StatusOK, challenges)
}

// AssignChallenge handles POST /admin/users/{id}/challenges.
func (h *ChallengeAdminHandler) AssignChallenge(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		handler.RespondError(w, domain.ErrValidation("invalid user id"))
		return
	}

	var input struct {
		ChallengeType string `json:"challenge_type"`
		Title         string `json:"title"`
		Target        int    `json:"target"`
		Curriculum    bool   `json:"curriculum"`
	}
	if err := handler.DecodeJSON(r, &input); err != nil {
		handler.RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if input.ChallengeType == "" {
		handler.RespondError(w, domain.ErrValidation("challenge type is required"))
		return
	}
	if input.Target <= 0 {
		handler.RespondError(w, domain.ErrValidation("target must be positive"))
		return
	}

	now := time.Now().UTC()
	challenge := &domain.DailyChallenge{
		ID:            uuid.New(),
		UserID:        userID,
		ChallengeType: input.ChallengeType,
		Title:         input.Title,
		Target:        input.Target,
		Curriculum:    input.Curriculum,
		ExpiresAt:     now.Add(domain.ChallengeWindow),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.challenges.Create(r.Context(), h.pool, challenge); err != nil {
		handler.RespondError(w, domain.ErrInternal("create challenge", err))
		return
	}
	handler.RespondJSON(w, http.StatusCreated, challenge)
}
