package handler

import (
	"net/http"
	"sort"

	"github.com/constitutionhub/platform/internal/domain"
)

// AchievementHandler serves the immutable achievement catalog.
type AchievementHandler struct{}

// NewAchievementHandler creates a new AchievementHandler.
func NewAchievementHandler() *AchievementHandler {
	return &AchievementHandler{}
}

type catalogEntry struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Category    string        `json:"category"`
	Description string        `json:"description"`
	Rarity      domain.Rarity `json:"rarity"`
	RewardCoins int           `json:"reward_coins"`
	BadgeID     string        `json:"badge_id,omitempty"`
}

// ListCatalog handles GET /achievements — every achievement definition,
// ordered by id for a stable response.
func (h *AchievementHandler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	entries := make([]catalogEntry, 0, len(domain.AchievementCatalog))
	for _, def := range domain.AchievementCatalog {
		entries = append(entries, catalogEntry{
			ID:          def.ID,
			Title:       def.Title,
			Category:    def.Category,
			Description: def.Description,
			Rarity:      def.Rarity,
			RewardCoins: def.RewardCoins,
			BadgeID:     def.BadgeID,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	RespondJSON(w, http.StatusOK, entries)
}
