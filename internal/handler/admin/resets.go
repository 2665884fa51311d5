package admin

import (
	"net/http"
	"time"

	"github.com/constitutionhub/platform/internal/handler"
	"github.com/constitutionhub/platform/internal/infra"
	"github.com/constitutionhub/platform/internal/reset"
)

// ResetAdminHandler triggers daily resets outside the scheduled cycle.
type ResetAdminHandler struct {
	resets *reset.Service
}

// NewResetAdminHandler creates a new ResetAdminHandler.
func NewResetAdminHandler(resets *reset.Service) *ResetAdminHandler {
	return &ResetAdminHandler{resets: resets}
}

// RunReset handles POST /admin/reset/run. A run already in flight comes
// back with already_in_flight set rather than an error.
func (h *ResetAdminHandler) RunReset(w http.ResponseWriter, r *http.Request) {
	today := infra.UTCDateString(time.Now().UTC())
	report, err := h.resets.Run(r.Context(), today)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, report)
}
