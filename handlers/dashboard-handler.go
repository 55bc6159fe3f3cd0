package handlers

import (
	"net/http"

	"taskhub/backend/middleware"
	"taskhub/backend/services"
)

type DashboardHandler struct {
	QueryService *services.QueryService
}

func NewDashboardHandler(queryService *services.QueryService) *DashboardHandler {
	return &DashboardHandler{QueryService: queryService}
}

func (h *DashboardHandler) GetCounts(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	counts, err := h.QueryService.Counts(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
