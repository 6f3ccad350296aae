package handlers

import (
	"net/http"

	"genfity-order-reports/internal/middleware"
	"genfity-order-reports/pkg/response"
)

func (h *Handler) HealthLatency(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]any{
		"routes": middleware.LatencySummary(),
	})
}
