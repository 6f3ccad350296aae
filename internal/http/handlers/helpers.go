package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"genfity-order-reports/internal/middleware"
	"genfity-order-reports/internal/report"
	"genfity-order-reports/internal/services"
	"genfity-order-reports/pkg/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func zapError(err error) zap.Field {
	return zap.Error(err)
}

func readPathString(r *http.Request, key string) string {
	return strings.TrimSpace(chi.URLParam(r, key))
}

func parseIntWithDefault(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func partnerFromContext(w http.ResponseWriter, r *http.Request) (*middleware.AuthContext, bool) {
	authCtx, ok := middleware.GetAuthContext(r.Context())
	if !ok || strings.TrimSpace(authCtx.PartnerID) == "" {
		response.Error(w, http.StatusNotFound, "PARTNER_NOT_FOUND", "Partner context not found")
		return nil, false
	}
	return authCtx, true
}

// reportRequest reads mode, startDate and endDate. "period" is accepted as
// an alias of mode.
func reportRequest(r *http.Request, partnerID string) (services.Request, error) {
	q := r.URL.Query()
	mode := q.Get("mode")
	if strings.TrimSpace(mode) == "" {
		mode = q.Get("period")
	}
	return services.NewRequest(partnerID, mode, q.Get("startDate"), q.Get("endDate"))
}

// writeReportError maps report errors to their status and code. Anything
// else is logged and reported as INTERNAL_ERROR.
func (h *Handler) writeReportError(w http.ResponseWriter, r *http.Request, action string, err error) {
	var re *report.Error
	if errors.As(err, &re) {
		if re.StatusCode >= http.StatusInternalServerError {
			h.Logger.Error(action+" failed",
				zap.String("code", string(re.Code)),
				zap.String("requestId", middleware.RequestIDFrom(r.Context())),
				zapError(err),
			)
		}
		response.ErrorWithDetails(w, re.StatusCode, string(re.Code), re.Message, re.Details)
		return
	}
	h.Logger.Error(action+" failed", zap.String("requestId", middleware.RequestIDFrom(r.Context())), zapError(err))
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process report request")
}
