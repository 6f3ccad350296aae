package handlers

import (
	"encoding/json"
	"net/http"
	"path"
	"strings"

	"genfity-order-reports/internal/export"
	"genfity-order-reports/internal/services"
	"genfity-order-reports/pkg/response"

	"go.uber.org/zap"
)

func (h *Handler) ReportExport(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := partnerFromContext(w, r)
	if !ok {
		return
	}
	req, err := reportRequest(r, authCtx.PartnerID)
	if err != nil {
		h.writeReportError(w, r, "report export", err)
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeReportError(w, r, "report export", err)
		return
	}

	artifact, _, err := h.Reports.Export(r.Context(), req, format)
	if err != nil {
		h.writeReportError(w, r, "report export", err)
		return
	}
	response.Attachment(w, artifact.Filename, artifact.ContentType, artifact.Body)
}

type exportJobRequest struct {
	Mode      string `json:"mode"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Format    string `json:"format"`
}

func (h *Handler) ReportExportJobCreate(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := partnerFromContext(w, r)
	if !ok {
		return
	}

	var body exportJobRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	req, err := services.NewRequest(authCtx.PartnerID, body.Mode, body.StartDate, body.EndDate)
	if err != nil {
		h.writeReportError(w, r, "report export job", err)
		return
	}
	format, err := export.ParseFormat(body.Format)
	if err != nil {
		h.writeReportError(w, r, "report export job", err)
		return
	}

	job, err := h.Reports.EnqueueExport(r.Context(), req, format, authCtx.UserID)
	if err != nil {
		h.writeReportError(w, r, "report export job", err)
		return
	}
	response.Accepted(w, map[string]any{
		"jobId":       job.JobID,
		"format":      job.Format,
		"requestedAt": job.RequestedAt,
	})
}

type archivedReport struct {
	Key         string `json:"key"`
	Filename    string `json:"filename"`
	DownloadURL string `json:"downloadUrl"`
}

func (h *Handler) ReportExportList(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := partnerFromContext(w, r)
	if !ok {
		return
	}
	if h.Exports == nil {
		response.Error(w, http.StatusServiceUnavailable, "EXPORT_STORE_DISABLED", "Report archive is not configured")
		return
	}

	ctx := r.Context()
	keys, err := h.Exports.ListReports(ctx, authCtx.PartnerID)
	if err != nil {
		h.Logger.Error("report archive list failed", zap.String("partnerId", authCtx.PartnerID), zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list exported reports")
		return
	}

	items := make([]archivedReport, 0, len(keys))
	for _, key := range keys {
		url, err := h.Exports.PresignGet(ctx, key, h.Config.ReportDownloadURLTTL)
		if err != nil {
			h.Logger.Warn("report archive presign failed", zap.String("key", key), zapError(err))
			continue
		}
		items = append(items, archivedReport{
			Key:         key,
			Filename:    path.Base(strings.TrimSpace(key)),
			DownloadURL: url,
		})
	}
	response.Success(w, items)
}
