package handlers

import (
	"net/http"

	"genfity-order-reports/internal/report"
	"genfity-order-reports/internal/source"
	"genfity-order-reports/pkg/response"
)

const maxPreviewBody = 8 << 20

type previewPayload struct {
	reportSummaryPayload
	TopItems      []report.ItemStat     `json:"topItems"`
	CategoryStats []report.CategoryStat `json:"categoryStats"`
}

// ReportPreview aggregates an order payload posted by the caller instead of
// the stored orders. The window still comes from the query string.
func (h *Handler) ReportPreview(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := partnerFromContext(w, r)
	if !ok {
		return
	}
	req, err := reportRequest(r, authCtx.PartnerID)
	if err != nil {
		h.writeReportError(w, r, "report preview", err)
		return
	}

	snapshot, err := source.Decode(http.MaxBytesReader(w, r.Body, maxPreviewBody))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid order payload")
		return
	}

	rep, err := h.Reports.Preview(r.Context(), req, snapshot)
	if err != nil {
		h.writeReportError(w, r, "report preview", err)
		return
	}

	out := previewPayload{
		reportSummaryPayload: summaryPayload(rep, true),
		TopItems:             rep.Result.TopItems,
		CategoryStats:        rep.Result.CategoryStats,
	}
	if out.TopItems == nil {
		out.TopItems = []report.ItemStat{}
	}
	if out.CategoryStats == nil {
		out.CategoryStats = []report.CategoryStat{}
	}
	response.Success(w, out)
}
