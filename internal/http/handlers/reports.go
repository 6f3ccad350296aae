package handlers

import (
	"net/http"
	"time"

	"genfity-order-reports/internal/report"
	"genfity-order-reports/internal/services"
	"genfity-order-reports/pkg/response"

	"github.com/shopspring/decimal"
)

type reportWindowPayload struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Label    string    `json:"label"`
	Timezone string    `json:"timezone"`
}

type reportCurrencyPayload struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
}

type reportSummaryPayload struct {
	PartnerID         string                  `json:"partnerId"`
	PartnerName       string                  `json:"partnerName,omitempty"`
	Mode              report.Mode             `json:"mode"`
	Window            reportWindowPayload     `json:"window"`
	Currency          reportCurrencyPayload   `json:"currency"`
	Summary           report.Summary          `json:"summary"`
	TotalFormatted    string                  `json:"totalFormatted"`
	AverageOrderValue decimal.Decimal         `json:"averageOrderValue"`
	PaymentBreakdown  report.PaymentBreakdown `json:"paymentBreakdown"`
	DailySeries       []report.SeriesPoint    `json:"dailySeries"`
	WarningCount      int                     `json:"warningCount"`
	Warnings          []report.Warning        `json:"warnings,omitempty"`
	GeneratedAt       time.Time               `json:"generatedAt"`
}

type rankedPagePayload[T any] struct {
	Items       []T                 `json:"items"`
	TotalPages  int                 `json:"totalPages"`
	CurrentPage int                 `json:"currentPage"`
	PageSize    int                 `json:"pageSize"`
	PageNumbers []report.PageToken  `json:"pageNumbers"`
	Window      reportWindowPayload `json:"window"`
}

func windowPayload(rep *services.Report) reportWindowPayload {
	return reportWindowPayload{
		Start:    rep.Window.Start,
		End:      rep.Window.End,
		Label:    rep.Window.Label(),
		Timezone: rep.Timezone,
	}
}

func summaryPayload(rep *services.Report, withWarnings bool) reportSummaryPayload {
	out := reportSummaryPayload{
		PartnerID:         rep.PartnerID,
		PartnerName:       rep.PartnerName,
		Mode:              rep.Mode,
		Window:            windowPayload(rep),
		Currency:          reportCurrencyPayload{Code: rep.Currency.Code, Symbol: rep.Currency.Symbol},
		Summary:           rep.Result.Summary,
		TotalFormatted:    report.FormatCurrency(rep.Currency, rep.Result.Summary.TotalSum),
		AverageOrderValue: rep.Result.AverageOrderValue(),
		PaymentBreakdown:  rep.Result.PaymentBreakdown,
		DailySeries:       rep.Result.DailySeries,
		WarningCount:      len(rep.Result.Warnings),
		GeneratedAt:       rep.GeneratedAt,
	}
	if out.DailySeries == nil {
		out.DailySeries = []report.SeriesPoint{}
	}
	if withWarnings {
		out.Warnings = rep.Result.Warnings
	}
	return out
}

func rankedPage[T any](rep *services.Report, items []T, page int) rankedPagePayload[T] {
	p := report.Paginate(items, report.PageSize, page)
	return rankedPagePayload[T]{
		Items:       p.Items,
		TotalPages:  p.TotalPages,
		CurrentPage: p.CurrentPage,
		PageSize:    report.PageSize,
		PageNumbers: report.PageNumbers(p.TotalPages, p.CurrentPage),
		Window:      windowPayload(rep),
	}
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request, action string) (*services.Report, bool) {
	authCtx, ok := partnerFromContext(w, r)
	if !ok {
		return nil, false
	}
	req, err := reportRequest(r, authCtx.PartnerID)
	if err != nil {
		h.writeReportError(w, r, action, err)
		return nil, false
	}
	rep, err := h.Reports.Generate(r.Context(), req)
	if err != nil {
		h.writeReportError(w, r, action, err)
		return nil, false
	}
	return rep, true
}

func (h *Handler) ReportSummary(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.generate(w, r, "report summary")
	if !ok {
		return
	}
	response.Success(w, summaryPayload(rep, r.URL.Query().Get("includeWarnings") == "true"))
}

func (h *Handler) ReportTopItems(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.generate(w, r, "report top items")
	if !ok {
		return
	}
	page := parseIntWithDefault(r.URL.Query().Get("page"), 1)
	response.Success(w, rankedPage(rep, rep.Result.TopItems, page))
}

func (h *Handler) ReportCategories(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.generate(w, r, "report categories")
	if !ok {
		return
	}
	page := parseIntWithDefault(r.URL.Query().Get("page"), 1)
	sorted := report.SortCategoriesByQuantity(rep.Result.CategoryStats)
	response.Success(w, rankedPage(rep, sorted, page))
}
