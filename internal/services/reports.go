package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"genfity-order-reports/internal/export"
	"genfity-order-reports/internal/queue"
	"genfity-order-reports/internal/report"
	"genfity-order-reports/internal/source"
	"genfity-order-reports/internal/storage"
	"genfity-order-reports/internal/utils"

	"go.uber.org/zap"
)

// Archive is the object store side of exports.
type Archive interface {
	PutReport(ctx context.Context, key string, body []byte, contentType string, filename string) (string, error)
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Notifier pushes report events to connected dashboards.
type Notifier interface {
	ReportRefresh(partnerID string, reason string)
	ExportCompleted(evt queue.ExportCompletedEvent)
}

type Options struct {
	DefaultCurrency    report.Currency
	DefaultTimezone    string
	CacheTTL           time.Duration
	TrustPreAggregates bool
	DownloadURLTTL     time.Duration
	Now                func() time.Time
}

type ReportService struct {
	Source   source.OrderSource
	Logger   *zap.Logger
	Cache    *ReportCache
	Archive  Archive
	Notifier Notifier
	Jobs     JobQueue

	opts Options
}

func NewReportService(src source.OrderSource, logger *zap.Logger, opts Options) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultCurrency.Code == "" {
		opts.DefaultCurrency = report.Currency{Code: "INR", Symbol: "₹"}
	}
	if opts.DownloadURLTTL <= 0 {
		opts.DownloadURLTTL = 15 * time.Minute
	}
	return &ReportService{
		Source: src,
		Logger: logger,
		Cache:  NewReportCache(opts.CacheTTL),
		opts:   opts,
	}
}

// Request selects the partner and window of one report.
type Request struct {
	PartnerID string
	Mode      report.Mode
	Custom    *report.DateRange
}

// NewRequest parses the raw query values shared by the HTTP API, export jobs
// and the CLI. Dates are read as calendar days.
func NewRequest(partnerID, mode, startDate, endDate string) (Request, error) {
	parsedMode, err := report.ParseMode(mode)
	if err != nil {
		return Request{}, err
	}
	req := Request{PartnerID: strings.TrimSpace(partnerID), Mode: parsedMode}
	if parsedMode != report.ModeCustom {
		return req, nil
	}
	start, err := report.ParseDate(startDate, time.UTC)
	if err != nil {
		return Request{}, err
	}
	end, err := report.ParseDate(endDate, time.UTC)
	if err != nil {
		return Request{}, err
	}
	// Blank dates leave the range unset; resolving reports CUSTOM_RANGE_REQUIRED.
	if start.IsZero() && end.IsZero() {
		return req, nil
	}
	req.Custom = &report.DateRange{Start: start, End: end}
	return req, nil
}

// Report is one aggregation run plus everything needed to render it.
type Report struct {
	PartnerID   string
	PartnerName string
	Mode        report.Mode
	Window      report.TimeWindow
	Currency    report.Currency
	Timezone    string
	Result      report.Result
	Orders      []report.Order
	GeneratedAt time.Time
}

func (r *Report) Document() report.Document {
	return report.Build(r.Result, r.Orders, r.Window, r.Currency)
}

var currencySymbols = map[string]string{
	"INR": "₹",
	"IDR": "Rp",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"SGD": "S$",
	"MYR": "RM",
}

func (s *ReportService) currencyFor(settings source.PartnerSettings) report.Currency {
	code := strings.ToUpper(strings.TrimSpace(settings.CurrencyCode))
	if code == "" {
		return s.opts.DefaultCurrency
	}
	symbol := strings.TrimSpace(settings.CurrencySymbol)
	if symbol == "" {
		if code == s.opts.DefaultCurrency.Code {
			symbol = s.opts.DefaultCurrency.Symbol
		} else {
			symbol = currencySymbols[code]
		}
	}
	return report.Currency{Code: code, Symbol: symbol}
}

type reportContext struct {
	settings source.PartnerSettings
	currency report.Currency
	location string
	window   report.TimeWindow
}

func (s *ReportService) resolve(ctx context.Context, req Request) (reportContext, error) {
	settings, err := s.Source.FetchPartnerSettings(ctx, req.PartnerID)
	if err != nil {
		return reportContext{}, report.DataFetchError(err)
	}
	loc := utils.ResolveLocation(settings.Timezone, s.opts.DefaultTimezone)
	window, err := report.ResolveWindow(req.Mode, s.opts.Now(), loc, req.Custom)
	if err != nil {
		return reportContext{}, err
	}
	return reportContext{settings: settings, currency: s.currencyFor(settings), location: loc.String(), window: window}, nil
}

// Generate fetches the window's orders and aggregates them. A source failure
// yields DATA_FETCH_FAILED and no partial report.
func (s *ReportService) Generate(ctx context.Context, req Request) (*Report, error) {
	rc, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	key := cacheKey("report", req.PartnerID, string(req.Mode),
		rc.window.Start.Format(time.RFC3339), rc.window.End.Format(time.RFC3339))
	if cached, ok := s.Cache.Get(key); ok {
		if rep, ok := cached.(*Report); ok {
			return rep, nil
		}
	}

	snapshot, err := s.Source.FetchOrders(ctx, req.PartnerID, rc.window, source.FetchOptions{PreAggregate: s.opts.TrustPreAggregates})
	if err != nil {
		s.Logger.Error("report orders fetch failed", zap.String("partnerId", req.PartnerID), zap.Error(err))
		return nil, report.DataFetchError(err)
	}

	rep := s.aggregate(req, rc, snapshot)
	s.Cache.Set(key, rep)
	return rep, nil
}

// Preview aggregates a caller supplied snapshot with the partner's settings.
// Nothing is cached.
func (s *ReportService) Preview(ctx context.Context, req Request, snapshot source.Snapshot) (*Report, error) {
	rc, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.aggregate(req, rc, snapshot), nil
}

func (s *ReportService) aggregate(req Request, rc reportContext, snapshot source.Snapshot) *Report {
	var opts []report.Option
	if s.opts.TrustPreAggregates && snapshot.Pre != nil {
		opts = append(opts, report.WithPreAggregate(snapshot.Pre))
	}
	result := report.Aggregate(snapshot.Orders, rc.window, opts...)
	s.logWarnings(req.PartnerID, result.Warnings)

	return &Report{
		PartnerID:   req.PartnerID,
		PartnerName: rc.settings.Name,
		Mode:        req.Mode,
		Window:      rc.window,
		Currency:    rc.currency,
		Timezone:    rc.location,
		Result:      result,
		Orders:      snapshot.Orders,
		GeneratedAt: s.opts.Now(),
	}
}

func (s *ReportService) logWarnings(partnerID string, warnings []report.Warning) {
	for _, w := range warnings {
		s.Logger.Warn("malformed order record skipped",
			zap.String("partnerId", partnerID),
			zap.String("orderId", w.OrderID),
			zap.Int("itemIndex", w.ItemIndex),
			zap.String("reason", string(w.Reason)),
		)
	}
}

// Export renders the report into a downloadable file.
func (s *ReportService) Export(ctx context.Context, req Request, format export.Format) (export.Artifact, *Report, error) {
	rep, err := s.Generate(ctx, req)
	if err != nil {
		return export.Artifact{}, nil, err
	}
	artifact, err := export.Render(rep.Document(), format, s.opts.Now().In(rep.Window.Location()))
	if err != nil {
		s.Logger.Error("report export failed", zap.String("partnerId", req.PartnerID), zap.String("format", string(format)), zap.Error(err))
		return export.Artifact{}, nil, err
	}
	return artifact, rep, nil
}

type StoredExport struct {
	Key         string    `json:"key"`
	Filename    string    `json:"filename"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

var errArchiveDisabled = errors.New("object store is not configured")

// ExportAndStore renders and archives the report, returning a presigned link.
func (s *ReportService) ExportAndStore(ctx context.Context, req Request, format export.Format) (StoredExport, error) {
	if s.Archive == nil {
		return StoredExport{}, report.ExportError(errArchiveDisabled)
	}
	artifact, _, err := s.Export(ctx, req, format)
	if err != nil {
		return StoredExport{}, err
	}

	key := storage.ReportKey(req.PartnerID, artifact.Filename, s.opts.Now())
	if _, err := s.Archive.PutReport(ctx, key, artifact.Body, artifact.ContentType, artifact.Filename); err != nil {
		return StoredExport{}, report.ExportError(err)
	}
	url, err := s.Archive.PresignGet(ctx, key, s.opts.DownloadURLTTL)
	if err != nil {
		return StoredExport{}, report.ExportError(err)
	}
	return StoredExport{
		Key:         key,
		Filename:    artifact.Filename,
		DownloadURL: url,
		ExpiresAt:   s.opts.Now().Add(s.opts.DownloadURLTTL),
	}, nil
}

// AssignPaymentMethod moves an unset order to cash/upi/card, persists it
// with a conditional update and drops the partner's cached reports.
func (s *ReportService) AssignPaymentMethod(ctx context.Context, partnerID string, orderID string, method report.PaymentMethod) (report.Order, error) {
	order, err := s.Source.FetchOrder(ctx, partnerID, orderID)
	if err != nil {
		if errors.Is(err, source.ErrOrderNotFound) {
			return report.Order{}, report.NotFoundError(report.ErrOrderNotFound, "Order not found")
		}
		return report.Order{}, report.DataFetchError(err)
	}

	updated, err := report.AssignPaymentMethod(order, method)
	if err != nil {
		return report.Order{}, err
	}

	ok, err := s.Source.SetPaymentMethod(ctx, partnerID, orderID, updated.PaymentMethod)
	if err != nil {
		if errors.Is(err, source.ErrOrderNotFound) {
			return report.Order{}, report.NotFoundError(report.ErrOrderNotFound, "Order not found")
		}
		return report.Order{}, report.DataFetchError(err)
	}
	if !ok {
		// Another writer set it between the read and the update.
		return report.Order{}, report.ConflictError(report.ErrPaymentMethodAlreadySet, "Payment method is already set for this order", map[string]any{
			"orderId": orderID,
		})
	}

	s.InvalidatePartner(partnerID, "payment_method_updated")
	return updated, nil
}

// InvalidatePartner drops cached reports and tells dashboards to refetch.
func (s *ReportService) InvalidatePartner(partnerID string, reason string) {
	removed := s.Cache.InvalidatePartner(partnerID)
	s.Logger.Debug("report cache invalidated", zap.String("partnerId", partnerID), zap.String("reason", reason), zap.Int("entries", removed))
	if s.Notifier != nil {
		s.Notifier.ReportRefresh(partnerID, reason)
	}
}
