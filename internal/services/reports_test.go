package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"genfity-order-reports/internal/export"
	"genfity-order-reports/internal/queue"
	"genfity-order-reports/internal/report"
	"genfity-order-reports/internal/source"

	"github.com/shopspring/decimal"
)

var testLocation = time.FixedZone("IST", 5*3600+1800)

func testNow() time.Time {
	return time.Date(2026, 10, 18, 14, 30, 0, 0, testLocation)
}

func testOrder(id string, at time.Time, total string, method report.PaymentMethod) report.Order {
	return report.Order{
		ID:            id,
		DisplayID:     "#" + id,
		CreatedAt:     at,
		TotalPrice:    decimal.NewNullDecimal(decimal.RequireFromString(total)),
		Status:        report.StatusCompleted,
		Type:          report.OrderTypeTakeaway,
		PaymentMethod: method,
		PartnerID:     "p1",
		Items: []report.OrderItem{{
			ID:       id + "a",
			Quantity: 1,
			Menu:     &report.MenuItem{Name: "Masala Dosa", Category: "Breakfast", Price: decimal.RequireFromString(total)},
		}},
	}
}

func testSnapshot() source.Snapshot {
	base := testNow()
	return source.Snapshot{Orders: []report.Order{
		testOrder("1", base.Add(-3*time.Hour), "100", report.PaymentCash),
		testOrder("2", base.Add(-2*time.Hour), "200", report.PaymentUPI),
		testOrder("3", base.Add(-1*time.Hour), "300", report.PaymentUnset),
		testOrder("4", base.AddDate(0, 0, -3), "400", report.PaymentCard),
	}}
}

func newTestService(src source.OrderSource) *ReportService {
	return NewReportService(src, nil, Options{
		DefaultCurrency:    report.Currency{Code: "INR", Symbol: "₹"},
		DefaultTimezone:    "Asia/Kolkata",
		CacheTTL:           time.Minute,
		TrustPreAggregates: true,
		Now:                testNow,
	})
}

type recordingNotifier struct {
	mu       sync.Mutex
	refresh  []string
	complete []queue.ExportCompletedEvent
}

func (n *recordingNotifier) ReportRefresh(partnerID string, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.refresh = append(n.refresh, partnerID+":"+reason)
}

func (n *recordingNotifier) ExportCompleted(evt queue.ExportCompletedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.complete = append(n.complete, evt)
}

type memoryArchive struct {
	objects map[string][]byte
	failPut bool
}

func (a *memoryArchive) PutReport(_ context.Context, key string, body []byte, _ string, _ string) (string, error) {
	if a.failPut {
		return "", errors.New("bucket unavailable")
	}
	if a.objects == nil {
		a.objects = map[string][]byte{}
	}
	a.objects[key] = body
	return "https://cdn.example.test/" + key, nil
}

func (a *memoryArchive) PresignGet(_ context.Context, key string, expires time.Duration) (string, error) {
	return "https://signed.example.test/" + key + "?ttl=" + expires.String(), nil
}

type recordingJobs struct {
	enqueued  []queue.ExportJob
	completed []queue.ExportCompletedEvent
}

func (j *recordingJobs) Enqueue(_ context.Context, job queue.ExportJob) error {
	j.enqueued = append(j.enqueued, job)
	return nil
}

func (j *recordingJobs) Completed(_ context.Context, evt queue.ExportCompletedEvent) error {
	j.completed = append(j.completed, evt)
	return nil
}

type failingSource struct {
	source.OrderSource
	err error
}

func (f failingSource) FetchOrders(context.Context, string, report.TimeWindow, source.FetchOptions) (source.Snapshot, error) {
	return source.Snapshot{}, f.err
}

type countingSource struct {
	*source.Memory
	fetches int
}

func (c *countingSource) FetchOrders(ctx context.Context, partnerID string, window report.TimeWindow, opts source.FetchOptions) (source.Snapshot, error) {
	c.fetches++
	return c.Memory.FetchOrders(ctx, partnerID, window, opts)
}

func TestGenerateTodayReport(t *testing.T) {
	svc := newTestService(source.NewMemory(testSnapshot(), source.PartnerSettings{Name: "Dosa Corner", Timezone: "Asia/Kolkata"}))

	rep, err := svc.Generate(context.Background(), Request{PartnerID: "p1", Mode: report.ModeToday})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if rep.Result.Summary.TotalCount != 3 {
		t.Fatalf("expected 3 orders today, got %d", rep.Result.Summary.TotalCount)
	}
	if !rep.Result.Summary.TotalSum.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("expected total 600, got %s", rep.Result.Summary.TotalSum)
	}
	if rep.Currency.Symbol != "₹" || rep.Currency.Code != "INR" {
		t.Fatalf("expected default currency, got %+v", rep.Currency)
	}
	if rep.PartnerName != "Dosa Corner" {
		t.Fatalf("expected partner name, got %q", rep.PartnerName)
	}
	unset := rep.Result.PaymentBreakdown.Bucket(report.PaymentUnset)
	if unset.Count != 1 || !unset.Sum.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected one unset order of 300, got %+v", unset)
	}
}

func TestGenerateUsesPartnerCurrency(t *testing.T) {
	svc := newTestService(source.NewMemory(testSnapshot(), source.PartnerSettings{CurrencyCode: "idr"}))

	rep, err := svc.Generate(context.Background(), Request{PartnerID: "p1", Mode: report.ModeMonth})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if rep.Currency.Code != "IDR" || rep.Currency.Symbol != "Rp" {
		t.Fatalf("expected IDR/Rp, got %+v", rep.Currency)
	}
	if rep.Result.Summary.TotalCount != 4 {
		t.Fatalf("expected 4 orders this month, got %d", rep.Result.Summary.TotalCount)
	}
}

func TestGenerateSourceFailure(t *testing.T) {
	src := failingSource{OrderSource: source.NewMemory(source.Snapshot{}, source.PartnerSettings{}), err: errors.New("connection reset")}
	svc := newTestService(src)

	rep, err := svc.Generate(context.Background(), Request{PartnerID: "p1", Mode: report.ModeToday})
	if rep != nil {
		t.Fatalf("expected no partial report, got %+v", rep)
	}
	if !report.IsCode(err, report.ErrDataFetch) {
		t.Fatalf("expected %s, got %v", report.ErrDataFetch, err)
	}
}

func TestGenerateRejectsInvalidRange(t *testing.T) {
	svc := newTestService(source.NewMemory(testSnapshot(), source.PartnerSettings{}))

	req, err := NewRequest("p1", "custom", "2026-10-10", "2026-10-01")
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if _, err := svc.Generate(context.Background(), req); !report.IsCode(err, report.ErrInvalidRange) {
		t.Fatalf("expected %s, got %v", report.ErrInvalidRange, err)
	}
}

func TestNewRequest(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		start   string
		end     string
		want    report.Mode
		custom  bool
		errCode report.ErrorCode
	}{
		{name: "empty mode is today", mode: "", want: report.ModeToday},
		{name: "month", mode: "Month", want: report.ModeMonth},
		{name: "custom", mode: "custom", start: "2026-10-01", end: "2026-10-05", want: report.ModeCustom, custom: true},
		{name: "custom without dates", mode: "custom", want: report.ModeCustom},
		{name: "unknown mode", mode: "week", errCode: report.ErrInvalidPeriod},
		{name: "bad date", mode: "custom", start: "01/10/2026", end: "2026-10-05", errCode: report.ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewRequest(" p1 ", tt.mode, tt.start, tt.end)
			if tt.errCode != "" {
				if !report.IsCode(err, tt.errCode) {
					t.Fatalf("expected %s, got %v", tt.errCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.PartnerID != "p1" {
				t.Fatalf("expected trimmed partner id, got %q", req.PartnerID)
			}
			if req.Mode != tt.want {
				t.Fatalf("expected mode %s, got %s", tt.want, req.Mode)
			}
			if (req.Custom != nil) != tt.custom {
				t.Fatalf("expected custom range %v, got %+v", tt.custom, req.Custom)
			}
		})
	}
}

func TestGenerateCustomWithoutDates(t *testing.T) {
	svc := newTestService(source.NewMemory(testSnapshot(), source.PartnerSettings{}))

	req, err := NewRequest("p1", "custom", "", "")
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if _, err := svc.Generate(context.Background(), req); !report.IsCode(err, report.ErrCustomRangeRequired) {
		t.Fatalf("expected %s, got %v", report.ErrCustomRangeRequired, err)
	}
}

func TestGenerateCachesUntilInvalidated(t *testing.T) {
	src := &countingSource{Memory: source.NewMemory(testSnapshot(), source.PartnerSettings{})}
	svc := newTestService(src)
	notifier := &recordingNotifier{}
	svc.Notifier = notifier
	req := Request{PartnerID: "p1", Mode: report.ModeToday}

	for i := 0; i < 2; i++ {
		if _, err := svc.Generate(context.Background(), req); err != nil {
			t.Fatalf("generate: %v", err)
		}
	}
	if src.fetches != 1 {
		t.Fatalf("expected 1 fetch, got %d", src.fetches)
	}

	svc.InvalidatePartner("p1", "order.created")
	if _, err := svc.Generate(context.Background(), req); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if src.fetches != 2 {
		t.Fatalf("expected refetch after invalidation, got %d fetches", src.fetches)
	}
	if len(notifier.refresh) != 1 || notifier.refresh[0] != "p1:order.created" {
		t.Fatalf("unexpected refresh notifications %v", notifier.refresh)
	}
}

func TestAssignPaymentMethodMovesBucket(t *testing.T) {
	svc := newTestService(source.NewMemory(testSnapshot(), source.PartnerSettings{}))
	notifier := &recordingNotifier{}
	svc.Notifier = notifier
	req := Request{PartnerID: "p1", Mode: report.ModeToday}

	before, err := svc.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	updated, err := svc.AssignPaymentMethod(context.Background(), "p1", "3", report.PaymentCard)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if updated.PaymentMethod != report.PaymentCard {
		t.Fatalf("expected card, got %q", updated.PaymentMethod)
	}

	after, err := svc.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if after == before {
		t.Fatalf("expected cached report to be dropped")
	}
	if got := after.Result.PaymentBreakdown.Bucket(report.PaymentUnset); got.Count != 0 || !got.Sum.IsZero() {
		t.Fatalf("expected empty unset bucket, got %+v", got)
	}
	if got := after.Result.PaymentBreakdown.Bucket(report.PaymentCard); got.Count != 1 || !got.Sum.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected card bucket of 300, got %+v", got)
	}
	if !after.Result.Summary.TotalSum.Equal(before.Result.Summary.TotalSum) {
		t.Fatalf("expected unchanged total, got %s vs %s", after.Result.Summary.TotalSum, before.Result.Summary.TotalSum)
	}
	if len(notifier.refresh) != 1 {
		t.Fatalf("expected one refresh notification, got %v", notifier.refresh)
	}
}

func TestAssignPaymentMethodErrors(t *testing.T) {
	svc := newTestService(source.NewMemory(testSnapshot(), source.PartnerSettings{}))

	tests := []struct {
		name    string
		orderID string
		method  report.PaymentMethod
		code    report.ErrorCode
	}{
		{name: "already set", orderID: "1", method: report.PaymentUPI, code: report.ErrPaymentMethodAlreadySet},
		{name: "invalid method", orderID: "3", method: "wallet", code: report.ErrInvalidPaymentMethod},
		{name: "clearing is not a transition", orderID: "3", method: report.PaymentUnset, code: report.ErrInvalidPaymentMethod},
		{name: "unknown order", orderID: "99", method: report.PaymentCash, code: report.ErrOrderNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AssignPaymentMethod(context.Background(), "p1", tt.orderID, tt.method)
			if !report.IsCode(err, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestExportRendersWorkbook(t *testing.T) {
	svc := newTestService(source.NewMemory(testSnapshot(), source.PartnerSettings{}))

	artifact, rep, err := svc.Export(context.Background(), Request{PartnerID: "p1", Mode: report.ModeToday}, export.FormatXLSX)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if rep.Result.Summary.TotalCount != 3 {
		t.Fatalf("expected 3 orders, got %d", rep.Result.Summary.TotalCount)
	}
	if artifact.Filename != "Order_Report_20261018_143000.xlsx" {
		t.Fatalf("unexpected filename %q", artifact.Filename)
	}
	if len(artifact.Body) == 0 {
		t.Fatalf("expected workbook bytes")
	}
}

func TestExportAndStoreRequiresArchive(t *testing.T) {
	svc := newTestService(source.NewMemory(testSnapshot(), source.PartnerSettings{}))

	_, err := svc.ExportAndStore(context.Background(), Request{PartnerID: "p1", Mode: report.ModeToday}, export.FormatPDF)
	if !report.IsCode(err, report.ErrExportFailure) {
		t.Fatalf("expected %s, got %v", report.ErrExportFailure, err)
	}
}

func TestProcessExportJob(t *testing.T) {
	svc := newTestService(source.NewMemory(testSnapshot(), source.PartnerSettings{}))
	archive := &memoryArchive{}
	jobs := &recordingJobs{}
	notifier := &recordingNotifier{}
	svc.Archive = archive
	svc.Jobs = jobs
	svc.Notifier = notifier

	job, err := svc.EnqueueExport(context.Background(), Request{PartnerID: "p1", Mode: report.ModeToday}, export.FormatPDF, "user-1")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(jobs.enqueued) != 1 || jobs.enqueued[0].JobID != job.JobID {
		t.Fatalf("expected job to be enqueued, got %+v", jobs.enqueued)
	}

	body, _ := json.Marshal(job)
	if err := svc.ProcessExportJob(context.Background(), body); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(archive.objects) != 1 {
		t.Fatalf("expected one stored report, got %d", len(archive.objects))
	}
	if len(jobs.completed) != 1 {
		t.Fatalf("expected completion event, got %d", len(jobs.completed))
	}
	evt := jobs.completed[0]
	if evt.Error != "" || !strings.HasPrefix(evt.DownloadURL, "https://signed.example.test/reports/") {
		t.Fatalf("unexpected completion %+v", evt)
	}
	if !strings.HasSuffix(evt.Filename, ".pdf") {
		t.Fatalf("expected pdf filename, got %q", evt.Filename)
	}
	if len(notifier.complete) != 1 {
		t.Fatalf("expected export notification, got %d", len(notifier.complete))
	}
}

func TestProcessExportJobFailures(t *testing.T) {
	t.Run("invalid range is permanent", func(t *testing.T) {
		svc := newTestService(source.NewMemory(testSnapshot(), source.PartnerSettings{}))
		jobs := &recordingJobs{}
		svc.Archive = &memoryArchive{}
		svc.Jobs = jobs

		body, _ := json.Marshal(queue.ExportJob{JobID: "j1", PartnerID: "p1", Mode: "custom", StartDate: "2026-10-09", EndDate: "2026-10-01", Format: "xlsx"})
		err := svc.ProcessExportJob(context.Background(), body)
		var permanent *queue.PermanentError
		if !errors.As(err, &permanent) {
			t.Fatalf("expected permanent error, got %v", err)
		}
		if len(jobs.completed) != 1 || jobs.completed[0].Error == "" {
			t.Fatalf("expected failed completion event, got %+v", jobs.completed)
		}
	})

	t.Run("store failure is retried", func(t *testing.T) {
		svc := newTestService(source.NewMemory(testSnapshot(), source.PartnerSettings{}))
		jobs := &recordingJobs{}
		svc.Archive = &memoryArchive{failPut: true}
		svc.Jobs = jobs

		body, _ := json.Marshal(queue.ExportJob{JobID: "j2", PartnerID: "p1", Mode: "today", Format: "pdf"})
		err := svc.ProcessExportJob(context.Background(), body)
		if err == nil {
			t.Fatalf("expected error")
		}
		var permanent *queue.PermanentError
		if errors.As(err, &permanent) {
			t.Fatalf("expected retryable error, got permanent %v", err)
		}
		if len(jobs.completed) != 0 {
			t.Fatalf("expected no completion while retrying, got %+v", jobs.completed)
		}
	})
}

func TestHandleOrderEvent(t *testing.T) {
	svc := newTestService(source.NewMemory(testSnapshot(), source.PartnerSettings{}))
	notifier := &recordingNotifier{}
	svc.Notifier = notifier

	if err := svc.HandleOrderEvent(context.Background(), []byte(`{"type":"order.status.updated","orderId":"3","merchantId":42}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := svc.HandleOrderEvent(context.Background(), []byte(`{"type":"voucher.redeemed","partnerId":"p1"}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(notifier.refresh) != 1 || notifier.refresh[0] != "42:order.status.updated" {
		t.Fatalf("unexpected refresh notifications %v", notifier.refresh)
	}
}

func TestReportCacheInvalidatePartner(t *testing.T) {
	cache := NewReportCache(time.Minute)
	cache.Set(cacheKey("report", "p1", "today"), 1)
	cache.Set(cacheKey("report", "p1", "month"), 2)
	cache.Set(cacheKey("report", "p10", "today"), 3)

	if removed := cache.InvalidatePartner("p1"); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if _, ok := cache.Get(cacheKey("report", "p10", "today")); !ok {
		t.Fatalf("expected other partner entry to survive")
	}
}

func TestReportCacheExpires(t *testing.T) {
	now := testNow()
	cache := NewReportCache(time.Minute)
	cache.now = func() time.Time { return now }
	cache.Set("k", "v")

	now = now.Add(2 * time.Minute)
	if _, ok := cache.Get("k"); ok {
		t.Fatalf("expected entry to expire")
	}
	if cache.Len() != 0 {
		t.Fatalf("expected expired entry to be removed")
	}
}
