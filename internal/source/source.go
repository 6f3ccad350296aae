package source

import (
	"context"
	"errors"

	"genfity-order-reports/internal/report"
)

var ErrOrderNotFound = errors.New("order not found")

// Snapshot is the order set for one window plus whatever totals the source
// computed on its side.
type Snapshot struct {
	Orders []report.Order
	Pre    *report.PreAggregate
}

type PartnerSettings struct {
	PartnerID      string
	Name           string
	CurrencyCode   string
	CurrencySymbol string
	Timezone       string
}

// FetchOptions tune a single fetch.
type FetchOptions struct {
	// PreAggregate asks the source for its own count/sum totals.
	PreAggregate bool
}

type OrderSource interface {
	FetchOrders(ctx context.Context, partnerID string, window report.TimeWindow, opts FetchOptions) (Snapshot, error)
	FetchPartnerSettings(ctx context.Context, partnerID string) (PartnerSettings, error)
	FetchOrder(ctx context.Context, partnerID string, orderID string) (report.Order, error)
	// SetPaymentMethod stores method only while the stored method is still
	// unset. It returns false when the row was not updated.
	SetPaymentMethod(ctx context.Context, partnerID string, orderID string, method report.PaymentMethod) (bool, error)
}
