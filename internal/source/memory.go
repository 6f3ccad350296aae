package source

import (
	"context"
	"sync"

	"genfity-order-reports/internal/report"
)

// Memory serves a fixed snapshot, e.g. a decoded payload file. Payment
// updates are applied in place.
type Memory struct {
	mu       sync.RWMutex
	snapshot Snapshot
	settings PartnerSettings
}

func NewMemory(snapshot Snapshot, settings PartnerSettings) *Memory {
	orders := make([]report.Order, len(snapshot.Orders))
	copy(orders, snapshot.Orders)
	snapshot.Orders = orders
	return &Memory{snapshot: snapshot, settings: settings}
}

func (m *Memory) FetchOrders(_ context.Context, partnerID string, window report.TimeWindow, opts FetchOptions) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	orders := make([]report.Order, 0, len(m.snapshot.Orders))
	for _, order := range m.snapshot.Orders {
		if !m.owns(order, partnerID) || !window.Contains(order.CreatedAt) {
			continue
		}
		orders = append(orders, order)
	}
	out := Snapshot{Orders: orders}
	if opts.PreAggregate {
		out.Pre = m.snapshot.Pre
	}
	return out, nil
}

func (m *Memory) FetchPartnerSettings(_ context.Context, partnerID string) (PartnerSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	settings := m.settings
	if settings.PartnerID == "" {
		settings.PartnerID = partnerID
	}
	return settings, nil
}

func (m *Memory) FetchOrder(_ context.Context, partnerID string, orderID string) (report.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, order := range m.snapshot.Orders {
		if order.ID == orderID && m.owns(order, partnerID) {
			return order, nil
		}
	}
	return report.Order{}, ErrOrderNotFound
}

func (m *Memory) SetPaymentMethod(_ context.Context, partnerID string, orderID string, method report.PaymentMethod) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, order := range m.snapshot.Orders {
		if order.ID != orderID || !m.owns(order, partnerID) {
			continue
		}
		if current, _ := report.ParsePaymentMethod(string(order.PaymentMethod)); current != report.PaymentUnset {
			return false, nil
		}
		m.snapshot.Orders[i].PaymentMethod = method
		// Upstream totals no longer describe the order set.
		m.snapshot.Pre = nil
		return true, nil
	}
	return false, ErrOrderNotFound
}

// Orders without a partner id belong to every partner.
func (m *Memory) owns(order report.Order, partnerID string) bool {
	return order.PartnerID == "" || partnerID == "" || order.PartnerID == partnerID
}
