package report

import "github.com/shopspring/decimal"

// AggregateTotals is a count/sum pair computed upstream.
type AggregateTotals struct {
	Count int
	Sum   decimal.Decimal
}

// PreAggregate carries totals a source already computed for the same window.
// Nil fields are recomputed from the orders.
type PreAggregate struct {
	Total    *AggregateTotals
	Payments map[PaymentMethod]AggregateTotals
}

// apply overlays trusted totals on the recomputed result. The payment buckets
// always partition the summary: when the trusted values cannot be reconciled
// into such a partition, the recomputed result is kept as is.
func (p *PreAggregate) apply(result *Result) {
	if p == nil {
		return
	}

	if p.Total == nil {
		if !p.hasAllPayments() {
			return
		}
		breakdown := newPaymentBreakdown()
		total := AggregateTotals{Sum: decimal.Zero}
		for i, bucket := range breakdown {
			trusted := p.Payments[bucket.Method]
			breakdown[i].Count = trusted.Count
			breakdown[i].Sum = trusted.Sum
			total.Count += trusted.Count
			total.Sum = total.Sum.Add(trusted.Sum)
		}
		result.Summary.TotalCount = total.Count
		result.Summary.TotalSum = total.Sum
		result.PaymentBreakdown = breakdown
		return
	}

	// A bare total says nothing about how it splits across methods.
	if len(p.Payments) == 0 {
		return
	}

	total := *p.Total
	breakdown := newPaymentBreakdown()
	assignedCount := 0
	assignedSum := decimal.Zero
	for i, bucket := range breakdown {
		if bucket.Method == PaymentUnset {
			continue
		}
		trusted, ok := p.Payments[bucket.Method]
		if !ok {
			recomputed := result.PaymentBreakdown.Bucket(bucket.Method)
			trusted = AggregateTotals{Count: recomputed.Count, Sum: recomputed.Sum}
		}
		breakdown[i].Count = trusted.Count
		breakdown[i].Sum = trusted.Sum
		assignedCount += trusted.Count
		assignedSum = assignedSum.Add(trusted.Sum)
	}

	unset := AggregateTotals{Count: total.Count - assignedCount, Sum: total.Sum.Sub(assignedSum)}
	if unset.Count < 0 || unset.Sum.IsNegative() {
		return
	}
	if trusted, ok := p.Payments[PaymentUnset]; ok && (trusted.Count != unset.Count || !trusted.Sum.Equal(unset.Sum)) {
		return
	}
	for i, bucket := range breakdown {
		if bucket.Method == PaymentUnset {
			breakdown[i].Count = unset.Count
			breakdown[i].Sum = unset.Sum
		}
	}

	result.Summary.TotalCount = total.Count
	result.Summary.TotalSum = total.Sum
	result.PaymentBreakdown = breakdown
}

func (p *PreAggregate) hasSetPayments() bool {
	for _, method := range []PaymentMethod{PaymentCash, PaymentUPI, PaymentCard} {
		if _, ok := p.Payments[method]; !ok {
			return false
		}
	}
	return true
}

func (p *PreAggregate) hasAllPayments() bool {
	if !p.hasSetPayments() {
		return false
	}
	_, ok := p.Payments[PaymentUnset]
	return ok
}
