package report

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Summary struct {
	TotalSum      decimal.Decimal `json:"totalSum"`
	TotalCount    int             `json:"totalCount"`
	DeliveryCount int             `json:"deliveryCount"`
}

type PaymentBucket struct {
	Method PaymentMethod   `json:"method"`
	Label  string          `json:"label"`
	Count  int             `json:"count"`
	Sum    decimal.Decimal `json:"sum"`
}

// PaymentBreakdown holds one bucket per method in PaymentMethods order.
type PaymentBreakdown []PaymentBucket

func newPaymentBreakdown() PaymentBreakdown {
	out := make(PaymentBreakdown, 0, len(PaymentMethods))
	for _, method := range PaymentMethods {
		out = append(out, PaymentBucket{Method: method, Label: method.Label(), Sum: decimal.Zero})
	}
	return out
}

func (b PaymentBreakdown) Bucket(method PaymentMethod) PaymentBucket {
	for _, bucket := range b {
		if bucket.Method == method {
			return bucket
		}
	}
	return PaymentBucket{Method: method, Label: method.Label(), Sum: decimal.Zero}
}

func (b PaymentBreakdown) add(method PaymentMethod, amount decimal.Decimal) {
	for i := range b {
		if b[i].Method == method {
			b[i].Count++
			b[i].Sum = b[i].Sum.Add(amount)
			return
		}
	}
}

type ItemStat struct {
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Quantity int             `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type CategoryStat struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// SeriesPoint is one qualifying order. Points are not bucketed per day.
type SeriesPoint struct {
	Date       string          `json:"date"`
	CreatedAt  time.Time       `json:"createdAt"`
	OrderID    string          `json:"orderId"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

type Result struct {
	Summary          Summary          `json:"summary"`
	PaymentBreakdown PaymentBreakdown `json:"paymentBreakdown"`
	TopItems         []ItemStat       `json:"topItems"`
	CategoryStats    []CategoryStat   `json:"categoryStats"`
	DailySeries      []SeriesPoint    `json:"dailySeries"`
	Warnings         []Warning        `json:"warnings,omitempty"`
}

func (r Result) AverageOrderValue() decimal.Decimal {
	return AverageOrderValue(r.Summary.TotalSum, r.Summary.TotalCount)
}

func AverageOrderValue(total decimal.Decimal, count int) decimal.Decimal {
	if count <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(count)))
}

// TruncateCurrency cuts a value to two decimals for display.
func TruncateCurrency(value decimal.Decimal) decimal.Decimal {
	return value.Truncate(2)
}

type aggregateOptions struct {
	pre *PreAggregate
}

type Option func(*aggregateOptions)

// WithPreAggregate lets a source hand over totals it already computed.
func WithPreAggregate(pre *PreAggregate) Option {
	return func(o *aggregateOptions) {
		o.pre = pre
	}
}

// Aggregate computes every rollup for the completed orders inside window.
// Orders outside the window are skipped even when the caller filtered already.
func Aggregate(orders []Order, window TimeWindow, opts ...Option) Result {
	options := aggregateOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	result := Result{
		Summary:          Summary{TotalSum: decimal.Zero},
		PaymentBreakdown: newPaymentBreakdown(),
		TopItems:         []ItemStat{},
		CategoryStats:    []CategoryStat{},
		DailySeries:      []SeriesPoint{},
	}

	itemIndex := make(map[string]int)
	categoryIndex := make(map[string]int)
	loc := window.Location()

	for _, order := range orders {
		if !order.IsCompleted() || !window.Contains(order.CreatedAt) {
			continue
		}

		price := decimal.Zero
		if order.TotalPrice.Valid {
			price = order.TotalPrice.Decimal
		} else {
			result.Warnings = append(result.Warnings, newWarning(order.ID, -1, WarnMissingTotal))
		}

		result.Summary.TotalCount++
		result.Summary.TotalSum = result.Summary.TotalSum.Add(price)
		if order.Type == OrderTypeDelivery {
			result.Summary.DeliveryCount++
		}

		method, ok := ParsePaymentMethod(string(order.PaymentMethod))
		if !ok {
			result.Warnings = append(result.Warnings, newWarning(order.ID, -1, WarnUnknownPaymentMethod))
		}
		result.PaymentBreakdown.add(method, price)

		result.DailySeries = append(result.DailySeries, SeriesPoint{
			Date:       order.CreatedAt.In(loc).Format("2006-01-02"),
			CreatedAt:  order.CreatedAt,
			OrderID:    order.ID,
			TotalPrice: price,
		})

		for idx, item := range order.Items {
			name, ok := itemName(item)
			if !ok {
				result.Warnings = append(result.Warnings, newWarning(order.ID, idx, itemProblem(item)))
				continue
			}
			revenue := item.Revenue()
			category := strings.TrimSpace(item.Menu.Category)

			pos, seen := itemIndex[name]
			if !seen {
				pos = len(result.TopItems)
				itemIndex[name] = pos
				result.TopItems = append(result.TopItems, ItemStat{Name: name, Category: category, Revenue: decimal.Zero})
			}
			stat := &result.TopItems[pos]
			stat.Quantity += item.Quantity
			stat.Revenue = stat.Revenue.Add(revenue)
			if stat.Category == "" {
				stat.Category = category
			}

			if category == "" {
				result.Warnings = append(result.Warnings, newWarning(order.ID, idx, WarnMissingCategory))
				continue
			}
			cpos, seen := categoryIndex[category]
			if !seen {
				cpos = len(result.CategoryStats)
				categoryIndex[category] = cpos
				result.CategoryStats = append(result.CategoryStats, CategoryStat{Name: category, Revenue: decimal.Zero})
			}
			cstat := &result.CategoryStats[cpos]
			cstat.Quantity += item.Quantity
			cstat.Revenue = cstat.Revenue.Add(revenue)
		}
	}

	// Ties keep first-seen order.
	sort.SliceStable(result.TopItems, func(i, j int) bool {
		return result.TopItems[i].Quantity > result.TopItems[j].Quantity
	})
	sort.SliceStable(result.DailySeries, func(i, j int) bool {
		return result.DailySeries[i].CreatedAt.Before(result.DailySeries[j].CreatedAt)
	})

	if options.pre != nil {
		options.pre.apply(&result)
	}
	return result
}

func itemName(item OrderItem) (string, bool) {
	if item.Menu == nil || item.Quantity <= 0 {
		return "", false
	}
	name := strings.TrimSpace(item.Menu.Name)
	return name, name != ""
}

func itemProblem(item OrderItem) WarningReason {
	if item.Menu == nil {
		return WarnMissingMenu
	}
	if item.Quantity <= 0 {
		return WarnInvalidQuantity
	}
	return WarnMissingMenuName
}

// SortCategoriesByQuantity returns a copy ordered by quantity, highest first.
func SortCategoriesByQuantity(stats []CategoryStat) []CategoryStat {
	out := make([]CategoryStat, len(stats))
	copy(out, stats)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Quantity > out[j].Quantity })
	return out
}

// LedgerOrders returns every order created inside window, whatever its
// status, in input order.
func LedgerOrders(orders []Order, window TimeWindow) []Order {
	out := make([]Order, 0, len(orders))
	for _, order := range orders {
		if window.Contains(order.CreatedAt) {
			out = append(out, order)
		}
	}
	return out
}
