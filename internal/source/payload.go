package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"genfity-order-reports/internal/report"

	"github.com/shopspring/decimal"
)

// Payload is the GraphQL-style order export: a list of orders plus optional
// aggregate blocks computed by the upstream query.
type Payload struct {
	Orders         []payloadOrder    `json:"orders"`
	OrdersAggr     *payloadAggregate `json:"orders_aggregate,omitempty"`
	CashAggregate  *payloadAggregate `json:"cash_aggregate,omitempty"`
	UPIAggregate   *payloadAggregate `json:"upi_aggregate,omitempty"`
	CardAggregate  *payloadAggregate `json:"card_aggregate,omitempty"`
	UnsetAggregate *payloadAggregate `json:"unset_aggregate,omitempty"`
}

type payloadOrder struct {
	ID              flexString          `json:"id"`
	DisplayID       flexString          `json:"display_id"`
	CreatedAt       flexTime            `json:"created_at"`
	TotalPrice      decimal.NullDecimal `json:"total_price"`
	Status          string              `json:"status"`
	Type            string              `json:"type"`
	PaymentMethod   *string             `json:"payment_method"`
	TableName       flexString          `json:"table_name"`
	TableNumber     flexString          `json:"table_number"`
	DeliveryAddress string              `json:"delivery_address"`
	PartnerID       flexString          `json:"partner_id"`
	ExtraCharges    []payloadCharge     `json:"extra_charges"`
	OrderItems      []payloadItem       `json:"order_items"`
}

type payloadCharge struct {
	Name   string              `json:"name"`
	Amount decimal.NullDecimal `json:"amount"`
}

type payloadItem struct {
	ID       flexString   `json:"id"`
	Quantity int          `json:"quantity"`
	Menu     *payloadMenu `json:"menu"`
}

type payloadMenu struct {
	ID       flexString          `json:"id"`
	Name     string              `json:"name"`
	Price    decimal.NullDecimal `json:"price"`
	Category *struct {
		Name string `json:"name"`
	} `json:"category"`
}

type payloadAggregate struct {
	Aggregate struct {
		Count int `json:"count"`
		Sum   struct {
			TotalPrice decimal.NullDecimal `json:"total_price"`
		} `json:"sum"`
	} `json:"aggregate"`
}

func (a *payloadAggregate) totals() report.AggregateTotals {
	sum := decimal.Zero
	if a.Aggregate.Sum.TotalPrice.Valid {
		sum = a.Aggregate.Sum.TotalPrice.Decimal
	}
	return report.AggregateTotals{Count: a.Aggregate.Count, Sum: sum}
}

// Decode reads a payload. A top level {"data": {...}} envelope is unwrapped.
func Decode(r io.Reader) (Snapshot, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Snapshot{}, err
	}
	return DecodeBytes(raw)
}

func DecodeBytes(raw []byte) (Snapshot, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Snapshot{}, errors.New("empty payload")
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 && envelope.Data[0] == '{' {
		raw = envelope.Data
	}

	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Snapshot{}, fmt.Errorf("decode payload: %w", err)
	}
	return payload.Snapshot(), nil
}

func (p Payload) Snapshot() Snapshot {
	orders := make([]report.Order, 0, len(p.Orders))
	for _, o := range p.Orders {
		orders = append(orders, o.toOrder())
	}
	return Snapshot{Orders: orders, Pre: p.preAggregate()}
}

func (p Payload) preAggregate() *report.PreAggregate {
	pre := &report.PreAggregate{Payments: map[report.PaymentMethod]report.AggregateTotals{}}
	if p.OrdersAggr != nil {
		total := p.OrdersAggr.totals()
		pre.Total = &total
	}
	buckets := map[report.PaymentMethod]*payloadAggregate{
		report.PaymentCash:  p.CashAggregate,
		report.PaymentUPI:   p.UPIAggregate,
		report.PaymentCard:  p.CardAggregate,
		report.PaymentUnset: p.UnsetAggregate,
	}
	for method, aggregate := range buckets {
		if aggregate != nil {
			pre.Payments[method] = aggregate.totals()
		}
	}
	if pre.Total == nil && len(pre.Payments) == 0 {
		return nil
	}
	return pre
}

func (o payloadOrder) toOrder() report.Order {
	order := report.Order{
		ID:              string(o.ID),
		DisplayID:       string(o.DisplayID),
		CreatedAt:       time.Time(o.CreatedAt),
		TotalPrice:      o.TotalPrice,
		Status:          report.OrderStatus(strings.ToLower(strings.TrimSpace(o.Status))),
		TableName:       string(o.TableName),
		TableNumber:     string(o.TableNumber),
		DeliveryAddress: o.DeliveryAddress,
		PartnerID:       string(o.PartnerID),
	}
	if o.PaymentMethod != nil {
		order.PaymentMethod = report.PaymentMethod(strings.ToLower(strings.TrimSpace(*o.PaymentMethod)))
	}
	if parsed, ok := report.ParseOrderType(o.Type); ok {
		order.Type = parsed
	} else {
		order.Type = report.InferOrderType(order.DeliveryAddress, order.TableName, order.TableNumber)
	}

	for _, charge := range o.ExtraCharges {
		amount := decimal.Zero
		if charge.Amount.Valid {
			amount = charge.Amount.Decimal
		}
		order.ExtraCharges = append(order.ExtraCharges, report.ExtraCharge{Name: charge.Name, Amount: amount})
	}

	for _, item := range o.OrderItems {
		converted := report.OrderItem{ID: string(item.ID), Quantity: item.Quantity}
		if item.Menu != nil {
			menu := &report.MenuItem{ID: string(item.Menu.ID), Name: item.Menu.Name, Price: decimal.Zero}
			if item.Menu.Price.Valid {
				menu.Price = item.Menu.Price.Decimal
			}
			if item.Menu.Category != nil {
				menu.Category = item.Menu.Category.Name
			}
			converted.Menu = menu
		}
		order.Items = append(order.Items, converted)
	}
	return order
}

// flexString accepts a JSON string or number.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// flexTime accepts RFC3339 with or without a zone, and unix seconds.
type flexTime time.Time

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = flexTime{}
		return nil
	}
	if data[0] != '"' {
		secs, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid timestamp %s", data)
		}
		*t = flexTime(time.Unix(secs, 0).UTC())
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*t = flexTime{}
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			*t = flexTime(parsed)
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", raw)
}
