package report

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const StatusCompleted OrderStatus = "completed"

type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypeDineIn   OrderType = "dine-in"
	OrderTypeTakeaway OrderType = "takeaway"
)

type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "cash"
	PaymentUPI   PaymentMethod = "upi"
	PaymentCard  PaymentMethod = "card"
	PaymentUnset PaymentMethod = ""
)

// PaymentMethods lists the buckets in breakdown order.
var PaymentMethods = []PaymentMethod{PaymentCash, PaymentUPI, PaymentCard, PaymentUnset}

// ParsePaymentMethod normalizes a raw method. ok is false for values that are
// neither empty nor one of cash/upi/card.
func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return PaymentUnset, true
	case "cash":
		return PaymentCash, true
	case "upi":
		return PaymentUPI, true
	case "card":
		return PaymentCard, true
	default:
		return PaymentUnset, false
	}
}

func (m PaymentMethod) Label() string {
	switch m {
	case PaymentCash:
		return "Cash"
	case PaymentUPI:
		return "UPI"
	case PaymentCard:
		return "Card"
	default:
		return "Not Selected"
	}
}

type ExtraCharge struct {
	Name   string
	Amount decimal.Decimal
}

type MenuItem struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Category string
}

type OrderItem struct {
	ID       string
	Quantity int
	Menu     *MenuItem
}

// Revenue is quantity times the current menu price. Prices are not
// snapshotted, so a menu price change moves historical revenue too.
func (i OrderItem) Revenue() decimal.Decimal {
	if i.Menu == nil {
		return decimal.Zero
	}
	return i.Menu.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID              string
	DisplayID       string
	CreatedAt       time.Time
	TotalPrice      decimal.NullDecimal
	Status          OrderStatus
	Type            OrderType
	PaymentMethod   PaymentMethod
	TableName       string
	TableNumber     string
	DeliveryAddress string
	ExtraCharges    []ExtraCharge
	PartnerID       string
	Items           []OrderItem
}

func (o Order) IsCompleted() bool {
	return strings.EqualFold(string(o.Status), string(StatusCompleted))
}

// TableLabel returns the table name, falling back to its number.
func (o Order) TableLabel() string {
	if name := strings.TrimSpace(o.TableName); name != "" {
		return name
	}
	return strings.TrimSpace(o.TableNumber)
}

// LedgerType derives the type shown in the order ledger: delivery needs an
// address, then any table identifier means dine-in, everything else is
// takeaway.
func (o Order) LedgerType() OrderType {
	if o.Type == OrderTypeDelivery && strings.TrimSpace(o.DeliveryAddress) != "" {
		return OrderTypeDelivery
	}
	if o.TableLabel() != "" {
		return OrderTypeDineIn
	}
	return OrderTypeTakeaway
}

// InferOrderType is used when a source does not carry an explicit type.
func InferOrderType(deliveryAddress, tableName, tableNumber string) OrderType {
	if strings.TrimSpace(deliveryAddress) != "" {
		return OrderTypeDelivery
	}
	if strings.TrimSpace(tableName) != "" || strings.TrimSpace(tableNumber) != "" {
		return OrderTypeDineIn
	}
	return OrderTypeTakeaway
}

func ParseOrderType(raw string) (OrderType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "delivery":
		return OrderTypeDelivery, true
	case "dine-in", "dine_in", "dinein":
		return OrderTypeDineIn, true
	case "takeaway", "take-away", "take_away":
		return OrderTypeTakeaway, true
	default:
		return "", false
	}
}

type Currency struct {
	Code   string
	Symbol string
}

// NumberFormat is the spreadsheet format string for currency cells. The
// symbol is quoted so letters such as the M in RM are not read as date codes.
func (c Currency) NumberFormat() string {
	if c.Symbol == "" {
		return "#,##0.00"
	}
	return "\"" + strings.ReplaceAll(c.Symbol, "\"", "\\\"") + "\"#,##0.00"
}
