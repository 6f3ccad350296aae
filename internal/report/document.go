package report

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CellType string

const (
	CellText   CellType = "text"
	CellNumber CellType = "number"
)

type Style string

const (
	StyleNone     Style = ""
	StyleTitle    Style = "title"
	StyleSection  Style = "section"
	StyleHeader   Style = "header"
	StyleLabel    Style = "label"
	StyleValue    Style = "value"
	StyleCurrency Style = "currency"
	StyleMissing  Style = "missing"
)

// Cell values are string for text cells and decimal.Decimal for number
// cells.
type Cell struct {
	Value        any      `json:"value"`
	Style        Style    `json:"style,omitempty"`
	Type         CellType `json:"type"`
	NumberFormat string   `json:"numberFormat,omitempty"`
}

func (c Cell) Text() string {
	switch v := c.Value.(type) {
	case string:
		return v
	case decimal.Decimal:
		return v.String()
	default:
		return ""
	}
}

func (c Cell) Number() (decimal.Decimal, bool) {
	d, ok := c.Value.(decimal.Decimal)
	return d, ok && c.Type == CellNumber
}

// MergeRegion bounds are zero-based and inclusive.
type MergeRegion struct {
	StartRow int `json:"startRow"`
	EndRow   int `json:"endRow"`
	StartCol int `json:"startCol"`
	EndCol   int `json:"endCol"`
}

type ColumnWidth struct {
	Col   int     `json:"col"`
	Width float64 `json:"width"`
}

type Document struct {
	Title        string        `json:"title"`
	SheetName    string        `json:"sheetName"`
	Rows         [][]Cell      `json:"rows"`
	Merges       []MergeRegion `json:"merges"`
	ColumnWidths []ColumnWidth `json:"columnWidths"`
	Currency     Currency      `json:"currency"`
}

// MergeAt returns the merge region starting on row, if any.
func (d Document) MergeAt(row int) (MergeRegion, bool) {
	for _, m := range d.Merges {
		if m.StartRow == row {
			return m, true
		}
	}
	return MergeRegion{}, false
}

const (
	DocumentTitle     = "Order Report"
	DocumentSheetName = "Order Report"
	NotAvailable      = "N/A"

	sectionColumns = 4
	integerFormat  = "0"
)

var ledgerHeaders = []string{
	"Order ID",
	"Date",
	"Time",
	"Order Type",
	"Location",
	"Items",
	"Extra Charges",
	"Payment Method",
	"Status",
	"Total Price",
}

var columnWidths = []float64{22, 18, 14, 14, 30, 45, 30, 16, 14, 16}

// Build lays the aggregation and the ledger out as positional rows. Merge
// regions use the running row cursor, so sections below a variable length
// block move with it.
func Build(result Result, orders []Order, window TimeWindow, currency Currency) Document {
	b := &documentBuilder{
		doc: Document{
			Title:     DocumentTitle,
			SheetName: DocumentSheetName,
			Rows:      [][]Cell{},
			Merges:    []MergeRegion{},
			Currency:  currency,
		},
		currency: currency,
	}
	loc := window.Location()

	b.merged(DocumentTitle, StyleTitle, sectionColumns)

	b.merged("Summary", StyleSection, sectionColumns)
	b.row(label("Report Period"), text(window.Label()))
	b.row(label("Total Earnings"), b.money(result.Summary.TotalSum))
	b.row(label("Orders Completed"), integer(result.Summary.TotalCount))
	b.row(label("Deliveries"), integer(result.Summary.DeliveryCount))
	b.row(label("Average Order Value"), b.money(result.AverageOrderValue()))

	b.blank()
	b.merged("Payment Method Breakdown", StyleSection, sectionColumns)
	for _, method := range PaymentMethods {
		bucket := result.PaymentBreakdown.Bucket(method)
		b.row(label(method.Label()), integer(bucket.Count), b.money(bucket.Sum))
	}

	b.blank()
	b.merged("Top Selling Items", StyleSection, sectionColumns)
	b.row(header("Item Name"), header("Category"), header("Quantity Sold"))
	for _, item := range result.TopItems {
		b.row(textOrMissing(item.Name), textOrMissing(item.Category), integer(item.Quantity))
	}

	b.blank()
	b.merged("All Orders", StyleSection, len(ledgerHeaders))
	headers := make([]Cell, 0, len(ledgerHeaders))
	for _, h := range ledgerHeaders {
		headers = append(headers, header(h))
	}
	b.row(headers...)
	for _, order := range LedgerOrders(orders, window) {
		b.row(b.ledgerRow(order, loc)...)
	}

	for col, width := range columnWidths {
		b.doc.ColumnWidths = append(b.doc.ColumnWidths, ColumnWidth{Col: col, Width: width})
	}
	return b.doc
}

type documentBuilder struct {
	doc      Document
	currency Currency
}

func (b *documentBuilder) row(cells ...Cell) int {
	idx := len(b.doc.Rows)
	b.doc.Rows = append(b.doc.Rows, cells)
	return idx
}

func (b *documentBuilder) blank() int {
	return b.row()
}

func (b *documentBuilder) merged(value string, style Style, cols int) int {
	cells := make([]Cell, cols)
	cells[0] = Cell{Value: value, Style: style, Type: CellText}
	for i := 1; i < cols; i++ {
		cells[i] = Cell{Value: "", Style: style, Type: CellText}
	}
	idx := b.row(cells...)
	b.doc.Merges = append(b.doc.Merges, MergeRegion{StartRow: idx, EndRow: idx, StartCol: 0, EndCol: cols - 1})
	return idx
}

// money truncates to two places; the cell format would otherwise round.
func (b *documentBuilder) money(value decimal.Decimal) Cell {
	return Cell{Value: TruncateCurrency(value), Style: StyleCurrency, Type: CellNumber, NumberFormat: b.currency.NumberFormat()}
}

func (b *documentBuilder) ledgerRow(order Order, loc *time.Location) []Cell {
	orderID := strings.TrimSpace(order.DisplayID)
	if orderID == "" {
		orderID = strings.TrimSpace(order.ID)
	}

	date, clock := missing(), missing()
	if !order.CreatedAt.IsZero() {
		created := order.CreatedAt.In(loc)
		date = text(created.Format(periodDateLayout))
		clock = text(created.Format("03:04 PM"))
	}

	total := missing()
	if order.IsCompleted() && order.TotalPrice.Valid {
		total = b.money(order.TotalPrice.Decimal)
	}

	return []Cell{
		textOrMissing(orderID),
		date,
		clock,
		text(string(order.LedgerType())),
		textOrMissing(ledgerLocation(order)),
		textOrMissing(ledgerItems(order.Items)),
		textOrMissing(ledgerExtraCharges(order.ExtraCharges)),
		text(order.PaymentMethod.Label()),
		textOrMissing(string(order.Status)),
		total,
	}
}

func ledgerLocation(order Order) string {
	switch order.LedgerType() {
	case OrderTypeDelivery:
		return strings.TrimSpace(order.DeliveryAddress)
	case OrderTypeDineIn:
		return "Table: " + order.TableLabel()
	default:
		return ""
	}
}

func ledgerItems(items []OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		name := NotAvailable
		if item.Menu != nil && strings.TrimSpace(item.Menu.Name) != "" {
			name = strings.TrimSpace(item.Menu.Name)
		}
		parts = append(parts, name+" (Qty: "+strconv.Itoa(item.Quantity)+")")
	}
	return strings.Join(parts, ", ")
}

func ledgerExtraCharges(charges []ExtraCharge) string {
	parts := make([]string, 0, len(charges))
	for _, charge := range charges {
		name := strings.TrimSpace(charge.Name)
		if name == "" {
			name = NotAvailable
		}
		parts = append(parts, name+" ("+charge.Amount.String()+")")
	}
	return strings.Join(parts, ", ")
}

func text(value string) Cell {
	return Cell{Value: value, Style: StyleValue, Type: CellText}
}

func textOrMissing(value string) Cell {
	if strings.TrimSpace(value) == "" {
		return missing()
	}
	return text(value)
}

func label(value string) Cell {
	return Cell{Value: value, Style: StyleLabel, Type: CellText}
}

func header(value string) Cell {
	return Cell{Value: value, Style: StyleHeader, Type: CellText}
}

func missing() Cell {
	return Cell{Value: NotAvailable, Style: StyleMissing, Type: CellText}
}

func integer(value int) Cell {
	return Cell{Value: decimal.NewFromInt(int64(value)), Style: StyleValue, Type: CellNumber, NumberFormat: integerFormat}
}
