package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var testCurrency = Currency{Code: "INR", Symbol: "₹"}

func TestBuildLayout(t *testing.T) {
	window := todayWindow(t)
	orders := scenarioOrders()
	result := Aggregate(orders, window)
	doc := Build(result, orders, window, testCurrency)

	if doc.SheetName != "Order Report" || doc.Title != "Order Report" {
		t.Fatalf("unexpected title/sheet %q/%q", doc.Title, doc.SheetName)
	}

	title, ok := doc.MergeAt(0)
	if !ok || title.EndCol != 3 {
		t.Fatalf("expected title merged over 4 columns, got %+v", title)
	}

	allOrders := 17 + len(result.TopItems)
	merge, ok := doc.MergeAt(allOrders)
	if !ok {
		t.Fatalf("expected merge at row %d, got %+v", allOrders, doc.Merges)
	}
	if merge.StartCol != 0 || merge.EndCol != 9 || merge.EndRow != allOrders {
		t.Fatalf("expected ledger header merged over 10 columns, got %+v", merge)
	}
	if doc.Rows[allOrders][0].Text() != "All Orders" {
		t.Fatalf("expected All Orders at row %d, got %q", allOrders, doc.Rows[allOrders][0].Text())
	}

	headerRow := doc.Rows[allOrders+1]
	if len(headerRow) != 10 || headerRow[0].Text() != "Order ID" || headerRow[9].Text() != "Total Price" {
		t.Fatalf("unexpected ledger header %+v", headerRow)
	}

	ledger := doc.Rows[allOrders+2:]
	if len(ledger) != 3 {
		t.Fatalf("expected 3 ledger rows, got %d", len(ledger))
	}
	if len(doc.ColumnWidths) != 10 {
		t.Fatalf("expected 10 column widths, got %d", len(doc.ColumnWidths))
	}
}

func TestBuildSummaryRows(t *testing.T) {
	window := todayWindow(t)
	orders := scenarioOrders()
	doc := Build(Aggregate(orders, window), orders, window, testCurrency)

	cases := []struct {
		row      int
		label    string
		expected string
	}{
		{row: 2, label: "Report Period", expected: "Oct 18, 2026 - Oct 18, 2026"},
		{row: 3, label: "Total Earnings", expected: "600"},
		{row: 4, label: "Orders Completed", expected: "3"},
		{row: 5, label: "Deliveries", expected: "0"},
		{row: 6, label: "Average Order Value", expected: "200"},
	}
	for _, tc := range cases {
		row := doc.Rows[tc.row]
		if row[0].Text() != tc.label {
			t.Fatalf("row %d: expected label %q, got %q", tc.row, tc.label, row[0].Text())
		}
		if row[1].Text() != tc.expected {
			t.Fatalf("row %d: expected %q, got %q", tc.row, tc.expected, row[1].Text())
		}
	}

	if doc.Rows[3][1].NumberFormat != `"₹"#,##0.00` {
		t.Fatalf("expected currency format, got %q", doc.Rows[3][1].NumberFormat)
	}

	// Payment rows follow the section header at row 8.
	labels := []string{"Cash", "UPI", "Card", "Not Selected"}
	for i, expected := range labels {
		if got := doc.Rows[9+i][0].Text(); got != expected {
			t.Fatalf("payment row %d: expected %q, got %q", i, expected, got)
		}
	}
	if sum, ok := doc.Rows[12][2].Number(); !ok || !sum.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected unset sum 300, got %v", doc.Rows[12][2].Value)
	}
}

func TestBuildLedgerCells(t *testing.T) {
	window := todayWindow(t)
	base := testNow()

	dineIn := completedOrder("A1", base.Add(-2*time.Hour), "250", PaymentCard,
		OrderItem{Quantity: 2, Menu: menu("Veg Biryani", "Mains", "125")},
		OrderItem{Quantity: 1, Menu: nil},
	)
	dineIn.TableName = "T4"
	dineIn.ExtraCharges = []ExtraCharge{{Name: "Service", Amount: decimal.RequireFromString("12.5")}}

	pending := completedOrder("A2", base.Add(-time.Hour), "90", PaymentUnset)
	pending.Status = "pending"
	pending.Type = OrderTypeDelivery
	pending.DeliveryAddress = "7 Park Street"

	missingTotal := completedOrder("A3", base.Add(-30*time.Minute), "0", PaymentCash)
	missingTotal.TotalPrice = decimal.NullDecimal{}
	missingTotal.DisplayID = ""

	outside := completedOrder("A4", base.AddDate(0, 0, -3), "70", PaymentCash)

	orders := []Order{dineIn, pending, missingTotal, outside}
	result := Aggregate(orders, window)
	doc := Build(result, orders, window, testCurrency)

	start := 17 + len(result.TopItems) + 2
	ledger := doc.Rows[start:]
	if len(ledger) != 3 {
		t.Fatalf("expected 3 ledger rows, got %d", len(ledger))
	}

	first := ledger[0]
	expectedText := map[int]string{
		0: "#A1",
		1: "Oct 18, 2026",
		2: "12:30 PM",
		3: "dine-in",
		4: "Table: T4",
		5: "Veg Biryani (Qty: 2), N/A (Qty: 1)",
		6: "Service (12.5)",
		7: "Card",
		8: "completed",
	}
	for col, expected := range expectedText {
		if got := first[col].Text(); got != expected {
			t.Fatalf("column %d: expected %q, got %q", col, expected, got)
		}
	}
	if total, ok := first[9].Number(); !ok || !total.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("expected total 250, got %v", first[9].Value)
	}

	second := ledger[1]
	if second[3].Text() != "delivery" || second[4].Text() != "7 Park Street" {
		t.Fatalf("expected delivery location, got %q %q", second[3].Text(), second[4].Text())
	}
	if second[7].Text() != "Not Selected" {
		t.Fatalf("expected Not Selected, got %q", second[7].Text())
	}
	if second[9].Text() != NotAvailable || second[9].Style != StyleMissing {
		t.Fatalf("expected N/A total for a non-completed order, got %+v", second[9])
	}

	third := ledger[2]
	if third[0].Text() != "A3" {
		t.Fatalf("expected fallback to raw id, got %q", third[0].Text())
	}
	if third[4].Text() != NotAvailable || third[6].Text() != NotAvailable {
		t.Fatalf("expected N/A location and extras, got %q %q", third[4].Text(), third[6].Text())
	}
	if third[9].Text() != NotAvailable {
		t.Fatalf("expected N/A for a missing total, got %q", third[9].Text())
	}
}

func TestBuildEmpty(t *testing.T) {
	window := todayWindow(t)
	doc := Build(Aggregate(nil, window), nil, window, testCurrency)

	merge, ok := doc.MergeAt(17)
	if !ok || merge.EndCol != 9 {
		t.Fatalf("expected All Orders merge at row 17, got %+v", doc.Merges)
	}
	if len(doc.Rows) != 19 {
		t.Fatalf("expected header rows only, got %d rows", len(doc.Rows))
	}
}

func TestBuildTruncatesCurrencyCells(t *testing.T) {
	window := todayWindow(t)
	orders := []Order{completedOrder("1", testNow().Add(-time.Hour), "100.999", PaymentCash)}
	doc := Build(Aggregate(orders, window), orders, window, testCurrency)

	want := decimal.RequireFromString("100.99")
	cells := map[string]Cell{
		"total earnings": doc.Rows[3][1],
		"cash bucket":    doc.Rows[9][2],
		"ledger total":   doc.Rows[19][9],
	}
	for name, cell := range cells {
		if value, ok := cell.Number(); !ok || !value.Equal(want) {
			t.Fatalf("%s: expected %s, got %v", name, want, cell.Value)
		}
	}
}
