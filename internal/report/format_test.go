package report

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatAmount(t *testing.T) {
	cases := map[string]string{
		"0":           "0.00",
		"12.5":        "12.50",
		"999.999":     "999.99",
		"1234.5":      "1,234.50",
		"1234567.891": "1,234,567.89",
		"-1234.5":     "-1,234.50",
	}
	for input, expected := range cases {
		if got := FormatAmount(decimal.RequireFromString(input)); got != expected {
			t.Fatalf("%s: expected %s, got %s", input, expected, got)
		}
	}
}

func TestFormatCurrency(t *testing.T) {
	value := decimal.RequireFromString("1500")
	if got := FormatCurrency(Currency{Code: "INR", Symbol: "₹"}, value); got != "₹1,500.00" {
		t.Fatalf("expected ₹1,500.00, got %s", got)
	}
	if got := FormatCurrency(Currency{Code: "IDR"}, value); got != "IDR 1,500.00" {
		t.Fatalf("expected IDR 1,500.00, got %s", got)
	}
}
