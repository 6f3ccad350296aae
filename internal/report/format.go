package report

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatAmount renders a value as 1,234.50 after truncating to two decimals.
func FormatAmount(value decimal.Decimal) string {
	fixed := TruncateCurrency(value).StringFixed(2)
	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, fracPart := fixed, ""
	if dot := strings.IndexByte(fixed, '.'); dot >= 0 {
		intPart, fracPart = fixed[:dot], fixed[dot:]
	}

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString(fracPart)
	return b.String()
}

// FormatCurrency prefixes FormatAmount with the currency symbol, or the code
// when no symbol is known.
func FormatCurrency(c Currency, value decimal.Decimal) string {
	prefix := c.Symbol
	if prefix == "" && c.Code != "" {
		prefix = c.Code + " "
	}
	return prefix + FormatAmount(value)
}
