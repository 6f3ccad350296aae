package export

import (
	"bytes"
	"strconv"

	"genfity-order-reports/internal/report"

	"github.com/phpdave11/gofpdf"
)

const (
	pdfRowHeight = 6.0
	pdfMargin    = 10.0
)

// RenderPDF lays the same rows out on landscape A4 pages. The core fonts are
// cp1252 only, so money is written with the currency code instead of the
// symbol.
func RenderPDF(doc report.Document) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(doc.Title, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageWidth, _ := pdf.GetPageSize()
	widths := pdfColumnWidths(doc, pageWidth-2*pdfMargin)
	merges := map[int]report.MergeRegion{}
	for _, m := range doc.Merges {
		merges[m.StartRow] = m
	}
	code := doc.Currency
	code.Symbol = ""

	for r, row := range doc.Rows {
		if len(row) == 0 {
			pdf.Ln(pdfRowHeight / 2)
			continue
		}
		if m, ok := merges[r]; ok {
			width := 0.0
			for c := m.StartCol; c <= m.EndCol && c < len(widths); c++ {
				width += widths[c]
			}
			applyPDFStyle(pdf, row[0].Style)
			pdf.CellFormat(width, pdfRowHeight+1, tr(row[0].Text()), "", 1, "L", true, 0, "")
			continue
		}
		for c, cell := range row {
			if c >= len(widths) {
				break
			}
			applyPDFStyle(pdf, cell.Style)
			text := tr(pdfCellText(cell, code))
			align := "L"
			if cell.Type == report.CellNumber {
				align = "R"
			}
			border := ""
			if cell.Style == report.StyleHeader {
				border = "1"
			}
			pdf.CellFormat(widths[c], pdfRowHeight, fitText(pdf, text, widths[c]), border, 0, align, cell.Style == report.StyleHeader, 0, "")
		}
		pdf.Ln(-1)
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func pdfColumnWidths(doc report.Document, available float64) []float64 {
	widths := make([]float64, len(doc.ColumnWidths))
	total := 0.0
	for _, w := range doc.ColumnWidths {
		if w.Col < len(widths) {
			widths[w.Col] = w.Width
			total += w.Width
		}
	}
	if total == 0 {
		return []float64{available}
	}
	for i := range widths {
		widths[i] = widths[i] / total * available
	}
	return widths
}

func pdfCellText(cell report.Cell, currency report.Currency) string {
	value, ok := cell.Number()
	if !ok {
		return cell.Text()
	}
	if cell.Style == report.StyleCurrency {
		return report.FormatCurrency(currency, value)
	}
	if value.Equal(value.Truncate(0)) {
		return strconv.FormatInt(value.IntPart(), 10)
	}
	return report.FormatAmount(value)
}

func applyPDFStyle(pdf *gofpdf.Fpdf, style report.Style) {
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(255, 255, 255)
	switch style {
	case report.StyleTitle:
		pdf.SetFont("Arial", "B", 14)
		pdf.SetFillColor(31, 78, 120)
		pdf.SetTextColor(255, 255, 255)
	case report.StyleSection:
		pdf.SetFont("Arial", "B", 11)
		pdf.SetFillColor(217, 225, 242)
	case report.StyleHeader:
		pdf.SetFont("Arial", "B", 8)
		pdf.SetFillColor(242, 242, 242)
	case report.StyleLabel:
		pdf.SetFont("Arial", "B", 9)
	case report.StyleMissing:
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(128, 128, 128)
	default:
		pdf.SetFont("Arial", "", 8)
	}
}

// fitText cuts already translated single-byte text with an ellipsis so it
// stays inside one cell.
func fitText(pdf *gofpdf.Fpdf, text string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(text) <= limit {
		return text
	}
	cut := len(text)
	for cut > 0 && pdf.GetStringWidth(text[:cut]+"...") > limit {
		cut--
	}
	return text[:cut] + "..."
}
