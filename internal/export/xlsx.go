package export

import (
	"genfity-order-reports/internal/report"

	"github.com/xuri/excelize/v2"
)

const (
	colorTitleFill   = "#1F4E78"
	colorSectionFill = "#D9E1F2"
	colorHeaderFill  = "#F2F2F2"
	colorMissingFont = "#808080"
)

// RenderXLSX writes the document to a single-sheet workbook.
func RenderXLSX(doc report.Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := doc.SheetName
	if sheet == "" {
		sheet = report.DocumentSheetName
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	styles := newStyleCache(f)
	for r, row := range doc.Rows {
		for c, cell := range row {
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			if err := setCell(f, sheet, axis, cell); err != nil {
				return nil, err
			}
			styleID, err := styles.get(cell)
			if err != nil {
				return nil, err
			}
			if styleID == 0 {
				continue
			}
			if err := f.SetCellStyle(sheet, axis, axis, styleID); err != nil {
				return nil, err
			}
		}
	}

	for _, m := range doc.Merges {
		start, err := excelize.CoordinatesToCellName(m.StartCol+1, m.StartRow+1)
		if err != nil {
			return nil, err
		}
		end, err := excelize.CoordinatesToCellName(m.EndCol+1, m.EndRow+1)
		if err != nil {
			return nil, err
		}
		if err := f.MergeCell(sheet, start, end); err != nil {
			return nil, err
		}
	}

	for _, w := range doc.ColumnWidths {
		col, err := excelize.ColumnNumberToName(w.Col + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, col, col, w.Width); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, sheet, axis string, cell report.Cell) error {
	if value, ok := cell.Number(); ok {
		return f.SetCellValue(sheet, axis, value.InexactFloat64())
	}
	return f.SetCellStr(sheet, axis, cell.Text())
}

type styleKey struct {
	style  report.Style
	format string
}

type styleCache struct {
	f   *excelize.File
	ids map[styleKey]int
}

func newStyleCache(f *excelize.File) *styleCache {
	return &styleCache{f: f, ids: map[styleKey]int{}}
}

func (s *styleCache) get(cell report.Cell) (int, error) {
	key := styleKey{style: cell.Style, format: cell.NumberFormat}
	if id, ok := s.ids[key]; ok {
		return id, nil
	}
	def := styleFor(cell)
	if def == nil {
		s.ids[key] = 0
		return 0, nil
	}
	id, err := s.f.NewStyle(def)
	if err != nil {
		return 0, err
	}
	s.ids[key] = id
	return id, nil
}

func styleFor(cell report.Cell) *excelize.Style {
	var st *excelize.Style
	switch cell.Style {
	case report.StyleTitle:
		st = &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 16, Color: "#FFFFFF"},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{colorTitleFill}},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		}
	case report.StyleSection:
		st = &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 12},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{colorSectionFill}},
			Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
		}
	case report.StyleHeader:
		st = &excelize.Style{
			Font:   &excelize.Font{Bold: true},
			Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{colorHeaderFill}},
			Border: thinBorder(),
		}
	case report.StyleLabel:
		st = &excelize.Style{Font: &excelize.Font{Bold: true}}
	case report.StyleMissing:
		st = &excelize.Style{Font: &excelize.Font{Italic: true, Color: colorMissingFont}}
	case report.StyleCurrency, report.StyleValue:
		st = &excelize.Style{}
	default:
		if cell.NumberFormat == "" {
			return nil
		}
		st = &excelize.Style{}
	}
	if cell.Type == report.CellNumber && cell.NumberFormat != "" {
		format := cell.NumberFormat
		st.CustomNumFmt = &format
	}
	if cell.Type == report.CellText && cell.Style == report.StyleValue {
		st.Alignment = &excelize.Alignment{WrapText: true, Vertical: "top"}
	}
	return st
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "#BFBFBF", Style: 1},
		{Type: "top", Color: "#BFBFBF", Style: 1},
		{Type: "right", Color: "#BFBFBF", Style: 1},
		{Type: "bottom", Color: "#BFBFBF", Style: 1},
	}
}
