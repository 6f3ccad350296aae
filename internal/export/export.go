package export

import (
	"strings"
	"time"

	"genfity-order-reports/internal/report"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"
)

// ParseFormat defaults to xlsx.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "xlsx", "excel":
		return FormatXLSX, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", report.ValidationError(report.ErrInvalidFormat, "Format must be xlsx or pdf", map[string]any{"format": raw})
	}
}

func (f Format) ContentType() string {
	if f == FormatPDF {
		return ContentTypePDF
	}
	return ContentTypeXLSX
}

// Filename is stamped with the build time, e.g. Order_Report_20260118_093000.xlsx.
func Filename(f Format, at time.Time) string {
	return "Order_Report_" + at.Format("20060102_150405") + "." + string(f)
}

type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Render writes doc with the sink for f. Failures come back as EXPORT_FAILED
// and leave doc untouched, so a caller can retry with the same document.
func Render(doc report.Document, f Format, at time.Time) (Artifact, error) {
	var (
		body []byte
		err  error
	)
	switch f {
	case FormatPDF:
		body, err = RenderPDF(doc)
	default:
		f = FormatXLSX
		body, err = RenderXLSX(doc)
	}
	if err != nil {
		return Artifact{}, report.ExportError(err)
	}
	return Artifact{Filename: Filename(f, at), ContentType: f.ContentType(), Body: body}, nil
}
