package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Format names a supported export encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

// ParseFormat normalises a query value; empty means xlsx.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

// Filename builds a timestamped attachment name.
func (f Format) Filename(base string, at time.Time) string {
	return fmt.Sprintf("%s_%s.%s", base, at.Format("20060102_150405"), f)
}

// Dataset defines tabular export content. Row cells are positional and may be
// strings, numbers, decimals, times or nil.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]interface{}
}

// Renderer encodes a dataset.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
}

// Render encodes data using the exporter registered for format.
func Render(format Format, data Dataset) ([]byte, error) {
	var r Renderer
	switch format {
	case FormatCSV:
		r = NewCSVExporter()
	case FormatPDF:
		r = NewPDFExporter()
	case FormatXLSX:
		r = NewXLSXExporter()
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	return r.Render(data)
}

func cellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case *string:
		if val == nil {
			return ""
		}
		return *val
	case decimal.Decimal:
		return val.StringFixed(2)
	case time.Time:
		if val.IsZero() {
			return ""
		}
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	case *time.Time:
		if val == nil {
			return ""
		}
		return cellString(*val)
	case *int64:
		if val == nil {
			return ""
		}
		return fmt.Sprintf("%d", *val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func validate(data Dataset) error {
	if len(data.Headers) == 0 {
		return fmt.Errorf("export requires at least one header")
	}
	return nil
}
