package export

import (
	"fmt"
	"strings"
)

// Format names a rendering target for report output.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

// ParseFormat normalises a user supplied format, defaulting to JSON.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q", raw)
	}
}

// ContentType returns the MIME type for binary formats.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/json"
	}
}

// Renderer dispatches a dataset to the matching exporter.
type Renderer struct {
	csv *CSVExporter
	pdf *PDFExporter
}

// NewRenderer wires the CSV and PDF exporters.
func NewRenderer() *Renderer {
	return &Renderer{csv: NewCSVExporter(), pdf: NewPDFExporter()}
}

// Render encodes the dataset. JSON is handled by the HTTP layer and is rejected here.
func (r *Renderer) Render(format Format, data Dataset, title string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return r.csv.Render(data)
	case FormatPDF:
		return r.pdf.Render(data, title)
	default:
		return nil, fmt.Errorf("format %q is not a file format", format)
	}
}
