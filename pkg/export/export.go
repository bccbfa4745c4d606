package export

import (
	"fmt"
	"strings"
)

// Format names a supported document format.
type Format string

// Supported formats.
const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat resolves a case-insensitive format name. An empty name means CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unsupported export format %q", raw)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	return string(f)
}

// Dataset defines tabular export content. Rows are positional and must match
// Headers in length; Footer is an optional trailing summary row.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
	Footer  []string
}

func (d Dataset) validate() error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("dataset requires at least one header")
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Headers) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(d.Headers))
		}
	}
	if len(d.Footer) > 0 && len(d.Footer) != len(d.Headers) {
		return fmt.Errorf("footer has %d cells, want %d", len(d.Footer), len(d.Headers))
	}
	return nil
}

// Renderer turns a dataset into document bytes.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
}

// Registry maps formats to renderers.
type Registry map[Format]Renderer

// NewRegistry returns a registry with the CSV and PDF renderers.
func NewRegistry() Registry {
	return Registry{
		FormatCSV: NewCSVExporter(),
		FormatPDF: NewPDFExporter(),
	}
}

// Render renders data in the requested format.
func (r Registry) Render(format Format, data Dataset) ([]byte, error) {
	renderer, ok := r[format]
	if !ok {
		return nil, fmt.Errorf("no renderer for format %q", format)
	}
	return renderer.Render(data)
}
