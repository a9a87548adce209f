package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets into a tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
// Wide datasets, such as the enrollment roster, switch to landscape.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}

	orientation := "P"
	usable := 190.0
	if len(data.Headers) > 6 {
		orientation = "L"
		usable = 277.0
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	widths := columnWidths(data, usable)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	for i, header := range data.Headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			pdf.CellFormat(widths[i], 7, row[header], "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths splits the usable width in proportion to each column's
// longest cell, capped at 40 characters, so name columns get more room
// than numeric ones.
func columnWidths(data Dataset, usable float64) []float64 {
	weights := make([]float64, len(data.Headers))
	total := 0.0
	for i, header := range data.Headers {
		longest := len(header)
		for _, row := range data.Rows {
			if l := len(row[header]); l > longest {
				longest = l
			}
		}
		if longest > 40 {
			longest = 40
		}
		weights[i] = float64(longest)
		total += weights[i]
	}

	widths := make([]float64, len(weights))
	for i, w := range weights {
		widths[i] = usable * w / total
	}
	return widths
}
