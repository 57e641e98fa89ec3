package render

import (
	"bytes"
	"context"
	"fmt"

	wkhtmltopdf "github.com/SebastiaanKlippert/go-wkhtmltopdf"
)

// WKHTMLConverter rasterizes HTML to PDF through the wkhtmltopdf binary.
type WKHTMLConverter struct{}

// NewWKHTMLConverter returns the wkhtmltopdf-backed converter.
func NewWKHTMLConverter() *WKHTMLConverter {
	return &WKHTMLConverter{}
}

// Convert runs wkhtmltopdf over the HTML document.
func (c *WKHTMLConverter) Convert(ctx context.Context, html []byte) ([]byte, error) {
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize wkhtmltopdf: %w", err)
	}

	page := wkhtmltopdf.NewPageReader(bytes.NewReader(html))
	page.EnableLocalFileAccess.Set(false)
	pdfg.AddPage(page)

	if err := pdfg.CreateContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return pdfg.Bytes(), nil
}
