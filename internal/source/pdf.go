// Package source provides readers for source material: PDF documents and
// time-aligned video transcripts.
package source

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ledongthuc/pdf"

	"github.com/hyperjump/kotae/internal/models"
)

// ReadPDF extracts page-indexed text from the PDF at path. The source ID is
// the file's base name. Pages that fail extraction are returned with empty
// text; the chunker decides how to handle them.
func ReadPDF(path string) (*models.PDFDocument, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return ParsePDF(filepath.Base(path), content)
}

// ParsePDF extracts page-indexed text from raw PDF bytes.
func ParsePDF(sourceID string, content []byte) (*models.PDFDocument, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf %s: %v", models.ErrMalformedSource, sourceID, err)
	}
	doc := &models.PDFDocument{SourceID: sourceID}
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			doc.Pages = append(doc.Pages, models.PageText{Number: i})
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not fail the document.
			doc.Pages = append(doc.Pages, models.PageText{Number: i})
			continue
		}
		doc.Pages = append(doc.Pages, models.PageText{Number: i, Text: text})
	}
	return doc, nil
}
