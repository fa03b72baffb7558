// -----------------------------------------------------------------------
// PDF Extractor Interface - Extract text content from uploaded PDF reports
// -----------------------------------------------------------------------

package interfaces

import (
	"context"
)

// PDFPageContent represents extracted content from a single PDF page
type PDFPageContent struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// PDFExtractor extracts text from PDF documents held in memory.
type PDFExtractor interface {
	// ExtractTextFromBytes returns the text of every page, joined with newlines.
	ExtractTextFromBytes(ctx context.Context, data []byte) (string, error)

	// ExtractPagesFromBytes returns the text of each page.
	ExtractPagesFromBytes(ctx context.Context, data []byte) ([]PDFPageContent, error)
}
