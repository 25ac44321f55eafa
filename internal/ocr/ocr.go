package ocr

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/litscan/litscan/internal/config"
)

// Extractor extracts text from the first page of a PDF file. Bibliographic
// metadata lives on page one; later pages are never read.
type Extractor interface {
	ExtractFirstPage(ctx context.Context, pdfPath string) (string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "local", "":
		return NewPdfToText(cfg.PdfToTextPath), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}
