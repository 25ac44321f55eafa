package ocr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litscan/litscan/internal/config"
)

func TestNewExtractorProviders(t *testing.T) {
	ex, err := NewExtractor(config.OCRConfig{Provider: "local"})
	require.NoError(t, err)
	assert.IsType(t, &PdfToText{}, ex)

	ex, err = NewExtractor(config.OCRConfig{})
	require.NoError(t, err)
	assert.IsType(t, &PdfToText{}, ex)

	_, err = NewExtractor(config.OCRConfig{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestExtractFirstPageMissingFile(t *testing.T) {
	p := NewPdfToText("")
	_, err := p.ExtractFirstPage(context.Background(), "/nonexistent/paper.pdf")
	assert.Error(t, err)
}
