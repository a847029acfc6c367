package acquire

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/bookshelf/internal/models"
	"github.com/lehigh-university-libraries/bookshelf/internal/ocr"
)

// MetadataExtractor turns title page text into metadata.
type MetadataExtractor interface {
	ExtractMetadata(ctx context.Context, ocrText string) (models.Metadata, error)
}

// LLM reads the alias's first scan and asks a model for its metadata.
type LLM struct {
	ocr       ocr.Recognizer
	extractor MetadataExtractor
	lang      string
}

func NewLLM(recognizer ocr.Recognizer, extractor MetadataExtractor, lang string) *LLM {
	return &LLM{ocr: recognizer, extractor: extractor, lang: lang}
}

func (l *LLM) Acquire(ctx context.Context, req Request) (models.Metadata, error) {
	if req.ScanPath == "" {
		return models.Metadata{}, ErrDeclined
	}

	text := l.ocr.Recognize(ctx, req.ScanPath, l.lang)
	if text == "" {
		slog.Info("No text on first scan, cannot extract metadata", "alias", req.Alias, "path", req.ScanPath)
		return models.Metadata{}, ErrDeclined
	}

	meta, err := l.extractor.ExtractMetadata(ctx, text)
	if err != nil {
		return models.Metadata{}, fmt.Errorf("failed to extract metadata for %s: %w", req.Alias, err)
	}
	if meta.Title == "" {
		return models.Metadata{}, ErrDeclined
	}
	return meta, nil
}
