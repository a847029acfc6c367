package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/lehigh-university-libraries/bookshelf/internal/config"
	"github.com/lehigh-university-libraries/bookshelf/internal/providers"
)

// Recognizer returns the text of an image, or "" when anything goes wrong.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath, lang string) string
}

// Engine is one OCR backend. Unlike Recognizer it reports its failures.
type Engine interface {
	Name() string
	Available() bool
	Recognize(ctx context.Context, imagePath, lang string) (string, error)
}

// Options controls language selection.
type Options struct {
	DefaultLanguage string
	Languages       []string
}

// Service handles OCR extraction from images
type Service struct {
	engine Engine
	opts   Options
}

// NewService wraps engine. A nil engine makes every page textless.
func NewService(engine Engine, opts Options) *Service {
	return &Service{engine: engine, opts: opts}
}

// Open builds the service selected by cfg.Engine. Vision engines send pages
// to provider, which must match the engine name.
func Open(cfg config.OCRConfig, provider providers.Provider) (*Service, error) {
	opts := Options{DefaultLanguage: cfg.DefaultLanguage, Languages: cfg.Languages}

	switch cfg.Engine {
	case "none":
		return NewService(nil, opts), nil
	case "tesseract":
		return NewService(NewTesseract(cfg.Command, cfg.BlackAndWhite, cfg.Threshold), opts), nil
	case "ollama", "openai", "gemini":
		if provider == nil {
			return nil, fmt.Errorf("ocr engine %s needs a provider", cfg.Engine)
		}
		return NewService(NewVision(provider, cfg.Model), opts), nil
	default:
		return nil, fmt.Errorf("unsupported OCR engine: %s", cfg.Engine)
	}
}

// Language returns lang when it is supported and the default otherwise.
func (s *Service) Language(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if slices.Contains(s.opts.Languages, lang) {
		return lang
	}
	return s.opts.DefaultLanguage
}

// Recognize runs the engine and degrades every failure to "".
func (s *Service) Recognize(ctx context.Context, imagePath, lang string) string {
	if s.engine == nil {
		return ""
	}

	resolved := s.Language(lang)
	if lang != "" && resolved != lang {
		slog.Warn("Unsupported OCR language, using default", "lang", lang, "default", resolved)
	}

	if _, err := os.Stat(imagePath); err != nil {
		slog.Warn("Image not available for OCR", "path", imagePath, "err", err)
		return ""
	}
	if !s.engine.Available() {
		slog.Warn("OCR engine not available", "engine", s.engine.Name())
		return ""
	}

	text, err := s.engine.Recognize(ctx, imagePath, resolved)
	if err != nil {
		slog.Warn("OCR failed", "engine", s.engine.Name(), "path", imagePath, "err", err)
		return ""
	}

	text = strings.TrimSpace(text)
	slog.Debug("Extracted OCR text", "engine", s.engine.Name(), "path", imagePath, "length", len(text))
	return text
}
