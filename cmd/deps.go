package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/lehigh-university-libraries/bookshelf/internal/acquire"
	"github.com/lehigh-university-libraries/bookshelf/internal/cataloging"
	"github.com/lehigh-university-libraries/bookshelf/internal/config"
	"github.com/lehigh-university-libraries/bookshelf/internal/gemini"
	"github.com/lehigh-university-libraries/bookshelf/internal/identity"
	"github.com/lehigh-university-libraries/bookshelf/internal/ingest"
	"github.com/lehigh-university-libraries/bookshelf/internal/ocr"
	"github.com/lehigh-university-libraries/bookshelf/internal/ollama"
	"github.com/lehigh-university-libraries/bookshelf/internal/openai"
	"github.com/lehigh-university-libraries/bookshelf/internal/providers"
	"github.com/lehigh-university-libraries/bookshelf/internal/store"
)

func newProvider(name string) (providers.Provider, error) {
	switch name {
	case "ollama":
		return ollama.New(), nil
	case "openai":
		return openai.New(), nil
	case "gemini":
		return gemini.New(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}

func openStore(ctx context.Context, cfg config.Config) (store.BookStore, error) {
	hasher := identity.New(cfg.Identity.Length, cfg.Identity.StripDiacritics)
	return store.Open(ctx, cfg.Store, hasher)
}

func openOCR(cfg config.Config) (*ocr.Service, error) {
	var provider providers.Provider
	if cfg.OCR.Engine != "tesseract" && cfg.OCR.Engine != "none" {
		p, err := newProvider(cfg.OCR.Engine)
		if err != nil {
			return nil, err
		}
		provider = p
	}
	return ocr.Open(cfg.OCR, provider)
}

// newAcquirer chains the configured metadata sources in order.
func newAcquirer(cfg config.Config, recognizer ocr.Recognizer, in io.Reader, out io.Writer) (acquire.Acquirer, error) {
	var chain acquire.Chain
	for _, source := range cfg.Metadata.Sources {
		switch source {
		case "catalog":
			catalog, err := acquire.LoadCatalog(cfg.Metadata.CatalogFile)
			if err != nil {
				return nil, err
			}
			slog.Debug("Loaded metadata catalog", "path", cfg.Metadata.CatalogFile, "books", catalog.Len())
			chain = append(chain, catalog)
		case "prompt":
			chain = append(chain, acquire.NewPrompt(in, out))
		case "llm":
			provider, err := newProvider(cfg.Metadata.Provider)
			if err != nil {
				return nil, err
			}
			extractor := cataloging.NewService(provider, cfg.Metadata.Model)
			chain = append(chain, acquire.NewLLM(recognizer, extractor, cfg.OCR.DefaultLanguage))
		default:
			return nil, fmt.Errorf("unsupported metadata source: %s", source)
		}
	}
	return chain, nil
}

// newEngine wires an ingestion engine. The caller closes the returned store.
func newEngine(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer) (*ingest.Engine, store.BookStore, error) {
	recognizer, err := openOCR(cfg)
	if err != nil {
		return nil, nil, err
	}
	acquirer, err := newAcquirer(cfg, recognizer, in, out)
	if err != nil {
		return nil, nil, err
	}
	bookStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	engine := ingest.New(cfg, ingest.Deps{
		Store:    bookStore,
		OCR:      recognizer,
		Acquirer: acquirer,
		Logger:   slog.Default(),
	})
	return engine, bookStore, nil
}
