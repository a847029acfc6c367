package acquire

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/bookshelf/internal/models"
)

func TestChain(t *testing.T) {
	declined := Func(func(ctx context.Context, req Request) (models.Metadata, error) {
		return models.Metadata{}, ErrDeclined
	})
	answer := Func(func(ctx context.Context, req Request) (models.Metadata, error) {
		return models.Metadata{Title: "Lalka", Authors: req.Alias}, nil
	})
	failing := Func(func(ctx context.Context, req Request) (models.Metadata, error) {
		return models.Metadata{}, errors.New("offline")
	})

	tests := []struct {
		name      string
		chain     Chain
		wantTitle string
		wantErr   error
		anyErr    bool
	}{
		{name: "empty chain declines", chain: Chain{}, wantErr: ErrDeclined},
		{name: "decline falls through", chain: Chain{declined, answer}, wantTitle: "Lalka"},
		{name: "first answer wins", chain: Chain{answer, failing}, wantTitle: "Lalka"},
		{name: "error stops chain", chain: Chain{declined, failing, answer}, anyErr: true},
		{name: "all declined", chain: Chain{declined, declined}, wantErr: ErrDeclined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := tt.chain.Acquire(context.Background(), Request{Alias: "Lalka_tom1"})
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			if tt.anyErr {
				if err == nil || errors.Is(err, ErrDeclined) {
					t.Fatalf("Expected a hard error, got %v", err)
				}
				return
			}
			if meta.Title != tt.wantTitle {
				t.Errorf("Expected %s, got %s", tt.wantTitle, meta.Title)
			}
		})
	}
}

func TestPrompt(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		declined bool
		check    func(t *testing.T, meta models.Metadata)
	}{
		{
			name:  "full answers",
			input: "Lalka\nBolesław Prus\n1890\nWarszawa\nGebethner i Wolff\n684\npierwsze wydanie\npowieść, Warszawa ,\nn\nt\nN\n",
			check: func(t *testing.T, meta models.Metadata) {
				if meta.Title != "Lalka" || meta.Authors != "Bolesław Prus" || meta.Year != "1890" || meta.Place != "Warszawa" {
					t.Errorf("Unexpected metadata %+v", meta)
				}
				if meta.PageCount != 684 {
					t.Errorf("Expected 684 pages, got %d", meta.PageCount)
				}
				if strings.Join(meta.Keywords, "|") != "powieść|Warszawa" {
					t.Errorf("Expected trimmed keywords, got %v", meta.Keywords)
				}
				if meta.HasMaps || !meta.HasIllustrations || meta.HasTables {
					t.Errorf("Unexpected flags %+v", meta)
				}
			},
		},
		{
			name:  "non numeric page count ignored",
			input: "Faraon\nBolesław Prus\n\n\n\nokoło 300\n\n\n\n\n\n",
			check: func(t *testing.T, meta models.Metadata) {
				if meta.PageCount != 0 {
					t.Errorf("Expected no page count, got %d", meta.PageCount)
				}
				if meta.Keywords != nil {
					t.Errorf("Expected no keywords, got %v", meta.Keywords)
				}
			},
		},
		{name: "missing authors declines", input: "Lalka\n\n1890\n", declined: true},
		{name: "missing title declines", input: "\nBolesław Prus\n", declined: true},
		{name: "closed input declines", input: "", declined: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompt(strings.NewReader(tt.input), &out)
			meta, err := p.Acquire(context.Background(), Request{Alias: "Lalka_tom1"})
			if !strings.Contains(out.String(), "Lalka_tom1") {
				t.Errorf("Expected alias in banner, got %q", out.String())
			}
			if tt.declined {
				if !errors.Is(err, ErrDeclined) {
					t.Errorf("Expected ErrDeclined, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Acquire returned error: %v", err)
			}
			tt.check(t, meta)
		})
	}
}

func TestPromptCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewPrompt(strings.NewReader("Lalka\nPrus\n"), &bytes.Buffer{})
	if _, err := p.Acquire(ctx, Request{Alias: "x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := `Lalka_tom1:
  title: Lalka
  authors: Bolesław Prus
  year: "1890"
  pub_place: Warszawa
  keywords: [powieść]
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog returned error: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("Expected 1 entry, got %d", c.Len())
	}

	tests := []struct {
		name     string
		alias    string
		expected string
		declined bool
	}{
		{name: "exact alias", alias: "Lalka_tom1", expected: "Lalka"},
		{name: "case insensitive alias", alias: "LALKA_TOM1", expected: "Lalka"},
		{name: "unknown alias", alias: "Faraon", declined: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := c.Acquire(context.Background(), Request{Alias: tt.alias})
			if tt.declined {
				if !errors.Is(err, ErrDeclined) {
					t.Errorf("Expected ErrDeclined, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Acquire returned error: %v", err)
			}
			if meta.Title != tt.expected || meta.Place != "Warszawa" {
				t.Errorf("Expected %s, got %+v", tt.expected, meta)
			}
		})
	}
}

func TestLoadCatalogMissingAndInvalid(t *testing.T) {
	dir := t.TempDir()
	c, err := LoadCatalog(filepath.Join(dir, "missing.yaml"))
	if err != nil || c.Len() != 0 {
		t.Errorf("Expected empty catalog, got %v, %v", c, err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("- just\n- a list\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCatalog(bad); err == nil {
		t.Error("Expected error for malformed catalog")
	}
}

type fakeRecognizer struct {
	text    string
	gotPath string
	gotLang string
}

func (f *fakeRecognizer) Recognize(ctx context.Context, imagePath, lang string) string {
	f.gotPath = imagePath
	f.gotLang = lang
	return f.text
}

type fakeExtractor struct {
	meta models.Metadata
	err  error
	got  string
}

func (f *fakeExtractor) ExtractMetadata(ctx context.Context, ocrText string) (models.Metadata, error) {
	f.got = ocrText
	return f.meta, f.err
}

func TestLLM(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		extractor *fakeExtractor
		scanPath  string
		wantTitle string
		declined  bool
		hardErr   bool
	}{
		{name: "extracts metadata", text: "LALKA", extractor: &fakeExtractor{meta: models.Metadata{Title: "Lalka"}}, scanPath: "in/Lalka_t0001.jpg", wantTitle: "Lalka"},
		{name: "no scan path declines", extractor: &fakeExtractor{}, declined: true},
		{name: "no text declines", text: "", extractor: &fakeExtractor{}, scanPath: "in/x.jpg", declined: true},
		{name: "empty title declines", text: "???", extractor: &fakeExtractor{meta: models.Metadata{Authors: "Prus"}}, scanPath: "in/x.jpg", declined: true},
		{name: "extractor error propagates", text: "LALKA", extractor: &fakeExtractor{err: errors.New("offline")}, scanPath: "in/x.jpg", hardErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecognizer{text: tt.text}
			l := NewLLM(rec, tt.extractor, "pol")
			meta, err := l.Acquire(context.Background(), Request{Alias: "Lalka", ScanPath: tt.scanPath})
			switch {
			case tt.declined:
				if !errors.Is(err, ErrDeclined) {
					t.Errorf("Expected ErrDeclined, got %v", err)
				}
			case tt.hardErr:
				if err == nil || errors.Is(err, ErrDeclined) {
					t.Errorf("Expected hard error, got %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("Acquire returned error: %v", err)
				}
				if meta.Title != tt.wantTitle {
					t.Errorf("Expected %s, got %s", tt.wantTitle, meta.Title)
				}
				if rec.gotLang != "pol" || rec.gotPath != tt.scanPath {
					t.Errorf("Expected OCR of %s in pol, got %s in %s", tt.scanPath, rec.gotPath, rec.gotLang)
				}
				if tt.extractor.got != tt.text {
					t.Errorf("Expected %s, got %s", tt.text, tt.extractor.got)
				}
			}
		})
	}
}
