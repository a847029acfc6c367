package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/bookshelf/internal/config"
	"github.com/lehigh-university-libraries/bookshelf/internal/providers"
)

type fakeEngine struct {
	available bool
	text      string
	err       error
	gotLang   string
	calls     int
}

func (f *fakeEngine) Name() string    { return "fake" }
func (f *fakeEngine) Available() bool { return f.available }
func (f *fakeEngine) Recognize(ctx context.Context, imagePath, lang string) (string, error) {
	f.calls++
	f.gotLang = lang
	return f.text, f.err
}

func writeImage(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 4, 1))
	for x, v := range []uint8{0, 127, 128, 255} {
		img.SetGray(x, 0, color.Gray{Y: v})
	}
	path := filepath.Join(dir, "Book_s0001.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestServiceRecognize(t *testing.T) {
	path := writeImage(t, t.TempDir())
	opts := Options{DefaultLanguage: "pol", Languages: []string{"pol", "eng"}}

	tests := []struct {
		name     string
		engine   *fakeEngine
		path     string
		lang     string
		expected string
		wantLang string
	}{
		{name: "returns trimmed text", engine: &fakeEngine{available: true, text: "  Rozdział I\n"}, path: path, lang: "pol", expected: "Rozdział I", wantLang: "pol"},
		{name: "supported language passes through", engine: &fakeEngine{available: true, text: "x"}, path: path, lang: "eng", expected: "x", wantLang: "eng"},
		{name: "unsupported language falls back", engine: &fakeEngine{available: true, text: "x"}, path: path, lang: "deu", expected: "x", wantLang: "pol"},
		{name: "empty language uses default", engine: &fakeEngine{available: true, text: "x"}, path: path, lang: "", expected: "x", wantLang: "pol"},
		{name: "engine error is empty text", engine: &fakeEngine{available: true, err: errors.New("boom")}, path: path, lang: "pol", expected: ""},
		{name: "unavailable engine is empty text", engine: &fakeEngine{available: false, text: "x"}, path: path, lang: "pol", expected: ""},
		{name: "missing image is empty text", engine: &fakeEngine{available: true, text: "x"}, path: filepath.Join(t.TempDir(), "missing.jpg"), lang: "pol", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(tt.engine, opts)
			result := s.Recognize(context.Background(), tt.path, tt.lang)
			if result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
			if tt.wantLang != "" && tt.engine.gotLang != tt.wantLang {
				t.Errorf("Expected engine language %s, got %s", tt.wantLang, tt.engine.gotLang)
			}
		})
	}
}

func TestNilEngine(t *testing.T) {
	s := NewService(nil, Options{DefaultLanguage: "pol"})
	if got := s.Recognize(context.Background(), "anything.jpg", "pol"); got != "" {
		t.Errorf("Expected empty text, got %q", got)
	}
}

func TestBinarize(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 1))
	for x, v := range []uint8{0, 127, 128, 255} {
		img.SetGray(x, 0, color.Gray{Y: v})
	}

	out := Binarize(img, 128)
	want := []uint8{0, 0, 255, 255}
	for x, w := range want {
		if got := out.GrayAt(x, 0).Y; got != w {
			t.Errorf("Pixel %d: expected %d, got %d", x, w, got)
		}
	}
}

func fakeTesseract(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a unix shell")
	}
	script := filepath.Join(t.TempDir(), "tesseract")
	content := "#!/bin/sh\nif [ ! -f \"$1\" ]; then echo missing >&2; exit 1; fi\necho \"$2 $3 $4 $5 $6\"\n"
	if err := os.WriteFile(script, []byte(content), 0o755); err != nil {
		t.Fatal(err)
	}
	return script
}

func TestTesseract(t *testing.T) {
	path := writeImage(t, t.TempDir())

	for _, bw := range []bool{false, true} {
		engine := NewTesseract(fakeTesseract(t), bw, 128)
		if !engine.Available() {
			t.Fatal("Expected fake tesseract to be available")
		}
		text, err := engine.Recognize(context.Background(), path, "pol")
		if err != nil {
			t.Fatalf("Recognize returned error: %v", err)
		}
		if strings.TrimSpace(text) != "stdout -l pol --psm 3" {
			t.Errorf("Unexpected tesseract arguments: %q", text)
		}
	}
}

func TestTesseractUnavailable(t *testing.T) {
	engine := NewTesseract(filepath.Join(t.TempDir(), "no-such-binary"), false, 128)
	if engine.Available() {
		t.Error("Expected missing binary to be unavailable")
	}
}

type fakeProvider struct {
	got providers.Config
}

func (f *fakeProvider) Name() string         { return "fake" }
func (f *fakeProvider) DefaultModel() string { return "fake-model" }
func (f *fakeProvider) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	f.got = config
	return "Mapa Polski", nil
}

func TestVision(t *testing.T) {
	path := writeImage(t, t.TempDir())
	p := &fakeProvider{}

	text, err := NewVision(p, "llava").Recognize(context.Background(), path, "pol")
	if err != nil {
		t.Fatalf("Recognize returned error: %v", err)
	}
	if text != "Mapa Polski" {
		t.Errorf("Expected Mapa Polski, got %s", text)
	}
	if p.got.Model != "llava" || p.got.Temperature != 0 {
		t.Errorf("Expected zero temperature llava request, got %+v", p.got)
	}
	if len(p.got.Images) != 1 || p.got.Images[0].MIMEType != "image/png" {
		t.Errorf("Expected one png image, got %+v", p.got.Images)
	}
	if !strings.Contains(p.got.Prompt, "Polish") {
		t.Errorf("Expected language hint in prompt")
	}
}

func TestOpen(t *testing.T) {
	cfg := config.Default().OCR

	tests := []struct {
		name     string
		engine   string
		provider providers.Provider
		wantErr  bool
	}{
		{name: "tesseract", engine: "tesseract"},
		{name: "none", engine: "none"},
		{name: "vision", engine: "ollama", provider: &fakeProvider{}},
		{name: "vision without provider", engine: "openai", wantErr: true},
		{name: "unknown", engine: "abbyy", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			c.Engine = tt.engine
			_, err := Open(c, tt.provider)
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}
