package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// PageTypeCodes is the closed set of page type codes a scan filename may carry.
const PageTypeCodes = "wsimtcgoeb"

// Config is the immutable run configuration handed to every constructor.
type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	Identity IdentityConfig `yaml:"identity"`
	Filename FilenameConfig `yaml:"filename"`
	OCR      OCRConfig      `yaml:"ocr"`
	Store    StoreConfig    `yaml:"store"`
	Metadata MetadataConfig `yaml:"metadata"`
	Timeline TimelineConfig `yaml:"timeline"`
}

type PathsConfig struct {
	Inbox     string `yaml:"inbox"`
	Processed string `yaml:"processed"`
	Outputs   string `yaml:"outputs"`
	Logs      string `yaml:"logs"`
	// Rejected, when set, receives malformed inbox files instead of deleting them.
	Rejected string `yaml:"rejected_dir"`
}

type IdentityConfig struct {
	Length          int  `yaml:"length"`
	StripDiacritics bool `yaml:"strip_diacritics"`
}

type FilenameConfig struct {
	Padding int               `yaml:"padding"`
	Labels  map[string]string `yaml:"labels"`
}

type OCRConfig struct {
	// Engine is one of tesseract, ollama, openai, gemini or none.
	Engine          string   `yaml:"engine"`
	Command         string   `yaml:"command"`
	Model           string   `yaml:"model"`
	DefaultLanguage string   `yaml:"default_language"`
	Languages       []string `yaml:"languages"`
	BlackAndWhite   bool     `yaml:"black_and_white"`
	Threshold       int      `yaml:"threshold"`
	TextPageTypes   []string `yaml:"text_page_types"`
}

type StoreConfig struct {
	// Backend is one of memory, sqlite or mongo.
	Backend         string        `yaml:"backend"`
	SQLitePath      string        `yaml:"sqlite_path"`
	MongoURI        string        `yaml:"mongo_uri"`
	MongoDatabase   string        `yaml:"mongo_database"`
	MongoCollection string        `yaml:"mongo_collection"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
}

type MetadataConfig struct {
	// Sources are consulted in order; a decline falls through to the next one.
	Sources     []string `yaml:"sources"`
	CatalogFile string   `yaml:"catalog_file"`
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
}

type TimelineConfig struct {
	SnippetLength int      `yaml:"snippet_length"`
	Output        string   `yaml:"output"`
	Places        []string `yaml:"places"`
}

// DefaultLabels maps page type codes to their display labels.
func DefaultLabels() map[string]string {
	return map[string]string{
		"w": "Wstęp",
		"s": "Strona Główna",
		"m": "Mapa",
		"i": "Ilustracja",
		"t": "Tabela",
		"c": "Okładka",
		"g": "Grzbiet",
		"o": "Obwoluta",
		"e": "Wyklejka",
		"b": "Pusta Strona",
	}
}

// DefaultPlaces is the gazetteer matched against OCR text.
func DefaultPlaces() []string {
	return []string{
		"Warszawa", "Kraków", "Gdańsk", "Poznań", "Londyn", "Berlin", "Rzym",
		"Kair", "Paris", "New York", "Moskwa", "Lwów", "Wiedeń",
	}
}

func defaults() Config {
	return Config{
		Paths: PathsConfig{
			Inbox:     "scans",
			Processed: "processed",
			Outputs:   "outputs",
			Logs:      "logs",
		},
		Identity: IdentityConfig{
			Length:          12,
			StripDiacritics: true,
		},
		Filename: FilenameConfig{
			Padding: 4,
			Labels:  DefaultLabels(),
		},
		OCR: OCRConfig{
			Engine:          "tesseract",
			Command:         "tesseract",
			DefaultLanguage: "pol",
			Languages:       []string{"pol", "eng"},
			BlackAndWhite:   true,
			Threshold:       128,
			TextPageTypes:   []string{"w", "s"},
		},
		Store: StoreConfig{
			Backend:         "sqlite",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "moja_biblioteka_db",
			MongoCollection: "books",
			ConnectTimeout:  5 * time.Second,
		},
		Metadata: MetadataConfig{
			Sources:     []string{"catalog", "prompt"},
			CatalogFile: "catalog.yaml",
			Provider:    "ollama",
		},
		Timeline: TimelineConfig{
			SnippetLength: 80,
			Places:        DefaultPlaces(),
		},
	}
}

// Default returns the built-in configuration with derived paths filled in.
func Default() Config {
	cfg := defaults()
	cfg.resolve()
	return cfg
}

// Load reads path on top of the defaults, applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.resolve()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"BOOKSHELF_INBOX":             &c.Paths.Inbox,
		"BOOKSHELF_PROCESSED":         &c.Paths.Processed,
		"BOOKSHELF_OUTPUTS":           &c.Paths.Outputs,
		"BOOKSHELF_LOGS":              &c.Paths.Logs,
		"BOOKSHELF_REJECTED_DIR":      &c.Paths.Rejected,
		"BOOKSHELF_STORE":             &c.Store.Backend,
		"BOOKSHELF_SQLITE_PATH":       &c.Store.SQLitePath,
		"MONGO_URI":                   &c.Store.MongoURI,
		"BOOKSHELF_OCR_ENGINE":        &c.OCR.Engine,
		"BOOKSHELF_OCR_LANGUAGE":      &c.OCR.DefaultLanguage,
		"BOOKSHELF_OCR_MODEL":         &c.OCR.Model,
		"BOOKSHELF_CATALOG_FILE":      &c.Metadata.CatalogFile,
		"BOOKSHELF_METADATA_PROVIDER": &c.Metadata.Provider,
		"BOOKSHELF_METADATA_MODEL":    &c.Metadata.Model,
		"BOOKSHELF_TIMELINE_OUTPUT":   &c.Timeline.Output,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("BOOKSHELF_METADATA_SOURCES"); ok {
		c.Metadata.Sources = splitList(v)
	}
	if v, ok := os.LookupEnv("BOOKSHELF_IDENTITY_LENGTH"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: BOOKSHELF_IDENTITY_LENGTH=%q", ErrInvalid, v)
		}
		c.Identity.Length = n
	}
	return nil
}

func (c *Config) resolve() {
	if c.Store.SQLitePath == "" {
		c.Store.SQLitePath = filepath.Join(c.Paths.Outputs, "bookshelf.db")
	}
	if c.Timeline.Output == "" {
		c.Timeline.Output = filepath.Join(c.Paths.Outputs, "date_index.json")
	}
}

// Validate reports every invalid setting, each wrapping ErrInvalid.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Paths.Inbox == "" {
		bad("paths.inbox is empty")
	}
	if c.Paths.Processed == "" {
		bad("paths.processed is empty")
	}
	if c.Identity.Length < 1 || c.Identity.Length > 64 {
		bad("identity.length %d outside 1..64", c.Identity.Length)
	}
	if c.Filename.Padding < 1 {
		bad("filename.padding %d must be positive", c.Filename.Padding)
	}
	for code := range c.Filename.Labels {
		if len(code) != 1 || !strings.Contains(PageTypeCodes, code) {
			bad("filename.labels has unknown page type %q", code)
		}
	}

	switch c.OCR.Engine {
	case "tesseract", "ollama", "openai", "gemini", "none":
	default:
		bad("unknown ocr.engine %q", c.OCR.Engine)
	}
	if !slices.Contains(c.OCR.Languages, c.OCR.DefaultLanguage) {
		bad("ocr.default_language %q not in %v", c.OCR.DefaultLanguage, c.OCR.Languages)
	}
	if c.OCR.Threshold < 0 || c.OCR.Threshold > 255 {
		bad("ocr.threshold %d outside 0..255", c.OCR.Threshold)
	}
	for _, code := range c.OCR.TextPageTypes {
		if len(code) != 1 || !strings.Contains(PageTypeCodes, code) {
			bad("ocr.text_page_types has unknown page type %q", code)
		}
	}

	switch c.Store.Backend {
	case "memory", "sqlite", "mongo":
	default:
		bad("unknown store.backend %q", c.Store.Backend)
	}

	for _, src := range c.Metadata.Sources {
		switch src {
		case "prompt", "catalog", "llm":
		default:
			bad("unknown metadata source %q", src)
		}
	}

	if c.Timeline.SnippetLength < 0 {
		bad("timeline.snippet_length %d is negative", c.Timeline.SnippetLength)
	}

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
