package filename

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/bookshelf/internal/config"
	"github.com/lehigh-university-libraries/bookshelf/internal/models"
)

func newParser() *Parser {
	return New(4, config.DefaultLabels())
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected models.PageDescriptor
	}{
		{
			name:  "main page",
			input: "Book_s0001.jpg",
			expected: models.PageDescriptor{
				Alias: "Book", RawToken: "s0001", TypeCode: "s", TypeLabel: "Strona Główna",
				Number: 1, Extension: ".jpg",
			},
		},
		{
			name:  "short number is padded",
			input: "Book_m7.png",
			expected: models.PageDescriptor{
				Alias: "Book", RawToken: "m0007", TypeCode: "m", TypeLabel: "Mapa",
				Number: 7, Extension: ".png",
			},
		},
		{
			name:  "long number is not truncated",
			input: "Book_s123456.tif",
			expected: models.PageDescriptor{
				Alias: "Book", RawToken: "s123456", TypeCode: "s", TypeLabel: "Strona Główna",
				Number: 123456, Extension: ".tif",
			},
		},
		{
			name:  "alias with underscores",
			input: "Historia_Polski_tom_2_i0003.jpeg",
			expected: models.PageDescriptor{
				Alias: "Historia_Polski_tom_2", RawToken: "i0003", TypeCode: "i", TypeLabel: "Ilustracja",
				Number: 3, Extension: ".jpeg",
			},
		},
		{
			name:  "alias that looks like a page suffix",
			input: "Atlas_m12_s0001.jpg",
			expected: models.PageDescriptor{
				Alias: "Atlas_m12", RawToken: "s0001", TypeCode: "s", TypeLabel: "Strona Główna",
				Number: 1, Extension: ".jpg",
			},
		},
		{
			name:  "front matter gets roman numeral",
			input: "Book_w0003.jpg",
			expected: models.PageDescriptor{
				Alias: "Book", RawToken: "w0003", TypeCode: "w", TypeLabel: "Wstęp",
				Number: 3, Roman: "iii", Extension: ".jpg",
			},
		},
		{
			name:  "front matter beyond ten has no roman numeral",
			input: "Book_w0011.jpg",
			expected: models.PageDescriptor{
				Alias: "Book", RawToken: "w0011", TypeCode: "w", TypeLabel: "Wstęp",
				Number: 11, Extension: ".jpg",
			},
		},
		{
			name:  "upper case input",
			input: "Book_S0002.TIFF",
			expected: models.PageDescriptor{
				Alias: "Book", RawToken: "s0002", TypeCode: "s", TypeLabel: "Strona Główna",
				Number: 2, Extension: ".tiff",
			},
		},
		{
			name:  "extra leading zeros are kept",
			input: "Book_s00001.jpg",
			expected: models.PageDescriptor{
				Alias: "Book", RawToken: "s00001", TypeCode: "s", TypeLabel: "Strona Główna",
				Number: 1, Extension: ".jpg",
			},
		},
		{
			name:  "number too large for int is not rejected",
			input: "Book_w99999999999999999999.jpg",
			expected: models.PageDescriptor{
				Alias: "Book", RawToken: "w99999999999999999999", TypeCode: "w", TypeLabel: "Wstęp",
				Extension: ".jpg",
			},
		},
		{
			name:  "alias with spaces",
			input: "Pan Tadeusz_c1.png",
			expected: models.PageDescriptor{
				Alias: "Pan Tadeusz", RawToken: "c0001", TypeCode: "c", TypeLabel: "Okładka",
				Number: 1, Extension: ".png",
			},
		},
	}

	p := newParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := p.Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse returned error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("Expected %+v, got %+v", tt.expected, result)
			}
		})
	}
}

func TestParseRejected(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "no suffix", input: "Weird name.jpg"},
		{name: "unknown page type", input: "Book_x0001.jpg"},
		{name: "unsupported extension", input: "Book_s0001.gif"},
		{name: "missing digits", input: "Book_s.jpg"},
		{name: "missing alias", input: "_s0001.jpg"},
		{name: "no extension", input: "Book_s0001"},
		{name: "trailing text", input: "Book_s0001.jpg.bak"},
	}

	p := newParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(tt.input)
			if !errors.Is(err, ErrRejected) {
				t.Errorf("Expected ErrRejected, got %v", err)
			}
		})
	}
}

func TestFormatRoundTrip(t *testing.T) {
	p := newParser()
	for _, code := range strings.Split(config.PageTypeCodes, "") {
		for _, ext := range []string{".jpg", ".jpeg", ".png", ".tif", ".tiff"} {
			for _, number := range []int{1, 10, 42, 12345} {
				desc := models.PageDescriptor{
					Alias:     "Zbiór_map",
					RawToken:  p.token(code, strconv.Itoa(number)),
					TypeCode:  code,
					TypeLabel: config.DefaultLabels()[code],
					Number:    number,
					Extension: ext,
				}
				if code == "w" {
					desc.Roman = Roman(number)
				}

				name := p.Format(desc)
				result, err := p.Parse(name)
				if err != nil {
					t.Errorf("Parse(%q) returned error: %v", name, err)
					continue
				}
				if result != desc {
					t.Errorf("Round trip of %q: expected %+v, got %+v", name, desc, result)
				}
			}
		}
	}
}

func TestFormatWithoutToken(t *testing.T) {
	desc := models.PageDescriptor{Alias: "Book", TypeCode: "m", Number: 7, Extension: ".png"}
	if got := newParser().Format(desc); got != "Book_m0007.png" {
		t.Errorf("Expected Book_m0007.png, got %s", got)
	}
}

func TestStoredName(t *testing.T) {
	desc := models.PageDescriptor{RawToken: "s0001", Extension: ".jpg"}
	if got := StoredName("abc123def456", desc); got != "abc123def456_s0001.jpg" {
		t.Errorf("Expected abc123def456_s0001.jpg, got %s", got)
	}
}

func TestIsTextPage(t *testing.T) {
	types := []string{"w", "s"}
	tests := []struct {
		code     string
		expected bool
	}{
		{"w", true},
		{"s", true},
		{"m", false},
		{"c", false},
	}

	for _, tt := range tests {
		if got := IsTextPage(tt.code, types); got != tt.expected {
			t.Errorf("IsTextPage(%q): expected %v, got %v", tt.code, tt.expected, got)
		}
	}
}
