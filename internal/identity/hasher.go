package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/lehigh-university-libraries/bookshelf/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const separator = "|"

// Hasher derives the short identity token of a book from its metadata.
type Hasher struct {
	length int
	strip  bool
}

// New returns a Hasher producing tokens of length hex characters.
// Lengths outside 1..64 are clamped.
func New(length int, stripDiacritics bool) *Hasher {
	if length < 1 {
		length = 1
	}
	if length > sha256.Size*2 {
		length = sha256.Size * 2
	}
	return &Hasher{length: length, strip: stripDiacritics}
}

// Derive returns the identity for title, authors, year and place.
// Every other metadata field is ignored.
func (h *Hasher) Derive(meta models.Metadata) string {
	fields := []string{meta.Title, meta.Authors, meta.Year, meta.Place}
	for i, f := range fields {
		fields[i] = Normalize(f, h.strip)
	}

	sum := sha256.Sum256([]byte(strings.Join(fields, separator)))
	return hex.EncodeToString(sum[:])[:h.length]
}

// Normalize trims s, optionally folds it to plain ASCII and lowercases it.
// Folding decomposes to NFD, drops combining marks and then drops whatever
// is still outside ASCII, so "Kraków" becomes "krakow" and "Łódź" becomes "odz".
func Normalize(s string, stripDiacritics bool) string {
	s = strings.TrimSpace(s)
	if stripDiacritics {
		t := transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
		)
		if folded, _, err := transform.String(t, s); err == nil {
			s = folded
		}
	}
	return strings.ToLower(s)
}
