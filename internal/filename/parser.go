package filename

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/bookshelf/internal/models"
)

// ErrRejected is returned for names that do not follow <alias>_<type><digits>.<ext>.
var ErrRejected = errors.New("filename rejected")

// The alias is lazy so that underscores inside it are kept and the match
// anchors on the last _<type><digits>.<ext> suffix.
var pattern = regexp.MustCompile(`(?i)^(?P<alias>.+?)_(?P<page_type>[wsimtcgoeb])(?P<page_num>\d+)\.(?P<ext>jpg|jpeg|png|tiff?)$`)

// Only front matter pages get a roman rendering, and only up to ten.
var romanNumerals = map[int]string{
	1: "i", 2: "ii", 3: "iii", 4: "iv", 5: "v",
	6: "vi", 7: "vii", 8: "viii", 9: "ix", 10: "x",
}

const frontMatter = "w"

// Parser turns scan filenames into page descriptors.
type Parser struct {
	padding int
	labels  map[string]string
}

// New returns a Parser padding page numbers to padding digits and labelling
// page types from labels. A nil labels map leaves TypeLabel empty.
func New(padding int, labels map[string]string) *Parser {
	if padding < 1 {
		padding = 1
	}
	return &Parser{padding: padding, labels: labels}
}

// Parse returns the descriptor for name, which must be a base name.
func (p *Parser) Parse(name string) (models.PageDescriptor, error) {
	m := pattern.FindStringSubmatch(name)
	if m == nil {
		return models.PageDescriptor{}, fmt.Errorf("%w: %q", ErrRejected, name)
	}

	code := strings.ToLower(m[pattern.SubexpIndex("page_type")])
	digits := m[pattern.SubexpIndex("page_num")]
	// A page number too large for int keeps its token and reads as 0.
	number, err := strconv.Atoi(digits)
	if err != nil {
		number = 0
	}

	desc := models.PageDescriptor{
		Alias:     m[pattern.SubexpIndex("alias")],
		RawToken:  p.token(code, digits),
		TypeCode:  code,
		TypeLabel: p.labels[code],
		Number:    number,
		Extension: "." + strings.ToLower(m[pattern.SubexpIndex("ext")]),
	}
	if code == frontMatter {
		desc.Roman = Roman(number)
	}
	return desc, nil
}

// Format builds the filename a descriptor was parsed from, up to case and padding.
// Descriptors without a RawToken are formatted from TypeCode and Number.
func (p *Parser) Format(desc models.PageDescriptor) string {
	raw := desc.RawToken
	if raw == "" {
		raw = p.token(desc.TypeCode, strconv.Itoa(desc.Number))
	}
	return desc.Alias + "_" + raw + desc.Extension
}

// StoredName is the standardized name of a processed scan.
func StoredName(identity string, desc models.PageDescriptor) string {
	return identity + "_" + desc.RawToken + desc.Extension
}

// token left pads the digits as written; longer runs are kept whole.
func (p *Parser) token(code, digits string) string {
	if n := p.padding - len(digits); n > 0 {
		digits = strings.Repeat("0", n) + digits
	}
	return code + digits
}

// Roman renders 1..10 in lowercase roman numerals and anything else as "".
func Roman(n int) string {
	return romanNumerals[n]
}

// IsTextPage reports whether pages of type code carry running text.
func IsTextPage(code string, textTypes []string) bool {
	return slices.Contains(textTypes, code)
}
