package dates

import (
	"cmp"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/lehigh-university-libraries/bookshelf/internal/models"
)

var months = map[string]time.Month{
	"styczeń": time.January, "stycznia": time.January,
	"luty": time.February, "lutego": time.February,
	"marzec": time.March, "marca": time.March,
	"kwiecień": time.April, "kwietnia": time.April,
	"maj": time.May, "maja": time.May,
	"czerwiec": time.June, "czerwca": time.June,
	"lipiec": time.July, "lipca": time.July,
	"sierpień": time.August, "sierpnia": time.August,
	"wrzesień": time.September, "września": time.September,
	"październik": time.October, "października": time.October,
	"listopad": time.November, "listopada": time.November,
	"grudzień": time.December, "grudnia": time.December,
}

var (
	numericDate = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4})\b`)
	namedDate   = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(` + monthAlternation() + `)\s+(\d{4})\b`)
	yearRange   = regexp.MustCompile(`\b(1[6-9]\d{2}|20\d{2})\s*[-–]\s*(1[6-9]\d{2}|20\d{2})\b`)
	centuryBC   = regexp.MustCompile(`\b([IVXLC]+)\s*(?i:w\.\s*p\.\s*n\.\s*e\.)`)
	bareYear    = regexp.MustCompile(`\b([12]\d{3})\b`)
)

// monthAlternation lists longer forms first so "maja" wins over "maj".
func monthAlternation() string {
	names := make([]string, 0, len(months))
	for name := range months {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return strings.Join(names, "|")
}

type span struct {
	start, end int
	mention    models.DateMention
}

type rule struct {
	re    *regexp.Regexp
	parse func(text string, groups []string) (string, bool)
}

// rules run in priority order; text claimed by an earlier rule is not matched again.
var rules = []rule{
	{numericDate, parseNumeric},
	{namedDate, parseNamed},
	{yearRange, parseRange},
	{centuryBC, parseCentury},
	{bareYear, parseYear},
}

// Extractor finds dated mentions and gazetteer places in OCR text.
type Extractor struct {
	places []string
}

func NewExtractor(places []string) *Extractor {
	return &Extractor{places: places}
}

// Extract returns the date mentions of text in reading order. Every mention
// carries the places found anywhere in text.
func (e *Extractor) Extract(text string) []models.DateMention {
	var found []span
	for _, r := range rules {
		for _, loc := range r.re.FindAllStringSubmatchIndex(text, -1) {
			if overlaps(found, loc[0], loc[1]) {
				continue
			}
			groups := make([]string, 0, len(loc)/2)
			for i := 2; i < len(loc); i += 2 {
				groups = append(groups, text[loc[i]:loc[i+1]])
			}
			matched := text[loc[0]:loc[1]]
			parsed, ok := r.parse(matched, groups)
			if !ok {
				continue
			}
			found = append(found, span{start: loc[0], end: loc[1], mention: models.DateMention{Text: matched, Parsed: parsed}})
		}
	}
	if len(found) == 0 {
		return nil
	}

	sort.Slice(found, func(i, j int) bool { return found[i].start < found[j].start })
	places := e.Places(text)
	mentions := make([]models.DateMention, 0, len(found))
	for _, s := range found {
		s.mention.Places = places
		mentions = append(mentions, s.mention)
	}
	return mentions
}

// Places returns the gazetteer names found in text, spelled as configured,
// in order of first appearance.
func (e *Extractor) Places(text string) []string {
	lower := strings.ToLower(text)
	type hit struct {
		pos  int
		name string
	}
	var hits []hit
	for _, place := range e.places {
		if pos := findWord(lower, strings.ToLower(place)); pos >= 0 {
			hits = append(hits, hit{pos, place})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	var out []string
	for _, h := range hits {
		out = append(out, h.name)
	}
	return out
}

// findWord returns the first index of word in s that is not part of a longer word.
func findWord(s, word string) int {
	if word == "" {
		return -1
	}
	for offset := 0; offset < len(s); {
		i := strings.Index(s[offset:], word)
		if i < 0 {
			return -1
		}
		start := offset + i
		end := start + len(word)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if !isWordRune(before) && !isWordRune(after) {
			return start
		}
		offset = start + 1
	}
	return -1
}

func isWordRune(r rune) bool {
	return r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

func overlaps(found []span, start, end int) bool {
	for _, s := range found {
		if start < s.end && s.start < end {
			return true
		}
	}
	return false
}

func isoDate(year int, month time.Month, day int) (string, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return "", false
	}
	if year < 0 {
		return fmt.Sprintf("-%04d-%02d-%02d", -year, month, day), true
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

func parseNumeric(_ string, g []string) (string, bool) {
	day, _ := strconv.Atoi(g[0])
	month, _ := strconv.Atoi(g[1])
	year, _ := strconv.Atoi(g[2])
	if month < 1 || month > 12 {
		return "", false
	}
	return isoDate(year, time.Month(month), day)
}

func parseNamed(_ string, g []string) (string, bool) {
	day, _ := strconv.Atoi(g[0])
	month, ok := months[strings.ToLower(g[1])]
	if !ok {
		return "", false
	}
	year, _ := strconv.Atoi(g[2])
	return isoDate(year, month, day)
}

// parseRange dates a range by its first year.
func parseRange(_ string, g []string) (string, bool) {
	year, _ := strconv.Atoi(g[0])
	return isoDate(year, time.January, 1)
}

// parseCentury dates "II w. p.n.e." by its first year, 200 BC.
func parseCentury(_ string, g []string) (string, bool) {
	century := fromRoman(g[0])
	if century < 1 || century > 30 {
		return "", false
	}
	return isoDate(1-century*100, time.January, 1)
}

func parseYear(_ string, g []string) (string, bool) {
	year, _ := strconv.Atoi(g[0])
	if year > 2099 {
		return "", false
	}
	return isoDate(year, time.January, 1)
}

var romanValues = map[byte]int{'I': 1, 'V': 5, 'X': 10, 'L': 50, 'C': 100}

// fromRoman returns 0 for malformed numerals.
func fromRoman(s string) int {
	total := 0
	for i := 0; i < len(s); i++ {
		v := romanValues[s[i]]
		if v == 0 {
			return 0
		}
		if i+1 < len(s) && romanValues[s[i+1]] > v {
			total -= v
		} else {
			total += v
		}
	}
	return total
}

// Compare orders parsed dates chronologically, BC dates first.
// Values that are not ISO dates compare as strings after all dates.
func Compare(a, b string) int {
	ya, ra, oka := split(a)
	yb, rb, okb := split(b)
	switch {
	case oka && okb:
		if c := cmp.Compare(ya, yb); c != 0 {
			return c
		}
		return strings.Compare(ra, rb)
	case oka:
		return -1
	case okb:
		return 1
	}
	return strings.Compare(a, b)
}

func split(s string) (int, string, bool) {
	sign := 1
	body := s
	if strings.HasPrefix(body, "-") {
		sign = -1
		body = body[1:]
	}
	digits, rest, _ := strings.Cut(body, "-")
	year, err := strconv.Atoi(digits)
	if err != nil || digits == "" {
		return 0, "", false
	}
	return sign * year, rest, true
}
