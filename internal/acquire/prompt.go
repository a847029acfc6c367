package acquire

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/bookshelf/internal/models"
)

// Prompt asks an operator for metadata on a line based console.
// Title and authors are required; leaving either empty declines the book.
type Prompt struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: bufio.NewScanner(in), out: out}
}

func (p *Prompt) Acquire(ctx context.Context, req Request) (models.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return models.Metadata{}, err
	}

	rule := strings.Repeat("=", 60)
	fmt.Fprintf(p.out, "\n%s\n| NEW BOOK DETECTED: '%s'\n| PLEASE ENTER BIBLIOGRAPHIC DATA\n%s\n", rule, req.Alias, rule)

	meta := models.Metadata{
		Title:     p.ask("Title: "),
		Authors:   p.ask("Authors: "),
		Year:      p.ask("Year of publication: "),
		Place:     p.ask("Place of publication: "),
		Publisher: p.ask("Publisher (optional): "),
	}
	if pages := p.ask("Total number of pages (e.g. 300, optional): "); isDigits(pages) {
		meta.PageCount, _ = strconv.Atoi(pages)
	}
	meta.Notes = p.ask("Notes (optional): ")
	meta.Keywords = splitKeywords(p.ask("Keywords (comma separated, optional): "))
	meta.HasMaps = yes(p.ask("Does the book contain maps? (t/n, default 'n'): "))
	meta.HasIllustrations = yes(p.ask("Does the book contain illustrations? (t/n, default 'n'): "))
	meta.HasTables = yes(p.ask("Does the book contain tables? (t/n, default 'n'): "))
	fmt.Fprintf(p.out, "%s\n\n", rule)

	if meta.Title == "" || meta.Authors == "" {
		slog.Warn("Title and authors are required, skipping book", "alias", req.Alias)
		return models.Metadata{}, ErrDeclined
	}
	return meta, nil
}

// ask returns "" once input is exhausted.
func (p *Prompt) ask(label string) string {
	fmt.Fprint(p.out, label)
	if !p.in.Scan() {
		return ""
	}
	return strings.TrimSpace(p.in.Text())
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func yes(s string) bool {
	switch strings.ToLower(s) {
	case "t", "y", "tak", "yes":
		return true
	}
	return false
}

func splitKeywords(s string) []string {
	var out []string
	for _, kw := range strings.Split(s, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
