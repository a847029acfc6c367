package timeline

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/lehigh-university-libraries/bookshelf/internal/dates"
	"github.com/lehigh-university-libraries/bookshelf/internal/fsutil"
	"github.com/lehigh-university-libraries/bookshelf/internal/models"
	"github.com/parquet-go/parquet-go"
)

// Build flattens every dated mention of aggs into one chronological index.
// Mentions without a parsed date are skipped. Ties keep book, scan and
// mention order.
func Build(aggs []*models.BookAggregate, snippetLen int) []models.TimelineEntry {
	var entries []models.TimelineEntry
	for _, agg := range aggs {
		if agg == nil {
			continue
		}
		for _, scan := range agg.Scans {
			for _, d := range scan.Dates {
				if d.Parsed == "" {
					continue
				}
				entries = append(entries, models.TimelineEntry{
					DateParsed: d.Parsed,
					DateText:   d.Text,
					Places:     d.Places,
					BookHash:   agg.Identity,
					BookTitle:  agg.Title,
					BookAuthor: agg.Authors,
					ScanPath:   scan.Path,
					OCRSnippet: Snippet(scan.OCRText, snippetLen),
				})
			}
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return dates.Compare(entries[i].DateParsed, entries[j].DateParsed) < 0
	})
	return entries
}

// Snippet returns the first n runes of text, marked with "..." when cut.
func Snippet(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

// SaveJSON writes entries as one indented JSON array, replacing path.
func SaveJSON(path string, entries []models.TimelineEntry) error {
	if entries == nil {
		entries = []models.TimelineEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal timeline: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write timeline: %w", err)
	}
	slog.Info("Saved timeline", "path", path, "entries", len(entries))
	return nil
}

// SaveParquet writes entries as a Parquet file with one row per entry.
func SaveParquet(path string, entries []models.TimelineEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := parquet.WriteFile(path, entries); err != nil {
		return fmt.Errorf("failed to write parquet timeline: %w", err)
	}
	slog.Info("Saved parquet timeline", "path", path, "entries", len(entries))
	return nil
}

// Load reads a timeline written by SaveJSON or SaveParquet, picked by extension.
func Load(path string) ([]models.TimelineEntry, error) {
	if filepath.Ext(path) == ".parquet" {
		entries, err := parquet.ReadFile[models.TimelineEntry](path)
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet timeline: %w", err)
		}
		return entries, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timeline: %w", err)
	}
	var entries []models.TimelineEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse timeline: %w", err)
	}
	return entries, nil
}
