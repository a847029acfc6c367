package store

import (
	"testing"
	"time"

	"github.com/lehigh-university-libraries/bookshelf/internal/models"
)

func scan(token, text string) models.ScanRecord {
	return models.ScanRecord{
		PageDescriptor: models.PageDescriptor{Alias: "Lalka", RawToken: token, TypeCode: token[:1], Extension: ".jpg"},
		OCRText:        text,
		Path:           "processed/abc/abc_" + token + ".jpg",
	}
}

func TestMergeNewBook(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	meta := models.Metadata{Title: "Lalka", Authors: "Bolesław Prus"}

	agg := Merge(nil, "abc", meta, scan("s0001", "tekst"), now)

	if agg.Identity != "abc" {
		t.Errorf("Expected identity abc, got %s", agg.Identity)
	}
	if !agg.CreatedAt.Equal(now) || !agg.UpdatedAt.Equal(now) {
		t.Errorf("Expected timestamps %s, got created %s updated %s", now, agg.CreatedAt, agg.UpdatedAt)
	}
	if len(agg.Scans) != 1 {
		t.Fatalf("Expected 1 scan, got %d", len(agg.Scans))
	}
	if !agg.Scans[0].ProcessedAt.Equal(now) || !agg.Scans[0].CreatedAt.Equal(now) {
		t.Errorf("Expected scan stamped at %s, got %+v", now, agg.Scans[0])
	}
}

func TestMergeSameTokenTwice(t *testing.T) {
	first := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)
	meta := models.Metadata{Title: "Lalka", Authors: "Bolesław Prus", Year: "1890"}

	agg := Merge(nil, "abc", meta, scan("s0001", "pierwszy"), first)
	updated := meta
	updated.Publisher = "Gebethner i Wolff"
	agg = Merge(agg, "abc", updated, scan("s0001", "drugi"), second)

	if len(agg.Scans) != 1 {
		t.Fatalf("Expected 1 scan, got %d", len(agg.Scans))
	}
	s := agg.Scans[0]
	if s.OCRText != "drugi" {
		t.Errorf("Expected second OCR text to win, got %q", s.OCRText)
	}
	if !s.CreatedAt.Equal(first) {
		t.Errorf("Expected scan created_at to stay %s, got %s", first, s.CreatedAt)
	}
	if !s.ProcessedAt.Equal(second) {
		t.Errorf("Expected scan processed_at %s, got %s", second, s.ProcessedAt)
	}
	if !agg.CreatedAt.Equal(first) {
		t.Errorf("Expected book created_at to stay %s, got %s", first, agg.CreatedAt)
	}
	if !agg.UpdatedAt.Equal(second) {
		t.Errorf("Expected book updated_at %s, got %s", second, agg.UpdatedAt)
	}
	if agg.Publisher != "Gebethner i Wolff" {
		t.Errorf("Expected publisher to be replaced, got %q", agg.Publisher)
	}
}

func TestMergePreservesOrder(t *testing.T) {
	now := time.Now()
	meta := models.Metadata{Title: "Lalka"}

	agg := Merge(nil, "abc", meta, scan("s0001", "a"), now)
	agg = Merge(agg, "abc", meta, scan("s0002", "b"), now)
	agg = Merge(agg, "abc", meta, scan("m0001", "c"), now)
	agg = Merge(agg, "abc", meta, scan("s0001", "d"), now)

	want := []string{"s0001", "s0002", "m0001"}
	if len(agg.Scans) != len(want) {
		t.Fatalf("Expected %d scans, got %d", len(want), len(agg.Scans))
	}
	for i, token := range want {
		if agg.Scans[i].RawToken != token {
			t.Errorf("Position %d: expected %s, got %s", i, token, agg.Scans[i].RawToken)
		}
	}
	if agg.Scans[0].OCRText != "d" {
		t.Errorf("Expected replaced scan in place, got %q", agg.Scans[0].OCRText)
	}
}

func TestMergeDoesNotModifyExisting(t *testing.T) {
	now := time.Now()
	existing := Merge(nil, "abc", models.Metadata{Title: "Lalka"}, scan("s0001", "a"), now)

	_ = Merge(existing, "abc", models.Metadata{Title: "Faraon"}, scan("s0001", "b"), now)

	if existing.Title != "Lalka" {
		t.Errorf("Expected existing title untouched, got %s", existing.Title)
	}
	if existing.Scans[0].OCRText != "a" {
		t.Errorf("Expected existing scan untouched, got %q", existing.Scans[0].OCRText)
	}
}

func TestMergeKeepsIdentity(t *testing.T) {
	now := time.Now()
	existing := Merge(nil, "abc", models.Metadata{Title: "Lalka"}, scan("s0001", "a"), now)

	agg := Merge(existing, "abc", models.Metadata{Title: "Lalka. Tom II"}, scan("s0002", "b"), now)
	if agg.Identity != "abc" {
		t.Errorf("Expected identity to stay abc, got %s", agg.Identity)
	}
}
