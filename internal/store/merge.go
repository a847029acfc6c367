package store

import (
	"slices"
	"time"

	"github.com/lehigh-university-libraries/bookshelf/internal/models"
)

// Merge applies one ingestion to existing and returns the resulting aggregate.
// existing may be nil for a new book and is never modified.
//
// Book metadata is replaced wholesale; the identity and the book's CreatedAt
// are kept. The scan is stamped processed at now and merged by raw page token.
func Merge(existing *models.BookAggregate, id string, meta models.Metadata, scan models.ScanRecord, now time.Time) *models.BookAggregate {
	agg := &models.BookAggregate{Identity: id, CreatedAt: now}
	if existing != nil {
		if !existing.CreatedAt.IsZero() {
			agg.CreatedAt = existing.CreatedAt
		}
		agg.Scans = cloneScans(existing.Scans)
	}
	agg.Metadata = meta
	agg.Metadata.Keywords = slices.Clone(meta.Keywords)
	agg.UpdatedAt = now

	scan.ProcessedAt = now
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = now
	}
	agg.Scans = UpsertScan(agg.Scans, scan)
	return agg
}

// UpsertScan replaces the scan with the same raw page token in place, keeping
// its original CreatedAt, or appends scan when the token is new.
// scans is modified in place.
func UpsertScan(scans []models.ScanRecord, scan models.ScanRecord) []models.ScanRecord {
	for i := range scans {
		if scans[i].RawToken != scan.RawToken {
			continue
		}
		if !scans[i].CreatedAt.IsZero() {
			scan.CreatedAt = scans[i].CreatedAt
		}
		scans[i] = scan
		return scans
	}
	return append(scans, scan)
}

func clone(agg *models.BookAggregate) *models.BookAggregate {
	if agg == nil {
		return nil
	}
	c := *agg
	c.Metadata.Keywords = slices.Clone(agg.Keywords)
	c.Scans = cloneScans(agg.Scans)
	return &c
}

func cloneScans(scans []models.ScanRecord) []models.ScanRecord {
	if scans == nil {
		return nil
	}
	out := make([]models.ScanRecord, len(scans))
	for i, s := range scans {
		s.Dates = slices.Clone(s.Dates)
		out[i] = s
	}
	return out
}
