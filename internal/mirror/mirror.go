package mirror

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/lehigh-university-libraries/bookshelf/internal/fsutil"
	"github.com/lehigh-university-libraries/bookshelf/internal/models"
	"github.com/lehigh-university-libraries/bookshelf/internal/store"
)

// FileName is the name of the per-book document inside its processed directory.
const FileName = "metadata.json"

// Mirror writes a JSON copy of every stored aggregate under root/<id>/.
type Mirror struct {
	root string
}

func New(root string) *Mirror {
	return &Mirror{root: root}
}

// Path returns the mirror document path for id.
func (m *Mirror) Path(id string) string {
	return filepath.Join(m.root, id, FileName)
}

// Save merges agg and the just ingested scan into the existing document.
// Scans already mirrored but missing from agg are kept; agg wins on metadata.
func (m *Mirror) Save(agg *models.BookAggregate, scan models.ScanRecord) error {
	doc, err := m.Load(agg.Identity)
	if err != nil {
		slog.Warn("Local mirror unreadable, rewriting", "book_hash", agg.Identity, "err", err)
		doc = nil
	}

	var scans []models.ScanRecord
	if doc != nil {
		scans = doc.Scans
	}
	for _, s := range agg.Scans {
		scans = store.UpsertScan(scans, s)
	}
	if _, ok := agg.Scan(scan.RawToken); !ok {
		scans = store.UpsertScan(scans, scan)
	}

	out := *agg
	out.Scans = scans
	if doc != nil && out.CreatedAt.IsZero() {
		out.CreatedAt = doc.CreatedAt
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal mirror for %s: %w", agg.Identity, err)
	}
	if err := fsutil.WriteFileAtomic(m.Path(agg.Identity), data, 0o644); err != nil {
		return fmt.Errorf("failed to write mirror for %s: %w", agg.Identity, err)
	}
	return nil
}

// Load returns the mirrored aggregate for id, (nil, nil) when there is none,
// or an error when the document is unreadable.
func (m *Mirror) Load(id string) (*models.BookAggregate, error) {
	data, err := os.ReadFile(m.Path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mirror for %s: %w", id, err)
	}

	var agg models.BookAggregate
	if err := json.Unmarshal(data, &agg); err != nil {
		return nil, fmt.Errorf("failed to parse mirror for %s: %w", id, err)
	}
	if agg.Identity == "" {
		agg.Identity = id
	}
	return &agg, nil
}

// LoadAll reads every mirror under root in directory order. Unreadable
// documents are logged and skipped.
func (m *Mirror) LoadAll() ([]*models.BookAggregate, error) {
	entries, err := os.ReadDir(m.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", m.root, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var result []*models.BookAggregate
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		agg, err := m.Load(e.Name())
		if err != nil {
			slog.Warn("Skipping unreadable mirror", "dir", e.Name(), "err", err)
			continue
		}
		if agg != nil {
			result = append(result, agg)
		}
	}
	return result, nil
}
