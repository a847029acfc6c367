package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/bookshelf/internal/acquire"
	"github.com/lehigh-university-libraries/bookshelf/internal/config"
	"github.com/lehigh-university-libraries/bookshelf/internal/dates"
	"github.com/lehigh-university-libraries/bookshelf/internal/filename"
	"github.com/lehigh-university-libraries/bookshelf/internal/fsutil"
	"github.com/lehigh-university-libraries/bookshelf/internal/identity"
	"github.com/lehigh-university-libraries/bookshelf/internal/mirror"
	"github.com/lehigh-university-libraries/bookshelf/internal/models"
	"github.com/lehigh-university-libraries/bookshelf/internal/ocr"
	"github.com/lehigh-university-libraries/bookshelf/internal/store"
)

// Deps are the collaborators of an Engine.
type Deps struct {
	Store    store.BookStore
	OCR      ocr.Recognizer
	Acquirer acquire.Acquirer
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Engine ingests the inbox one batch at a time. It is not safe for
// concurrent Runs.
type Engine struct {
	cfg       config.Config
	parser    *filename.Parser
	hasher    *identity.Hasher
	extractor *dates.Extractor
	mirror    *mirror.Mirror
	store     store.BookStore
	ocr       ocr.Recognizer
	acquirer  acquire.Acquirer
	logger    *slog.Logger
	now       func() time.Time
}

func New(cfg config.Config, deps Deps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:       cfg,
		parser:    filename.New(cfg.Filename.Padding, cfg.Filename.Labels),
		hasher:    identity.New(cfg.Identity.Length, cfg.Identity.StripDiacritics),
		extractor: dates.NewExtractor(cfg.Timeline.Places),
		mirror:    mirror.New(cfg.Paths.Processed),
		store:     deps.Store,
		ocr:       deps.OCR,
		acquirer:  deps.Acquirer,
		logger:    logger,
		now:       time.Now,
	}
}

// decision is the per batch outcome of resolving one alias.
type decision struct {
	identity  string
	meta      models.Metadata
	abandoned bool
}

// batch holds the state of one Run.
type batch struct {
	decisions map[string]decision
	touched   map[string]struct{}
	summary   *Summary
	log       *slog.Logger
	changes   *slog.Logger
}

// Run processes every file currently in the inbox, in name order. Per file
// failures are counted in the summary; only cancellation between files or an
// unreadable inbox end the batch early.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.NewString()
	log := e.logger.With("run_id", runID)
	b := &batch{
		decisions: map[string]decision{},
		touched:   map[string]struct{}{},
		summary:   &Summary{RunID: runID},
		log:       log,
		changes:   log.With("channel", "changes"),
	}
	start := e.now()
	defer func() {
		b.summary.BooksTouched = len(b.touched)
		b.summary.Duration = e.now().Sub(start)
	}()

	names, err := e.inbox()
	if err != nil {
		return b.summary, err
	}
	log.Info("Starting batch", "inbox", e.cfg.Paths.Inbox, "files", len(names))

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			log.Warn("Batch interrupted", "remaining", len(names)-b.summary.Total)
			return b.summary, err
		}
		b.summary.Total++
		e.processFile(ctx, b, name)
	}

	log.Info("Batch finished",
		"processed", b.summary.Processed,
		"rejected", b.summary.Rejected,
		"skipped", b.summary.Skipped,
		"failed", b.summary.Failed,
	)
	return b.summary, nil
}

// inbox lists regular, non hidden files sorted by name.
func (e *Engine) inbox() ([]string, error) {
	if err := os.MkdirAll(e.cfg.Paths.Inbox, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create inbox %s: %w", e.cfg.Paths.Inbox, err)
	}
	entries, err := os.ReadDir(e.cfg.Paths.Inbox)
	if err != nil {
		return nil, fmt.Errorf("failed to list inbox %s: %w", e.cfg.Paths.Inbox, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (e *Engine) processFile(ctx context.Context, b *batch, name string) {
	src := filepath.Join(e.cfg.Paths.Inbox, name)
	log := b.log.With("file", name)

	desc, err := e.parser.Parse(name)
	if err != nil {
		b.summary.Rejected++
		log.Warn("Rejected scan filename", "err", err)
		e.discard(b, src, name)
		return
	}

	d, seen := b.decisions[desc.Alias]
	if !seen {
		d, err = e.resolve(ctx, b, desc.Alias, src)
		b.decisions[desc.Alias] = d
		if err != nil {
			b.summary.Failed++
			log.Error("Metadata acquisition failed, abandoning alias", "alias", desc.Alias, "err", err)
			return
		}
	}
	if d.abandoned {
		b.summary.Skipped++
		log.Debug("Skipping scan of abandoned alias", "alias", desc.Alias)
		return
	}
	if seen {
		d = e.refresh(ctx, log, d)
	}
	log = log.With("book_hash", d.identity, "page", desc.RawToken)

	dest := filepath.Join(e.cfg.Paths.Processed, d.identity, filename.StoredName(d.identity, desc))
	if err := fsutil.CopyFile(src, dest); err != nil {
		b.summary.Failed++
		log.Error("Failed to copy scan", "err", err)
		return
	}
	b.changes.Info("Copied scan", "from", src, "to", dest)

	scan := models.ScanRecord{PageDescriptor: desc, Path: dest}
	if filename.IsTextPage(desc.TypeCode, e.cfg.OCR.TextPageTypes) {
		scan.OCRText = e.ocr.Recognize(ctx, dest, d.meta.Language)
		if scan.OCRText == "" {
			log.Warn("No OCR text for page")
		} else {
			e.writeSidecar(b, log, dest, scan.OCRText)
			scan.Dates = e.extractor.Extract(scan.OCRText)
		}
	}

	if err := e.store.Upsert(ctx, d.identity, d.meta, scan); err != nil {
		b.summary.Failed++
		log.Error("Failed to persist scan, leaving original for retry", "err", err)
		return
	}
	b.changes.Info("Upserted scan", "book_hash", d.identity, "page", desc.RawToken)
	e.saveMirror(ctx, log, d, scan)

	if err := os.Remove(src); err != nil {
		log.Warn("Failed to remove ingested original", "err", err)
	} else {
		b.changes.Info("Removed original", "path", src)
	}
	b.summary.Processed++
	b.touched[d.identity] = struct{}{}
}

// resolve decides which book an alias belongs to for the rest of the batch.
func (e *Engine) resolve(ctx context.Context, b *batch, alias, scanPath string) (decision, error) {
	meta, err := e.acquirer.Acquire(ctx, acquire.Request{Alias: alias, ScanPath: scanPath})
	if errors.Is(err, acquire.ErrDeclined) {
		b.log.Warn("Metadata declined, skipping alias for this batch", "alias", alias)
		return decision{abandoned: true}, nil
	}
	if err != nil {
		return decision{abandoned: true}, err
	}
	if meta.Language == "" {
		meta.Language = e.cfg.OCR.DefaultLanguage
	}

	if e.store.IsConnected(ctx) {
		existing, err := e.store.GetByMetadata(ctx, meta)
		switch {
		case err != nil:
			b.log.Warn("Lookup by metadata failed, treating as new book", "alias", alias, "err", err)
		case existing != nil:
			b.log.Info("Alias matches a cataloged book", "alias", alias, "book_hash", existing.Identity)
			adopted := existing.Metadata
			if adopted.Language == "" {
				adopted.Language = meta.Language
			}
			return decision{identity: existing.Identity, meta: adopted}, nil
		}
	} else {
		b.log.Warn("Book store unreachable, deriving identity without lookup", "alias", alias)
	}

	id := e.hasher.Derive(meta)
	b.summary.NewBooks++
	b.log.Info("New book", "alias", alias, "book_hash", id, "title", meta.Title)
	return decision{identity: id, meta: meta}, nil
}

// refresh re-reads a book decided earlier in the batch so that the next merge
// starts from the stored metadata. A missing or unreachable book keeps the
// batch's copy.
func (e *Engine) refresh(ctx context.Context, log *slog.Logger, d decision) decision {
	agg, err := e.store.GetByIdentity(ctx, d.identity)
	switch {
	case err != nil:
		log.Warn("Could not re-read book, using batch metadata", "book_hash", d.identity, "err", err)
	case agg == nil:
		log.Debug("Book not stored yet, using batch metadata", "book_hash", d.identity)
	default:
		lang := d.meta.Language
		d.meta = agg.Metadata
		if d.meta.Language == "" {
			d.meta.Language = lang
		}
	}
	return d
}

func (e *Engine) discard(b *batch, src, name string) {
	if e.cfg.Paths.Rejected == "" {
		if err := os.Remove(src); err != nil {
			b.log.Error("Failed to delete rejected file", "file", name, "err", err)
			return
		}
		b.changes.Info("Deleted rejected file", "path", src)
		return
	}

	dest := filepath.Join(e.cfg.Paths.Rejected, name)
	if err := fsutil.Move(src, dest); err != nil {
		b.log.Error("Failed to quarantine rejected file", "file", name, "err", err)
		return
	}
	b.changes.Info("Moved rejected file", "from", src, "to", dest)
}

// writeSidecar stores OCR text next to the page as <stored name>.txt.
func (e *Engine) writeSidecar(b *batch, log *slog.Logger, dest, text string) {
	path := strings.TrimSuffix(dest, filepath.Ext(dest)) + ".txt"
	if err := fsutil.WriteFileAtomic(path, []byte(text), 0o644); err != nil {
		log.Warn("Failed to write OCR sidecar", "err", err)
		return
	}
	b.changes.Info("Wrote OCR text", "path", path)
}

// saveMirror re-reads the stored aggregate and mirrors it locally. Mirror
// problems are logged; the store stays authoritative.
func (e *Engine) saveMirror(ctx context.Context, log *slog.Logger, d decision, scan models.ScanRecord) {
	agg, err := e.store.GetByIdentity(ctx, d.identity)
	if err != nil || agg == nil {
		log.Warn("Could not re-read stored book, mirroring local merge", "err", err)
		agg = store.Merge(nil, d.identity, d.meta, scan, e.now())
	}
	if stored, ok := agg.Scan(scan.RawToken); ok {
		scan = stored
	}
	if err := e.mirror.Save(agg, scan); err != nil {
		log.Warn("Failed to update local mirror", "err", err)
	}
}
