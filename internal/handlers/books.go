package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/bookshelf/internal/models"
	"github.com/lehigh-university-libraries/bookshelf/internal/store"
)

// BookSummary is the list view of one book.
type BookSummary struct {
	Identity string `json:"book_hash"`
	models.Metadata
	ScanCount int       `json:"scan_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"last_updated_book_at"`
}

func (h *Handler) HandleBooks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	aggs, err := h.store.List(r.Context())
	if err != nil {
		h.storeError(w, err)
		return
	}

	books := make([]BookSummary, 0, len(aggs))
	for _, agg := range aggs {
		books = append(books, BookSummary{
			Identity:  agg.Identity,
			Metadata:  agg.Metadata,
			ScanCount: len(agg.Scans),
			CreatedAt: agg.CreatedAt,
			UpdatedAt: agg.UpdatedAt,
		})
	}
	h.writeJSON(w, books)
}

func (h *Handler) HandleBookDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/books/")
	if id == "" || strings.Contains(id, "/") {
		h.writeError(w, "Book not found", http.StatusNotFound)
		return
	}

	agg, err := h.store.GetByIdentity(r.Context(), id)
	if err != nil {
		h.storeError(w, err)
		return
	}
	if agg == nil {
		h.writeError(w, "Book not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, agg)
}

func (h *Handler) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrUnavailable) {
		h.writeError(w, "Book store unavailable", http.StatusServiceUnavailable)
		return
	}
	h.writeError(w, "Failed to read book store: "+err.Error(), http.StatusInternalServerError)
}
