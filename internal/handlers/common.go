package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/bookshelf/internal/store"
)

// Handler serves a read-only view of the book store.
type Handler struct {
	store      store.BookStore
	snippetLen int
}

func New(bookStore store.BookStore, snippetLen int) *Handler {
	return &Handler{
		store:      bookStore,
		snippetLen: snippetLen,
	}
}

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/books", h.HandleBooks)
	mux.HandleFunc("/api/books/", h.HandleBookDetail)
	mux.HandleFunc("/api/timeline", h.HandleTimeline)
	mux.HandleFunc("/healthcheck", h.HandleHealthcheck)
	return mux
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

func (h *Handler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if !h.store.IsConnected(r.Context()) {
		h.writeError(w, "Book store unavailable", http.StatusServiceUnavailable)
		return
	}
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Unable to write healthcheck", "err", err)
	}
}
