package handlers

import (
	"net/http"

	"github.com/lehigh-university-libraries/bookshelf/internal/timeline"
)

// HandleTimeline rebuilds the index from the store on every request.
// ?book=<hash> limits it to one book.
func (h *Handler) HandleTimeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	aggs, err := h.store.List(r.Context())
	if err != nil {
		h.storeError(w, err)
		return
	}

	if id := r.URL.Query().Get("book"); id != "" {
		filtered := aggs[:0]
		for _, agg := range aggs {
			if agg.Identity == id {
				filtered = append(filtered, agg)
			}
		}
		aggs = filtered
	}

	entries := timeline.Build(aggs, h.snippetLen)
	if entries == nil {
		h.writeJSON(w, []struct{}{})
		return
	}
	h.writeJSON(w, entries)
}
