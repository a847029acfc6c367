package ingest

import (
	"fmt"
	"io"
	"time"
)

// Summary counts the outcomes of one batch.
type Summary struct {
	RunID string `json:"run_id"`
	// Total is the number of inbox files visited.
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Rejected  int `json:"rejected"`
	// Skipped files belong to aliases whose metadata was declined.
	Skipped      int           `json:"skipped"`
	Failed       int           `json:"failed"`
	BooksTouched int           `json:"books_touched"`
	NewBooks     int           `json:"new_books"`
	Duration     time.Duration `json:"duration"`
}

func (s *Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "Batch %s finished in %s\n", s.RunID, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Files:      %d\n", s.Total)
	fmt.Fprintf(w, "  Processed:  %d\n", s.Processed)
	fmt.Fprintf(w, "  Rejected:   %d\n", s.Rejected)
	fmt.Fprintf(w, "  Skipped:    %d\n", s.Skipped)
	fmt.Fprintf(w, "  Failed:     %d\n", s.Failed)
	fmt.Fprintf(w, "  Books:      %d (%d new)\n", s.BooksTouched, s.NewBooks)
}
