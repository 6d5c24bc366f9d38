package crawler

import (
	"fmt"
	"strings"

	"github.com/nurilab/nuri-collector/internal/model"
)

// Stats accumulates the counts for one run. It is a plain value owned by the
// run loop and flushed to the store only when the session finishes; page-level
// fetch failures are tracked separately from per-item errors so callers can
// tell "nothing new" from "something failed".
type Stats struct {
	TotalFound     int `json:"total_found"`
	TotalCollected int `json:"total_collected"`
	TotalSkipped   int `json:"total_skipped"`
	TotalErrors    int `json:"total_errors"`
	PagesProcessed int `json:"pages_processed"`
	PagesFailed    int `json:"pages_failed"`
}

// SuccessRate returns collected/found as a percentage. An empty run counts as
// fully successful.
func (s *Stats) SuccessRate() float64 {
	if s.TotalFound == 0 {
		return 100
	}
	return float64(s.TotalCollected) / float64(s.TotalFound) * 100
}

// SessionStats converts the accumulator into the shape the store persists.
func (s *Stats) SessionStats() model.SessionStats {
	return model.SessionStats{
		TotalFound:     s.TotalFound,
		TotalCollected: s.TotalCollected,
		TotalSkipped:   s.TotalSkipped,
		TotalErrors:    s.TotalErrors,
	}
}

// Summary renders the end-of-run report.
func (s *Stats) Summary() string {
	var b strings.Builder
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "Collection run report")
	fmt.Fprintln(&b, strings.Repeat("-", 60))
	fmt.Fprintf(&b, "Pages processed: %d (failed: %d)\n", s.PagesProcessed, s.PagesFailed)
	fmt.Fprintf(&b, "Notices found:   %d\n", s.TotalFound)
	fmt.Fprintf(&b, "Collected:       %d\n", s.TotalCollected)
	fmt.Fprintf(&b, "Skipped (dup):   %d\n", s.TotalSkipped)
	fmt.Fprintf(&b, "Errors:          %d\n", s.TotalErrors)
	fmt.Fprintf(&b, "Success rate:    %.1f%%\n", s.SuccessRate())
	fmt.Fprintln(&b, rule)
	return b.String()
}
