// Package report renders the processed-post ledger for the history command.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/ppiankov/firstcomment/internal/store"
)

// HistoryInput is everything a formatter needs to describe the ledger.
type HistoryInput struct {
	Group   string
	Records []store.Record // newest first
	Total   int            // records in the ledger, before since/limit
	Since   time.Duration
}

// Formatter writes a formatted history to w.
type Formatter interface {
	Format(w io.Writer, input HistoryInput) error
}

// New returns the formatter for format ("terminal" or "json").
func New(format string, color bool) (Formatter, error) {
	switch format {
	case "terminal", "":
		return NewTerminal(color), nil
	case "json":
		return NewJSON(), nil
	default:
		return nil, fmt.Errorf("unknown format %q (want terminal or json)", format)
	}
}

// PostURL links to a wall post on vk.com.
func PostURL(ownerID, postID int64) string {
	return fmt.Sprintf("https://vk.com/wall%d_%d", ownerID, postID)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	switch {
	case hours >= 24 && hours%24 == 0:
		return fmt.Sprintf("%dd", hours/24)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return d.String()
	}
}
