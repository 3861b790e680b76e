package report

import (
	"fmt"
	"io"
	"time"
)

// TerminalFormatter prints one line per processed post.
type TerminalFormatter struct {
	color bool
}

// NewTerminal creates a terminal formatter. Set color=true for ANSI colors.
func NewTerminal(color bool) *TerminalFormatter {
	return &TerminalFormatter{color: color}
}

func (f *TerminalFormatter) Format(w io.Writer, input HistoryInput) error {
	header := fmt.Sprintf("firstcomment: %d commented posts on %s, showing %d since %s",
		input.Total, input.Group, len(input.Records), formatDuration(input.Since))
	if _, err := fmt.Fprintln(w, f.bold(header)); err != nil {
		return err
	}
	fmt.Fprintln(w)

	if len(input.Records) == 0 {
		fmt.Fprintln(w, "No comments yet.")
		return nil
	}

	for _, r := range input.Records {
		delay := r.CommentedAt.Sub(r.PostedAt).Round(time.Second)
		fmt.Fprintf(w, "  %s  post %d  %s\n",
			r.CommentedAt.Format("2006-01-02 15:04:05"), r.PostID, f.dim(PostURL(r.OwnerID, r.PostID)))
		fmt.Fprintf(w, "    %s\n", f.dim(fmt.Sprintf("%s after publish, comment %d", delay, r.CommentID)))
	}
	return nil
}

func (f *TerminalFormatter) bold(s string) string {
	if !f.color {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}

func (f *TerminalFormatter) dim(s string) string {
	if !f.color {
		return s
	}
	return "\033[2m" + s + "\033[0m"
}
