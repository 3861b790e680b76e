package report

import (
	"encoding/json"
	"io"
	"time"
)

type jsonHistory struct {
	Meta  jsonMeta   `json:"meta"`
	Posts []jsonPost `json:"posts"`
}

type jsonMeta struct {
	Group string `json:"group"`
	Total int    `json:"total"`
	Since string `json:"since"`
}

type jsonPost struct {
	PostID      int64  `json:"post_id"`
	OwnerID     int64  `json:"owner_id"`
	URL         string `json:"url"`
	PostedAt    string `json:"posted_at"`
	CommentedAt string `json:"commented_at"`
	CommentID   int64  `json:"comment_id,omitempty"`
	Message     string `json:"message"`
}

// JSONFormatter formats the history as JSON.
type JSONFormatter struct{}

func NewJSON() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) Format(w io.Writer, input HistoryInput) error {
	out := jsonHistory{
		Meta: jsonMeta{
			Group: input.Group,
			Total: input.Total,
			Since: formatDuration(input.Since),
		},
		Posts: make([]jsonPost, 0, len(input.Records)),
	}
	for _, r := range input.Records {
		out.Posts = append(out.Posts, jsonPost{
			PostID:      r.PostID,
			OwnerID:     r.OwnerID,
			URL:         PostURL(r.OwnerID, r.PostID),
			PostedAt:    r.PostedAt.UTC().Format(time.RFC3339),
			CommentedAt: r.CommentedAt.UTC().Format(time.RFC3339),
			CommentID:   r.CommentID,
			Message:     r.Message,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
