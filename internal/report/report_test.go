package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/firstcomment/internal/store"
)

func testInput() HistoryInput {
	posted := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	return HistoryInput{
		Group: "bts_official",
		Total: 5,
		Since: 7 * 24 * time.Hour,
		Records: []store.Record{
			{PostID: 42, OwnerID: -29534144, PostedAt: posted, CommentedAt: posted.Add(7 * time.Second), CommentID: 9001, Message: "first!"},
			{PostID: 41, OwnerID: -29534144, PostedAt: posted.Add(-time.Hour), CommentedAt: posted.Add(-time.Hour + 3*time.Second), Message: "first!"},
		},
	}
}

func TestPostURL(t *testing.T) {
	if got := PostURL(-29534144, 42); got != "https://vk.com/wall-29534144_42" {
		t.Errorf("url = %q", got)
	}
}

func TestNew(t *testing.T) {
	for _, format := range []string{"", "terminal", "json"} {
		if _, err := New(format, false); err != nil {
			t.Errorf("New(%q): %v", format, err)
		}
	}
	if _, err := New("xml", false); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{7 * 24 * time.Hour, "7d"},
		{48 * time.Hour, "2d"},
		{36 * time.Hour, "36h"},
		{30 * time.Minute, "30m0s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTerminalFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTerminal(false).Format(&buf, testInput()); err != nil {
		t.Fatalf("format: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"firstcomment: 5 commented posts on bts_official, showing 2 since 7d",
		"2026-10-14 12:00:07  post 42  https://vk.com/wall-29534144_42",
		"7s after publish, comment 9001",
		"post 41",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("color codes present with color=false")
	}
	if strings.Index(out, "post 42") > strings.Index(out, "post 41") {
		t.Error("records should keep newest-first order")
	}
}

func TestTerminalFormat_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTerminal(true).Format(&buf, HistoryInput{Group: "g", Since: 24 * time.Hour}); err != nil {
		t.Fatalf("format: %v", err)
	}
	if !strings.Contains(buf.String(), "No comments yet.") {
		t.Errorf("output = %q", buf.String())
	}
	if !strings.Contains(buf.String(), "\033[1m") {
		t.Error("expected bold header with color=true")
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSON().Format(&buf, testInput()); err != nil {
		t.Fatalf("format: %v", err)
	}

	var result jsonHistory
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal: %v\noutput: %s", err, buf.String())
	}

	if result.Meta.Group != "bts_official" || result.Meta.Total != 5 || result.Meta.Since != "7d" {
		t.Errorf("meta = %+v", result.Meta)
	}
	if len(result.Posts) != 2 {
		t.Fatalf("posts = %d, want 2", len(result.Posts))
	}
	first := result.Posts[0]
	if first.PostID != 42 || first.CommentID != 9001 || first.URL != "https://vk.com/wall-29534144_42" {
		t.Errorf("first post = %+v", first)
	}
	if first.PostedAt != "2026-10-14T12:00:00Z" {
		t.Errorf("posted_at = %q", first.PostedAt)
	}
	if strings.Contains(buf.String(), `"comment_id": 0`) {
		t.Error("zero comment id should be omitted")
	}
}

func TestJSONFormat_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSON().Format(&buf, HistoryInput{Group: "g"}); err != nil {
		t.Fatalf("format: %v", err)
	}
	if !strings.Contains(buf.String(), `"posts": []`) {
		t.Errorf("output = %s", buf.String())
	}
}
