package cli

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/firstcomment/internal/config"
	"github.com/ppiankov/firstcomment/internal/source"
	"github.com/ppiankov/firstcomment/internal/store"
)

func seedStore(t *testing.T, dir string, records ...store.Record) {
	t.Helper()
	st, err := store.Open(filepath.Join(dir, "firstcomment.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = st.Close() }()
	for _, r := range records {
		if err := st.MarkProcessed(context.Background(), r); err != nil {
			t.Fatalf("seed %d: %v", r.PostID, err)
		}
	}
}

// --- doctor ---

func TestDoctorAllChecksPass(t *testing.T) {
	setupCLI(t, sqliteSettings)
	useWall(&fakeWall{posts: []source.Post{freshPost(42, time.Minute)}}, nil)

	cmd, out := newTestCommand(context.Background())
	if err := doctorAction(cmd, nil); err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out.String(), "[ OK ] authorization")
	requireContains(t, out.String(), "[ OK ] wall bts_official (1 posts returned)")
	requireContains(t, out.String(), "[INFO] latest post 42 published")
	requireContains(t, out.String(), "All checks passed.")
}

func TestDoctorAllPinned(t *testing.T) {
	setupCLI(t, memorySettings)
	pinned := freshPost(1, 0)
	yes := true
	pinned.IsPinned = &yes
	useWall(&fakeWall{posts: []source.Post{pinned, pinned}}, nil)

	cmd, out := newTestCommand(context.Background())
	if err := doctorAction(cmd, nil); err != nil {
		t.Fatalf("doctor: %v", err)
	}
	requireContains(t, out.String(), "storage: memory")
	requireContains(t, out.String(), "all 2 returned posts are pinned")
}

func TestDoctorAuthorizationFails(t *testing.T) {
	setupCLI(t, sqliteSettings)
	useWall(nil, errors.New("bad password hunter2"))

	cmd, out := newTestCommand(context.Background())
	if err := doctorAction(cmd, nil); err == nil {
		t.Fatal("expected doctor to fail")
	}
	requireContains(t, out.String(), "[FAIL] authorization: bad password [REDACTED]")
}

func TestDoctorWallFails(t *testing.T) {
	setupCLI(t, sqliteSettings)
	useWall(&fakeWall{fetchErr: errors.New("group not found")}, nil)

	cmd, out := newTestCommand(context.Background())
	if err := doctorAction(cmd, nil); err == nil {
		t.Fatal("expected doctor to fail")
	}
	requireContains(t, out.String(), "[FAIL] wall bts_official: group not found")
}

func TestDoctorBadConfig(t *testing.T) {
	setupCLI(t, `{"vk": {}}`)

	cmd, out := newTestCommand(context.Background())
	if err := doctorAction(cmd, nil); err == nil {
		t.Fatal("expected doctor to fail")
	}
	requireContains(t, out.String(), "[FAIL]")
}

// --- init ---

func TestInitWritesLoadableSettings(t *testing.T) {
	setupCLI(t, "{}")
	configPath = filepath.Join(t.TempDir(), "conf", "appsettings.json")
	t.Setenv("VK_ACCESS_TOKEN", "tok")

	cmd, out := newTestCommand(context.Background())
	if err := initAction(cmd, nil); err != nil {
		t.Fatalf("init: %v", err)
	}
	requireContains(t, out.String(), "created: "+configPath)

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load example settings: %v", err)
	}
	if cfg.VK.TargetGroup != "your_group_here" || cfg.Bot.Freshness.Duration != 2*time.Minute {
		t.Errorf("example settings = %+v / %+v", cfg.VK, cfg.Bot)
	}
	if cfg.VK.Scope != config.ScopeAll {
		t.Errorf("scope = %q, want the full default", cfg.VK.Scope)
	}

	cmd, out = newTestCommand(context.Background())
	if err := initAction(cmd, nil); err != nil {
		t.Fatalf("second init: %v", err)
	}
	requireContains(t, out.String(), "exists: "+configPath)
}

// --- history ---

func TestHistoryJSON(t *testing.T) {
	dir := setupCLI(t, sqliteSettings)
	now := time.Now().UTC()
	seedStore(t, dir,
		store.Record{PostID: 41, OwnerID: -1, PostedAt: now.Add(-30 * 24 * time.Hour), CommentedAt: now.Add(-30 * 24 * time.Hour), Message: "first!"},
		store.Record{PostID: 42, OwnerID: -1, PostedAt: now.Add(-time.Hour), CommentedAt: now.Add(-time.Hour), CommentID: 7, Message: "first!"},
	)
	historyFormat = "json"

	cmd, out := newTestCommand(context.Background())
	if err := historyAction(cmd, nil); err != nil {
		t.Fatalf("history: %v", err)
	}

	var result struct {
		Meta struct {
			Group string `json:"group"`
			Total int    `json:"total"`
		} `json:"meta"`
		Posts []struct {
			PostID int64  `json:"post_id"`
			URL    string `json:"url"`
		} `json:"posts"`
	}
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, out)
	}
	if result.Meta.Group != "bts_official" || result.Meta.Total != 2 {
		t.Errorf("meta = %+v", result.Meta)
	}
	if len(result.Posts) != 1 || result.Posts[0].PostID != 42 {
		t.Fatalf("posts = %+v, want only post 42 inside 7d", result.Posts)
	}
	if result.Posts[0].URL != "https://vk.com/wall-1_42" {
		t.Errorf("url = %q", result.Posts[0].URL)
	}
}

func TestHistoryTerminal(t *testing.T) {
	dir := setupCLI(t, sqliteSettings)
	now := time.Now().UTC()
	seedStore(t, dir, store.Record{PostID: 42, OwnerID: -1, PostedAt: now, CommentedAt: now, Message: "first!"})

	cmd, out := newTestCommand(context.Background())
	if err := historyAction(cmd, nil); err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out.String(), "1 commented posts on bts_official")
	requireContains(t, out.String(), "post 42")
}

func TestHistoryMemoryMode(t *testing.T) {
	setupCLI(t, memorySettings)

	cmd, out := newTestCommand(context.Background())
	if err := historyAction(cmd, nil); err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out.String(), "no history is kept")
}

func TestHistoryBadFormat(t *testing.T) {
	setupCLI(t, sqliteSettings)
	historyFormat = "xml"

	cmd, _ := newTestCommand(context.Background())
	if err := historyAction(cmd, nil); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

// --- prune ---

func TestPruneOlderThan(t *testing.T) {
	dir := setupCLI(t, sqliteSettings)
	now := time.Now().UTC()
	seedStore(t, dir,
		store.Record{PostID: 1, PostedAt: now.Add(-72 * time.Hour), CommentedAt: now.Add(-72 * time.Hour)},
		store.Record{PostID: 2, PostedAt: now.Add(-time.Minute), CommentedAt: now},
	)
	pruneOlderThan = "1d"

	cmd, out := newTestCommand(context.Background())
	if err := pruneAction(cmd, nil); err != nil {
		t.Fatalf("prune: %v", err)
	}
	requireContains(t, out.String(), "Pruned 1 processed posts")
}

func TestPruneRefusesWindowBelowFreshness(t *testing.T) {
	setupCLI(t, sqliteSettings)
	pruneOlderThan = "30s"

	cmd, _ := newTestCommand(context.Background())
	err := pruneAction(cmd, nil)
	if err == nil || !strings.Contains(err.Error(), "shorter than bot.freshness") {
		t.Fatalf("error = %v", err)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"7d", 7 * 24 * time.Hour},
		{"48h", 48 * time.Hour},
		{"90s", 90 * time.Second},
	}
	for _, tt := range tests {
		got, err := parseDuration(tt.in)
		if err != nil {
			t.Fatalf("parseDuration(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := parseDuration("xd"); err == nil {
		t.Error("expected error for xd")
	}
}
