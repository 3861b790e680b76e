package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/firstcomment/internal/commenter"
	"github.com/ppiankov/firstcomment/internal/config"
	"github.com/ppiankov/firstcomment/internal/source"
	"github.com/spf13/cobra"
)

type fakeWall struct {
	posts    []source.Post
	fetchErr error
	fetches  int
	comments []source.Comment
	onFetch  func(n int)
}

func (w *fakeWall) FetchWall(_ context.Context, _ source.WallQuery) ([]source.Post, error) {
	w.fetches++
	if w.onFetch != nil {
		w.onFetch(w.fetches)
	}
	if w.fetchErr != nil {
		return nil, w.fetchErr
	}
	return w.posts, nil
}

func (w *fakeWall) CreateComment(_ context.Context, c source.Comment) (int64, error) {
	w.comments = append(w.comments, c)
	return int64(len(w.comments)), nil
}

// setupCLI points the package-level flags at a fresh settings file and
// restores everything when the test ends.
func setupCLI(t *testing.T, settings string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, config.DefaultConfigFile)
	settings = strings.ReplaceAll(settings, "{{dir}}", filepath.ToSlash(dir))
	if err := os.WriteFile(path, []byte(settings), 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	oldConfigPath := configPath
	oldConnect := connectWall
	oldOnce, oldEvery, oldDryRun := runOnce, runEvery, runDryRun
	oldSince, oldLimit, oldFormat, oldNoColor := historySince, historyLimit, historyFormat, noColor
	oldOlderThan := pruneOlderThan
	t.Cleanup(func() {
		configPath = oldConfigPath
		connectWall = oldConnect
		runOnce, runEvery, runDryRun = oldOnce, oldEvery, oldDryRun
		historySince, historyLimit, historyFormat, noColor = oldSince, oldLimit, oldFormat, oldNoColor
		pruneOlderThan = oldOlderThan
	})

	configPath = path
	runOnce, runEvery, runDryRun = false, "", false
	historySince, historyLimit, historyFormat, noColor = "7d", 20, "terminal", true
	pruneOlderThan = ""
	return dir
}

func useWall(wall commenter.Wall, err error) {
	connectWall = func(context.Context, *config.Config) (commenter.Wall, error) {
		if err != nil {
			return nil, err
		}
		return wall, nil
	}
}

func newTestCommand(ctx context.Context) (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetContext(ctx)
	return cmd, &buf
}

func requireContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Fatalf("output missing %q:\n%s", want, got)
	}
}

const sqliteSettings = `{
	"vk": {
		"ApplicationId": 1,
		"Login": "bot@example.com",
		"Password": "hunter2",
		"TargetGroup": "bts_official",
		"TargetMessage": "first!"
	},
	"bot": {"interval": "10ms"},
	"storage": {"path": "{{dir}}/firstcomment.db"}
}`

const memorySettings = `{
	"vk": {"AccessToken": "vk1.a.secret", "TargetGroup": "bts_official", "TargetMessage": "first!"},
	"bot": {"interval": "10ms", "on_error": "exit"},
	"storage": {"mode": "memory"}
}`
