package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ppiankov/firstcomment/internal/commenter"
	"github.com/ppiankov/firstcomment/internal/config"
	"github.com/ppiankov/firstcomment/internal/privacy"
	"github.com/ppiankov/firstcomment/internal/source"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check settings, storage, and VK access",
	RunE:  doctorAction,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func doctorAction(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	ctx := commandContext(cmd)
	ok := true

	cfg, err := config.Load(configPath)
	if err != nil {
		printCheck(out, false, "%s: %v", configPath, err)
		return fmt.Errorf("some checks failed")
	}
	printCheck(out, true, "%s (group %s, every %s, freshness %s, on_error %s)",
		configPath, cfg.VK.TargetGroup, cfg.Bot.Interval.Duration, cfg.Bot.Freshness.Duration, cfg.Bot.OnError)
	redactor := privacy.NewRedactor(cfg.RedactPatterns(), cfg.Secrets()...)

	db, err := openLedger(cfg)
	if err != nil {
		printCheck(out, false, "storage: %v", err)
		ok = false
	} else {
		defer func() { _ = db.Close() }()
		n, err := db.Count(ctx)
		switch {
		case err != nil:
			printCheck(out, false, "storage: %v", err)
			ok = false
		case cfg.Storage.Mode == config.StorageMemory:
			printCheck(out, true, "storage: memory (history is lost on restart)")
		default:
			printCheck(out, true, "storage %s (%d processed posts)", cfg.Storage.Path, n)
		}
	}

	wall, err := connectWall(ctx, cfg)
	if err != nil {
		printCheck(out, false, "authorization: %s", redactor.Error(err))
		return fmt.Errorf("some checks failed")
	}
	printCheck(out, true, "authorization")

	if !checkWall(ctx, out, wall, cfg, redactor) {
		ok = false
	}

	if !ok {
		return fmt.Errorf("some checks failed")
	}
	fmt.Fprintln(out, "\nAll checks passed.")
	return nil
}

func checkWall(ctx context.Context, out io.Writer, wall commenter.Wall, cfg *config.Config, redactor *privacy.Redactor) bool {
	posts, err := wall.FetchWall(ctx, source.WallQuery{
		Domain: cfg.VK.TargetGroup,
		Count:  cfg.Bot.WallCount,
		Filter: source.FilterAll,
	})
	if err != nil {
		printCheck(out, false, "wall %s: %s", cfg.VK.TargetGroup, redactor.Error(err))
		return false
	}
	printCheck(out, true, "wall %s (%d posts returned)", cfg.VK.TargetGroup, len(posts))

	latest := commenter.SelectLatest(posts)
	switch {
	case latest == nil:
		printInfo(out, "all %d returned posts are pinned; raise bot.wall_count to look further back", len(posts))
	case latest.Date != nil && latest.ID != nil:
		age := time.Since(*latest.Date).Round(time.Second)
		printInfo(out, "latest post %d published %s ago", *latest.ID, age)
	}
	return true
}

func printCheck(w io.Writer, pass bool, format string, args ...any) {
	mark := "FAIL"
	if pass {
		mark = " OK "
	}
	fmt.Fprintf(w, "[%s] %s\n", mark, fmt.Sprintf(format, args...))
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "[INFO] %s\n", fmt.Sprintf(format, args...))
}
