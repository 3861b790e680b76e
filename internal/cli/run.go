package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/firstcomment/internal/commenter"
	"github.com/ppiankov/firstcomment/internal/config"
	"github.com/ppiankov/firstcomment/internal/privacy"
	"github.com/ppiankov/firstcomment/internal/source"
	"github.com/ppiankov/firstcomment/internal/store"
	"github.com/spf13/cobra"
)

var (
	runOnce   bool
	runEvery  string
	runDryRun bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch the wall and comment on new posts",
	RunE:  runAction,
}

func init() {
	runCmd.Flags().BoolVar(&runOnce, "once", false, "run a single poll and exit")
	runCmd.Flags().StringVar(&runEvery, "every", "", "override bot.interval (e.g. 10s)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "report fresh posts without commenting")
	rootCmd.AddCommand(runCmd)
}

// connectWall returns an authorized wall client. Tests replace it.
var connectWall = connectVK

func connectVK(ctx context.Context, cfg *config.Config) (commenter.Wall, error) {
	vk := source.NewVK(cfg.VK.AccessToken)
	if vk.Authorized() {
		return vk, nil
	}
	err := vk.Authorize(ctx, source.Credentials{
		ApplicationID: cfg.VK.ApplicationID,
		ClientSecret:  cfg.VK.ClientSecret,
		Login:         cfg.VK.Login,
		Password:      cfg.VK.Password,
		Scope:         cfg.VK.Scope,
	})
	if err != nil {
		return nil, err
	}
	return vk, nil
}

// ledger is what the commands need from either store implementation.
type ledger interface {
	commenter.Ledger
	List(ctx context.Context, since time.Time, limit int) ([]store.Record, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

func openLedger(cfg *config.Config) (ledger, error) {
	if cfg.Storage.Mode == config.StorageMemory {
		return store.NewMemory(), nil
	}
	return store.Open(cfg.Storage.Path)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	interval := cfg.Bot.Interval.Duration
	every, err := parseRunEvery(runEvery)
	if err != nil {
		return err
	}
	if every > 0 {
		interval = every
	}

	redactor := privacy.NewRedactor(cfg.RedactPatterns(), cfg.Secrets()...)
	out := cmd.OutOrStdout()
	ctx := commandContext(cmd)

	db, err := openLedger(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	wall, err := connectWall(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect: %s", redactor.Error(err))
	}

	p, err := commenter.New(wall, db, commenter.Options{
		Group:     cfg.VK.TargetGroup,
		Message:   cfg.VK.TargetMessage,
		WallCount: cfg.Bot.WallCount,
		Interval:  interval,
		Freshness: cfg.Bot.Freshness.Duration,
		Retain:    cfg.Storage.Retain.Duration,
		OnError:   commenter.ErrorPolicy(cfg.Bot.OnError),
		DryRun:    runDryRun,
		Out:       out,
		Redact:    redactor.Redact,
	})
	if err != nil {
		return err
	}

	if runOnce {
		res, err := p.Poll(ctx)
		if err != nil {
			return errors.New(redactor.Error(err))
		}
		if msg := describe(res); msg != "" {
			fmt.Fprintln(out, msg)
		}
		return nil
	}

	fmt.Fprintf(out, "Watching %s every %s (freshness %s)\n",
		cfg.VK.TargetGroup, interval, cfg.Bot.Freshness.Duration)
	if err := p.Run(ctx); err != nil {
		return errors.New(redactor.Error(err))
	}
	return nil
}

// describe explains a poll that did not comment; it returns "" otherwise.
func describe(res commenter.Result) string {
	switch res.Outcome {
	case commenter.NoPost:
		return "No unpinned post on the wall."
	case commenter.Skipped:
		if res.PostID == 0 {
			return fmt.Sprintf("Skipped latest post: %s.", res.Verdict)
		}
		return fmt.Sprintf("Skipped post %d: %s.", res.PostID, res.Verdict)
	default:
		return ""
	}
}

func parseRunEvery(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse --every: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("--every must be positive, got %s", d)
	}
	return d, nil
}
