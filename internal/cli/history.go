package cli

import (
	"fmt"
	"time"

	"github.com/ppiankov/firstcomment/internal/config"
	"github.com/ppiankov/firstcomment/internal/report"
	"github.com/spf13/cobra"
)

var (
	historySince  string
	historyLimit  int
	historyFormat string
	noColor       bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List posts that already received a comment",
	RunE:  historyAction,
}

func init() {
	historyCmd.Flags().StringVar(&historySince, "since", "7d", "time window (e.g. 7d, 48h)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of posts to show (0 for all)")
	historyCmd.Flags().StringVar(&historyFormat, "format", "terminal", "output format: terminal, json")
	historyCmd.Flags().BoolVar(&noColor, "no-color", false, "disable ANSI colors")
	rootCmd.AddCommand(historyCmd)
}

func historyAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	formatter, err := report.New(historyFormat, !noColor)
	if err != nil {
		return err
	}

	sinceDur, err := parseDuration(historySince)
	if err != nil {
		return fmt.Errorf("parse --since: %w", err)
	}

	if cfg.Storage.Mode == config.StorageMemory {
		fmt.Fprintln(cmd.OutOrStdout(), "storage.mode is memory; no history is kept between runs.")
		return nil
	}

	db, err := openLedger(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx := commandContext(cmd)
	records, err := db.List(ctx, time.Now().Add(-sinceDur), historyLimit)
	if err != nil {
		return err
	}
	total, err := db.Count(ctx)
	if err != nil {
		return err
	}

	return formatter.Format(cmd.OutOrStdout(), report.HistoryInput{
		Group:   cfg.VK.TargetGroup,
		Records: records,
		Total:   total,
		Since:   sinceDur,
	})
}

// parseDuration handles both Go durations and "Nd" day notation.
func parseDuration(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil && days > 0 {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}
