package cli

import (
	"fmt"
	"time"

	"github.com/ppiankov/firstcomment/internal/config"
	"github.com/spf13/cobra"
)

var pruneOlderThan string

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Forget processed posts published before a cutoff",
	RunE:  pruneAction,
}

func init() {
	pruneCmd.Flags().StringVar(&pruneOlderThan, "older-than", "", "age cutoff (default storage.retain)")
	rootCmd.AddCommand(pruneCmd)
}

func pruneAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	age := cfg.Storage.Retain.Duration
	if pruneOlderThan != "" {
		age, err = parseDuration(pruneOlderThan)
		if err != nil {
			return fmt.Errorf("parse --older-than: %w", err)
		}
	}
	if age < cfg.Bot.Freshness.Duration {
		return fmt.Errorf("--older-than %s is shorter than bot.freshness %s; recent posts could be commented twice",
			age, cfg.Bot.Freshness.Duration)
	}

	if cfg.Storage.Mode == config.StorageMemory {
		fmt.Fprintln(cmd.OutOrStdout(), "storage.mode is memory; nothing to prune.")
		return nil
	}

	db, err := openLedger(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	n, err := db.PruneOld(commandContext(cmd), time.Now().Add(-age))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d processed posts older than %s.\n", n, age)
	return nil
}
