// Package cli provides the command-line interface for firstcomment.
package cli

import (
	"context"
	"fmt"

	"github.com/ppiankov/firstcomment/internal/config"
	"github.com/spf13/cobra"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "firstcomment",
	Short: "Leave the first comment on new posts of a VK group wall",
	Long: "firstcomment polls the wall of a VK group, and when a post younger than the freshness " +
		"window appears it leaves the configured comment exactly once.",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "firstcomment %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "settings file (.json or .yaml)")
	rootCmd.AddCommand(versionCmd)
}

// ExecuteContext runs the root command with ctx available to every subcommand.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
