package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an example settings file",
	RunE:  initAction,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func initAction(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}

	wrote, err := writeIfNotExists(out, configPath, []byte(exampleConfig))
	if err != nil {
		return err
	}
	if wrote {
		fmt.Fprintf(out, "Edit %s, then run 'firstcomment doctor'.\n", configPath)
	}
	return nil
}

// writeIfNotExists writes data to path if the file does not exist.
// Returns true if the file was created.
func writeIfNotExists(out io.Writer, path string, data []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(out, "  exists: %s\n", path)
		return false, nil
	}
	// Credentials live in this file.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(out, "  created: %s\n", path)
	return true, nil
}

const exampleConfig = `{
  "vk": {
    "ApplicationId": 0,
    "ClientSecret": "",
    "Login": "you@example.com",
    "Password": "",
    "PasswordEnv": "VK_PASSWORD",
    "AccessToken": "",
    "AccessTokenEnv": "VK_ACCESS_TOKEN",
    "Scope": "",
    "TargetGroup": "your_group_here",
    "TargetMessage": "First!"
  },
  "bot": {
    "interval": "5s",
    "freshness": "2m",
    "wall_count": 2,
    "on_error": "continue"
  },
  "storage": {
    "mode": "sqlite",
    "path": ".firstcomment/firstcomment.db",
    "retain": "720h"
  }
}
`
