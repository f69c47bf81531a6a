package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/aegistech/base-markets/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

// configCheckCmd validates the config and prints it with secrets masked.
var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and print it redacted",
	RunE:  runConfigCheck,
}

func init() {
	configCmd.AddCommand(configCheckCmd)
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %s: ok\n", configPath)
	return toml.NewEncoder(out).Encode(config.RedactedConfig(cfg))
}
