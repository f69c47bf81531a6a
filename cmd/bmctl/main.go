// Command bmctl is the operator CLI for the BaseMarkets backend: key file
// management, config checks and read-only chain queries.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aegistech/base-markets/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "bmctl",
	Short: "BaseMarkets operator tool",
	Long: `Operate a BaseMarkets backend.

Available commands:
  encrypt-key    - Seal a private key into a password-protected key file
  address        - Print the operator address of the configured key
  unstake-status - Show the unstake lock of a wallet
  config check   - Validate the configuration and print it redacted
  archive list   - List archived activity files in S3`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "path to configuration file")

	rootCmd.AddCommand(encryptKeyCmd, addressCmd, unstakeStatusCmd, configCmd, archiveCmd)
}

// loadConfig reads and validates the configuration named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
