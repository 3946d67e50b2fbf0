package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unlist-labs/brokerscan/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "brokerscan",
	Short: "Finds exposed personal data on people-search sites",
	Long:  "Searches people-search brokers for a named individual, scrapes matched profiles into a canonical record, and tracks each exposed data item for removal.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
