package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "lead-qualifier",
	Short: "Dental lead qualification service",
	Long:  "Listens for Slack lead notifications, extracts contact fields, verifies the lead against live web sources via an LLM oracle, and writes the verdict back to HubSpot and Slack.",
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
