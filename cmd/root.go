package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadrouter/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "leadrouter",
	Short: "Lead scoring and routing engine",
	Long:  "Scores survey answers against a remotely configured rubric, classifies leads into priority tiers, and routes them to the matching booking experience while carrying identity and attribution across pages.",
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
