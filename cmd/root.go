package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nurilab/nuri-collector/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "nuri-collector",
	Short: "Nuri Jangteo bid notice collector",
	Long:  "Collects bid notices from the Nuri Jangteo (nuri.g2b.go.kr) POST-JSON API into a local store with dedup, plus a weighbridge ticket OCR parser.",
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
