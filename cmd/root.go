package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vitis-cat/reconcile-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "reconcile-cli",
	Short: "Grape weighing declaration cleaning and reconciliation",
	Long:  "Validates and repairs Extranet weighing declarations, resolves producer codes from the BBDD master and reconciles them against the eRVC registry.",
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
