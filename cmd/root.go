package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/litscan/litscan/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "litscan",
	Short: "Resumable bibliographic extraction from academic PDFs",
	Long:  "Walks part_N subfolders of PDF papers, extracts first-page text, asks Claude for author/year/title/abstract, and appends results to an XLSX workbook with crash-safe resumption.",
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
