package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/litscan/litscan/internal/batch"
	"github.com/litscan/litscan/internal/model"
	"github.com/litscan/litscan/internal/progress"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending and completed files per subfolder",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Read-only: a missing workbook just means nothing is done yet.
		done := map[model.FileKey]struct{}{}
		if _, err := os.Stat(cfg.Output.Path); err == nil {
			progressStore, err := progress.Open(cfg.Output.Path, cfg.Output.Sheet)
			if err != nil {
				return err
			}
			done = progressStore.Load()
		}

		subs, err := batch.ScanSubfolders(cfg.Input.Dir)
		if err != nil {
			return err
		}
		if len(subs) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "no part_N subfolders under %s\n", cfg.Input.Dir)
			return nil
		}

		w := cmd.OutOrStdout()
		var totalPending, totalDone int
		for _, sub := range subs {
			files, err := batch.ListPapers(sub)
			if err != nil {
				return err
			}

			var pending int
			for _, f := range files {
				if _, ok := done[f.Key()]; !ok {
					pending++
				}
			}

			fmt.Fprintf(w, "%-12s  %3d files  %3d done  %3d pending\n",
				sub.Name, len(files), len(files)-pending, pending)
			totalPending += pending
			totalDone += len(files) - pending
		}

		fmt.Fprintf(w, "\ntotal: %d done, %d pending\n", totalDone, totalPending)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
