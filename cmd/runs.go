package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/litscan/litscan/internal/store"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent batch runs from the journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		journal, err := store.OpenJournal(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer journal.Close()

		runs, err := journal.RecentRuns(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-36s  %-20s  %-9s  %9s  %9s  %6s  %s\n",
			"ID", "STARTED", "STATUS", "PROCESSED", "SUCCEEDED", "FAILED", "LAST FILE")
		for _, r := range runs {
			fmt.Fprintf(w, "%-36s  %-20s  %-9s  %9d  %9d  %6d  %s\n",
				r.ID,
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.Status,
				r.Processed, r.Succeeded, r.Failed,
				r.LastFile,
			)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "max number of runs to show")
	rootCmd.AddCommand(runsCmd)
}
