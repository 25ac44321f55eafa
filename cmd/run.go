package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/litscan/litscan/internal/batch"
	"github.com/litscan/litscan/internal/config"
	"github.com/litscan/litscan/internal/credential"
	"github.com/litscan/litscan/internal/extract"
	"github.com/litscan/litscan/internal/ocr"
	"github.com/litscan/litscan/internal/progress"
	"github.com/litscan/litscan/internal/store"
	"github.com/litscan/litscan/pkg/claude"
)

var (
	runInput  string
	runOutput string
	runYes    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process pending PDFs and append results to the output workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if runInput != "" {
			cfg.Input.Dir = runInput
		}
		if runOutput != "" {
			cfg.Output.Path = runOutput
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		prompt, err := config.LoadPrompt(cfg.Extract.PromptPath)
		if err != nil {
			return err
		}

		pool, err := credential.NewPool(
			cfg.Anthropic.Keys,
			time.Duration(cfg.Anthropic.CooldownSecs)*time.Second,
			claude.NewClient,
		)
		if err != nil {
			return eris.Wrap(err, "run: build credential pool")
		}

		extractor, err := ocr.NewExtractor(cfg.OCR)
		if err != nil {
			return err
		}

		progressStore, err := progress.Open(cfg.Output.Path, cfg.Output.Sheet)
		if err != nil {
			return err
		}

		journal, err := store.OpenJournal(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer journal.Close()

		var gate batch.Gate = &consoleGate{in: cmd.InOrStdin(), out: cmd.OutOrStdout()}
		if runYes {
			gate = batch.AutoGate
		}

		gateway := extract.NewGateway(extractor, pool, prompt, cfg)
		orch := batch.New(cfg.Input.Dir, gateway, progressStore, gate, &consoleSink{out: cmd.OutOrStdout()})

		entry, err := journal.StartRun(ctx)
		if err != nil {
			return err
		}

		sum, runErr := orch.Run(ctx)

		entry.Processed = sum.Processed
		entry.Succeeded = sum.Succeeded
		entry.Failed = sum.Failed
		entry.LastFile = sum.LastFile
		switch {
		case runErr != nil:
			entry.Status = store.RunStatusFailed
			entry.Error = runErr.Error()
		case sum.Aborted:
			entry.Status = store.RunStatusAborted
		default:
			entry.Status = store.RunStatusCompleted
		}

		// Journal with a fresh context: the run context may already be cancelled.
		if jerr := journal.FinishRun(context.Background(), entry); jerr != nil {
			zap.L().Warn("failed to journal run", zap.Error(jerr))
		}

		if runErr != nil {
			if sum.LastFile != "" {
				return eris.Wrapf(runErr, "run halted after %s", sum.LastFile)
			}
			return runErr
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "input directory of part_N subfolders (overrides config)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "output XLSX path (overrides config)")
	runCmd.Flags().BoolVar(&runYes, "yes", false, "continue past subfolder checkpoints without prompting")
	rootCmd.AddCommand(runCmd)
}
