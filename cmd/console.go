package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/litscan/litscan/internal/batch"
	"github.com/litscan/litscan/internal/extract"
	"github.com/litscan/litscan/internal/model"
)

// consoleSink renders orchestrator events as per-file progress lines.
type consoleSink struct {
	out io.Writer
}

func (s *consoleSink) SubfolderStarted(name string, pending, skipped int) {
	fmt.Fprintf(s.out, "\n=== %s: %d pending, %d already done ===\n", name, pending, skipped)
}

func (s *consoleSink) FileSucceeded(key model.FileKey, rec *model.Record) {
	year := "?"
	if rec.Year != model.YearUnknown {
		year = fmt.Sprintf("%d", rec.Year)
	}
	fmt.Fprintf(s.out, "  ✅ %s — %s, %s. (%s)\n", key.Filename, rec.AuthorSurname, rec.AuthorInitial, year)
}

func (s *consoleSink) FileFailed(key model.FileKey, cause extract.Cause) {
	fmt.Fprintf(s.out, "  ❌ %s — %s\n", key.Filename, cause)
}

func (s *consoleSink) SubfolderFinished(name string, succeeded, failed int) {
	fmt.Fprintf(s.out, "%s done: %d succeeded, %d failed\n", name, succeeded, failed)
}

func (s *consoleSink) RunHalted(key model.FileKey, err error) {
	fmt.Fprintf(s.out, "\n⛔ run halted at %s: %v\n", key, err)
	fmt.Fprintln(s.out, "Completed rows are saved; re-run to resume once credentials recover.")
}

func (s *consoleSink) RunFinished(processed, succeeded, failed int) {
	fmt.Fprintf(s.out, "\nAll subfolders processed: %d files (%d succeeded, %d failed)\n", processed, succeeded, failed)
}

// consoleGate asks the operator whether to continue with the next subfolder.
type consoleGate struct {
	in  io.Reader
	out io.Writer
}

func (g *consoleGate) Continue(ctx context.Context, finished string, remaining int) (bool, error) {
	fmt.Fprintf(g.out, "\n%s completed. %d subfolder(s) remaining. Continue? (y/n): ", finished, remaining)

	scanner := bufio.NewScanner(g.in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return false, err
		}
		return false, nil // EOF = abort
	}

	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes", nil
}

var _ batch.EventSink = (*consoleSink)(nil)
var _ batch.Gate = (*consoleGate)(nil)
