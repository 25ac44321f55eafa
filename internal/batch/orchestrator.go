// Package batch drives the run: deterministic subfolder traversal, per-file
// extraction, durable row appends, and the operator checkpoint between
// subfolders.
package batch

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/litscan/litscan/internal/extract"
	"github.com/litscan/litscan/internal/model"
	"github.com/litscan/litscan/internal/progress"
)

// Processor is the per-file extraction pipeline. *extract.Gateway satisfies it.
type Processor interface {
	Process(ctx context.Context, file *model.PaperFile) (*model.Record, error)
}

// ProgressStore is the durable output ledger. *progress.Store satisfies it.
type ProgressStore interface {
	Load() map[model.FileKey]struct{}
	Append(row progress.Row) error
}

// Summary is what a run produced, whether it completed, aborted, or halted.
type Summary struct {
	Processed int
	Succeeded int
	Failed    int
	LastFile  string
	Aborted   bool
}

// Orchestrator walks the input tree and processes every file whose key is
// not already in the output. Single execution thread; suspension happens
// only at the operator checkpoint.
type Orchestrator struct {
	root    string
	gateway Processor
	store   ProgressStore
	gate    Gate
	events  EventSink
	state   State
}

// New builds an Orchestrator. A nil gate auto-continues; a nil sink discards
// events.
func New(root string, gateway Processor, store ProgressStore, gate Gate, events EventSink) *Orchestrator {
	if gate == nil {
		gate = AutoGate
	}
	if events == nil {
		events = NopSink{}
	}
	return &Orchestrator{
		root:    root,
		gateway: gateway,
		store:   store,
		gate:    gate,
		events:  events,
		state:   StateIdle,
	}
}

// State returns the orchestrator's current state.
func (o *Orchestrator) State() State {
	return o.state
}

// Run executes the batch. Per-file failures become failed rows; fatal
// conditions (credential exhaustion, persistence errors) stop the run with a
// non-nil error. The output written so far is always intact.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{}

	subs, err := ScanSubfolders(o.root)
	if err != nil {
		return sum, err
	}
	if len(subs) == 0 {
		zap.L().Warn("no part_N subfolders found", zap.String("dir", o.root))
		o.state = StateDone
		return sum, nil
	}

	// Resumption snapshot, read once. Files keyed here are never reprocessed.
	done := o.store.Load()

	for i, sub := range subs {
		o.state = StateScanning
		files, err := ListPapers(sub)
		if err != nil {
			return sum, err
		}

		var pending []*model.PaperFile
		for _, f := range files {
			if _, ok := done[f.Key()]; !ok {
				pending = append(pending, f)
			}
		}

		o.state = StateProcessing
		o.events.SubfolderStarted(sub.Name, len(pending), len(files)-len(pending))
		log := zap.L().With(zap.String("subfolder", sub.Name))
		log.Info("processing subfolder",
			zap.Int("pending", len(pending)),
			zap.Int("already_done", len(files)-len(pending)),
		)

		var succeeded, failed int
		for _, f := range pending {
			if err := ctx.Err(); err != nil {
				return sum, eris.Wrap(err, "batch: run cancelled")
			}

			if err := o.processFile(ctx, f, sum); err != nil {
				return sum, err
			}
			if f.Status == model.StatusSucceeded {
				succeeded++
			} else {
				failed++
			}
		}

		o.events.SubfolderFinished(sub.Name, succeeded, failed)

		if i < len(subs)-1 {
			o.state = StateAwaitingOperator
			cont, err := o.gate.Continue(ctx, sub.Name, len(subs)-i-1)
			if err != nil {
				return sum, eris.Wrap(err, "batch: operator gate")
			}
			if !cont {
				log.Info("run aborted at operator checkpoint")
				sum.Aborted = true
				o.state = StateDone
				return sum, nil
			}
		}
	}

	o.state = StateDone
	o.events.RunFinished(sum.Processed, sum.Succeeded, sum.Failed)
	return sum, nil
}

// processFile runs the gateway for one file and appends its row. Returned
// errors are run-fatal; per-file failures are absorbed into the output.
func (o *Orchestrator) processFile(ctx context.Context, f *model.PaperFile, sum *Summary) error {
	key := f.Key()

	rec, err := o.gateway.Process(ctx, f)
	if err != nil {
		if extract.IsFatal(err) {
			o.events.RunHalted(key, err)
			zap.L().Error("run halted",
				zap.String("file", key.String()),
				zap.Error(err),
			)
			return err
		}

		f.Status = model.StatusFailed
		row := progress.Row{
			Key:           key,
			Status:        model.StatusFailed,
			FailureReason: string(extract.CauseOf(err)),
		}
		if aerr := o.store.Append(row); aerr != nil {
			return eris.Wrapf(aerr, "batch: record failure for %s", key)
		}

		sum.Processed++
		sum.Failed++
		sum.LastFile = key.String()
		o.events.FileFailed(key, extract.CauseOf(err))
		zap.L().Warn("file failed",
			zap.String("file", key.String()),
			zap.Error(err),
		)
		return nil
	}

	f.Status = model.StatusSucceeded
	row := progress.Row{
		Key:    key,
		Record: rec,
		Status: model.StatusSucceeded,
	}
	if aerr := o.store.Append(row); aerr != nil {
		return eris.Wrapf(aerr, "batch: record result for %s", key)
	}

	sum.Processed++
	sum.Succeeded++
	sum.LastFile = key.String()
	o.events.FileSucceeded(key, rec)
	return nil
}
