package batch

import (
	"context"

	"github.com/litscan/litscan/internal/extract"
	"github.com/litscan/litscan/internal/model"
)

// State is the orchestrator's position in its per-subfolder state machine.
type State string

const (
	StateIdle             State = "idle"
	StateScanning         State = "scanning"
	StateProcessing       State = "processing"
	StateAwaitingOperator State = "awaiting_operator"
	StateDone             State = "done"
)

// EventSink observes orchestrator progress. Implementations must not block;
// the console reporter and the zap logger both hang off this interface so
// the state machine itself stays free of presentation concerns.
type EventSink interface {
	SubfolderStarted(name string, pending, skipped int)
	FileSucceeded(key model.FileKey, rec *model.Record)
	FileFailed(key model.FileKey, cause extract.Cause)
	SubfolderFinished(name string, succeeded, failed int)
	RunHalted(key model.FileKey, err error)
	RunFinished(processed, succeeded, failed int)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) SubfolderStarted(string, int, int)          {}
func (NopSink) FileSucceeded(model.FileKey, *model.Record) {}
func (NopSink) FileFailed(model.FileKey, extract.Cause)    {}
func (NopSink) SubfolderFinished(string, int, int)         {}
func (NopSink) RunHalted(model.FileKey, error)             {}
func (NopSink) RunFinished(int, int, int)                  {}

// Gate is the operator checkpoint consulted after each subfolder except the
// last. Returning false aborts the run cleanly.
type Gate interface {
	Continue(ctx context.Context, finished string, remaining int) (bool, error)
}

// GateFunc adapts a function to the Gate interface.
type GateFunc func(ctx context.Context, finished string, remaining int) (bool, error)

func (f GateFunc) Continue(ctx context.Context, finished string, remaining int) (bool, error) {
	return f(ctx, finished, remaining)
}

// AutoGate always continues, for non-interactive runs.
var AutoGate = GateFunc(func(context.Context, string, int) (bool, error) {
	return true, nil
})
