package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litscan/litscan/internal/extract"
	"github.com/litscan/litscan/internal/model"
	"github.com/litscan/litscan/internal/progress"
)

type fakeProcessor struct {
	failWith map[string]error // key string → error to return
	order    []string
}

func (p *fakeProcessor) Process(_ context.Context, f *model.PaperFile) (*model.Record, error) {
	key := f.Key().String()
	p.order = append(p.order, key)
	if err, ok := p.failWith[key]; ok {
		return nil, err
	}
	return &model.Record{
		AuthorSurname: "Doe",
		AuthorInitial: "J",
		Year:          2020,
		Title:         "T",
		Abstract:      "A",
		Source:        f.Key(),
	}, nil
}

type memStore struct {
	done      map[model.FileKey]struct{}
	rows      []progress.Row
	appendErr error
}

func newMemStore(done ...model.FileKey) *memStore {
	m := &memStore{done: make(map[model.FileKey]struct{})}
	for _, k := range done {
		m.done[k] = struct{}{}
	}
	return m
}

func (m *memStore) Load() map[model.FileKey]struct{} {
	snapshot := make(map[model.FileKey]struct{}, len(m.done))
	for k := range m.done {
		snapshot[k] = struct{}{}
	}
	return snapshot
}

func (m *memStore) Append(row progress.Row) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.rows = append(m.rows, row)
	return nil
}

type recordingGate struct {
	answer bool
	calls  int
}

func (g *recordingGate) Continue(context.Context, string, int) (bool, error) {
	g.calls++
	return g.answer, nil
}

func apiFailure() error {
	return &extract.Error{Stage: extract.StageAnalysis, Cause: extract.CauseAPIError, Err: errors.New("boom")}
}

func fatalFailure() error {
	return &extract.Error{Stage: extract.StageAnalysis, Cause: extract.CauseCredentialsExhausted}
}

func TestRunProcessesInDeterministicOrder(t *testing.T) {
	root := buildTree(t, map[string][]string{
		"part_1": {"b.pdf", "a.pdf"},
		"part_2": {"c.pdf"},
	})

	proc := &fakeProcessor{}
	store := newMemStore()
	gate := &recordingGate{answer: true}
	orch := New(root, proc, store, gate, nil)

	sum, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"part_1/a.pdf", "part_1/b.pdf", "part_2/c.pdf"}, proc.order)
	assert.Equal(t, 3, sum.Processed)
	assert.Equal(t, 3, sum.Succeeded)
	assert.Zero(t, sum.Failed)
	assert.Equal(t, "part_2/c.pdf", sum.LastFile)
	assert.Equal(t, StateDone, orch.State())
	assert.Equal(t, 1, gate.calls, "gate consulted only between subfolders")
	require.Len(t, store.rows, 3)
	assert.Equal(t, model.StatusSucceeded, store.rows[0].Status)
}

func TestRunSkipsAlreadyDoneFiles(t *testing.T) {
	root := buildTree(t, map[string][]string{
		"part_1": {"a.pdf", "b.pdf"},
	})

	proc := &fakeProcessor{}
	store := newMemStore(model.FileKey{Subfolder: "part_1", Filename: "a.pdf"})
	orch := New(root, proc, store, nil, nil)

	sum, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"part_1/b.pdf"}, proc.order)
	assert.Equal(t, 1, sum.Processed)
}

func TestRunRecordsPerFileFailureAndContinues(t *testing.T) {
	root := buildTree(t, map[string][]string{
		"part_1": {"a.pdf", "b.pdf"},
	})

	proc := &fakeProcessor{failWith: map[string]error{"part_1/a.pdf": apiFailure()}}
	store := newMemStore()
	orch := New(root, proc, store, nil, nil)

	sum, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Processed)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)

	require.Len(t, store.rows, 2)
	failedRow := store.rows[0]
	assert.Equal(t, model.StatusFailed, failedRow.Status)
	assert.Equal(t, "api_error", failedRow.FailureReason)
	assert.Nil(t, failedRow.Record)
}

func TestRunHaltsOnFatalFailure(t *testing.T) {
	root := buildTree(t, map[string][]string{
		"part_1": {"a.pdf", "b.pdf"},
		"part_2": {"c.pdf"},
	})

	proc := &fakeProcessor{failWith: map[string]error{"part_1/a.pdf": fatalFailure()}}
	store := newMemStore()
	gate := &recordingGate{answer: true}
	orch := New(root, proc, store, gate, nil)

	sum, err := orch.Run(context.Background())
	require.Error(t, err)
	assert.True(t, extract.IsFatal(err))

	// Nothing after the fatal file is attempted, and no row is written for it.
	assert.Equal(t, []string{"part_1/a.pdf"}, proc.order)
	assert.Empty(t, store.rows)
	assert.Zero(t, gate.calls)
	assert.Zero(t, sum.Processed)
}

func TestRunAbortsAtOperatorCheckpoint(t *testing.T) {
	root := buildTree(t, map[string][]string{
		"part_1": {"a.pdf"},
		"part_2": {"b.pdf"},
	})

	proc := &fakeProcessor{}
	store := newMemStore()
	gate := &recordingGate{answer: false}
	orch := New(root, proc, store, gate, nil)

	sum, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, sum.Aborted)
	assert.Equal(t, []string{"part_1/a.pdf"}, proc.order, "abort must stop before the next subfolder")
	assert.Equal(t, StateDone, orch.State())
}

func TestRunTreatsPersistenceErrorAsFatal(t *testing.T) {
	root := buildTree(t, map[string][]string{
		"part_1": {"a.pdf", "b.pdf"},
	})

	proc := &fakeProcessor{}
	store := newMemStore()
	store.appendErr = errors.New("disk full")
	orch := New(root, proc, store, nil, nil)

	_, err := orch.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"part_1/a.pdf"}, proc.order, "run must not continue past a persistence failure")
}

func TestRunNoGateAfterLastSubfolder(t *testing.T) {
	root := buildTree(t, map[string][]string{
		"part_1": {"a.pdf"},
	})

	gate := &recordingGate{answer: true}
	orch := New(root, &fakeProcessor{}, newMemStore(), gate, nil)

	_, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, gate.calls)
}

func TestRunEmptyInputTree(t *testing.T) {
	orch := New(t.TempDir(), &fakeProcessor{}, newMemStore(), nil, nil)

	sum, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Processed)
	assert.Equal(t, StateDone, orch.State())
}

func TestRunCancelledContext(t *testing.T) {
	root := buildTree(t, map[string][]string{
		"part_1": {"a.pdf"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := New(root, &fakeProcessor{}, newMemStore(), nil, nil)
	_, err := orch.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
