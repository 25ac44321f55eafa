package progress

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litscan/litscan/internal/model"
)

func tempStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out", "papers.xlsx")
	s, err := Open(path, "Papers")
	require.NoError(t, err)
	return s, path
}

func successRow(sub, name string) Row {
	return Row{
		Key: model.FileKey{Subfolder: sub, Filename: name},
		Record: &model.Record{
			AuthorSurname: "Doe",
			AuthorInitial: "J",
			Year:          2020,
			Title:         "T",
			Abstract:      "A",
			Source:        model.FileKey{Subfolder: sub, Filename: name},
		},
		Status: model.StatusSucceeded,
	}
}

func TestOpenCreatesWorkbookWithHeader(t *testing.T) {
	s, path := tempStore(t)

	_, err := os.Stat(path)
	require.NoError(t, err)
	assert.Empty(t, s.Load())

	require.Len(t, s.sheet.Rows, 1)
	assert.Equal(t, "subfolder", s.sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "failure_reason", s.sheet.Rows[0].Cells[8].String())
}

func TestAppendAndReload(t *testing.T) {
	s, path := tempStore(t)

	require.NoError(t, s.Append(successRow("part_1", "a.pdf")))
	require.NoError(t, s.Append(Row{
		Key:           model.FileKey{Subfolder: "part_1", Filename: "b.pdf"},
		Status:        model.StatusFailed,
		FailureReason: "empty_page",
	}))

	reopened, err := Open(path, "Papers")
	require.NoError(t, err)

	keys := reopened.Load()
	assert.Len(t, keys, 2)
	assert.Contains(t, keys, model.FileKey{Subfolder: "part_1", Filename: "a.pdf"})
	assert.Contains(t, keys, model.FileKey{Subfolder: "part_1", Filename: "b.pdf"})

	// Success row carries the metadata; failed row carries only the reason.
	require.Len(t, reopened.sheet.Rows, 3)
	assert.Equal(t, "Doe", reopened.sheet.Rows[1].Cells[2].String())
	assert.Equal(t, "2020", reopened.sheet.Rows[1].Cells[4].String())
	assert.Equal(t, "succeeded", reopened.sheet.Rows[1].Cells[7].String())
	assert.Equal(t, "", reopened.sheet.Rows[2].Cells[2].String())
	assert.Equal(t, "failed", reopened.sheet.Rows[2].Cells[7].String())
	assert.Equal(t, "empty_page", reopened.sheet.Rows[2].Cells[8].String())
}

func TestAppendDuplicateKeyRejected(t *testing.T) {
	s, _ := tempStore(t)

	require.NoError(t, s.Append(successRow("part_1", "a.pdf")))
	err := s.Append(successRow("part_1", "a.pdf"))
	require.ErrorIs(t, err, ErrDuplicateKey)
}

func TestUnknownYearRendersEmptyCell(t *testing.T) {
	s, path := tempStore(t)

	row := successRow("part_1", "a.pdf")
	row.Record.Year = model.YearUnknown
	require.NoError(t, s.Append(row))

	reopened, err := Open(path, "Papers")
	require.NoError(t, err)
	assert.Equal(t, "", reopened.sheet.Rows[1].Cells[4].String())
}

func TestLoadIsSnapshot(t *testing.T) {
	s, _ := tempStore(t)

	snapshot := s.Load()
	require.NoError(t, s.Append(successRow("part_1", "a.pdf")))

	// The snapshot taken before the append must not grow.
	assert.Empty(t, snapshot)
	assert.Len(t, s.Load(), 1)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	s, path := tempStore(t)
	require.NoError(t, s.Append(successRow("part_1", "a.pdf")))

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".papers-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestOpenMissingSheet(t *testing.T) {
	_, path := tempStore(t)
	_, err := Open(path, "WrongSheet")
	require.Error(t, err)
}
