// Package progress persists one output row per processed paper and exposes
// the set of already-done files so interrupted runs resume without
// duplicating work.
package progress

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/litscan/litscan/internal/model"
)

// ErrDuplicateKey is returned when a row for the same file key is appended
// twice. The orchestrator filters against the loaded snapshot first, so this
// is a defensive guard, not a normal code path.
var ErrDuplicateKey = eris.New("progress: duplicate file key")

// columns is the fixed output header.
var columns = []string{
	"subfolder", "filename",
	"author_surname", "author_initial", "year", "title", "abstract",
	"status", "failure_reason",
}

// Row is one output line: either a successful record or a recorded failure.
type Row struct {
	Key           model.FileKey
	Record        *model.Record // nil when Status is failed
	Status        model.Status
	FailureReason string
}

// Store is the XLSX-backed progress ledger. Single-writer; accessed only by
// the orchestrator.
type Store struct {
	path  string
	file  *xlsx.File
	sheet *xlsx.Sheet
	keys  map[model.FileKey]struct{}
}

// Open loads the workbook at path, creating it (with a header row) when it
// does not exist yet. Keys of all existing rows are indexed for resumption.
func Open(path, sheetName string) (*Store, error) {
	if sheetName == "" {
		sheetName = "Papers"
	}

	if _, err := os.Stat(path); err == nil {
		return openExisting(path, sheetName)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrapf(err, "progress: create output dir for %s", path)
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return nil, eris.Wrap(err, "progress: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range columns {
		header.AddCell().SetString(col)
	}

	s := &Store{
		path:  path,
		file:  file,
		sheet: sheet,
		keys:  make(map[model.FileKey]struct{}),
	}
	if err := s.save(); err != nil {
		return nil, err
	}
	return s, nil
}

func openExisting(path, sheetName string) (*Store, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "progress: open %s", path)
	}

	sheet, ok := file.Sheet[sheetName]
	if !ok {
		return nil, eris.Errorf("progress: sheet %q not found in %s", sheetName, path)
	}

	keys := make(map[model.FileKey]struct{})
	for i, row := range sheet.Rows {
		if i == 0 || len(row.Cells) < 2 {
			continue
		}
		key := model.FileKey{
			Subfolder: row.Cells[0].String(),
			Filename:  row.Cells[1].String(),
		}
		if key.Subfolder == "" && key.Filename == "" {
			continue
		}
		keys[key] = struct{}{}
	}

	return &Store{path: path, file: file, sheet: sheet, keys: keys}, nil
}

// Load returns a snapshot of the file keys already present in the output.
// Taken once at orchestrator start; later appends do not mutate the copy.
func (s *Store) Load() map[model.FileKey]struct{} {
	snapshot := make(map[model.FileKey]struct{}, len(s.keys))
	for k := range s.keys {
		snapshot[k] = struct{}{}
	}
	return snapshot
}

// Append writes one row and persists the workbook atomically. A crash leaves
// the previous workbook intact; the new row is either fully present after
// the rename or fully absent.
func (s *Store) Append(row Row) error {
	if _, dup := s.keys[row.Key]; dup {
		return eris.Wrapf(ErrDuplicateKey, "progress: %s", row.Key)
	}

	r := s.sheet.AddRow()
	r.AddCell().SetString(row.Key.Subfolder)
	r.AddCell().SetString(row.Key.Filename)

	if row.Record != nil {
		r.AddCell().SetString(row.Record.AuthorSurname)
		r.AddCell().SetString(row.Record.AuthorInitial)
		if row.Record.Year == model.YearUnknown {
			r.AddCell().SetString("")
		} else {
			r.AddCell().SetString(strconv.Itoa(row.Record.Year))
		}
		r.AddCell().SetString(row.Record.Title)
		r.AddCell().SetString(row.Record.Abstract)
	} else {
		for range 5 {
			r.AddCell().SetString("")
		}
	}

	r.AddCell().SetString(string(row.Status))
	r.AddCell().SetString(row.FailureReason)

	if err := s.save(); err != nil {
		return err
	}

	s.keys[row.Key] = struct{}{}
	return nil
}

// save writes the whole workbook to a temp file and renames it over the
// target. Rename on the same filesystem is atomic.
func (s *Store) save() error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".papers-*.xlsx")
	if err != nil {
		return eris.Wrap(err, "progress: create temp file")
	}
	tmpName := tmp.Name()

	if err := s.file.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrap(err, "progress: write workbook")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrap(err, "progress: sync workbook")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "progress: close temp file")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "progress: replace %s", s.path)
	}
	return nil
}
