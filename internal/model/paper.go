// Package model holds the core domain types shared across the pipeline.
package model

import "path/filepath"

// FileKey identifies a paper across runs. It is derived from subfolder and
// filename rather than the absolute path, so moving the input tree does not
// break resumption.
type FileKey struct {
	Subfolder string
	Filename  string
}

func (k FileKey) String() string {
	return k.Subfolder + "/" + k.Filename
}

// Status is the processing state of a paper file within a run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// PaperFile is one PDF discovered during the directory scan.
type PaperFile struct {
	Path      string // absolute path
	Subfolder string
	Filename  string
	Status    Status
}

// NewPaperFile builds a PaperFile from an absolute path and its subfolder name.
func NewPaperFile(path, subfolder string) *PaperFile {
	return &PaperFile{
		Path:      path,
		Subfolder: subfolder,
		Filename:  filepath.Base(path),
		Status:    StatusPending,
	}
}

// Key returns the stable resumption key for this file.
func (f *PaperFile) Key() FileKey {
	return FileKey{Subfolder: f.Subfolder, Filename: f.Filename}
}

// YearUnknown is the sentinel for a publication year the model could not
// determine. It renders as an empty cell in the output.
const YearUnknown = 0

// Record is the bibliographic metadata extracted from one paper. Immutable
// once created.
type Record struct {
	AuthorSurname string
	AuthorInitial string
	Year          int // YearUnknown when not determined
	Title         string
	Abstract      string
	Source        FileKey
}
