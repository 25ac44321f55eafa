package batch

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/litscan/litscan/internal/model"
)

// Subfolder is one part_N directory in the input tree.
type Subfolder struct {
	Name string
	Path string
	Part int
}

var partPattern = regexp.MustCompile(`^part_(\d+)$`)

// ScanSubfolders lists part_N subfolders of root in numeric order. Anything
// not matching the naming convention is ignored, so repeated runs over the
// same tree always see the same sequence.
func ScanSubfolders(root string) ([]Subfolder, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: read input dir %s", root)
	}

	var subs []Subfolder
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := partPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		subs = append(subs, Subfolder{
			Name: e.Name(),
			Path: filepath.Join(root, e.Name()),
			Part: n,
		})
	}

	sort.Slice(subs, func(i, j int) bool { return subs[i].Part < subs[j].Part })
	return subs, nil
}

// ListPapers lists the PDF files in a subfolder in lexicographic filename
// order.
func ListPapers(sub Subfolder) ([]*model.PaperFile, error) {
	entries, err := os.ReadDir(sub.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: read subfolder %s", sub.Path)
	}

	var files []*model.PaperFile
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		files = append(files, model.NewPaperFile(filepath.Join(sub.Path, e.Name()), sub.Name))
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })
	return files, nil
}
