// Package workspace lays out the output folders of one experiment on disk.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Standard subfolders of an experiment.  SMV and MRC frames share the .img
// extension and so are kept apart.
const (
	TIFF = "tiff"
	SMV  = "SMV"
	RED  = "RED"
)

// DefaultStem is the prefix of experiment folders
const DefaultStem = "experiment"

// Workspace is one experiment folder, root/stem_N
type Workspace struct {
	// Root is the folder experiments are created under
	Root string

	// Stem is the experiment folder prefix
	Stem string

	// N is the experiment number
	N int
}

// New creates the first free folder root/stem_N, N counting from 1, and
// returns it.  An empty stem selects DefaultStem.
func New(root, stem string) (*Workspace, error) {
	if stem == "" {
		stem = DefaultStem
	}
	if err := os.MkdirAll(root, 0777); err != nil {
		return nil, err
	}
	n, err := next(root, stem)
	if err != nil {
		return nil, err
	}
	for {
		w := &Workspace{Root: root, Stem: stem, N: n}
		err = os.Mkdir(w.Path(), 0777)
		if err == nil {
			return w, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}
		n++
	}
}

// next scans root for stem_N folders and returns the first N not in use
func next(root, stem string) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, err
	}
	used := map[int]bool{}
	prefix := stem + "_"
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(name, prefix))
		if err != nil || n < 1 {
			continue
		}
		used[n] = true
	}
	n := 1
	for used[n] {
		n++
	}
	return n, nil
}

// Path is the experiment folder
func (w *Workspace) Path() string {
	return filepath.Join(w.Root, fmt.Sprintf("%s_%d", w.Stem, w.N))
}

// Subdir makes the named subfolder of the experiment and returns it
func (w *Workspace) Subdir(name string) (string, error) {
	fldr := filepath.Join(w.Path(), name)
	err := os.MkdirAll(fldr, 0777)
	return fldr, err
}
