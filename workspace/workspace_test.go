package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewPicksFirstFreeNumber(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"experiment_1", "experiment_2", "experiment_4", "experiment_x", "other_3"} {
		if err := os.Mkdir(filepath.Join(root, d), 0777); err != nil {
			t.Fatal(err)
		}
	}
	w, err := New(root, "")
	if err != nil {
		t.Fatal(err)
	}
	if w.N != 3 {
		t.Errorf("expected experiment 3, got %d", w.N)
	}
	if want := filepath.Join(root, "experiment_3"); w.Path() != want {
		t.Errorf("expected path %s, got %s", want, w.Path())
	}
	st, err := os.Stat(w.Path())
	if err != nil || !st.IsDir() {
		t.Errorf("expected %s to be created", w.Path())
	}
}

func TestNewCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "a", "b")
	w, err := New(root, "scan")
	if err != nil {
		t.Fatal(err)
	}
	if w.N != 1 || filepath.Base(w.Path()) != "scan_1" {
		t.Errorf("expected scan_1, got %s", w.Path())
	}
}

func TestSubdir(t *testing.T) {
	w, err := New(t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{TIFF, SMV, RED} {
		fldr, err := w.Subdir(name)
		if err != nil {
			t.Fatal(err)
		}
		if fldr != filepath.Join(w.Path(), name) {
			t.Errorf("unexpected subfolder %s", fldr)
		}
		if _, err := os.Stat(fldr); err != nil {
			t.Error(err)
		}
	}
	// a second call is a no-op
	if _, err := w.Subdir(SMV); err != nil {
		t.Error(err)
	}
}
