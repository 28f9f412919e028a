package cred

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/google/go-cmp/cmp"

	"github.com/nasa-jpl/cred/formats"
)

func newTestRouter(t *testing.T, root string) (chi.Router, *Conversion) {
	t.Helper()
	c, err := New(testBuffer(512, 512), testConfig(t, 512, 512), testExperiment())
	if err != nil {
		t.Fatal(err)
	}
	r := chi.NewRouter()
	NewHTTPWrapper(c, root).RT().Bind(r)
	return r, c
}

func postFolder(r chi.Router, format, folder string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]string{"str": folder})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/write/"+format, strings.NewReader(string(body))))
	return rec
}

func TestHTTPGetters(t *testing.T) {
	r, c := newTestRouter(t, "")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/frames", nil))
	if got := strings.TrimSpace(rec.Body.String()); got != `{"int":3}` {
		t.Errorf("GET /frames: %s", got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/geometry", nil))
	var g formats.Geometry
	if err := json.NewDecoder(rec.Body).Decode(&g); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(c.Geometry(), g); diff != "" {
		t.Errorf("GET /geometry mismatch (-want +got):\n%s", diff)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/formats", nil))
	var names []string
	if err := json.NewDecoder(rec.Body).Decode(&names); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Formats, names); diff != "" {
		t.Errorf("GET /formats mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPWrite(t *testing.T) {
	r, _ := newTestRouter(t, "")
	dir := t.TempDir()
	body, _ := json.Marshal(map[string]string{"str": dir})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/write/smv", strings.NewReader(string(body))))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /write/smv status %d: %s", rec.Code, rec.Body.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "00001.img")); err != nil {
		t.Error(err)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/write/mrc", strings.NewReader(string(body))))
	if rec.Code != http.StatusConflict {
		t.Errorf("MRC over SMV status %d, expected %d", rec.Code, http.StatusConflict)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/write/png", strings.NewReader(string(body))))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown format status %d, expected %d", rec.Code, http.StatusNotFound)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/write/tiff", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing folder status %d, expected %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHTTPWriteConfinedToRoot(t *testing.T) {
	root := t.TempDir()
	r, _ := newTestRouter(t, root)
	if err := os.Mkdir(filepath.Join(root, "smv"), 0777); err != nil {
		t.Fatal(err)
	}

	rec := postFolder(r, "smv", "smv")
	if rec.Code != http.StatusOK {
		t.Fatalf("relative folder status %d: %s", rec.Code, rec.Body.String())
	}
	if _, err := os.Stat(filepath.Join(root, "smv", "00001.img")); err != nil {
		t.Error(err)
	}

	outside := t.TempDir()
	for _, folder := range []string{"..", "../escape", "smv/../../escape", outside} {
		rec = postFolder(r, "tiff", folder)
		if rec.Code != http.StatusForbidden {
			t.Errorf("folder %q status %d, expected %d", folder, rec.Code, http.StatusForbidden)
		}
	}
	if _, err := os.Stat(filepath.Join(outside, "00001.tiff")); !os.IsNotExist(err) {
		t.Errorf("frame written outside of root: %v", err)
	}
}

func TestResolveUnderRoot(t *testing.T) {
	root := filepath.Join("data", "exp_1")
	h := &HTTPWrapper{Root: root}
	p, err := h.resolve(filepath.Join("tiff", ".", "sub"))
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(root, "tiff", "sub"); p != want {
		t.Errorf("expected %s, got %s", want, p)
	}
	if _, err := h.resolve(filepath.Join("..", "exp_2")); !errors.Is(err, ErrOutsideRoot) {
		t.Errorf("expected ErrOutsideRoot, got %v", err)
	}
	if p, _ := (&HTTPWrapper{}).resolve("/anywhere"); p != "/anywhere" {
		t.Errorf("empty root changed folder to %s", p)
	}
}
