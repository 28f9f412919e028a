package cred

import (
	"encoding/json"
	"errors"
	"fmt"
	"go/types"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-chi/chi"

	"github.com/nasa-jpl/cred/server"
)

// ErrOutsideRoot is returned when a requested output folder escapes the
// wrapper's root
var ErrOutsideRoot = errors.New("output folder outside of root")

// HTTPWrapper exposes a Conversion over HTTP.  Reads are served concurrently;
// writes are serialized.
type HTTPWrapper struct {
	// Root confines the output folders of Write.  Relative folders are
	// joined to it.  An empty Root accepts any folder.
	Root string

	c  *Conversion
	mu sync.Mutex
	rt server.RouteTable
}

// NewHTTPWrapper returns an HTTP wrapper around a conversion which writes
// only beneath root
func NewHTTPWrapper(c *Conversion, root string) *HTTPWrapper {
	h := &HTTPWrapper{c: c, Root: root}
	h.rt = server.RouteTable{
		{Method: http.MethodGet, Path: "/geometry"}:        h.GetGeometry,
		{Method: http.MethodGet, Path: "/scan"}:            h.GetScan,
		{Method: http.MethodGet, Path: "/frames"}:          h.GetFrames,
		{Method: http.MethodGet, Path: "/formats"}:         h.GetFormats,
		{Method: http.MethodPost, Path: "/write/{format}"}: h.Write,
	}
	return h
}

// RT satisfies server.HTTPer
func (h *HTTPWrapper) RT() server.RouteTable {
	return h.rt
}

// GetGeometry sends the experiment geometry as JSON
func (h *HTTPWrapper) GetGeometry(w http.ResponseWriter, r *http.Request) {
	server.RespondJSON(w, h.c.Geometry())
}

// GetScan sends the rotation parameters as JSON
func (h *HTTPWrapper) GetScan(w http.ResponseWriter, r *http.Request) {
	server.RespondJSON(w, h.c.Scan())
}

// GetFrames sends the number of frames as {"int": n}
func (h *HTTPWrapper) GetFrames(w http.ResponseWriter, r *http.Request) {
	hp := server.HumanPayload{T: types.Int, Int: h.c.Len()}
	hp.EncodeAndRespond(w, r)
}

// GetFormats sends the list of format names accepted by Write
func (h *HTTPWrapper) GetFormats(w http.ResponseWriter, r *http.Request) {
	server.RespondJSON(w, Formats)
}

// resolve maps a requested folder to the path written to
func (h *HTTPWrapper) resolve(folder string) (string, error) {
	if h.Root == "" {
		return folder, nil
	}
	root := filepath.Clean(h.Root)
	p := folder
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	p = filepath.Clean(p)
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, folder)
	}
	return p, nil
}

// Write writes the format named in the URL to the folder given as
// {"str": folder} in the request body.  The folder is taken relative to Root.
func (h *HTTPWrapper) Write(w http.ResponseWriter, r *http.Request) {
	str := server.StrT{}
	err := json.NewDecoder(r.Body).Decode(&str)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if str.Str == "" {
		http.Error(w, "no output folder given", http.StatusBadRequest)
		return
	}
	dir, err := h.resolve(str.Str)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	h.mu.Lock()
	err = h.c.Write(chi.URLParam(r, "format"), dir)
	h.mu.Unlock()
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, ErrUnknownFormat):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrIMGCollision):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
