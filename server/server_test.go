package server

import (
	"go/types"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/google/go-cmp/cmp"
)

func TestEndpointsSorted(t *testing.T) {
	noop := func(w http.ResponseWriter, r *http.Request) {}
	rt := RouteTable{
		{Method: http.MethodPost, Path: "/write/{format}"}: noop,
		{Method: http.MethodGet, Path: "/geometry"}:        noop,
		{Method: http.MethodGet, Path: "/frames"}:          noop,
	}
	want := []string{"GET /frames", "GET /geometry", "POST /write/{format}"}
	if diff := cmp.Diff(want, rt.Endpoints()); diff != "" {
		t.Errorf("endpoints mismatch (-want +got):\n%s", diff)
	}
}

func TestBindRoutesByMethod(t *testing.T) {
	rt := RouteTable{
		{Method: http.MethodGet, Path: "/frames"}: func(w http.ResponseWriter, r *http.Request) {
			hp := HumanPayload{T: types.Int, Int: 3}
			hp.EncodeAndRespond(w, r)
		},
	}
	r := chi.NewRouter()
	rt.Bind(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/frames", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /frames status %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"int":3}` {
		t.Errorf("GET /frames body %s", got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/frames", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /frames status %d, expected %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestSubMuxSanitize(t *testing.T) {
	for _, in := range []string{"cred", "/cred", "cred/", "/cred/*"} {
		if out := SubMuxSanitize(in); out != "/cred" {
			t.Errorf("SubMuxSanitize(%q) = %q", in, out)
		}
	}
}
