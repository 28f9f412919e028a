package locker

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/nasa-jpl/cred/server"
)

type table struct{ rt server.RouteTable }

func (t table) RT() server.RouteTable { return t.rt }

func newRouter(l *Locker) chi.Router {
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	h := table{rt: server.RouteTable{
		{Method: http.MethodPost, Path: "/write/smv"}: ok,
		{Method: http.MethodGet, Path: "/frames"}:     ok,
	}}
	Inject(h, l)
	r := chi.NewRouter()
	r.Use(l.Check)
	h.RT().Bind(r)
	return r
}

func do(r http.Handler, method, path, body string) int {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec.Code
}

func TestLockedRefusesWrites(t *testing.T) {
	l := New()
	r := newRouter(l)
	if code := do(r, http.MethodPost, "/write/smv", ""); code != http.StatusOK {
		t.Fatalf("unlocked write status %d", code)
	}
	if code := do(r, http.MethodPost, "/lock", `{"bool":true}`); code != http.StatusOK {
		t.Fatalf("lock status %d", code)
	}
	if !l.Locked() {
		t.Fatal("POST /lock true did not lock")
	}
	if code := do(r, http.MethodPost, "/write/smv", ""); code != http.StatusLocked {
		t.Errorf("locked write status %d, expected %d", code, http.StatusLocked)
	}
	if code := do(r, http.MethodGet, "/frames", ""); code != http.StatusOK {
		t.Errorf("locked read status %d", code)
	}
	if code := do(r, http.MethodPost, "/lock", `{"bool":false}`); code != http.StatusOK {
		t.Fatalf("unlock status %d", code)
	}
	if code := do(r, http.MethodPost, "/write/smv", ""); code != http.StatusOK {
		t.Errorf("write after unlock status %d", code)
	}
}
