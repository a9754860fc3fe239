// Package registrytest provides an in-process stub of the retro domain
// registry search API for tests.
package registrytest

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// Reply is a canned response. A non-zero Delay holds the reply back until it
// elapses or the client goes away.
type Reply struct {
	Status int
	Body   string
	Delay  time.Duration
}

// Registry serves GET /search/{term} from canned replies and records every
// request path it sees.
type Registry struct {
	mu       sync.Mutex
	replies  map[string]Reply
	fallback Reply
	requests []string
	router   *chi.Mux
}

// New returns a registry that answers unknown terms with an empty object.
func New() *Registry {
	reg := &Registry{
		replies:  make(map[string]Reply),
		fallback: Reply{Status: http.StatusOK, Body: `{}`},
		router:   chi.NewRouter(),
	}
	reg.router.Use(reg.record)
	reg.router.Get("/search/{term}", reg.handleSearch)
	reg.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeReply(w, Reply{Status: http.StatusNotFound, Body: `{"ErrorString":"unknown endpoint"}`})
	})
	return reg
}

// Handle sets the reply for one search term.
func (reg *Registry) Handle(term string, reply Reply) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.replies[term] = reply
}

// Default sets the reply for terms without their own.
func (reg *Registry) Default(reply Reply) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.fallback = reply
}

// Requests returns the escaped paths requested so far.
func (reg *Registry) Requests() []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return append([]string(nil), reg.requests...)
}

// Router exposes chi.Mux for testing.
func (reg *Registry) Router() http.Handler { return reg.router }

// Start serves the registry until the test ends.
func (reg *Registry) Start(tb testing.TB) *httptest.Server {
	tb.Helper()
	srv := httptest.NewServer(reg.router)
	tb.Cleanup(srv.Close)
	return srv
}

// StartTLS serves the registry over HTTPS with a self-signed certificate
// until the test ends.
func (reg *Registry) StartTLS(tb testing.TB) *httptest.Server {
	tb.Helper()
	srv := httptest.NewTLSServer(reg.router)
	tb.Cleanup(srv.Close)
	return srv
}

func (reg *Registry) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reg.mu.Lock()
		reg.requests = append(reg.requests, r.URL.EscapedPath())
		reg.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (reg *Registry) handleSearch(w http.ResponseWriter, r *http.Request) {
	term := chi.URLParam(r, "term")
	if unescaped, err := url.PathUnescape(term); err == nil {
		term = unescaped
	}

	reg.mu.Lock()
	reply, ok := reg.replies[term]
	if !ok {
		reply = reg.fallback
	}
	reg.mu.Unlock()

	if reply.Delay > 0 {
		select {
		case <-time.After(reply.Delay):
		case <-r.Context().Done():
			return
		}
	}
	writeReply(w, reply)
}

func writeReply(w http.ResponseWriter, reply Reply) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.Status)
	_, _ = w.Write([]byte(reply.Body))
}
