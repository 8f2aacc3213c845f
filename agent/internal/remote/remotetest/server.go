// Package remotetest provides an in-process ingestion endpoint for tests.
//
// Server enforces basic authentication, decodes every accepted push with
// encoder.Decode and keeps the result. Scripted status codes let tests
// simulate outages and rejections.
package remotetest

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/chilemetrics/chilemetrics/agent/internal/config"
	"github.com/chilemetrics/chilemetrics/agent/internal/encoder"
	"github.com/chilemetrics/chilemetrics/pkg/types"
)

// Push is one accepted request.
type Push struct {
	ContentType string
	Body        []byte
	Samples     []types.Sample
}

// Server is a fake ingestion endpoint listening on a local port.
type Server struct {
	*httptest.Server

	username string
	password string

	mu       sync.Mutex
	requests int
	script   []int
	pushes   []Push
}

// NewServer starts a Server that accepts the given credentials on
// config.DefaultPushPath. Callers must Close it.
func NewServer(username, password string) *Server {
	s := &Server{username: username, password: password}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// FailNext makes the next len(codes) requests answer with the given status
// codes, in order, before any authentication or decoding.
func (s *Server) FailNext(codes ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, codes...)
}

// Requests returns the number of requests received, accepted or not.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Pushes returns a copy of the accepted pushes.
func (s *Server) Pushes() []Push {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Push, len(s.pushes))
	copy(out, s.pushes)
	return out
}

// Samples returns every sample accepted so far, in arrival order.
func (s *Server) Samples() []types.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Sample
	for _, p := range s.pushes {
		out = append(out, p.Samples...)
	}
	return out
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests++
	var scripted int
	if len(s.script) > 0 {
		scripted, s.script = s.script[0], s.script[1:]
	}
	s.mu.Unlock()

	if scripted != 0 {
		http.Error(w, http.StatusText(scripted), scripted)
		return
	}
	if r.URL.Path != config.DefaultPushPath {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user, pass, ok := r.BasicAuth()
	if !ok || user != s.username || pass != s.password {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	samples, err := encoder.Decode(bytes.NewReader(body))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.pushes = append(s.pushes, Push{
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
		Samples:     samples,
	})
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}
