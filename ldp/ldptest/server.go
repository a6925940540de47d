// Package ldptest provides an in-process LDP server for tests.
package ldptest

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/teranos/fedlens/internal/httpclient"
	"github.com/teranos/fedlens/ldp"
	"github.com/teranos/fedlens/rdf"
)

// BasePath is where the fake repository is rooted, like Fedora's /rest.
const BasePath = "/rest"

// Request is a request the server received.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   string
}

type entry struct {
	graph *rdf.Graph
	etag  int
}

// Server is a minimal LDP server speaking N-Triples. It supports GET, POST
// to any path, conditional PUT and DELETE.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	resources map[string]*entry
	requests  []Request
	next      int
}

// NewServer starts a server that is closed when t finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{resources: map[string]*entry{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the repository root to configure clients with.
func (s *Server) BaseURL() string { return s.URL + BasePath }

// Subject returns the IRI the server uses for id.
func (s *Server) Subject(id string) rdf.IRI {
	return rdf.IRI(s.BaseURL() + ldp.NormalizeID(id))
}

// Repository returns an HTTP repository talking to s, creating resources in container.
func (s *Server) Repository(container string) *ldp.HTTPRepository {
	return ldp.NewHTTPRepository(s.BaseURL(), container, httpclient.Wrap(s.Client()), nil)
}

// Put stores g under id (relative to BaseURL) directly, bypassing HTTP.
func (s *Server) Put(id string, g *rdf.Graph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[BasePath+ldp.NormalizeID(id)] = &entry{graph: g.Clone(), etag: 1}
}

// Graph returns a copy of the graph stored under id, or nil.
func (s *Server) Graph(id string) *rdf.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.resources[BasePath+ldp.NormalizeID(id)]
	if !ok {
		return nil
	}
	return e.graph.Clone()
}

// Touch bumps the ETag of id, simulating a concurrent writer.
func (s *Server) Touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.resources[BasePath+ldp.NormalizeID(id)]; ok {
		e.etag++
	}
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	body := string(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Body: body})

	key := strings.TrimSuffix(r.URL.Path, "/")
	if !strings.HasPrefix(r.URL.Path, BasePath) {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		e, ok := s.resources[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		body, err := rdf.MarshalNTriples(e.graph)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", rdf.MediaTypeNTriples)
		w.Header().Set("ETag", etag(e))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)

	case http.MethodPost:
		path := fmt.Sprintf("%s/r%d", key, s.next+1)
		location := s.URL + path
		g, err := rdf.DecodeNTriplesBase(bytes.NewReader(data), rdf.IRI(location))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.next++
		e := &entry{graph: g, etag: 1}
		s.resources[path] = e
		w.Header().Set("Location", location)
		w.Header().Set("ETag", etag(e))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(location))

	case http.MethodPut:
		e, ok := s.resources[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if match := r.Header.Get("If-Match"); match != "" && match != etag(e) {
			w.WriteHeader(http.StatusPreconditionFailed)
			return
		}
		g, err := rdf.UnmarshalNTriples(data)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		e.graph = g
		e.etag++
		w.Header().Set("ETag", etag(e))
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		if _, ok := s.resources[key]; !ok {
			http.NotFound(w, r)
			return
		}
		delete(s.resources, key)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func etag(e *entry) string {
	return fmt.Sprintf(`W/"%d"`, e.etag)
}
