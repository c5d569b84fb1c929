// Package mock provides an in-process stub HTTP server with declarative
// routes, used to point the request pipeline at a local endpoint in tests
// and examples.
package mock

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Route declares one stubbed response. Method and Path must match the
// incoming request exactly; an empty Method matches any.
type Route struct {
	Method  string            `yaml:"method"`
	Path    string            `yaml:"path"`
	Status  int               `yaml:"status"`
	Headers map[string]string `yaml:"headers"`
	Body    string            `yaml:"body"`
	DelayMS int               `yaml:"delay_ms"`
}

// Server is an httptest-backed stub.
type Server struct {
	mu     sync.RWMutex
	routes []Route
	server *httptest.Server
}

// NewServer starts a stub with the given routes. Unmatched requests get 404.
func NewServer(routes ...Route) *Server {
	s := &Server{routes: routes}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL returns the base URL of the running stub.
func (s *Server) URL() string {
	return s.server.URL
}

// Route adds a route to the running stub.
func (s *Server) Route(r Route) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append(s.routes, r)
	return s
}

// LoadRoutes reads a YAML route file and appends its routes.
func (s *Server) LoadRoutes(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read route file: %w", err)
	}
	var file struct {
		Routes []Route `yaml:"routes"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse route file %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append(s.routes, file.Routes...)
	return nil
}

// Close shuts the stub down.
func (s *Server) Close() {
	s.server.Close()
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	routes := make([]Route, len(s.routes))
	copy(routes, s.routes)
	s.mu.RUnlock()

	for _, route := range routes {
		if route.Path != r.URL.Path {
			continue
		}
		if route.Method != "" && route.Method != r.Method {
			continue
		}

		if route.DelayMS > 0 {
			time.Sleep(time.Duration(route.DelayMS) * time.Millisecond)
		}
		for k, v := range route.Headers {
			w.Header().Set(k, v)
		}
		status := route.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(route.Body))
		return
	}

	http.NotFound(w, r)
}
