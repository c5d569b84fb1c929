package request

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpec_ResolveURL(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		endpoint string
		query    map[string]string
		want     string
	}{
		{
			name:     "joins base and endpoint",
			baseURL:  "http://localhost:8080",
			endpoint: "/users",
			want:     "http://localhost:8080/users",
		},
		{
			name:     "inserts missing slash",
			baseURL:  "http://localhost:8080",
			endpoint: "users",
			want:     "http://localhost:8080/users",
		},
		{
			name:     "trims trailing base slash",
			baseURL:  "http://localhost:8080/",
			endpoint: "/users",
			want:     "http://localhost:8080/users",
		},
		{
			name:     "absolute endpoint ignores base",
			baseURL:  "http://localhost:8080",
			endpoint: "https://other.example.com/ping",
			want:     "https://other.example.com/ping",
		},
		{
			name:     "appends query params",
			baseURL:  "http://localhost:8080",
			endpoint: "/users",
			query:    map[string]string{"page": "2"},
			want:     "http://localhost:8080/users?page=2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSpec()
			s.BaseURL = tt.baseURL
			s.Endpoint = tt.endpoint
			for k, v := range tt.query {
				s.SetQuery(k, v)
			}
			assert.Equal(t, tt.want, s.ResolveURL())
		})
	}
}

func TestSpec_LastWriteWinsPerKey(t *testing.T) {
	s := NewSpec()
	s.SetHeader("Accept", "text/plain")
	s.SetHeader("Accept", "application/json")
	s.SetQuery("page", "1")
	s.SetQuery("page", "2")

	assert.Equal(t, "application/json", s.Headers["Accept"])
	assert.Equal(t, "2", s.Query["page"])
}

func TestSpec_CloneIsIndependent(t *testing.T) {
	s := NewSpec()
	s.Method = "POST"
	s.SetHeader("X-One", "a")
	s.SetQuery("q", "1")
	s.Body = NewBody(`{"x":1}`, ContentTypeJSON)
	s.Timeout = 5 * time.Second

	c := s.Clone()
	c.SetHeader("X-One", "b")
	c.SetQuery("q", "2")
	c.Body.Payload = `{"x":2}`

	assert.Equal(t, "a", s.Headers["X-One"])
	assert.Equal(t, "1", s.Query["q"])
	assert.Equal(t, `{"x":1}`, s.Body.Payload)
	require.Equal(t, "POST", c.Method)
	assert.Equal(t, 5*time.Second, c.Timeout)
}

func TestSpec_HeaderLookupIsCaseInsensitive(t *testing.T) {
	s := NewSpec()
	s.SetHeader("Content-Type", "application/json")

	assert.Equal(t, "application/json", s.Header("content-type"))
	assert.Equal(t, "", s.Header("X-Missing"))
}
