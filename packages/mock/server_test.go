package mock

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/restspec/packages/client"
	"github.com/abdul-hamid-achik/restspec/packages/core/config"
)

func TestServer_ServesDeclaredRoutes(t *testing.T) {
	s := NewServer(Route{
		Method:  "GET",
		Path:    "/users/1",
		Status:  200,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    `{"id":1}`,
	})
	defer s.Close()

	resp, err := http.Get(s.URL() + "/users/1")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, `{"id":1}`, string(body))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestServer_MethodMatters(t *testing.T) {
	s := NewServer(Route{Method: "POST", Path: "/things", Status: 201})
	defer s.Close()

	resp, err := http.Get(s.URL() + "/things")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)

	resp, err = http.Post(s.URL()+"/things", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 201, resp.StatusCode)
}

func TestServer_UnmatchedIs404(t *testing.T) {
	s := NewServer()
	defer s.Close()

	resp, err := http.Get(s.URL() + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)
}

func TestServer_LoadRoutes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	content := `
routes:
  - method: GET
    path: /health
    status: 200
    body: ok
  - method: DELETE
    path: /users/1
    status: 204
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s := NewServer()
	defer s.Close()
	require.NoError(t, s.LoadRoutes(path))

	resp, err := http.Get(s.URL() + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestServer_WorksWithBuilderPipeline(t *testing.T) {
	s := NewServer(Route{
		Method:  "GET",
		Path:    "/users/7",
		Status:  200,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    `{"id":7,"name":"ada"}`,
	})
	defer s.Close()

	url := s.URL()
	b, err := client.New(client.WithOverrides(&config.Override{BaseURL: &url}))
	require.NoError(t, err)

	v := b.WhenGet("/users/7")
	require.NoError(t, v.ThenExpectStatus(200))
	require.NoError(t, v.ThenExpectBody("$.name", "ada"))
}
