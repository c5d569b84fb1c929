package history

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/restspec/packages/client"
	"github.com/abdul-hamid-achik/restspec/packages/core/config"
	"github.com/abdul-hamid-achik/restspec/packages/request"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RecordAndRecent(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Record(request.Exchange{
		ID:           "ex-1",
		Method:       "GET",
		URL:          "http://localhost:8080/users",
		StatusCode:   200,
		Duration:     120 * time.Millisecond,
		ResponseBody: []byte(`{"ok":true}`),
		StartedAt:    time.Now().Add(-time.Minute),
	}))
	require.NoError(t, s.Record(request.Exchange{
		ID:        "ex-2",
		Method:    "POST",
		URL:       "http://localhost:8080/users",
		Err:       errors.New("connection refused"),
		StartedAt: time.Now(),
	}))

	entries, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "ex-2", entries[0].ID, "newest first")
	assert.Equal(t, "connection refused", entries[0].TransportError)
	assert.Equal(t, "ex-1", entries[1].ID)
	assert.Equal(t, 200, entries[1].Status)
	assert.Equal(t, int64(120), entries[1].DurationMs)
	assert.Equal(t, `{"ok":true}`, entries[1].ResponseBody)
}

func TestStore_RecentLimit(t *testing.T) {
	s := openStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Record(request.Exchange{
			ID:        string(rune('a' + i)),
			Method:    "GET",
			URL:       "http://localhost/",
			StartedAt: time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := s.Recent(3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestStore_ResponseBodyIsCapped(t *testing.T) {
	s := openStore(t)
	big := make([]byte, bodyCap+100)
	for i := range big {
		big[i] = 'x'
	}

	require.NoError(t, s.Record(request.Exchange{
		ID: "big", Method: "GET", URL: "http://localhost/", ResponseBody: big, StartedAt: time.Now(),
	}))

	entries, err := s.Recent(1)
	require.NoError(t, err)
	assert.Len(t, entries[0].ResponseBody, bodyCap)
}

func TestStore_ObservesBuilderExchanges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	defer server.Close()

	s := openStore(t)
	b, err := client.New(
		client.WithOverrides(&config.Override{BaseURL: &server.URL}),
		client.WithObserver(s),
	)
	require.NoError(t, err)

	v := b.WhenPost("/users")
	require.NoError(t, v.ThenExpectStatus(201))

	entries, err := s.Recent(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "POST", entries[0].Method)
	assert.Equal(t, 201, entries[0].Status)
	assert.NotEmpty(t, entries[0].ID)
}
