package request

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/restspec/packages/logging"
)

type recordingObserver struct {
	exchanges []Exchange
}

func (r *recordingObserver) Observe(ex Exchange) {
	r.exchanges = append(r.exchanges, ex)
}

func specFor(method, serverURL, endpoint string) *Spec {
	s := NewSpec()
	s.Method = method
	s.BaseURL = serverURL
	s.Endpoint = endpoint
	s.Timeout = 5 * time.Second
	return s
}

func TestExecutor_Send_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":1}`))
	}))
	defer server.Close()

	outcome := NewExecutor().Send(context.Background(), specFor("GET", server.URL, "/users/1"))

	require.False(t, outcome.Failed())
	require.NotNil(t, outcome.Response)
	assert.Equal(t, 200, outcome.Response.StatusCode)
	assert.Equal(t, `{"id":1}`, outcome.Response.BodyString())
	assert.True(t, outcome.Response.IsJSON())
}

func TestExecutor_Send_HTTPErrorStatusIsStillSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer server.Close()

	outcome := NewExecutor().Send(context.Background(), specFor("GET", server.URL, "/missing"))

	assert.False(t, outcome.Failed(), "status is data, not failure")
	require.NotNil(t, outcome.Response)
	assert.Equal(t, 404, outcome.Response.StatusCode)
}

func TestExecutor_Send_TransportFailureIsCaptured(t *testing.T) {
	// Point at a closed port; the connection is refused.
	outcome := NewExecutor().Send(context.Background(), specFor("GET", "http://127.0.0.1:1", "/"))

	assert.True(t, outcome.Failed())
	assert.Nil(t, outcome.Response)
	assert.Error(t, outcome.Err)
}

func TestExecutor_Send_TransportFailureLoggedAtSilentLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.LevelNone, logging.WithConsole(&buf))

	NewExecutor(WithLogger(logger)).Send(context.Background(), specFor("GET", "http://127.0.0.1:1", "/"))

	assert.Contains(t, buf.String(), "Transport Failure")
}

func TestExecutor_Send_SendsHeadersQueryAndBody(t *testing.T) {
	var gotHeader, gotQuery, gotBody, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Token")
		gotQuery = r.URL.Query().Get("page")
		gotContentType = r.Header.Get("Content-Type")
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		gotBody = buf.String()
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	spec := specFor("POST", server.URL, "/users")
	spec.SetHeader("X-Token", "secret")
	spec.SetHeader("Content-Type", ContentTypeJSON)
	spec.SetQuery("page", "3")
	spec.Body = NewBody(map[string]any{"name": "ada"}, ContentTypeJSON)

	outcome := NewExecutor().Send(context.Background(), spec)

	require.False(t, outcome.Failed())
	assert.Equal(t, 201, outcome.Response.StatusCode)
	assert.Equal(t, "secret", gotHeader)
	assert.Equal(t, "3", gotQuery)
	assert.Equal(t, ContentTypeJSON, gotContentType)
	assert.JSONEq(t, `{"name":"ada"}`, gotBody)
}

func TestExecutor_Send_MultipartBoundaryHeaderWins(t *testing.T) {
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, r.ParseMultipartForm(1 << 20))
		assert.Equal(t, "value", r.FormValue("field"))
	}))
	defer server.Close()

	spec := specFor("POST", server.URL, "/upload")
	spec.SetHeader("Content-Type", ContentTypeMultipart)
	spec.Body = NewBody(map[string]string{"field": "value"}, ContentTypeMultipart)

	outcome := NewExecutor().Send(context.Background(), spec)

	require.False(t, outcome.Failed())
	assert.Contains(t, gotContentType, "boundary=")
}

func TestExecutor_Send_NotifiesObservers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	obs := &recordingObserver{}
	NewExecutor(WithObserver(obs)).Send(context.Background(), specFor("GET", server.URL, "/ping"))

	require.Len(t, obs.exchanges, 1)
	ex := obs.exchanges[0]
	assert.NotEmpty(t, ex.ID)
	assert.Equal(t, "GET", ex.Method)
	assert.Equal(t, 200, ex.StatusCode)
	assert.Equal(t, "ok", string(ex.ResponseBody))
	assert.NoError(t, ex.Err)
}

func TestExecutor_Send_ObserverSeesTransportFailure(t *testing.T) {
	obs := &recordingObserver{}
	NewExecutor(WithObserver(obs)).Send(context.Background(), specFor("GET", "http://127.0.0.1:1", "/"))

	require.Len(t, obs.exchanges, 1)
	assert.Error(t, obs.exchanges[0].Err)
	assert.Zero(t, obs.exchanges[0].StatusCode)
}

func TestExecutor_Send_RespectsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	outcome := NewExecutor().Send(ctx, specFor("GET", server.URL, "/slow"))

	assert.True(t, outcome.Failed())
}

func TestExecutor_WithRateLimit_WaitsBeforeSending(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// 1 rps with burst 1: the second send must wait roughly a second. Use a
	// short deadline to prove the limiter is consulted without a slow test.
	e := NewExecutor(WithRateLimit(1, 1))
	first := e.Send(context.Background(), specFor("GET", server.URL, "/"))
	require.False(t, first.Failed())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	second := e.Send(ctx, specFor("GET", server.URL, "/"))

	assert.True(t, second.Failed(), "limiter wait should exceed the context deadline")
}
