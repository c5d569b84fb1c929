package request

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/restspec/packages/logging"
)

// Connection pool settings for the default transport.
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
)

// Exchange is the record of one completed send handed to observers.
type Exchange struct {
	ID             string
	Method         string
	URL            string
	RequestHeaders map[string]string
	RequestBody    []byte
	StatusCode     int
	Duration       time.Duration
	ResponseBody   []byte
	Err            error
	StartedAt      time.Time
}

// Observer receives a copy of every exchange the executor performs. History
// stores and latency recorders hang off this hook.
type Observer interface {
	Observe(Exchange)
}

// Executor performs exactly one HTTP exchange per Send and normalizes every
// outcome, including transport failures, into an Outcome. It never retries.
type Executor struct {
	transport http.RoundTripper
	logger    *logging.Logger
	limiter   *rate.Limiter
	observers []Observer
}

// ExecutorOption is a functional option for NewExecutor.
type ExecutorOption func(*Executor)

// WithTransport replaces the underlying round tripper, mainly for tests.
// A custom transport is used as given; proxy directives are not applied to it.
func WithTransport(rt http.RoundTripper) ExecutorOption {
	return func(e *Executor) {
		e.transport = rt
	}
}

// WithLogger sets the logger consumed by Send.
func WithLogger(l *logging.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithRateLimit throttles sends to rps requests per second with the given
// burst. Useful when suites run against shared environments.
func WithRateLimit(rps float64, burst int) ExecutorOption {
	return func(e *Executor) {
		e.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithObserver attaches an observer to every exchange.
func WithObserver(o Observer) ExecutorOption {
	return func(e *Executor) {
		e.observers = append(e.observers, o)
	}
}

// NewExecutor creates an executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{logger: logging.Discard()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) buildTransport(spec *Spec) http.RoundTripper {
	if e.transport != nil {
		return e.transport
	}
	t := &http.Transport{
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
	}
	// No directive means a direct connection; the environment proxy is
	// deliberately not consulted.
	if spec.Directive != nil {
		t.Proxy = spec.Directive.ProxyFunc()
	}
	return t
}

// Send performs the one network call for spec and captures the result. A
// non-nil error inside the returned Outcome means no usable response was
// received; HTTP error statuses are returned as data.
func (e *Executor) Send(ctx context.Context, spec *Spec) *Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	id := uuid.NewString()

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			e.logger.Error("Transport Failure", map[string]any{
				"id":    id,
				"url":   spec.ResolveURL(),
				"error": err.Error(),
			})
			return &Outcome{Err: err}
		}
	}

	targetURL := spec.ResolveURL()
	body, contentType, err := encodeBody(spec)
	if err != nil {
		e.logger.Error("Transport Failure", map[string]any{
			"id":    id,
			"url":   targetURL,
			"error": err.Error(),
		})
		return &Outcome{Err: err}
	}
	headers := make(map[string]string, len(spec.Headers)+1)
	for k, v := range spec.Headers {
		headers[k] = v
	}
	if contentType != "" {
		headers["Content-Type"] = contentType
	}

	e.logger.Info("Request", map[string]any{
		"id":      id,
		"method":  spec.Method,
		"url":     targetURL,
		"headers": headers,
	})
	e.logger.Debug("Request Detail", map[string]any{
		"id":      id,
		"body":    string(body),
		"timeout": spec.Timeout.String(),
		"baseUrl": spec.BaseURL,
	})

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, spec.Method, targetURL, reader)
	if err != nil {
		e.logger.Error("Transport Failure", map[string]any{
			"id":    id,
			"url":   targetURL,
			"error": err.Error(),
		})
		return &Outcome{Err: err}
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	client := &http.Client{
		Transport: e.buildTransport(spec),
		Timeout:   spec.Timeout,
	}

	started := time.Now()
	httpResp, err := client.Do(httpReq)
	duration := time.Since(started)

	if err != nil {
		// A failed exchange is always actionable: log it regardless of
		// the configured level.
		e.logger.Error("Transport Failure", map[string]any{
			"id":     id,
			"method": spec.Method,
			"url":    targetURL,
			"error":  err.Error(),
		})
		e.notify(Exchange{
			ID:             id,
			Method:         spec.Method,
			URL:            targetURL,
			RequestHeaders: headers,
			RequestBody:    body,
			Duration:       duration,
			Err:            err,
			StartedAt:      started,
		})
		return &Outcome{Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		e.logger.Error("Transport Failure", map[string]any{
			"id":    id,
			"url":   targetURL,
			"error": err.Error(),
		})
		return &Outcome{Err: err}
	}

	respHeaders := make(map[string]string, len(httpResp.Header))
	for k := range httpResp.Header {
		respHeaders[k] = httpResp.Header.Get(k)
	}
	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    respHeaders,
		Body:       respBody,
		Duration:   duration,
	}

	e.logger.Info("Response", map[string]any{
		"id":     id,
		"status": resp.StatusCode,
		"body":   resp.BodyString(),
	})
	e.logger.Debug("Response Detail", map[string]any{
		"id":         id,
		"statusText": resp.Status,
		"headers":    resp.Headers,
		"durationMs": resp.DurationMs(),
	})

	e.notify(Exchange{
		ID:             id,
		Method:         spec.Method,
		URL:            targetURL,
		RequestHeaders: headers,
		RequestBody:    body,
		StatusCode:     resp.StatusCode,
		Duration:       duration,
		ResponseBody:   respBody,
		StartedAt:      started,
	})
	return &Outcome{Response: resp}
}

func (e *Executor) notify(ex Exchange) {
	for _, o := range e.observers {
		o.Observe(ex)
	}
}

// encodeBody encodes the spec body if one is present. The returned content
// type is non-empty only for multipart bodies, whose boundary header must
// replace the one recorded at GivenBody time.
func encodeBody(spec *Spec) ([]byte, string, error) {
	if spec.Body == nil {
		return nil, "", nil
	}
	data, contentType, err := spec.Body.Encode()
	if err != nil {
		return nil, "", err
	}
	if spec.Body.Kind == BodyMultipart {
		return data, contentType, nil
	}
	return data, "", nil
}
