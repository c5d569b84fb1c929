// Package client provides the fluent request builder: the Given/When surface
// test suites interact with.
//
// A Builder owns one mutable request spec. Given* calls mutate that spec in
// place and return the same builder, so overrides from prior calls persist
// and the last write wins per key. Builders are not safe for concurrent use;
// independent pipelines get independent builders.
package client

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/abdul-hamid-achik/restspec/packages/core/config"
	"github.com/abdul-hamid-achik/restspec/packages/expect"
	"github.com/abdul-hamid-achik/restspec/packages/logging"
	"github.com/abdul-hamid-achik/restspec/packages/proxy"
	"github.com/abdul-hamid-achik/restspec/packages/request"
)

// Builder accumulates one pending request and triggers its execution.
type Builder struct {
	cfg      config.Effective
	spec     *request.Spec
	executor *request.Executor
	logger   *logging.Logger
	ctx      context.Context
}

type builderOptions struct {
	overrides    *config.Override
	logger       *logging.Logger
	executorOpts []request.ExecutorOption
}

// Option configures New.
type Option func(*builderOptions)

// WithOverrides layers a per-instance configuration override on top of the
// current defaults.
func WithOverrides(o *config.Override) Option {
	return func(b *builderOptions) {
		b.overrides = o
	}
}

// WithLogger replaces the logger derived from the effective configuration.
func WithLogger(l *logging.Logger) Option {
	return func(b *builderOptions) {
		b.logger = l
	}
}

// WithObserver attaches an exchange observer (history store, latency
// recorder) to the builder's executor.
func WithObserver(o request.Observer) Option {
	return func(b *builderOptions) {
		b.executorOpts = append(b.executorOpts, request.WithObserver(o))
	}
}

// WithExecutorOptions passes additional options through to the underlying
// executor, e.g. request.WithTransport for tests.
func WithExecutorOptions(opts ...request.ExecutorOption) Option {
	return func(b *builderOptions) {
		b.executorOpts = append(b.executorOpts, opts...)
	}
}

// WithRateLimit throttles this builder's sends.
func WithRateLimit(rps float64, burst int) Option {
	return func(b *builderOptions) {
		b.executorOpts = append(b.executorOpts, request.WithRateLimit(rps, burst))
	}
}

// New constructs a builder over a freshly resolved configuration snapshot.
// An invalid proxy specification in the configuration is a construction
// error: proxy problems surface at configuration time, not at send time.
func New(opts ...Option) (*Builder, error) {
	var bo builderOptions
	for _, opt := range opts {
		opt(&bo)
	}

	cfg := config.Resolve(bo.overrides)

	logger := bo.logger
	if logger == nil {
		level := logging.ParseLevel(cfg.LogLevel)
		if level == logging.LevelNone {
			logger = logging.New(level)
		} else {
			logger = logging.New(level, logging.WithFile(cfg.LogFile))
		}
	}

	spec := request.NewSpec()
	spec.BaseURL = cfg.BaseURL
	spec.Timeout = cfg.Timeout

	if cfg.Proxy != nil {
		directive, err := proxy.Resolve(cfg.Proxy)
		if err != nil {
			return nil, err
		}
		spec.Directive = directive
	}

	executorOpts := append([]request.ExecutorOption{request.WithLogger(logger)}, bo.executorOpts...)
	return &Builder{
		cfg:      cfg,
		spec:     spec,
		executor: request.NewExecutor(executorOpts...),
		logger:   logger,
	}, nil
}

// Config returns the effective configuration snapshot the builder was
// constructed with.
func (b *Builder) Config() config.Effective {
	return b.cfg
}

// Snapshot returns a copy of the accumulated request spec. Mutating the
// copy does not affect the builder.
func (b *Builder) Snapshot() *request.Spec {
	return b.spec.Clone()
}

// GivenHeader records a header; the last write wins per key.
func (b *Builder) GivenHeader(key, value string) *Builder {
	b.spec.SetHeader(key, value)
	return b
}

// GivenHeaders records several headers at once.
func (b *Builder) GivenHeaders(headers map[string]string) *Builder {
	for k, v := range headers {
		b.spec.SetHeader(k, v)
	}
	return b
}

// GivenQueryParam records a query parameter; the last write wins per key.
func (b *Builder) GivenQueryParam(key, value string) *Builder {
	b.spec.SetQuery(key, value)
	return b
}

// GivenQueryParams records several query parameters at once.
func (b *Builder) GivenQueryParams(params map[string]string) *Builder {
	for k, v := range params {
		b.spec.SetQuery(k, v)
	}
	return b
}

// GivenBody records the payload tagged by content type. For every kind but
// multipart the Content-Type header is set to contentType, overwriting any
// prior value; multipart supplies its own boundary header at send time.
func (b *Builder) GivenBody(payload any, contentType string) *Builder {
	b.spec.Body = request.NewBody(payload, contentType)
	if b.spec.Body.Kind != request.BodyMultipart {
		b.spec.SetHeader("Content-Type", contentType)
	}
	return b
}

// GivenTimeout overrides the per-request timeout.
func (b *Builder) GivenTimeout(d time.Duration) *Builder {
	b.spec.Timeout = d
	return b
}

// GivenContext attaches a context to the eventual send.
func (b *Builder) GivenContext(ctx context.Context) *Builder {
	b.ctx = ctx
	return b
}

// GivenBasicAuth sets an Authorization header with basic credentials.
func (b *Builder) GivenBasicAuth(username, password string) *Builder {
	encoded := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	b.spec.SetHeader("Authorization", "Basic "+encoded)
	return b
}

// GivenBearerToken sets an Authorization header with a bearer token.
func (b *Builder) GivenBearerToken(token string) *Builder {
	b.spec.SetHeader("Authorization", "Bearer "+token)
	return b
}

// SetProxy resolves and installs a proxy directive for this request,
// overriding whatever the configuration supplied. A nil spec clears the
// proxy. On a validation error the builder state is unchanged.
func (b *Builder) SetProxy(spec proxy.Spec) error {
	directive, err := proxy.Resolve(spec)
	if err != nil {
		return err
	}
	b.spec.Directive = directive
	return nil
}

// ClearProxy removes any active proxy directive regardless of where it came
// from.
func (b *Builder) ClearProxy() *Builder {
	b.spec.Directive = nil
	return b
}

// send freezes the current spec and performs the one network call.
func (b *Builder) send(method, endpoint string) *expect.Validator {
	frozen := b.spec.Clone()
	frozen.Method = method
	frozen.Endpoint = endpoint
	outcome := b.executor.Send(b.ctx, frozen)
	return expect.NewValidator(outcome, frozen, b.logger)
}

func (b *Builder) WhenGet(endpoint string) *expect.Validator {
	return b.send("GET", endpoint)
}

func (b *Builder) WhenPost(endpoint string) *expect.Validator {
	return b.send("POST", endpoint)
}

func (b *Builder) WhenPut(endpoint string) *expect.Validator {
	return b.send("PUT", endpoint)
}

func (b *Builder) WhenPatch(endpoint string) *expect.Validator {
	return b.send("PATCH", endpoint)
}

func (b *Builder) WhenDelete(endpoint string) *expect.Validator {
	return b.send("DELETE", endpoint)
}

func (b *Builder) WhenHead(endpoint string) *expect.Validator {
	return b.send("HEAD", endpoint)
}

func (b *Builder) WhenOptions(endpoint string) *expect.Validator {
	return b.send("OPTIONS", endpoint)
}

// Overrides carries per-call adjustments for SendAndExpect.
type Overrides struct {
	Headers     map[string]string
	Query       map[string]string
	Body        any
	ContentType string
}

// SendAndExpect applies overrides to a derived copy of the accumulated spec,
// executes, and invokes assert with the resulting validator. The receiving
// builder is never mutated, so repeated calls compose from the same base
// state. Whatever assert returns is propagated.
func (b *Builder) SendAndExpect(method, endpoint string, assert func(*expect.Validator) error, overrides *Overrides) error {
	derived := b.spec.Clone()
	derived.Method = method
	derived.Endpoint = endpoint

	if overrides != nil {
		for k, v := range overrides.Headers {
			derived.SetHeader(k, v)
		}
		for k, v := range overrides.Query {
			derived.SetQuery(k, v)
		}
		if overrides.Body != nil {
			contentType := overrides.ContentType
			if contentType == "" {
				contentType = request.ContentTypeJSON
			}
			derived.Body = request.NewBody(overrides.Body, contentType)
			if derived.Body.Kind != request.BodyMultipart {
				derived.SetHeader("Content-Type", contentType)
			}
		}
	}

	outcome := b.executor.Send(b.ctx, derived)
	v := expect.NewValidator(outcome, derived, b.logger)
	if assert == nil {
		return nil
	}
	return assert(v)
}
