// Package request holds the accumulated description of one pending HTTP
// exchange and the executor that performs it.
package request

import (
	"net/url"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/restspec/packages/proxy"
)

// Spec is the mutable, builder-accumulated description of one pending
// request. It is owned by exactly one builder; the executor reads it but
// never writes it.
type Spec struct {
	Method   string
	Endpoint string
	BaseURL  string
	Headers  map[string]string
	Query    map[string]string
	Body     *Body
	Timeout  time.Duration

	// Directive is the resolved proxy setting, or nil for a direct
	// connection. Agent and classic forms are mutually exclusive by
	// construction in the proxy package.
	Directive *proxy.Directive
}

// NewSpec creates an empty spec with initialized maps.
func NewSpec() *Spec {
	return &Spec{
		Headers: make(map[string]string),
		Query:   make(map[string]string),
	}
}

// SetHeader records a header, last write wins per key.
func (s *Spec) SetHeader(key, value string) {
	s.Headers[key] = value
}

// SetQuery records a query parameter, last write wins per key.
func (s *Spec) SetQuery(key, value string) {
	s.Query[key] = value
}

// Clone returns a deep copy that shares no mutable state with the receiver.
// SendAndExpect applies its per-call overrides to a clone so the originating
// builder is never mutated.
func (s *Spec) Clone() *Spec {
	c := *s
	c.Headers = make(map[string]string, len(s.Headers))
	for k, v := range s.Headers {
		c.Headers[k] = v
	}
	c.Query = make(map[string]string, len(s.Query))
	for k, v := range s.Query {
		c.Query[k] = v
	}
	if s.Body != nil {
		b := *s.Body
		c.Body = &b
	}
	return &c
}

// ResolveURL joins the base URL and endpoint and appends accumulated query
// parameters. An endpoint that is already absolute is used as is.
func (s *Spec) ResolveURL() string {
	raw := s.Endpoint
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		base := strings.TrimSuffix(s.BaseURL, "/")
		if raw != "" && !strings.HasPrefix(raw, "/") {
			raw = "/" + raw
		}
		raw = base + raw
	}

	if len(s.Query) == 0 {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for k, v := range s.Query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Header performs a case-insensitive header lookup on the spec.
func (s *Spec) Header(key string) string {
	for k, v := range s.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
