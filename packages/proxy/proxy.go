// Package proxy resolves proxy specifications into transport-ready directives.
//
// A specification is either a bare URL string (a tunneling endpoint) or a
// classic host/port descriptor with optional credentials. Resolution validates
// the specification and produces a Directive that can be installed on an
// http.Transport. Exactly one directive form is ever active: installing a URL
// agent clears any classic directive and vice versa.
package proxy

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Error codes surfaced by Resolve.
const (
	CodeInvalidProxyURL    = "InvalidProxyUrl"
	CodeInvalidProxyConfig = "InvalidProxyConfig"
)

// SpecError is returned when a proxy specification fails validation.
type SpecError struct {
	Code   string
	Reason string
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

// Auth carries proxy credentials for a classic descriptor.
type Auth struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

// Spec is a proxy specification accepted at the configuration boundary.
// Implementations are URL and Classic; the interface is closed.
type Spec interface {
	spec()
}

// URL is a tunneling proxy endpoint given as a bare URL string.
type URL string

func (URL) spec() {}

// Classic is a direct proxy descriptor passed to the transport.
type Classic struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Auth     *Auth  `json:"auth,omitempty" yaml:"auth,omitempty"`
	Protocol string `json:"protocol,omitempty" yaml:"protocol,omitempty"`
}

func (Classic) spec() {}

// directiveKind discriminates the two directive forms. It is unexported so
// the agent/classic mutual exclusion cannot be broken from outside.
type directiveKind int

const (
	kindAgent directiveKind = iota + 1
	kindClassic
)

// Directive is a resolved, transport-ready proxy setting.
//
// An agent directive tunnels through a proxy URL and is bound to exactly one
// request scheme: resolving an https proxy URL binds the https path and
// leaves plain-http requests direct, and the reverse for an http proxy URL.
// A classic directive applies to every request.
type Directive struct {
	kind directiveKind

	agentURL    *url.URL
	agentScheme string

	classic Classic
}

// IsAgent reports whether the directive is the tunneling-agent form.
func (d *Directive) IsAgent() bool { return d.kind == kindAgent }

// IsClassic reports whether the directive is the classic form.
func (d *Directive) IsClassic() bool { return d.kind == kindClassic }

// AgentURL returns the tunneling endpoint for an agent directive, nil otherwise.
func (d *Directive) AgentURL() *url.URL {
	if d.kind != kindAgent {
		return nil
	}
	return d.agentURL
}

// AgentScheme returns the request scheme an agent directive is bound to
// ("http" or "https"), or "" for a classic directive.
func (d *Directive) AgentScheme() string {
	if d.kind != kindAgent {
		return ""
	}
	return d.agentScheme
}

// ClassicSpec returns the descriptor behind a classic directive.
func (d *Directive) ClassicSpec() (Classic, bool) {
	if d.kind != kindClassic {
		return Classic{}, false
	}
	return d.classic, true
}

// classicURL builds the proxy URL a classic descriptor stands for.
func (d *Directive) classicURL() *url.URL {
	scheme := d.classic.Protocol
	if scheme == "" {
		scheme = "http"
	}
	u := &url.URL{
		Scheme: scheme,
		Host:   fmt.Sprintf("%s:%d", d.classic.Host, d.classic.Port),
	}
	if d.classic.Auth != nil {
		u.User = url.UserPassword(d.classic.Auth.Username, d.classic.Auth.Password)
	}
	return u
}

// ProxyFunc returns a function suitable for http.Transport.Proxy. An agent
// directive proxies only requests whose URL scheme matches its bound path; a
// classic directive proxies everything.
func (d *Directive) ProxyFunc() func(*http.Request) (*url.URL, error) {
	switch d.kind {
	case kindAgent:
		return func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme != d.agentScheme {
				return nil, nil
			}
			return d.agentURL, nil
		}
	case kindClassic:
		target := d.classicURL()
		return func(*http.Request) (*url.URL, error) {
			return target, nil
		}
	default:
		return nil
	}
}

// Resolve turns a specification into a directive. A nil spec resolves to a
// nil directive, which callers interpret as "clear any existing proxy".
func Resolve(spec Spec) (*Directive, error) {
	switch s := spec.(type) {
	case nil:
		return nil, nil
	case URL:
		raw := string(s)
		if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
			return nil, &SpecError{
				Code:   CodeInvalidProxyURL,
				Reason: fmt.Sprintf("proxy URL %q must start with http:// or https://", raw),
			}
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return nil, &SpecError{
				Code:   CodeInvalidProxyURL,
				Reason: fmt.Sprintf("proxy URL %q is not a valid URL", raw),
			}
		}
		return &Directive{kind: kindAgent, agentURL: u, agentScheme: u.Scheme}, nil
	case Classic:
		if s.Host == "" || s.Port == 0 {
			return nil, &SpecError{
				Code:   CodeInvalidProxyConfig,
				Reason: "classic proxy config requires both host and port",
			}
		}
		if s.Protocol != "" && s.Protocol != "http" && s.Protocol != "https" {
			return nil, &SpecError{
				Code:   CodeInvalidProxyConfig,
				Reason: fmt.Sprintf("unsupported proxy protocol %q", s.Protocol),
			}
		}
		return &Directive{kind: kindClassic, classic: s}, nil
	default:
		return nil, &SpecError{
			Code:   CodeInvalidProxyConfig,
			Reason: fmt.Sprintf("unsupported proxy spec type %T", spec),
		}
	}
}

// ParseSpec converts boundary input into a Spec: a string becomes a URL spec,
// a map with host/port becomes a Classic spec. Used by the YAML config loader
// and the CLI, where the shape is only known at runtime.
func ParseSpec(v any) (Spec, error) {
	switch raw := v.(type) {
	case nil:
		return nil, nil
	case string:
		return URL(raw), nil
	case Classic:
		return raw, nil
	case *Classic:
		if raw == nil {
			return nil, nil
		}
		return *raw, nil
	case map[string]any:
		c := Classic{}
		if h, ok := raw["host"].(string); ok {
			c.Host = h
		}
		switch p := raw["port"].(type) {
		case int:
			c.Port = p
		case float64:
			c.Port = int(p)
		}
		if proto, ok := raw["protocol"].(string); ok {
			c.Protocol = proto
		}
		if a, ok := raw["auth"].(map[string]any); ok {
			auth := &Auth{}
			if u, ok := a["username"].(string); ok {
				auth.Username = u
			}
			if p, ok := a["password"].(string); ok {
				auth.Password = p
			}
			c.Auth = auth
		}
		return c, nil
	default:
		return nil, &SpecError{
			Code:   CodeInvalidProxyConfig,
			Reason: fmt.Sprintf("cannot interpret %T as a proxy spec", v),
		}
	}
}
