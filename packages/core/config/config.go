// Package config resolves the effective configuration for a request pipeline.
//
// Resolution layers, in increasing priority: compiled-in defaults, the
// environment overlay (RESTSPEC_* variables, computed once per process and
// cached), the process-wide configured defaults, and finally the caller's
// per-instance override. Later layers win key by key; absent keys fall
// through.
//
// The configured-defaults registry is deliberately global mutable state: it
// affects builders constructed after the call, never builders that already
// hold a snapshot. Tests that touch it must call ResetDefaults, typically
// via t.Cleanup.
package config

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abdul-hamid-achik/restspec/packages/core/env"
	"github.com/abdul-hamid-achik/restspec/packages/proxy"
)

// Compiled-in defaults.
const (
	DefaultTimeout  = 10 * time.Second
	DefaultLogLevel = "none"
	DefaultBaseURL  = "http://localhost:8080"
)

// DefaultLogFile derives the default log file path from the process id.
func DefaultLogFile() string {
	return fmt.Sprintf("restspec-%d.log", os.Getpid())
}

// Effective is the fully merged, immutable configuration snapshot used to
// construct a request pipeline. Version increases monotonically with each
// snapshot so callers can tell stale configuration apart.
type Effective struct {
	Version  int64
	Timeout  time.Duration
	LogLevel string
	LogFile  string
	BaseURL  string
	Proxy    proxy.Spec
}

// Override is a partial configuration; nil fields fall through to the layer
// below.
type Override struct {
	Timeout  *time.Duration
	LogLevel *string
	LogFile  *string
	BaseURL  *string
	Proxy    proxy.Spec
}

// merge applies o on top of e, key by key.
func (e Effective) merge(o *Override) Effective {
	if o == nil {
		return e
	}
	if o.Timeout != nil {
		e.Timeout = *o.Timeout
	}
	if o.LogLevel != nil {
		e.LogLevel = *o.LogLevel
	}
	if o.LogFile != nil {
		e.LogFile = *o.LogFile
	}
	if o.BaseURL != nil {
		e.BaseURL = *o.BaseURL
	}
	if o.Proxy != nil {
		e.Proxy = o.Proxy
	}
	return e
}

var (
	envOnce sync.Once
	envVals env.Values

	version atomic.Int64

	registryMu sync.Mutex
	registry   *Override
)

// envOverlay loads the RESTSPEC_* overlay once per process.
func envOverlay() *Override {
	envOnce.Do(func() {
		envVals = env.Load()
	})
	o := &Override{
		LogLevel: envVals.LogLevel,
		LogFile:  envVals.LogFile,
		BaseURL:  envVals.BaseURL,
	}
	if envVals.TimeoutMS != nil {
		d := time.Duration(*envVals.TimeoutMS) * time.Millisecond
		o.Timeout = &d
	}
	if envVals.Proxy != nil {
		o.Proxy = proxy.URL(*envVals.Proxy)
	}
	return o
}

func compiled() Effective {
	return Effective{
		Timeout:  DefaultTimeout,
		LogLevel: DefaultLogLevel,
		LogFile:  DefaultLogFile(),
		BaseURL:  DefaultBaseURL,
	}
}

// Resolve merges all layers with the given per-instance override and stamps
// a fresh version. A nil override resolves the current defaults.
func Resolve(override *Override) Effective {
	e := compiled().merge(envOverlay())

	registryMu.Lock()
	e = e.merge(registry)
	registryMu.Unlock()

	e = e.merge(override)
	e.Version = version.Add(1)
	return e
}

// Defaults returns the current defaults without a per-instance override.
func Defaults() Effective {
	return Resolve(nil)
}

// ConfigureDefaults updates the process-wide configured defaults in place.
// Builders constructed afterwards observe the change; existing snapshots do
// not.
func ConfigureDefaults(partial *Override) {
	if partial == nil {
		return
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if registry == nil {
		registry = &Override{}
	}
	if partial.Timeout != nil {
		registry.Timeout = partial.Timeout
	}
	if partial.LogLevel != nil {
		registry.LogLevel = partial.LogLevel
	}
	if partial.LogFile != nil {
		registry.LogFile = partial.LogFile
	}
	if partial.BaseURL != nil {
		registry.BaseURL = partial.BaseURL
	}
	if partial.Proxy != nil {
		registry.Proxy = partial.Proxy
	}
}

// ResetDefaults clears the configured-defaults registry. Tests that call
// ConfigureDefaults must call this between cases.
func ResetDefaults() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = nil
}
