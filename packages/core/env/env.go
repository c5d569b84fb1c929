// Package env reads environment-sourced configuration overrides.
//
// Overrides come from RESTSPEC_* variables, optionally seeded from a .env
// file first. The config package layers the result between compiled-in
// defaults and caller-supplied overrides.
package env

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Variable names read by Load.
const (
	VarTimeoutMS = "RESTSPEC_TIMEOUT_MS"
	VarLogLevel  = "RESTSPEC_LOG_LEVEL"
	VarLogFile   = "RESTSPEC_LOG_FILE"
	VarBaseURL   = "RESTSPEC_BASE_URL"
	VarProxy     = "RESTSPEC_PROXY"
	VarDotEnv    = "RESTSPEC_DOTENV"
)

// Values holds the environment-sourced overrides. Nil fields mean the
// variable was absent and the lower layer's value stands.
type Values struct {
	TimeoutMS *int
	LogLevel  *string
	LogFile   *string
	BaseURL   *string
	Proxy     *string
}

// Load reads the RESTSPEC_* variables from the process environment. When
// RESTSPEC_DOTENV names a file it is loaded first via godotenv; variables
// already set in the environment win over the file, matching godotenv's
// non-overloading behavior.
func Load() Values {
	if path := os.Getenv(VarDotEnv); path != "" {
		_ = godotenv.Load(path)
	}

	v := Values{}
	if raw, ok := os.LookupEnv(VarTimeoutMS); ok {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
			v.TimeoutMS = &ms
		}
	}
	if raw, ok := os.LookupEnv(VarLogLevel); ok {
		v.LogLevel = &raw
	}
	if raw, ok := os.LookupEnv(VarLogFile); ok {
		v.LogFile = &raw
	}
	if raw, ok := os.LookupEnv(VarBaseURL); ok {
		v.BaseURL = &raw
	}
	if raw, ok := os.LookupEnv(VarProxy); ok {
		v.Proxy = &raw
	}
	return v
}
