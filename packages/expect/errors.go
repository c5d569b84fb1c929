package expect

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Assertion error codes surfaced to callers. Parsing the code out of a
// failure message is part of the external contract.
const (
	CodeStatus   = "ERR_ASSERTION_STATUS"
	CodeBody     = "ERR_ASSERTION_BODY"
	CodeHeader   = "ERR_ASSERTION_HEADER"
	CodeFragment = "ERR_ASSERTION_FRAGMENT"
	CodeSchema   = "ERR_VALIDATION_SCHEMA"
	CodeCustom   = "ERR_CUSTOM_FLOW"
)

// Error is a structured assertion failure. Its formatted message embeds the
// error code, the request context, and a pretty-printed body snippet when
// one is available.
type Error struct {
	Code    string
	Message string
	Context string
	Body    string
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, "\n  at %s", e.Context)
	}
	if e.Body != "" {
		fmt.Fprintf(&b, "\n  response body:\n%s", indent(e.Body, "    "))
	}
	return b.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

// prettyBody re-serializes JSON bodies with indentation for error messages;
// non-JSON bodies pass through truncated.
func prettyBody(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		if data, err := json.MarshalIndent(v, "", "  "); err == nil {
			return string(data)
		}
	}
	s := string(raw)
	if len(s) > 512 {
		s = s[:512] + "..."
	}
	return s
}
