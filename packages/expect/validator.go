// Package expect validates the outcome of one HTTP exchange.
//
// A Validator wraps a request outcome and exposes individual assertions plus
// a soft-fail aggregation mode. It is a two-state machine: Passing when a
// response was captured and Failed when the transport gave up. Assertions
// that need a response fail immediately in the Failed state; the inspection
// operations work in both.
package expect

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"github.com/abdul-hamid-achik/restspec/packages/logging"
	"github.com/abdul-hamid-achik/restspec/packages/request"
)

// Assertion is one check against a validator, used with RunAssertions.
type Assertion func(*Validator) error

// Validator wraps the outcome of one send.
type Validator struct {
	outcome *request.Outcome
	spec    *request.Spec
	logger  *logging.Logger
	body    gjson.Result
}

// NewValidator builds a validator over an outcome. The spec provides request
// context for error messages and the RequestConfig inspection.
func NewValidator(outcome *request.Outcome, spec *request.Spec, logger *logging.Logger) *Validator {
	if logger == nil {
		logger = logging.Discard()
	}
	v := &Validator{outcome: outcome, spec: spec, logger: logger}
	if outcome != nil && outcome.Response != nil && gjson.ValidBytes(outcome.Response.Body) {
		v.body = gjson.ParseBytes(outcome.Response.Body)
	}
	return v
}

// WasFailure reports whether the exchange ended in a transport failure.
// Valid in both states.
func (v *Validator) WasFailure() bool {
	return v.outcome == nil || v.outcome.Failed()
}

// Response returns the captured response, or nil after a transport failure.
func (v *Validator) Response() *request.Response {
	if v.outcome == nil {
		return nil
	}
	return v.outcome.Response
}

// RequestConfig returns the frozen request spec, for custom checks.
func (v *Validator) RequestConfig() *request.Spec {
	return v.spec
}

// ErrorBody returns the most useful error payload available: the decoded
// JSON body if present, the raw body text otherwise, or the transport error
// message when nothing was received. Valid in both states.
func (v *Validator) ErrorBody() any {
	if resp := v.Response(); resp != nil && len(resp.Body) > 0 {
		if v.body.Exists() {
			return v.body.Value()
		}
		return resp.BodyString()
	}
	if v.outcome != nil && v.outcome.Err != nil {
		return v.outcome.Err.Error()
	}
	return nil
}

// Extract evaluates a JSONPath-like expression against the body and reports
// whether it matched. Valid whenever a body exists.
func (v *Validator) Extract(path string) (any, bool) {
	if !v.body.Exists() {
		return nil, false
	}
	result := v.body.Get(normalizePath(path))
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

func (v *Validator) context() string {
	if v.spec == nil {
		return ""
	}
	return fmt.Sprintf("%s %s", v.spec.Method, v.spec.ResolveURL())
}

// fail builds the coded failure, logs it at error severity, and returns it.
func (v *Validator) fail(code, message string) error {
	e := &Error{
		Code:    code,
		Message: message,
		Context: v.context(),
	}
	if resp := v.Response(); resp != nil {
		e.Body = prettyBody(resp.Body)
	}
	v.logger.Error("Assertion Failed", e.Error())
	return e
}

func (v *Validator) pass(description string) {
	v.logger.Info("Assertion Passed", description)
}

// noResponse is the Failed-state short circuit for response-only assertions.
func (v *Validator) noResponse(code string) error {
	message := "no response available"
	if v.outcome != nil && v.outcome.Err != nil {
		message = fmt.Sprintf("no response available: %v", v.outcome.Err)
	}
	return v.fail(code, message)
}

// ThenExpectStatus asserts the response status code.
func (v *Validator) ThenExpectStatus(code int) error {
	if v.WasFailure() {
		return v.noResponse(CodeStatus)
	}
	actual := v.Response().StatusCode
	if actual != code {
		return v.fail(CodeStatus, fmt.Sprintf("expected status %d, got %d", code, actual))
	}
	v.pass(fmt.Sprintf("status is %d", code))
	return nil
}

// ThenExpectBody asserts that the JSONPath-like expression matches exactly
// one value strictly equal to expected.
func (v *Validator) ThenExpectBody(path string, expected any) error {
	if v.WasFailure() {
		return v.noResponse(CodeBody)
	}
	if !v.body.Exists() {
		return v.fail(CodeBody, fmt.Sprintf("expected %v at %s, but response body is not JSON", expected, path))
	}
	result := v.body.Get(normalizePath(path))
	if !result.Exists() {
		return v.fail(CodeBody, fmt.Sprintf("expected %v at %s, but path matched nothing", expected, path))
	}
	if !valuesEqual(result.Value(), expected) {
		return v.fail(CodeBody, fmt.Sprintf("expected %v at %s, got %v", expected, path, result.Value()))
	}
	v.pass(fmt.Sprintf("%s is %v", path, expected))
	return nil
}

// ThenExpectHeader asserts an exact header value; the lookup is
// case-insensitive on the header name.
func (v *Validator) ThenExpectHeader(key, value string) error {
	if v.WasFailure() {
		return v.noResponse(CodeHeader)
	}
	actual := v.Response().Header(key)
	if actual != value {
		return v.fail(CodeHeader, fmt.Sprintf("expected header %s to be %q, got %q", key, value, actual))
	}
	v.pass(fmt.Sprintf("header %s is %q", key, value))
	return nil
}

// ThenExpectBodyContains asserts that for every key/value pair in fragment
// the serialized body contains the literal substring "key":value. This is
// textual containment, not structural matching: key ordering inside nested
// values and exact JSON number formatting matter.
func (v *Validator) ThenExpectBodyContains(fragment map[string]any) error {
	if v.WasFailure() {
		return v.noResponse(CodeFragment)
	}
	bodyText := v.Response().BodyString()
	for key, value := range fragment {
		serialized, err := json.Marshal(value)
		if err != nil {
			return v.fail(CodeFragment, fmt.Sprintf("cannot serialize expected value for %q: %v", key, err))
		}
		needle := fmt.Sprintf("%q:%s", key, serialized)
		if !strings.Contains(stripSpacing(bodyText), needle) {
			return v.fail(CodeFragment, fmt.Sprintf("expected body to contain %s", needle))
		}
	}
	v.pass(fmt.Sprintf("body contains %d expected pair(s)", len(fragment)))
	return nil
}

// ThenValidateBody validates the body against a JSON schema given as a
// string, byte slice, or Go value.
func (v *Validator) ThenValidateBody(schema any) error {
	if v.WasFailure() {
		return v.noResponse(CodeSchema)
	}

	var schemaLoader gojsonschema.JSONLoader
	switch s := schema.(type) {
	case string:
		schemaLoader = gojsonschema.NewStringLoader(s)
	case []byte:
		schemaLoader = gojsonschema.NewBytesLoader(s)
	default:
		schemaLoader = gojsonschema.NewGoLoader(s)
	}
	documentLoader := gojsonschema.NewBytesLoader(v.Response().Body)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return v.fail(CodeSchema, fmt.Sprintf("schema validation error: %v", err))
	}
	if !result.Valid() {
		var details []string
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return v.fail(CodeSchema, fmt.Sprintf("schema validation failed: %s", strings.Join(details, "; ")))
	}
	v.pass("body matches schema")
	return nil
}

// RunAssertions runs every assertion in order, collecting failures instead
// of stopping at the first, and returns one combined error whose message is
// the newline-joined concatenation of the individual failures in call order.
// Nil means everything passed.
func (v *Validator) RunAssertions(assertions ...Assertion) error {
	agg := &multierror.Error{ErrorFormat: joinMessages}
	for _, assert := range assertions {
		if err := assert(v); err != nil {
			agg = multierror.Append(agg, err)
		}
	}
	return agg.ErrorOrNil()
}

func joinMessages(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

// CatchAndLog is the custom-flow escape hatch.
//
// In the Failed state it synthesizes an ERR_CUSTOM_FLOW error embedding the
// transport failure message and, when a body was captured, a pretty-printed
// copy of it; the error is passed to fn when one is supplied, otherwise
// returned.
//
// In the Passing state it invokes fn with the validator; an error returned
// by fn is logged at error severity with response-body context, wrapped with
// ERR_CUSTOM_FLOW, and returned.
func (v *Validator) CatchAndLog(fn func(*Validator) error) error {
	if v.WasFailure() {
		message := "request failed without a response"
		if v.outcome != nil && v.outcome.Err != nil {
			message = v.outcome.Err.Error()
		}
		e := &Error{Code: CodeCustom, Message: message, Context: v.context()}
		if resp := v.Response(); resp != nil {
			e.Body = prettyBody(resp.Body)
		}
		v.logger.Error("Request Failed", e.Error())
		if fn != nil {
			return fn(v)
		}
		return e
	}

	if fn == nil {
		return nil
	}
	if err := fn(v); err != nil {
		e := &Error{Code: CodeCustom, Message: err.Error(), Context: v.context()}
		if resp := v.Response(); resp != nil {
			e.Body = prettyBody(resp.Body)
		}
		v.logger.Error("Custom Check Failed", e.Error())
		return e
	}
	return nil
}

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// normalizePath converts a JSONPath-like expression ($.a.b, a[0].b) into
// gjson dot notation.
func normalizePath(path string) string {
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")
	path = bracketIndex.ReplaceAllString(path, ".$1")
	return strings.TrimPrefix(path, ".")
}

// stripSpacing removes the whitespace JSON encoders may insert between a key
// and its value so containment matches both compact and indented bodies.
func stripSpacing(body string) string {
	return strings.NewReplacer("\": ", "\":", "\":\t", "\":").Replace(body)
}
