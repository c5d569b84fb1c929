package request

import (
	"encoding/json"
	"strings"
	"time"
)

// Response is the captured result of a completed HTTP exchange. It is
// immutable once produced.
type Response struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

// BodyJSON decodes the body as arbitrary JSON.
func (r *Response) BodyJSON() (any, error) {
	var result any
	if err := json.Unmarshal(r.Body, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Header performs a case-insensitive header lookup.
func (r *Response) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Response) IsJSON() bool {
	return strings.Contains(r.ContentType(), "application/json")
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}

// Outcome is the normalized result of one send attempt. A non-2xx status is
// still a success outcome: status is data, not failure. Err is set only when
// no usable response was received (DNS, connection, timeout, cancellation);
// Response may still carry whatever partial data was captured.
type Outcome struct {
	Response *Response
	Err      error
}

// Failed reports whether the send ended in a transport failure.
func (o *Outcome) Failed() bool {
	return o.Err != nil
}
