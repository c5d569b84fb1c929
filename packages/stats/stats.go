// Package stats passively measures the latency of requests a suite already
// makes. A Recorder implements the executor's Observer hook and aggregates
// durations into HDR histograms, per suite and per endpoint. It is not a
// load generator.
package stats

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/abdul-hamid-achik/restspec/packages/request"
)

// Histogram range: 1us to 60s, 3 significant digits.
const (
	histogramMin = 1
	histogramMax = 60_000_000
	histogramSig = 3
)

// Summary is a snapshot of recorded latencies.
type Summary struct {
	Count     int64         `json:"count"`
	Failures  int64         `json:"failures"`
	Min       time.Duration `json:"min_us"`
	Max       time.Duration `json:"max_us"`
	Mean      time.Duration `json:"mean_us"`
	P50       time.Duration `json:"p50_us"`
	P95       time.Duration `json:"p95_us"`
	P99       time.Duration `json:"p99_us"`

	Endpoints map[string]EndpointSummary `json:"endpoints,omitempty"`
}

// EndpointSummary is the per-endpoint slice of a Summary.
type EndpointSummary struct {
	Count    int64         `json:"count"`
	Failures int64         `json:"failures"`
	Mean     time.Duration `json:"mean_us"`
	P95      time.Duration `json:"p95_us"`
}

// Recorder aggregates exchange durations.
type Recorder struct {
	mu        sync.RWMutex
	histogram *hdrhistogram.Histogram
	failures  int64
	endpoints map[string]*endpointStats
}

type endpointStats struct {
	histogram *hdrhistogram.Histogram
	failures  int64
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		histogram: hdrhistogram.New(histogramMin, histogramMax, histogramSig),
		endpoints: make(map[string]*endpointStats),
	}
}

// Observe implements request.Observer.
func (r *Recorder) Observe(ex request.Exchange) {
	latencyUs := ex.Duration.Microseconds()
	if latencyUs < histogramMin {
		latencyUs = histogramMin
	}
	if latencyUs > histogramMax {
		latencyUs = histogramMax
	}
	key := endpointKey(ex)

	r.mu.Lock()
	defer r.mu.Unlock()

	_ = r.histogram.RecordValue(latencyUs)
	if ex.Err != nil {
		r.failures++
	}

	es, ok := r.endpoints[key]
	if !ok {
		es = &endpointStats{histogram: hdrhistogram.New(histogramMin, histogramMax, histogramSig)}
		r.endpoints[key] = es
	}
	_ = es.histogram.RecordValue(latencyUs)
	if ex.Err != nil {
		es.failures++
	}
}

// endpointKey strips query and fragment so endpoints aggregate by path.
func endpointKey(ex request.Exchange) string {
	u, err := url.Parse(ex.URL)
	if err != nil {
		return ex.Method + " " + ex.URL
	}
	u.RawQuery = ""
	u.Fragment = ""
	return ex.Method + " " + u.String()
}

// Summary returns a snapshot of everything recorded so far.
func (r *Recorder) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Summary{
		Count:     r.histogram.TotalCount(),
		Failures:  r.failures,
		Min:       time.Duration(r.histogram.Min()) * time.Microsecond,
		Max:       time.Duration(r.histogram.Max()) * time.Microsecond,
		Mean:      time.Duration(r.histogram.Mean()) * time.Microsecond,
		P50:       time.Duration(r.histogram.ValueAtQuantile(50)) * time.Microsecond,
		P95:       time.Duration(r.histogram.ValueAtQuantile(95)) * time.Microsecond,
		P99:       time.Duration(r.histogram.ValueAtQuantile(99)) * time.Microsecond,
		Endpoints: make(map[string]EndpointSummary, len(r.endpoints)),
	}
	for key, es := range r.endpoints {
		s.Endpoints[key] = EndpointSummary{
			Count:    es.histogram.TotalCount(),
			Failures: es.failures,
			Mean:     time.Duration(es.histogram.Mean()) * time.Microsecond,
			P95:      time.Duration(es.histogram.ValueAtQuantile(95)) * time.Microsecond,
		}
	}
	return s
}

// jsonReport is the file layout written by WriteJSON.
type jsonReport struct {
	GeneratedAt string  `json:"generated_at"`
	Summary     Summary `json:"summary"`
}

// WriteJSON exports the current summary as pretty-printed JSON to path.
func (r *Recorder) WriteJSON(path string) error {
	report := jsonReport{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Summary:     r.Summary(),
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stats report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write stats report: %w", err)
	}
	return nil
}
