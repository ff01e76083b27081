// Package metrics collects per-run Prometheus counters and writes them as a
// node_exporter textfile when the run ends.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "medvision"

// Recorder owns a private registry so consecutive runs never share state.
type Recorder struct {
	registry *prometheus.Registry

	attemptsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	reencodeTotal   *prometheus.CounterVec
	casesTotal      *prometheus.CounterVec
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		attemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_attempts_total",
				Help:      "Provider request attempts, labeled by verdict",
			},
			[]string{"provider", "verdict"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "Latency of accepted provider requests",
				Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
			},
			[]string{"provider"},
		),
		reencodeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "image_reencode_total",
				Help:      "Image re-encodes triggered by a failed attempt",
			},
			[]string{"provider", "reason"},
		),
		casesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cases_total",
				Help:      "Cases processed, labeled by outcome",
			},
			[]string{"provider", "status"},
		),
	}
	r.registry.MustRegister(r.attemptsTotal, r.requestDuration, r.reencodeTotal, r.casesTotal)
	return r
}

// Attempt counts one provider attempt. Safe on a nil Recorder.
func (r *Recorder) Attempt(provider, verdict string) {
	if r == nil {
		return
	}
	r.attemptsTotal.With(prometheus.Labels{"provider": provider, "verdict": verdict}).Inc()
}

// RequestDuration observes the latency of an accepted request.
func (r *Recorder) RequestDuration(provider string, d time.Duration) {
	if r == nil {
		return
	}
	r.requestDuration.With(prometheus.Labels{"provider": provider}).Observe(d.Seconds())
}

// Reencode counts one shrink re-encode.
func (r *Recorder) Reencode(provider, reason string) {
	if r == nil {
		return
	}
	r.reencodeTotal.With(prometheus.Labels{"provider": provider, "reason": reason}).Inc()
}

// Case counts one finished case.
func (r *Recorder) Case(provider, status string) {
	if r == nil {
		return
	}
	r.casesTotal.With(prometheus.Labels{"provider": provider, "status": status}).Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// WriteFile writes every collected metric to path in text exposition format.
func (r *Recorder) WriteFile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
