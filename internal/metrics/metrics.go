// Package metrics records the outcome of verification runs as Prometheus
// metrics. Every method of a nil *Recorder is a no-op.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tverify"

// Recorder owns a private registry so that several runs in one process
// do not collide.
type Recorder struct {
	registry   *prometheus.Registry
	packages   *prometheus.CounterVec
	methods    *prometheus.CounterVec
	assertions *prometheus.CounterVec
	duration   prometheus.Histogram
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		// status: ok, error
		packages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packages_total",
			Help:      "Packages checked, by load status",
		}, []string{"status"}),
		// status: ok, exception
		methods: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "methods_total",
			Help:      "Functions and methods analyzed, by status",
		}, []string{"status"}),
		// verdict: valid, invalid, unproven, unreachable
		assertions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assertions_total",
			Help:      "Checked assertions, by verdict",
		}, []string{"verdict"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "method_duration_seconds",
			Help:      "Time spent analyzing one function",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),
	}
}

// Registry exposes the metrics for serving or inspection.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) ObservePackage(ok bool) {
	if r == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	r.packages.WithLabelValues(status).Inc()
}

func (r *Recorder) ObserveMethod(exception bool, elapsed time.Duration) {
	if r == nil {
		return
	}
	status := "ok"
	if exception {
		status = "exception"
	}
	r.methods.WithLabelValues(status).Inc()
	r.duration.Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveAssertions(verdict string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.assertions.WithLabelValues(verdict).Add(float64(n))
}

// WriteTextfile writes the current values in the text exposition format,
// for the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
