// Package metrics provides Prometheus metrics for fetch runs and the STAC API.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Namespace prefixes every metric name.
const Namespace = "blackmarble"

// Metrics holds the fetch metrics. A nil *Metrics records nothing.
type Metrics struct {
	Attempts     *prometheus.CounterVec
	Outcomes     *prometheus.CounterVec
	Bytes        *prometheus.CounterVec
	Batches      *prometheus.CounterVec
	UnitDuration *prometheus.HistogramVec
	InFlight     prometheus.Gauge
	Requests     *prometheus.CounterVec
}

// New registers the metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "fetch_attempts_total",
				Help:      "Archive retrieval attempts by final result of the attempt",
			},
			[]string{"product", "result"},
		),
		Outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "fetch_outcomes_total",
				Help:      "Fetch unit outcomes by status",
			},
			[]string{"product", "status"},
		),
		Bytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "downloaded_bytes_total",
				Help:      "Bytes written to the artifact store",
			},
			[]string{"product"},
		),
		Batches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "batches_total",
				Help:      "Finalised per-timestamp batches",
			},
			[]string{"product", "complete"},
		),
		UnitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "fetch_unit_duration_seconds",
				Help:      "Time to settle one tile and timestamp, retries included",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~7m
			},
			[]string{"product", "status"},
		),
		InFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "fetch_in_flight",
				Help:      "Units currently being fetched",
			},
		),
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "http_requests_total",
				Help:      "STAC API requests by route and status code",
			},
			[]string{"route", "code"},
		),
	}
}

// Export publishes the metrics of a finished batch run: to a node exporter
// textfile when textfile is set and to a Pushgateway under job when pushURL is
// set.
func Export(ctx context.Context, g prometheus.Gatherer, textfile, pushURL, job string) error {
	if textfile != "" {
		if err := prometheus.WriteToTextfile(textfile, g); err != nil {
			return fmt.Errorf("write metrics textfile: %w", err)
		}
	}
	if pushURL != "" {
		if err := push.New(pushURL, job).Gatherer(g).PushContext(ctx); err != nil {
			return fmt.Errorf("push metrics: %w", err)
		}
	}
	return nil
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// ObserveAttempt counts one archive attempt.
func (m *Metrics) ObserveAttempt(product, result string) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(product, result).Inc()
}

// ObserveOutcome counts a settled unit and its duration.
func (m *Metrics) ObserveOutcome(product, status string, seconds float64) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(product, status).Inc()
	m.UnitDuration.WithLabelValues(product, status).Observe(seconds)
}

// AddBytes adds to the downloaded bytes counter.
func (m *Metrics) AddBytes(product string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.Bytes.WithLabelValues(product).Add(float64(n))
}

// IncBatches counts a finalised batch.
func (m *Metrics) IncBatches(product string, complete bool) {
	if m == nil {
		return
	}
	label := "false"
	if complete {
		label = "true"
	}
	m.Batches.WithLabelValues(product, label).Inc()
}

// AddInFlight moves the in-flight gauge by delta.
func (m *Metrics) AddInFlight(delta float64) {
	if m == nil {
		return
	}
	m.InFlight.Add(delta)
}

// ObserveRequest counts one served HTTP request.
func (m *Metrics) ObserveRequest(route string, status int) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
