// Package metricsvc exposes application metrics to Prometheus.
package metricsvc

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/summercamps/core/booking"
	"github.com/trezcool/summercamps/core/importexport"
)

const namespace = "summercamps"

type Service struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	importedRows *prometheus.CounterVec
	bookings     *prometheus.CounterVec
}

var (
	_ booking.Metrics      = (*Service)(nil)
	_ importexport.Metrics = (*Service)(nil)
)

// NewService registers the collectors on a fresh registry, with the Go and process collectors.
func NewService() *Service {
	svc := &Service{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		importedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_total",
			Help:      "Imported rows by table and outcome.",
		}, []string{"table", "outcome"}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_total",
			Help:      "Created bookings by status.",
		}, []string{"status"}),
	}
	svc.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		svc.requests,
		svc.latency,
		svc.importedRows,
		svc.bookings,
	)
	return svc
}

func (svc *Service) Registry() *prometheus.Registry { return svc.registry }

// Handler serves the registry in the Prometheus exposition format.
func (svc *Service) Handler() http.Handler {
	return promhttp.HandlerFor(svc.registry, promhttp.HandlerOpts{})
}

func (svc *Service) ObserveRequest(method, route string, code int, elapsed time.Duration) {
	svc.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	svc.latency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (svc *Service) ObserveImport(table string, inserted, rejected int) {
	svc.importedRows.WithLabelValues(table, "inserted").Add(float64(inserted))
	svc.importedRows.WithLabelValues(table, "rejected").Add(float64(rejected))
}

func (svc *Service) ObserveBooking(status string) {
	svc.bookings.WithLabelValues(status).Inc()
}
