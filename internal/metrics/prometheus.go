package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder exposes metrics through a Prometheus registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	ticketCatalogs     *prometheus.CounterVec
	upstreamDuration   *prometheus.HistogramVec
	credentialsCreated prometheus.Counter
	credentialsDeleted prometheus.Counter
	uploadURLs         *prometheus.CounterVec
}

// NewPrometheus registers the application metrics plus Go and process
// collectors on a fresh registry.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,
		ticketCatalogs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flowbot_trudesk_catalog_requests_total",
			Help: "Ticket catalog requests by outcome",
		}, []string{"outcome"}),
		upstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowbot_trudesk_upstream_duration_seconds",
			Help:    "Latency of calls to the helpdesk API",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op"}),
		credentialsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "flowbot_credentials_created_total",
			Help: "Integration credentials created",
		}),
		credentialsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "flowbot_credentials_deleted_total",
			Help: "Integration credentials deleted",
		}),
		uploadURLs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flowbot_upload_urls_issued_total",
			Help: "Presigned upload URLs issued by storage provider",
		}, []string{"provider"}),
	}
}

// Registry returns the registry to serve on /metrics.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

// IncTicketCatalog counts a gateway request by outcome.
func (p *PrometheusRecorder) IncTicketCatalog(outcome string) {
	p.ticketCatalogs.WithLabelValues(outcome).Inc()
}

// ObserveUpstreamDuration records one helpdesk call.
func (p *PrometheusRecorder) ObserveUpstreamDuration(op string, duration time.Duration) {
	p.upstreamDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// IncCredentialCreated increments credential created counter.
func (p *PrometheusRecorder) IncCredentialCreated() {
	p.credentialsCreated.Inc()
}

// IncCredentialDeleted increments credential deleted counter.
func (p *PrometheusRecorder) IncCredentialDeleted() {
	p.credentialsDeleted.Inc()
}

// IncUploadURLIssued counts a presigned upload URL by provider.
func (p *PrometheusRecorder) IncUploadURLIssued(provider string) {
	p.uploadURLs.WithLabelValues(provider).Inc()
}
