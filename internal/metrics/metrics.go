package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics owns its registry so several clients (and tests) can coexist in one process.
type Metrics struct {
	Registry *prometheus.Registry

	// API metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// Form metrics
	FormSubmissionsTotal *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventario_api_requests_total",
				Help: "Total number of Inventario API requests",
			},
			[]string{"endpoint", "status"},
		),
		APIRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "inventario_api_request_duration_seconds",
				Help: "Duration of Inventario API requests in seconds",
			},
			[]string{"endpoint"},
		),
		FormSubmissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventario_form_submissions_total",
				Help: "Form submissions by outcome",
			},
			[]string{"form", "outcome"},
		),
	}

	m.Registry.MustRegister(m.APIRequestsTotal)
	m.Registry.MustRegister(m.APIRequestDuration)
	m.Registry.MustRegister(m.FormSubmissionsTotal)

	return m
}

// ObserveRequest records one API call. status 0 means the request never got a response.
func (m *Metrics) ObserveRequest(endpoint string, status int, took time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.APIRequestsTotal.WithLabelValues(endpoint, label).Inc()
	m.APIRequestDuration.WithLabelValues(endpoint).Observe(took.Seconds())
}

func (m *Metrics) ObserveSubmission(form, outcome string) {
	if m == nil {
		return
	}
	m.FormSubmissionsTotal.WithLabelValues(form, outcome).Inc()
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
