package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters for the flood report API.
type Metrics struct {
	Uploads         *prometheus.CounterVec // labels: kind={flood,final}, outcome={accepted,rejected,error}
	Classifications *prometheus.CounterVec // labels: outcome={success,failure}
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,error}
	WeatherRequests *prometheus.CounterVec // labels: endpoint={points,stations,observation,alerts}, outcome={success,error}
}

// New creates and registers all API metrics with the default Prometheus registry.
func New() *Metrics {
	m := build()
	prometheus.MustRegister(
		m.Uploads,
		m.Classifications,
		m.GeocodeRequests,
		m.WeatherRequests,
	)
	return m
}

// NewForTesting creates Metrics with no registration to avoid
// "already registered" panics when called from multiple tests.
func NewForTesting() *Metrics {
	return build()
}

func build() *Metrics {
	return &Metrics{
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_report",
			Name:      "uploads_total",
			Help:      "Image uploads by kind and outcome.",
		}, []string{"kind", "outcome"}),
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_report",
			Name:      "classifications_total",
			Help:      "Classification dispatch outcomes.",
		}, []string{"outcome"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_report",
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding requests by outcome.",
		}, []string{"outcome"}),
		WeatherRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_report",
			Name:      "weather_requests_total",
			Help:      "Weather API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
	}
}
