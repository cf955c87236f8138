package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "freight"

// Calculation outcomes
const (
	OutcomeOK           = "ok"
	OutcomeMissingInput = "missing_input"
	OutcomeInvalidRange = "invalid_range"
)

// Collector owns a private Prometheus registry and the service's collectors.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	calculationsTotal   *prometheus.CounterVec
	loadProfit          prometheus.Histogram
	loadsTotal          *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewCollector creates the collectors and registers them on a fresh registry
func NewCollector() (*Collector, error) {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		calculationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "profitability",
				Name:      "calculations_total",
				Help:      "Profitability calculations by outcome",
			},
			[]string{"outcome"},
		),

		loadProfit: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "profitability",
				Name:      "load_profit_dollars",
				Help:      "Projected profit of booked loads",
				Buckets:   []float64{-1000, -500, -100, 0, 100, 250, 500, 1000, 2000, 5000},
			},
		),

		loadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "loads_total",
				Help:      "Load status transitions by resulting status",
			},
			[]string{"status"},
		),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status_code"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration distribution",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"method", "route"},
		),
	}

	collectors := []prometheus.Collector{
		c.calculationsTotal,
		c.loadProfit,
		c.loadsTotal,
		c.httpRequestsTotal,
		c.httpRequestDuration,
	}
	for _, collector := range collectors {
		if err := c.registry.Register(collector); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Registry returns the private registry
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordCalculation(outcome string) {
	if c == nil {
		return
	}
	c.calculationsTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordLoadProfit(profit float64) {
	if c == nil {
		return
	}
	c.loadProfit.Observe(profit)
}

func (c *Collector) RecordLoadStatus(status string) {
	if c == nil {
		return
	}
	c.loadsTotal.WithLabelValues(status).Inc()
}

func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration float64) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(duration)
}
