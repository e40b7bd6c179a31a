package observability

import (
	"strconv"
	"time"

	"github.com/nikolayk812/schoolshop/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "schoolshop"

// Metrics groups the collectors of the order service and its HTTP transport.
type Metrics struct {
	ordersCreated *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	failures      *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders successfully placed.",
		}, []string{"payment_method"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Committed order status transitions.",
		}, []string{"from", "to"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_failures_total",
			Help:      "Failed order operations by error kind.",
		}, []string{"operation", "kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .2, .4, .8, 1.6},
		}, []string{"method", "route"}),
	}

	reg.MustRegister(m.ordersCreated, m.transitions, m.failures, m.httpRequests, m.httpDuration)

	return m
}

// NewNopMetrics returns collectors registered nowhere.
func NewNopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

func (m *Metrics) OrderCreated(method domain.PaymentMethod) {
	m.ordersCreated.WithLabelValues(string(method)).Inc()
}

func (m *Metrics) OrderTransitioned(from, to domain.OrderStatus) {
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) OrderFailed(operation string, err error) {
	m.failures.WithLabelValues(operation, string(domain.Kind(err))).Inc()
}

func (m *Metrics) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
