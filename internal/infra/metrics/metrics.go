package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — счётчики сервиса. Нулевой указатель допустим: все методы тогда ничего не делают.
type Metrics struct {
	transfers         *prometheus.CounterVec
	rejections        *prometheus.CounterVec
	preflightFailures prometheus.Counter
	dashboard         prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "itasset",
			Name:      "stock_transfers_total",
			Help:      "Stock transfers by direction and outcome.",
		}, []string{"direction", "outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "itasset",
			Name:      "lifecycle_rejections_total",
			Help:      "Rejected asset create/update calls by error kind.",
		}, []string{"kind"}),
		preflightFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "itasset",
			Name:      "preflight_failures_total",
			Help:      "Failed pre-flight stock checks.",
		}),
		dashboard: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "itasset",
			Name:      "dashboard_query_seconds",
			Help:      "Dashboard aggregation latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.transfers, m.rejections, m.preflightFailures, m.dashboard)
	}
	return m
}

// Transfer учитывает перемещение: direction = assign|return, outcome = ok|error.
func (m *Metrics) Transfer(direction string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.transfers.WithLabelValues(direction, outcome).Inc()
}

func (m *Metrics) Rejected(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "internal"
	}
	m.rejections.WithLabelValues(kind).Inc()
}

func (m *Metrics) PreflightFailed() {
	if m == nil {
		return
	}
	m.preflightFailures.Inc()
}

func (m *Metrics) ObserveDashboard(d time.Duration) {
	if m == nil {
		return
	}
	m.dashboard.Observe(d.Seconds())
}
