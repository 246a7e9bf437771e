package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// OrderMetrics counts order engine outcomes. It satisfies orders.MetricsPort.
type OrderMetrics struct {
	created     prometheus.Counter
	value       prometheus.Counter
	transitions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	retries     *prometheus.CounterVec
}

// NewOrderMetrics registers the order collectors on reg.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	m := &OrderMetrics{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seafood_orders_created_total",
			Help: "Orders placed.",
		}),
		value: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seafood_orders_value_total",
			Help: "Sum of totals of placed orders.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seafood_order_transitions_total",
			Help: "Order status transitions.",
		}, []string{"from", "to"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seafood_order_rejections_total",
			Help: "Rejected order operations by reason.",
		}, []string{"op", "reason"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seafood_order_retries_total",
			Help: "Transactions retried after a concurrent modification.",
		}, []string{"op"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.created, m.value, m.transitions, m.rejections, m.retries)
	return m
}

func (m *OrderMetrics) OrderCreated(total decimal.Decimal) {
	if m == nil {
		return
	}
	m.created.Inc()
	m.value.Add(total.InexactFloat64())
}

func (m *OrderMetrics) OrderTransitioned(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *OrderMetrics) OrderRejected(op, reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(op, reason).Inc()
}

func (m *OrderMetrics) OrderRetried(op string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(op).Inc()
}
