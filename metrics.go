package zsend

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what the transmission primitives do. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	BytesSent      *prometheus.CounterVec
	TransferErrors *prometheus.CounterVec
	CorkOps        *prometheus.CounterVec
	Downgrades     prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg when reg
// is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BytesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "zsend",
				Name:      "bytes_sent_total",
				Help:      "Bytes handed to the transport",
			},
			[]string{"primitive"},
		),
		TransferErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "zsend",
				Name:      "transfer_errors_total",
				Help:      "Failed transmission calls by error kind",
			},
			[]string{"primitive", "kind"},
		),
		CorkOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "zsend",
				Name:      "cork_ops_total",
				Help:      "Corking state changes attempted",
			},
			[]string{"strategy", "direction", "result"},
		),
		Downgrades: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "zsend",
				Name:      "zero_copy_downgrades_total",
				Help:      "File responses moved from zero-copy to buffered transmission",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.BytesSent, m.TransferErrors, m.CorkOps, m.Downgrades)
	}
	return m
}

func (m *Metrics) observe(primitive string, r Result) {
	if m == nil {
		return
	}
	if r.N > 0 {
		m.BytesSent.WithLabelValues(primitive).Add(float64(r.N))
	}
	if r.OK() {
		return
	}
	m.TransferErrors.WithLabelValues(primitive, r.Kind.String()).Inc()
}

func (m *Metrics) corkOp(strategy string, cork bool, err error) {
	if m == nil {
		return
	}
	direction, result := "uncork", "ok"
	if cork {
		direction = "cork"
	}
	if err != nil {
		result = "failed"
	}
	m.CorkOps.WithLabelValues(strategy, direction, result).Inc()
}

func (m *Metrics) downgrade() {
	if m == nil {
		return
	}
	m.Downgrades.Inc()
}
