package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"payledger/core/events"
)

type eventMetrics struct {
	logs *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking committed ledger logs. It is an
// events.Emitter so it can sit next to the archive in an events.Multi.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			logs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "payledger",
				Subsystem: "events",
				Name:      "logs_total",
				Help:      "Count of committed ledger logs segmented by type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(eventRegistry.logs)
	})
	return eventRegistry
}

// Emit counts evt and, when it carries a serial number, the serial number it
// consumed. Bind logs share the sn of the deposit that created them and are
// not counted twice.
func (m *eventMetrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	typ := evt.EventType()
	m.logs.WithLabelValues(typ).Inc()
	if typ == events.TypePaymentBind {
		return
	}
	if payload := evt.Event(); payload != nil && payload.Attr("sn") != "" {
		Ledger().RecordSerialConsumed()
	}
}
