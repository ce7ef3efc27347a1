package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics counts processor callback outcomes.
type WebhookMetrics struct {
	received         *prometheus.CounterVec
	duplicates       *prometheus.CounterVec
	invalidSignature prometheus.Counter
}

// NewWebhookMetrics registers webhook counters on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_received",
		Help: "Processor webhook events accepted for processing.",
	}, []string{"event_type"})
	duplicates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_duplicate",
		Help: "Processor webhook events skipped by the dedupe ledger.",
	}, []string{"event_type"})
	invalidSignature := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_signature_failures",
		Help: "Processor webhook callbacks rejected for a bad signature.",
	})
	reg.MustRegister(received, duplicates, invalidSignature)
	return &WebhookMetrics{
		received:         received,
		duplicates:       duplicates,
		invalidSignature: invalidSignature,
	}
}

// IncReceived counts an accepted event of the given type.
func (w *WebhookMetrics) IncReceived(eventType string) {
	if w == nil || w.received == nil {
		return
	}
	w.received.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncDuplicate counts an event skipped because it was already applied.
func (w *WebhookMetrics) IncDuplicate(eventType string) {
	if w == nil || w.duplicates == nil {
		return
	}
	w.duplicates.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncInvalidSignature counts a callback dropped for failing verification.
func (w *WebhookMetrics) IncInvalidSignature() {
	if w == nil || w.invalidSignature == nil {
		return
	}
	w.invalidSignature.Inc()
}
