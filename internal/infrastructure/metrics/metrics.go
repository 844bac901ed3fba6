package metrics

import (
	"storefront-identity-layer/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
)

var _ ports.Metrics = (*Metrics)(nil)

// Metrics holds the Prometheus collectors for the identity layer
type Metrics struct {
	callbacks       *prometheus.CounterVec
	webhooks        *prometheus.CounterVec
	decryptions     *prometheus.CounterVec
	reencryptFailed prometheus.Counter
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "oauth",
			Name:      "callbacks_total",
			Help:      "OAuth callbacks by terminal outcome (connected or reason code).",
		}, []string{"outcome"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "webhooks",
			Name:      "received_total",
			Help:      "Inbound webhooks by topic and outcome.",
		}, []string{"topic", "outcome"}),
		decryptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "credentials",
			Name:      "decryptions_total",
			Help:      "Credential decryptions by the kind of key that opened them.",
		}, []string{"key"}),
		reencryptFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "credentials",
			Name:      "reencrypt_failures_total",
			Help:      "Best-effort re-encryptions under the primary key that failed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.callbacks, m.webhooks, m.decryptions, m.reencryptFailed)
	}
	return m
}

func (m *Metrics) CallbackCompleted(outcome string) {
	m.callbacks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) WebhookReceived(topic, outcome string) {
	m.webhooks.WithLabelValues(topic, outcome).Inc()
}

func (m *Metrics) CredentialDecrypted(kind string) {
	m.decryptions.WithLabelValues(kind).Inc()
}

func (m *Metrics) CredentialReencryptFailed() {
	m.reencryptFailed.Inc()
}

// Callbacks exposes the callback counter for tests
func (m *Metrics) Callbacks() *prometheus.CounterVec { return m.callbacks }

// Webhooks exposes the webhook counter for tests
func (m *Metrics) Webhooks() *prometheus.CounterVec { return m.webhooks }

// Decryptions exposes the decryption counter for tests
func (m *Metrics) Decryptions() *prometheus.CounterVec { return m.decryptions }

// ReencryptFailures exposes the re-encryption failure counter for tests
func (m *Metrics) ReencryptFailures() prometheus.Counter { return m.reencryptFailed }
