package relay

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	requests          *prometheus.CounterVec
	deliveryAttempts  prometheus.Counter
	deliveryFailures  prometheus.Counter
	deliveryCancelled prometheus.Counter
	responsesDropped  prometheus.Counter
}

// NewMetrics registers the relay metrics on reg. A nil reg keeps them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "topia_wallet",
			Subsystem: "relay",
			Name:      "requests_total",
			Help:      "Background requests handled by the relay, by type.",
		}, []string{"type"}),
		deliveryAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "topia_wallet",
			Subsystem: "relay",
			Name:      "delivery_attempts_total",
			Help:      "Attempts to deliver a client request to a wallet surface.",
		}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "topia_wallet",
			Subsystem: "relay",
			Name:      "delivery_failures_total",
			Help:      "Client requests given up after the retry budget was exhausted.",
		}),
		deliveryCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "topia_wallet",
			Subsystem: "relay",
			Name:      "delivery_cancelled_total",
			Help:      "Client request deliveries cancelled before completion.",
		}),
		responsesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "topia_wallet",
			Subsystem: "relay",
			Name:      "responses_dropped_total",
			Help:      "Client responses dropped because no active tab existed.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.requests,
			m.deliveryAttempts,
			m.deliveryFailures,
			m.deliveryCancelled,
			m.responsesDropped,
		)
	}
	return m
}
