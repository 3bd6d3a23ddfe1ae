// Package metrics registers the prometheus instruments exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GamePlays counts settled plays per game and result (win/lose).
	GamePlays = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "raspay",
		Subsystem: "game",
		Name:      "plays_total",
		Help:      "Number of settled scratch-card plays.",
	}, []string{"game", "result"})

	// GamePayouts accumulates prize amounts paid out, in reais.
	GamePayouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "raspay",
		Subsystem: "game",
		Name:      "payouts_reais_total",
		Help:      "Total prize amounts paid out, in reais.",
	}, []string{"game", "kind"})

	// VaultBalance tracks the current cofre balance per game.
	VaultBalance = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "raspay",
		Subsystem: "vault",
		Name:      "balance_reais",
		Help:      "Current cofre balance per game, in reais.",
	}, []string{"game"})

	// Payments counts PIX payment events by direction and outcome.
	Payments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "raspay",
		Subsystem: "payments",
		Name:      "events_total",
		Help:      "PIX payment events by direction and outcome.",
	}, []string{"direction", "status"})

	// WebhookResults counts processed payment-provider webhooks.
	WebhookResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "raspay",
		Subsystem: "payments",
		Name:      "webhooks_total",
		Help:      "Processed payment-provider webhook deliveries.",
	}, []string{"event", "result"})

	// CommissionEvents counts processed commission outbox events.
	CommissionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "raspay",
		Subsystem: "commission",
		Name:      "events_total",
		Help:      "Commission outbox events by processing result.",
	}, []string{"result"})

	// SSEClients tracks currently connected event-stream subscribers.
	SSEClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "raspay",
		Subsystem: "notify",
		Name:      "sse_clients",
		Help:      "Currently connected event-stream subscribers.",
	})

	// PushDeliveries counts web-push send attempts.
	PushDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "raspay",
		Subsystem: "notify",
		Name:      "push_deliveries_total",
		Help:      "Web-push delivery attempts by result.",
	}, []string{"result"})

	// WalletDrift reports wallets whose balance disagrees with the ledger.
	WalletDrift = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "raspay",
		Subsystem: "reconciler",
		Name:      "wallet_drift_count",
		Help:      "Wallets whose balance disagrees with the settled ledger sum.",
	})
)
