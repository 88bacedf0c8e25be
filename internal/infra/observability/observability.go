// Package observability defines the bot's Prometheus metrics.
// Metrics are package-level promauto vars so any component can record
// without plumbing a registry; the API server exposes them on /metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Issuance Metrics ───────────────────────────────────────────────────────

// Issuances tracks generate attempts by tier and outcome.
var Issuances = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "vaultgen",
	Subsystem: "dispatch",
	Name:      "issuances_total",
	Help:      "Total generate attempts by tier and outcome.",
}, []string{"tier", "outcome"})

// StockRemaining tracks accounts remaining per tier and service.
var StockRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "vaultgen",
	Subsystem: "stock",
	Name:      "remaining",
	Help:      "Accounts remaining in stock per tier and service.",
}, []string{"tier", "service"})

// ─── Ban Metrics ────────────────────────────────────────────────────────────

// ActiveBans tracks the current number of unexpired bans.
var ActiveBans = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "vaultgen",
	Subsystem: "banlist",
	Name:      "active",
	Help:      "Current number of unexpired bans.",
})

// BansIssued tracks bans added by source.
var BansIssued = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "vaultgen",
	Subsystem: "banlist",
	Name:      "issued_total",
	Help:      "Total bans added, by source (admin, vouch_timeout).",
}, []string{"source"})

// ─── Vouch Metrics ──────────────────────────────────────────────────────────

// VouchesAccepted tracks accepted vouch messages.
var VouchesAccepted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "vaultgen",
	Subsystem: "vouch",
	Name:      "accepted_total",
	Help:      "Total vouch messages accepted.",
})

// VouchSweeps tracks expiry sweep runs.
var VouchSweeps = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "vaultgen",
	Subsystem: "vouch",
	Name:      "sweeps_total",
	Help:      "Total vouch expiry sweep runs.",
})

// VouchEvictions tracks obligations evicted by the sweep.
var VouchEvictions = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "vaultgen",
	Subsystem: "vouch",
	Name:      "evictions_total",
	Help:      "Total vouch obligations evicted for exceeding the grace period.",
})

// PendingObligations tracks obligations currently awaiting a vouch.
var PendingObligations = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "vaultgen",
	Subsystem: "vouch",
	Name:      "pending",
	Help:      "Obligations currently awaiting a vouch message.",
})

// ─── Gateway Metrics ────────────────────────────────────────────────────────

// GatewaySends tracks outbound chat-platform calls by kind and result.
var GatewaySends = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "vaultgen",
	Subsystem: "gateway",
	Name:      "sends_total",
	Help:      "Outbound chat-platform calls by kind (message, dm, react, role) and result.",
}, []string{"kind", "result"})

// ─── API Metrics ────────────────────────────────────────────────────────────

// WebhookRequests tracks inbound webhook deliveries by endpoint and status.
var WebhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "vaultgen",
	Subsystem: "api",
	Name:      "webhook_requests_total",
	Help:      "Inbound webhook deliveries by endpoint and HTTP status.",
}, []string{"endpoint", "status"})
