// Package metrics exposes the bot's Prometheus series. Everything registers with
// the default registry and is served on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "donation"

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bot_commands_total",
		Help:      "Updates handled, by command label and outcome.",
	}, []string{"command", "status"})

	commandSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "bot_command_duration_seconds",
		Help:      "Handler latency by command label.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"command"})

	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "state_transitions_total",
		Help:      "Persisted conversation state changes.",
	}, []string{"from", "to"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Handler errors by code and severity.",
	}, []string{"type", "severity"})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Users with a stored conversation state.",
	})

	sessionsByState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_by_state",
		Help:      "Users per conversation state.",
	}, []string{"state"})

	cardSelectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "card_selections_total",
		Help:      "Card rotation lookups by currency and whether a card was found.",
	}, []string{"currency", "result"})

	transactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transactions_total",
		Help:      "Transaction lifecycle events by event and currency.",
	}, []string{"event", "currency"})

	raisedAmount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "raised_amount",
		Help:      "Approved volume per currency at the last stats snapshot.",
	}, []string{"currency"})

	pendingReviews = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_reviews",
		Help:      "Transactions waiting for a decision at the last stats snapshot.",
	})

	donors = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "donors",
		Help:      "Distinct donors with an approved transaction at the last stats snapshot.",
	})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Outbound notifications by delivery status.",
	}, []string{"status"})
)

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// RecordCommand counts a handled update and its latency.
func RecordCommand(command, status string, duration time.Duration) {
	command = orUnknown(command)
	commandsTotal.WithLabelValues(command, orUnknown(status)).Inc()
	commandSeconds.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordStateTransition matches the state package's transition recorder hook.
func RecordStateTransition(from, to string) {
	transitionsTotal.WithLabelValues(orUnknown(from), orUnknown(to)).Inc()
}

func RecordError(errType, severity string) {
	errorsTotal.WithLabelValues(orUnknown(errType), orUnknown(severity)).Inc()
}

func RecordCardSelection(currency string, found bool) {
	result := "found"
	if !found {
		result = "none"
	}
	cardSelectionsTotal.WithLabelValues(currency, result).Inc()
}

func RecordTransaction(event, currency string) {
	transactionsTotal.WithLabelValues(orUnknown(event), currency).Inc()
}

func RecordNotification(status string) {
	notificationsTotal.WithLabelValues(status).Inc()
}

// SetDonationStats publishes a stats snapshot, dropping currencies that vanished.
func SetDonationStats(raised map[string]float64, pending, donorCount int) {
	raisedAmount.Reset()
	for ccy, amount := range raised {
		raisedAmount.WithLabelValues(ccy).Set(amount)
	}
	pendingReviews.Set(float64(pending))
	donors.Set(float64(donorCount))
}
