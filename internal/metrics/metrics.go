package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clubhub_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	CoinTransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_coin_transactions_total",
			Help: "Total number of coin ledger transactions",
		},
		[]string{"type", "direction"},
	)

	InsufficientCoinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_insufficient_coins_total",
			Help: "Coin-gated operations refused for insufficient balance",
		},
		[]string{"operation"},
	)

	PurchaseRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_purchase_requests_total",
			Help: "Coin purchase requests by terminal status",
		},
		[]string{"status"},
	)

	CoinTransfersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clubhub_coin_transfers_total",
			Help: "Total number of user-to-club coin transfers",
		},
	)

	EventsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_events_created_total",
			Help: "Total number of events created",
		},
		[]string{"format"},
	)

	RSVPsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_event_rsvps_total",
			Help: "Total number of event RSVPs",
		},
		[]string{"status"},
	)

	ClubsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clubhub_clubs_created_total",
			Help: "Total number of clubs created",
		},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clubhub_email_queue_length",
			Help: "Current length of email queue",
		},
	)

	MessagesPostedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_club_messages_total",
			Help: "Total number of club board messages posted",
		},
		[]string{"type"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_notifications_total",
			Help: "Total number of in-app notifications created",
		},
		[]string{"type"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordCoinTransaction(txType string, amount int64) {
	direction := "credit"
	if amount < 0 {
		direction = "debit"
	}
	CoinTransactionsTotal.WithLabelValues(txType, direction).Inc()
}

func RecordInsufficientCoins(operation string) {
	InsufficientCoinsTotal.WithLabelValues(operation).Inc()
}

func RecordPurchaseRequest(status string) {
	PurchaseRequestsTotal.WithLabelValues(status).Inc()
}

func RecordCoinTransfer() {
	CoinTransfersTotal.Inc()
}

func RecordEventCreated(format string) {
	EventsCreatedTotal.WithLabelValues(format).Inc()
}

func RecordRSVP(status string) {
	RSVPsTotal.WithLabelValues(status).Inc()
}

func RecordClubCreated() {
	ClubsCreatedTotal.Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}

func RecordMessagePosted(msgType string) {
	MessagesPostedTotal.WithLabelValues(msgType).Inc()
}

func RecordNotification(notifType string) {
	NotificationsTotal.WithLabelValues(notifType).Inc()
}
