// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	MessagesProcessed prometheus.Counter
	RepliesSent       prometheus.Counter
	SendFailures      prometheus.Counter
	FetchFailures     prometheus.Counter
	BroadcastsSent    prometheus.Counter
	WelcomesSent      prometheus.Counter
	CommandsDenied    prometheus.Counter
	HandlerFailures   prometheus.Counter

	// Labelled counters
	CommandsDispatched *prometheus.CounterVec // label: command
	MessagesDropped    *prometheus.CounterVec // label: reason

	// Histograms (seconds)
	DispatchDuration prometheus.Observer

	// Gauges
	SeenUsersGauge      prometheus.Gauge
	LoadedCommandsGauge prometheus.Gauge
)

// Drop reasons used as the "reason" label of MessagesDropped.
const (
	DropStale          = "stale"
	DropSelf           = "self"
	DropBanned         = "banned"
	DropUserCooldown   = "user_cooldown"
	DropGlobalCooldown = "global_cooldown"
	DropUnknown        = "unknown_command"
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		MessagesProcessed = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_processed_total", Help: "Chat items handed to the dispatcher"})
		RepliesSent = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_replies_sent_total", Help: "Replies successfully sent to chat"})
		SendFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_send_failures_total", Help: "Outbound chat sends that failed"})
		FetchFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_fetch_failures_total", Help: "Live chat page fetches that failed"})
		BroadcastsSent = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_broadcasts_sent_total", Help: "Scheduled broadcast messages sent"})
		WelcomesSent = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_welcomes_total", Help: "First-contact welcome replies produced"})
		CommandsDenied = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_commands_denied_total", Help: "Command attempts rejected by the permission check"})
		HandlerFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_handler_failures_total", Help: "Command handlers that returned an error or panicked"})
		CommandsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chat_commands_dispatched_total", Help: "Commands invoked, by token"}, []string{"command"})
		MessagesDropped = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chat_messages_dropped_total", Help: "Chat items dropped without reply, by reason"}, []string{"reason"})
		DispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "chat_command_duration_seconds", Help: "Command handler execution seconds", Buckets: prometheus.DefBuckets})
		SeenUsersGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "chat_seen_users", Help: "Distinct users welcomed this run"})
		LoadedCommandsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "chat_loaded_commands", Help: "Commands currently in the registry"})
	})
}

// Inc increments c when metrics are initialised.
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// Dropped records a dropped chat item under reason.
func Dropped(reason string) {
	if MessagesDropped != nil {
		MessagesDropped.WithLabelValues(reason).Inc()
	}
}

// Dispatched records an invoked command.
func Dispatched(command string) {
	if CommandsDispatched != nil {
		CommandsDispatched.WithLabelValues(command).Inc()
	}
}

func SetSeenUsers(n int) {
	if SeenUsersGauge != nil {
		SeenUsersGauge.Set(float64(n))
	}
}

func SetLoadedCommands(n int) {
	if LoadedCommandsGauge != nil {
		LoadedCommandsGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context carrying id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// NewCorrelation returns ctx with a fresh random correlation id and the id.
func NewCorrelation(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	return WithCorrelation(ctx, id), id
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
