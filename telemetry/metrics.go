// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	PollCycles        prometheus.Counter
	NotificationsSent prometheus.Counter
	RemoteErrors      prometheus.Counter
	CommandsHandled   prometheus.Counter
	LinksCreated      prometheus.Counter
	LinksRemoved      prometheus.Counter

	// Histograms (seconds)
	PollCycleDuration prometheus.Observer
	RemoteCallDuration prometheus.Observer

	// Gauges
	LinkedAccountsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		PollCycles = promauto.NewCounter(prometheus.CounterOpts{Name: "anitrack_poll_cycles_total", Help: "Number of activity poll cycles executed"})
		NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{Name: "anitrack_notifications_total", Help: "Number of activity notifications announced to chat"})
		RemoteErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "anitrack_remote_errors_total", Help: "Number of AniList request failures"})
		CommandsHandled = promauto.NewCounter(prometheus.CounterOpts{Name: "anitrack_commands_total", Help: "Number of chat commands handled"})
		LinksCreated = promauto.NewCounter(prometheus.CounterOpts{Name: "anitrack_links_created_total", Help: "Number of account links created or replaced"})
		LinksRemoved = promauto.NewCounter(prometheus.CounterOpts{Name: "anitrack_links_removed_total", Help: "Number of account links removed"})
		PollCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "anitrack_poll_cycle_duration_seconds", Help: "Poll cycle duration seconds", Buckets: prometheus.DefBuckets})
		RemoteCallDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "anitrack_remote_call_duration_seconds", Help: "AniList request duration seconds", Buckets: prometheus.DefBuckets})
		LinkedAccountsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "anitrack_linked_accounts", Help: "Current number of linked accounts"})
	})
}

// SetLinkedAccounts records the current number of linked accounts.
func SetLinkedAccounts(n int) {
	if LinkedAccountsGauge != nil {
		LinkedAccountsGauge.Set(float64(n))
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

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
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
