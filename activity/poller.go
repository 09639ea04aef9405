package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/anitrack/accounts"
	"github.com/onnwee/anitrack/anilist"
	"github.com/onnwee/anitrack/telemetry"
)

// Source fetches the newest activity for an AniList user id. Satisfied by
// *anilist.Client.
type Source interface {
	LatestActivity(ctx context.Context, userID int) (*anilist.Activity, error)
}

// Notifier receives newly detected activities. Satisfied by *bot.Bot, which
// renders and posts them to the announce channel.
type Notifier interface {
	AnnounceActivity(a *anilist.Activity)
}

// Poller checks every linked account for new activity on a fixed interval.
type Poller struct {
	store    *accounts.Store
	source   Source
	ledger   *Ledger
	notifier Notifier
	interval time.Duration

	mu        sync.Mutex // serializes cycles and guards lastCycle
	lastCycle time.Time
}

// NewPoller wires a poller. Interval <= 0 defaults to one minute.
func NewPoller(store *accounts.Store, source Source, ledger *Ledger, notifier Notifier, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	telemetry.Init()
	return &Poller{
		store:    store,
		source:   source,
		ledger:   ledger,
		notifier: notifier,
		interval: interval,
	}
}

// Run polls until ctx is canceled, starting with an immediate cycle. Cycles
// execute synchronously inside the loop, so a cycle that outlives the next
// tick simply absorbs it; cycles never overlap.
func (p *Poller) Run(ctx context.Context) {
	slog.Info("activity poller starting", slog.Duration("interval", p.interval))
	p.RunOnce(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("activity poller stopped")
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single poll cycle over a snapshot of all linked accounts.
// One account's failure never aborts the rest.
func (p *Poller) RunOnce(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	links := p.store.All()
	spanCtx, span := telemetry.StartSpan(ctx, "activity-poller", "poll cycle",
		attribute.Int("accounts", len(links)))
	defer span.End()

	telemetry.PollCycles.Inc()
	start := time.Now()
	announced := 0
	for _, link := range links {
		if ctx.Err() != nil {
			telemetry.RecordError(span, ctx.Err())
			return
		}
		if p.checkAccount(spanCtx, link) {
			announced++
		}
	}
	telemetry.PollCycleDuration.Observe(time.Since(start).Seconds())
	telemetry.SetLinkedAccounts(len(links))
	telemetry.SetSpanSuccess(span)
	p.lastCycle = time.Now().UTC()
	slog.Debug("poll cycle complete",
		slog.Int("accounts", len(links)),
		slog.Int("announced", announced),
		slog.Duration("elapsed", time.Since(start)))
}

// checkAccount fetches one account's newest activity and announces it when the
// ledger has not seen it. Fetch failures and empty results skip the account
// for this cycle only. Reports whether an announcement was made.
func (p *Poller) checkAccount(ctx context.Context, link accounts.Link) bool {
	var act *anilist.Activity
	var err error
	telemetry.TimeFunc(telemetry.RemoteCallDuration, func() {
		act, err = p.source.LatestActivity(ctx, link.RemoteID)
	})
	if err != nil {
		telemetry.RemoteErrors.Inc()
		slog.Warn("latest activity fetch failed",
			slog.String("user", link.RemoteName), slog.Int("remote_id", link.RemoteID), slog.Any("err", err))
		return false
	}
	if act == nil {
		return false
	}
	// The ledger is keyed by the link's stored name, not the activity's actor
	// name, so a remote rename cannot fork the dedup state mid-process.
	if !p.ledger.Observe(link.RemoteName, act.ID) {
		return false
	}
	// Ledger already updated: a failing or slow announcement can never cause
	// the same activity to be reprocessed next cycle.
	p.notifier.AnnounceActivity(act)
	telemetry.NotificationsSent.Inc()
	slog.Info("announced activity",
		slog.String("user", link.RemoteName),
		slog.Int("activity_id", act.ID),
		slog.String("title", act.Title),
		slog.String("status", act.Status))
	return true
}

// LastCycle returns when the most recent cycle finished (zero before the first).
func (p *Poller) LastCycle() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastCycle
}
