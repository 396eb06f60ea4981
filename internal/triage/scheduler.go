package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"log/slog"

	"supportbot/core/logger"
	"supportbot/internal/session"
)

// SchedulerOptions configures the periodic sweep.
type SchedulerOptions struct {
	// Interval between sweeps.
	Interval time.Duration
	// RemindAfter is how long a message may stay unanswered before the
	// admin channel gets a reminder. Reminders fire once per marker.
	RemindAfter time.Duration
	// CloseAfter is the maximum age of a live session, measured from
	// the moment it started. Zero disables auto-close.
	CloseAfter time.Duration
	// IdleEvictAfter drops sessions with no activity at all. Zero
	// disables eviction.
	IdleEvictAfter time.Duration

	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

// SweepStats summarises one sweep.
type SweepStats struct {
	Reminders int
	Closed    int
	Evicted   int
}

// Scheduler periodically scans the session store for unanswered
// messages and stale live sessions.
type Scheduler struct {
	store     *session.Store
	transport Transport
	opts      SchedulerOptions
	clock     func() time.Time
}

// NewScheduler builds a Scheduler over the store and transport.
func NewScheduler(store *session.Store, transport Transport, opts SchedulerOptions) *Scheduler {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	return &Scheduler{
		store:     store,
		transport: transport,
		opts:      opts,
		clock:     clock,
	}
}

// Run sweeps on every tick until ctx is done. Sweep errors are logged,
// never fatal.
func (sc *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(sc.opts.Interval)
	defer ticker.Stop()

	logger.Sched.Info("scheduler.started",
		slog.Duration("interval", sc.opts.Interval),
		slog.Duration("remind_after", sc.opts.RemindAfter),
		slog.Duration("close_after", sc.opts.CloseAfter),
	)

	for {
		select {
		case <-ctx.Done():
			logger.Sched.Info("scheduler.stopped")
			return
		case <-ticker.C:
			stats, err := sc.Sweep(ctx, sc.clock())
			attrs := []slog.Attr{
				slog.Int("reminders", stats.Reminders),
				slog.Int("closed", stats.Closed),
				slog.Int("evicted", stats.Evicted),
			}
			if err != nil {
				attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
				logger.Sched.LogAttrs(ctx, slog.LevelWarn, "sweep.partial", attrs...)
			} else if stats.Reminders > 0 || stats.Closed > 0 || stats.Evicted > 0 {
				logger.Sched.LogAttrs(ctx, slog.LevelInfo, "sweep.done", attrs...)
			}
		}
	}
}

// Sweep runs one pass at the given time. It works on snapshots and
// re-checks every session with a conditional store operation, so
// entries mutated between snapshot and action are skipped.
func (sc *Scheduler) Sweep(ctx context.Context, now time.Time) (SweepStats, error) {
	var stats SweepStats
	var errs *multierror.Error

	if sc.opts.RemindAfter > 0 {
		for _, sess := range sc.store.PendingSnapshot() {
			if now.Sub(sess.PendingSince) <= sc.opts.RemindAfter {
				continue
			}
			// Claim the marker first so each one reminds at most once,
			// even if the send below fails.
			if !sc.store.ClearPendingIf(sess.UserID, sess.PendingSince) {
				continue
			}
			stats.Reminders++
			text := fmt.Sprintf("⏰ Reminder: You have an unread message from user %d pending response.", sess.UserID)
			if err := sc.transport.SendToAdmin(ctx, text, false); err != nil {
				errs = multierror.Append(errs, &DeliveryError{Target: "admin", Err: err})
			}
		}
	}

	if sc.opts.CloseAfter > 0 {
		for _, sess := range sc.store.LiveSnapshot() {
			if now.Sub(sess.LiveSince) <= sc.opts.CloseAfter {
				continue
			}
			if !sc.store.EndLiveIf(sess.UserID, sess.LiveSince) {
				continue
			}
			stats.Closed++
			userText := "This support chat was closed automatically due to inactivity. Send a new message if you still need help."
			if err := sc.transport.SendToUser(ctx, sess.UserID, userText, false); err != nil {
				errs = multierror.Append(errs, &DeliveryError{Target: "user", UserID: sess.UserID, Err: err})
			}
			adminText := fmt.Sprintf("Chat with user %d was closed automatically after inactivity.", sess.UserID)
			if err := sc.transport.SendToAdmin(ctx, adminText, false); err != nil {
				errs = multierror.Append(errs, &DeliveryError{Target: "admin", Err: err})
			}
		}
	}

	if sc.opts.IdleEvictAfter > 0 {
		stats.Evicted = sc.store.EvictIdle(now.Add(-sc.opts.IdleEvictAfter))
	}

	return stats, errs.ErrorOrNil()
}
