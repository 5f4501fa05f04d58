// Package dispatch drives reminder delivery. A single polling loop scans the
// store for due ACTIVE reminders on a fixed interval, claims each one with a
// conditional update, hands the rendered message to the Notifier, records
// the attempt in the execution log, and applies the post-dispatch
// transition: recurring reminders advance their trigger time and stay
// ACTIVE, non-recurring ones reach COMPLETED or FAILED.
//
// Failure isolation is mandatory here: one reminder's delivery error is
// logged and recorded, and never aborts the rest of the scan.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/remindkit/go-reminder-backend/internal/clock"
	"github.com/remindkit/go-reminder-backend/internal/domain"
	"github.com/remindkit/go-reminder-backend/internal/notify"
	"github.com/remindkit/go-reminder-backend/internal/repo"
	"github.com/remindkit/go-reminder-backend/internal/schedule"
)

// RecipientResolver maps a reminder's owner to a delivery address. The
// accounts subsystem is an external collaborator; this is the only thing
// the dispatcher needs from it.
type RecipientResolver interface {
	EmailFor(ctx context.Context, userID string) (string, error)
}

// RecipientFunc adapts a function to the RecipientResolver interface.
type RecipientFunc func(ctx context.Context, userID string) (string, error)

// EmailFor calls f.
func (f RecipientFunc) EmailFor(ctx context.Context, userID string) (string, error) {
	return f(ctx, userID)
}

// Options configures a Dispatcher.
type Options struct {
	// Interval between scans.
	Interval time.Duration
	// BatchLimit caps how many due reminders one scan loads; <= 0 means no cap.
	BatchLimit int
	// Workers bounds concurrent per-reminder processing within one scan.
	Workers int
	// SendTimeout bounds each Notifier call.
	SendTimeout time.Duration
}

// Dispatcher scans for due reminders and delivers them.
type Dispatcher struct {
	db       *gorm.DB
	notifier notify.Notifier
	resolver RecipientResolver
	clock    clock.Clock
	log      zerolog.Logger
	opts     Options
}

// New constructs a Dispatcher. Zero option fields get conservative defaults
// (30s interval, 100-row batches, 4 workers, 10s send timeout).
func New(db *gorm.DB, n notify.Notifier, r RecipientResolver, clk clock.Clock, log zerolog.Logger, opts Options) *Dispatcher {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.BatchLimit == 0 {
		opts.BatchLimit = 100
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	return &Dispatcher{db: db, notifier: n, resolver: r, clock: clk, log: log, opts: opts}
}

// Start runs the scan loop until ctx is cancelled. It blocks; run it in its
// own goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.opts.Interval)
	defer ticker.Stop()

	d.log.Info().
		Dur("interval", d.opts.Interval).
		Int("workers", d.opts.Workers).
		Msg("dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("dispatcher stopped")
			return
		case <-ticker.C:
			if err := d.RunCycle(ctx); err != nil {
				d.log.Error().Err(err).Msg("dispatch cycle failed")
			}
		}
	}
}

// RunCycle performs one scan: load due reminders and process them over a
// bounded worker pool. Individual dispatch failures are contained; only a
// failure to read the due set is returned.
func (d *Dispatcher) RunCycle(ctx context.Context) error {
	started := time.Now()
	now := d.clock.Now()

	due, err := repo.ListDue(ctx, d.db, now, d.opts.BatchLimit)
	if err != nil {
		return fmt.Errorf("list due reminders: %w", err)
	}
	dueBacklog.Set(float64(len(due)))
	if len(due) == 0 {
		scanDuration.Observe(time.Since(started).Seconds())
		return nil
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, d.opts.Workers)
	for i := range due {
		r := due[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			d.process(ctx, &r)
		}()
	}
	wg.Wait()

	scanDuration.Observe(time.Since(started).Seconds())
	return nil
}

// process handles one due reminder end to end: claim, deliver, log, settle.
func (d *Dispatcher) process(ctx context.Context, r *domain.Reminder) {
	lg := d.log.With().Str("reminder_id", r.ID).Str("user_id", r.UserID).Logger()

	// Compute the next occurrence before claiming so the claim itself
	// performs the advance for recurring reminders.
	var next *time.Time
	if r.IsRecurring && r.Frequency != domain.FreqNone {
		n, err := schedule.Advance(r.RemindAt, r.Frequency)
		if err != nil {
			// Stored frequency out of contract; settle as non-recurring
			// rather than re-selecting the row forever.
			lg.Error().Err(err).Str("frequency", string(r.Frequency)).Msg("cannot advance recurrence")
		} else {
			next = &n
		}
	}

	claimed, err := repo.ClaimDue(ctx, d.db, r, next)
	if err != nil {
		lg.Error().Err(err).Msg("claim failed")
		return
	}
	if !claimed {
		// Another worker, or a concurrent cancel, got here first.
		dispatchTotal.WithLabelValues("lost_claim").Inc()
		return
	}

	executedAt := d.clock.Now()

	if !r.SendEmail {
		d.appendLog(ctx, lg, &domain.ReminderLog{
			ReminderID: r.ID,
			ExecutedAt: executedAt,
			Status:     domain.LogSkipped,
		})
		dispatchTotal.WithLabelValues("skipped").Inc()
		return
	}

	recipient, sendErr := d.deliver(ctx, r)
	durationMS := time.Since(executedAt).Milliseconds()

	if sendErr != nil {
		msg := sendErr.Error()
		entry := &domain.ReminderLog{
			ReminderID:   r.ID,
			ExecutedAt:   executedAt,
			Status:       domain.LogFailed,
			ErrorMessage: &msg,
			DurationMS:   durationMS,
		}
		if recipient != "" {
			entry.EmailRecipient = &recipient
		}
		d.appendLog(ctx, lg, entry)
		// A failed occurrence of a recurring reminder does not halt the
		// series; only non-recurring reminders settle as FAILED.
		if next == nil {
			if err := repo.MarkDispatchFailed(ctx, d.db, r.ID); err != nil {
				lg.Error().Err(err).Msg("marking dispatch failed")
			}
		}
		dispatchTotal.WithLabelValues("failed").Inc()
		lg.Warn().Err(sendErr).Msg("reminder delivery failed")
		return
	}

	if err := repo.MarkDispatchSent(ctx, d.db, r.ID, d.clock.Now()); err != nil {
		lg.Error().Err(err).Msg("marking dispatch sent")
	}
	d.appendLog(ctx, lg, &domain.ReminderLog{
		ReminderID:     r.ID,
		ExecutedAt:     executedAt,
		Status:         domain.LogSuccess,
		EmailSent:      true,
		EmailRecipient: &recipient,
		DurationMS:     durationMS,
	})
	dispatchTotal.WithLabelValues("success").Inc()
	lg.Info().Msg("reminder delivered")
}

// deliver resolves the recipient, renders the message and sends it under
// the configured timeout. The resolved address is returned so the caller
// can record it in the execution log.
func (d *Dispatcher) deliver(ctx context.Context, r *domain.Reminder) (string, error) {
	recipient, err := d.resolver.EmailFor(ctx, r.UserID)
	if err != nil {
		return "", fmt.Errorf("resolve recipient: %w", err)
	}

	msg := notify.Render(r, recipient)

	sctx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
	defer cancel()
	return recipient, d.notifier.Send(sctx, msg)
}

// appendLog writes one execution-log row; a write failure is logged but
// never interrupts processing.
func (d *Dispatcher) appendLog(ctx context.Context, lg zerolog.Logger, l *domain.ReminderLog) {
	if err := repo.AppendLog(ctx, d.db, l); err != nil {
		lg.Error().Err(err).Msg("appending execution log failed")
	}
}
