package reminders

import (
	"context"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

const maxRetryDelay = time.Hour

type dispatcher interface {
	Dispatch(ctx context.Context, rem *Reminder) (appointments.Channel, error)
}

// Worker delivers due reminders, retrying failures with exponential backoff.
type Worker struct {
	store       Store
	dispatcher  dispatcher
	metrics     *metrics.SchedulingMetrics
	logger      *logging.Logger
	now         func() time.Time
	maxAttempts int
	baseDelay   time.Duration
	interval    time.Duration
	batchSize   int
}

func NewWorker(store Store, d dispatcher, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		store:       store,
		dispatcher:  d,
		logger:      logger,
		now:         time.Now,
		maxAttempts: 3,
		baseDelay:   time.Minute,
		interval:    30 * time.Second,
		batchSize:   25,
	}
}

func (w *Worker) WithMaxAttempts(n int) *Worker {
	if n > 0 {
		w.maxAttempts = n
	}
	return w
}

func (w *Worker) WithBaseDelay(d time.Duration) *Worker {
	if d > 0 {
		w.baseDelay = d
	}
	return w
}

func (w *Worker) WithInterval(d time.Duration) *Worker {
	if d > 0 {
		w.interval = d
	}
	return w
}

func (w *Worker) WithBatchSize(n int) *Worker {
	if n > 0 {
		w.batchSize = n
	}
	return w
}

func (w *Worker) WithMetrics(m *metrics.SchedulingMetrics) *Worker {
	w.metrics = m
	return w
}

// Run polls for due reminders until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("reminder worker started", "interval", w.interval.String(), "batch_size", w.batchSize)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.ProcessDue(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reminder worker stopped")
			return
		case <-ticker.C:
			w.ProcessDue(ctx)
		}
	}
}

// ProcessDue claims one batch of due reminders and dispatches them. It returns
// the number delivered.
func (w *Worker) ProcessDue(ctx context.Context) int {
	if w.store == nil || w.dispatcher == nil {
		return 0
	}
	due, err := w.store.ClaimDue(ctx, w.now(), w.batchSize)
	if err != nil {
		w.logger.Error("reminder worker: claim due failed", "error", err)
	}
	if len(due) == 0 {
		return 0
	}

	w.logger.Info("reminder worker: processing due reminders", "count", len(due))
	sent := 0
	for i := range due {
		if w.processOne(ctx, &due[i]) {
			sent++
		}
	}
	return sent
}

func (w *Worker) processOne(ctx context.Context, rem *Reminder) bool {
	channel, err := w.dispatcher.Dispatch(ctx, rem)
	if err == nil {
		w.metrics.ObserveReminder(string(channel), string(StatusSent))
		if err := w.store.MarkSent(ctx, rem.ID, w.now()); err != nil {
			w.logger.Error("reminder worker: mark sent failed", "error", err, "reminder_id", rem.ID)
		}
		return true
	}

	attempts := rem.Attempts + 1
	if attempts >= w.maxAttempts {
		w.metrics.ObserveReminder(string(channel), string(StatusFailed))
		w.logger.Error("reminder worker: giving up on reminder",
			"error", err, "reminder_id", rem.ID, "attempts", attempts)
		if err := w.store.MarkFailed(ctx, rem.ID, attempts, err.Error()); err != nil {
			w.logger.Error("reminder worker: mark failed failed", "error", err, "reminder_id", rem.ID)
		}
		return false
	}

	w.metrics.ObserveReminder(string(channel), "retry")
	next := w.now().Add(w.nextDelay(rem.Attempts))
	w.logger.Warn("reminder worker: dispatch failed, retrying",
		"error", err, "reminder_id", rem.ID, "attempts", attempts, "next_attempt", next)
	if err := w.store.Reschedule(ctx, rem.ID, next, attempts, err.Error()); err != nil {
		w.logger.Error("reminder worker: reschedule failed", "error", err, "reminder_id", rem.ID)
	}
	return false
}

func (w *Worker) nextDelay(attempts int) time.Duration {
	if attempts > 10 {
		return maxRetryDelay
	}
	delay := w.baseDelay * time.Duration(1<<attempts)
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}
