// Package audit writes the manager_actions trail.  Entries are appended
// after the mutation they describe has committed, so the log is
// eventually consistent with the rooms table rather than transactional
// with it: failed appends are retried, then handed to a dead-letter
// queue for later replay.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/store"
)

// DeadLetterQueue receives entries that could not be appended.
const DeadLetterQueue = "audit.deadletter"

// Publisher publishes a JSON payload to a named queue.
type Publisher interface {
	PublishJSON(ctx context.Context, queue string, v any) error
}

// Options tunes the retry policy.
type Options struct {
	Attempts int
	Backoff  time.Duration
}

// Recorder appends audit entries with bounded retries.
type Recorder struct {
	log        store.AuditLog
	deadLetter Publisher
	opts       Options
	logger     *zap.Logger
	sleep      func(context.Context, time.Duration) error
}

// NewRecorder builds a Recorder.  deadLetter may be nil, in which case
// entries that exhaust their retries are only logged.
func NewRecorder(log store.AuditLog, deadLetter Publisher, opts Options, logger *zap.Logger) *Recorder {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{log: log, deadLetter: deadLetter, opts: opts, logger: logger, sleep: sleepCtx}
}

// Record appends e.  The request context may already be cancelled when
// the booking commits, so cancellation is detached here.  The returned
// error is informational: the mutation e describes has committed either
// way.
func (r *Recorder) Record(ctx context.Context, e model.AuditEntry) error {
	ctx = context.WithoutCancel(ctx)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	var err error
	backoff := r.opts.Backoff
	for attempt := 1; attempt <= r.opts.Attempts; attempt++ {
		entry := e
		if err = r.log.Append(ctx, &entry); err == nil {
			return nil
		}
		r.logger.Warn("audit append failed",
			zap.Int("attempt", attempt),
			zap.String("action", string(e.Action)),
			zap.Uint64("actor_id", e.ActorID),
			zap.Error(err))
		if attempt < r.opts.Attempts && backoff > 0 {
			_ = r.sleep(ctx, backoff)
			backoff *= 2
		}
	}

	if r.deadLetter == nil {
		r.logger.Error("audit entry dropped", zap.Any("entry", e), zap.Error(err))
		return fmt.Errorf("audit append: %w", err)
	}
	if dlErr := r.deadLetter.PublishJSON(ctx, DeadLetterQueue, e); dlErr != nil {
		r.logger.Error("audit dead-letter publish failed",
			zap.Any("entry", e), zap.Error(err), zap.NamedError("dead_letter_error", dlErr))
		return fmt.Errorf("audit append: %w (dead-letter: %v)", err, dlErr)
	}
	r.logger.Warn("audit entry dead-lettered", zap.String("action", string(e.Action)), zap.Error(err))
	return fmt.Errorf("audit append deferred: %w", err)
}

// Replay appends an entry received from the dead-letter queue.
func (r *Recorder) Replay(ctx context.Context, body []byte) error {
	var e model.AuditEntry
	if err := json.Unmarshal(body, &e); err != nil {
		return fmt.Errorf("unmarshal audit entry: %w", err)
	}
	e.ID = 0
	if err := r.log.Append(ctx, &e); err != nil {
		return fmt.Errorf("replay audit entry: %w", err)
	}
	r.logger.Info("audit entry replayed", zap.Uint64("id", e.ID), zap.String("action", string(e.Action)))
	return nil
}

// ListRecent returns up to limit entries, newest first.
func (r *Recorder) ListRecent(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	return r.log.ListRecent(ctx, limit)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
