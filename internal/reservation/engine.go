// Package reservation owns the room state machine.  Every transition
// runs inside one store transaction; audit entries and booking events
// are emitted only after that transaction commits.
package reservation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/audit"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/policy"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/store"
)

// Requester is the authenticated caller of an engine operation.
type Requester = policy.Requester

// AuditRecorder appends privileged mutations to the audit log.
type AuditRecorder interface {
	Record(ctx context.Context, e model.AuditEntry) error
	ListRecent(ctx context.Context, limit int) ([]model.AuditEntry, error)
}

// EventPublisher publishes committed booking transitions.
type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, ev queue.BookingEvent) error
}

// Engine implements the reservation operations.
type Engine struct {
	store  store.Store
	audit  AuditRecorder
	events EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithAudit replaces the default audit recorder, which writes straight
// to the store's audit log without a dead-letter queue.
func WithAudit(r AuditRecorder) Option { return func(e *Engine) { e.audit = r } }

// WithEvents publishes booking events after each committed transition.
func WithEvents(p EventPublisher) Option { return func(e *Engine) { e.events = p } }

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithClock overrides the clock used for audit timestamps and events.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// New builds an Engine over st.
func New(st store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  st,
		logger: zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(e)
	}
	if e.audit == nil {
		e.audit = audit.NewRecorder(st.Audit(), nil, audit.Options{Attempts: 1}, e.logger)
	}
	return e
}

// effects collects what must happen once a transaction has committed.
type effects struct {
	audits []model.AuditEntry
	events []queue.BookingEvent
}

func (fx *effects) audit(req Requester, action model.ActionType, room *int, user *uint64, desc string) {
	if !req.Role.Privileged() {
		return
	}
	fx.audits = append(fx.audits, model.AuditEntry{
		ActorID:     req.ID,
		Action:      action,
		TargetRoom:  room,
		TargetUser:  user,
		Description: desc,
	})
}

func (fx *effects) event(req Requester, typ string, r model.Room, userID uint64, from *int) {
	ev := queue.BookingEvent{
		Type:          typ,
		RoomID:        r.ID,
		RoomNumber:    r.Number,
		PreviousRoom:  from,
		UserID:        userID,
		ActorID:       req.ID,
		ActorRole:     req.Role.String(),
		PaymentStatus: string(r.PaymentStatus),
	}
	if r.Stay != nil {
		ci, co := r.Stay.CheckIn, r.Stay.CheckOut
		ev.CheckIn, ev.CheckOut = &ci, &co
	}
	fx.events = append(fx.events, ev)
}

// run executes fn in one transaction and, when it commits, flushes the
// collected side effects.  Audit and event failures are logged but do not
// undo the committed mutation.
func (e *Engine) run(ctx context.Context, fn func(tx store.Tx, fx *effects) error) error {
	fx := &effects{}
	err := e.store.Atomic(ctx, func(tx store.Tx) error {
		*fx = effects{}
		return fn(tx, fx)
	})
	if err != nil {
		return classify(err)
	}

	now := e.now()
	for _, entry := range fx.audits {
		entry.CreatedAt = now
		if aerr := e.audit.Record(ctx, entry); aerr != nil {
			e.logger.Error("audit write failed after commit",
				zap.String("action", string(entry.Action)),
				zap.Uint64("actor_id", entry.ActorID),
				zap.Error(aerr))
		}
	}
	if e.events != nil {
		pubCtx := context.WithoutCancel(ctx)
		for _, ev := range fx.events {
			ev.OccurredAt = now
			if perr := e.events.PublishBookingEvent(pubCtx, ev); perr != nil {
				e.logger.Warn("booking event publish failed",
					zap.String("type", ev.Type), zap.Int("room", ev.RoomNumber), zap.Error(perr))
			}
		}
	}
	return nil
}

func intPtr(v int) *int          { return &v }
func uint64Ptr(v uint64) *uint64 { return &v }
