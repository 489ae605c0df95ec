package reservation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/policy"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/store"
)

// Limits applied to ListRecentActions.
const (
	DefaultActionsLimit = 50
	MaxActionsLimit     = 500
)

// EditBookingInput is a partial edit of the booking held on a room.  Nil
// fields are left unchanged.  Release vacates the room and must be used
// alone.
type EditBookingInput struct {
	CheckIn          *time.Time
	CheckOut         *time.Time
	Occupant         *uint64
	RoomType         *string
	Floor            *int
	TargetRoomNumber *int
	Release          bool
}

func (in EditBookingInput) empty() bool {
	return in.CheckIn == nil && in.CheckOut == nil && in.Occupant == nil &&
		in.RoomType == nil && in.Floor == nil && in.TargetRoomNumber == nil && !in.Release
}

func (in EditBookingInput) touchesBooking() bool {
	return in.CheckIn != nil || in.CheckOut != nil || in.Occupant != nil || in.TargetRoomNumber != nil
}

func (in EditBookingInput) validate() error {
	if in.empty() {
		return invalid("no changes requested")
	}
	if in.Release && (in.touchesBooking() || in.RoomType != nil || in.Floor != nil) {
		return invalid("release cannot be combined with other changes")
	}
	if in.CheckIn != nil && in.CheckOut != nil {
		if err := booking.Validate(stayOf(*in.CheckIn, *in.CheckOut)); err != nil {
			return invalidRange(err)
		}
	}
	if in.RoomType != nil && strings.TrimSpace(*in.RoomType) == "" {
		return invalid("room_type must not be empty")
	}
	if in.Floor != nil && *in.Floor < 0 {
		return invalid("floor must not be negative")
	}
	if in.TargetRoomNumber != nil && *in.TargetRoomNumber <= 0 {
		return invalid("target room number must be positive")
	}
	if in.Occupant != nil && *in.Occupant == 0 {
		return invalid("occupant must be a user id")
	}
	return nil
}

// ApprovePayment marks the booking on roomID as paid on behalf of its
// guest.  Approving an already paid booking reports ErrAlreadyPaid.
func (e *Engine) ApprovePayment(ctx context.Context, actor Requester, roomID uint64) (model.Room, error) {
	if err := policy.Authorize(actor, policy.OpApprovePayment, policy.None); err != nil {
		return model.Room{}, err
	}
	var out model.Room
	err := e.run(ctx, func(tx store.Tx, fx *effects) error {
		room, err := tx.Rooms().Get(ctx, roomID)
		if err != nil {
			return fmt.Errorf("room id %d: %w", roomID, err)
		}
		if !room.Booked() {
			return fmt.Errorf("room %d: %w", room.Number, ErrNotBooked)
		}
		if room.PaymentStatus == model.PaymentPaid {
			return fmt.Errorf("room %d: %w", room.Number, ErrAlreadyPaid)
		}
		method := room.PaymentMethod
		if method == "" {
			method = "front_desk"
		}
		out, err = tx.Rooms().Apply(ctx, room.ID, store.SetPaymentStatus(model.PaymentPaid, method))
		if err != nil {
			return err
		}
		occupant := *room.Occupant
		fx.event(actor, queue.EventBookingPaid, out, occupant, nil)
		fx.audit(actor, model.ActionApprovePayment, intPtr(room.Number), uint64Ptr(occupant),
			fmt.Sprintf("approved payment for room %d held by user %d", room.Number, occupant))
		return nil
	})
	return out, err
}

// ManagerEditBooking lets a manager or admin change the dates, occupant,
// room details or room of the booking on roomID, or release it.  Each
// call records exactly one audit entry.
func (e *Engine) ManagerEditBooking(ctx context.Context, actor Requester, roomID uint64, in EditBookingInput) (model.Room, error) {
	if err := in.validate(); err != nil {
		return model.Room{}, err
	}
	if err := policy.Authorize(actor, policy.OpEditBooking, policy.None); err != nil {
		return model.Room{}, err
	}

	var out model.Room
	err := e.run(ctx, func(tx store.Tx, fx *effects) error {
		room, err := tx.Rooms().Get(ctx, roomID)
		if err != nil {
			return fmt.Errorf("room id %d: %w", roomID, err)
		}

		if in.Release {
			if !room.Booked() {
				return fmt.Errorf("room %d: %w", room.Number, ErrNotBooked)
			}
			occupant := *room.Occupant
			out, err = tx.Rooms().Apply(ctx, room.ID, store.Vacate())
			if err != nil {
				return err
			}
			fx.event(actor, queue.EventBookingCancelled, out, occupant, nil)
			fx.audit(actor, model.ActionCancelBooking, intPtr(room.Number), uint64Ptr(occupant),
				fmt.Sprintf("released room %d held by user %d", room.Number, occupant))
			return nil
		}

		out = room
		var changes []string
		if in.RoomType != nil || in.Floor != nil {
			rt, fl := room.RoomType, room.Floor
			if in.RoomType != nil {
				rt = strings.TrimSpace(*in.RoomType)
			}
			if in.Floor != nil {
				fl = *in.Floor
			}
			out, err = tx.Rooms().Apply(ctx, room.ID, store.SetDetails(rt, fl))
			if err != nil {
				return err
			}
			changes = append(changes, fmt.Sprintf("type %s floor %d", rt, fl))
		}

		if !in.touchesBooking() {
			fx.audit(actor, model.ActionEditRoom, intPtr(out.Number), nil,
				fmt.Sprintf("edited room %d: %s", out.Number, strings.Join(changes, ", ")))
			return nil
		}

		stay, err := mergeStay(room, in)
		if err != nil {
			return err
		}
		var occupant uint64
		switch {
		case in.Occupant != nil:
			occupant = *in.Occupant
		case room.Booked():
			occupant = *room.Occupant
		default:
			return invalid("room %d is vacant; an occupant is required", room.Number)
		}
		moving := in.TargetRoomNumber != nil && *in.TargetRoomNumber != room.Number
		if moving && !room.HeldBy(occupant) {
			// One entry must describe the whole change, so a reassignment
			// and a move are two separate edits.
			return invalid("room %d: only the current occupant's booking can be moved", room.Number)
		}
		if !room.HeldBy(occupant) {
			if _, err := tx.Users().Get(ctx, occupant); err != nil {
				return fmt.Errorf("user %d: %w", occupant, err)
			}
			if err := holdsOther(ctx, tx, occupant, room.ID); err != nil {
				return err
			}
		}

		if moving {
			target, err := tx.Rooms().GetByNumber(ctx, *in.TargetRoomNumber)
			if err != nil {
				return fmt.Errorf("room %d: %w", *in.TargetRoomNumber, err)
			}
			if err := booking.MayPlace(target, occupant, stay); err != nil {
				return conflict(err)
			}
			if _, err := tx.Rooms().Apply(ctx, room.ID, store.Vacate()); err != nil {
				return err
			}
			out, err = tx.Rooms().Apply(ctx, target.ID, store.Occupy(occupant, stay))
			if err != nil {
				return err
			}
			fx.event(actor, queue.EventBookingMoved, out, occupant, intPtr(room.Number))
			fx.audit(actor, model.ActionMoveBooking, intPtr(out.Number), uint64Ptr(occupant),
				fmt.Sprintf("moved booking of user %d from room %d to room %d, %s",
					occupant, room.Number, out.Number, describeStay(stay)))
			return nil
		}

		switch {
		case !room.Booked():
			out, err = tx.Rooms().Apply(ctx, room.ID, store.Occupy(occupant, stay))
			if err != nil {
				return err
			}
			fx.event(actor, queue.EventBookingCreated, out, occupant, nil)
			fx.audit(actor, model.ActionCreateBooking, intPtr(out.Number), uint64Ptr(occupant),
				fmt.Sprintf("booked room %d for user %d, %s", out.Number, occupant, describeStay(stay)))
		case !room.HeldBy(occupant):
			previous := *room.Occupant
			vacated, err := tx.Rooms().Apply(ctx, room.ID, store.Vacate())
			if err != nil {
				return err
			}
			out, err = tx.Rooms().Apply(ctx, room.ID, store.Occupy(occupant, stay))
			if err != nil {
				return err
			}
			fx.event(actor, queue.EventBookingCancelled, vacated, previous, nil)
			fx.event(actor, queue.EventBookingCreated, out, occupant, nil)
			fx.audit(actor, model.ActionEditDates, intPtr(out.Number), uint64Ptr(occupant),
				fmt.Sprintf("reassigned room %d from user %d to user %d, %s",
					out.Number, previous, occupant, describeStay(stay)))
		default:
			out, err = tx.Rooms().Apply(ctx, room.ID, store.SetStay(stay))
			if err != nil {
				return err
			}
			fx.event(actor, queue.EventBookingEdited, out, occupant, nil)
			fx.audit(actor, model.ActionEditDates, intPtr(out.Number), uint64Ptr(occupant),
				fmt.Sprintf("changed dates of room %d to %s", out.Number, describeStay(stay)))
		}
		return nil
	})
	return out, err
}

// mergeStay overlays the requested dates on the room's current stay.
func mergeStay(room model.Room, in EditBookingInput) (model.Stay, error) {
	var s model.Stay
	if room.Stay != nil {
		s = *room.Stay
	}
	if in.CheckIn != nil {
		s.CheckIn = in.CheckIn.UTC()
	}
	if in.CheckOut != nil {
		s.CheckOut = in.CheckOut.UTC()
	}
	if err := booking.Validate(s); err != nil {
		return s, invalidRange(err)
	}
	return s, nil
}

// holdsOther rejects handing a booking to a user who already holds a
// different room.
func holdsOther(ctx context.Context, tx store.Tx, userID, roomID uint64) error {
	held, err := tx.Rooms().ListByOccupant(ctx, userID)
	if err != nil {
		return err
	}
	for _, h := range held {
		if h.ID != roomID {
			return fmt.Errorf("user %d already holds room %d: %w", userID, h.Number, ErrConflict)
		}
	}
	return nil
}

// ListRecentActions returns up to limit audit entries, newest first.  A
// non-positive limit selects the default; larger values are capped.
func (e *Engine) ListRecentActions(ctx context.Context, actor Requester, limit int) ([]model.AuditEntry, error) {
	if err := policy.Authorize(actor, policy.OpListActions, policy.None); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = DefaultActionsLimit
	case limit > MaxActionsLimit:
		limit = MaxActionsLimit
	}
	entries, err := e.audit.ListRecent(ctx, limit)
	return entries, classify(err)
}
