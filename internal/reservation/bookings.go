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

// CreateBookingInput describes a new booking.  RoomType, when set, must
// match the room's type.  OnBehalfOf lets a manager or admin book for
// another user; zero means the requester.
type CreateBookingInput struct {
	RoomNumber int
	CheckIn    time.Time
	CheckOut   time.Time
	RoomType   string
	OnBehalfOf uint64
}

// MoveBookingInput relocates the requester's booking.
type MoveBookingInput struct {
	NewRoomNumber int
	CheckIn       time.Time
	CheckOut      time.Time
	RoomType      string
}

// Payment methods accepted by RecordPayment.
var paymentMethods = map[string]bool{"cash": true, "card": true, "gcash": true, "paymaya": true}

func stayOf(ci, co time.Time) model.Stay {
	return model.Stay{CheckIn: ci.UTC(), CheckOut: co.UTC()}
}

// placement books room for occupant.  New dates on a room the occupant
// already holds keep its payment state; anything else starts pending.
func placement(room model.Room, occupant uint64, stay model.Stay) store.Mutation {
	if room.HeldBy(occupant) {
		return store.SetStay(stay)
	}
	return store.Occupy(occupant, stay)
}

func checkType(room model.Room, want string) error {
	if want != "" && !strings.EqualFold(strings.TrimSpace(want), room.RoomType) {
		return invalid("room %d is %s, not %s", room.Number, room.RoomType, want)
	}
	return nil
}

// CreateBooking books a room.  A guest holds at most one booking, so
// booking a second room moves the existing stay there; booking the room
// already held replaces its dates.
func (e *Engine) CreateBooking(ctx context.Context, req Requester, in CreateBookingInput) (model.Room, error) {
	if in.RoomNumber <= 0 {
		return model.Room{}, invalid("room number is required")
	}
	stay := stayOf(in.CheckIn, in.CheckOut)
	if err := booking.Validate(stay); err != nil {
		return model.Room{}, invalidRange(err)
	}
	occupant := req.ID
	if in.OnBehalfOf != 0 {
		occupant = in.OnBehalfOf
	}
	if err := policy.Authorize(req, policy.OpCreateBooking, policy.Self(occupant)); err != nil {
		return model.Room{}, err
	}

	var out model.Room
	err := e.run(ctx, func(tx store.Tx, fx *effects) error {
		room, err := tx.Rooms().GetByNumber(ctx, in.RoomNumber)
		if err != nil {
			return fmt.Errorf("room %d: %w", in.RoomNumber, err)
		}
		if err := checkType(room, in.RoomType); err != nil {
			return err
		}
		if occupant != req.ID {
			if _, err := tx.Users().Get(ctx, occupant); err != nil {
				return fmt.Errorf("user %d: %w", occupant, err)
			}
		}
		if err := booking.MayPlace(room, occupant, stay); err != nil {
			return conflict(err)
		}

		held, err := tx.Rooms().ListByOccupant(ctx, occupant)
		if err != nil {
			return err
		}
		var from *int
		for _, h := range held {
			if h.ID == room.ID {
				continue
			}
			if _, err := tx.Rooms().Apply(ctx, h.ID, store.Vacate()); err != nil {
				return err
			}
			from = intPtr(h.Number)
		}

		out, err = tx.Rooms().Apply(ctx, room.ID, placement(room, occupant, stay))
		if err != nil {
			return err
		}

		switch {
		case from != nil:
			fx.event(req, queue.EventBookingMoved, out, occupant, from)
			fx.audit(req, model.ActionMoveBooking, intPtr(out.Number), uint64Ptr(occupant),
				fmt.Sprintf("moved booking of user %d from room %d to room %d", occupant, *from, out.Number))
		case room.HeldBy(occupant):
			fx.event(req, queue.EventBookingEdited, out, occupant, nil)
			fx.audit(req, model.ActionEditDates, intPtr(out.Number), uint64Ptr(occupant),
				fmt.Sprintf("changed dates of room %d to %s", out.Number, describeStay(stay)))
		default:
			fx.event(req, queue.EventBookingCreated, out, occupant, nil)
			fx.audit(req, model.ActionCreateBooking, intPtr(out.Number), uint64Ptr(occupant),
				fmt.Sprintf("booked room %d for user %d, %s", out.Number, occupant, describeStay(stay)))
		}
		return nil
	})
	return out, err
}

// MoveBooking relocates the requester's own booking to another room
// with new dates.  The source room becomes vacant and payment resets to
// pending.
func (e *Engine) MoveBooking(ctx context.Context, req Requester, in MoveBookingInput) (model.Room, error) {
	if in.NewRoomNumber <= 0 {
		return model.Room{}, invalid("room number is required")
	}
	stay := stayOf(in.CheckIn, in.CheckOut)
	if err := booking.Validate(stay); err != nil {
		return model.Room{}, invalidRange(err)
	}
	if err := policy.Authorize(req, policy.OpMoveBooking, policy.Self(req.ID)); err != nil {
		return model.Room{}, err
	}

	var out model.Room
	err := e.run(ctx, func(tx store.Tx, fx *effects) error {
		held, err := tx.Rooms().ListByOccupant(ctx, req.ID)
		if err != nil {
			return err
		}
		if len(held) == 0 {
			return fmt.Errorf("no booking to move: %w", ErrNotFound)
		}
		src := held[0]

		target, err := tx.Rooms().GetByNumber(ctx, in.NewRoomNumber)
		if err != nil {
			return fmt.Errorf("room %d: %w", in.NewRoomNumber, err)
		}
		if err := checkType(target, in.RoomType); err != nil {
			return err
		}
		if err := booking.MayPlace(target, req.ID, stay); err != nil {
			return conflict(err)
		}

		var from *int
		for _, h := range held {
			if h.ID == target.ID {
				continue
			}
			if _, err := tx.Rooms().Apply(ctx, h.ID, store.Vacate()); err != nil {
				return err
			}
			from = intPtr(h.Number)
		}
		out, err = tx.Rooms().Apply(ctx, target.ID, placement(target, req.ID, stay))
		if err != nil {
			return err
		}

		if from == nil {
			fx.event(req, queue.EventBookingEdited, out, req.ID, nil)
			fx.audit(req, model.ActionEditDates, intPtr(out.Number), uint64Ptr(req.ID),
				fmt.Sprintf("changed dates of room %d to %s", out.Number, describeStay(stay)))
			return nil
		}
		fx.event(req, queue.EventBookingMoved, out, req.ID, from)
		fx.audit(req, model.ActionMoveBooking, intPtr(out.Number), uint64Ptr(req.ID),
			fmt.Sprintf("moved own booking from room %d to room %d", src.Number, out.Number))
		return nil
	})
	return out, err
}

// CancelBooking releases the booking held on roomID.  Guests may only
// cancel their own booking; managers and admins may cancel any.
func (e *Engine) CancelBooking(ctx context.Context, req Requester, roomID uint64) (model.Room, error) {
	var out model.Room
	err := e.run(ctx, func(tx store.Tx, fx *effects) error {
		room, err := tx.Rooms().Get(ctx, roomID)
		if err != nil {
			return fmt.Errorf("room id %d: %w", roomID, err)
		}
		if !room.Booked() {
			return fmt.Errorf("room %d: %w", room.Number, ErrNotBooked)
		}
		occupant := *room.Occupant
		if err := policy.Authorize(req, policy.OpCancelBooking, policy.Self(occupant)); err != nil {
			return err
		}
		out, err = tx.Rooms().Apply(ctx, room.ID, store.Vacate())
		if err != nil {
			return err
		}
		fx.event(req, queue.EventBookingCancelled, out, occupant, nil)
		fx.audit(req, model.ActionCancelBooking, intPtr(room.Number), uint64Ptr(occupant),
			fmt.Sprintf("cancelled booking of user %d on room %d (%s)", occupant, room.Number, describeStay(*room.Stay)))
		return nil
	})
	return out, err
}

// PaymentGate is consulted by RecordPaymentWith once every other check
// has passed, right before the payment is written.  A non-nil error
// aborts the payment and is returned unchanged.
type PaymentGate func(ctx context.Context) error

// RecordPayment marks the requester's own booking on roomNumber as paid.
// Paying an already paid booking is a no-op.
func (e *Engine) RecordPayment(ctx context.Context, req Requester, roomNumber int, method string) (model.Room, error) {
	return e.RecordPaymentWith(ctx, req, roomNumber, method, nil)
}

// RecordPaymentWith is RecordPayment with a gate, such as a one-time
// password check, that is only spent on a payment that would succeed.
func (e *Engine) RecordPaymentWith(ctx context.Context, req Requester, roomNumber int, method string, gate PaymentGate) (model.Room, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	if !paymentMethods[method] {
		return model.Room{}, invalid("unsupported payment method %q", method)
	}
	if roomNumber <= 0 {
		return model.Room{}, invalid("room number is required")
	}

	var out model.Room
	err := e.run(ctx, func(tx store.Tx, fx *effects) error {
		room, err := tx.Rooms().GetByNumber(ctx, roomNumber)
		if err != nil {
			return fmt.Errorf("room %d: %w", roomNumber, err)
		}
		if !room.Booked() {
			return fmt.Errorf("room %d: %w", room.Number, ErrNotBooked)
		}
		occupant := *room.Occupant
		if err := policy.Authorize(req, policy.OpRecordPayment, policy.Self(occupant)); err != nil {
			return err
		}
		if room.PaymentStatus == model.PaymentPaid {
			out = room
			return nil
		}
		if gate != nil {
			if err := gate(ctx); err != nil {
				return err
			}
		}
		out, err = tx.Rooms().Apply(ctx, room.ID, store.SetPaymentStatus(model.PaymentPaid, method))
		if err != nil {
			return err
		}
		fx.event(req, queue.EventBookingPaid, out, occupant, nil)
		fx.audit(req, model.ActionApprovePayment, intPtr(room.Number), uint64Ptr(occupant),
			fmt.Sprintf("recorded %s payment for room %d", method, room.Number))
		return nil
	})
	return out, err
}

// MyBookings lists the rooms held by the requester.
func (e *Engine) MyBookings(ctx context.Context, req Requester) ([]model.Room, error) {
	rooms, err := e.store.Rooms().ListByOccupant(ctx, req.ID)
	return rooms, classify(err)
}

// ListRooms returns every room ordered by number.  Managers and admins
// see occupant names and stays; a guest sees those only for rooms they
// hold themselves.
func (e *Engine) ListRooms(ctx context.Context, req Requester) ([]model.RoomView, error) {
	rooms, err := e.store.Rooms().List(ctx)
	if err != nil {
		return nil, classify(err)
	}
	users, err := e.store.Users().List(ctx)
	if err != nil {
		return nil, classify(err)
	}
	names := make(map[uint64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	out := make([]model.RoomView, 0, len(rooms))
	full := req.Role.Privileged()
	for _, r := range rooms {
		if !full && !r.HeldBy(req.ID) {
			out = append(out, r.View(nil).Redacted())
			continue
		}
		var name *string
		if r.Occupant != nil {
			if n, ok := names[*r.Occupant]; ok {
				name = &n
			}
		}
		out = append(out, r.View(name))
	}
	return out, nil
}

func describeStay(s model.Stay) string {
	return s.CheckIn.Format(time.RFC3339) + " to " + s.CheckOut.Format(time.RFC3339)
}
