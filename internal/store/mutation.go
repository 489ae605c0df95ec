package store

import (
	"fmt"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// MutationKind identifies a Room Store mutation.
type MutationKind int

const (
	MutOccupy MutationKind = iota + 1
	MutVacate
	MutSetPayment
	MutSetDetails
	MutSetStay
)

func (k MutationKind) String() string {
	switch k {
	case MutOccupy:
		return "occupy"
	case MutVacate:
		return "vacate"
	case MutSetPayment:
		return "set_payment"
	case MutSetDetails:
		return "set_details"
	case MutSetStay:
		return "set_stay"
	}
	return fmt.Sprintf("mutation(%d)", int(k))
}

// Mutation is a single change to a room row.  Build one with the
// constructors below rather than by hand.
type Mutation struct {
	Kind          MutationKind
	Occupant      uint64
	Stay          model.Stay
	PaymentStatus model.PaymentStatus
	PaymentMethod string
	RoomType      string
	Floor         int
}

// Occupy books the room for occupant.  It succeeds only when the room is
// vacant or already held by occupant, and resets payment to pending.
func Occupy(occupant uint64, stay model.Stay) Mutation {
	return Mutation{Kind: MutOccupy, Occupant: occupant, Stay: stay}
}

// Vacate releases a booked room.
func Vacate() Mutation { return Mutation{Kind: MutVacate} }

// SetPaymentStatus updates the payment state of a booked room.
func SetPaymentStatus(status model.PaymentStatus, method string) Mutation {
	return Mutation{Kind: MutSetPayment, PaymentStatus: status, PaymentMethod: method}
}

// SetDetails changes the room type and floor.  Occupancy is untouched.
func SetDetails(roomType string, floor int) Mutation {
	return Mutation{Kind: MutSetDetails, RoomType: roomType, Floor: floor}
}

// SetStay replaces the dates of a booked room, keeping occupant and
// payment state.
func SetStay(stay model.Stay) Mutation { return Mutation{Kind: MutSetStay, Stay: stay} }

// ApplyTo applies m to a copy of r, enforcing the same guards as the SQL
// implementation.  It is shared by in-memory stores.
func (m Mutation) ApplyTo(r model.Room) (model.Room, error) {
	switch m.Kind {
	case MutOccupy:
		if r.Booked() && !r.HeldBy(m.Occupant) {
			return r, ErrConflict
		}
		occ, st := m.Occupant, m.Stay
		r.Status = model.RoomBooked
		r.Occupant = &occ
		r.Stay = &st
		r.PaymentStatus = model.PaymentPending
		r.PaymentMethod = ""
	case MutVacate:
		if !r.Booked() {
			return r, ErrNotBooked
		}
		r.Status = model.RoomVacant
		r.Occupant = nil
		r.Stay = nil
		r.PaymentStatus = model.PaymentPending
		r.PaymentMethod = ""
	case MutSetPayment:
		if !r.Booked() {
			return r, ErrNotBooked
		}
		r.PaymentStatus = m.PaymentStatus
		r.PaymentMethod = m.PaymentMethod
	case MutSetDetails:
		r.RoomType = m.RoomType
		r.Floor = m.Floor
	case MutSetStay:
		if !r.Booked() {
			return r, ErrNotBooked
		}
		st := m.Stay
		r.Stay = &st
	default:
		return r, fmt.Errorf("unknown %s", m.Kind)
	}
	return r, nil
}
