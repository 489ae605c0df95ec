// Package booking decides whether a proposed stay may be placed into a
// room.  Everything here is pure: no storage access, no clocks.
package booking

import (
	"errors"
	"fmt"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

var (
	// ErrInvalidRange is returned when check-out does not come after
	// check-in, or either instant is missing.
	ErrInvalidRange = errors.New("check_out must be after check_in")

	// ErrConflict is returned when the target room is held by another
	// occupant.
	ErrConflict = errors.New("room is booked by another guest")
)

// Validate checks that the stay is a non-empty half-open interval.
func Validate(s model.Stay) error {
	if s.CheckIn.IsZero() || s.CheckOut.IsZero() {
		return ErrInvalidRange
	}
	if !s.CheckOut.After(s.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

// Overlaps reports whether two half-open stays intersect.  A check-out
// and a check-in on the same instant do not overlap.
func Overlaps(a, b model.Stay) bool {
	return a.CheckIn.Before(b.CheckOut) && b.CheckIn.Before(a.CheckOut)
}

// MayPlace decides whether requester may place proposed into room.
//
// Rooms keep a single current stay, so a Booked room held by anyone
// else rejects the stay regardless of dates.  A Vacant room always
// accepts, and a room already held by the requester accepts the new
// stay as a self-edit.
func MayPlace(room model.Room, requester uint64, proposed model.Stay) error {
	if err := Validate(proposed); err != nil {
		return err
	}
	if !room.Booked() || room.HeldBy(requester) {
		return nil
	}
	return fmt.Errorf("room %d: %w", room.Number, ErrConflict)
}

// Occupancy is a stay together with who holds it and where.
type Occupancy struct {
	RoomNumber int
	Occupant   uint64
	Stay       model.Stay
}

// MayPlaceInCalendar checks proposed against a list of existing stays.
// Only stays that overlap proposed and belong to a different occupant
// conflict; the first such stay is reported.
func MayPlaceInCalendar(existing []Occupancy, requester uint64, proposed model.Stay) error {
	if err := Validate(proposed); err != nil {
		return err
	}
	for _, o := range existing {
		if o.Occupant == requester {
			continue
		}
		if Overlaps(o.Stay, proposed) {
			return fmt.Errorf("room %d: %w", o.RoomNumber, ErrConflict)
		}
	}
	return nil
}
