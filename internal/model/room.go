package model

import "time"

// RoomStatus is the cached occupancy state of a room.
type RoomStatus string

const (
	RoomVacant RoomStatus = "vacant"
	RoomBooked RoomStatus = "booked"
)

// PaymentStatus records whether the current stay has been paid for.
// The service never processes payments itself.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// Stay is a half-open [CheckIn, CheckOut) interval during which a room
// is reserved.  Both instants are kept in UTC.
type Stay struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

// Nights returns the number of calendar nights covered by the stay,
// rounding partial days up.
func (s Stay) Nights() int {
	d := s.CheckOut.Sub(s.CheckIn)
	if d <= 0 {
		return 0
	}
	n := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		n++
	}
	return n
}

// Room represents a row in the `rooms` table.  A room is provisioned
// once and never deleted; its occupancy fields cycle between Vacant and
// Booked.
//
// Invariant: Status == RoomBooked ⇔ Occupant != nil ⇔ Stay != nil.
//
// Fields:
//  ID            – primary key identifier.
//  Number        – unique guest-facing room number (e.g. 101).
//  RoomType      – Executive, Deluxe, Standard, Family, …
//  Floor         – floor the room is on.
//  Status        – vacant or booked.
//  Occupant      – user ID of the guest holding the stay (nil if vacant).
//  Stay          – current reservation interval (nil if vacant).
//  PaymentStatus – pending or paid.
//  PaymentMethod – how the stay was paid (empty until paid).
//  UpdatedAt     – timestamp of last mutation.
type Room struct {
	ID            uint64        // rooms.id
	Number        int           // rooms.number
	RoomType      string        // rooms.room_type
	Floor         int           // rooms.floor
	Status        RoomStatus    // rooms.status
	Occupant      *uint64       // rooms.booked_by (nullable)
	Stay          *Stay         // rooms.check_in / rooms.check_out (nullable)
	PaymentStatus PaymentStatus // rooms.payment_status
	PaymentMethod string        // rooms.payment_method
	UpdatedAt     time.Time     // rooms.updated_at
}

// Booked reports whether the room currently holds a stay.
func (r Room) Booked() bool { return r.Status == RoomBooked }

// HeldBy reports whether userID is the occupant of the room.
func (r Room) HeldBy(userID uint64) bool {
	return r.Occupant != nil && *r.Occupant == userID
}

// Consistent reports whether the occupancy fields agree with Status.
func (r Room) Consistent() bool {
	booked := r.Status == RoomBooked
	return booked == (r.Occupant != nil) && booked == (r.Stay != nil)
}

// RoomView is a room as listed to clients, joined with the occupant's
// display name.
type RoomView struct {
	ID            uint64        `json:"id"`
	Number        int           `json:"number"`
	RoomType      string        `json:"room_type"`
	Floor         int           `json:"floor"`
	Status        RoomStatus    `json:"status"`
	OccupantID    *uint64       `json:"occupant_id,omitempty"`
	OccupantName  *string       `json:"occupant_name,omitempty"`
	CheckIn       *time.Time    `json:"check_in,omitempty"`
	CheckOut      *time.Time    `json:"check_out,omitempty"`
	PaymentStatus PaymentStatus `json:"payment_status,omitempty"`
}

// Redacted keeps only the inventory fields: who holds the room, when
// and whether they paid are left out.
func (v RoomView) Redacted() RoomView {
	return RoomView{ID: v.ID, Number: v.Number, RoomType: v.RoomType, Floor: v.Floor, Status: v.Status}
}

// View converts the room into its client representation.  name may be
// nil when the occupant is unknown or the room is vacant.
func (r Room) View(name *string) RoomView {
	v := RoomView{
		ID:            r.ID,
		Number:        r.Number,
		RoomType:      r.RoomType,
		Floor:         r.Floor,
		Status:        r.Status,
		OccupantID:    r.Occupant,
		OccupantName:  name,
		PaymentStatus: r.PaymentStatus,
	}
	if r.Stay != nil {
		ci, co := r.Stay.CheckIn, r.Stay.CheckOut
		v.CheckIn, v.CheckOut = &ci, &co
	}
	return v
}
