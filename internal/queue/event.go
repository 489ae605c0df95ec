// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// BookingEventsQueue carries every committed booking transition.
const BookingEventsQueue = "booking.events"

// Booking event types.
const (
	EventBookingCreated   = "booking.created"
	EventBookingMoved     = "booking.moved"
	EventBookingCancelled = "booking.cancelled"
	EventBookingPaid      = "booking.paid"
	EventBookingEdited    = "booking.edited"
)

// BookingEvent is published after a reservation transition commits.  It
// carries enough information for downstream consumers to log or run
// analytics without querying the primary database.
type BookingEvent struct {
	Type          string     `json:"type"`
	RoomID        uint64     `json:"room_id"`
	RoomNumber    int        `json:"room_number"`
	PreviousRoom  *int       `json:"previous_room,omitempty"`
	UserID        uint64     `json:"user_id"`
	ActorID       uint64     `json:"actor_id"`
	ActorRole     string     `json:"actor_role"`
	CheckIn       *time.Time `json:"check_in,omitempty"`
	CheckOut      *time.Time `json:"check_out,omitempty"`
	PaymentStatus string     `json:"payment_status"`
	OccurredAt    time.Time  `json:"occurred_at"`
}
