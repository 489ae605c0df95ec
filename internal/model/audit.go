package model

import "time"

// ActionType enumerates privileged mutations recorded in the audit log.
type ActionType string

const (
	ActionCreateBooking  ActionType = "CREATE_BOOKING"
	ActionMoveBooking    ActionType = "MOVE_BOOKING"
	ActionEditDates      ActionType = "EDIT_DATES"
	ActionCancelBooking  ActionType = "CANCEL_BOOKING"
	ActionApprovePayment ActionType = "APPROVE_PAYMENT"
	ActionEditUser       ActionType = "EDIT_USER"
	ActionDeleteUser     ActionType = "DELETE_USER"
	ActionAddRoom        ActionType = "ADD_ROOM"
	ActionEditRoom       ActionType = "EDIT_ROOM"
)

// AuditEntry is an immutable record of a manager or admin mutation,
// stored in the `manager_actions` table.  Entries are appended once,
// after the mutation they describe has committed.
//
// Fields:
//  ID          – auto-increment identifier.
//  ActorID     – manager/admin who performed the action.
//  Action      – kind of mutation.
//  TargetRoom  – room number affected (nil when not room scoped).
//  TargetUser  – user affected (nil when not user scoped).
//  Description – human readable summary.
//  CreatedAt   – when the mutation committed.
type AuditEntry struct {
	ID          uint64     `json:"id"`          // manager_actions.id
	ActorID     uint64     `json:"actor_id"`    // manager_actions.actor_id
	Action      ActionType `json:"action_type"` // manager_actions.action_type
	TargetRoom  *int       `json:"target_room"` // manager_actions.target_room (nullable)
	TargetUser  *uint64    `json:"target_user"` // manager_actions.target_user (nullable)
	Description string     `json:"description"` // manager_actions.description
	CreatedAt   time.Time  `json:"timestamp"`   // manager_actions.created_at
}
