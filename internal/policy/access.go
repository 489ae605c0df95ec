// Package policy maps a requester's role to the reservation operations
// it may invoke.
package policy

import (
	"errors"
	"fmt"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// Operation names an engine entry point subject to authorization.
type Operation string

const (
	OpCreateBooking  Operation = "create_booking"
	OpMoveBooking    Operation = "move_booking"
	OpCancelBooking  Operation = "cancel_booking"
	OpRecordPayment  Operation = "record_payment"
	OpApprovePayment Operation = "approve_payment"
	OpEditBooking    Operation = "edit_booking"
	OpEditUser       Operation = "edit_user"
	OpCreateUser     Operation = "create_user"
	OpDeleteUser     Operation = "delete_user"
	OpAddRoom        Operation = "add_room"
	OpEditRoom       Operation = "edit_room"
	OpListActions    Operation = "list_actions"
	OpListUsers      Operation = "list_users"
)

// ErrForbidden is matched by every *Denied through errors.Is.
var ErrForbidden = errors.New("forbidden")

// Denied reports a rejected operation.  It carries nothing else.
type Denied struct {
	Op Operation
}

func (d *Denied) Error() string        { return fmt.Sprintf("forbidden: %s", d.Op) }
func (d *Denied) Is(target error) bool { return target == ErrForbidden }

// Requester is the authenticated caller, resolved by the transport
// layer and passed explicitly into every call.
type Requester struct {
	ID   uint64
	Role model.Role
}

// Ownership describes whose booking or account an operation touches.
//
// For booking operations Occupant is the guest the booking belongs to
// (for CreateBooking, the guest it is being made for).  For user
// operations TargetUser and TargetRole describe the account, and
// RoleChange is set when the role itself is being modified.
type Ownership struct {
	Occupant   *uint64
	TargetUser *uint64
	TargetRole model.Role
	RoleChange bool
}

// Self returns the ownership of a booking held by id.
func Self(id uint64) Ownership { return Ownership{Occupant: &id} }

// OfUser returns the ownership of a user account.
func OfUser(u model.User) Ownership {
	id := u.ID
	return Ownership{TargetUser: &id, TargetRole: u.Role}
}

// None is used for operations that do not touch an owned resource.
var None = Ownership{}

var (
	guestOps = set(OpCreateBooking, OpMoveBooking, OpCancelBooking, OpRecordPayment, OpEditUser)

	managerOps = set(OpCreateBooking, OpMoveBooking, OpCancelBooking, OpRecordPayment,
		OpApprovePayment, OpEditBooking, OpEditUser, OpListActions, OpListUsers)

	adminOnlyOps = set(OpAddRoom, OpEditRoom, OpDeleteUser, OpCreateUser)
)

func set(ops ...Operation) map[Operation]bool {
	m := make(map[Operation]bool, len(ops))
	for _, op := range ops {
		m[op] = true
	}
	return m
}

// Authorize decides whether req may invoke op on the resource described
// by own.  It returns nil or a *Denied.
func Authorize(req Requester, op Operation, own Ownership) error {
	deny := &Denied{Op: op}
	switch req.Role {
	case model.RoleGuest:
		if !guestOps[op] {
			return deny
		}
		if op == OpEditUser {
			if !isSelf(req, own.TargetUser) || own.RoleChange {
				return deny
			}
			return nil
		}
		// Guests act only on their own bookings.  A nil occupant means a
		// vacant target, which only CreateBooking and MoveBooking accept.
		if own.Occupant == nil {
			if op == OpCreateBooking || op == OpMoveBooking {
				return nil
			}
			return deny
		}
		if *own.Occupant != req.ID {
			return deny
		}
		return nil

	case model.RoleManager:
		if !managerOps[op] {
			return deny
		}
		switch op {
		case OpRecordPayment:
			// Managers approve other guests' payments; recording one is
			// self-service.
			if own.Occupant != nil && *own.Occupant != req.ID {
				return deny
			}
		case OpEditUser:
			if own.RoleChange {
				return deny
			}
			if !isSelf(req, own.TargetUser) && own.TargetRole != model.RoleGuest {
				return deny
			}
		}
		return nil

	case model.RoleAdmin:
		if !managerOps[op] && !adminOnlyOps[op] {
			return deny
		}
		if op == OpDeleteUser && isSelf(req, own.TargetUser) {
			return deny
		}
		return nil
	}
	return deny
}

func isSelf(req Requester, target *uint64) bool {
	return target != nil && *target == req.ID
}
