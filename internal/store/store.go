// Package store defines the persistence contract used by the
// reservation engine.  The MySQL implementation lives in
// internal/repository and an in-memory one in internal/store/memory.
package store

import (
	"context"
	"errors"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// Sentinel errors shared by every implementation.  Wrapping errors keep
// the generic sentinel reachable through errors.Is.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// ErrNotBooked is returned when a mutation needs a Booked room but
	// the room is Vacant.
	ErrNotBooked = wrap("room is not booked", ErrNotFound)

	ErrDuplicateRoomNumber = wrap("duplicate room number", ErrConflict)
	ErrEmailExists         = wrap("email already exists", ErrConflict)
)

type sentinel struct {
	msg    string
	parent error
}

func wrap(msg string, parent error) error { return &sentinel{msg: msg, parent: parent} }

func (s *sentinel) Error() string { return s.msg }
func (s *sentinel) Unwrap() error { return s.parent }

// Rooms is the Room Store.  Inside a transaction, reads lock the rows
// they return until commit.
type Rooms interface {
	Get(ctx context.Context, id uint64) (model.Room, error)
	GetByNumber(ctx context.Context, number int) (model.Room, error)
	List(ctx context.Context) ([]model.Room, error)
	ListByOccupant(ctx context.Context, userID uint64) ([]model.Room, error)
	Insert(ctx context.Context, r *model.Room) error
	// Apply performs one atomic, self-guarding mutation and returns the
	// resulting row.
	Apply(ctx context.Context, id uint64, m Mutation) (model.Room, error)
}

// Users stores accounts.
type Users interface {
	Get(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Create(ctx context.Context, u *model.User) error
	Update(ctx context.Context, u model.User) error
	Delete(ctx context.Context, id uint64) error
}

// AuditLog is the append-only manager_actions table.
type AuditLog interface {
	Append(ctx context.Context, e *model.AuditEntry) error
	ListRecent(ctx context.Context, limit int) ([]model.AuditEntry, error)
}

// Tx groups the stores visible inside one transaction.
type Tx interface {
	Rooms() Rooms
	Users() Users
}

// Store is the whole persistence layer.  Rooms and Users on the Store
// itself read outside of any transaction.
type Store interface {
	Tx
	Audit() AuditLog
	// Atomic runs fn inside one transaction.  A non-nil error from fn,
	// or a failed commit, rolls every change back.
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}
