// Package memory is an in-process implementation of store.Store.  All
// operations are serialized behind one mutex and transactions work on a
// private copy that replaces the shared state on commit, so it gives the
// same isolation the MySQL store gets from row locks.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/store"
)

type state struct {
	rooms    map[uint64]model.Room
	users    map[uint64]model.User
	nextRoom uint64
	nextUser uint64
}

func (s *state) clone() *state {
	c := &state{
		rooms:    make(map[uint64]model.Room, len(s.rooms)),
		users:    make(map[uint64]model.User, len(s.users)),
		nextRoom: s.nextRoom,
		nextUser: s.nextUser,
	}
	for id, r := range s.rooms {
		c.rooms[id] = cloneRoom(r)
	}
	for id, u := range s.users {
		c.users[id] = u
	}
	return c
}

// Store keeps rooms, users and audit entries in memory.
type Store struct {
	mu    sync.Mutex
	st    *state
	audit *AuditLog
	now   func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		st: &state{
			rooms:    make(map[uint64]model.Room),
			users:    make(map[uint64]model.User),
			nextRoom: 1,
			nextUser: 1,
		},
		audit: NewAuditLog(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

var _ store.Store = (*Store)(nil)

// Rooms returns the room store outside of any transaction.
func (s *Store) Rooms() store.Rooms { return &rooms{run: s.exec, now: s.now} }

// Users returns the user store outside of any transaction.
func (s *Store) Users() store.Users { return &users{run: s.exec, now: s.now} }

// Audit returns the append-only audit log.
func (s *Store) Audit() store.AuditLog { return s.audit }

// Atomic runs fn against a private copy of the state and publishes the
// copy only when fn succeeds.
func (s *Store) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	run := func(f func(*state) error) error { return f(work) }
	if err := fn(&tx{rooms: &rooms{run: run, now: s.now}, users: &users{run: run, now: s.now}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) exec(f func(*state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return f(s.st)
}

type tx struct {
	rooms *rooms
	users *users
}

func (t *tx) Rooms() store.Rooms { return t.rooms }
func (t *tx) Users() store.Users { return t.users }

type rooms struct {
	run func(func(*state) error) error
	now func() time.Time
}

func (r *rooms) Get(_ context.Context, id uint64) (model.Room, error) {
	var out model.Room
	err := r.run(func(st *state) error {
		room, ok := st.rooms[id]
		if !ok {
			return store.ErrNotFound
		}
		out = cloneRoom(room)
		return nil
	})
	return out, err
}

func (r *rooms) GetByNumber(_ context.Context, number int) (model.Room, error) {
	var out model.Room
	err := r.run(func(st *state) error {
		for _, room := range st.rooms {
			if room.Number == number {
				out = cloneRoom(room)
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (r *rooms) List(_ context.Context) ([]model.Room, error) {
	var out []model.Room
	err := r.run(func(st *state) error {
		out = sortedRooms(st, func(model.Room) bool { return true })
		return nil
	})
	return out, err
}

func (r *rooms) ListByOccupant(_ context.Context, userID uint64) ([]model.Room, error) {
	var out []model.Room
	err := r.run(func(st *state) error {
		out = sortedRooms(st, func(room model.Room) bool { return room.HeldBy(userID) })
		return nil
	})
	return out, err
}

func (r *rooms) Insert(_ context.Context, room *model.Room) error {
	return r.run(func(st *state) error {
		for _, existing := range st.rooms {
			if existing.Number == room.Number {
				return store.ErrDuplicateRoomNumber
			}
		}
		room.ID = st.nextRoom
		st.nextRoom++
		if room.Status == "" {
			room.Status = model.RoomVacant
		}
		if room.PaymentStatus == "" {
			room.PaymentStatus = model.PaymentPending
		}
		room.UpdatedAt = r.now()
		st.rooms[room.ID] = cloneRoom(*room)
		return nil
	})
}

func (r *rooms) Apply(_ context.Context, id uint64, m store.Mutation) (model.Room, error) {
	var out model.Room
	err := r.run(func(st *state) error {
		room, ok := st.rooms[id]
		if !ok {
			return store.ErrNotFound
		}
		if m.Kind == store.MutOccupy {
			if _, ok := st.users[m.Occupant]; !ok {
				return store.ErrNotFound
			}
		}
		next, err := m.ApplyTo(room)
		if err != nil {
			return err
		}
		next.UpdatedAt = r.now()
		st.rooms[id] = next
		out = cloneRoom(next)
		return nil
	})
	return out, err
}

type users struct {
	run func(func(*state) error) error
	now func() time.Time
}

func (u *users) Get(_ context.Context, id uint64) (model.User, error) {
	var out model.User
	err := u.run(func(st *state) error {
		usr, ok := st.users[id]
		if !ok {
			return store.ErrNotFound
		}
		out = usr
		return nil
	})
	return out, err
}

func (u *users) GetByEmail(_ context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var out model.User
	err := u.run(func(st *state) error {
		for _, usr := range st.users {
			if usr.Email == email {
				out = usr
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (u *users) List(_ context.Context) ([]model.User, error) {
	var out []model.User
	err := u.run(func(st *state) error {
		out = make([]model.User, 0, len(st.users))
		for _, usr := range st.users {
			out = append(out, usr)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (u *users) Create(_ context.Context, usr *model.User) error {
	usr.Email = strings.ToLower(strings.TrimSpace(usr.Email))
	return u.run(func(st *state) error {
		for _, existing := range st.users {
			if existing.Email == usr.Email {
				return store.ErrEmailExists
			}
		}
		usr.ID = st.nextUser
		st.nextUser++
		usr.CreatedAt = u.now()
		usr.UpdatedAt = usr.CreatedAt
		st.users[usr.ID] = *usr
		return nil
	})
}

func (u *users) Update(_ context.Context, usr model.User) error {
	usr.Email = strings.ToLower(strings.TrimSpace(usr.Email))
	return u.run(func(st *state) error {
		old, ok := st.users[usr.ID]
		if !ok {
			return store.ErrNotFound
		}
		for id, existing := range st.users {
			if id != usr.ID && existing.Email == usr.Email {
				return store.ErrEmailExists
			}
		}
		usr.CreatedAt = old.CreatedAt
		usr.UpdatedAt = u.now()
		st.users[usr.ID] = usr
		return nil
	})
}

// Delete mirrors the ON DELETE RESTRICT foreign key on rooms.booked_by:
// a user still holding a room cannot be removed.
func (u *users) Delete(_ context.Context, id uint64) error {
	return u.run(func(st *state) error {
		if _, ok := st.users[id]; !ok {
			return store.ErrNotFound
		}
		for _, room := range st.rooms {
			if room.HeldBy(id) {
				return store.ErrConflict
			}
		}
		delete(st.users, id)
		return nil
	})
}

func sortedRooms(st *state, keep func(model.Room) bool) []model.Room {
	out := make([]model.Room, 0, len(st.rooms))
	for _, room := range st.rooms {
		if keep(room) {
			out = append(out, cloneRoom(room))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func cloneRoom(r model.Room) model.Room {
	if r.Occupant != nil {
		v := *r.Occupant
		r.Occupant = &v
	}
	if r.Stay != nil {
		v := *r.Stay
		r.Stay = &v
	}
	return r
}
