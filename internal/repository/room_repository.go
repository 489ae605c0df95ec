package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/store"
)

// RoomRepo reads and mutates the rooms table.  When lock is set (inside
// Store.Atomic) every read takes a row lock held until commit.
type RoomRepo struct {
	q    querier
	lock bool
}

const roomColumns = `id, number, room_type, floor, status, booked_by, check_in, check_out,
	payment_status, payment_method, updated_at`

func (r *RoomRepo) suffix() string {
	if r.lock {
		return " FOR UPDATE"
	}
	return ""
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(s rowScanner) (model.Room, error) {
	var (
		room     model.Room
		bookedBy sql.NullInt64
		checkIn  sql.NullTime
		checkOut sql.NullTime
		method   sql.NullString
	)
	if err := s.Scan(&room.ID, &room.Number, &room.RoomType, &room.Floor, &room.Status,
		&bookedBy, &checkIn, &checkOut, &room.PaymentStatus, &method, &room.UpdatedAt); err != nil {
		return model.Room{}, err
	}
	if bookedBy.Valid {
		id := uint64(bookedBy.Int64)
		room.Occupant = &id
	}
	if checkIn.Valid && checkOut.Valid {
		room.Stay = &model.Stay{CheckIn: checkIn.Time.UTC(), CheckOut: checkOut.Time.UTC()}
	}
	room.PaymentMethod = method.String
	return room, nil
}

// Get returns the room with the given id.
func (r *RoomRepo) Get(ctx context.Context, id uint64) (model.Room, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`+r.suffix(), id)
	room, err := scanRoom(row)
	return room, translate(err, nil)
}

// GetByNumber returns the room with the given guest-facing number.
func (r *RoomRepo) GetByNumber(ctx context.Context, number int) (model.Room, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE number = ?`+r.suffix(), number)
	room, err := scanRoom(row)
	return room, translate(err, nil)
}

// List returns every room ordered by number.
func (r *RoomRepo) List(ctx context.Context) ([]model.Room, error) {
	return r.list(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY number`+r.suffix())
}

// ListByOccupant returns the rooms held by userID ordered by number.
func (r *RoomRepo) ListByOccupant(ctx context.Context, userID uint64) ([]model.Room, error) {
	return r.list(ctx, `SELECT `+roomColumns+` FROM rooms WHERE booked_by = ? ORDER BY number`+r.suffix(), userID)
}

func (r *RoomRepo) list(ctx context.Context, q string, args ...any) ([]model.Room, error) {
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, translate(err, nil)
	}
	defer rows.Close()
	var out []model.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, nil)
	}
	return out, nil
}

// Insert provisions a vacant room and fills in its id.
func (r *RoomRepo) Insert(ctx context.Context, room *model.Room) error {
	const q = `INSERT INTO rooms (number, room_type, floor, status, payment_status) VALUES (?, ?, ?, 'vacant', 'pending')`
	res, err := r.q.ExecContext(ctx, q, room.Number, room.RoomType, room.Floor)
	if err != nil {
		return translate(err, store.ErrDuplicateRoomNumber)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	inserted, err := r.Get(ctx, uint64(id))
	if err != nil {
		return err
	}
	*room = inserted
	return nil
}

// Apply runs m as a single conditional UPDATE.  The WHERE clause carries
// the same guard as store.Mutation.ApplyTo, so a row changed by another
// transaction since it was read is never overwritten.  Zero affected rows
// are resolved into ErrNotFound, ErrNotBooked or ErrConflict.
func (r *RoomRepo) Apply(ctx context.Context, id uint64, m store.Mutation) (model.Room, error) {
	var (
		q     string
		args  []any
		guard error
	)
	switch m.Kind {
	case store.MutOccupy:
		q = `UPDATE rooms
		     SET status = 'booked', booked_by = ?, check_in = ?, check_out = ?,
		         payment_status = 'pending', payment_method = NULL, updated_at = CURRENT_TIMESTAMP
		     WHERE id = ? AND (status = 'vacant' OR booked_by = ?)`
		args = []any{m.Occupant, m.Stay.CheckIn.UTC(), m.Stay.CheckOut.UTC(), id, m.Occupant}
		guard = store.ErrConflict
	case store.MutVacate:
		q = `UPDATE rooms
		     SET status = 'vacant', booked_by = NULL, check_in = NULL, check_out = NULL,
		         payment_status = 'pending', payment_method = NULL, updated_at = CURRENT_TIMESTAMP
		     WHERE id = ? AND status = 'booked'`
		args = []any{id}
		guard = store.ErrNotBooked
	case store.MutSetPayment:
		q = `UPDATE rooms SET payment_status = ?, payment_method = ?, updated_at = CURRENT_TIMESTAMP
		     WHERE id = ? AND status = 'booked'`
		args = []any{string(m.PaymentStatus), nullString(m.PaymentMethod), id}
		guard = store.ErrNotBooked
	case store.MutSetDetails:
		q = `UPDATE rooms SET room_type = ?, floor = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
		args = []any{m.RoomType, m.Floor, id}
		guard = store.ErrNotFound
	case store.MutSetStay:
		q = `UPDATE rooms SET check_in = ?, check_out = ?, updated_at = CURRENT_TIMESTAMP
		     WHERE id = ? AND status = 'booked'`
		args = []any{m.Stay.CheckIn.UTC(), m.Stay.CheckOut.UTC(), id}
		guard = store.ErrNotBooked
	default:
		return model.Room{}, fmt.Errorf("unknown %s", m.Kind)
	}

	res, err := r.q.ExecContext(ctx, q, args...)
	if err != nil {
		return model.Room{}, translate(err, nil)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return model.Room{}, err
		}
		return model.Room{}, guard
	}
	return r.Get(ctx, id)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
