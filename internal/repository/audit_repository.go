package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// AuditRepo appends to and reads the manager_actions table.  It always
// runs outside of the booking transaction.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// Append inserts e and fills in its id.
func (r *AuditRepo) Append(ctx context.Context, e *model.AuditEntry) error {
	const q = `INSERT INTO manager_actions (actor_id, action_type, target_room, target_user, description, created_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	var room sql.NullInt64
	if e.TargetRoom != nil {
		room = sql.NullInt64{Int64: int64(*e.TargetRoom), Valid: true}
	}
	var user sql.NullInt64
	if e.TargetUser != nil {
		user = sql.NullInt64{Int64: int64(*e.TargetUser), Valid: true}
	}
	res, err := r.db.ExecContext(ctx, q, e.ActorID, string(e.Action), room, user, e.Description, e.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// ListRecent returns up to limit entries, newest first.  A non-positive
// limit returns everything.
func (r *AuditRepo) ListRecent(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	q := `SELECT id, actor_id, action_type, target_room, target_user, description, created_at
	      FROM manager_actions ORDER BY id DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var (
			e    model.AuditEntry
			room sql.NullInt64
			user sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &room, &user, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		if room.Valid {
			n := int(room.Int64)
			e.TargetRoom = &n
		}
		if user.Valid {
			id := uint64(user.Int64)
			e.TargetUser = &id
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
