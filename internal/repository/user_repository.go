package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/store"
)

// UserRepo reads and writes the users table.
type UserRepo struct {
	q    querier
	lock bool
}

const userColumns = `id, name, email, password_hash, role, address, age, contact, created_at, updated_at`

func scanUser(s rowScanner) (model.User, error) {
	var u model.User
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&u.Address, &u.Age, &u.Contact, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *UserRepo) suffix() string {
	if r.lock {
		return " FOR UPDATE"
	}
	return ""
}

// Get fetches a user by id.
func (r *UserRepo) Get(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`+r.suffix(), id))
	return u, translate(err, nil)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`+r.suffix(), email))
	return u, translate(err, nil)
}

// List returns every user ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, translate(err, nil)
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Create inserts u and fills in its id and timestamps.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, role, address, age, contact) VALUES (?,?,?,?,?,?,?)`,
		u.Name, u.Email, u.PasswordHash, string(u.Role), u.Address, u.Age, u.Contact)
	if err != nil {
		return translate(err, store.ErrEmailExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.Get(ctx, uint64(id))
	if err != nil {
		return err
	}
	*u = created
	return nil
}

// Update overwrites the mutable columns of u.
func (r *UserRepo) Update(ctx context.Context, u model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, password_hash = ?, role = ?, address = ?, age = ?, contact = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		u.Name, u.Email, u.PasswordHash, string(u.Role), u.Address, u.Age, u.Contact, u.ID)
	if err != nil {
		return translate(err, store.ErrEmailExists)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Delete removes a user.  The rooms.booked_by foreign key is ON DELETE
// RESTRICT, so a user still holding a room yields ErrConflict.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return translate(err, nil)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}
