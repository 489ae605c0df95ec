package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hotel-reservation/internal/store"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store wires the MySQL repositories into a store.Store.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store backed by db.  The DSN must enable parseTime
// and clientFoundRows, as database.Open does.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

var _ store.Store = (*Store)(nil)

func (s *Store) Rooms() store.Rooms { return &RoomRepo{q: s.db} }
func (s *Store) Users() store.Users { return &UserRepo{q: s.db} }
func (s *Store) Audit() store.AuditLog { return NewAuditRepo(s.db) }

// Atomic runs fn in a READ COMMITTED transaction.  Row reads inside fn
// take exclusive locks (SELECT ... FOR UPDATE) so concurrent transitions
// on the same room serialize; the loser observes the committed state.
func (s *Store) Atomic(ctx context.Context, fn func(tx store.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&txStore{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return translate(err, nil)
	}
	committed = true
	return nil
}

type txStore struct{ tx *sql.Tx }

func (t *txStore) Rooms() store.Rooms { return &RoomRepo{q: t.tx, lock: true} }
func (t *txStore) Users() store.Users { return &UserRepo{q: t.tx, lock: true} }
