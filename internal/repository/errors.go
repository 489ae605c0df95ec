// Package repository is the MySQL implementation of store.Store.  Driver
// errors are translated into the store sentinels here so that handlers
// and the reservation engine never see a *mysql.MySQLError.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/hotel-reservation/internal/store"
)

// MySQL server error numbers the repositories react to.
const (
	errLockWaitTimeout  = 1205
	errDeadlock         = 1213
	errDuplicateEntry   = 1062
	errRowIsReferenced  = 1451
	errNoReferencedRow  = 1452
	errRowIsReferenced2 = 1217
)

// translate maps driver errors to store sentinels.  dup is returned for
// unique key violations and may be nil to fall back to ErrConflict.
func translate(err error, dup error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case errDuplicateEntry:
		if dup != nil {
			return dup
		}
		return store.ErrConflict
	case errDeadlock, errLockWaitTimeout, errRowIsReferenced, errRowIsReferenced2:
		return store.ErrConflict
	case errNoReferencedRow:
		return store.ErrNotFound
	}
	return err
}
