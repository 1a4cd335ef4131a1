// Package repository holds the raw SQL data access layer.  Repositories
// are thin structs wrapping *sql.DB; methods suffixed Tx take an optional
// transaction and fall back to the pool when it is nil.
//
// The sentinel errors below let higher layers tell failure scenarios apart
// without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.  Handlers
// translate it into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller may not touch the row (a
// retailer reading another group's pass).  Handlers translate it into 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot proceed because of the
// current state of the row.  Handlers translate it into 409.
var ErrConflict = errors.New("conflict")

// ErrProtected is returned when a delete is refused because other rows
// still reference the target (a pricing option used by passes).
var ErrProtected = errors.New("referenced by other records")

// ErrDuplicate is returned when a UNIQUE constraint rejects an insert.
var ErrDuplicate = errors.New("duplicate")

// MySQL server error numbers we react to.
const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
)

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// IsDuplicateKey reports whether err is a UNIQUE violation.
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicate) || mysqlErrNumber(err) == mysqlDuplicateEntry
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch mysqlErrNumber(err) {
	case mysqlDuplicateEntry:
		return errors.Join(ErrDuplicate, err)
	case mysqlRowIsReferenced:
		return errors.Join(ErrProtected, err)
	}
	return err
}
