// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow the service layer to map
// storage outcomes onto the application's error taxonomy without seeing
// driver-specific errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write collides with an existing row, for
// example a duplicate participant or an overlapping booking.
var ErrConflict = errors.New("conflict")

// ErrInvalid is returned when the database rejects a row for violating a
// check, foreign key or not-null constraint.
var ErrInvalid = errors.New("invalid row")

// MySQL server error numbers.
const (
	mysqlDuplicateEntry  = 1062
	mysqlBadNull         = 1048
	mysqlNoReferencedRow = 1452
	mysqlCheckViolated   = 3819
)

func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return false
}

func isConstraintViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlBadNull, mysqlNoReferencedRow, mysqlCheckViolated:
			return true
		}
		return false
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}

// translate maps driver constraint failures to sentinels; other errors pass
// through unchanged.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return errors.Join(ErrConflict, err)
	case isConstraintViolation(err):
		return errors.Join(ErrInvalid, err)
	}
	return err
}
