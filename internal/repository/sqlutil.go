package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// querier is satisfied by both *sql.DB and *sql.Tx so read helpers can run
// inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Timestamps are written as "YYYY-MM-DD HH:MM:SS" UTC so that MySQL DATETIME
// and SQLite TEXT columns compare the same way.
const dbTimeLayout = "2006-01-02 15:04:05"

func toDB(t time.Time) string { return t.UTC().Format(dbTimeLayout) }

var readLayouts = []string{
	dbTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseDBTime(s string) (time.Time, error) {
	for _, layout := range readLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// dbTime scans a timestamp column regardless of whether the driver returns
// time.Time (MySQL parseTime) or text (SQLite).
type dbTime struct{ dst *time.Time }

func (d dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d.dst = v.UTC()
		return nil
	case string:
		t, err := parseDBTime(v)
		if err != nil {
			return err
		}
		*d.dst = t
		return nil
	case []byte:
		t, err := parseDBTime(string(v))
		if err != nil {
			return err
		}
		*d.dst = t
		return nil
	}
	return fmt.Errorf("cannot scan %T into timestamp", src)
}

// nullDBTime is dbTime for nullable columns.
type nullDBTime struct{ dst **time.Time }

func (n nullDBTime) Scan(src any) error {
	if src == nil {
		*n.dst = nil
		return nil
	}
	var t time.Time
	if err := (dbTime{dst: &t}).Scan(src); err != nil {
		return err
	}
	*n.dst = &t
	return nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func lastID(res sql.Result) (uint64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}
