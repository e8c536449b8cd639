package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/courtshare/courtshare/internal/model"
)

// CourtRepo exposes courts.  Courts are maintained outside this service;
// Create exists for seeding and tests.
type CourtRepo struct{ DB *sql.DB }

func NewCourtRepo(db *sql.DB) *CourtRepo { return &CourtRepo{DB: db} }

const courtColumns = "id,name,description,location,image_url,created_at"

func scanCourt(row rowScanner) (model.Court, error) {
	var (
		c                   model.Court
		desc, loc, imageURL sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &desc, &loc, &imageURL, dbTime{&c.CreatedAt}); err != nil {
		return model.Court{}, err
	}
	c.Description = nullString(desc)
	c.Location = nullString(loc)
	c.ImageURL = nullString(imageURL)
	return c, nil
}

// Create inserts a court and sets its ID.
func (r *CourtRepo) Create(ctx context.Context, c *model.Court) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO courts (name, description, location, image_url) VALUES (?,?,?,?)",
		c.Name, c.Description, c.Location, c.ImageURL)
	if err != nil {
		return translate(err)
	}
	id, err := lastID(res)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func getCourt(ctx context.Context, q querier, id uint64) (model.Court, error) {
	c, err := scanCourt(q.QueryRowContext(ctx,
		"SELECT "+courtColumns+" FROM courts WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Court{}, ErrNotFound
	}
	return c, err
}

// GetByID returns the court or ErrNotFound.
func (r *CourtRepo) GetByID(ctx context.Context, id uint64) (model.Court, error) {
	return getCourt(ctx, r.DB, id)
}

// GetByIDTx is GetByID inside tx.
func (r *CourtRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Court, error) {
	return getCourt(ctx, tx, id)
}

// List returns all courts ordered by name.
func (r *CourtRepo) List(ctx context.Context) ([]model.Court, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+courtColumns+" FROM courts ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Court
	for rows.Next() {
		c, err := scanCourt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LockForBookingTx takes the court's booking lock for the lifetime of tx by
// bumping booking_version.  Concurrent booking transactions on the same
// court queue behind the row lock (MySQL) or the database write lock
// (SQLite), so the overlap check that follows sees every committed booking.
// Returns ErrNotFound when the court does not exist.
func (r *CourtRepo) LockForBookingTx(ctx context.Context, tx *sql.Tx, courtID uint64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE courts SET booking_version = booking_version + 1 WHERE id=?", courtID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
