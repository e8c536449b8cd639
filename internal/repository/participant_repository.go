package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/courtshare/courtshare/internal/model"
)

// ParticipantRepo manages participant_statuses rows.  Each (user,
// reservation) pair is unique; a second insert yields ErrConflict.
type ParticipantRepo struct{ DB *sql.DB }

func NewParticipantRepo(db *sql.DB) *ParticipantRepo { return &ParticipantRepo{DB: db} }

// ParticipantDetail is a participant row joined with its user.
type ParticipantDetail struct {
	UserID  uint64
	Email   string
	Name    *string
	Image   *string
	IsGoing bool
	HasPaid bool
}

// Flag selects one of the two independent participant booleans.
type Flag int

const (
	FlagGoing Flag = iota + 1
	FlagPaid
)

func (f Flag) column() (string, error) {
	switch f {
	case FlagGoing:
		return "is_going", nil
	case FlagPaid:
		return "has_paid", nil
	}
	return "", fmt.Errorf("unknown participant flag %d", f)
}

const participantColumns = "id,user_id,reservation_id,is_going,has_paid,created_at,updated_at"

func scanParticipant(row rowScanner) (model.ParticipantStatus, error) {
	var p model.ParticipantStatus
	err := row.Scan(&p.ID, &p.UserID, &p.ReservationID, &p.IsGoing, &p.HasPaid,
		dbTime{&p.CreatedAt}, dbTime{&p.UpdatedAt})
	return p, err
}

func insertParticipant(ctx context.Context, q querier, p *model.ParticipantStatus) error {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := q.ExecContext(ctx,
		"INSERT INTO participant_statuses (user_id, reservation_id, is_going, has_paid, created_at, updated_at) VALUES (?,?,?,?,?,?)",
		p.UserID, p.ReservationID, p.IsGoing, p.HasPaid, toDB(now), toDB(now))
	if err != nil {
		return translate(err)
	}
	id, err := lastID(res)
	if err != nil {
		return err
	}
	p.ID, p.CreatedAt, p.UpdatedAt = id, now, now
	return nil
}

// Create inserts p and sets its ID.
func (r *ParticipantRepo) Create(ctx context.Context, p *model.ParticipantStatus) error {
	return insertParticipant(ctx, r.DB, p)
}

// CreateTx is Create inside tx.
func (r *ParticipantRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.ParticipantStatus) error {
	return insertParticipant(ctx, tx, p)
}

func getParticipant(ctx context.Context, q querier, reservationID, userID uint64) (model.ParticipantStatus, error) {
	p, err := scanParticipant(q.QueryRowContext(ctx,
		"SELECT "+participantColumns+" FROM participant_statuses WHERE reservation_id=? AND user_id=? LIMIT 1",
		reservationID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ParticipantStatus{}, ErrNotFound
	}
	return p, err
}

// Get returns the participant row or ErrNotFound.
func (r *ParticipantRepo) Get(ctx context.Context, reservationID, userID uint64) (model.ParticipantStatus, error) {
	return getParticipant(ctx, r.DB, reservationID, userID)
}

// GetTx is Get inside tx.
func (r *ParticipantRepo) GetTx(ctx context.Context, tx *sql.Tx, reservationID, userID uint64) (model.ParticipantStatus, error) {
	return getParticipant(ctx, tx, reservationID, userID)
}

// ExistsByEmailTx reports whether a user with email already participates.
func (r *ParticipantRepo) ExistsByEmailTx(ctx context.Context, tx *sql.Tx, reservationID uint64, email string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM participant_statuses ps
		JOIN users u ON u.id = ps.user_id
		WHERE ps.reservation_id=? AND u.email=?`, reservationID, NormalizeEmail(email)).Scan(&n)
	return n > 0, err
}

// ListDetails returns the reservation's participants with user fields, in
// join order.
func (r *ParticipantRepo) ListDetails(ctx context.Context, reservationID uint64) ([]ParticipantDetail, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT u.id, u.email, u.name, u.image, ps.is_going, ps.has_paid
		FROM participant_statuses ps JOIN users u ON u.id = ps.user_id
		WHERE ps.reservation_id=? ORDER BY ps.created_at, ps.id`, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ParticipantDetail
	for rows.Next() {
		var (
			d           ParticipantDetail
			name, image sql.NullString
		)
		if err := rows.Scan(&d.UserID, &d.Email, &name, &image, &d.IsGoing, &d.HasPaid); err != nil {
			return nil, err
		}
		d.Name, d.Image = nullString(name), nullString(image)
		out = append(out, d)
	}
	return out, rows.Err()
}

// SetFlag writes one boolean on one participant row as a single statement.
// Returns ErrNotFound when the user is not a participant.
func (r *ParticipantRepo) SetFlag(ctx context.Context, reservationID, userID uint64, flag Flag, value bool) (model.ParticipantStatus, error) {
	col, err := flag.column()
	if err != nil {
		return model.ParticipantStatus{}, err
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE participant_statuses SET "+col+"=?, updated_at=? WHERE reservation_id=? AND user_id=?",
		value, toDB(time.Now()), reservationID, userID)
	if err != nil {
		return model.ParticipantStatus{}, err
	}
	return getParticipant(ctx, r.DB, reservationID, userID)
}

// Delete removes the participant row.
func (r *ParticipantRepo) Delete(ctx context.Context, reservationID, userID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM participant_statuses WHERE reservation_id=? AND user_id=?", reservationID, userID)
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
