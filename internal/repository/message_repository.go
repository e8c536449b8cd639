package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/courtshare/courtshare/internal/model"
)

// MessageRepo stores append-only reservation chat messages.
type MessageRepo struct{ DB *sql.DB }

func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{DB: db} }

// MessageDetail is a message with its author's display fields.
type MessageDetail struct {
	model.Message
	AuthorEmail string
	AuthorName  *string
	AuthorImage *string
}

// Create appends m and sets ID and CreatedAt.
func (r *MessageRepo) Create(ctx context.Context, m *model.Message) error {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO messages (reservation_id, user_id, content, created_at) VALUES (?,?,?,?)",
		m.ReservationID, m.UserID, m.Content, toDB(now))
	if err != nil {
		return translate(err)
	}
	id, err := lastID(res)
	if err != nil {
		return err
	}
	m.ID, m.CreatedAt = id, now
	return nil
}

// ListByReservation returns messages oldest first.
func (r *MessageRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]MessageDetail, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT m.id, m.reservation_id, m.user_id, m.content, m.created_at,
		u.email, u.name, u.image
		FROM messages m JOIN users u ON u.id = m.user_id
		WHERE m.reservation_id=? ORDER BY m.created_at, m.id`, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MessageDetail
	for rows.Next() {
		var (
			d           MessageDetail
			name, image sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.ReservationID, &d.UserID, &d.Content, dbTime{&d.CreatedAt},
			&d.AuthorEmail, &name, &image); err != nil {
			return nil, err
		}
		d.AuthorName, d.AuthorImage = nullString(name), nullString(image)
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountByReservation returns the number of messages on a reservation.
func (r *MessageRepo) CountByReservation(ctx context.Context, reservationID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages WHERE reservation_id=?", reservationID).Scan(&n)
	return n, err
}
