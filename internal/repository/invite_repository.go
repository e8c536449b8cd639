package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/courtshare/courtshare/internal/model"
)

// InviteRepo persists single-use invite tokens.
type InviteRepo struct{ DB *sql.DB }

func NewInviteRepo(db *sql.DB) *InviteRepo { return &InviteRepo{DB: db} }

const inviteColumns = "id,token,email,reservation_id,expires_at,used_at,created_at"

func scanInvite(row rowScanner) (model.Invite, error) {
	var inv model.Invite
	err := row.Scan(&inv.ID, &inv.Token, &inv.Email, &inv.ReservationID,
		dbTime{&inv.ExpiresAt}, nullDBTime{&inv.UsedAt}, dbTime{&inv.CreatedAt})
	return inv, err
}

// Create stores an invite and sets its ID.  A token collision is ErrConflict.
func (r *InviteRepo) Create(ctx context.Context, inv *model.Invite) error {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO invites (token, email, reservation_id, expires_at, created_at) VALUES (?,?,?,?,?)",
		inv.Token, NormalizeEmail(inv.Email), inv.ReservationID, toDB(inv.ExpiresAt), toDB(now))
	if err != nil {
		return translate(err)
	}
	id, err := lastID(res)
	if err != nil {
		return err
	}
	inv.ID, inv.CreatedAt = id, now
	inv.Email = NormalizeEmail(inv.Email)
	inv.ExpiresAt = inv.ExpiresAt.UTC().Truncate(time.Second)
	return nil
}

func getInvite(ctx context.Context, q querier, token string) (model.Invite, error) {
	inv, err := scanInvite(q.QueryRowContext(ctx,
		"SELECT "+inviteColumns+" FROM invites WHERE token=? LIMIT 1", token))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Invite{}, ErrNotFound
	}
	return inv, err
}

// GetByToken returns the invite or ErrNotFound.
func (r *InviteRepo) GetByToken(ctx context.Context, token string) (model.Invite, error) {
	return getInvite(ctx, r.DB, token)
}

// GetByTokenTx is GetByToken inside tx.
func (r *InviteRepo) GetByTokenTx(ctx context.Context, tx *sql.Tx, token string) (model.Invite, error) {
	return getInvite(ctx, tx, token)
}

// MarkUsedTx stamps used_at on an unused invite.  It returns ErrConflict
// when the invite was already used, so two racing accepts cannot both
// stamp it.
func (r *InviteRepo) MarkUsedTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE invites SET used_at=? WHERE id=? AND used_at IS NULL", toDB(at), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}
