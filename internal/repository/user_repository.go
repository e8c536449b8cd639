package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/courtshare/courtshare/internal/model"
)

// UserRepo reads and provisions users.  Users are keyed by their
// lower-cased email address.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

const userColumns = "id,email,name,image,created_at"

func scanUser(row rowScanner) (model.User, error) {
	var (
		u           model.User
		name, image sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &name, &image, dbTime{&u.CreatedAt}); err != nil {
		return model.User{}, err
	}
	u.Name = nullString(name)
	u.Image = nullString(image)
	return u, nil
}

func getUser(ctx context.Context, q querier, where string, arg any) (model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", arg))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by primary key.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return getUser(ctx, r.DB, "id=?", id)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return getUser(ctx, r.DB, "email=?", NormalizeEmail(email))
}

// GetByIDTx is GetByID inside tx.
func (r *UserRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.User, error) {
	return getUser(ctx, tx, "id=?", id)
}

// FindOrCreateByEmailTx returns the user with the given email, inserting a
// bare row first if none exists.  It is the single place where users are
// auto-provisioned.  A concurrent insert of the same email is resolved by
// re-reading after the unique violation.
func (r *UserRepo) FindOrCreateByEmailTx(ctx context.Context, tx *sql.Tx, email string) (model.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return model.User{}, ErrInvalid
	}
	u, err := getUser(ctx, tx, "email=?", email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.User{}, err
	}
	_, err = tx.ExecContext(ctx, "INSERT INTO users (email) VALUES (?)", email)
	if err != nil && !isUniqueViolation(err) {
		return model.User{}, err
	}
	return getUser(ctx, tx, "email=?", email)
}

// FindOrCreateByEmail is FindOrCreateByEmailTx in its own transaction.
func (r *UserRepo) FindOrCreateByEmail(ctx context.Context, email string) (model.User, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, err
	}
	u, err := r.FindOrCreateByEmailTx(ctx, tx, email)
	if err != nil {
		_ = tx.Rollback()
		return model.User{}, err
	}
	return u, tx.Commit()
}

// UpdateProfile sets display name and image; nil leaves a column unchanged.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, name, image *string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=COALESCE(?,name), image=COALESCE(?,image) WHERE id=?",
		name, image, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 when values are unchanged; confirm the row exists.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
