package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/courtshare/courtshare/internal/model"
)

// ReservationRepo provides persistence for reservations.  All timestamp
// fields are stored in UTC.  Booking writes (create, reschedule) must run
// inside a transaction that first holds the court's booking lock
// (CourtRepo.LockForBookingTx) and then re-checks overlaps with
// OverlapsTx before writing.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, user_id, court_id, name, description, start_time, end_time, short_url,
    password, password_required, payment_required, payment_info, created_at, updated_at`

func scanReservation(row rowScanner) (model.Reservation, error) {
    var (
        r                       model.Reservation
        desc, password, payInfo sql.NullString
    )
    err := row.Scan(
        &r.ID, &r.UserID, &r.CourtID, &r.Name, &desc,
        dbTime{&r.StartTime}, dbTime{&r.EndTime}, &r.ShortURL,
        &password, &r.PasswordRequired, &r.PaymentRequired, &payInfo,
        dbTime{&r.CreatedAt}, dbTime{&r.UpdatedAt},
    )
    if err != nil {
        return model.Reservation{}, err
    }
    r.Description = nullString(desc)
    r.Password = nullString(password)
    r.PaymentInfo = nullString(payInfo)
    return r, nil
}

func getReservation(ctx context.Context, q querier, where string, arg any) (model.Reservation, error) {
    r, err := scanReservation(q.QueryRowContext(ctx,
        "SELECT "+reservationColumns+" FROM reservations WHERE "+where+" LIMIT 1", arg))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Reservation{}, ErrNotFound
    }
    return r, err
}

// CreateTx inserts a reservation within tx and populates ID and timestamps.
// A duplicate short_url surfaces as ErrConflict so the caller can retry
// with a fresh one.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
    now := toDB(time.Now())
    const q = `INSERT INTO reservations (user_id, court_id, name, description, start_time, end_time, short_url,
        password, password_required, payment_required, payment_info, created_at, updated_at)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`
    result, err := tx.ExecContext(ctx, q,
        res.UserID, res.CourtID, res.Name, res.Description,
        toDB(res.StartTime), toDB(res.EndTime), res.ShortURL,
        res.Password, res.PasswordRequired, res.PaymentRequired, res.PaymentInfo,
        now, now)
    if err != nil {
        return translate(err)
    }
    id, err := lastID(result)
    if err != nil {
        return err
    }
    // Query back the full row to populate timestamps
    saved, err := getReservation(ctx, tx, "id=?", id)
    if err != nil {
        return err
    }
    *res = saved
    return nil
}

// GetByID returns the reservation or ErrNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
    return getReservation(ctx, r.db, "id=?", id)
}

// GetByIDTx is GetByID inside tx.
func (r *ReservationRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Reservation, error) {
    return getReservation(ctx, tx, "id=?", id)
}

// GetByShortURL resolves a reservation by its public short URL.
func (r *ReservationRepo) GetByShortURL(ctx context.Context, shortURL string) (model.Reservation, error) {
    return getReservation(ctx, r.db, "short_url=?", shortURL)
}

// ListForUser returns reservations the user owns or participates in,
// ordered by start time.
func (r *ReservationRepo) ListForUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
    q := "SELECT " + reservationColumns + ` FROM reservations
        WHERE user_id = ? OR id IN (SELECT reservation_id FROM participant_statuses WHERE user_id = ?)
        ORDER BY start_time, id`
    rows, err := r.db.QueryContext(ctx, q, userID, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Reservation
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, res)
    }
    return out, rows.Err()
}

// Busy is the span of an existing booking used for availability.
type Busy struct {
    ReservationID uint64
    Start, End    time.Time
}

func listBusy(ctx context.Context, q querier, courtID uint64, from, to time.Time, excludeID uint64) ([]Busy, error) {
    // Half-open overlap: [start,end) meets [from,to) unless one ends before the other starts.
    const sel = `SELECT id, start_time, end_time FROM reservations
        WHERE court_id = ? AND id <> ? AND NOT (end_time <= ? OR start_time >= ?)
        ORDER BY start_time`
    rows, err := q.QueryContext(ctx, sel, courtID, excludeID, toDB(from), toDB(to))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []Busy
    for rows.Next() {
        var b Busy
        if err := rows.Scan(&b.ReservationID, dbTime{&b.Start}, dbTime{&b.End}); err != nil {
            return nil, err
        }
        out = append(out, b)
    }
    return out, rows.Err()
}

// ListBusy returns bookings on courtID overlapping [from, to), skipping
// excludeID (0 excludes nothing).
func (r *ReservationRepo) ListBusy(ctx context.Context, courtID uint64, from, to time.Time, excludeID uint64) ([]Busy, error) {
    return listBusy(ctx, r.db, courtID, from, to, excludeID)
}

// OverlapsTx reports whether any booking other than excludeID overlaps
// [start, end) on the court.  Call after LockForBookingTx.
func (r *ReservationRepo) OverlapsTx(ctx context.Context, tx *sql.Tx, courtID uint64, start, end time.Time, excludeID uint64) (bool, error) {
    busy, err := listBusy(ctx, tx, courtID, start, end, excludeID)
    if err != nil {
        return false, err
    }
    return len(busy) > 0, nil
}

// UpdateDetails sets description and payment info.
func (r *ReservationRepo) UpdateDetails(ctx context.Context, id uint64, description, paymentInfo *string) error {
    res, err := r.db.ExecContext(ctx,
        "UPDATE reservations SET description=?, payment_info=?, updated_at=? WHERE id=?",
        description, paymentInfo, toDB(time.Now()), id)
    if err != nil {
        return translate(err)
    }
    return requireRow(ctx, r.db, res, id)
}

// UpdateTimesTx moves a reservation to [start, end).
func (r *ReservationRepo) UpdateTimesTx(ctx context.Context, tx *sql.Tx, id uint64, start, end time.Time) error {
    res, err := tx.ExecContext(ctx,
        "UPDATE reservations SET start_time=?, end_time=?, updated_at=? WHERE id=?",
        toDB(start), toDB(end), toDB(time.Now()), id)
    if err != nil {
        return translate(err)
    }
    return requireRow(ctx, tx, res, id)
}

// DeleteCascadeTx removes the reservation's messages, invites and
// participant rows and then the reservation itself.  The foreign keys
// cascade as well; the explicit deletes keep behaviour identical on
// engines where cascades are disabled.
func (r *ReservationRepo) DeleteCascadeTx(ctx context.Context, tx *sql.Tx, id uint64) error {
    for _, q := range []string{
        "DELETE FROM messages WHERE reservation_id=?",
        "DELETE FROM invites WHERE reservation_id=?",
        "DELETE FROM participant_statuses WHERE reservation_id=?",
    } {
        if _, err := tx.ExecContext(ctx, q, id); err != nil {
            return err
        }
    }
    res, err := tx.ExecContext(ctx, "DELETE FROM reservations WHERE id=?", id)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err != nil {
        return err
    } else if n == 0 {
        return ErrNotFound
    }
    return nil
}

// requireRow maps zero affected rows to ErrNotFound.  MySQL counts only
// changed rows, so a zero count is confirmed against the table first.
func requireRow(ctx context.Context, q querier, res sql.Result, id uint64) error {
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n > 0 {
        return nil
    }
    var one int
    err = q.QueryRowContext(ctx, "SELECT 1 FROM reservations WHERE id=?", id).Scan(&one)
    if errors.Is(err, sql.ErrNoRows) {
        return ErrNotFound
    }
    return err
}
