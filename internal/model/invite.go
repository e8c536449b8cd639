package model

import "time"

// Invite is a single-use, time-limited credential letting one email join
// one reservation.  It is unusable once UsedAt is set or ExpiresAt passes.
type Invite struct {
    ID            uint64     // invites.id
    Token         string     // invites.token
    Email         string     // invites.email
    ReservationID uint64     // invites.reservation_id
    ExpiresAt     time.Time  // invites.expires_at
    UsedAt        *time.Time // invites.used_at (nullable)
    CreatedAt     time.Time  // invites.created_at
}

// Expired reports whether now is past ExpiresAt.
func (i Invite) Expired(now time.Time) bool { return now.After(i.ExpiresAt) }
