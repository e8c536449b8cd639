package model

import "time"

// Message is an append-only chat line on a reservation.
type Message struct {
    ID            uint64    // messages.id
    ReservationID uint64    // messages.reservation_id
    UserID        uint64    // messages.user_id
    Content       string    // messages.content
    CreatedAt     time.Time // messages.created_at
}
