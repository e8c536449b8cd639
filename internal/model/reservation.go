package model

import "time"

// Reservation is an owned block of court time.  StartTime and EndTime are
// UTC instants forming the half-open span [StartTime, EndTime).
//
// Fields:
//  ID               – primary key identifier.
//  UserID           – owner of the reservation.
//  CourtID          – court being reserved.
//  Name             – display name derived at creation.
//  Description      – optional free text.
//  StartTime        – UTC start instant.
//  EndTime          – UTC end instant (strictly after StartTime).
//  ShortURL         – permanent public identifier for sharing.
//  Password         – optional plaintext shared secret.
//  PasswordRequired – whether joining via the short URL needs Password.
//  PaymentRequired  – whether participants are expected to pay.
//  PaymentInfo      – how to pay; required when PaymentRequired.
type Reservation struct {
    ID               uint64     // reservations.id
    UserID           uint64     // reservations.user_id
    CourtID          uint64     // reservations.court_id
    Name             string     // reservations.name
    Description      *string    // reservations.description (nullable)
    StartTime        time.Time  // reservations.start_time
    EndTime          time.Time  // reservations.end_time
    ShortURL         string     // reservations.short_url
    Password         *string    // reservations.password (nullable)
    PasswordRequired bool       // reservations.password_required
    PaymentRequired  bool       // reservations.payment_required
    PaymentInfo      *string    // reservations.payment_info (nullable)
    CreatedAt        time.Time  // reservations.created_at
    UpdatedAt        time.Time  // reservations.updated_at
}

// ParticipantStatus links a user to a reservation with independent
// attendance and payment flags.  (UserID, ReservationID) is unique.
type ParticipantStatus struct {
    ID            uint64    // participant_statuses.id
    UserID        uint64    // participant_statuses.user_id
    ReservationID uint64    // participant_statuses.reservation_id
    IsGoing       bool      // participant_statuses.is_going
    HasPaid       bool      // participant_statuses.has_paid
    CreatedAt     time.Time // participant_statuses.created_at
    UpdatedAt     time.Time // participant_statuses.updated_at
}
