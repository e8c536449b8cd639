// Package queue defines domain event payloads exchanged over the message
// broker, the publisher used by the service layer, and the background
// consumer that records reservation activity.
package queue

import (
    "time"

    "github.com/google/uuid"
)

// EventType doubles as the AMQP routing key.
type EventType string

const (
    ReservationCreated     EventType = "reservation.created"
    ReservationRescheduled EventType = "reservation.rescheduled"
    ReservationDeleted     EventType = "reservation.deleted"
    InviteCreated          EventType = "invite.created"
    ParticipantJoined      EventType = "participant.joined"
    ParticipantLeft        EventType = "participant.left"
    ParticipantStatus      EventType = "participant.status_changed"
)

// Event is published after a state change commits.  It carries enough
// information for downstream consumers (activity log, the external mail
// sender for invites) to act without querying the primary database.
type Event struct {
    ID            uuid.UUID `json:"id"`
    Type          EventType `json:"type"`
    OccurredAt    string    `json:"occurred_at"` // RFC 3339, UTC
    ReservationID uint64    `json:"reservation_id"`
    ActorID       uint64    `json:"actor_id,omitempty"` // user who caused the change
    UserID        uint64    `json:"user_id,omitempty"`  // participant affected, when different
    CourtID       uint64    `json:"court_id,omitempty"`
    Name          string    `json:"name,omitempty"`
    StartsAt      string    `json:"starts_at,omitempty"`
    EndsAt        string    `json:"ends_at,omitempty"`
    Email         string    `json:"email,omitempty"`
    Link          string    `json:"link,omitempty"`
    Via           string    `json:"via,omitempty"`   // invite | short_url | owner
    Field         string    `json:"field,omitempty"` // payment | attendance
    Value         *bool     `json:"value,omitempty"`
}

// NewEvent stamps a fresh id and time on an event of the given type.
func NewEvent(t EventType, reservationID, actorID uint64, at time.Time) Event {
    return Event{
        ID:            uuid.New(),
        Type:          t,
        OccurredAt:    at.UTC().Format(time.RFC3339),
        ReservationID: reservationID,
        ActorID:       actorID,
    }
}

// WithSpan sets StartsAt/EndsAt from UTC instants.
func (e Event) WithSpan(start, end time.Time) Event {
    e.StartsAt = start.UTC().Format(time.RFC3339)
    e.EndsAt = end.UTC().Format(time.RFC3339)
    return e
}
