package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/courtshare/courtshare/internal/clock"
	"github.com/courtshare/courtshare/internal/model"
	"github.com/courtshare/courtshare/internal/queue"
	"github.com/courtshare/courtshare/internal/repository"
)

// Store bundles the repositories over one database handle.  It is built
// once by the process entry point and shared by every service.
type Store struct {
	DB           *sql.DB
	Users        *repository.UserRepo
	Courts       *repository.CourtRepo
	Reservations *repository.ReservationRepo
	Participants *repository.ParticipantRepo
	Invites      *repository.InviteRepo
	Messages     *repository.MessageRepo
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		DB:           db,
		Users:        repository.NewUserRepo(db),
		Courts:       repository.NewCourtRepo(db),
		Reservations: repository.NewReservationRepo(db),
		Participants: repository.NewParticipantRepo(db),
		Invites:      repository.NewInviteRepo(db),
		Messages:     repository.NewMessageRepo(db),
	}
}

// Deps are shared by all services.  Clock and Events default to the system
// clock and a no-op publisher when nil.
type Deps struct {
	Store    *Store
	Settings Settings
	Clock    clock.Clock
	Events   queue.Publisher
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	if d.Events == nil {
		d.Events = queue.NopPublisher{}
	}
	return d
}

func (d Deps) now() time.Time { return d.Clock.Now().UTC() }

// publish sends ev after a commit.  Failures are logged; the state change
// already happened.
func (d Deps) publish(ctx context.Context, ev queue.Event) {
	if err := d.Events.Publish(ctx, ev); err != nil {
		log.Printf("events: publish %s for reservation %d failed: %v", ev.Type, ev.ReservationID, err)
	}
}

// Caller is the verified identity supplied by the session layer.
type Caller struct {
	UserID uint64
	Email  string
}

// Authenticated reports whether the caller carries an identity.
func (c Caller) Authenticated() bool { return c.UserID != 0 }

func requireCaller(c Caller) error {
	if !c.Authenticated() {
		return ErrUnauthorized
	}
	return nil
}

// role is the caller's relationship to a reservation.
type role int

const (
	roleNone role = iota
	roleParticipant
	roleOwner
)

func (d Deps) roleOf(ctx context.Context, res model.Reservation, userID uint64) (role, error) {
	if userID == 0 {
		return roleNone, nil
	}
	if res.UserID == userID {
		return roleOwner, nil
	}
	_, err := d.Store.Participants.Get(ctx, res.ID, userID)
	switch {
	case err == nil:
		return roleParticipant, nil
	case errors.Is(err, repository.ErrNotFound):
		return roleNone, nil
	}
	return roleNone, err
}

// loadOwned returns the reservation when caller owns it.
func (d Deps) loadOwned(ctx context.Context, caller Caller, id uint64) (model.Reservation, error) {
	if err := requireCaller(caller); err != nil {
		return model.Reservation{}, err
	}
	res, err := d.Store.Reservations.GetByID(ctx, id)
	if err != nil {
		return model.Reservation{}, storageErr(err, "reservation")
	}
	if res.UserID != caller.UserID {
		return model.Reservation{}, forbidden("only the reservation owner can do this")
	}
	return res, nil
}

// loadMember returns the reservation when caller is its owner or a
// participant.
func (d Deps) loadMember(ctx context.Context, caller Caller, id uint64) (model.Reservation, role, error) {
	if err := requireCaller(caller); err != nil {
		return model.Reservation{}, roleNone, err
	}
	res, err := d.Store.Reservations.GetByID(ctx, id)
	if err != nil {
		return model.Reservation{}, roleNone, storageErr(err, "reservation")
	}
	r, err := d.roleOf(ctx, res, caller.UserID)
	if err != nil {
		return model.Reservation{}, roleNone, err
	}
	if r == roleNone {
		return model.Reservation{}, roleNone, forbidden("not a member of this reservation")
	}
	return res, r, nil
}

// Services is the full set the HTTP layer depends on.
type Services struct {
	Availability *AvailabilityService
	Reservations *ReservationService
	Access       *AccessService
	Participants *ParticipantService
	Messages     *MessageService
}

// New wires every service over the same dependencies.
func New(d Deps) *Services {
	return &Services{
		Availability: NewAvailabilityService(d),
		Reservations: NewReservationService(d),
		Access:       NewAccessService(d),
		Participants: NewParticipantService(d),
		Messages:     NewMessageService(d),
	}
}
