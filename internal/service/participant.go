package service

import (
	"context"

	"github.com/courtshare/courtshare/internal/queue"
	"github.com/courtshare/courtshare/internal/repository"
)

// Status update types.
const (
	StatusPayment    = "payment"
	StatusAttendance = "attendance"
)

// ParticipantService tracks each participant's attendance and payment
// flags.  The two flags are independent; a write touches exactly one.
type ParticipantService struct{ Deps }

func NewParticipantService(d Deps) *ParticipantService {
	return &ParticipantService{Deps: d.withDefaults()}
}

// StatusInput sets one flag on one participant.
type StatusInput struct {
	UserID uint64
	Type   string // payment | attendance
	Value  bool
}

// UpdateStatus writes the flag.  Only the reservation owner or the
// participant themself may change a record.
func (s *ParticipantService) UpdateStatus(ctx context.Context, caller Caller, reservationID uint64, in StatusInput) (ParticipantView, error) {
	if err := requireCaller(caller); err != nil {
		return ParticipantView{}, err
	}
	var flag repository.Flag
	switch in.Type {
	case StatusPayment:
		flag = repository.FlagPaid
	case StatusAttendance:
		flag = repository.FlagGoing
	default:
		return ParticipantView{}, validation("type must be %q or %q", StatusPayment, StatusAttendance)
	}
	if in.UserID == 0 {
		return ParticipantView{}, validation("userId is required")
	}
	res, err := s.Store.Reservations.GetByID(ctx, reservationID)
	if err != nil {
		return ParticipantView{}, storageErr(err, "reservation")
	}
	if caller.UserID != res.UserID && caller.UserID != in.UserID {
		return ParticipantView{}, forbidden("only the owner or the participant can change this status")
	}
	p, err := s.Store.Participants.SetFlag(ctx, reservationID, in.UserID, flag, in.Value)
	if err != nil {
		return ParticipantView{}, storageErr(err, "participant")
	}
	u, err := s.Store.Users.GetByID(ctx, in.UserID)
	if err != nil {
		return ParticipantView{}, storageErr(err, "user")
	}

	value := in.Value
	ev := queue.NewEvent(queue.ParticipantStatus, reservationID, caller.UserID, s.now())
	ev.UserID, ev.Field, ev.Value = in.UserID, in.Type, &value
	s.publish(ctx, ev)
	return ParticipantView{ID: u.ID, Name: u.Name, Email: u.Email, Image: u.Image, IsGoing: p.IsGoing, HasPaid: p.HasPaid}, nil
}
