package service

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sethvargo/go-password/password"

	"github.com/courtshare/courtshare/internal/database"
	"github.com/courtshare/courtshare/internal/model"
	"github.com/courtshare/courtshare/internal/queue"
	"github.com/courtshare/courtshare/internal/repository"
	"github.com/courtshare/courtshare/internal/slot"
	"github.com/courtshare/courtshare/internal/utils"
)

const (
	shortURLLength   = 8
	shortURLAttempts = 5

	generatedPasswordLength = 10
	generatedPasswordDigits = 3
)

// ReservationService owns the reservation lifecycle: create, read, list,
// update, reschedule, delete, and owner-managed participants.
type ReservationService struct{ Deps }

func NewReservationService(d Deps) *ReservationService {
	return &ReservationService{Deps: d.withDefaults()}
}

// CreateInput is the request to book a court.
type CreateInput struct {
	CourtID           uint64
	StartTime         time.Time
	EndTime           time.Time
	Description       *string
	ParticipantEmails []string
	PaymentRequired   bool
	PaymentInfo       *string
	Password          *string
	PasswordRequired  bool
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}

// normalizeEmails validates, lower-cases and de-duplicates addresses.  Only
// bare addresses are accepted; display-name forms such as
// "Bob <bob@example.com>" are rejected.
func normalizeEmails(in []string) ([]string, error) {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, raw := range in {
		e := repository.NormalizeEmail(raw)
		if e == "" {
			continue
		}
		addr, err := mail.ParseAddress(e)
		if err != nil || addr.Name != "" || addr.Address != e {
			return nil, validation("invalid email %q", raw)
		}
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out, nil
}

// validateSelection maps slot grid errors to validation failures.
func (s *ReservationService) validateSelection(w slot.Window, maxSlots int, start, end time.Time) error {
	if _, err := slot.Selection(s.Settings.Facility, w, maxSlots, start, end); err != nil {
		return validation("%v", err)
	}
	return nil
}

// Create books a court for the caller.  All input checks run before any
// write; the overlap check is repeated inside the write transaction while
// the court's booking lock is held, so a racing booking fails with
// ErrConflict instead of double-booking.
func (s *ReservationService) Create(ctx context.Context, caller Caller, in CreateInput) (ReservationView, error) {
	if err := requireCaller(caller); err != nil {
		return ReservationView{}, err
	}
	if in.CourtID == 0 || in.StartTime.IsZero() || in.EndTime.IsZero() {
		return ReservationView{}, validation("courtId, startTime and endTime are required")
	}
	start, end := in.StartTime.UTC(), in.EndTime.UTC()
	info := trimmed(in.PaymentInfo)
	if in.PaymentRequired && info == nil {
		return ReservationView{}, validation("paymentInfo is required when payment is required")
	}
	if err := s.validateSelection(s.Settings.CreateWindow, s.Settings.CreateMaxSlots, start, end); err != nil {
		return ReservationView{}, err
	}
	emails, err := normalizeEmails(in.ParticipantEmails)
	if err != nil {
		return ReservationView{}, err
	}
	// The shared password is stored exactly as given; blank means none.
	var pw *string
	if in.Password != nil && strings.TrimSpace(*in.Password) != "" {
		given := *in.Password
		pw = &given
	}
	if in.PasswordRequired && pw == nil {
		gen, err := password.Generate(generatedPasswordLength, generatedPasswordDigits, 0, false, true)
		if err != nil {
			return ReservationView{}, err
		}
		pw = &gen
	}

	res := model.Reservation{
		UserID:           caller.UserID,
		CourtID:          in.CourtID,
		Description:      trimmed(in.Description),
		StartTime:        start,
		EndTime:          end,
		Password:         pw,
		PasswordRequired: pw != nil,
		PaymentRequired:  in.PaymentRequired,
		PaymentInfo:      info,
	}
	err = database.WithTx(ctx, s.Store.DB, func(tx *sql.Tx) error {
		if err := s.Store.Courts.LockForBookingTx(ctx, tx, in.CourtID); err != nil {
			return storageErr(err, "court")
		}
		court, err := s.Store.Courts.GetByIDTx(ctx, tx, in.CourtID)
		if err != nil {
			return storageErr(err, "court")
		}
		owner, err := s.Store.Users.GetByIDTx(ctx, tx, caller.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUnauthorized
			}
			return err
		}
		overlap, err := s.Store.Reservations.OverlapsTx(ctx, tx, in.CourtID, start, end, 0)
		if err != nil {
			return err
		}
		if overlap {
			return conflict("the selected time overlaps an existing reservation")
		}
		res.Name = DisplayName(s.Settings.Facility, owner, court, start)
		if err := s.insertWithShortURL(ctx, tx, &res); err != nil {
			return err
		}
		for _, email := range emails {
			u, err := s.Store.Users.FindOrCreateByEmailTx(ctx, tx, email)
			if err != nil {
				return storageErr(err, "user")
			}
			if u.ID == owner.ID {
				continue
			}
			p := model.ParticipantStatus{UserID: u.ID, ReservationID: res.ID, IsGoing: true}
			if err := s.Store.Participants.CreateTx(ctx, tx, &p); err != nil {
				return storageErr(err, "participant")
			}
		}
		return nil
	})
	if err != nil {
		return ReservationView{}, err
	}

	ev := queue.NewEvent(queue.ReservationCreated, res.ID, caller.UserID, s.now()).WithSpan(res.StartTime, res.EndTime)
	ev.CourtID, ev.Name = res.CourtID, res.Name
	s.publish(ctx, ev)
	return s.view(ctx, res, caller.UserID)
}

// insertWithShortURL inserts res under a fresh random short URL, retrying
// when the code collides with an existing one.
func (s *ReservationService) insertWithShortURL(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	err := retry.Do(func() error {
		code, err := utils.ShortCode(shortURLLength)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		res.ShortURL = code
		err = s.Store.Reservations.CreateTx(ctx, tx, res)
		if err != nil && !errors.Is(err, repository.ErrConflict) {
			return retry.Unrecoverable(storageErr(err, "reservation"))
		}
		return err
	},
		retry.Context(ctx),
		retry.Attempts(shortURLAttempts),
		retry.DelayType(retry.FixedDelay),
		retry.Delay(0),
		retry.LastErrorOnly(true),
	)
	return storageErr(err, "short url")
}

// Get returns the reservation to its owner or a participant.
func (s *ReservationService) Get(ctx context.Context, caller Caller, id uint64) (ReservationView, error) {
	res, _, err := s.loadMember(ctx, caller, id)
	if err != nil {
		return ReservationView{}, err
	}
	return s.view(ctx, res, caller.UserID)
}

// List returns reservations the caller owns or participates in.
func (s *ReservationService) List(ctx context.Context, caller Caller) ([]ReservationView, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	list, err := s.Store.Reservations.ListForUser(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]ReservationView, 0, len(list))
	for _, res := range list {
		v, err := s.view(ctx, res, caller.UserID)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// UpdateInput carries the owner-editable fields.  A nil field is left
// unchanged; an empty string clears it.
type UpdateInput struct {
	Description *string
	PaymentInfo *string
}

// Update changes description and payment info.  Owner only.
func (s *ReservationService) Update(ctx context.Context, caller Caller, id uint64, in UpdateInput) (ReservationView, error) {
	res, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return ReservationView{}, err
	}
	desc, info := res.Description, res.PaymentInfo
	if in.Description != nil {
		desc = trimmed(in.Description)
	}
	if in.PaymentInfo != nil {
		info = trimmed(in.PaymentInfo)
	}
	if res.PaymentRequired && info == nil {
		return ReservationView{}, validation("paymentInfo is required when payment is required")
	}
	if err := s.Store.Reservations.UpdateDetails(ctx, id, desc, info); err != nil {
		return ReservationView{}, storageErr(err, "reservation")
	}
	res.Description, res.PaymentInfo = desc, info
	return s.view(ctx, res, caller.UserID)
}

// Reschedule moves the reservation to [start, end) on the edit grid.  The
// reservation's own span is excluded from the conflict set, so re-submitting
// the current times succeeds.  Owner only.
func (s *ReservationService) Reschedule(ctx context.Context, caller Caller, id uint64, start, end time.Time) (ReservationView, error) {
	res, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return ReservationView{}, err
	}
	if start.IsZero() || end.IsZero() {
		return ReservationView{}, validation("startTime and endTime are required")
	}
	start, end = start.UTC(), end.UTC()
	if err := s.validateSelection(s.Settings.EditWindow, s.Settings.EditMaxSlots, start, end); err != nil {
		return ReservationView{}, err
	}
	err = database.WithTx(ctx, s.Store.DB, func(tx *sql.Tx) error {
		if err := s.Store.Courts.LockForBookingTx(ctx, tx, res.CourtID); err != nil {
			return storageErr(err, "court")
		}
		overlap, err := s.Store.Reservations.OverlapsTx(ctx, tx, res.CourtID, start, end, res.ID)
		if err != nil {
			return err
		}
		if overlap {
			return conflict("the selected time overlaps an existing reservation")
		}
		return storageErr(s.Store.Reservations.UpdateTimesTx(ctx, tx, res.ID, start, end), "reservation")
	})
	if err != nil {
		return ReservationView{}, err
	}
	res.StartTime, res.EndTime = start, end
	s.publish(ctx, queue.NewEvent(queue.ReservationRescheduled, res.ID, caller.UserID, s.now()).WithSpan(start, end))
	return s.view(ctx, res, caller.UserID)
}

// Delete removes the reservation with its participants, invites and
// messages in one transaction.  Owner only.
func (s *ReservationService) Delete(ctx context.Context, caller Caller, id uint64) error {
	res, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return err
	}
	err = database.WithTx(ctx, s.Store.DB, func(tx *sql.Tx) error {
		return storageErr(s.Store.Reservations.DeleteCascadeTx(ctx, tx, res.ID), "reservation")
	})
	if err != nil {
		return err
	}
	ev := queue.NewEvent(queue.ReservationDeleted, res.ID, caller.UserID, s.now()).WithSpan(res.StartTime, res.EndTime)
	ev.CourtID, ev.Name = res.CourtID, res.Name
	s.publish(ctx, ev)
	return nil
}

// AddParticipant lets the owner attach a user by email, provisioning the
// user when needed.  Adding someone already on the reservation is
// ErrConflict.
func (s *ReservationService) AddParticipant(ctx context.Context, caller Caller, id uint64, email string) (ParticipantView, error) {
	res, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return ParticipantView{}, err
	}
	emails, err := normalizeEmails([]string{email})
	if err != nil {
		return ParticipantView{}, err
	}
	if len(emails) == 0 {
		return ParticipantView{}, validation("email is required")
	}
	var view ParticipantView
	err = database.WithTx(ctx, s.Store.DB, func(tx *sql.Tx) error {
		u, err := s.Store.Users.FindOrCreateByEmailTx(ctx, tx, emails[0])
		if err != nil {
			return storageErr(err, "user")
		}
		if u.ID == res.UserID {
			return conflict("the owner is already on this reservation")
		}
		p := model.ParticipantStatus{UserID: u.ID, ReservationID: res.ID, IsGoing: true}
		if err := s.Store.Participants.CreateTx(ctx, tx, &p); err != nil {
			return storageErr(err, "participant")
		}
		view = ParticipantView{ID: u.ID, Name: u.Name, Email: u.Email, Image: u.Image, IsGoing: p.IsGoing, HasPaid: p.HasPaid}
		return nil
	})
	if err != nil {
		return ParticipantView{}, err
	}
	ev := queue.NewEvent(queue.ParticipantJoined, res.ID, caller.UserID, s.now())
	ev.UserID, ev.Via = view.ID, "owner"
	s.publish(ctx, ev)
	return view, nil
}

// RemoveParticipant detaches userID.  The owner may remove anyone; a
// participant may remove only themself.
func (s *ReservationService) RemoveParticipant(ctx context.Context, caller Caller, id, userID uint64) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	res, err := s.Store.Reservations.GetByID(ctx, id)
	if err != nil {
		return storageErr(err, "reservation")
	}
	if caller.UserID != res.UserID && caller.UserID != userID {
		return forbidden("only the owner or the participant can remove a participant")
	}
	if err := s.Store.Participants.Delete(ctx, id, userID); err != nil {
		return storageErr(err, "participant")
	}
	ev := queue.NewEvent(queue.ParticipantLeft, id, caller.UserID, s.now())
	ev.UserID = userID
	s.publish(ctx, ev)
	return nil
}
