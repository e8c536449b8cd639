package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/courtshare/courtshare/internal/database"
	"github.com/courtshare/courtshare/internal/model"
	"github.com/courtshare/courtshare/internal/queue"
	"github.com/courtshare/courtshare/internal/repository"
	"github.com/courtshare/courtshare/internal/utils"
)

const inviteTokenBytes = 32

// AccessService issues and checks the two ways into a reservation: a
// single-use invite token bound to an email, and the reservation's standing
// short URL optionally gated by a shared password.
type AccessService struct{ Deps }

func NewAccessService(d Deps) *AccessService {
	return &AccessService{Deps: d.withDefaults()}
}

// InviteResult is returned to the owner; delivering Link is the mail
// collaborator's job.
type InviteResult struct {
	Token      string    `json:"token"`
	InviteLink string    `json:"inviteLink"`
	Email      string    `json:"email"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// InviteSummary describes the reservation behind an invite.
type InviteSummary struct {
	ReservationID uint64    `json:"reservationId"`
	Name          string    `json:"name"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	Court         CourtView `json:"court"`
	Owner         UserView  `json:"owner"`
	Email         string    `json:"email"`
	ExpiresAt     time.Time `json:"expiresAt"`
	Used          bool      `json:"used"`
}

// InviteLink is the public URL for token.
func (s *AccessService) InviteLink(token string) string {
	return s.Settings.BaseURL + "/invites/" + token
}

// CreateInvite issues an invite for email on reservation id.  Owner only;
// inviting an existing participant or the owner is a validation error.
func (s *AccessService) CreateInvite(ctx context.Context, caller Caller, id uint64, email string) (InviteResult, error) {
	res, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return InviteResult{}, err
	}
	emails, err := normalizeEmails([]string{email})
	if err != nil {
		return InviteResult{}, err
	}
	if len(emails) == 0 {
		return InviteResult{}, validation("email is required")
	}
	email = emails[0]

	owner, err := s.Store.Users.GetByID(ctx, res.UserID)
	if err != nil {
		return InviteResult{}, storageErr(err, "owner")
	}
	if owner.Email == email {
		return InviteResult{}, validation("the owner cannot be invited")
	}
	err = database.WithTx(ctx, s.Store.DB, func(tx *sql.Tx) error {
		exists, err := s.Store.Participants.ExistsByEmailTx(ctx, tx, res.ID, email)
		if err != nil {
			return err
		}
		if exists {
			return validation("%s is already a participant", email)
		}
		return nil
	})
	if err != nil {
		return InviteResult{}, err
	}

	inv := model.Invite{Email: email, ReservationID: res.ID, ExpiresAt: s.now().Add(s.Settings.InviteTTL)}
	err = retry.Do(func() error {
		tok, err := utils.RandomToken(inviteTokenBytes)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		inv.Token = tok
		err = s.Store.Invites.Create(ctx, &inv)
		if err != nil && !errors.Is(err, repository.ErrConflict) {
			return retry.Unrecoverable(err)
		}
		return err
	}, retry.Context(ctx), retry.Attempts(3), retry.DelayType(retry.FixedDelay), retry.Delay(0), retry.LastErrorOnly(true))
	if err != nil {
		return InviteResult{}, storageErr(err, "invite")
	}

	out := InviteResult{Token: inv.Token, InviteLink: s.InviteLink(inv.Token), Email: inv.Email, ExpiresAt: inv.ExpiresAt}
	ev := queue.NewEvent(queue.InviteCreated, res.ID, caller.UserID, s.now())
	ev.Email, ev.Link, ev.Name = out.Email, out.InviteLink, res.Name
	s.publish(ctx, ev)
	return out, nil
}

// ResolveInvite returns the reservation summary behind token.  An expired
// invite is ErrExpired whether or not it was used.
func (s *AccessService) ResolveInvite(ctx context.Context, token string) (InviteSummary, error) {
	inv, err := s.Store.Invites.GetByToken(ctx, token)
	if err != nil {
		return InviteSummary{}, storageErr(err, "invite")
	}
	if inv.Expired(s.now()) {
		return InviteSummary{}, fmt.Errorf("%w: invite expired at %s", ErrExpired, inv.ExpiresAt.Format(time.RFC3339))
	}
	res, err := s.Store.Reservations.GetByID(ctx, inv.ReservationID)
	if err != nil {
		return InviteSummary{}, storageErr(err, "reservation")
	}
	court, err := s.Store.Courts.GetByID(ctx, res.CourtID)
	if err != nil {
		return InviteSummary{}, storageErr(err, "court")
	}
	owner, err := s.Store.Users.GetByID(ctx, res.UserID)
	if err != nil {
		return InviteSummary{}, storageErr(err, "owner")
	}
	return InviteSummary{
		ReservationID: res.ID,
		Name:          res.Name,
		StartTime:     res.StartTime,
		EndTime:       res.EndTime,
		Court:         courtView(court),
		Owner:         userView(owner),
		Email:         inv.Email,
		ExpiresAt:     inv.ExpiresAt,
		Used:          inv.UsedAt != nil,
	}, nil
}

// AcceptInvite joins the caller to the invite's reservation.  The
// participant insert and the used_at stamp commit together or not at all;
// of two racing accepts exactly one succeeds and the other gets
// ErrConflict.  The caller's verified email must match the invite.
func (s *AccessService) AcceptInvite(ctx context.Context, caller Caller, token string) (ParticipantView, error) {
	if err := requireCaller(caller); err != nil {
		return ParticipantView{}, err
	}
	now := s.now()
	var (
		inv  model.Invite
		view ParticipantView
	)
	err := database.WithTx(ctx, s.Store.DB, func(tx *sql.Tx) error {
		var err error
		inv, err = s.Store.Invites.GetByTokenTx(ctx, tx, token)
		if err != nil {
			return storageErr(err, "invite")
		}
		if inv.Expired(now) {
			return fmt.Errorf("%w: invite expired", ErrExpired)
		}
		if inv.UsedAt != nil {
			return conflict("invite already used")
		}
		res, err := s.Store.Reservations.GetByIDTx(ctx, tx, inv.ReservationID)
		if err != nil {
			return storageErr(err, "reservation")
		}
		if res.UserID == caller.UserID {
			return conflict("the owner is already on this reservation")
		}
		if _, err := s.Store.Participants.GetTx(ctx, tx, res.ID, caller.UserID); err == nil {
			return conflict("already a participant")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		user, err := s.Store.Users.GetByIDTx(ctx, tx, caller.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUnauthorized
			}
			return err
		}
		if user.Email != repository.NormalizeEmail(inv.Email) {
			return forbidden("this invite was issued to a different email")
		}
		p := model.ParticipantStatus{UserID: user.ID, ReservationID: res.ID, IsGoing: true}
		if err := s.Store.Participants.CreateTx(ctx, tx, &p); err != nil {
			return storageErr(err, "participant")
		}
		if err := s.Store.Invites.MarkUsedTx(ctx, tx, inv.ID, now); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return conflict("invite already used")
			}
			return err
		}
		view = ParticipantView{ID: user.ID, Name: user.Name, Email: user.Email, Image: user.Image, IsGoing: p.IsGoing, HasPaid: p.HasPaid}
		return nil
	})
	if err != nil {
		return ParticipantView{}, err
	}
	ev := queue.NewEvent(queue.ParticipantJoined, inv.ReservationID, caller.UserID, now)
	ev.UserID, ev.Via = caller.UserID, "invite"
	s.publish(ctx, ev)
	return view, nil
}

// ResolveShortURL returns the public view of a reservation.  caller may be
// anonymous.
func (s *AccessService) ResolveShortURL(ctx context.Context, caller Caller, shortURL string) (PublicView, error) {
	res, err := s.Store.Reservations.GetByShortURL(ctx, shortURL)
	if err != nil {
		return PublicView{}, storageErr(err, "reservation")
	}
	court, err := s.Store.Courts.GetByID(ctx, res.CourtID)
	if err != nil {
		return PublicView{}, storageErr(err, "court")
	}
	owner, err := s.Store.Users.GetByID(ctx, res.UserID)
	if err != nil {
		return PublicView{}, storageErr(err, "owner")
	}
	r, err := s.roleOf(ctx, res, caller.UserID)
	if err != nil {
		return PublicView{}, err
	}
	return ProjectPublic(res, court, owner, caller.UserID, r == roleParticipant), nil
}

// checkPassword compares the supplied password to the stored plaintext
// secret byte for byte.  A reservation with a stored password is always
// gated.
func checkPassword(res model.Reservation, supplied string) error {
	if res.Password == nil {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(*res.Password), []byte(supplied)) != 1 {
		return fmt.Errorf("%w: invalid password", ErrUnauthorized)
	}
	return nil
}

// VerifyPassword succeeds immediately for members, otherwise when no
// password gates the reservation or the supplied one matches exactly.  It
// does not join the caller.
func (s *AccessService) VerifyPassword(ctx context.Context, caller Caller, shortURL, supplied string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	res, err := s.Store.Reservations.GetByShortURL(ctx, shortURL)
	if err != nil {
		return storageErr(err, "reservation")
	}
	r, err := s.roleOf(ctx, res, caller.UserID)
	if err != nil {
		return err
	}
	if r != roleNone {
		return nil
	}
	return checkPassword(res, supplied)
}

// JoinInput is the short-URL join request.  IsGoing defaults to true and
// HasPaid to false.
type JoinInput struct {
	Password string
	IsGoing  *bool
	HasPaid  *bool
}

// Join adds the caller as a participant via the short URL.  The password
// is re-verified.  Joining twice is ErrConflict.  No token is consumed, so
// the link keeps working for others.
func (s *AccessService) Join(ctx context.Context, caller Caller, shortURL string, in JoinInput) (ParticipantView, error) {
	if err := requireCaller(caller); err != nil {
		return ParticipantView{}, err
	}
	res, err := s.Store.Reservations.GetByShortURL(ctx, shortURL)
	if err != nil {
		return ParticipantView{}, storageErr(err, "reservation")
	}
	return s.join(ctx, caller, res, in)
}

func (s *AccessService) join(ctx context.Context, caller Caller, res model.Reservation, in JoinInput) (ParticipantView, error) {
	r, err := s.roleOf(ctx, res, caller.UserID)
	if err != nil {
		return ParticipantView{}, err
	}
	switch r {
	case roleOwner:
		return ParticipantView{}, conflict("the owner is already on this reservation")
	case roleParticipant:
		return ParticipantView{}, conflict("already a participant")
	}
	if err := checkPassword(res, in.Password); err != nil {
		return ParticipantView{}, err
	}
	user, err := s.Store.Users.GetByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ParticipantView{}, ErrUnauthorized
		}
		return ParticipantView{}, err
	}
	p := model.ParticipantStatus{UserID: user.ID, ReservationID: res.ID, IsGoing: true}
	if in.IsGoing != nil {
		p.IsGoing = *in.IsGoing
	}
	if in.HasPaid != nil {
		p.HasPaid = *in.HasPaid
	}
	if err := s.Store.Participants.Create(ctx, &p); err != nil {
		return ParticipantView{}, storageErr(err, "participant")
	}
	ev := queue.NewEvent(queue.ParticipantJoined, res.ID, caller.UserID, s.now())
	ev.UserID, ev.Via = caller.UserID, "short_url"
	s.publish(ctx, ev)
	return ParticipantView{ID: user.ID, Name: user.Name, Email: user.Email, Image: user.Image, IsGoing: p.IsGoing, HasPaid: p.HasPaid}, nil
}
