package service

import (
	"context"
	"time"

	"github.com/courtshare/courtshare/internal/model"
	"github.com/courtshare/courtshare/internal/repository"
)

// CourtView is the public shape of a court.
type CourtView struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	ImageURL    *string `json:"imageUrl"`
}

// UserView is the public shape of a user.
type UserView struct {
	ID    uint64  `json:"id"`
	Name  *string `json:"name"`
	Email string  `json:"email"`
	Image *string `json:"image"`
}

// ParticipantView flattens a participant and their user record.
type ParticipantView struct {
	ID      uint64  `json:"id"`
	Name    *string `json:"name"`
	Email   string  `json:"email"`
	Image   *string `json:"image"`
	HasPaid bool    `json:"hasPaid"`
	IsGoing bool    `json:"isGoing"`
}

// ReservationView is the canonical read model of a reservation returned to
// owners and participants.  Going/NotGoing and their counts are derived from
// Participants on every read.
type ReservationView struct {
	ID               uint64            `json:"id"`
	Name             string            `json:"name"`
	Description      *string           `json:"description"`
	StartTime        time.Time         `json:"startTime"`
	EndTime          time.Time         `json:"endTime"`
	ShortURL         string            `json:"shortUrl"`
	Password         *string           `json:"password,omitempty"` // owner only
	PasswordRequired bool              `json:"passwordRequired"`
	PaymentRequired  bool              `json:"paymentRequired"`
	PaymentInfo      *string           `json:"paymentInfo"`
	Court            CourtView         `json:"court"`
	Owner            UserView          `json:"owner"`
	Participants     []ParticipantView `json:"participants"`
	Going            []ParticipantView `json:"going"`
	NotGoing         []ParticipantView `json:"notGoing"`
	GoingCount       int               `json:"goingCount"`
	NotGoingCount    int               `json:"notGoingCount"`
	IsOwner          bool              `json:"isOwner"`
	IsParticipant    bool              `json:"isParticipant"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// PublicView is what a short-URL holder sees: no participant list, and the
// password only when the caller owns the reservation.
type PublicView struct {
	ID               uint64    `json:"id"`
	Name             string    `json:"name"`
	Description      *string   `json:"description"`
	StartTime        time.Time `json:"startTime"`
	EndTime          time.Time `json:"endTime"`
	ShortURL         string    `json:"shortUrl"`
	Password         *string   `json:"password,omitempty"`
	PasswordRequired bool      `json:"passwordRequired"`
	PaymentRequired  bool      `json:"paymentRequired"`
	PaymentInfo      *string   `json:"paymentInfo"`
	Court            CourtView `json:"court"`
	Owner            UserView  `json:"owner"`
	IsOwner          bool      `json:"isOwner"`
	IsParticipant    bool      `json:"isParticipant"`
}

func courtView(c model.Court) CourtView {
	return CourtView{ID: c.ID, Name: c.Name, Description: c.Description, Location: c.Location, ImageURL: c.ImageURL}
}

func userView(u model.User) UserView {
	return UserView{ID: u.ID, Name: u.Name, Email: u.Email, Image: u.Image}
}

func participantView(d repository.ParticipantDetail) ParticipantView {
	return ParticipantView{ID: d.UserID, Name: d.Name, Email: d.Email, Image: d.Image, HasPaid: d.HasPaid, IsGoing: d.IsGoing}
}

// Project builds the reservation read model for callerID.  It is the only
// place the response shape is assembled.
func Project(res model.Reservation, court model.Court, owner model.User, parts []repository.ParticipantDetail, callerID uint64) ReservationView {
	v := ReservationView{
		ID:               res.ID,
		Name:             res.Name,
		Description:      res.Description,
		StartTime:        res.StartTime,
		EndTime:          res.EndTime,
		ShortURL:         res.ShortURL,
		PasswordRequired: res.PasswordRequired,
		PaymentRequired:  res.PaymentRequired,
		PaymentInfo:      res.PaymentInfo,
		Court:            courtView(court),
		Owner:            userView(owner),
		Participants:     make([]ParticipantView, 0, len(parts)),
		Going:            []ParticipantView{},
		NotGoing:         []ParticipantView{},
		IsOwner:          callerID != 0 && callerID == res.UserID,
		CreatedAt:        res.CreatedAt,
		UpdatedAt:        res.UpdatedAt,
	}
	if v.IsOwner {
		v.Password = res.Password
	}
	for _, d := range parts {
		pv := participantView(d)
		v.Participants = append(v.Participants, pv)
		if pv.IsGoing {
			v.Going = append(v.Going, pv)
		} else {
			v.NotGoing = append(v.NotGoing, pv)
		}
		if d.UserID == callerID {
			v.IsParticipant = true
		}
	}
	v.GoingCount, v.NotGoingCount = len(v.Going), len(v.NotGoing)
	return v
}

// ProjectPublic builds the short-URL view for callerID (0 when anonymous).
func ProjectPublic(res model.Reservation, court model.Court, owner model.User, callerID uint64, isParticipant bool) PublicView {
	v := PublicView{
		ID:               res.ID,
		Name:             res.Name,
		Description:      res.Description,
		StartTime:        res.StartTime,
		EndTime:          res.EndTime,
		ShortURL:         res.ShortURL,
		PasswordRequired: res.PasswordRequired,
		PaymentRequired:  res.PaymentRequired,
		PaymentInfo:      res.PaymentInfo,
		Court:            courtView(court),
		Owner:            userView(owner),
		IsOwner:          callerID != 0 && callerID == res.UserID,
		IsParticipant:    isParticipant,
	}
	if v.IsOwner {
		v.Password = res.Password
	}
	return v
}

// view loads the related rows and projects res for callerID.
func (d Deps) view(ctx context.Context, res model.Reservation, callerID uint64) (ReservationView, error) {
	court, err := d.Store.Courts.GetByID(ctx, res.CourtID)
	if err != nil {
		return ReservationView{}, storageErr(err, "court")
	}
	owner, err := d.Store.Users.GetByID(ctx, res.UserID)
	if err != nil {
		return ReservationView{}, storageErr(err, "owner")
	}
	parts, err := d.Store.Participants.ListDetails(ctx, res.ID)
	if err != nil {
		return ReservationView{}, err
	}
	return Project(res, court, owner, parts, callerID), nil
}
