package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/courtshare/courtshare/internal/model"
)

// MaxMessageLength caps message content, in characters.
const MaxMessageLength = 2000

// MessageService is the reservation chat.  Only the owner and participants
// can read or post.
type MessageService struct{ Deps }

func NewMessageService(d Deps) *MessageService {
	return &MessageService{Deps: d.withDefaults()}
}

// MessageView is a message with its author.
type MessageView struct {
	ID        uint64    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	User      UserView  `json:"user"`
}

// List returns the reservation's messages oldest first.
func (s *MessageService) List(ctx context.Context, caller Caller, reservationID uint64) ([]MessageView, error) {
	if _, _, err := s.loadMember(ctx, caller, reservationID); err != nil {
		return nil, err
	}
	rows, err := s.Store.Messages.ListByReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	out := make([]MessageView, 0, len(rows))
	for _, m := range rows {
		out = append(out, MessageView{
			ID:        m.ID,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
			User:      UserView{ID: m.UserID, Name: m.AuthorName, Email: m.AuthorEmail, Image: m.AuthorImage},
		})
	}
	return out, nil
}

// Post appends a message.
func (s *MessageService) Post(ctx context.Context, caller Caller, reservationID uint64, content string) (MessageView, error) {
	content = strings.TrimSpace(content)
	if n := utf8.RuneCountInString(content); n == 0 || n > MaxMessageLength {
		return MessageView{}, validation("content must be 1 to %d characters", MaxMessageLength)
	}
	if _, _, err := s.loadMember(ctx, caller, reservationID); err != nil {
		return MessageView{}, err
	}
	u, err := s.Store.Users.GetByID(ctx, caller.UserID)
	if err != nil {
		return MessageView{}, storageErr(err, "user")
	}
	m := model.Message{ReservationID: reservationID, UserID: caller.UserID, Content: content}
	if err := s.Store.Messages.Create(ctx, &m); err != nil {
		return MessageView{}, storageErr(err, "message")
	}
	return MessageView{ID: m.ID, Content: m.Content, CreatedAt: m.CreatedAt, User: userView(u)}, nil
}
