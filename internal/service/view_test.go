package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtshare/courtshare/internal/clock"
	"github.com/courtshare/courtshare/internal/model"
	"github.com/courtshare/courtshare/internal/repository"
)

func TestProjectBucketsParticipants(t *testing.T) {
	pw := "pw"
	res := model.Reservation{ID: 1, UserID: 10, Password: &pw}
	parts := []repository.ParticipantDetail{
		{UserID: 20, Email: "a@x", IsGoing: true},
		{UserID: 21, Email: "b@x", IsGoing: false, HasPaid: true},
		{UserID: 22, Email: "c@x", IsGoing: true, HasPaid: true},
	}

	v := Project(res, model.Court{ID: 3}, model.User{ID: 10}, parts, 21)
	assert.False(t, v.IsOwner)
	assert.True(t, v.IsParticipant)
	assert.Nil(t, v.Password)
	assert.Len(t, v.Participants, 3)
	assert.Equal(t, 2, v.GoingCount)
	assert.Equal(t, 1, v.NotGoingCount)
	assert.Equal(t, uint64(21), v.NotGoing[0].ID)

	v = Project(res, model.Court{}, model.User{}, nil, 10)
	assert.True(t, v.IsOwner)
	require.NotNil(t, v.Password)
	assert.NotNil(t, v.Participants)
	assert.Zero(t, v.GoingCount)

	assert.False(t, Project(res, model.Court{}, model.User{}, nil, 0).IsOwner)
}

func TestProjectPublicHidesPassword(t *testing.T) {
	pw := "pw"
	res := model.Reservation{UserID: 10, Password: &pw, PasswordRequired: true}
	assert.Nil(t, ProjectPublic(res, model.Court{}, model.User{}, 0, false).Password)
	assert.Nil(t, ProjectPublic(res, model.Court{}, model.User{}, 11, true).Password)
	assert.Equal(t, &pw, ProjectPublic(res, model.Court{}, model.User{}, 10, false).Password)
}

func TestDisplayName(t *testing.T) {
	fac, err := clock.LoadFacility("America/New_York")
	require.NoError(t, err)
	name := "jane   doe"
	court := model.Court{Name: "Court 4"}
	// 02:30Z on 3/13 is still 3/12 in New York.
	start := time.Date(2024, 3, 13, 2, 30, 0, 0, time.UTC)

	assert.Equal(t, "jane's 3/12 Reservation at Court 4", DisplayName(fac, model.User{Name: &name}, court, start))
	assert.Equal(t, "Mary's 3/12 Reservation at Court 4", DisplayName(fac, model.User{Email: "mary.jones@example.com"}, court, start))
}

func TestFirstName(t *testing.T) {
	blank := "  "
	assert.Equal(t, "Sam", FirstName(model.User{Name: &blank, Email: "sam_smith@example.com"}))
	assert.Equal(t, "Someone", FirstName(model.User{Email: "@example.com"}))
}
