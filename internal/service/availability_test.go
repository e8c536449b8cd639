package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeSlotsOnSpringForwardDay(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	slots, err := e.Availability.TimeSlots(ctx, Caller{}, SlotQuery{CourtID: e.court.ID, Date: "2024-03-10"})
	require.NoError(t, err)
	require.Len(t, slots, 20)
	// 08:00 EDT is 12:00Z; the 02:00 jump happened before opening.
	assert.Equal(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC), slots[0].Start)
	assert.Equal(t, time.Date(2024, 3, 10, 22, 0, 0, 0, time.UTC), slots[19].End)
	for i, s := range slots {
		assert.True(t, s.Available, "slot %d", i)
		assert.Equal(t, 30*time.Minute, s.End.Sub(s.Start))
		if i > 0 {
			assert.Equal(t, slots[i-1].End, s.Start)
		}
	}

	// Standard time the day before: 08:00 EST is 13:00Z.
	slots, err = e.Availability.TimeSlots(ctx, Caller{}, SlotQuery{CourtID: e.court.ID, Date: "2024-03-09"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 9, 13, 0, 0, 0, time.UTC), slots[0].Start)
}

func TestTimeSlotsHalfOpenBlocking(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	// Covers slots [2,4): 09:00-10:00 local.
	e.book(t, e.owner, e.at(2024, 3, 12, 9, 0), time.Hour)

	slots, err := e.Availability.TimeSlots(ctx, e.bob, SlotQuery{CourtID: e.court.ID, Date: "2024-03-12"})
	require.NoError(t, err)
	require.Len(t, slots, 20)
	for i, s := range slots {
		blocked := i == 2 || i == 3
		assert.Equal(t, !blocked, s.Available, "slot %d", i)
		assert.False(t, s.Selected)
	}
}

func TestTimeSlotsEditMode(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	mine := e.book(t, e.owner, e.at(2024, 3, 12, 9, 0), time.Hour)
	e.book(t, e.bob, e.at(2024, 3, 12, 12, 0), 90*time.Minute)

	slots, err := e.Availability.TimeSlots(ctx, e.owner, SlotQuery{CourtID: e.court.ID, Date: "2024-03-12", EditReservationID: mine.ID})
	require.NoError(t, err)
	require.Len(t, slots, 10)
	for i, s := range slots {
		assert.Equal(t, time.Hour, s.End.Sub(s.Start))
		switch i {
		case 1: // 09:00, held by the reservation being edited
			assert.True(t, s.Selected)
			assert.True(t, s.Available)
		case 4, 5: // 12:00-13:30 belongs to someone else
			assert.False(t, s.Available, "slot %d", i)
		default:
			assert.True(t, s.Available, "slot %d", i)
			assert.False(t, s.Selected)
		}
	}

	_, err = e.Availability.TimeSlots(ctx, e.bob, SlotQuery{CourtID: e.court.ID, Date: "2024-03-12", EditReservationID: mine.ID})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestTimeSlotsErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.Availability.TimeSlots(ctx, Caller{}, SlotQuery{CourtID: e.court.ID, Date: "03/10/2024"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.Availability.TimeSlots(ctx, Caller{}, SlotQuery{CourtID: 404, Date: "2024-03-10"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.Availability.TimeSlots(ctx, Caller{}, SlotQuery{Date: "2024-03-10"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.Availability.TimeSlots(ctx, Caller{}, SlotQuery{CourtID: e.court.ID, Date: "2024-03-10", EditReservationID: 1})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCourts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	list, err := e.Availability.Courts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Center Court", list[0].Name)

	c, err := e.Availability.Court(ctx, e.court.ID)
	require.NoError(t, err)
	assert.Equal(t, e.court.ID, c.ID)
	_, err = e.Availability.Court(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}
