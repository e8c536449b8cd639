package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/courtshare/courtshare/internal/clock"
	"github.com/courtshare/courtshare/internal/config"
	"github.com/courtshare/courtshare/internal/database"
	"github.com/courtshare/courtshare/internal/model"
	"github.com/courtshare/courtshare/internal/queue"
)

type env struct {
	*Services
	store  *Store
	events *queue.MemoryPublisher
	fac    clock.Facility
	now    time.Time

	court model.Court
	owner Caller
	bob   Caller
	carol Caller
}

func testSettings(t *testing.T) Settings {
	t.Helper()
	cfg := config.Config{
		BaseURL:   "https://courts.example.com/",
		InviteTTL: 7 * 24 * time.Hour,
		Facility: config.FacilityConfig{
			Timezone: "America/New_York", Open: "08:00", Close: "18:00",
			SlotMinutes: 30, MaxSlots: 3, EditSlotMinutes: 60, EditMaxSlots: 6,
		},
	}
	s, err := SettingsFromConfig(cfg)
	require.NoError(t, err)
	return s
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db, database.DriverSQLite))

	e := &env{
		store:  NewStore(db),
		events: &queue.MemoryPublisher{},
		now:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	settings := testSettings(t)
	e.fac = settings.Facility
	e.Services = New(Deps{
		Store:    e.store,
		Settings: settings,
		Clock:    clock.Func(func() time.Time { return e.now }),
		Events:   e.events,
	})

	e.court = model.Court{Name: "Center Court"}
	require.NoError(t, e.store.Courts.Create(ctx, &e.court))
	e.owner = e.caller(t, "alice@example.com", "Alice Smith")
	e.bob = e.caller(t, "bob@example.com", "")
	e.carol = e.caller(t, "carol@example.com", "")
	return e
}

func (e *env) caller(t *testing.T, email, name string) Caller {
	t.Helper()
	ctx := context.Background()
	u, err := e.store.Users.FindOrCreateByEmail(ctx, email)
	require.NoError(t, err)
	if name != "" {
		require.NoError(t, e.store.Users.UpdateProfile(ctx, u.ID, &name, nil))
	}
	return Caller{UserID: u.ID, Email: u.Email}
}

// at returns the UTC instant of a facility-local wall time.
func (e *env) at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, e.fac.Location()).UTC()
}

func (e *env) book(t *testing.T, who Caller, start time.Time, dur time.Duration, mutate ...func(*CreateInput)) ReservationView {
	t.Helper()
	in := CreateInput{CourtID: e.court.ID, StartTime: start, EndTime: start.Add(dur)}
	for _, m := range mutate {
		m(&in)
	}
	v, err := e.Reservations.Create(context.Background(), who, in)
	require.NoError(t, err)
	return v
}

func strp(s string) *string { return &s }

func boolp(b bool) *bool { return &b }

func errorsIsAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
