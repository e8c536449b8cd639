package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtshare/courtshare/internal/clock"
	"github.com/courtshare/courtshare/internal/config"
	"github.com/courtshare/courtshare/internal/database"
	"github.com/courtshare/courtshare/internal/handler"
	"github.com/courtshare/courtshare/internal/model"
	"github.com/courtshare/courtshare/internal/queue"
	"github.com/courtshare/courtshare/internal/service"
	"github.com/courtshare/courtshare/internal/utils"
)

const testSecret = "test-secret"

type api struct {
	e     *echo.Echo
	store *service.Store
	now   time.Time
	court model.Court
	loc   *time.Location
}

func newAPI(t *testing.T) *api {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db, database.DriverSQLite))

	settings, err := service.SettingsFromConfig(config.Config{
		BaseURL:   "https://courts.example.com",
		InviteTTL: 7 * 24 * time.Hour,
		Facility: config.FacilityConfig{
			Timezone: "America/New_York", Open: "08:00", Close: "18:00",
			SlotMinutes: 30, MaxSlots: 3, EditSlotMinutes: 60, EditMaxSlots: 6,
		},
	})
	require.NoError(t, err)

	a := &api{
		e:     echo.New(),
		store: service.NewStore(db),
		now:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		loc:   settings.Facility.Location(),
	}
	svc := service.New(service.Deps{
		Store:    a.store,
		Settings: settings,
		Clock:    clock.Func(func() time.Time { return a.now }),
		Events:   &queue.MemoryPublisher{},
	})

	RegisterRoutes(a.e, db)
	v1 := NewV1(a.e, testSecret, nil)
	access := handler.NewAccessHandler(svc.Access)
	RegisterCourts(v1, handler.NewCourtHandler(svc.Availability), nil)
	RegisterReservations(v1, handler.NewReservationHandler(svc.Reservations, svc.Participants), access, handler.NewMessageHandler(svc.Messages))
	RegisterAccess(v1, access)

	a.court = model.Court{Name: "Center Court"}
	require.NoError(t, a.store.Courts.Create(ctx, &a.court))
	return a
}

// token provisions email and returns a bearer token plus the user id.
func (a *api) token(t *testing.T, email string) (string, uint64) {
	t.Helper()
	u, err := a.store.Users.FindOrCreateByEmail(context.Background(), email)
	require.NoError(t, err)
	tok, err := utils.NewAccessToken(testSecret, u.ID, u.Email, 60)
	require.NoError(t, err)
	return tok.Token, u.ID
}

func (a *api) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func (a *api) local(day, hour, minute int) time.Time {
	return time.Date(2024, 3, day, hour, minute, 0, 0, a.loc).UTC()
}

func (a *api) create(t *testing.T, token string, start time.Time, extra map[string]any) map[string]any {
	t.Helper()
	body := map[string]any{
		"courtId":   a.court.ID,
		"startTime": start.Format(time.RFC3339),
		"endTime":   start.Add(time.Hour).Format(time.RFC3339),
	}
	for k, v := range extra {
		body[k] = v
	}
	rec := a.do(t, http.MethodPost, "/v1/reservations", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)
}

func idPath(m map[string]any, suffix string) string {
	return "/v1/reservations/" + strconv.FormatUint(uint64(m["id"].(float64)), 10) + suffix
}

func TestHealthz(t *testing.T) {
	a := newAPI(t)
	rec := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestCourtsArePublic(t *testing.T) {
	a := newAPI(t)
	rec := a.do(t, http.MethodGet, "/v1/courts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var courts []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &courts))
	require.Len(t, courts, 1)
	assert.Equal(t, "Center Court", courts[0]["name"])

	rec = a.do(t, http.MethodGet, "/v1/courts/999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.do(t, http.MethodGet, "/v1/courts/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	a := newAPI(t)
	rec := a.do(t, http.MethodGet, "/v1/reservations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodGet, "/v1/reservations", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAndSlots(t *testing.T) {
	a := newAPI(t)
	alice, _ := a.token(t, "alice@example.com")
	bob, _ := a.token(t, "bob@example.com")

	res := a.create(t, alice, a.local(5, 10, 0), map[string]any{"participantIds": []string{"bob@example.com"}})
	assert.Equal(t, true, res["isOwner"])
	assert.NotEmpty(t, res["shortUrl"])
	assert.Len(t, res["participants"], 1)

	// Overlapping booking by someone else.
	rec := a.do(t, http.MethodPost, "/v1/reservations", bob, map[string]any{
		"courtId":   a.court.ID,
		"startTime": a.local(5, 10, 30).Format(time.RFC3339),
		"endTime":   a.local(5, 11, 30).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Not on the slot grid.
	rec = a.do(t, http.MethodPost, "/v1/reservations", bob, map[string]any{
		"courtId":   a.court.ID,
		"startTime": a.local(5, 12, 10).Format(time.RFC3339),
		"endTime":   a.local(5, 12, 40).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, "/v1/courts/"+strconv.FormatUint(a.court.ID, 10)+"/time-slots?date=2024-03-05", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var slots []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slots))
	require.Len(t, slots, 20)
	assert.Equal(t, false, slots[4]["isAvailable"]) // 10:00
	assert.Equal(t, false, slots[5]["isAvailable"]) // 10:30
	assert.Equal(t, true, slots[6]["isAvailable"])

	rec = a.do(t, http.MethodGet, "/v1/courts/"+strconv.FormatUint(a.court.ID, 10)+"/time-slots?date=03-05-2024", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// bob participates, so he sees it in his list.
	rec = a.do(t, http.MethodGet, "/v1/reservations", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, true, list[0]["isParticipant"])
	_, hasPassword := list[0]["password"]
	assert.False(t, hasPassword)
}

func TestOwnerOnlyEdits(t *testing.T) {
	a := newAPI(t)
	alice, _ := a.token(t, "alice@example.com")
	mallory, _ := a.token(t, "mallory@example.com")
	res := a.create(t, alice, a.local(5, 9, 0), nil)

	rec := a.do(t, http.MethodGet, idPath(res, ""), mallory, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodPut, idPath(res, ""), mallory, map[string]any{"description": "mine"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodPut, idPath(res, ""), alice, map[string]any{"description": "doubles", "paymentInfo": "venmo @alice"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)
	assert.Equal(t, "doubles", got["description"])
	assert.Equal(t, "venmo @alice", got["paymentInfo"])

	rec = a.do(t, http.MethodPut, idPath(res, "/time-slot"), alice, map[string]any{
		"startTime": a.local(5, 14, 0).Format(time.RFC3339),
		"endTime":   a.local(5, 16, 0).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got = decode(t, rec)
	assert.Equal(t, a.local(5, 14, 0).Format(time.RFC3339), got["startTime"])

	rec = a.do(t, http.MethodDelete, idPath(res, "/delete"), mallory, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(t, http.MethodDelete, idPath(res, "/delete"), alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])

	rec = a.do(t, http.MethodGet, idPath(res, ""), alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShortURLPasswordAndJoin(t *testing.T) {
	a := newAPI(t)
	alice, _ := a.token(t, "alice@example.com")
	bob, _ := a.token(t, "bob@example.com")
	res := a.create(t, alice, a.local(6, 8, 0), map[string]any{"password": "rally", "passwordRequired": true})
	assert.Equal(t, "rally", res["password"])
	short := "/v1/reservations/short/" + res["shortUrl"].(string)

	rec := a.do(t, http.MethodGet, short, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pub := decode(t, rec)
	assert.Equal(t, true, pub["passwordRequired"])
	_, leaked := pub["password"]
	assert.False(t, leaked)

	rec = a.do(t, http.MethodGet, short, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rally", decode(t, rec)["password"])

	rec = a.do(t, http.MethodPost, short+"/verify-password", bob, map[string]any{"password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])

	rec = a.do(t, http.MethodPost, short+"/verify-password", bob, map[string]any{"password": "rally"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])

	rec = a.do(t, http.MethodPost, short+"/join", bob, map[string]any{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, short+"/join", bob, map[string]any{"password": "rally"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["isGoing"])

	rec = a.do(t, http.MethodPost, short+"/join", bob, map[string]any{"password": "rally"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodGet, idPath(res, ""), bob, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/v1/reservations/short/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInviteLifecycle(t *testing.T) {
	a := newAPI(t)
	alice, _ := a.token(t, "alice@example.com")
	carol, _ := a.token(t, "carol@example.com")
	dave, _ := a.token(t, "dave@example.com")
	res := a.create(t, alice, a.local(7, 9, 0), nil)

	rec := a.do(t, http.MethodPost, idPath(res, "/invite"), carol, map[string]any{"email": "carol@example.com"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodPost, idPath(res, "/invite"), alice, map[string]any{"email": "Carol@Example.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	inv := decode(t, rec)
	token := inv["token"].(string)
	assert.True(t, strings.HasSuffix(inv["inviteLink"].(string), "/invites/"+token))

	rec = a.do(t, http.MethodGet, "/v1/invites/"+token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "carol@example.com", decode(t, rec)["email"])

	rec = a.do(t, http.MethodPost, "/v1/invites/"+token+"/accept", dave, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/invites/"+token+"/accept", carol, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["success"])

	rec = a.do(t, http.MethodPost, "/v1/invites/"+token+"/accept", carol, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodGet, "/v1/invites/unknown-token", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExpiredInviteIsGone(t *testing.T) {
	a := newAPI(t)
	alice, _ := a.token(t, "alice@example.com")
	erin, _ := a.token(t, "erin@example.com")
	res := a.create(t, alice, a.local(8, 9, 0), nil)

	rec := a.do(t, http.MethodPost, idPath(res, "/invite"), alice, map[string]any{"email": "erin@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	token := decode(t, rec)["token"].(string)

	a.now = a.now.Add(8 * 24 * time.Hour)
	rec = a.do(t, http.MethodPost, "/v1/invites/"+token+"/accept", erin, nil)
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestParticipantStatusAndMessages(t *testing.T) {
	a := newAPI(t)
	alice, _ := a.token(t, "alice@example.com")
	bob, bobID := a.token(t, "bob@example.com")
	carol, carolID := a.token(t, "carol@example.com")
	mallory, _ := a.token(t, "mallory@example.com")
	res := a.create(t, alice, a.local(9, 15, 0), map[string]any{
		"participantIds":  []string{"bob@example.com", "carol@example.com"},
		"paymentRequired": true,
		"paymentInfo":     "$10 each",
	})

	rec := a.do(t, http.MethodPut, idPath(res, "/participant-status"), bob, map[string]any{"userId": bobID, "type": "payment", "value": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["hasPaid"])

	rec = a.do(t, http.MethodPut, idPath(res, "/participant-status"), bob, map[string]any{"userId": carolID, "type": "attendance", "value": false})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodPut, idPath(res, "/participant-status"), alice, map[string]any{"userId": carolID, "type": "attendance", "value": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["isGoing"])

	rec = a.do(t, http.MethodPut, idPath(res, "/participant-status"), alice, map[string]any{"userId": carolID, "type": "vibes", "value": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, idPath(res, ""), alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode(t, rec)
	assert.EqualValues(t, 1, view["goingCount"])
	assert.EqualValues(t, 1, view["notGoingCount"])

	rec = a.do(t, http.MethodPost, idPath(res, "/messages"), carol, map[string]any{"content": "running late"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = a.do(t, http.MethodPost, idPath(res, "/messages"), carol, map[string]any{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = a.do(t, http.MethodGet, idPath(res, "/messages"), mallory, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodGet, idPath(res, "/messages"), alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "running late", msgs[0]["content"])

	// carol leaves; bob cannot remove alice's other participants.
	rec = a.do(t, http.MethodDelete, idPath(res, "/participants/"+strconv.FormatUint(carolID, 10)), bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(t, http.MethodDelete, idPath(res, "/participants/"+strconv.FormatUint(carolID, 10)), carol, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, http.MethodPost, idPath(res, "/participants"), alice, map[string]any{"email": "carol@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = a.do(t, http.MethodPost, idPath(res, "/participants"), alice, map[string]any{"email": "carol@example.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPaymentInfoRequired(t *testing.T) {
	a := newAPI(t)
	alice, _ := a.token(t, "alice@example.com")
	rec := a.do(t, http.MethodPost, "/v1/reservations", alice, map[string]any{
		"courtId":         a.court.ID,
		"startTime":       a.local(5, 8, 0).Format(time.RFC3339),
		"endTime":         a.local(5, 9, 0).Format(time.RFC3339),
		"paymentRequired": true,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "paymentInfo")
}
