package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/database"
	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/otp"
	"github.com/iliyamo/hotel-reservation/internal/reservation"
	"github.com/iliyamo/hotel-reservation/internal/store/memory"
	"github.com/iliyamo/hotel-reservation/internal/utils"
)

type api struct {
	t     *testing.T
	e     *echo.Echo
	st    *memory.Store
	admin string
}

func newAPI(t *testing.T, otpRequired bool) *api {
	t.Helper()
	ctx := context.Background()
	cfg := config.Config{JWTSecret: "test-secret", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
	st := memory.New()
	hash, err := utils.HashPassword("admin-pass", cfg.BcryptCost)
	require.NoError(t, err)
	require.NoError(t, database.Seed(ctx, st, database.Admin{Name: "Admin", Email: "admin@example.com", PasswordHash: hash}, nil))

	log := zap.NewNop()
	eng := reservation.New(st, reservation.WithLogger(log))
	issuer := otp.NewIssuer(otp.NewMemoryStore(), time.Minute)
	e := New(Deps{
		Auth:      handler.NewAuthHandler(cfg, eng, st.Users(), memory.NewTokens(), log),
		Booking:   handler.NewBookingHandler(eng, issuer, otpRequired, true, log),
		Manage:    handler.NewManageHandler(eng, cfg.BcryptCost, log),
		JWTSecret: cfg.JWTSecret,
		Log:       log,
	})
	a := &api{t: t, e: e, st: st}
	a.admin = a.login("admin@example.com", "admin-pass")
	return a
}

func (a *api) call(method, path, token string, body any) (int, map[string]any) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	var out map[string]any
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func (a *api) list(path, token string) (int, []map[string]any) {
	a.t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	var out []map[string]any
	if rec.Code == http.StatusOK {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func (a *api) login(email, password string) string {
	a.t.Helper()
	code, body := a.call(http.MethodPost, "/v1/auth/login", "", echo.Map{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, code, "login %s: %v", email, body)
	return body["access"].(map[string]any)["token"].(string)
}

func (a *api) register(name string) (string, uint64) {
	a.t.Helper()
	code, body := a.call(http.MethodPost, "/v1/auth/register", "", echo.Map{
		"name": name, "email": name + "@example.com", "password": "secret1", "age": 30,
	})
	require.Equal(a.t, http.StatusCreated, code, "register %s: %v", name, body)
	user := body["user"].(map[string]any)
	assert.Equal(a.t, "GUEST", user["role"])
	return body["access"].(map[string]any)["token"].(string), uint64(user["id"].(float64))
}

func (a *api) roomID(number int) uint64 {
	a.t.Helper()
	r, err := a.st.Rooms().GetByNumber(context.Background(), number)
	require.NoError(a.t, err)
	return r.ID
}

var stay = echo.Map{"check_in": "2024-06-01T14:00:00Z", "check_out": "2024-06-03T11:00:00Z"}

func booking(number int) echo.Map {
	return echo.Map{"room_number": number, "check_in": stay["check_in"], "check_out": stay["check_out"]}
}

func TestHealth(t *testing.T) {
	a := newAPI(t, false)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	code, body := a.call(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body["status"])
}

func TestAuthFlow(t *testing.T) {
	a := newAPI(t, false)

	code, _ := a.call(http.MethodPost, "/v1/auth/register", "", echo.Map{"name": "x", "email": "x@example.com", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, code)

	a.register("ana")
	code, _ = a.call(http.MethodPost, "/v1/auth/register", "", echo.Map{"name": "Ana", "email": "ANA@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = a.call(http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "ana@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := a.call(http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "ana@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, code)
	access := body["access"].(map[string]any)["token"].(string)
	refresh := body["refresh"].(map[string]any)["token"].(string)

	code, me := a.call(http.MethodGet, "/v1/me", access, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ana@example.com", me["email"])
	assert.NotContains(t, me, "password_hash")

	code, _ = a.call(http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = a.call(http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, code)
	rotated := body["refresh"].(map[string]any)["token"].(string)
	assert.NotEqual(t, refresh, rotated)

	code, _ = a.call(http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, code, "old refresh token is revoked")

	code, _ = a.call(http.MethodPost, "/v1/auth/logout", "", echo.Map{"refresh_token": rotated})
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = a.call(http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": rotated})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.call(http.MethodPost, "/v1/auth/logout", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestBookingLifecycle(t *testing.T) {
	a := newAPI(t, false)
	ana, _ := a.register("ana")
	ben, _ := a.register("ben")

	code, room := a.call(http.MethodPost, "/v1/bookings", ana, booking(101))
	require.Equal(t, http.StatusCreated, code, "%v", room)
	assert.Equal(t, "booked", room["status"])
	assert.Equal(t, "pending", room["payment_status"])

	code, _ = a.call(http.MethodPost, "/v1/bookings", ben, booking(101))
	assert.Equal(t, http.StatusConflict, code)

	code, _ = a.call(http.MethodPost, "/v1/bookings", ben, echo.Map{
		"room_number": 102, "check_in": "2024-06-03", "check_out": "2024-06-01",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.call(http.MethodPost, "/v1/bookings", ben, booking(999))
	assert.Equal(t, http.StatusNotFound, code)

	code, rooms := a.list("/v1/my-bookings", ana)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, rooms, 1)
	assert.EqualValues(t, 101, rooms[0]["number"])

	code, room = a.call(http.MethodPut, "/v1/bookings/mine", ana, booking(201))
	require.Equal(t, http.StatusOK, code, "%v", room)
	assert.EqualValues(t, 201, room["number"])

	code, rooms = a.list("/v1/rooms?vacant=true", ana)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, rooms, 15)

	code, _ = a.call(http.MethodDelete, fmt.Sprintf("/v1/rooms/%d/booking", a.roomID(201)), ben, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.call(http.MethodPost, "/v1/rooms/201/payment", ana, echo.Map{"method": "bitcoin"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, room = a.call(http.MethodPost, "/v1/rooms/201/payment", ana, echo.Map{"method": "Card"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "paid", room["payment_status"])

	code, room = a.call(http.MethodDelete, fmt.Sprintf("/v1/rooms/%d/booking", a.roomID(201)), ana, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "vacant", room["status"])

	code, _ = a.call(http.MethodDelete, fmt.Sprintf("/v1/rooms/%d/booking", a.roomID(201)), ana, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = a.call(http.MethodDelete, "/v1/rooms/abc/booking", ana, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPaymentRequiresOTP(t *testing.T) {
	a := newAPI(t, true)
	ana, _ := a.register("ana")
	code, _ := a.call(http.MethodPost, "/v1/bookings", ana, booking(103))
	require.Equal(t, http.StatusCreated, code)

	code, _ = a.call(http.MethodPost, "/v1/rooms/103/payment", ana, echo.Map{"method": "cash"})
	assert.Equal(t, http.StatusForbidden, code)

	code, body := a.call(http.MethodPost, "/v1/payments/otp", ana, nil)
	require.Equal(t, http.StatusCreated, code)
	assert.EqualValues(t, 60, body["expires_in"])
	otpCode := body["otp"]

	// Rejected payments leave the code usable.
	code, _ = a.call(http.MethodPost, "/v1/rooms/103/payment", ana, echo.Map{"method": "bitcoin", "otp": otpCode})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.call(http.MethodPost, "/v1/rooms/104/payment", ana, echo.Map{"method": "cash", "otp": otpCode})
	assert.Equal(t, http.StatusNotFound, code)

	code, room := a.call(http.MethodPost, "/v1/rooms/103/payment", ana, echo.Map{"method": "cash", "otp": otpCode})
	require.Equal(t, http.StatusOK, code, "%v", room)
	assert.Equal(t, "paid", room["payment_status"])

	code, _ = a.call(http.MethodPost, "/v1/bookings", ana, booking(203))
	require.Equal(t, http.StatusCreated, code)
	code, body = a.call(http.MethodPost, "/v1/rooms/203/payment", ana, echo.Map{"method": "cash", "otp": otpCode})
	assert.Equal(t, http.StatusForbidden, code, "codes are single use")
	assert.Contains(t, body["error"], "invalid or expired otp")
}

func TestRoomListingHidesOtherGuests(t *testing.T) {
	a := newAPI(t, false)
	ana, _ := a.register("ana")
	ben, _ := a.register("ben")
	code, _ := a.call(http.MethodPost, "/v1/bookings", ana, booking(101))
	require.Equal(t, http.StatusCreated, code)
	code, _ = a.call(http.MethodPost, "/v1/bookings", ben, booking(102))
	require.Equal(t, http.StatusCreated, code)

	byNumber := func(rooms []map[string]any) map[float64]map[string]any {
		out := map[float64]map[string]any{}
		for _, r := range rooms {
			out[r["number"].(float64)] = r
		}
		return out
	}

	code, rooms := a.list("/v1/rooms", ben)
	require.Equal(t, http.StatusOK, code)
	seen := byNumber(rooms)
	assert.Equal(t, "booked", seen[101]["status"])
	for _, field := range []string{"occupant_id", "occupant_name", "check_in", "check_out", "payment_status"} {
		assert.NotContains(t, seen[101], field)
	}
	assert.Equal(t, "ben", seen[102]["occupant_name"])
	assert.Equal(t, stay["check_in"], seen[102]["check_in"])

	code, rooms = a.list("/v1/rooms", a.admin)
	require.Equal(t, http.StatusOK, code)
	seen = byNumber(rooms)
	assert.Equal(t, "ana", seen[101]["occupant_name"])
	assert.Equal(t, "ben", seen[102]["occupant_name"])
}

func TestStaffEndpoints(t *testing.T) {
	a := newAPI(t, false)
	ana, anaID := a.register("ana")

	code, _ := a.call(http.MethodGet, "/v1/manage/actions", ana, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = a.call(http.MethodPost, "/v1/admin/rooms", ana, echo.Map{"number": 501, "room_type": "Suite"})
	assert.Equal(t, http.StatusForbidden, code)

	code, mgr := a.call(http.MethodPost, "/v1/admin/users", a.admin, echo.Map{
		"name": "Mia", "email": "mia@example.com", "password": "secret1", "role": "manager",
	})
	require.Equal(t, http.StatusCreated, code, "%v", mgr)
	assert.Equal(t, "MANAGER", mgr["role"])
	manager := a.login("mia@example.com", "secret1")

	code, _ = a.call(http.MethodPost, "/v1/admin/rooms", manager, echo.Map{"number": 501, "room_type": "Suite"})
	assert.Equal(t, http.StatusForbidden, code)
	code, room := a.call(http.MethodPost, "/v1/admin/rooms", a.admin, echo.Map{"number": 501, "room_type": "Suite"})
	require.Equal(t, http.StatusCreated, code)
	assert.EqualValues(t, 5, room["floor"])
	code, _ = a.call(http.MethodPost, "/v1/admin/rooms", a.admin, echo.Map{"number": 501, "room_type": "Suite"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = a.call(http.MethodPost, "/v1/bookings", manager, echo.Map{
		"room_number": 102, "check_in": "2024-06-01", "check_out": "2024-06-04", "on_behalf_of": anaID,
	})
	require.Equal(t, http.StatusCreated, code)

	id102 := a.roomID(102)
	code, room = a.call(http.MethodPatch, fmt.Sprintf("/v1/manage/rooms/%d/booking", id102), manager, echo.Map{
		"check_out": "2024-06-05",
	})
	require.Equal(t, http.StatusOK, code, "%v", room)
	assert.Equal(t, "2024-06-05T00:00:00Z", room["check_out"])

	code, room = a.call(http.MethodPost, fmt.Sprintf("/v1/manage/rooms/%d/approve-payment", id102), manager, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "paid", room["payment_status"])
	code, _ = a.call(http.MethodPost, fmt.Sprintf("/v1/manage/rooms/%d/approve-payment", id102), manager, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, user := a.call(http.MethodPatch, fmt.Sprintf("/v1/manage/users/%d", anaID), manager, echo.Map{"contact": "0917"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0917", user["contact"])
	code, _ = a.call(http.MethodPatch, "/v1/users/me", ana, echo.Map{"role": "ADMIN"})
	assert.Equal(t, http.StatusForbidden, code)

	code, entries := a.list("/v1/manage/actions?limit=2", manager)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, entries, 2)
	assert.Equal(t, string(model.ActionEditUser), entries[0]["action_type"])

	code, _ = a.call(http.MethodDelete, fmt.Sprintf("/v1/admin/users/%d", anaID), a.admin, nil)
	assert.Equal(t, http.StatusConflict, code)
	code, body := a.call(http.MethodDelete, fmt.Sprintf("/v1/admin/users/%d?cascade=true", anaID), a.admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["released_rooms"], 1)

	code, users := a.list("/v1/manage/users", manager)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, users, 2)
}
