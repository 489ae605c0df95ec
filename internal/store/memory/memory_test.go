package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/store"
)

func seed(t *testing.T) (*Store, model.Room, model.User) {
	t.Helper()
	s := New()
	ctx := context.Background()
	room := model.Room{Number: 101, RoomType: "Executive", Floor: 1}
	require.NoError(t, s.Rooms().Insert(ctx, &room))
	u := model.User{Name: "Guest", Email: "Guest@Example.com", Role: model.RoleGuest}
	require.NoError(t, s.Users().Create(ctx, &u))
	return s, room, u
}

func TestInsertRejectsDuplicateNumber(t *testing.T) {
	s, _, _ := seed(t)
	err := s.Rooms().Insert(context.Background(), &model.Room{Number: 101})
	assert.ErrorIs(t, err, store.ErrDuplicateRoomNumber)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestCreateUserNormalizesEmail(t *testing.T) {
	s, _, u := seed(t)
	assert.Equal(t, "guest@example.com", u.Email)
	err := s.Users().Create(context.Background(), &model.User{Email: "GUEST@example.com"})
	assert.ErrorIs(t, err, store.ErrEmailExists)
}

func TestAtomicRollsBackOnError(t *testing.T) {
	s, room, u := seed(t)
	ctx := context.Background()
	stay := model.Stay{CheckIn: time.Now(), CheckOut: time.Now().Add(24 * time.Hour)}

	boom := errors.New("boom")
	err := s.Atomic(ctx, func(tx store.Tx) error {
		if _, err := tx.Rooms().Apply(ctx, room.ID, store.Occupy(u.ID, stay)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Rooms().Get(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomVacant, got.Status)
	assert.True(t, got.Consistent())
}

func TestApplyGuards(t *testing.T) {
	s, room, u := seed(t)
	ctx := context.Background()
	other := model.User{Name: "Other", Email: "other@example.com", Role: model.RoleGuest}
	require.NoError(t, s.Users().Create(ctx, &other))
	stay := model.Stay{CheckIn: time.Now(), CheckOut: time.Now().Add(24 * time.Hour)}

	_, err := s.Rooms().Apply(ctx, room.ID, store.Vacate())
	assert.ErrorIs(t, err, store.ErrNotBooked)
	assert.ErrorIs(t, err, store.ErrNotFound)

	booked, err := s.Rooms().Apply(ctx, room.ID, store.Occupy(u.ID, stay))
	require.NoError(t, err)
	assert.True(t, booked.HeldBy(u.ID))
	assert.True(t, booked.Consistent())

	_, err = s.Rooms().Apply(ctx, room.ID, store.Occupy(other.ID, stay))
	assert.ErrorIs(t, err, store.ErrConflict)

	assert.ErrorIs(t, s.Users().Delete(ctx, u.ID), store.ErrConflict)

	_, err = s.Rooms().Apply(ctx, room.ID, store.Vacate())
	require.NoError(t, err)
	assert.NoError(t, s.Users().Delete(ctx, u.ID))
}

func TestAuditListRecentNewestFirst(t *testing.T) {
	a := NewAuditLog()
	ctx := context.Background()
	for _, act := range []model.ActionType{model.ActionAddRoom, model.ActionEditRoom, model.ActionCancelBooking} {
		require.NoError(t, a.Append(ctx, &model.AuditEntry{ActorID: 1, Action: act}))
	}
	got, err := a.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.ActionCancelBooking, got[0].Action)
	assert.Equal(t, model.ActionEditRoom, got[1].Action)
	assert.Equal(t, 3, a.Len())
}
