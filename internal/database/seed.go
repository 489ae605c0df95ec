package database

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/store"
)

// SeedRooms is the initial room inventory: four room types, one of each
// per floor.
var SeedRooms = map[string][]int{
	"Executive": {101, 201, 301, 401},
	"Deluxe":    {102, 202, 302, 402},
	"Standard":  {103, 203, 303, 403},
	"Family":    {104, 204, 304, 404},
}

// Admin describes the bootstrap administrator account.
type Admin struct {
	Name         string
	Email        string
	PasswordHash string
}

// Seed creates the administrator when no account with its email exists
// and provisions every room in SeedRooms that is missing.  It is safe to
// run repeatedly.
func Seed(ctx context.Context, st store.Store, admin Admin, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if admin.Email != "" {
		_, err := st.Users().GetByEmail(ctx, admin.Email)
		switch {
		case errors.Is(err, store.ErrNotFound):
			u := model.User{Name: admin.Name, Email: admin.Email, PasswordHash: admin.PasswordHash, Role: model.RoleAdmin}
			if err := st.Users().Create(ctx, &u); err != nil && !errors.Is(err, store.ErrEmailExists) {
				return fmt.Errorf("seed admin: %w", err)
			}
			logger.Info("seeded admin account", zap.String("email", u.Email), zap.Uint64("id", u.ID))
		case err != nil:
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	added := 0
	for roomType, numbers := range SeedRooms {
		for _, n := range numbers {
			room := model.Room{Number: n, RoomType: roomType, Floor: n / 100}
			err := st.Rooms().Insert(ctx, &room)
			if errors.Is(err, store.ErrDuplicateRoomNumber) {
				continue
			}
			if err != nil {
				return fmt.Errorf("seed room %d: %w", n, err)
			}
			added++
		}
	}
	if added > 0 {
		logger.Info("seeded rooms", zap.Int("count", added))
	}
	return nil
}
