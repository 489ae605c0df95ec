package reservation

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/policy"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/store"
)

// NewRoomInput provisions a room.  Floor defaults to Number/100 when
// zero, matching the hotel's numbering scheme.
type NewRoomInput struct {
	Number   int
	RoomType string
	Floor    int
}

// RoomDetailsInput changes room attributes.  Nil fields stay as they are.
type RoomDetailsInput struct {
	RoomType *string
	Floor    *int
}

// NewUserInput creates an account on behalf of an admin.  PasswordHash
// must already be hashed.
type NewUserInput struct {
	Name         string
	Email        string
	PasswordHash string
	Role         model.Role
	Address      string
	Age          int
	Contact      string
}

// UserPatch is a partial update of a user account.
type UserPatch struct {
	Name    *string
	Email   *string
	Address *string
	Contact *string
	Age     *int
	Role    *model.Role
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// AddRoom provisions a new vacant room.
func (e *Engine) AddRoom(ctx context.Context, actor Requester, in NewRoomInput) (model.Room, error) {
	if in.Number <= 0 {
		return model.Room{}, invalid("room number must be positive")
	}
	in.RoomType = strings.TrimSpace(in.RoomType)
	if in.RoomType == "" {
		return model.Room{}, invalid("room_type is required")
	}
	if in.Floor < 0 {
		return model.Room{}, invalid("floor must not be negative")
	}
	if in.Floor == 0 {
		in.Floor = in.Number / 100
	}
	if err := policy.Authorize(actor, policy.OpAddRoom, policy.None); err != nil {
		return model.Room{}, err
	}

	room := model.Room{
		Number:        in.Number,
		RoomType:      in.RoomType,
		Floor:         in.Floor,
		Status:        model.RoomVacant,
		PaymentStatus: model.PaymentPending,
	}
	err := e.run(ctx, func(tx store.Tx, fx *effects) error {
		if err := tx.Rooms().Insert(ctx, &room); err != nil {
			return fmt.Errorf("room %d: %w", in.Number, err)
		}
		fx.audit(actor, model.ActionAddRoom, intPtr(room.Number), nil,
			fmt.Sprintf("added %s room %d on floor %d", room.RoomType, room.Number, room.Floor))
		return nil
	})
	return room, err
}

// EditRoom changes the type or floor of a room without touching its
// booking.
func (e *Engine) EditRoom(ctx context.Context, actor Requester, roomID uint64, in RoomDetailsInput) (model.Room, error) {
	if in.RoomType == nil && in.Floor == nil {
		return model.Room{}, invalid("no changes requested")
	}
	if in.RoomType != nil && strings.TrimSpace(*in.RoomType) == "" {
		return model.Room{}, invalid("room_type must not be empty")
	}
	if in.Floor != nil && *in.Floor < 0 {
		return model.Room{}, invalid("floor must not be negative")
	}
	if err := policy.Authorize(actor, policy.OpEditRoom, policy.None); err != nil {
		return model.Room{}, err
	}

	var out model.Room
	err := e.run(ctx, func(tx store.Tx, fx *effects) error {
		room, err := tx.Rooms().Get(ctx, roomID)
		if err != nil {
			return fmt.Errorf("room id %d: %w", roomID, err)
		}
		rt, fl := room.RoomType, room.Floor
		if in.RoomType != nil {
			rt = strings.TrimSpace(*in.RoomType)
		}
		if in.Floor != nil {
			fl = *in.Floor
		}
		out, err = tx.Rooms().Apply(ctx, room.ID, store.SetDetails(rt, fl))
		if err != nil {
			return err
		}
		fx.audit(actor, model.ActionEditRoom, intPtr(out.Number), nil,
			fmt.Sprintf("edited room %d: type %s floor %d", out.Number, rt, fl))
		return nil
	})
	return out, err
}

// EditUser applies patch to the account userID.  Guests may only edit
// themselves; managers may also edit guests; role changes are admin
// only.  Privileged edits of another account are audited.
func (e *Engine) EditUser(ctx context.Context, actor Requester, userID uint64, patch UserPatch) (model.User, error) {
	if err := patch.validate(); err != nil {
		return model.User{}, err
	}
	if !actor.Role.Privileged() {
		if err := policy.Authorize(actor, policy.OpEditUser, policy.Ownership{TargetUser: &userID}); err != nil {
			return model.User{}, err
		}
	}

	var out model.User
	err := e.run(ctx, func(tx store.Tx, fx *effects) error {
		u, err := tx.Users().Get(ctx, userID)
		if err != nil {
			return fmt.Errorf("user %d: %w", userID, err)
		}
		own := policy.OfUser(u)
		own.RoleChange = patch.Role != nil && *patch.Role != u.Role
		if err := policy.Authorize(actor, policy.OpEditUser, own); err != nil {
			return err
		}

		var changed []string
		if patch.Name != nil {
			u.Name = strings.TrimSpace(*patch.Name)
			changed = append(changed, "name")
		}
		if patch.Email != nil {
			u.Email = strings.ToLower(strings.TrimSpace(*patch.Email))
			changed = append(changed, "email")
		}
		if patch.Address != nil {
			u.Address = *patch.Address
			changed = append(changed, "address")
		}
		if patch.Contact != nil {
			u.Contact = *patch.Contact
			changed = append(changed, "contact")
		}
		if patch.Age != nil {
			u.Age = *patch.Age
			changed = append(changed, "age")
		}
		if own.RoleChange {
			u.Role = *patch.Role
			changed = append(changed, "role="+u.Role.String())
		}
		if err := tx.Users().Update(ctx, u); err != nil {
			return fmt.Errorf("user %d: %w", userID, err)
		}
		out, err = tx.Users().Get(ctx, userID)
		if err != nil {
			return err
		}
		if userID != actor.ID {
			fx.audit(actor, model.ActionEditUser, nil, uint64Ptr(userID),
				fmt.Sprintf("edited user %d: %s", userID, strings.Join(changed, ", ")))
		}
		return nil
	})
	return out, err
}

func (p UserPatch) validate() error {
	if p.Name == nil && p.Email == nil && p.Address == nil && p.Contact == nil && p.Age == nil && p.Role == nil {
		return invalid("no changes requested")
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return invalid("name must not be empty")
	}
	if p.Email != nil && !validEmail(strings.ToLower(strings.TrimSpace(*p.Email))) {
		return invalid("invalid email %q", *p.Email)
	}
	if p.Age != nil && (*p.Age < 0 || *p.Age > 150) {
		return invalid("age out of range")
	}
	if p.Role != nil {
		if _, err := model.ParseRole(string(*p.Role)); err != nil {
			return invalid("%v", err)
		}
	}
	return nil
}

func (in *NewUserInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" {
		return invalid("name is required")
	}
	if !validEmail(in.Email) {
		return invalid("invalid email %q", in.Email)
	}
	if in.PasswordHash == "" {
		return invalid("password is required")
	}
	if in.Role == "" {
		in.Role = model.RoleGuest
	}
	if in.Role != model.RoleGuest && in.Role != model.RoleManager {
		return invalid("role must be GUEST or MANAGER")
	}
	if in.Age < 0 || in.Age > 150 {
		return invalid("age out of range")
	}
	return nil
}

// Register opens a guest account for an anonymous caller.  Self sign-up
// is not audited.
func (e *Engine) Register(ctx context.Context, in NewUserInput) (model.User, error) {
	in.Role = model.RoleGuest
	if err := in.normalize(); err != nil {
		return model.User{}, err
	}
	u := in.user()
	err := e.run(ctx, func(tx store.Tx, _ *effects) error {
		if err := tx.Users().Create(ctx, &u); err != nil {
			return fmt.Errorf("user %s: %w", u.Email, err)
		}
		return nil
	})
	return u, err
}

func (in NewUserInput) user() model.User {
	return model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		Address:      in.Address,
		Age:          in.Age,
		Contact:      in.Contact,
	}
}

// CreateUser lets an admin open a guest or manager account.
func (e *Engine) CreateUser(ctx context.Context, actor Requester, in NewUserInput) (model.User, error) {
	if err := in.normalize(); err != nil {
		return model.User{}, err
	}
	if err := policy.Authorize(actor, policy.OpCreateUser, policy.None); err != nil {
		return model.User{}, err
	}

	u := in.user()
	err := e.run(ctx, func(tx store.Tx, fx *effects) error {
		if err := tx.Users().Create(ctx, &u); err != nil {
			return fmt.Errorf("user %s: %w", u.Email, err)
		}
		fx.audit(actor, model.ActionEditUser, nil, uint64Ptr(u.ID),
			fmt.Sprintf("created %s account %s", u.Role, u.Email))
		return nil
	})
	return u, err
}

// DeleteUser removes a user.  Rooms the user still occupies are
// released in the same transaction when cascade is set; otherwise the
// call fails with ErrCascadeRequired.  The released rooms are returned.
func (e *Engine) DeleteUser(ctx context.Context, actor Requester, userID uint64, cascade bool) ([]model.Room, error) {
	if err := policy.Authorize(actor, policy.OpDeleteUser, policy.Ownership{TargetUser: &userID}); err != nil {
		return nil, err
	}
	var released []model.Room
	err := e.run(ctx, func(tx store.Tx, fx *effects) error {
		released = nil
		u, err := tx.Users().Get(ctx, userID)
		if err != nil {
			return fmt.Errorf("user %d: %w", userID, err)
		}
		held, err := tx.Rooms().ListByOccupant(ctx, userID)
		if err != nil {
			return err
		}
		if len(held) > 0 && !cascade {
			return fmt.Errorf("user %d holds %d room(s): %w", userID, len(held), ErrCascadeRequired)
		}
		numbers := make([]string, 0, len(held))
		for _, h := range held {
			r, err := tx.Rooms().Apply(ctx, h.ID, store.Vacate())
			if err != nil {
				return err
			}
			released = append(released, r)
			numbers = append(numbers, fmt.Sprint(r.Number))
			fx.event(actor, queue.EventBookingCancelled, r, userID, nil)
		}
		if err := tx.Users().Delete(ctx, userID); err != nil {
			return fmt.Errorf("user %d: %w", userID, err)
		}
		desc := fmt.Sprintf("deleted user %d (%s)", userID, u.Email)
		if len(numbers) > 0 {
			desc += ", released rooms " + strings.Join(numbers, ",")
		}
		fx.audit(actor, model.ActionDeleteUser, nil, uint64Ptr(userID), desc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// ListUsers returns every account ordered by id.
func (e *Engine) ListUsers(ctx context.Context, actor Requester) ([]model.User, error) {
	if err := policy.Authorize(actor, policy.OpListUsers, policy.None); err != nil {
		return nil, err
	}
	users, err := e.store.Users().List(ctx)
	return users, classify(err)
}

// Me returns the requester's own account.
func (e *Engine) Me(ctx context.Context, req Requester) (model.User, error) {
	u, err := e.store.Users().Get(ctx, req.ID)
	return u, classify(err)
}
