package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/reservation"
	"github.com/iliyamo/hotel-reservation/internal/utils"
)

type newRoomReq struct {
	Number   int    `json:"number"`
	RoomType string `json:"room_type"`
	Floor    int    `json:"floor"`
}

type roomDetailsReq struct {
	RoomType *string `json:"room_type"`
	Floor    *int    `json:"floor"`
}

type newUserReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Address  string `json:"address"`
	Age      int    `json:"age"`
	Contact  string `json:"contact"`
}

// AddRoom provisions a room.
func (h *ManageHandler) AddRoom(c echo.Context) error {
	req, ok := requester(c)
	if !ok {
		return nil
	}
	var body newRoomReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	room, err := h.Engine.AddRoom(ctx, req, reservation.NewRoomInput{
		Number:   body.Number,
		RoomType: body.RoomType,
		Floor:    body.Floor,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, room.View(nil))
}

// EditRoom changes the type or floor of room :id.
func (h *ManageHandler) EditRoom(c echo.Context) error {
	req, ok := requester(c)
	if !ok {
		return nil
	}
	id, ok := idParam(c, "id")
	if !ok {
		return nil
	}
	var body roomDetailsReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	room, err := h.Engine.EditRoom(ctx, req, id, reservation.RoomDetailsInput{
		RoomType: body.RoomType,
		Floor:    body.Floor,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, room.View(nil))
}

// CreateUser opens a guest or manager account.
func (h *ManageHandler) CreateUser(c echo.Context) error {
	req, ok := requester(c)
	if !ok {
		return nil
	}
	var body newUserReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(body.Password) < minPasswordLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 6 characters"})
	}
	var role model.Role
	if body.Role != "" {
		r, err := model.ParseRole(body.Role)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		role = r
	}
	hash, err := utils.HashPassword(body.Password, h.BcryptCost)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Engine.CreateUser(ctx, req, reservation.NewUserInput{
		Name:         body.Name,
		Email:        body.Email,
		PasswordHash: hash,
		Role:         role,
		Address:      body.Address,
		Age:          body.Age,
		Contact:      body.Contact,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toUserResp(u))
}

// DeleteUser removes account :id.  ?cascade=true releases the rooms it
// still holds.
func (h *ManageHandler) DeleteUser(c echo.Context) error {
	req, ok := requester(c)
	if !ok {
		return nil
	}
	id, ok := idParam(c, "id")
	if !ok {
		return nil
	}
	cascade := c.QueryParam("cascade") == "true"
	ctx, cancel := reqCtx(c)
	defer cancel()
	released, err := h.Engine.DeleteUser(ctx, req, id, cascade)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": id, "released_rooms": roomViews(released)})
}
