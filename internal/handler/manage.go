package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/reservation"
)

// ManageHandler serves staff endpoints: booking edits, payment approval,
// user maintenance and the audit trail.  Admin-only operations live on
// the same handler.
type ManageHandler struct {
	Engine     *reservation.Engine
	BcryptCost int
	Log        *zap.Logger
}

func NewManageHandler(eng *reservation.Engine, bcryptCost int, log *zap.Logger) *ManageHandler {
	return &ManageHandler{Engine: eng, BcryptCost: bcryptCost, Log: log}
}

type editBookingReq struct {
	CheckIn          *timestamp `json:"check_in"`
	CheckOut         *timestamp `json:"check_out"`
	OccupantID       *uint64    `json:"occupant_id"`
	RoomType         *string    `json:"room_type"`
	Floor            *int       `json:"floor"`
	TargetRoomNumber *int       `json:"target_room_number"`
	Release          bool       `json:"release"`
}

type userPatchReq struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
	Contact *string `json:"contact"`
	Age     *int    `json:"age"`
	Role    *string `json:"role"`
}

func (r userPatchReq) patch() (reservation.UserPatch, error) {
	p := reservation.UserPatch{
		Name:    r.Name,
		Email:   r.Email,
		Address: r.Address,
		Contact: r.Contact,
		Age:     r.Age,
	}
	if r.Role != nil {
		role, err := model.ParseRole(*r.Role)
		if err != nil {
			return p, err
		}
		p.Role = &role
	}
	return p, nil
}

// EditBooking applies a staff edit to the booking on room :id.
func (h *ManageHandler) EditBooking(c echo.Context) error {
	req, ok := requester(c)
	if !ok {
		return nil
	}
	id, ok := idParam(c, "id")
	if !ok {
		return nil
	}
	var body editBookingReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	room, err := h.Engine.ManagerEditBooking(ctx, req, id, reservation.EditBookingInput{
		CheckIn:          body.CheckIn.ptr(),
		CheckOut:         body.CheckOut.ptr(),
		Occupant:         body.OccupantID,
		RoomType:         body.RoomType,
		Floor:            body.Floor,
		TargetRoomNumber: body.TargetRoomNumber,
		Release:          body.Release,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, room.View(nil))
}

// ApprovePayment marks the stay on room :id as paid.
func (h *ManageHandler) ApprovePayment(c echo.Context) error {
	req, ok := requester(c)
	if !ok {
		return nil
	}
	id, ok := idParam(c, "id")
	if !ok {
		return nil
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	room, err := h.Engine.ApprovePayment(ctx, req, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, room.View(nil))
}

// EditUser patches account :id.
func (h *ManageHandler) EditUser(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return nil
	}
	return h.editUser(c, id)
}

// UpdateMe patches the caller's own account.
func (h *ManageHandler) UpdateMe(c echo.Context) error {
	req, ok := requester(c)
	if !ok {
		return nil
	}
	return h.editUser(c, req.ID)
}

func (h *ManageHandler) editUser(c echo.Context, id uint64) error {
	req, ok := requester(c)
	if !ok {
		return nil
	}
	var body userPatchReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	patch, err := body.patch()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Engine.EditUser(ctx, req, id, patch)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// ListUsers returns every account.
func (h *ManageHandler) ListUsers(c echo.Context) error {
	req, ok := requester(c)
	if !ok {
		return nil
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, err := h.Engine.ListUsers(ctx, req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	out := make([]userResp, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResp(u))
	}
	return c.JSON(http.StatusOK, out)
}

// ListActions returns the newest audit entries, ?limit= capped by the
// engine.
func (h *ManageHandler) ListActions(c echo.Context) error {
	req, ok := requester(c)
	if !ok {
		return nil
	}
	limit := 0
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = n
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	entries, err := h.Engine.ListRecentActions(ctx, req, limit)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, entries)
}
