package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/otp"
	"github.com/iliyamo/hotel-reservation/internal/reservation"
)

var errInvalidOTP = fmt.Errorf("invalid or expired otp: %w", reservation.ErrForbidden)

// BookingHandler serves the guest-facing room and booking endpoints.
type BookingHandler struct {
	Engine *reservation.Engine
	OTP    *otp.Issuer
	// OTPRequired makes guests present a code when recording a payment.
	OTPRequired bool
	// ExposeOTP returns issued codes in the response body.  There is no
	// SMS or mail delivery, so this is how non-production setups read them.
	ExposeOTP bool
	Log       *zap.Logger
}

func NewBookingHandler(eng *reservation.Engine, issuer *otp.Issuer, otpRequired, exposeOTP bool, log *zap.Logger) *BookingHandler {
	return &BookingHandler{Engine: eng, OTP: issuer, OTPRequired: otpRequired, ExposeOTP: exposeOTP, Log: log}
}

type createBookingReq struct {
	RoomNumber int       `json:"room_number"`
	CheckIn    timestamp `json:"check_in"`
	CheckOut   timestamp `json:"check_out"`
	RoomType   string    `json:"room_type"`
	OnBehalfOf uint64    `json:"on_behalf_of"`
}

type moveBookingReq struct {
	RoomNumber int       `json:"room_number"`
	CheckIn    timestamp `json:"check_in"`
	CheckOut   timestamp `json:"check_out"`
	RoomType   string    `json:"room_type"`
}

type paymentReq struct {
	Method string `json:"method"`
	OTP    string `json:"otp"`
}

// ListRooms returns every room.  Occupancy details of other guests'
// rooms are hidden from guests.
func (h *BookingHandler) ListRooms(c echo.Context) error {
	req, ok := requester(c)
	if !ok {
		return nil
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rooms, err := h.Engine.ListRooms(ctx, req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if t := strings.TrimSpace(c.QueryParam("type")); t != "" {
		kept := rooms[:0]
		for _, r := range rooms {
			if strings.EqualFold(r.RoomType, t) {
				kept = append(kept, r)
			}
		}
		rooms = kept
	}
	if c.QueryParam("vacant") == "true" {
		kept := rooms[:0]
		for _, r := range rooms {
			if r.Status == model.RoomVacant {
				kept = append(kept, r)
			}
		}
		rooms = kept
	}
	return c.JSON(http.StatusOK, rooms)
}

// MyBookings lists the rooms the caller occupies.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	req, ok := requester(c)
	if !ok {
		return nil
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rooms, err := h.Engine.MyBookings(ctx, req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, roomViews(rooms))
}

// CreateBooking books a vacant room for the caller, or for on_behalf_of
// when the caller is staff.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	req, ok := requester(c)
	if !ok {
		return nil
	}
	var body createBookingReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	room, err := h.Engine.CreateBooking(ctx, req, reservation.CreateBookingInput{
		RoomNumber: body.RoomNumber,
		CheckIn:    body.CheckIn.Time,
		CheckOut:   body.CheckOut.Time,
		RoomType:   body.RoomType,
		OnBehalfOf: body.OnBehalfOf,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, room.View(nil))
}

// MoveBooking relocates the caller's booking.
func (h *BookingHandler) MoveBooking(c echo.Context) error {
	req, ok := requester(c)
	if !ok {
		return nil
	}
	var body moveBookingReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	room, err := h.Engine.MoveBooking(ctx, req, reservation.MoveBookingInput{
		NewRoomNumber: body.RoomNumber,
		CheckIn:       body.CheckIn.Time,
		CheckOut:      body.CheckOut.Time,
		RoomType:      body.RoomType,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, room.View(nil))
}

// CancelBooking releases the booking held on room :id.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
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
	room, err := h.Engine.CancelBooking(ctx, req, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, room.View(nil))
}

// IssueOTP creates a payment code for the caller.
func (h *BookingHandler) IssueOTP(c echo.Context) error {
	req, ok := requester(c)
	if !ok {
		return nil
	}
	if h.OTP == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "one-time passwords are disabled"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	code, err := h.OTP.Issue(ctx, req.ID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	h.Log.Info("payment otp issued", zap.Uint64("user_id", req.ID))
	resp := echo.Map{"expires_in": int(h.OTP.TTL() / time.Second)}
	if h.ExposeOTP {
		resp["otp"] = code
	}
	return c.JSON(http.StatusCreated, resp)
}

// RecordPayment marks the caller's stay in room :number as paid.
func (h *BookingHandler) RecordPayment(c echo.Context) error {
	req, ok := requester(c)
	if !ok {
		return nil
	}
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid number"})
	}
	var body paymentReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	var gate reservation.PaymentGate
	if h.OTPRequired && req.Role == model.RoleGuest {
		if h.OTP == nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "otp unavailable"})
		}
		code := strings.TrimSpace(body.OTP)
		gate = func(ctx context.Context) error {
			valid, err := h.OTP.Verify(ctx, req.ID, code)
			if err != nil {
				return err
			}
			if !valid {
				return errInvalidOTP
			}
			return nil
		}
	}

	room, err := h.Engine.RecordPaymentWith(ctx, req, number, body.Method, gate)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, room.View(nil))
}
