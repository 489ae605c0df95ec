package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/reservation"
)

// statusOf maps the engine's error taxonomy onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, reservation.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, reservation.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, reservation.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, reservation.ErrConflict), errors.Is(err, reservation.ErrCascadeRequired):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error": ...}.  Server-side failures are
// logged with their cause and reported without it.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		if log != nil {
			log.Error("request failed",
				zap.String("route", c.Path()),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.Error(err))
		}
		return c.JSON(status, echo.Map{"error": http.StatusText(status)})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}
