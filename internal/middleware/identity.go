package middleware

// identity.go holds the context keys JWTAuth fills in and the helpers that
// read them back.  Handlers and other middleware go through these helpers
// instead of asserting on c.Get values themselves.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/policy"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// Requester returns the authenticated caller.  ok is false on routes
// that did not pass through JWTAuth.
func Requester(c echo.Context) (policy.Requester, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	if !ok || id == 0 {
		return policy.Requester{}, false
	}
	role, ok := c.Get(ctxRole).(model.Role)
	if !ok {
		return policy.Requester{}, false
	}
	return policy.Requester{ID: id, Role: role}, true
}

// userKey identifies the caller for rate limiting; "anon" when the
// request is not authenticated.
func userKey(c echo.Context) string {
	if req, ok := Requester(c); ok {
		return strconv.FormatUint(req.ID, 10)
	}
	return "anon"
}
