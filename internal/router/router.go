package router // package router defines how HTTP routes are registered for the API

import (
	"context"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/handler"    // handlers that translate HTTP into engine calls
	"github.com/iliyamo/hotel-reservation/internal/middleware" // JWT authentication, role gates, cache and rate limiting
	"github.com/iliyamo/hotel-reservation/internal/model"
)

// Deps is everything the HTTP layer needs.  Redis may be nil, in which
// case caching and rate limiting are disabled.
type Deps struct {
	Auth      *handler.AuthHandler
	Booking   *handler.BookingHandler
	Manage    *handler.ManageHandler
	JWTSecret string
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Redis     *redis.Client
	Ready     map[string]handler.Pinger
	Log       *zap.Logger
}

// New builds the Echo instance with the global middleware chain and every
// route registered.
func New(d Deps) *echo.Echo {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log))

	ready := d.Ready
	if d.Redis != nil {
		ready = make(map[string]handler.Pinger, len(d.Ready)+1)
		for k, v := range d.Ready {
			ready[k] = v
		}
		ready["redis"] = redisPinger{d.Redis}
	}
	RegisterRoutes(e, ready)
	RegisterAuth(e, d.Auth)
	RegisterAPI(e, d)
	return e
}

// RegisterRoutes registers routes that do not require authentication:
// liveness and readiness probes.
func RegisterRoutes(e *echo.Echo, ready map[string]handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(ready))
}

// RegisterAuth registers the session endpoints under /v1/auth.  None of
// them require an access token; logout accepts either a refresh token or
// a bearer header.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh) // rotates the refresh token
	g.POST("/logout", a.Logout)
	// Also reachable at the top level for older clients.
	e.POST("/v1/logout", a.Logout)
}

// RegisterAPI registers the authenticated endpoints.  Every successful
// write on these routes purges the response cache.
func RegisterAPI(e *echo.Echo, d Deps) {
	v1 := e.Group("/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.InvalidateCache(d.Cache, d.Redis, d.Log))

	b, m := d.Booking, d.Manage

	// Any role.
	v1.GET("/me", d.Auth.Me)
	v1.PATCH("/users/me", m.UpdateMe)
	v1.GET("/rooms", b.ListRooms, middleware.NewRedisCache(d.Cache, d.Redis, d.Log))
	v1.GET("/my-bookings", b.MyBookings)
	v1.POST("/bookings", b.CreateBooking)
	v1.PUT("/bookings/mine", b.MoveBooking)
	v1.DELETE("/rooms/:id/booking", b.CancelBooking)
	v1.POST("/payments/otp", b.IssueOTP)
	v1.POST("/rooms/:number/payment", b.RecordPayment)

	// Managers and admins.
	manage := v1.Group("/manage", middleware.RequireRole(model.RoleManager, model.RoleAdmin))
	manage.PATCH("/rooms/:id/booking", m.EditBooking)
	manage.POST("/rooms/:id/approve-payment", m.ApprovePayment)
	manage.PATCH("/users/:id", m.EditUser)
	manage.GET("/users", m.ListUsers)
	manage.GET("/actions", m.ListActions)

	// Admins only.
	admin := v1.Group("/admin", middleware.RequireRole(model.RoleAdmin))
	admin.POST("/rooms", m.AddRoom)
	admin.PATCH("/rooms/:id", m.EditRoom)
	admin.POST("/users", m.CreateUser)
	admin.DELETE("/users/:id", m.DeleteUser)
}

type redisPinger struct{ rdb *redis.Client }

func (p redisPinger) PingContext(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }
