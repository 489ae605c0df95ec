package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/audit"
	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/otp"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/reservation"
	"github.com/iliyamo/hotel-reservation/internal/router"
)

const shutdownTimeout = 10 * time.Second

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the reservation API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnv()
		if err != nil {
			return err
		}
		defer env.close()
		if err := env.openStore(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// The memory store starts empty every time.
		if env.cfg.Store == config.StoreMemory {
			if err := env.seed(ctx); err != nil {
				return err
			}
		}
		return serve(ctx, env)
	},
}

func serve(ctx context.Context, env *env) error {
	cfg, log := env.cfg, env.log

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; cache and rate limiting disabled, otp codes kept in memory")
	} else {
		defer rdb.Close()
	}

	opts := []reservation.Option{reservation.WithLogger(log)}
	var pub *queue.Publisher
	if cfg.EventsEnabled {
		pub = queue.NewPublisher(cfg.RabbitURL, log)
		defer pub.Close()
		opts = append(opts, reservation.WithEvents(pub))
	}
	var deadLetter audit.Publisher
	if pub != nil {
		deadLetter = pub
	}
	rec := audit.NewRecorder(env.store.Audit(), deadLetter,
		audit.Options{Attempts: cfg.AuditAttempts, Backoff: cfg.AuditBackoff}, log)
	opts = append(opts, reservation.WithAudit(rec))
	eng := reservation.New(env.store, opts...)

	issuer := otp.NewIssuer(otpStore(rdb), cfg.OTPTTL)

	ready := map[string]handler.Pinger{}
	if env.db != nil {
		ready["mysql"] = env.db
	}
	e := router.New(router.Deps{
		Auth:      handler.NewAuthHandler(cfg, eng, env.store.Users(), env.tokens, log),
		Booking:   handler.NewBookingHandler(eng, issuer, cfg.OTPRequired, cfg.Env != "prod", log),
		Manage:    handler.NewManageHandler(eng, cfg.BcryptCost, log),
		JWTSecret: cfg.JWTSecret,
		Cache:     cfg.Cache,
		RateLimit: cfg.RateLimit,
		Redis:     rdb,
		Ready:     ready,
		Log:       log,
	})

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.Store))
		errc <- e.Start(addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}

func otpStore(rdb *redis.Client) otp.Store {
	if rdb == nil {
		return otp.NewMemoryStore()
	}
	return otp.NewRedisStore(rdb, "otp")
}
