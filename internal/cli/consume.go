package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/audit"
	"github.com/iliyamo/hotel-reservation/internal/queue"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Run a queue consumer until interrupted",
}

var consumeEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Append booking events to the booking log",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnv()
		if err != nil {
			return err
		}
		defer env.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		w := queue.BookingLogWriter{Path: env.cfg.BookingLogPath}
		env.log.Info("consuming booking events", zap.String("log", w.Path))
		return ignoreCancel(queue.Consume(ctx, env.cfg.RabbitURL, queue.BookingEventsQueue, w.Handle, env.log))
	},
}

var consumeAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Replay dead-lettered audit entries into the audit log",
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

		rec := audit.NewRecorder(env.store.Audit(), nil, audit.Options{Attempts: 1}, env.log)
		env.log.Info("replaying dead-lettered audit entries")
		return ignoreCancel(queue.Consume(ctx, env.cfg.RabbitURL, audit.DeadLetterQueue, rec.Replay, env.log))
	},
}

func init() {
	consumeCmd.AddCommand(consumeEventsCmd, consumeAuditCmd)
}

// ignoreCancel treats an interrupt as a clean exit.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
