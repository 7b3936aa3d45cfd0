/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopadmin/apiserver/internal/mq"
	"github.com/shopadmin/apiserver/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// eventsCmd groups commands that work with the identity event stream.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect identity lifecycle events",
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Log identity events from the configured broker until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := setup()
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		backend, err := mq.NewBackend(ctx, cfg.MQ)
		if err != nil {
			return fmt.Errorf("mq backend: %w", err)
		}
		if backend == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		bus := mq.NewEventBus(backend, cfg.MQ.EventsTopic, logger.Named("mq"))
		defer bus.Close()

		logger.Info("watching identity events", zap.String("topic", cfg.MQ.EventsTopic))
		err = bus.Consume(ctx, func(_ context.Context, event types.IdentityEvent) error {
			logger.Info("identity event",
				zap.String("type", event.Type),
				zap.String("identity_id", event.IdentityID),
				zap.String("email", event.Email),
				zap.String("provider", string(event.Provider)),
				zap.Time("occurred_at", event.OccurredAt),
			)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsWatchCmd)
}
