/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/acp-registry/apiserver/config"
	"github.com/acp-registry/apiserver/internal/mq"
	"github.com/acp-registry/apiserver/types"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Work with registry lifecycle events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log submission and approval events as they are published",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log := newLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Open(ctx, cfg)
		if err != nil {
			return err
		}
		if broker == nil {
			return errors.New("event publishing is disabled, set MQ_BACKEND")
		}
		defer broker.Close()

		log.Info("tailing events", "backend", cfg.MQ.Backend, "channel", cfg.MQ.EventsChannel)
		err = broker.SubscribeEvents(ctx, cfg.MQ.EventsChannel,
			func(ctx context.Context, event types.Event) error {
				log.Info("event",
					"id", event.ID,
					"type", event.Type,
					"user_id", event.UserID,
					"username", event.Username,
					"occurred_at", event.OccurredAt,
				)
				return nil
			},
			func(msg mq.Message, err error) {
				log.Warn("skipping malformed event", "message_id", msg.ID, "error", err)
			},
		)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
