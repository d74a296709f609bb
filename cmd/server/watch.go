package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"blogtalk/internal/events"
	"blogtalk/internal/logctx"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [subject]",
	Short: "Print comment and notification events as they are published",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.NATS.URL == "" {
			return fmt.Errorf("nats.url is not configured")
		}
		logger := logctx.New(cfg.Env)

		subject := events.TopicAll
		if len(args) == 1 {
			subject = args[0]
		}

		sub, err := events.NewNATSSubscriber(cfg.NATS.URL,
			nats.Name("blogtalk-watch"),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				logger.Warn("nats: disconnected", "err", err)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				logger.Info("nats: reconnected")
			}),
		)
		if err != nil {
			return err
		}
		defer sub.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		msgs, err := sub.Watch(ctx, subject, 256)
		if err != nil {
			return err
		}

		logger.Info("watching events", "subject", subject)
		for msg := range msgs {
			if _, err := msg.Decode(); err != nil {
				logger.Warn("unrecognized event", "topic", msg.Topic, "err", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", msg.ReceivedAt.Format(time.RFC3339), msg.Topic, msg.Data)
		}
		return nil
	},
}
