package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"blogtalk/internal/db"
	"blogtalk/internal/events"
	"blogtalk/internal/logctx"
	"blogtalk/internal/router"
	"blogtalk/internal/services"
	"blogtalk/internal/store/postgres"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the comment API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := logctx.New(cfg.Env)
		slog.SetDefault(logger)
		if cfg.Env != "local" {
			gin.SetMode(gin.ReleaseMode)
		}

		gdb, err := db.Open(cfg.DB)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(gdb); err != nil {
				logger.Error("error closing database", "err", err)
			}
		}()

		if err := db.Migrate(gdb, db.Up); err != nil {
			return err
		}
		st := postgres.New(gdb, cfg.Comments.RetryAttempts)

		var publisher events.Publisher
		if cfg.NATS.URL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATS.URL)
			if err != nil {
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATS.URL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (NATS_URL not set)")
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("error closing publisher", "err", err)
			}
		}()

		// 异步提及通知
		dispatcher, err := services.NewDispatcher(st, st, publisher, cfg.Dispatcher, logger)
		if err != nil {
			return err
		}
		dispatcher.Start()

		engine := router.New(cfg, router.Deps{
			Comments:      services.NewCommentService(st, st, st, dispatcher, publisher, cfg.Comments),
			Notifications: services.NewNotificationService(st, cfg.Comments.PageSize),
			Users:         st,
			DB:            st,
			Logger:        logger,
		})

		srv := &http.Server{
			Addr:              cfg.HTTP.Addr(),
			Handler:           engine,
			ReadHeaderTimeout: cfg.Timeouts.Request,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		serveErr := make(chan error, 1)
		go func() {
			logger.Info("HTTP server listening", "addr", srv.Addr, "env", cfg.Env)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case err := <-serveErr:
			if err != nil {
				dispatcher.Close()
				return err
			}
		case <-ctx.Done():
			logger.Info("received signal, shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}

		// no more requests can enqueue; let queued mentions finish
		dispatcher.Close()
		logger.Info("shutdown complete")
		return nil
	},
}
