package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alfredjeanlab/atlasgraph/internal/config"
	"github.com/alfredjeanlab/atlasgraph/internal/events"
	"github.com/alfredjeanlab/atlasgraph/internal/explorer"
	"github.com/alfredjeanlab/atlasgraph/internal/server"
	"github.com/alfredjeanlab/atlasgraph/internal/style"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the view server",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

		palette := style.DefaultPalette()
		if cfg.StyleFile != "" {
			palette, err = style.LoadPalette(cfg.StyleFile)
			if err != nil {
				return err
			}
			logger.Info("palette loaded", "file", cfg.StyleFile)
		}

		// Create event publisher.
		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (ATLAS_NATS_URL not set)")
		}
		defer publisher.Close()

		srv := server.NewViewServer(publisher, server.Options{
			Palette:     palette,
			PickerLimit: cfg.PickerLimit,
			Metrics:     explorer.NewMetrics(prometheus.DefaultRegisterer),
			Logger:      logger,
		})
		srv.StartReaper(cfg.ViewIdle)

		httpServer := &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: srv.NewHTTPHandler(cfg.AuthToken, prometheus.DefaultGatherer),
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		if cfg.NATSURL != "" {
			sub, err := events.NewNATSSubscriber(cfg.NATSURL,
				nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
					logger.Warn("nats: disconnected", "err", err)
				}),
				nats.ReconnectHandler(func(_ *nats.Conn) {
					logger.Info("nats: reconnected")
				}),
			)
			if err != nil {
				stop()
				_ = g.Wait()
				return err
			}
			defer sub.Close()
			g.Go(func() error {
				return events.ConsumePayloads(gctx, sub, cfg.PayloadSubject, srv.HandlePayload, logger)
			})
		}

		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			srv.Shutdown(shutdownCtx)
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP shutdown error", "err", err)
			}
			return nil
		})

		logger.Info("atlas server started",
			"http_addr", cfg.HTTPAddr,
			"view_idle", cfg.ViewIdle,
			"picker_limit", cfg.PickerLimit,
		)

		err = g.Wait()
		logger.Info("atlas server stopped")
		return err
	},
}
