package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/infect-client/internal/config"
	"github.com/DoyleJ11/infect-client/internal/controller"
	"github.com/DoyleJ11/infect-client/internal/httpapi"
	"github.com/DoyleJ11/infect-client/internal/identity"
	"github.com/DoyleJ11/infect-client/internal/logging"
	"github.com/DoyleJ11/infect-client/internal/session"
	"github.com/DoyleJ11/infect-client/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("client stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := identity.Open(cfg.IdentityPath, logger)
	defer func() { err = multierr.Append(err, store.Close()) }()

	ctrl, err := controller.New(ctx, controller.Options{
		Dial: func(ctx context.Context) (controller.Channel, error) {
			return session.Dial(ctx, transport.Options{URL: cfg.ServerURL, MaxBackoff: cfg.ReconnectMax}, logger)
		},
		Identity: store,
		Cooldown: cfg.Cooldown,
		Flash:    cfg.Flash,
		Notice:   cfg.Notice,
		IDLength: cfg.IDLength,
		Logger:   logger,
		OnChange: func(v controller.View) {
			logger.Debug("view", zap.Stringer("status", v.Status), zap.Int("gameId", v.GameID),
				zap.String("identity", v.Identity), zap.Bool("connected", v.Connected))
		},
	})
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, ctrl.Close()) }()

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: httpapi.SetupRoutes(ctrl, logger)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("presentation bridge listening", zap.String("addr", cfg.HTTPAddr), zap.String("server", cfg.ServerURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
