package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/cuberoom-client/internal/bridge"
	"github.com/DoyleJ11/cuberoom-client/internal/config"
	"github.com/DoyleJ11/cuberoom-client/internal/httpapi"
	"github.com/DoyleJ11/cuberoom-client/internal/logging"
	"github.com/DoyleJ11/cuberoom-client/internal/store"
	"github.com/DoyleJ11/cuberoom-client/internal/transition"
	"github.com/DoyleJ11/cuberoom-client/internal/transport"
	"github.com/DoyleJ11/cuberoom-client/pkg/types"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(flag.CommandLine, os.Args[1:], ".env")
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Development, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := store.New(logger)
	sock := transport.New(transport.Options{
		URL:              cfg.ServerURL,
		Header:           cfg.Header(),
		Post:             st.Post,
		OnChange:         func(c bool) { st.Dispatch(transition.ConnectionChanged{Connected: c}) },
		OnConnected:      func() { st.Dispatch(transition.Connected{}) },
		OnDisconnected:   func() { st.Dispatch(transition.Disconnected{}) },
		ReconnectInitial: cfg.ReconnectInitial,
		ReconnectMax:     cfg.ReconnectMax,
		StableAfter:      cfg.ReconnectStable,
		OutboxSize:       cfg.OutboxSize,
		ReadLimit:        cfg.ReadLimit,
		Logger:           logger,
	})

	br := bridge.New(bridge.Config{
		Transport:  sock,
		Dispatcher: st,
		Rooms:      st,
		Identity:   st,
		Logger:     logger,
	})
	st.Use(br.Middleware)
	br.Attach()

	st.Dispatch(transition.SessionChanged{User: types.User{ID: types.ID(cfg.UserID), DisplayName: cfg.DisplayName}})
	st.Dispatch(transition.ConnectSocket{})
	if cfg.RoomID != "" {
		st.Dispatch(transition.JoinRoom{ID: cfg.RoomID, Password: cfg.RoomPassword})
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.SetupRoutes(st, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return st.Run(gctx) })
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("server", cfg.ServerURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return multierr.Combine(srv.Shutdown(sctx), sock.Close(sctx))
	})
	return g.Wait()
}
