package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/core/internal"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/core/internal/api"
	"go.opentelemetry.io/otel/attribute"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "signal-core: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env es opcional (ETCD_ENDPOINTS, ENV)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := internal.LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	tel, err := internal.InitTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	store, err := internal.OpenStore(ctx, cfg, tel)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	paper := internal.NewPaperBroker(ctx, cfg, tel)

	core, err := internal.New(ctx, cfg, internal.Dependencies{
		Store:     store,
		Broker:    paper,
		Telemetry: tel,
		Metrics:   tel.SignalMetrics(),
	})
	if err != nil {
		return fmt.Errorf("init core: %w", err)
	}
	if err := core.Start(); err != nil {
		return fmt.Errorf("start core: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewServer(core, tel).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		tel.Info(ctx, "HTTP server listening", attribute.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		tel.Info(context.Background(), "Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			tel.Error(context.Background(), "HTTP server failed", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := core.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("core shutdown: %w", err))
	}
	return errors.Join(errs...)
}
