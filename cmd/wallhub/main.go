// Command wallhub browses, searches and uploads HD landscape wallpapers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallhub/internal/bootstrap"
	"wallhub/internal/config"
	"wallhub/internal/models"
	"wallhub/internal/observability"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", models.UserMessage(err))
		observability.Logger.Debug("command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func usage() error {
	return errors.New("usage: wallhub <browse|search|upload|delete|mine|like|profile> [args]")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	observability.InitLogger(cfg.Env, cfg.LogLevel)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "wallhub",
		ServiceVersion: version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	stopMetrics := serveMetrics(cfg.MetricsAddr)
	defer stopMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithCorrelationID(ctx, observability.NewCorrelationID())

	rt, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil {
			observability.Logger.Warn("runtime shutdown error", slog.String("error", closeErr.Error()))
		}
	}()

	if err := rt.Session.Bootstrap(ctx); err != nil {
		return err
	}
	if cfg.AccountEmail != "" {
		if err := rt.Session.SignIn(ctx, cfg.AccountEmail, cfg.AccountPassword); err != nil {
			return err
		}
	}

	c := &cli{rt: rt, out: os.Stdout}
	return c.dispatch(ctx, flag.Arg(0), flag.Args()[1:])
}

// serveMetrics exposes Prometheus metrics on addr until the returned
// function is called. An empty addr disables it.
func serveMetrics(addr string) func() {
	if addr == "" {
		return func() {}
	}
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	prom := fiberprometheus.New("wallhub")
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)

	go func() {
		if err := app.Listen(addr); err != nil {
			observability.Logger.Warn("metrics listener stopped", slog.String("error", err.Error()))
		}
	}()
	return func() {
		if err := app.ShutdownWithTimeout(2 * time.Second); err != nil {
			observability.Logger.Warn("metrics shutdown error", slog.String("error", err.Error()))
		}
	}
}
