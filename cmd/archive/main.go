// Package main runs a single expiry sweep and exits. It is meant to be run
// from cron or a scheduler when the API's in-process sweeper is disabled.
//
// Usage:
//
//	archive [-today YYYY-MM-DD]
//
// The process exits non-zero if any traveler could not be archived.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkordes/travelwatch/internal/archiver"
	"github.com/pkordes/travelwatch/internal/bootstrap"
	"github.com/pkordes/travelwatch/internal/cache"
	"github.com/pkordes/travelwatch/internal/config"
	"github.com/pkordes/travelwatch/internal/domain"
	"github.com/pkordes/travelwatch/internal/service"
	"github.com/pkordes/travelwatch/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("archive failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	todayFlag := flag.String("today", "", "reference date (YYYY-MM-DD); defaults to the current date")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := bootstrap.NewLogger(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	clock := time.Now
	if *todayFlag != "" {
		today, err := domain.ParseDay(*todayFlag)
		if err != nil {
			return err
		}
		clock = func() time.Time { return today }
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "travelwatch-archive", cfg.OTELEndpoint)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.WithoutCancel(ctx)) }()

	store, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// Archiving changes the active set, so cached summaries must be dropped.
	opts := []service.Option{service.WithLogger(logger)}
	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		opts = append(opts, service.WithSummaryCache(cache.NewSummaryCache(redisClient, cfg.SummaryCacheTTL)))
	}

	travelers := service.NewTravelerService(store.Repo, opts...)
	_, err = archiver.NewSweeper(travelers, 0, logger).WithClock(clock).RunOnce(ctx)
	return err
}
