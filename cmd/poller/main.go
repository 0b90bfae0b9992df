// Command poller refreshes every configured FIRMS source on a fixed interval.
package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fireshield/firewatch/internal/adapters/firms"
	natsadapter "github.com/fireshield/firewatch/internal/adapters/nats"
	"github.com/fireshield/firewatch/internal/adapters/postgres"
	"github.com/fireshield/firewatch/internal/adapters/valkey"
	"github.com/fireshield/firewatch/internal/core/ports"
	"github.com/fireshield/firewatch/internal/core/usecases"
	"github.com/fireshield/firewatch/internal/pkg/config"
	"github.com/fireshield/firewatch/internal/pkg/logging"
	"github.com/fireshield/firewatch/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("firewatch-poller")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	go db.ReportPoolMetrics(ctx, 15*time.Second)

	var cacheSvc ports.CacheService
	if cache, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	var publisher ports.EventPublisher
	if nc, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer nc.Close()
		publisher = nc
	}

	source := firms.NewSource(cfg.Feed.Region, time.Duration(cfg.Feed.FetchTimeout)*time.Second)
	feed := usecases.NewFeedService(source, postgres.NewHotspotRepo(db), cacheSvc, publisher)

	interval := time.Duration(cfg.Feed.PollInterval) * time.Second
	slog.Info("poller started", "sources", len(cfg.Feed.Sources), "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		pollAll(ctx, feed, cfg.Feed.Sources, cfg.Feed.MaxConcurrency)

		select {
		case <-ctx.Done():
			slog.Info("poller stopped")
			return
		case <-ticker.C:
		}
	}
}

// pollAll refreshes every source with at most limit in flight. A failing
// source is logged and retried on the next tick.
func pollAll(ctx context.Context, feed *usecases.FeedService, sources []string, limit int) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, src := range sources {
		g.Go(func() error {
			if _, err := feed.Refresh(gctx, src); err != nil {
				slog.ErrorContext(gctx, "poll failed", "source", src, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
