// Command ingestor loads FIRMS CSV snapshots into the hotspot store once.
//
//	ingestor [source ...]
//
// Sources are file paths or http(s) URLs; without arguments the configured
// feed.sources are used.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fireshield/firewatch/internal/adapters/firms"
	natsadapter "github.com/fireshield/firewatch/internal/adapters/nats"
	"github.com/fireshield/firewatch/internal/adapters/postgres"
	"github.com/fireshield/firewatch/internal/adapters/valkey"
	"github.com/fireshield/firewatch/internal/core/ports"
	"github.com/fireshield/firewatch/internal/core/usecases"
	"github.com/fireshield/firewatch/internal/pkg/config"
	"github.com/fireshield/firewatch/internal/pkg/logging"
)

func main() {
	cfg, err := config.Load("firewatch-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources := cfg.Feed.Sources
	if len(os.Args) > 1 {
		sources = os.Args[1:]
	}
	if len(sources) == 0 {
		log.Fatal("no feed sources given")
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Cache and events are optional for a one-shot load.
	var cacheSvc ports.CacheService
	if cache, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, cached reads expire on their own", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}
	var publisher ports.EventPublisher
	if nc, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, refresh not announced", "error", err)
	} else {
		defer nc.Close()
		publisher = nc
	}

	source := firms.NewSource(cfg.Feed.Region, time.Duration(cfg.Feed.FetchTimeout)*time.Second)
	feed := usecases.NewFeedService(source, postgres.NewHotspotRepo(db), cacheSvc, publisher)

	slog.Info("FireWatch ingestor", "sources", len(sources))

	failed := 0
	for _, src := range sources {
		snap, err := feed.Refresh(ctx, src)
		if err != nil {
			failed++
			slog.Error("ingest failed", "source", src, "error", err)
			continue
		}
		slog.Info("ingested", "source", src, "accepted", snap.Accepted, "pruned", snap.Pruned)
	}

	if failed > 0 {
		slog.Error("ingestion finished with errors", "failed", failed, "total", len(sources))
		os.Exit(1)
	}
	slog.Info("ingestion complete")
}
