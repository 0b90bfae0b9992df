package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.temporal.io/sdk/client"

	"github.com/fireshield/firewatch/internal/adapters/http"
	natsadapter "github.com/fireshield/firewatch/internal/adapters/nats"
	"github.com/fireshield/firewatch/internal/adapters/postgres"
	"github.com/fireshield/firewatch/internal/adapters/sms"
	"github.com/fireshield/firewatch/internal/adapters/valkey"
	"github.com/fireshield/firewatch/internal/core/domain"
	"github.com/fireshield/firewatch/internal/core/ports"
	"github.com/fireshield/firewatch/internal/core/usecases"
	"github.com/fireshield/firewatch/internal/pkg/config"
	"github.com/fireshield/firewatch/internal/pkg/logging"
	"github.com/fireshield/firewatch/internal/pkg/telemetry"
	"github.com/fireshield/firewatch/internal/workflows"
)

func main() {
	cfg, err := config.Load("firewatch-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolMetrics(ctx, 15*time.Second)

	// Cache
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS
	var publisher ports.EventPublisher
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer nc.Close()
		publisher = nc
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
	}

	// SMS gateway
	var notifier ports.NotificationService
	if cfg.SMS.Enabled() {
		gw, err := sms.NewGateway(sms.Config{
			BaseURL:    cfg.SMS.BaseURL,
			AccountSID: cfg.SMS.AccountSID,
			AuthToken:  cfg.SMS.AuthToken,
			From:       cfg.SMS.From,
			Timeout:    time.Duration(cfg.SMS.Timeout) * time.Second,
		})
		if err != nil {
			slog.Warn("sms gateway disabled", "error", err)
		} else {
			notifier = gw
		}
	} else {
		slog.Info("sms gateway not configured, emergency alerts disabled")
	}

	// Use cases
	hotspotSvc := usecases.NewHotspotService(postgres.NewHotspotRepo(db), cacheSvc)
	riskSvc := usecases.NewRiskService(hotspotSvc, cfg.Risk, cfg.SafePlaces, publisher)
	alertSvc := usecases.NewAlertService(riskSvc, notifier, publisher, cfg.SMS.Recipient)

	deps := &http.Dependencies{
		Hotspots: hotspotSvc,
		Risk:     riskSvc,
		Alerts:   alertSvc,
		NATS:     natsConn,
		DB:       db,
		Cache:    cache,

		OpenAPIPath: cfg.Server.OpenAPIPath,
	}

	// Temporal delivers alerts when enabled; the API only prepares them.
	if cfg.Temporal.Enabled {
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			Logger:    slog.Default(),
		})
		if err != nil {
			slog.Warn("temporal unavailable, alerts are sent in-process", "error", err)
		} else {
			defer tc.Close()
			deps.Dispatcher = workflows.NewDispatcher(tc, cfg.Temporal.TaskQueue, alertSvc)
		}
	}

	// Warm the hotspot cache whenever the poller publishes a new snapshot.
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, "firewatch-api")
	if err != nil {
		slog.Warn("nats subscriber unavailable", "error", err)
	} else {
		defer sub.Close()
		err := sub.SubscribeHotspotsRefreshed(ctx, func(ctx context.Context, snap *domain.FeedSnapshot) error {
			hs, err := hotspotSvc.All(ctx)
			if err != nil {
				return err
			}
			slog.Info("hotspot cache warmed", "source", snap.Source, "hotspots", len(hs))
			return nil
		})
		if err != nil {
			slog.Warn("subscribe hotspots refreshed failed", "error", err)
		}
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "FireWatch API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
