// Command alerter runs the Temporal worker that delivers emergency alerts
// and keeps an audit log of every alert announced on NATS.
package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

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
	cfg, err := config.Load("firewatch-alerter")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	var cacheSvc ports.CacheService
	if cache, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	var publisher ports.EventPublisher
	if nc, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, alerts are not announced", "error", err)
	} else {
		defer nc.Close()
		publisher = nc
	}

	gw, err := sms.NewGateway(sms.Config{
		BaseURL:    cfg.SMS.BaseURL,
		AccountSID: cfg.SMS.AccountSID,
		AuthToken:  cfg.SMS.AuthToken,
		From:       cfg.SMS.From,
		Timeout:    time.Duration(cfg.SMS.Timeout) * time.Second,
	})
	if err != nil {
		log.Fatalf("sms gateway: %v", err)
	}

	hotspots := usecases.NewHotspotService(postgres.NewHotspotRepo(db), cacheSvc)
	risk := usecases.NewRiskService(hotspots, cfg.Risk, cfg.SafePlaces, nil)
	alerts := usecases.NewAlertService(risk, gw, publisher, cfg.SMS.Recipient)

	// Audit trail of announced alerts, whichever process raised them.
	if sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, "firewatch-alerter"); err != nil {
		slog.Warn("nats subscriber unavailable", "error", err)
	} else {
		defer sub.Close()
		err := sub.SubscribeEmergencyAlerts(ctx, func(ctx context.Context, a *domain.EmergencyAlert) error {
			slog.Info("emergency alert",
				"alert_id", a.ID,
				"status", a.Status,
				"observer", a.Observer.String(),
				"provider_sid", a.ProviderSID,
			)
			return nil
		})
		if err != nil {
			slog.Warn("subscribe emergency alerts failed", "error", err)
		}
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.EmergencyAlertWorkflow)
	w.RegisterActivity(&workflows.AlertActivities{Risk: risk, Alerts: alerts})

	slog.Info("alerter worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
