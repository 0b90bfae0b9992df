package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/fireshield/firewatch/internal/adapters/postgres"
	"github.com/fireshield/firewatch/internal/adapters/valkey"
	"github.com/fireshield/firewatch/internal/core/domain"
	"github.com/fireshield/firewatch/internal/core/usecases"
)

// AlertDispatcher hands an emergency alert to asynchronous delivery.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, observer domain.GeoPoint, note string) (*domain.EmergencyAlert, error)
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Hotspots *usecases.HotspotService
	Risk     *usecases.RiskService
	Alerts   *usecases.AlertService
	// Dispatcher is optional; without it alerts are delivered in the request.
	Dispatcher AlertDispatcher
	NATS       *nats.Conn
	DB         *postgres.DB
	Cache      *valkey.Cache
	// OpenAPIPath defaults to DefaultOpenAPIPath.
	OpenAPIPath string
}
