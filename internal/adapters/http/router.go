package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/fireshield/firewatch/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// legacyRoutes are the endpoints served by the first API version.
var legacyRoutes = []DeprecatedRoute{
	{
		Path:        "/api/nasa-firms",
		SunsetDate:  time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC),
		Alternative: "/v1/hotspots",
	},
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())
	app.Use(DeprecationMiddleware(legacyRoutes))

	// Health & readiness (no timeout)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Get("/hotspots", timeout.NewWithContext(ListHotspotsHandler(deps), requestTimeout))
	v1.Get("/hotspots/nearby", timeout.NewWithContext(NearbyHotspotsHandler(deps), requestTimeout))
	v1.Get("/hotspots.geojson", timeout.NewWithContext(HotspotsGeoJSONHandler(deps), requestTimeout))
	v1.Get("/risk", timeout.NewWithContext(RiskHandler(deps), requestTimeout))
	v1.Post("/risk", timeout.NewWithContext(AssessRiskHandler(deps), requestTimeout))
	v1.Get("/safe-places", timeout.NewWithContext(SafePlacesHandler(deps), requestTimeout))
	v1.Post("/emergency-alerts", timeout.NewWithContext(EmergencyAlertHandler(deps), requestTimeout))

	// First-generation frontend endpoint
	app.Get("/api/nasa-firms", timeout.NewWithContext(LegacyFirmsHandler(deps), requestTimeout))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app, deps.OpenAPIPath)

	if deps.NATS != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
	}
}
