package ports

import (
	"context"

	"github.com/fireshield/firewatch/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishHotspotsRefreshed(ctx context.Context, snap *domain.FeedSnapshot) error
	PublishRiskAssessment(ctx context.Context, a *domain.RiskAssessment) error
	PublishEmergencyAlert(ctx context.Context, alert *domain.EmergencyAlert) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeHotspotsRefreshed(ctx context.Context, handler func(ctx context.Context, snap *domain.FeedSnapshot) error) error
	SubscribeEmergencyAlerts(ctx context.Context, handler func(ctx context.Context, alert *domain.EmergencyAlert) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// NotificationService delivers text messages to emergency contacts.
type NotificationService interface {
	// SendSMS sends body to the given number and returns the provider's message id.
	SendSMS(ctx context.Context, to, body string) (string, error)
}

// FeedSource loads a hotspot snapshot from a FIRMS file or URL.
type FeedSource interface {
	Fetch(ctx context.Context, source string) ([]domain.Hotspot, domain.FeedSnapshot, error)
}
