package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fireshield/firewatch/internal/core/domain"
	"github.com/fireshield/firewatch/internal/core/georisk"
	"github.com/fireshield/firewatch/internal/core/ports"
	"github.com/fireshield/firewatch/internal/pkg/metrics"
	"github.com/fireshield/firewatch/internal/pkg/telemetry"
)

// HazardLoader supplies the detections an observer is assessed against.
type HazardLoader interface {
	All(ctx context.Context) ([]domain.Hotspot, error)
}

// RiskService evaluates observers against the current hotspot snapshot.
type RiskService struct {
	hazards    HazardLoader
	thresholds domain.Thresholds
	places     []domain.SafePlace
	publisher  ports.EventPublisher
	now        func() time.Time
}

// NewRiskService creates a new RiskService. thresholds must already be
// validated; publisher may be nil.
func NewRiskService(
	hazards HazardLoader,
	thresholds domain.Thresholds,
	places []domain.SafePlace,
	publisher ports.EventPublisher,
) *RiskService {
	return &RiskService{
		hazards:    hazards,
		thresholds: thresholds,
		places:     places,
		publisher:  publisher,
		now:        time.Now,
	}
}

// Thresholds returns the configured risk bands.
func (s *RiskService) Thresholds() domain.Thresholds {
	return s.thresholds
}

// SafePlaces returns the configured known safe places.
func (s *RiskService) SafePlaces() []domain.SafePlace {
	return s.places
}

// Assess classifies the observer. override replaces the configured
// thresholds for this call only.
func (s *RiskService) Assess(ctx context.Context, observer domain.GeoPoint, override *domain.Thresholds) (*domain.RiskAssessment, error) {
	ctx, span := otel.Tracer("firewatch/risk").Start(ctx, "RiskService.Assess")
	defer span.End()

	if err := observer.Validate(); err != nil {
		return nil, err
	}

	t := s.thresholds
	if override != nil {
		if err := override.Validate(); err != nil {
			return nil, err
		}
		t = *override
	}

	hazards, err := s.hazards.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load hazards: %w", err)
	}

	result := georisk.Assess(observer, hazards, t)
	result.SafePlaces = georisk.RankSafePlaces(observer, hazards, s.places, t)
	result.AssessedAt = s.now().UTC()

	span.SetAttributes(
		attribute.String(telemetry.AttrRiskTier, string(result.Tier)),
		attribute.Float64(telemetry.AttrRiskDistanceKm, result.DistanceKm),
		attribute.Int(telemetry.AttrRiskHazards, result.HazardsConsidered),
	)
	metrics.RiskAssessments.WithLabelValues(string(result.Tier)).Inc()

	if result.Tier != domain.RiskSafe && s.publisher != nil {
		if err := s.publisher.PublishRiskAssessment(ctx, &result); err != nil {
			slog.WarnContext(ctx, "publish risk assessment failed", "tier", result.Tier, "error", err)
		}
	}

	return &result, nil
}

// RankSafePlaces orders the configured safe places for an observer.
func (s *RiskService) RankSafePlaces(ctx context.Context, observer domain.GeoPoint) ([]domain.RankedSafePlace, error) {
	if err := observer.Validate(); err != nil {
		return nil, err
	}
	if len(s.places) == 0 {
		return nil, nil
	}
	hazards, err := s.hazards.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load hazards: %w", err)
	}
	return georisk.RankSafePlaces(observer, hazards, s.places, s.thresholds), nil
}
