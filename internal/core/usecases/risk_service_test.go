package usecases_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/fireshield/firewatch/internal/core/domain"
	"github.com/fireshield/firewatch/internal/core/usecases"
)

var observer = domain.GeoPoint{Lat: 45, Lon: -75}

func TestRiskService_Assess_Tiers(t *testing.T) {
	tests := []struct {
		name    string
		hazards []domain.Hotspot
		want    domain.RiskTier
		publish bool
	}{
		{"no hazards", nil, domain.RiskSafe, false},
		{"high", []domain.Hotspot{hotspotAt(45.018, -75)}, domain.RiskHigh, true},         // ~2 km
		{"moderate", []domain.Hotspot{hotspotAt(45.036, -75)}, domain.RiskModerate, true}, // ~4 km
		{"safe", []domain.Hotspot{hotspotAt(45.09, -75)}, domain.RiskSafe, false},         // ~10 km
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &mockPublisher{}
			svc := usecases.NewRiskService(staticHazards(tt.hazards), defaultThresholds, nil, pub)

			got, err := svc.Assess(context.Background(), observer, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Tier != tt.want {
				t.Errorf("expected tier %s, got %s", tt.want, got.Tier)
			}
			if (got.SuggestedSafePoint != nil) != (tt.want != domain.RiskSafe) {
				t.Errorf("suggested point presence wrong for tier %s: %v", got.Tier, got.SuggestedSafePoint)
			}
			if got.EmergencyContact != (tt.want == domain.RiskHigh) {
				t.Errorf("emergency contact flag wrong for tier %s", got.Tier)
			}
			if got.AssessedAt.IsZero() {
				t.Error("expected AssessedAt to be set")
			}
			if published := len(pub.assessments) == 1; published != tt.publish {
				t.Errorf("expected publish=%v, got %d events", tt.publish, len(pub.assessments))
			}
		})
	}
}

func TestRiskService_Assess_InvalidObserver(t *testing.T) {
	svc := usecases.NewRiskService(staticHazards(nil), defaultThresholds, nil, nil)

	for _, p := range []domain.GeoPoint{
		{Lat: 91, Lon: 0},
		{Lat: 0, Lon: -181},
		{Lat: math.NaN(), Lon: 0},
	} {
		if _, err := svc.Assess(context.Background(), p, nil); !errors.Is(err, domain.ErrInvalidCoordinate) {
			t.Errorf("%v: expected ErrInvalidCoordinate, got %v", p, err)
		}
	}
}

func TestRiskService_Assess_Override(t *testing.T) {
	hazards := staticHazards{hotspotAt(45.0009, -75)} // ~0.1 km
	svc := usecases.NewRiskService(hazards, defaultThresholds, nil, nil)

	campus := &domain.Thresholds{HighKm: 0.05, ModerateKm: 0.15, PushoutKm: 0.2}
	got, err := svc.Assess(context.Background(), observer, campus)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Tier != domain.RiskModerate {
		t.Errorf("expected moderate with campus thresholds, got %s", got.Tier)
	}
	if got.Thresholds != *campus {
		t.Errorf("expected thresholds echoed, got %+v", got.Thresholds)
	}

	bad := &domain.Thresholds{HighKm: 5, ModerateKm: 3, PushoutKm: 3}
	if _, err := svc.Assess(context.Background(), observer, bad); !errors.Is(err, domain.ErrInvalidThresholds) {
		t.Errorf("expected ErrInvalidThresholds, got %v", err)
	}
}

func TestRiskService_Assess_HazardLoadError(t *testing.T) {
	svc := usecases.NewRiskService(failingHazards{err: errors.New("db down")}, defaultThresholds, nil, nil)

	if _, err := svc.Assess(context.Background(), observer, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestRiskService_Assess_RanksSafePlaces(t *testing.T) {
	places := []domain.SafePlace{
		{Name: "Far Hall", Location: domain.GeoPoint{Lat: 45.2, Lon: -75}},
		{Name: "Near Gym", Location: domain.GeoPoint{Lat: 44.95, Lon: -75}},
	}
	svc := usecases.NewRiskService(staticHazards{hotspotAt(45.018, -75)}, defaultThresholds, places, nil)

	got, err := svc.Assess(context.Background(), observer, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.SafePlaces) != 2 {
		t.Fatalf("expected 2 ranked places, got %d", len(got.SafePlaces))
	}
	if got.SafePlaces[0].Name != "Near Gym" {
		t.Errorf("expected Near Gym first, got %s", got.SafePlaces[0].Name)
	}

	ranked, err := svc.RankSafePlaces(context.Background(), observer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranked) != 2 || ranked[0].Name != "Near Gym" {
		t.Errorf("unexpected ranking %+v", ranked)
	}
	if len(svc.SafePlaces()) != 2 {
		t.Errorf("expected 2 configured places")
	}
}
