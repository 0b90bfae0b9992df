package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Hotspot is a single active-fire detection from a FIRMS feed.
// Location, Weight and AcquiredAt are the hazard fields the risk engine reads;
// the rest is feed metadata passed through to clients.
type Hotspot struct {
	ID         string     `json:"id"`
	Location   GeoPoint   `json:"location"`
	Weight     float64    `json:"weight"` // brightness (K), 1 when unknown
	AcquiredAt *time.Time `json:"acquired_at,omitempty"`
	Satellite  string     `json:"satellite,omitempty"`
	Instrument string     `json:"instrument,omitempty"`
	Confidence string     `json:"confidence,omitempty"`
	FRP        float64    `json:"frp,omitempty"` // fire radiative power, MW
	DayNight   string     `json:"daynight,omitempty"`
	Source     string     `json:"source,omitempty"`
	AgeGroup   AgeGroup   `json:"age_group,omitempty"` // computed field
}

// HotspotID derives a stable identifier for a detection so repeated
// snapshots upsert instead of duplicating rows.
func HotspotID(loc GeoPoint, acquiredAt *time.Time, satellite string) string {
	ts := "na"
	if acquiredAt != nil {
		ts = strconv.FormatInt(acquiredAt.Unix(), 10)
	}
	return fmt.Sprintf("%.5f:%.5f:%s:%s", loc.Lat, loc.Lon, ts, satellite)
}

// AgeGroup buckets a detection by how long ago it was acquired.
type AgeGroup string

const (
	AgeUnder1h   AgeGroup = "lt1h"
	Age1to4h     AgeGroup = "1to4h"
	Age4to12h    AgeGroup = "4to12h"
	AgeOver12h   AgeGroup = "gt12h"
	AgeUndefined AgeGroup = "unknown"
)

// ClassifyAge returns the age group of a detection relative to now.
func ClassifyAge(acquiredAt *time.Time, now time.Time) AgeGroup {
	if acquiredAt == nil {
		return AgeUndefined
	}
	age := now.Sub(*acquiredAt)
	switch {
	case age < time.Hour:
		return AgeUnder1h
	case age < 4*time.Hour:
		return Age1to4h
	case age < 12*time.Hour:
		return Age4to12h
	default:
		return AgeOver12h
	}
}

// RiskTier is the proximity risk classification of an observer.
type RiskTier string

const (
	RiskSafe     RiskTier = "safe"
	RiskModerate RiskTier = "moderate"
	RiskHigh     RiskTier = "high"
)

// ErrInvalidThresholds is returned when risk thresholds are not usable.
var ErrInvalidThresholds = errors.New("invalid risk thresholds")

// Thresholds configures the risk bands, all in kilometres.
type Thresholds struct {
	HighKm     float64 `json:"high_km" mapstructure:"high_km"`
	ModerateKm float64 `json:"moderate_km" mapstructure:"moderate_km"`
	PushoutKm  float64 `json:"pushout_km" mapstructure:"pushout_km"`
}

// Validate checks 0 < high <= moderate and pushout > 0.
func (t Thresholds) Validate() error {
	for _, v := range []float64{t.HighKm, t.ModerateKm, t.PushoutKm} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value", ErrInvalidThresholds)
		}
	}
	if t.HighKm <= 0 {
		return fmt.Errorf("%w: high_km must be positive, got %v", ErrInvalidThresholds, t.HighKm)
	}
	if t.ModerateKm < t.HighKm {
		return fmt.Errorf("%w: moderate_km (%v) must not be below high_km (%v)", ErrInvalidThresholds, t.ModerateKm, t.HighKm)
	}
	if t.PushoutKm <= 0 {
		return fmt.Errorf("%w: pushout_km must be positive, got %v", ErrInvalidThresholds, t.PushoutKm)
	}
	return nil
}

// SafePlace is a known shelter or assembly point.
type SafePlace struct {
	Name     string   `json:"name" mapstructure:"name"`
	Location GeoPoint `json:"location" mapstructure:",squash"`
}

// RankedSafePlace is a safe place annotated relative to an observer.
type RankedSafePlace struct {
	SafePlace
	DistanceKm       float64 `json:"distance_km"`        // from the observer
	HazardDistanceKm float64 `json:"hazard_distance_km"` // from its own nearest hazard, -1 if none
	Clear            bool    `json:"clear"`              // outside the moderate band
}

// RiskAssessment is the result of evaluating one observer against the hazards.
type RiskAssessment struct {
	Observer           GeoPoint          `json:"observer"`
	Tier               RiskTier          `json:"risk_tier"`
	DistanceKm         float64           `json:"distance_km"`
	NearestHazard      *Hotspot          `json:"nearest_hazard,omitempty"`
	SuggestedSafePoint *GeoPoint         `json:"suggested_safe_point,omitempty"`
	Thresholds         Thresholds        `json:"thresholds"`
	SafePlaces         []RankedSafePlace `json:"safe_places,omitempty"`
	EmergencyContact   bool              `json:"emergency_contact"`
	HazardsConsidered  int               `json:"hazards_considered"`
	AssessedAt         time.Time         `json:"assessed_at"`
}

// AlertStatus tracks delivery of an emergency alert.
type AlertStatus string

const (
	AlertQueued AlertStatus = "queued"
	AlertSent   AlertStatus = "sent"
	AlertFailed AlertStatus = "failed"
)

// EmergencyAlert is an SMS sent on behalf of an observer in the high-risk band.
type EmergencyAlert struct {
	ID          string      `json:"id"`
	Observer    GeoPoint    `json:"observer"`
	Tier        RiskTier    `json:"risk_tier"`
	Recipient   string      `json:"recipient"`
	Message     string      `json:"message"`
	Status      AlertStatus `json:"status"`
	ProviderSID string      `json:"provider_sid,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	SentAt      *time.Time  `json:"sent_at,omitempty"`
}

// FeedSnapshot summarises one refresh of the hotspot feed.
type FeedSnapshot struct {
	Source      string    `json:"source"`
	Rows        int       `json:"rows"`
	Accepted    int       `json:"accepted"`
	Malformed   int       `json:"malformed"`
	OutOfRegion int       `json:"out_of_region"`
	Pruned      int64     `json:"pruned"`
	RefreshedAt time.Time `json:"refreshed_at"`
}
