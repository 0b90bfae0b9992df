// Package georisk classifies how close an observer is to active fire
// detections and, when the observer is inside a risk band, projects a single
// relocation point away from the nearest one.
//
// Every function is pure: no I/O, no shared state, safe for concurrent use.
// Inputs are assumed validated (finite, in-range coordinates); callers filter
// malformed hazard records before invoking the engine.
package georisk

import (
	"github.com/fireshield/firewatch/internal/core/domain"
	"github.com/fireshield/firewatch/internal/pkg/geospatial"
)

// GreatCircleDistanceKm returns the haversine distance between a and b on a
// 6371 km sphere.
func GreatCircleDistanceKm(a, b domain.GeoPoint) float64 {
	return geospatial.Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// BearingTo returns the initial bearing in radians (0 = north, clockwise)
// along the great circle from one point to another. It is 0 when the points
// coincide.
func BearingTo(from, to domain.GeoPoint) float64 {
	return geospatial.Bearing(from.Lat, from.Lon, to.Lat, to.Lon)
}

// DestinationPoint returns the point reached by travelling distanceKm from
// origin on the given bearing (radians). Distances beyond half the sphere's
// circumference wrap around.
func DestinationPoint(origin domain.GeoPoint, bearing, distanceKm float64) domain.GeoPoint {
	lat, lon := geospatial.Destination(origin.Lat, origin.Lon, bearing, distanceKm)
	return domain.GeoPoint{Lat: lat, Lon: lon}
}

// Nearest returns the index of the hazard closest to observer and its
// distance. Ties keep the first hazard in input order. The index is -1 when
// hazards is empty.
func Nearest(observer domain.GeoPoint, hazards []domain.Hotspot) (int, float64) {
	idx := -1
	best := 0.0
	for i := range hazards {
		d := GreatCircleDistanceKm(observer, hazards[i].Location)
		if idx < 0 || d < best {
			idx, best = i, d
		}
	}
	return idx, best
}

// Classify maps a distance to a risk tier. Comparisons are strict, so a
// distance equal to a threshold falls into the less severe tier.
func Classify(distanceKm float64, t domain.Thresholds) domain.RiskTier {
	switch {
	case distanceKm < t.HighKm:
		return domain.RiskHigh
	case distanceKm < t.ModerateKm:
		return domain.RiskModerate
	default:
		return domain.RiskSafe
	}
}

// PushoutKm is how far to move the observer away from the hazard: enough to
// clear the moderate band by 1 km, or the flat fallback when already clear.
func PushoutKm(distanceKm float64, t domain.Thresholds) float64 {
	if extra := (t.ModerateKm + 1) - distanceKm; extra > 0 {
		return extra
	}
	return t.PushoutKm
}

// Assess determines the observer's risk tier against hazards and, unless the
// observer is safe, a suggested point on the heading leading away from the
// nearest hazard. NearestHazard points into the hazards slice.
//
// The thresholds are used as given; defaults belong to the caller.
func Assess(observer domain.GeoPoint, hazards []domain.Hotspot, t domain.Thresholds) domain.RiskAssessment {
	out := domain.RiskAssessment{
		Observer:          observer,
		Tier:              domain.RiskSafe,
		Thresholds:        t,
		HazardsConsidered: len(hazards),
	}

	idx, dist := Nearest(observer, hazards)
	if idx < 0 {
		return out
	}

	nearest := &hazards[idx]
	out.NearestHazard = nearest
	out.DistanceKm = dist
	out.Tier = Classify(dist, t)
	out.EmergencyContact = out.Tier == domain.RiskHigh

	if out.Tier == domain.RiskSafe {
		return out
	}

	escape := BearingTo(nearest.Location, observer)
	safe := DestinationPoint(observer, escape, PushoutKm(dist, t))
	out.SuggestedSafePoint = &safe
	return out
}
