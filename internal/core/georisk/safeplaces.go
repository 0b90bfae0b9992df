package georisk

import (
	"math"
	"sort"

	"github.com/fireshield/firewatch/internal/core/domain"
	"github.com/fireshield/firewatch/internal/pkg/geospatial"
)

// RankSafePlaces orders known safe places by distance from the observer and
// marks each one clear when its own nearest hazard lies at or beyond the
// moderate threshold. HazardDistanceKm is -1 when there are no hazards.
func RankSafePlaces(observer domain.GeoPoint, hazards []domain.Hotspot, places []domain.SafePlace, t domain.Thresholds) []domain.RankedSafePlace {
	if len(places) == 0 {
		return nil
	}

	ranked := make([]domain.RankedSafePlace, 0, len(places))
	for _, p := range places {
		r := domain.RankedSafePlace{
			SafePlace:        p,
			DistanceKm:       GreatCircleDistanceKm(observer, p.Location),
			HazardDistanceKm: hazardClearance(p.Location, hazards, t.ModerateKm),
			Clear:            true,
		}
		if r.HazardDistanceKm >= 0 {
			r.Clear = Classify(r.HazardDistanceKm, t) == domain.RiskSafe
		}
		ranked = append(ranked, r)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})
	return ranked
}

// hazardClearance returns the distance from p to its nearest hazard, or -1
// when there are none. Only hazards inside the bounding box of the radiusKm
// circle are measured first; the full scan runs when none of them is closer
// than radiusKm.
func hazardClearance(p domain.GeoPoint, hazards []domain.Hotspot, radiusKm float64) float64 {
	if len(hazards) == 0 {
		return -1
	}

	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(p.Lat, p.Lon, radiusKm)
	halfLon := (maxLon - minLon) / 2
	best := -1.0
	for i := range hazards {
		h := hazards[i].Location
		if h.Lat < minLat || h.Lat > maxLat || math.Abs(geospatial.NormalizeLon(h.Lon-p.Lon)) > halfLon {
			continue
		}
		if d := GreatCircleDistanceKm(p, h); best < 0 || d < best {
			best = d
		}
	}
	if best >= 0 && best < radiusKm {
		return best
	}

	_, d := Nearest(p, hazards)
	return d
}
