package http

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/fireshield/firewatch/internal/core/domain"
)

// hotspotFeatures converts detections into a GeoJSON FeatureCollection.
func hotspotFeatures(hotspots []domain.Hotspot) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(hotspots))}
	for _, h := range hotspots {
		props := map[string]interface{}{
			"weight":    h.Weight,
			"age_group": h.AgeGroup,
		}
		if h.AcquiredAt != nil {
			props["acquired_at"] = h.AcquiredAt.UTC().Format(time.RFC3339)
		}
		if h.Satellite != "" {
			props["satellite"] = h.Satellite
		}
		if h.Confidence != "" {
			props["confidence"] = h.Confidence
		}
		if h.FRP > 0 {
			props["frp"] = h.FRP
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         h.ID,
			Geometry:   geom.NewPointFlat(geom.XY, []float64{h.Location.Lon, h.Location.Lat}),
			Properties: props,
		})
	}
	return fc
}

// HotspotsGeoJSONHandler returns every current detection as a FeatureCollection.
func HotspotsGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		hotspots, err := deps.Hotspots.All(c.UserContext())
		if err != nil {
			return errFromService(c, err)
		}

		data, err := json.Marshal(hotspotFeatures(hotspots))
		if err != nil {
			return errInternal(c, "encode geojson")
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(data)
	}
}
