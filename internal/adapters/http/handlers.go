package http

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"github.com/fireshield/firewatch/internal/core/domain"
)

// queryPoint reads the required lat and lon query parameters.
func queryPoint(c *fiber.Ctx) (domain.GeoPoint, error) {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return domain.GeoPoint{}, errors.New("lat and lon are required")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("lat is not a number: %q", latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("lon is not a number: %q", lonStr)
	}
	p := domain.GeoPoint{Lat: lat, Lon: lon}
	if err := p.Validate(); err != nil {
		return domain.GeoPoint{}, err
	}
	return p, nil
}

// parseBBox parses "min_lat,min_lon,max_lat,max_lon".
func parseBBox(s string) (*domain.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, errors.New("bbox must be min_lat,min_lon,max_lat,max_lon")
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("bbox value %q is not a number", p)
		}
		v[i] = f
	}
	b := &domain.Bounds{MinLat: v[0], MinLon: v[1], MaxLat: v[2], MaxLon: v[3]}
	if b.MinLat > b.MaxLat || b.MinLon > b.MaxLon {
		return nil, errors.New("bbox minimums must not exceed maximums")
	}
	for _, p := range []domain.GeoPoint{{Lat: b.MinLat, Lon: b.MinLon}, {Lat: b.MaxLat, Lon: b.MaxLon}} {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// ListHotspotsHandler returns a page of current detections.
func ListHotspotsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var bounds *domain.Bounds
		if bbox := c.Query("bbox"); bbox != "" {
			b, err := parseBBox(bbox)
			if err != nil {
				return errBadRequest(c, err.Error())
			}
			bounds = b
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 500 {
			limit = 100
		}

		hotspots, total, err := deps.Hotspots.List(c.UserContext(), bounds, offset, limit)
		if err != nil {
			return errFromService(c, err)
		}
		if hotspots == nil {
			hotspots = []domain.Hotspot{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: hotspots, Pagination: pg})
	}
}

// NearbyHotspotsHandler returns detections within a radius of a point.
func NearbyHotspotsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := queryPoint(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		radius := c.QueryFloat("radius_km", 50)
		if radius <= 0 || radius > 500 {
			return errBadRequest(c, "radius_km must be between 0 and 500")
		}
		limit := c.QueryInt("limit", 20)

		hotspots, err := deps.Hotspots.Nearby(c.UserContext(), p, radius, limit)
		if err != nil {
			return errFromService(c, err)
		}
		if hotspots == nil {
			hotspots = []domain.Hotspot{}
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(hotspots)
	}
}

// RiskHandler assesses the observer given by lat and lon with the configured thresholds.
func RiskHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := queryPoint(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		assessment, err := deps.Risk.Assess(c.UserContext(), p, nil)
		if err != nil {
			return errFromService(c, err)
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(assessment)
	}
}

// RiskRequest is the body of POST /v1/risk.
type RiskRequest struct {
	Observer   *domain.GeoPoint   `json:"observer"`
	Thresholds *domain.Thresholds `json:"thresholds,omitempty"`
}

// AssessRiskHandler assesses an observer, optionally with per-request thresholds.
func AssessRiskHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req RiskRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Observer == nil {
			return errBadRequest(c, "observer is required")
		}

		assessment, err := deps.Risk.Assess(c.UserContext(), *req.Observer, req.Thresholds)
		if err != nil {
			return errFromService(c, err)
		}
		return c.JSON(assessment)
	}
}

// SafePlacesHandler lists the configured safe places, ranked when lat and lon are given.
func SafePlacesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("lat") == "" && c.Query("lon") == "" {
			places := deps.Risk.SafePlaces()
			if places == nil {
				places = []domain.SafePlace{}
			}
			c.Set("Cache-Control", "public, max-age=3600")
			return c.JSON(places)
		}

		p, err := queryPoint(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		ranked, err := deps.Risk.RankSafePlaces(c.UserContext(), p)
		if err != nil {
			return errFromService(c, err)
		}
		if ranked == nil {
			ranked = []domain.RankedSafePlace{}
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(ranked)
	}
}

// AlertRequest is the body of POST /v1/emergency-alerts.
type AlertRequest struct {
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
	Note string   `json:"note,omitempty"`
}

const maxNoteChars = 1000

// EmergencyAlertHandler sends an SMS for an observer in the high-risk band.
// With a dispatcher the alert is queued (202), otherwise it is sent in the
// request (201).
func EmergencyAlertHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req AlertRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Lat == nil || req.Lon == nil {
			return errBadRequest(c, "lat and lon are required")
		}
		if utf8.RuneCountInString(req.Note) > maxNoteChars {
			return errBadRequest(c, fmt.Sprintf("note too long (max %d characters)", maxNoteChars))
		}
		observer := domain.GeoPoint{Lat: *req.Lat, Lon: *req.Lon}

		if deps.Dispatcher != nil {
			alert, err := deps.Dispatcher.Dispatch(c.UserContext(), observer, req.Note)
			if err != nil {
				return errFromService(c, err)
			}
			return c.Status(fiber.StatusAccepted).JSON(alert)
		}

		if deps.Alerts == nil {
			return errUnavailable(c, "emergency alerts are not configured")
		}
		alert, err := deps.Alerts.Raise(c.UserContext(), observer, req.Note)
		if err != nil {
			if alert != nil && alert.Status == domain.AlertFailed {
				LoggerFromCtx(c.UserContext()).Error("emergency sms failed", "alert_id", alert.ID, "error", err)
				return newError(c, fiber.StatusBadGateway, "delivery_failed", "the SMS gateway rejected the alert")
			}
			return errFromService(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(alert)
	}
}

// legacyHotspot mirrors the FIRMS CSV columns served by the first API version.
type legacyHotspot struct {
	Latitude   string `json:"latitude"`
	Longitude  string `json:"longitude"`
	Brightness string `json:"brightness"`
	AcqDate    string `json:"acq_date,omitempty"`
	AcqTime    string `json:"acq_time,omitempty"`
	Satellite  string `json:"satellite,omitempty"`
	Confidence string `json:"confidence,omitempty"`
	FRP        string `json:"frp,omitempty"`
	DayNight   string `json:"daynight,omitempty"`
}

// LegacyFirmsHandler serves GET /api/nasa-firms, superseded by /v1/hotspots.
func LegacyFirmsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		hotspots, err := deps.Hotspots.All(c.UserContext())
		if err != nil {
			return errFromService(c, err)
		}

		data := make([]legacyHotspot, 0, len(hotspots))
		for _, h := range hotspots {
			row := legacyHotspot{
				Latitude:   strconv.FormatFloat(h.Location.Lat, 'f', -1, 64),
				Longitude:  strconv.FormatFloat(h.Location.Lon, 'f', -1, 64),
				Brightness: strconv.FormatFloat(h.Weight, 'f', -1, 64),
				Satellite:  h.Satellite,
				Confidence: h.Confidence,
				DayNight:   h.DayNight,
			}
			if h.FRP > 0 {
				row.FRP = strconv.FormatFloat(h.FRP, 'f', -1, 64)
			}
			if h.AcquiredAt != nil {
				t := h.AcquiredAt.UTC()
				row.AcqDate = t.Format("2006-01-02")
				row.AcqTime = t.Format("1504")
			}
			data = append(data, row)
		}

		return c.JSON(fiber.Map{
			"message": "NASA FIRMS hotspots",
			"data":    data,
		})
	}
}
