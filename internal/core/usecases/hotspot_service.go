package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fireshield/firewatch/internal/core/domain"
	"github.com/fireshield/firewatch/internal/core/ports"
)

// generationKey holds the timestamp of the latest feed refresh. Every other
// hotspot cache key embeds it, so a refresh invalidates them all at once.
const generationKey = "hotspots:generation"

// HotspotService handles hotspot read paths.
type HotspotService struct {
	hotspots ports.HotspotRepository
	cache    ports.CacheService
	now      func() time.Time
}

// NewHotspotService creates a new HotspotService.
func NewHotspotService(hotspots ports.HotspotRepository, cache ports.CacheService) *HotspotService {
	return &HotspotService{hotspots: hotspots, cache: cache, now: time.Now}
}

// All returns every current detection. The risk engine scans this list.
func (s *HotspotService) All(ctx context.Context) ([]domain.Hotspot, error) {
	cacheKey := s.key(ctx, "all")

	var hotspots []domain.Hotspot
	if s.cacheGet(ctx, cacheKey, &hotspots) {
		return s.annotate(hotspots), nil
	}

	hotspots, err := s.hotspots.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load hotspots: %w", err)
	}

	// Cache for 5 minutes, the feed's own refresh cadence
	s.cacheSet(ctx, cacheKey, hotspots, 300)
	return s.annotate(hotspots), nil
}

// HotspotPage is one page of a hotspot listing.
type HotspotPage struct {
	Hotspots []domain.Hotspot `json:"hotspots"`
	Total    int              `json:"total"`
}

// List returns a page of detections, optionally restricted to bounds.
func (s *HotspotService) List(ctx context.Context, bounds *domain.Bounds, offset, limit int) ([]domain.Hotspot, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	boundsKey := "any"
	if bounds != nil {
		boundsKey = fmt.Sprintf("%.3f:%.3f:%.3f:%.3f", bounds.MinLat, bounds.MinLon, bounds.MaxLat, bounds.MaxLon)
	}
	cacheKey := s.key(ctx, fmt.Sprintf("list:%s:%d:%d", boundsKey, offset, limit))

	var page HotspotPage
	if s.cacheGet(ctx, cacheKey, &page) {
		return s.annotate(page.Hotspots), page.Total, nil
	}

	hotspots, total, err := s.hotspots.List(ctx, bounds, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list hotspots: %w", err)
	}

	s.cacheSet(ctx, cacheKey, HotspotPage{Hotspots: hotspots, Total: total}, 300)
	return s.annotate(hotspots), total, nil
}

// Nearby returns detections within radiusKm of a point, nearest first.
func (s *HotspotService) Nearby(ctx context.Context, p domain.GeoPoint, radiusKm float64, limit int) ([]domain.Hotspot, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if radiusKm <= 0 {
		return nil, fmt.Errorf("radius must be positive, got %v", radiusKm)
	}
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	cacheKey := s.key(ctx, fmt.Sprintf("nearby:%.4f:%.4f:%.1f:%d", p.Lat, p.Lon, radiusKm, limit))

	var hotspots []domain.Hotspot
	if s.cacheGet(ctx, cacheKey, &hotspots) {
		return s.annotate(hotspots), nil
	}

	hotspots, err := s.hotspots.FindNearby(ctx, p.Lat, p.Lon, radiusKm, limit)
	if err != nil {
		return nil, fmt.Errorf("find nearby hotspots: %w", err)
	}

	s.cacheSet(ctx, cacheKey, hotspots, 300)
	return s.annotate(hotspots), nil
}

// annotate stamps the age group relative to the current time. Cached copies
// carry no age group since it changes while they sit in the cache.
func (s *HotspotService) annotate(hotspots []domain.Hotspot) []domain.Hotspot {
	now := s.now()
	for i := range hotspots {
		hotspots[i].AgeGroup = domain.ClassifyAge(hotspots[i].AcquiredAt, now)
	}
	return hotspots
}

func (s *HotspotService) key(ctx context.Context, suffix string) string {
	gen := "0"
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, generationKey); err == nil && len(data) > 0 {
			gen = string(data)
		}
	}
	return "hotspots:" + gen + ":" + suffix
}

func (s *HotspotService) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *HotspotService) cacheSet(ctx context.Context, key string, v any, ttlSeconds int) {
	if s.cache == nil {
		return
	}
	if data, err := json.Marshal(v); err == nil {
		_ = s.cache.Set(ctx, key, data, ttlSeconds)
	}
}
