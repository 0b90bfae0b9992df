package usecases_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fireshield/firewatch/internal/core/domain"
)

var errCacheMiss = errors.New("cache miss")

// --- Mock HotspotRepository ---

type mockHotspotRepo struct {
	upsertBatchFn func(ctx context.Context, hotspots []domain.Hotspot, seenAt time.Time) error
	pruneStaleFn  func(ctx context.Context, source string, before time.Time) (int64, error)
	listFn        func(ctx context.Context, bounds *domain.Bounds, offset, limit int) ([]domain.Hotspot, int, error)
	allFn         func(ctx context.Context) ([]domain.Hotspot, error)
	findNearbyFn  func(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]domain.Hotspot, error)
}

func (m *mockHotspotRepo) UpsertBatch(ctx context.Context, hotspots []domain.Hotspot, seenAt time.Time) error {
	if m.upsertBatchFn != nil {
		return m.upsertBatchFn(ctx, hotspots, seenAt)
	}
	return nil
}

func (m *mockHotspotRepo) PruneStale(ctx context.Context, source string, before time.Time) (int64, error) {
	if m.pruneStaleFn != nil {
		return m.pruneStaleFn(ctx, source, before)
	}
	return 0, nil
}

func (m *mockHotspotRepo) List(ctx context.Context, bounds *domain.Bounds, offset, limit int) ([]domain.Hotspot, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, bounds, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockHotspotRepo) All(ctx context.Context) ([]domain.Hotspot, error) {
	if m.allFn != nil {
		return m.allFn(ctx)
	}
	return nil, nil
}

func (m *mockHotspotRepo) FindNearby(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]domain.Hotspot, error) {
	if m.findNearbyFn != nil {
		return m.findNearbyFn(ctx, lat, lon, radiusKm, limit)
	}
	return nil, nil
}

// --- In-memory CacheService ---

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// --- Recording EventPublisher ---

type mockPublisher struct {
	mu          sync.Mutex
	refreshed   []domain.FeedSnapshot
	assessments []domain.RiskAssessment
	alerts      []domain.EmergencyAlert
	err         error
}

func (m *mockPublisher) PublishHotspotsRefreshed(ctx context.Context, snap *domain.FeedSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshed = append(m.refreshed, *snap)
	return m.err
}

func (m *mockPublisher) PublishRiskAssessment(ctx context.Context, a *domain.RiskAssessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assessments = append(m.assessments, *a)
	return m.err
}

func (m *mockPublisher) PublishEmergencyAlert(ctx context.Context, alert *domain.EmergencyAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, *alert)
	return m.err
}

// --- Mock FeedSource ---

type mockFeedSource struct {
	fetchFn func(ctx context.Context, source string) ([]domain.Hotspot, domain.FeedSnapshot, error)
}

func (m *mockFeedSource) Fetch(ctx context.Context, source string) ([]domain.Hotspot, domain.FeedSnapshot, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, source)
	}
	return nil, domain.FeedSnapshot{}, nil
}

// --- Mock NotificationService ---

type mockNotifier struct {
	sendFn func(ctx context.Context, to, body string) (string, error)
	sent   []string
}

func (m *mockNotifier) SendSMS(ctx context.Context, to, body string) (string, error) {
	m.sent = append(m.sent, body)
	if m.sendFn != nil {
		return m.sendFn(ctx, to, body)
	}
	return "SM0001", nil
}

// --- Static HazardLoader ---

type staticHazards []domain.Hotspot

func (s staticHazards) All(ctx context.Context) ([]domain.Hotspot, error) { return s, nil }

type failingHazards struct{ err error }

func (f failingHazards) All(ctx context.Context) ([]domain.Hotspot, error) { return nil, f.err }

var defaultThresholds = domain.Thresholds{HighKm: 3, ModerateKm: 5, PushoutKm: 3}

func hotspotAt(lat, lon float64) domain.Hotspot {
	loc := domain.GeoPoint{Lat: lat, Lon: lon}
	return domain.Hotspot{ID: domain.HotspotID(loc, nil, "T"), Location: loc, Weight: 1}
}
