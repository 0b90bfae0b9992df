package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fireshield/firewatch/internal/core/domain"
	"github.com/fireshield/firewatch/internal/core/usecases"
)

func TestHotspotService_All_CachesAndAnnotates(t *testing.T) {
	acquired := time.Now().Add(-2 * time.Hour)
	calls := 0
	repo := &mockHotspotRepo{
		allFn: func(ctx context.Context) ([]domain.Hotspot, error) {
			calls++
			h := hotspotAt(45, -75)
			h.AcquiredAt = &acquired
			return []domain.Hotspot{h, hotspotAt(46, -75)}, nil
		},
	}
	svc := usecases.NewHotspotService(repo, newMemCache())

	for i := 0; i < 2; i++ {
		hotspots, err := svc.All(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hotspots) != 2 {
			t.Fatalf("expected 2 hotspots, got %d", len(hotspots))
		}
		if hotspots[0].AgeGroup != domain.Age1to4h {
			t.Errorf("expected age group %s, got %s", domain.Age1to4h, hotspots[0].AgeGroup)
		}
		if hotspots[1].AgeGroup != domain.AgeUndefined {
			t.Errorf("expected age group %s, got %s", domain.AgeUndefined, hotspots[1].AgeGroup)
		}
	}
	if calls != 1 {
		t.Errorf("expected repository to be hit once, got %d", calls)
	}
}

func TestHotspotService_All_RepoError(t *testing.T) {
	repo := &mockHotspotRepo{
		allFn: func(ctx context.Context) ([]domain.Hotspot, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := usecases.NewHotspotService(repo, nil)

	if _, err := svc.All(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestHotspotService_List_ClampsPaging(t *testing.T) {
	var gotOffset, gotLimit int
	repo := &mockHotspotRepo{
		listFn: func(ctx context.Context, bounds *domain.Bounds, offset, limit int) ([]domain.Hotspot, int, error) {
			gotOffset, gotLimit = offset, limit
			return nil, 0, nil
		},
	}
	svc := usecases.NewHotspotService(repo, nil)

	if _, _, err := svc.List(context.Background(), nil, -5, 10000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotOffset != 0 {
		t.Errorf("expected offset 0, got %d", gotOffset)
	}
	if gotLimit != 100 {
		t.Errorf("expected limit clamped to 100, got %d", gotLimit)
	}
}

func TestHotspotService_List_PassesBounds(t *testing.T) {
	bounds := &domain.Bounds{MinLat: 44, MinLon: -76, MaxLat: 46, MaxLon: -74}
	repo := &mockHotspotRepo{
		listFn: func(ctx context.Context, b *domain.Bounds, offset, limit int) ([]domain.Hotspot, int, error) {
			if b == nil || *b != *bounds {
				t.Errorf("expected bounds %+v, got %+v", bounds, b)
			}
			return []domain.Hotspot{hotspotAt(45, -75)}, 7, nil
		},
	}
	svc := usecases.NewHotspotService(repo, nil)

	hotspots, total, err := svc.List(context.Background(), bounds, 0, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hotspots) != 1 || total != 7 {
		t.Errorf("expected 1 hotspot of 7, got %d of %d", len(hotspots), total)
	}
}

func TestHotspotService_Nearby_Validation(t *testing.T) {
	svc := usecases.NewHotspotService(&mockHotspotRepo{}, nil)

	_, err := svc.Nearby(context.Background(), domain.GeoPoint{Lat: 95, Lon: 0}, 10, 5)
	if !errors.Is(err, domain.ErrInvalidCoordinate) {
		t.Errorf("expected ErrInvalidCoordinate, got %v", err)
	}

	if _, err := svc.Nearby(context.Background(), domain.GeoPoint{Lat: 45, Lon: -75}, 0, 5); err == nil {
		t.Error("expected error for zero radius")
	}
}

func TestHotspotService_Nearby_ClampLimit(t *testing.T) {
	called := false
	repo := &mockHotspotRepo{
		findNearbyFn: func(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]domain.Hotspot, error) {
			called = true
			if limit != 50 {
				t.Errorf("expected limit clamped to 50, got %d", limit)
			}
			if radiusKm != 25 {
				t.Errorf("expected radius 25, got %v", radiusKm)
			}
			return nil, nil
		},
	}
	svc := usecases.NewHotspotService(repo, nil)

	if _, err := svc.Nearby(context.Background(), domain.GeoPoint{Lat: 45, Lon: -75}, 25, 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected FindNearby to be called")
	}
}

func TestHotspotService_RefreshInvalidatesCache(t *testing.T) {
	cache := newMemCache()
	version := 1
	repo := &mockHotspotRepo{
		allFn: func(ctx context.Context) ([]domain.Hotspot, error) {
			out := make([]domain.Hotspot, version)
			for i := range out {
				out[i] = hotspotAt(45+float64(i), -75)
			}
			return out, nil
		},
	}
	hotspots := usecases.NewHotspotService(repo, cache)
	feed := usecases.NewFeedService(&mockFeedSource{}, repo, cache, nil)

	first, _ := hotspots.All(context.Background())
	if len(first) != 1 {
		t.Fatalf("expected 1 hotspot, got %d", len(first))
	}

	version = 2
	if _, err := feed.Refresh(context.Background(), "test.csv"); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	second, _ := hotspots.All(context.Background())
	if len(second) != 2 {
		t.Errorf("expected cache invalidated after refresh, got %d hotspots", len(second))
	}
}
