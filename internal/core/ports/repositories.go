package ports

import (
	"context"
	"time"

	"github.com/fireshield/firewatch/internal/core/domain"
)

// HotspotRepository persists the current fire-detection snapshot.
type HotspotRepository interface {
	// UpsertBatch inserts or refreshes detections, stamping them with seenAt.
	UpsertBatch(ctx context.Context, hotspots []domain.Hotspot, seenAt time.Time) error
	// PruneStale removes detections of a source not seen since the given time.
	PruneStale(ctx context.Context, source string, before time.Time) (int64, error)
	// List returns a page of detections, optionally restricted to bounds, plus the total count.
	List(ctx context.Context, bounds *domain.Bounds, offset, limit int) ([]domain.Hotspot, int, error)
	// All returns every current detection in a stable order.
	All(ctx context.Context) ([]domain.Hotspot, error)
	// FindNearby returns detections within radiusKm of a point, nearest first.
	FindNearby(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]domain.Hotspot, error)
}
