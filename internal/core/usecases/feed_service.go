package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fireshield/firewatch/internal/core/domain"
	"github.com/fireshield/firewatch/internal/core/ports"
	"github.com/fireshield/firewatch/internal/pkg/metrics"
	"github.com/fireshield/firewatch/internal/pkg/telemetry"
)

// FeedService refreshes the stored hotspot snapshot from FIRMS sources.
type FeedService struct {
	source    ports.FeedSource
	hotspots  ports.HotspotRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
	now       func() time.Time
}

// NewFeedService creates a new FeedService. cache and publisher may be nil.
func NewFeedService(
	source ports.FeedSource,
	hotspots ports.HotspotRepository,
	cache ports.CacheService,
	publisher ports.EventPublisher,
) *FeedService {
	return &FeedService{
		source:    source,
		hotspots:  hotspots,
		cache:     cache,
		publisher: publisher,
		now:       time.Now,
	}
}

// Refresh loads one source, upserts its detections, prunes the ones that
// disappeared from it, invalidates cached reads and announces the refresh.
func (s *FeedService) Refresh(ctx context.Context, source string) (*domain.FeedSnapshot, error) {
	ctx, span := otel.Tracer("firewatch/feed").Start(ctx, "FeedService.Refresh")
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrFeedSource, source))

	start := s.now()
	defer func() {
		metrics.FeedPollDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}()

	hotspots, snap, err := s.source.Fetch(ctx, source)
	if err != nil {
		metrics.FeedPollErrors.WithLabelValues(source).Inc()
		return nil, fmt.Errorf("fetch %s: %w", source, err)
	}

	seenAt := s.now()
	if err := s.hotspots.UpsertBatch(ctx, hotspots, seenAt); err != nil {
		metrics.FeedPollErrors.WithLabelValues(source).Inc()
		return nil, fmt.Errorf("upsert hotspots: %w", err)
	}

	pruned, err := s.hotspots.PruneStale(ctx, source, seenAt)
	if err != nil {
		// Stale rows linger until the next refresh; the new ones are stored.
		slog.WarnContext(ctx, "prune stale hotspots failed", "source", source, "error", err)
	}

	snap.Source = source
	snap.Pruned = pruned
	snap.RefreshedAt = seenAt
	span.SetAttributes(
		attribute.Int(telemetry.AttrFeedAccepted, snap.Accepted),
		attribute.Int(telemetry.AttrFeedMalformed, snap.Malformed),
		attribute.Int(telemetry.AttrFeedOutOfRegion, snap.OutOfRegion),
	)

	metrics.HotspotsIngested.WithLabelValues(source).Add(float64(snap.Accepted))
	metrics.FeedRowsRejected.WithLabelValues(source, "malformed").Add(float64(snap.Malformed))
	metrics.FeedRowsRejected.WithLabelValues(source, "out_of_region").Add(float64(snap.OutOfRegion))

	if s.cache != nil {
		gen := strconv.FormatInt(seenAt.UnixNano(), 10)
		if err := s.cache.Set(ctx, generationKey, []byte(gen), 24*3600); err != nil {
			slog.WarnContext(ctx, "hotspot cache invalidation failed", "error", err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishHotspotsRefreshed(ctx, &snap); err != nil {
			slog.WarnContext(ctx, "publish refresh event failed", "error", err)
		}
	}

	slog.InfoContext(ctx, "hotspot feed refreshed",
		"source", source,
		"rows", snap.Rows,
		"accepted", snap.Accepted,
		"malformed", snap.Malformed,
		"out_of_region", snap.OutOfRegion,
		"pruned", snap.Pruned,
	)
	return &snap, nil
}
