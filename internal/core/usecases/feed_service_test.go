package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fireshield/firewatch/internal/core/domain"
	"github.com/fireshield/firewatch/internal/core/usecases"
)

func TestFeedService_Refresh(t *testing.T) {
	source := &mockFeedSource{
		fetchFn: func(ctx context.Context, src string) ([]domain.Hotspot, domain.FeedSnapshot, error) {
			return []domain.Hotspot{hotspotAt(45, -75), hotspotAt(46, -76)},
				domain.FeedSnapshot{Rows: 4, Accepted: 2, Malformed: 1, OutOfRegion: 1}, nil
		},
	}
	var upserted int
	var upsertAt, pruneBefore time.Time
	repo := &mockHotspotRepo{
		upsertBatchFn: func(ctx context.Context, hotspots []domain.Hotspot, seenAt time.Time) error {
			upserted = len(hotspots)
			upsertAt = seenAt
			return nil
		},
		pruneStaleFn: func(ctx context.Context, src string, before time.Time) (int64, error) {
			if src != "modis.csv" {
				t.Errorf("expected prune of modis.csv, got %s", src)
			}
			pruneBefore = before
			return 3, nil
		},
	}
	pub := &mockPublisher{}
	svc := usecases.NewFeedService(source, repo, nil, pub)

	snap, err := svc.Refresh(context.Background(), "modis.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if upserted != 2 {
		t.Errorf("expected 2 upserted, got %d", upserted)
	}
	if !upsertAt.Equal(pruneBefore) {
		t.Errorf("prune cutoff %v must equal upsert time %v", pruneBefore, upsertAt)
	}
	if snap.Source != "modis.csv" || snap.Pruned != 3 || snap.Malformed != 1 || snap.OutOfRegion != 1 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if len(pub.refreshed) != 1 || pub.refreshed[0].Accepted != 2 {
		t.Errorf("expected one refresh event with 2 accepted, got %+v", pub.refreshed)
	}
}

func TestFeedService_Refresh_FetchError(t *testing.T) {
	source := &mockFeedSource{
		fetchFn: func(ctx context.Context, src string) ([]domain.Hotspot, domain.FeedSnapshot, error) {
			return nil, domain.FeedSnapshot{}, errors.New("404 not found")
		},
	}
	upsertCalled := false
	repo := &mockHotspotRepo{
		upsertBatchFn: func(ctx context.Context, hotspots []domain.Hotspot, seenAt time.Time) error {
			upsertCalled = true
			return nil
		},
	}
	pub := &mockPublisher{}
	svc := usecases.NewFeedService(source, repo, nil, pub)

	if _, err := svc.Refresh(context.Background(), "https://example.invalid/feed.csv"); err == nil {
		t.Fatal("expected error")
	}
	if upsertCalled {
		t.Error("nothing must be stored when the fetch fails")
	}
	if len(pub.refreshed) != 0 {
		t.Error("no refresh event expected on failure")
	}
}

func TestFeedService_Refresh_PruneErrorIsNotFatal(t *testing.T) {
	repo := &mockHotspotRepo{
		pruneStaleFn: func(ctx context.Context, src string, before time.Time) (int64, error) {
			return 0, errors.New("lock timeout")
		},
	}
	svc := usecases.NewFeedService(&mockFeedSource{}, repo, nil, nil)

	if _, err := svc.Refresh(context.Background(), "modis.csv"); err != nil {
		t.Fatalf("prune failure should not fail the refresh: %v", err)
	}
}

func TestFeedService_Refresh_PublishErrorIsNotFatal(t *testing.T) {
	pub := &mockPublisher{err: errors.New("nats down")}
	svc := usecases.NewFeedService(&mockFeedSource{}, &mockHotspotRepo{}, nil, pub)

	if _, err := svc.Refresh(context.Background(), "modis.csv"); err != nil {
		t.Fatalf("publish failure should not fail the refresh: %v", err)
	}
}
