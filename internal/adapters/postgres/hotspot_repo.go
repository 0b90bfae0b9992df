package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fireshield/firewatch/internal/core/domain"
)

// upsertChunk bounds the number of statements per pgx batch.
const upsertChunk = 1000

const hotspotColumns = `
	id, source,
	ST_Y(location::geometry) AS lat,
	ST_X(location::geometry) AS lon,
	weight, acquired_at,
	COALESCE(satellite, ''), COALESCE(instrument, ''), COALESCE(confidence, ''),
	COALESCE(frp, 0), COALESCE(daynight, '')`

// HotspotRepo implements ports.HotspotRepository with pgx and PostGIS.
type HotspotRepo struct {
	db *DB
}

// NewHotspotRepo creates a new HotspotRepo.
func NewHotspotRepo(db *DB) *HotspotRepo {
	return &HotspotRepo{db: db}
}

// UpsertBatch inserts or refreshes detections using pgx.Batch. The position
// column keeps the snapshot's row order so reads stay deterministic.
func (r *HotspotRepo) UpsertBatch(ctx context.Context, hotspots []domain.Hotspot, seenAt time.Time) error {
	for start := 0; start < len(hotspots); start += upsertChunk {
		end := min(start+upsertChunk, len(hotspots))
		if err := r.upsertChunk(ctx, hotspots[start:end], start, seenAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *HotspotRepo) upsertChunk(ctx context.Context, hotspots []domain.Hotspot, offset int, seenAt time.Time) error {
	batch := &pgx.Batch{}
	for i, h := range hotspots {
		batch.Queue(`
			INSERT INTO hotspots (id, source, location, weight, acquired_at,
			                      satellite, instrument, confidence, frp, daynight,
			                      position, seen_at)
			VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography, $5, $6,
			        NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10, NULLIF($11, ''),
			        $12, $13)
			ON CONFLICT (source, id) DO UPDATE
			SET weight = EXCLUDED.weight, confidence = EXCLUDED.confidence,
			    frp = EXCLUDED.frp, position = EXCLUDED.position,
			    seen_at = EXCLUDED.seen_at
		`, h.ID, h.Source, h.Location.Lon, h.Location.Lat, h.Weight, h.AcquiredAt,
			h.Satellite, h.Instrument, h.Confidence, h.FRP, h.DayNight,
			offset+i, seenAt)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range hotspots {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// PruneStale deletes detections of a source that the latest snapshot no longer lists.
func (r *HotspotRepo) PruneStale(ctx context.Context, source string, before time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		DELETE FROM hotspots WHERE source = $1 AND seen_at < $2
	`, source, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// All returns every detection ordered by source and snapshot row.
func (r *HotspotRepo) All(ctx context.Context) ([]domain.Hotspot, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+hotspotColumns+`
		FROM hotspots
		ORDER BY source, position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectHotspots(rows)
}

// List returns a page of detections, optionally inside bounds, plus the total.
func (r *HotspotRepo) List(ctx context.Context, bounds *domain.Bounds, offset, limit int) ([]domain.Hotspot, int, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if bounds == nil {
		rows, err = r.db.Pool.Query(ctx, `
			SELECT `+hotspotColumns+`, COUNT(*) OVER()::float8 AS total
			FROM hotspots
			ORDER BY acquired_at DESC NULLS LAST, source, position
			OFFSET $1 LIMIT $2
		`, offset, limit)
	} else {
		rows, err = r.db.Pool.Query(ctx, `
			SELECT `+hotspotColumns+`, COUNT(*) OVER()::float8 AS total
			FROM hotspots
			WHERE location::geometry && ST_MakeEnvelope($1, $2, $3, $4, 4326)
			ORDER BY acquired_at DESC NULLS LAST, source, position
			OFFSET $5 LIMIT $6
		`, bounds.MinLon, bounds.MinLat, bounds.MaxLon, bounds.MaxLat, offset, limit)
	}
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		hotspots []domain.Hotspot
		total    int
	)
	for rows.Next() {
		h, extra, err := scanHotspot(rows, 1)
		if err != nil {
			return nil, 0, err
		}
		total = int(extra[0])
		hotspots = append(hotspots, h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(hotspots) == 0 && offset > 0 {
		// The window count is empty past the last page; count separately.
		if err := r.count(ctx, bounds, &total); err != nil {
			return nil, 0, err
		}
	}
	return hotspots, total, nil
}

func (r *HotspotRepo) count(ctx context.Context, bounds *domain.Bounds, total *int) error {
	if bounds == nil {
		return r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM hotspots`).Scan(total)
	}
	return r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM hotspots
		WHERE location::geometry && ST_MakeEnvelope($1, $2, $3, $4, 4326)
	`, bounds.MinLon, bounds.MinLat, bounds.MaxLon, bounds.MaxLat).Scan(total)
}

// FindNearby returns detections within radiusKm using PostGIS ST_DWithin.
func (r *HotspotRepo) FindNearby(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]domain.Hotspot, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+hotspotColumns+`,
		       ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) AS distance
		FROM hotspots
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY distance, source, position
		LIMIT $4
	`, lon, lat, radiusKm*1000, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hotspots []domain.Hotspot
	for rows.Next() {
		h, _, err := scanHotspot(rows, 1)
		if err != nil {
			return nil, err
		}
		hotspots = append(hotspots, h)
	}
	return hotspots, rows.Err()
}

func collectHotspots(rows pgx.Rows) ([]domain.Hotspot, error) {
	var hotspots []domain.Hotspot
	for rows.Next() {
		h, _, err := scanHotspot(rows, 0)
		if err != nil {
			return nil, err
		}
		hotspots = append(hotspots, h)
	}
	return hotspots, rows.Err()
}

// scanHotspot reads the hotspotColumns plus `extra` trailing numeric columns.
func scanHotspot(rows pgx.Rows, extra int) (domain.Hotspot, []float64, error) {
	var h domain.Hotspot
	tail := make([]float64, extra)
	dest := []any{
		&h.ID, &h.Source,
		&h.Location.Lat, &h.Location.Lon,
		&h.Weight, &h.AcquiredAt,
		&h.Satellite, &h.Instrument, &h.Confidence,
		&h.FRP, &h.DayNight,
	}
	for i := range tail {
		dest = append(dest, &tail[i])
	}
	if err := rows.Scan(dest...); err != nil {
		return h, nil, err
	}
	return h, tail, nil
}
