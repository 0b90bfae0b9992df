// Package firms reads NASA FIRMS active-fire CSV snapshots.
package firms

import (
	"context"
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/fireshield/firewatch/internal/core/domain"
)

// ParseStats counts what happened to the rows of one snapshot.
type ParseStats struct {
	Rows        int
	Accepted    int
	Malformed   int
	OutOfRegion int
}

// ParseOptions configures Parse.
type ParseOptions struct {
	// Region drops detections outside it. The zero value keeps everything.
	Region domain.Bounds
	// Source is stamped on every hotspot.
	Source string
}

// columns maps the header names Parse understands to their index.
type columns struct {
	lat, lon, brightness, date, hhmm  int
	satellite, instrument, confidence int
	frp, daynight                     int
}

func indexColumns(header []string) (columns, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	get := func(names ...string) int {
		for _, n := range names {
			if i, ok := idx[n]; ok {
				return i
			}
		}
		return -1
	}

	c := columns{
		lat:        get("latitude"),
		lon:        get("longitude"),
		brightness: get("brightness", "bright_ti4"),
		date:       get("acq_date"),
		hhmm:       get("acq_time"),
		satellite:  get("satellite"),
		instrument: get("instrument"),
		confidence: get("confidence"),
		frp:        get("frp"),
		daynight:   get("daynight"),
	}
	if c.lat < 0 || c.lon < 0 {
		return c, eris.New("firms: header lacks latitude/longitude columns")
	}
	return c, nil
}

// StreamRows reads CSV records from r and sends them on the returned channel.
// The header row is returned through the first receive. Both channels are
// closed when reading ends; at most one error is sent.
func StreamRows(ctx context.Context, r io.Reader) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "firms: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "firms: read row")
				return
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "firms: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// Parse converts a FIRMS CSV into hotspots in file order. Rows with an
// unusable position are counted as malformed, rows outside the region as
// out of region; neither aborts the parse.
func Parse(ctx context.Context, r io.Reader, opts ParseOptions) ([]domain.Hotspot, ParseStats, error) {
	var stats ParseStats
	rows, errs := StreamRows(ctx, r)

	header, ok := <-rows
	if !ok {
		if err := <-errs; err != nil {
			return nil, stats, err
		}
		return nil, stats, eris.New("firms: empty input")
	}
	cols, err := indexColumns(header)
	if err != nil {
		// Drain so the reader goroutine exits.
		for range rows {
		}
		return nil, stats, err
	}

	var hotspots []domain.Hotspot
	for record := range rows {
		stats.Rows++

		loc, ok := parseLocation(record, cols)
		if !ok {
			stats.Malformed++
			continue
		}
		if !opts.Region.IsZero() && !opts.Region.Contains(loc) {
			stats.OutOfRegion++
			continue
		}

		acquired := parseAcquired(field(record, cols.date), field(record, cols.hhmm))
		satellite := field(record, cols.satellite)
		hotspots = append(hotspots, domain.Hotspot{
			ID:         domain.HotspotID(loc, acquired, satellite),
			Location:   loc,
			Weight:     parseWeight(field(record, cols.brightness)),
			AcquiredAt: acquired,
			Satellite:  satellite,
			Instrument: field(record, cols.instrument),
			Confidence: field(record, cols.confidence),
			FRP:        parseNonNegative(field(record, cols.frp)),
			DayNight:   field(record, cols.daynight),
			Source:     opts.Source,
		})
		stats.Accepted++
	}

	if err := <-errs; err != nil {
		return nil, stats, err
	}
	return hotspots, stats, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseLocation(record []string, cols columns) (domain.GeoPoint, bool) {
	lat, err := strconv.ParseFloat(field(record, cols.lat), 64)
	if err != nil {
		return domain.GeoPoint{}, false
	}
	lon, err := strconv.ParseFloat(field(record, cols.lon), 64)
	if err != nil {
		return domain.GeoPoint{}, false
	}
	p := domain.GeoPoint{Lat: lat, Lon: lon}
	if p.Validate() != nil {
		return domain.GeoPoint{}, false
	}
	return p, true
}

// parseWeight returns the brightness, or 1 when it is missing or unusable.
func parseWeight(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 1
	}
	return v
}

func parseNonNegative(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// parseAcquired combines acq_date (YYYY-MM-DD) and acq_time (HHMM, leading
// zeros often dropped) into a UTC instant. It returns nil when either part
// is unusable.
func parseAcquired(date, hhmm string) *time.Time {
	if date == "" || hhmm == "" || len(hhmm) > 4 {
		return nil
	}
	for _, r := range hhmm {
		if r < '0' || r > '9' {
			return nil
		}
	}
	hhmm = strings.Repeat("0", 4-len(hhmm)) + hhmm
	t, err := time.ParseInLocation("2006-01-02 1504", date+" "+hhmm, time.UTC)
	if err != nil {
		return nil
	}
	return &t
}
