package firms

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fireshield/firewatch/internal/core/domain"
)

const modisCSV = `latitude,longitude,brightness,scan,track,acq_date,acq_time,satellite,instrument,confidence,version,bright_t31,frp,daynight
56.1304,-106.3468,330.5,1.0,1.0,2024-07-01,5,T,MODIS,80,6.1NRT,290.1,12.4,N
abc,-106.3468,330.5,1.0,1.0,2024-07-01,1230,A,MODIS,50,6.1NRT,290.1,3.1,D
34.0522,-118.2437,345.1,1.0,1.0,2024-07-01,2359,A,MODIS,90,6.1NRT,300.2,40.0,D
60.0,-120.0,,1.0,1.0,2024-07-01,1530,A,MODIS,70,6.1NRT,295.0,5.0,D
61.0,-121.0,-4,1.0,1.0,bad-date,1530,A,MODIS,70,6.1NRT,295.0,5.0,D
`

var northAmerica = domain.Bounds{MinLat: 40, MinLon: -150, MaxLat: 79, MaxLon: -49}

func TestParse_MODIS(t *testing.T) {
	hotspots, stats, err := Parse(context.Background(), strings.NewReader(modisCSV), ParseOptions{
		Region: northAmerica,
		Source: "modis.csv",
	})
	require.NoError(t, err)

	assert.Equal(t, ParseStats{Rows: 5, Accepted: 3, Malformed: 1, OutOfRegion: 1}, stats)
	require.Len(t, hotspots, 3)

	first := hotspots[0]
	assert.Equal(t, domain.GeoPoint{Lat: 56.1304, Lon: -106.3468}, first.Location)
	assert.Equal(t, 330.5, first.Weight)
	require.NotNil(t, first.AcquiredAt)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 5, 0, 0, time.UTC), *first.AcquiredAt)
	assert.Equal(t, "T", first.Satellite)
	assert.Equal(t, "MODIS", first.Instrument)
	assert.Equal(t, "80", first.Confidence)
	assert.Equal(t, 12.4, first.FRP)
	assert.Equal(t, "N", first.DayNight)
	assert.Equal(t, "modis.csv", first.Source)
	assert.Equal(t, domain.HotspotID(first.Location, first.AcquiredAt, "T"), first.ID)

	// Missing brightness falls back to unit weight.
	assert.Equal(t, 1.0, hotspots[1].Weight)
	// Negative brightness too, and a bad date leaves no timestamp.
	assert.Equal(t, 1.0, hotspots[2].Weight)
	assert.Nil(t, hotspots[2].AcquiredAt)
}

func TestParse_VIIRSBrightnessColumn(t *testing.T) {
	csv := "latitude,longitude,bright_ti4,acq_date,acq_time,satellite,confidence,frp,daynight\n" +
		"50.5,-100.25,367.2,2024-08-15,0042,N,h,8.9,N\n"

	hotspots, stats, err := Parse(context.Background(), strings.NewReader(csv), ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Accepted)
	require.Len(t, hotspots, 1)
	assert.Equal(t, 367.2, hotspots[0].Weight)
	assert.Equal(t, "h", hotspots[0].Confidence)
	assert.Equal(t, time.Date(2024, 8, 15, 0, 42, 0, 0, time.UTC), *hotspots[0].AcquiredAt)
}

func TestParse_ZeroRegionKeepsEverything(t *testing.T) {
	hotspots, stats, err := Parse(context.Background(), strings.NewReader(modisCSV), ParseOptions{})
	require.NoError(t, err)
	assert.Len(t, hotspots, 4)
	assert.Zero(t, stats.OutOfRegion)
}

func TestParse_OutOfRangeCoordinatesAreMalformed(t *testing.T) {
	csv := "latitude,longitude\n95,10\n10,200\nNaN,10\n45,-75\n"

	hotspots, stats, err := Parse(context.Background(), strings.NewReader(csv), ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Malformed)
	require.Len(t, hotspots, 1)
	assert.Equal(t, 1.0, hotspots[0].Weight)
	assert.Nil(t, hotspots[0].AcquiredAt)
}

func TestParse_MissingColumns(t *testing.T) {
	_, _, err := Parse(context.Background(), strings.NewReader("lat,lon\n1,2\n"), ParseOptions{})
	assert.Error(t, err)
}

func TestParse_EmptyInput(t *testing.T) {
	_, _, err := Parse(context.Background(), strings.NewReader(""), ParseOptions{})
	assert.Error(t, err)
}

func TestParse_HeaderWithBOM(t *testing.T) {
	csv := "\ufefflatitude,longitude\n45,-75\n"
	hotspots, _, err := Parse(context.Background(), strings.NewReader(csv), ParseOptions{})
	require.NoError(t, err)
	assert.Len(t, hotspots, 1)
}

func TestParse_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Parse(ctx, strings.NewReader(modisCSV), ParseOptions{})
	assert.Error(t, err)
}

func TestParseAcquired(t *testing.T) {
	tests := []struct {
		date, hhmm string
		want       *time.Time
	}{
		{"2024-07-01", "5", ptr(time.Date(2024, 7, 1, 0, 5, 0, 0, time.UTC))},
		{"2024-07-01", "45", ptr(time.Date(2024, 7, 1, 0, 45, 0, 0, time.UTC))},
		{"2024-07-01", "130", ptr(time.Date(2024, 7, 1, 1, 30, 0, 0, time.UTC))},
		{"2024-07-01", "2359", ptr(time.Date(2024, 7, 1, 23, 59, 0, 0, time.UTC))},
		{"2024-07-01", "2460", nil},
		{"2024-07-01", "12345", nil},
		{"2024-07-01", "-5", nil},
		{"2024-07-01", "", nil},
		{"", "1200", nil},
		{"07/01/2024", "1200", nil},
	}
	for _, tt := range tests {
		got := parseAcquired(tt.date, tt.hhmm)
		if tt.want == nil {
			assert.Nil(t, got, "%s %s", tt.date, tt.hhmm)
			continue
		}
		if assert.NotNil(t, got, "%s %s", tt.date, tt.hhmm) {
			assert.True(t, tt.want.Equal(*got), "%s %s: got %v", tt.date, tt.hhmm, got)
		}
	}
}

func ptr(t time.Time) *time.Time { return &t }
