package firms

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/valyala/fasthttp"

	"github.com/fireshield/firewatch/internal/core/domain"
)

// Source loads FIRMS snapshots from local files or http(s) URLs.
type Source struct {
	client  *fasthttp.Client
	region  domain.Bounds
	timeout time.Duration
}

// NewSource creates a Source keeping only detections inside region.
func NewSource(region domain.Bounds, timeout time.Duration) *Source {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Source{
		client: &fasthttp.Client{
			Name:                "firewatch-feed",
			MaxResponseBodySize: 256 << 20,
		},
		region:  region,
		timeout: timeout,
	}
}

// Fetch implements ports.FeedSource.
func (s *Source) Fetch(ctx context.Context, source string) ([]domain.Hotspot, domain.FeedSnapshot, error) {
	r, err := s.open(ctx, source)
	if err != nil {
		return nil, domain.FeedSnapshot{}, err
	}
	defer r.Close()

	hotspots, stats, err := Parse(ctx, r, ParseOptions{Region: s.region, Source: source})
	if err != nil {
		return nil, domain.FeedSnapshot{}, eris.Wrapf(err, "firms: parse %s", source)
	}
	return hotspots, domain.FeedSnapshot{
		Source:      source,
		Rows:        stats.Rows,
		Accepted:    stats.Accepted,
		Malformed:   stats.Malformed,
		OutOfRegion: stats.OutOfRegion,
	}, nil
}

func (s *Source) open(ctx context.Context, source string) (io.ReadCloser, error) {
	if !isURL(source) {
		f, err := os.Open(source)
		if err != nil {
			return nil, eris.Wrapf(err, "firms: open %s", source)
		}
		return f, nil
	}

	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(source)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "text/csv")

	if err := s.client.DoTimeout(req, resp, timeout); err != nil {
		return nil, eris.Wrapf(err, "firms: download %s", source)
	}
	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return nil, eris.Errorf("firms: HTTP %d for %s", code, source)
	}

	// The response is released on return, so keep a copy of the body.
	body := append([]byte(nil), resp.Body()...)
	return io.NopCloser(bytes.NewReader(body)), nil
}

func isURL(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
