// Package sponsorblock trims non-music sections from YouTube tracks using
// the community SponsorBlock segment database.
package sponsorblock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"
)

const apiBase = "https://sponsor.ajay.app/api/skipSegments"

// ErrUpstreamTimeout is returned when the segment API gateway times out;
// callers should back off for a while.
var ErrUpstreamTimeout = errors.New("sponsorblock: upstream timeout")

// Segment is one labeled region of a video, [start, end] in seconds.
type Segment struct {
	Category   string     `json:"category"`
	Segment    [2]float64 `json:"segment"`
	UUID       string     `json:"UUID"`
	ActionType string     `json:"actionType"`
}

type Client struct {
	http *http.Client
	base string
}

func NewClient() *Client {
	return &Client{http: &http.Client{Timeout: 8 * time.Second}, base: apiBase}
}

// Segments fetches the segments of the given categories for a video. A 404
// means the video has no segments and yields an empty slice, not an error.
func (c *Client) Segments(ctx context.Context, videoID string, categories []string) ([]Segment, error) {
	u, err := url.Parse(c.base)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("videoID", videoID)
	for _, cat := range categories {
		q.Add("categories", cat)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return []Segment{}, nil
	case http.StatusGatewayTimeout:
		return nil, ErrUpstreamTimeout
	default:
		return nil, fmt.Errorf("sponsorblock: http %d", resp.StatusCode)
	}

	var segs []Segment
	if err := json.NewDecoder(resp.Body).Decode(&segs); err != nil {
		return nil, err
	}
	return segs, nil
}

// mergeSegments collapses overlapping regions into a sorted, disjoint set.
func mergeSegments(segs []Segment) []Segment {
	if len(segs) == 0 {
		return segs
	}
	sort.Slice(segs, func(i, j int) bool {
		return segs[i].Segment[0] < segs[j].Segment[0]
	})
	out := []Segment{segs[0]}
	for _, s := range segs[1:] {
		last := &out[len(out)-1]
		if s.Segment[0] <= last.Segment[1] {
			if s.Segment[1] > last.Segment[1] {
				last.Segment[1] = s.Segment[1]
			}
			continue
		}
		out = append(out, s)
	}
	return out
}
