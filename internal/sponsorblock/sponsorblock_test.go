package sponsorblock

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSegments(t *testing.T) {
	segs := []Segment{
		{Segment: [2]float64{50, 60}},
		{Segment: [2]float64{0, 10}},
		{Segment: [2]float64{8, 20}},
	}
	out := mergeSegments(segs)
	require.Len(t, out, 2)
	assert.Equal(t, [2]float64{0, 20}, out[0].Segment)
	assert.Equal(t, [2]float64{50, 60}, out[1].Segment)
}

func segmentServer(t *testing.T, segs []Segment) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "vid123", r.URL.Query().Get("videoID"))
		_ = json.NewEncoder(w).Encode(segs)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestApplier(srv *httptest.Server) *Applier {
	a := NewApplier(5)
	a.client.base = srv.URL
	return a
}

func TestAdjustSkipsIntroAndOutro(t *testing.T) {
	srv := segmentServer(t, []Segment{
		{Category: "music_offtopic", Segment: [2]float64{0, 15}},
		{Category: "music_offtopic", Segment: [2]float64{190, 200}},
	})
	a := newTestApplier(srv)

	newLen, newOff, note, changed := a.Adjust(context.Background(), "vid123", 200, 0)
	require.True(t, changed)
	// Outro trims the tail to 190, intro shifts the start by 15.
	assert.Equal(t, 190-15, newLen)
	assert.Equal(t, 15, newOff)
	assert.Contains(t, note, "skipped intro")
	assert.Contains(t, note, "trimmed outro")
}

func TestAdjustNoSegments(t *testing.T) {
	srv := segmentServer(t, []Segment{})
	a := newTestApplier(srv)

	newLen, newOff, _, changed := a.Adjust(context.Background(), "vid123", 120, 3)
	assert.False(t, changed)
	assert.Equal(t, 120, newLen)
	assert.Equal(t, 3, newOff)
}

func TestAdjustMemoizes(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode([]Segment{{Segment: [2]float64{0, 5}}})
	}))
	t.Cleanup(srv.Close)
	a := newTestApplier(srv)

	a.Adjust(context.Background(), "vid123", 100, 0)
	a.Adjust(context.Background(), "vid123", 100, 0)
	assert.Equal(t, 1, calls)
}

func TestGatewayTimeoutDisablesLookups(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	t.Cleanup(srv.Close)
	a := newTestApplier(srv)

	_, _, _, changed := a.Adjust(context.Background(), "vid123", 100, 0)
	assert.False(t, changed)
	// Disabled window swallows the second lookup entirely.
	a.Adjust(context.Background(), "other", 100, 0)
	assert.Equal(t, 1, calls)
}
