package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/halcyonix/chorale/internal/playlist"
)

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "", ProgressBar(0, 0.5))

	bar := ProgressBar(10, 0)
	assert.True(t, strings.HasPrefix(bar, "🔘"))
	assert.Equal(t, 10, len([]rune(bar)))

	// Full progress clamps the marker to the last cell.
	bar = ProgressBar(10, 1.5)
	assert.True(t, strings.HasSuffix(bar, "🔘"))

	bar = ProgressBar(10, 0.5)
	assert.Equal(t, "▬▬▬▬▬🔘▬▬▬▬", bar)
}

func TestTrackLink(t *testing.T) {
	tr := &playlist.Track{Name: "A*Song", URL: "https://www.youtube.com/watch?v=abc"}
	assert.Equal(t, "[A\\*Song](https://www.youtube.com/watch?v=abc)", trackLink(tr))

	// Chapter tracks deep-link to their start offset.
	tr.Start = 90
	assert.Equal(t, "[A\\*Song](https://www.youtube.com/watch?v=abc&t=90)", trackLink(tr))

	tr = &playlist.Track{Name: "Radio"}
	assert.Equal(t, "Radio", trackLink(tr))
}

func TestElapsedLabel(t *testing.T) {
	assert.Equal(t, "live", elapsedLabel(&playlist.Track{IsLive: true}, 10))
	assert.Equal(t, "0:30/3:00", elapsedLabel(&playlist.Track{Length: 180}, 30))
}
