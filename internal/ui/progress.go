package ui

import "strings"

const (
	barTrack  = "▬"
	barMarker = "🔘"
)

// ProgressBar renders a fixed-width track with a marker at the playback
// position, e.g. ▬▬🔘▬▬▬▬ for 30% of width 7. Progress is clamped to [0, 1]
// and the marker always lands inside the track.
func ProgressBar(width int, progress float64) string {
	if width <= 0 {
		return ""
	}
	pos := int(min(max(progress, 0), 1) * float64(width))
	if pos >= width {
		pos = width - 1
	}
	var b strings.Builder
	b.WriteString(strings.Repeat(barTrack, pos))
	b.WriteString(barMarker)
	b.WriteString(strings.Repeat(barTrack, width-pos-1))
	return b.String()
}
