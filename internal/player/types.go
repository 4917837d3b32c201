package player

import "github.com/halcyonix/chorale/internal/playlist"

type Status int

const (
	StatusIdle Status = iota
	StatusPlaying
	StatusPaused
)

func (s Status) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "idle"
	}
}

type EventType int

const (
	// EventTrackEnded is posted when a playback session terminates, for any
	// reason. Err is non-nil for mid-playback failures; Next is the track
	// playback advanced to, or nil at the end of the playlist.
	EventTrackEnded EventType = iota
)

// Event is the message a pacing loop posts for the control domain. The loop
// never calls back into caller code synchronously except through the after
// callback.
type Event struct {
	Type  EventType
	Track *playlist.Track
	Next  *playlist.Track
	Err   error
}

// AfterFunc is invoked exactly once per playback session with the session's
// terminal error (or nil) and the track playback advanced to (or nil).
type AfterFunc func(err error, next *playlist.Track)
