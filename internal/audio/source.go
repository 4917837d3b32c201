package audio

import (
	"context"
	"errors"
)

var (
	// ErrIllegalSeek is returned by Seek and Rewind on sources that report
	// Seekable() == false.
	ErrIllegalSeek = errors.New("audio: stream doesn't support seek operations")

	// ErrNotSupported is returned by optional capabilities (volume,
	// equalizer) a source does not implement. Callers treat it as a no-op.
	ErrNotSupported = errors.New("audio: operation not supported by this source")
)

// Equalizer transforms raw PCM in place of the playback pipeline. The DSP
// itself lives outside this package; sources only hold the handle.
type Equalizer interface {
	Convert(pcm []byte) ([]byte, error)
}

// Source supplies one 20 ms audio unit per Read call and declares its own
// capabilities. The player never inspects source internals, only the
// declared flags.
//
// Read returns exactly one frame's worth of bytes, or an empty slice once
// the stream is exhausted. A non-nil error is a genuine failure, not end of
// stream.
type Source interface {
	Read() ([]byte, error)

	// IsOpus reports whether Read output is already Opus-encoded and can
	// bypass the encode step.
	IsOpus() bool

	Seekable() bool
	Seek(seconds float64) error
	Rewind(seconds float64) error

	// StreamDuration is the elapsed seconds of audio already read. It only
	// resets on Recreate, Seek or Rewind.
	StreamDuration() float64

	SetVolume(volume float64) error
	SetEqualizer(eq Equalizer) error

	// Recreate resets the source to its initial position so a track can be
	// replayed. Distinct from Cleanup.
	Recreate() error

	// Cleanup releases underlying OS resources. The player guarantees it is
	// called once playback of this source ends, on every exit path.
	Cleanup() error
}

// AsyncSource marks a source whose reads suspend the caller instead of
// blocking a worker lane. The player bridges these through ReadContext
// rather than submitting Read to the worker pool.
type AsyncSource interface {
	Source
	ReadContext(ctx context.Context) ([]byte, error)
}
