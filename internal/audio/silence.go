package audio

// opusSilence is the canonical Opus silence frame.
var opusSilence = []byte{0xF8, 0xFF, 0xFE}

// Silence yields Opus silence frames forever. The player substitutes it for
// the real source while paused with silence enabled, and format adapters use
// it to cover subprocess respawns during seeks.
type Silence struct{}

func (Silence) Read() ([]byte, error) {
	frame := make([]byte, len(opusSilence))
	copy(frame, opusSilence)
	return frame, nil
}

func (Silence) IsOpus() bool   { return true }
func (Silence) Seekable() bool { return false }

func (Silence) Seek(float64) error   { return ErrIllegalSeek }
func (Silence) Rewind(float64) error { return ErrIllegalSeek }

func (Silence) StreamDuration() float64 { return 0 }

func (Silence) SetVolume(float64) error      { return ErrNotSupported }
func (Silence) SetEqualizer(Equalizer) error { return ErrNotSupported }

func (Silence) Recreate() error { return nil }
func (Silence) Cleanup() error  { return nil }

// SilenceFrame returns a copy of the Opus silence frame for callers that
// build packets directly.
func SilenceFrame() []byte {
	frame := make([]byte, len(opusSilence))
	copy(frame, opusSilence)
	return frame
}
