package opus

import (
	"fmt"
	"time"

	"layeh.com/gopus"
)

// Voice transports expect 48 kHz stereo Opus at a 20 ms frame size.
const (
	SampleRate = 48000
	Channels   = 2

	// FrameSamples is the number of samples per channel in one 20 ms frame.
	FrameSamples = 960

	// FrameBytes is the size of one interleaved s16le PCM frame:
	// 960 samples * 2 channels * 2 bytes.
	FrameBytes = FrameSamples * Channels * 2

	FrameDuration = 20 * time.Millisecond
)

// Encoder turns one 20 ms PCM frame into one Opus packet.
type Encoder interface {
	Encode(pcm []byte) ([]byte, error)
}

// GopusEncoder is the libopus-backed Encoder used for real playback.
type GopusEncoder struct {
	enc *gopus.Encoder
}

func NewEncoder() (*GopusEncoder, error) {
	enc, err := gopus.NewEncoder(SampleRate, Channels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("opus encoder: %w", err)
	}
	enc.SetBitrate(160000)
	return &GopusEncoder{enc: enc}, nil
}

// Encode expects exactly FrameBytes of interleaved s16le PCM.
func (e *GopusEncoder) Encode(pcm []byte) ([]byte, error) {
	if len(pcm) != FrameBytes {
		return nil, fmt.Errorf("invalid PCM frame size: expected %d bytes, got %d", FrameBytes, len(pcm))
	}
	shorts := make([]int16, FrameSamples*Channels)
	for i := 0; i < len(shorts); i++ {
		j := i * 2
		shorts[i] = int16(pcm[j]) | int16(int8(pcm[j+1]))<<8
	}
	pkt, err := e.enc.Encode(shorts, FrameSamples, 4000)
	if err != nil {
		return nil, fmt.Errorf("opus encode: %w", err)
	}
	return pkt, nil
}
