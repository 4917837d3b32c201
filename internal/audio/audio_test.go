package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonix/chorale/internal/opus"
)

// pcmFrames builds n frames of s16le PCM where every sample equals the
// frame's index, so reads can be traced back to stream positions.
func pcmFrames(n int) []byte {
	buf := make([]byte, n*opus.FrameBytes)
	for frame := 0; frame < n; frame++ {
		base := frame * opus.FrameBytes
		for i := 0; i < opus.FrameBytes; i += 2 {
			binary.LittleEndian.PutUint16(buf[base+i:], uint16(frame))
		}
	}
	return buf
}

func frameIndex(t *testing.T, frame []byte) int {
	t.Helper()
	require.Len(t, frame, opus.FrameBytes)
	return int(binary.LittleEndian.Uint16(frame))
}

func TestPCMSourceReadsWholeFrames(t *testing.T) {
	src := NewPCMSource(bytes.NewReader(pcmFrames(3)))

	for want := 0; want < 3; want++ {
		frame, err := src.Read()
		require.NoError(t, err)
		assert.Equal(t, want, frameIndex(t, frame))
	}
	end, err := src.Read()
	require.NoError(t, err)
	assert.Empty(t, end)

	assert.InDelta(t, 0.06, src.StreamDuration(), 1e-9)
	assert.False(t, src.IsOpus())
	assert.True(t, src.Seekable())
}

func TestPCMSourceDropsPartialTrailingFrame(t *testing.T) {
	data := append(pcmFrames(1), make([]byte, 100)...)
	src := NewPCMSource(bytes.NewReader(data))

	frame, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, 0, frameIndex(t, frame))

	end, err := src.Read()
	require.NoError(t, err)
	assert.Empty(t, end)
}

func TestPCMSourceSeekAndRewind(t *testing.T) {
	// 150 frames = 3 seconds of audio.
	src := NewPCMSource(bytes.NewReader(pcmFrames(150)))

	require.NoError(t, src.Seek(2))
	assert.InDelta(t, 2.0, src.StreamDuration(), 1e-9)
	frame, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, 100, frameIndex(t, frame))

	require.NoError(t, src.Rewind(1))
	assert.InDelta(t, 1.02, src.StreamDuration(), 1e-9)
	frame, err = src.Read()
	require.NoError(t, err)
	assert.Equal(t, 51, frameIndex(t, frame))

	// Rewinding past the start clamps at zero.
	require.NoError(t, src.Rewind(100))
	assert.Zero(t, src.StreamDuration())
	frame, err = src.Read()
	require.NoError(t, err)
	assert.Equal(t, 0, frameIndex(t, frame))
}

func TestPCMSourceRecreateRestarts(t *testing.T) {
	src := NewPCMSource(bytes.NewReader(pcmFrames(2)))

	_, err := src.Read()
	require.NoError(t, err)
	require.NoError(t, src.Recreate())
	assert.Zero(t, src.StreamDuration())

	frame, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, 0, frameIndex(t, frame))
}

func TestPCMSourceVolume(t *testing.T) {
	data := make([]byte, opus.FrameBytes)
	for i := 0; i < len(data); i += 2 {
		binary.LittleEndian.PutUint16(data[i:], uint16(1000))
	}
	src := NewPCMSource(bytes.NewReader(data))
	require.NoError(t, src.SetVolume(0.5))

	frame, err := src.Read()
	require.NoError(t, err)
	assert.EqualValues(t, 500, int16(binary.LittleEndian.Uint16(frame)))
}

func TestApplyGainClamps(t *testing.T) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint16(buf[0:], uint16(30000))
	binary.LittleEndian.PutUint16(buf[2:], uint16(uint16(0x8AD0))) // -30000

	ApplyGain(buf, 2.0)
	assert.EqualValues(t, 32767, int16(binary.LittleEndian.Uint16(buf[0:])))
	assert.EqualValues(t, -32768, int16(binary.LittleEndian.Uint16(buf[2:])))

	// Volumes above the cap behave like the cap.
	buf2 := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf2, uint16(100))
	ApplyGain(buf2, 10)
	assert.EqualValues(t, 200, int16(binary.LittleEndian.Uint16(buf2)))
}

type doublerEQ struct{}

func (doublerEQ) Convert(pcm []byte) ([]byte, error) {
	out := make([]byte, len(pcm))
	for i := 0; i+1 < len(pcm); i += 2 {
		v := int16(binary.LittleEndian.Uint16(pcm[i:]))
		binary.LittleEndian.PutUint16(out[i:], uint16(v*2))
	}
	return out, nil
}

func TestPCMSourceEqualizerRunsBeforeGain(t *testing.T) {
	data := make([]byte, opus.FrameBytes)
	for i := 0; i < len(data); i += 2 {
		binary.LittleEndian.PutUint16(data[i:], uint16(100))
	}
	src := NewPCMSource(bytes.NewReader(data))
	require.NoError(t, src.SetEqualizer(doublerEQ{}))
	require.NoError(t, src.SetVolume(0.5))

	frame, err := src.Read()
	require.NoError(t, err)
	// 100 -> eq doubles to 200 -> volume halves to 100.
	assert.EqualValues(t, 100, int16(binary.LittleEndian.Uint16(frame)))
}

func TestSilenceSource(t *testing.T) {
	var s Silence
	frame, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xF8, 0xFF, 0xFE}, frame)
	assert.True(t, s.IsOpus())
	assert.ErrorIs(t, s.Seek(1), ErrIllegalSeek)
	assert.ErrorIs(t, s.SetVolume(1), ErrNotSupported)

	// Returned frames are copies; mutating one must not poison the next.
	frame[0] = 0
	again, _ := s.Read()
	assert.Equal(t, []byte{0xF8, 0xFF, 0xFE}, again)
}

// slowSource yields fixed frames with a small delay, ending after n reads.
type slowSource struct {
	Silence
	n     int
	count int
}

func (s *slowSource) Read() ([]byte, error) {
	time.Sleep(time.Millisecond)
	if s.count >= s.n {
		return nil, nil
	}
	s.count++
	return []byte{byte(s.count)}, nil
}

func (s *slowSource) Recreate() error {
	s.count = 0
	return nil
}

func TestBufferedSourceDrainsInnerInOrder(t *testing.T) {
	src := NewBufferedSource(&slowSource{n: 5}, 2)
	ctx := context.Background()

	for want := 1; want <= 5; want++ {
		frame, err := src.ReadContext(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(want)}, frame)
	}
	end, err := src.ReadContext(ctx)
	require.NoError(t, err)
	assert.Empty(t, end)
	assert.InDelta(t, 0.1, src.StreamDuration(), 1e-9)
}

func TestBufferedSourceContextCancel(t *testing.T) {
	blocking := &slowSource{n: 0} // ends immediately after first poll
	src := NewBufferedSource(blocking, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.ReadContext(ctx)
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

type failingSource struct {
	Silence
}

var errBroken = errors.New("pipe broke")

func (failingSource) Read() ([]byte, error) { return nil, errBroken }

func TestBufferedSourceSurfacesReadError(t *testing.T) {
	src := NewBufferedSource(failingSource{}, 2)
	_, err := src.ReadContext(context.Background())
	assert.ErrorIs(t, err, errBroken)
}

func TestBufferedSourceIsNotSeekable(t *testing.T) {
	src := NewBufferedSource(&slowSource{n: 1}, 2)
	assert.False(t, src.Seekable())
	assert.ErrorIs(t, src.Seek(1), ErrIllegalSeek)
	assert.ErrorIs(t, src.Rewind(1), ErrIllegalSeek)
	require.NoError(t, src.Cleanup())
}

// readSeekCloser wraps a bytes.Reader with a close flag for cleanup tests.
type readSeekCloser struct {
	*bytes.Reader
	closed bool
}

func (r *readSeekCloser) Close() error {
	r.closed = true
	return nil
}

var _ io.ReadSeeker = (*readSeekCloser)(nil)

func TestPCMSourceCleanupClosesStream(t *testing.T) {
	rc := &readSeekCloser{Reader: bytes.NewReader(pcmFrames(1))}
	src := NewPCMSource(rc)
	require.NoError(t, src.Cleanup())
	assert.True(t, rc.closed)
}
