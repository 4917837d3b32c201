package stream

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	ytdlp "github.com/lrstanley/go-ytdlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonix/chorale/internal/audio"
)

func dcaBytes(packets ...[]byte) []byte {
	var buf bytes.Buffer
	for _, p := range packets {
		var hdr [2]byte
		binary.LittleEndian.PutUint16(hdr[:], uint16(len(p)))
		buf.Write(hdr[:])
		buf.Write(p)
	}
	return buf.Bytes()
}

func TestDCASourceReadsFramedPackets(t *testing.T) {
	data := dcaBytes([]byte("abc"), nil, []byte("de"))
	src := NewDCASource(func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})

	p1, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), p1)

	// Zero-length frames are skipped, not surfaced.
	p2, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte("de"), p2)

	end, err := src.Read()
	require.NoError(t, err)
	assert.Empty(t, end)

	assert.True(t, src.IsOpus())
	assert.False(t, src.Seekable())
	assert.ErrorIs(t, src.Seek(1), audio.ErrIllegalSeek)
	assert.InDelta(t, 0.04, src.StreamDuration(), 0.0001)
}

func TestDCASourceRecreateRestartsStream(t *testing.T) {
	data := dcaBytes([]byte("one"))
	opens := 0
	src := NewDCASource(func() (io.ReadCloser, error) {
		opens++
		return io.NopCloser(bytes.NewReader(data)), nil
	})

	p, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), p)

	require.NoError(t, src.Recreate())
	assert.Zero(t, src.StreamDuration())

	p, err = src.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), p)
	assert.Equal(t, 2, opens)

	require.NoError(t, src.Cleanup())
	end, err := src.Read()
	require.NoError(t, err)
	assert.Empty(t, end)
}

func TestEncodePCMToDCARoundTrip(t *testing.T) {
	// Two full frames of silence plus a truncated tail that must be dropped.
	pcm := make([]byte, 3840*2+100)
	var out bytes.Buffer
	err := EncodePCMToDCA(bytes.NewReader(pcm), &out)
	if err != nil {
		t.Skipf("opus encoder unavailable: %v", err)
	}

	src := NewDCASource(func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(out.Bytes())), nil
	})
	var frames int
	for {
		p, err := src.Read()
		require.NoError(t, err)
		if len(p) == 0 {
			break
		}
		frames++
	}
	assert.Equal(t, 2, frames)
}

func TestFFmpegArgs(t *testing.T) {
	args := ffmpegArgs("http://example.com/a.mp3", 0, "")
	assert.NotContains(t, args, "-ss")
	assert.NotContains(t, args, "-headers")
	assert.Contains(t, args, "s16le")
	assert.Equal(t, "pipe:1", args[len(args)-1])

	args = ffmpegArgs("http://example.com/a.mp3", 12.5, "Referer: https://example.com\r\n")
	idx := -1
	for i, a := range args {
		if a == "-ss" {
			idx = i
			break
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "12.500", args[idx+1])

	// The seek must come before the input so ffmpeg applies it input-side.
	inputIdx := -1
	for i, a := range args {
		if a == "-i" {
			inputIdx = i
			break
		}
	}
	assert.Less(t, idx, inputIdx)
	assert.Contains(t, args, "-headers")
}

func TestPickStreamURLPrefersDirectMedia(t *testing.T) {
	page := "https://example.com/watch?v=1"
	media := "https://cdn.example.com/audio.opus"

	ext := &ytdlp.ExtractedInfo{URL: &media, WebpageURL: &page}
	assert.Equal(t, media, pickStreamURL(ext))

	ext = &ytdlp.ExtractedInfo{WebpageURL: &page}
	assert.Equal(t, page, pickStreamURL(ext))
}
