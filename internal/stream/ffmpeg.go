// Package stream adapts external media into playable audio sources: an
// ffmpeg subprocess decoding anything to raw PCM, ogg/opus and DCA framed
// readers that skip the encode step entirely, and a yt-dlp resolver that
// turns URLs and search queries into tracks.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/halcyonix/chorale/internal/audio"
	"github.com/halcyonix/chorale/internal/opus"
)

// pcmBytesPerSecond is the raw byte rate of s16le 48 kHz stereo PCM.
const pcmBytesPerSecond = 1000 / 20 * opus.FrameBytes

// ffmpegArgs builds the decode command line: network reconnects, optional
// request headers, an input-side seek when offset is non-zero, audio-only
// s16le 48 kHz stereo on stdout.
func ffmpegArgs(inputURL string, offset float64, headers string) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-reconnect", "1", "-reconnect_streamed", "1", "-reconnect_delay_max", "5",
	}
	if headers != "" {
		args = append(args, "-headers", headers)
	}
	if offset > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", offset))
	}
	args = append(args,
		"-i", inputURL,
		"-vn",
		"-ac", "2",
		"-ar", "48000",
		"-f", "s16le",
		"pipe:1",
	)
	return args
}

// pcmProcess is one running ffmpeg decode.
type pcmProcess struct {
	cmd    *exec.Cmd
	stdout *bufio.Reader
	stderr *bytes.Buffer
	cancel context.CancelFunc
}

func startPCMProcess(ctx context.Context, inputURL string, offset float64, headers string) (*pcmProcess, error) {
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, "ffmpeg", ffmpegArgs(inputURL, offset, headers)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stream: ffmpeg stdout: %w", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("stream: ffmpeg start: %w (stderr: %s)", err, stderr.String())
	}
	return &pcmProcess{
		cmd:    cmd,
		stdout: bufio.NewReaderSize(stdout, 64*1024),
		stderr: stderr,
		cancel: cancel,
	}, nil
}

func (p *pcmProcess) close() {
	p.cancel()
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	_ = p.cmd.Wait()
}

// FFmpegSource decodes a local file or URL to PCM frames through an ffmpeg
// subprocess. Seeking respawns the process with an input-side -ss; while the
// replacement spawns in the background, Read serves silent PCM so the pacing
// cadence never starves.
type FFmpegSource struct {
	mu      sync.Mutex
	url     string
	headers string
	start   float64 // second within the stream the track begins at
	proc    *pcmProcess
	offset  float64 // seconds the current process started at
	read    int64   // bytes consumed from the current process

	spawning bool
	spawnErr error

	volume float64
	eq     audio.Equalizer
	closed bool
}

// NewFFmpegSource builds a source for inputURL. The process starts lazily on
// the first Read.
func NewFFmpegSource(inputURL string) *FFmpegSource {
	return &FFmpegSource{url: inputURL, volume: 1.0}
}

// NewFFmpegSourceAt builds a source that begins start seconds into the
// stream. Positions reported by StreamDuration are relative to start, so a
// chapter-split track reads as its own timeline.
func NewFFmpegSourceAt(inputURL string, start float64) *FFmpegSource {
	if start < 0 {
		start = 0
	}
	return &FFmpegSource{url: inputURL, start: start, offset: start, volume: 1.0}
}

// SetHeaders sets extra HTTP request headers passed to ffmpeg, in CRLF
// "Key: Value" form. Must be called before the first Read.
func (s *FFmpegSource) SetHeaders(headers string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers = headers
}

func (s *FFmpegSource) Read() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, nil
	}
	if s.spawnErr != nil {
		err := s.spawnErr
		s.spawnErr = nil
		return nil, err
	}
	if s.spawning {
		// Respawn in flight: cover the gap with silent PCM.
		return make([]byte, opus.FrameBytes), nil
	}
	if s.proc == nil {
		proc, err := startPCMProcess(context.Background(), s.url, s.offset, s.headers)
		if err != nil {
			return nil, err
		}
		s.proc = proc
	}

	frame := make([]byte, opus.FrameBytes)
	n, err := io.ReadFull(s.proc.stdout, frame)
	if err == io.EOF || err == io.ErrUnexpectedEOF || n != opus.FrameBytes {
		if msg := bytes.TrimSpace(s.proc.stderr.Bytes()); len(msg) > 0 {
			return nil, fmt.Errorf("stream: ffmpeg: %s", msg)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stream: read pcm: %w", err)
	}
	s.read += int64(n)

	if s.eq != nil {
		frame, err = s.eq.Convert(frame)
		if err != nil {
			return nil, fmt.Errorf("stream: equalize: %w", err)
		}
	}
	if s.volume != 1.0 {
		audio.ApplyGain(frame, s.volume)
	}
	return frame, nil
}

func (s *FFmpegSource) IsOpus() bool   { return false }
func (s *FFmpegSource) Seekable() bool { return true }

func (s *FFmpegSource) Seek(seconds float64) error {
	return s.seekTo(func(cur float64) float64 { return cur + seconds })
}

func (s *FFmpegSource) Rewind(seconds float64) error {
	return s.seekTo(func(cur float64) float64 { return cur - seconds })
}

// seekTo kills the current process and spawns a replacement at the new
// offset in the background.
func (s *FFmpegSource) seekTo(move func(float64) float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return audio.ErrIllegalSeek
	}

	target := move(s.elapsedLocked())
	if target < s.start {
		target = s.start
	}
	if s.proc != nil {
		s.proc.close()
		s.proc = nil
	}
	s.offset = target
	s.read = 0
	s.spawning = true
	s.spawnErr = nil

	headers := s.headers
	go func() {
		proc, err := startPCMProcess(context.Background(), s.url, target, headers)
		s.mu.Lock()
		defer s.mu.Unlock()
		s.spawning = false
		if s.closed || s.offset != target {
			if proc != nil {
				proc.close()
			}
			return
		}
		if err != nil {
			s.spawnErr = err
			return
		}
		s.proc = proc
	}()
	return nil
}

func (s *FFmpegSource) elapsedLocked() float64 {
	return s.offset + float64(s.read)/pcmBytesPerSecond
}

func (s *FFmpegSource) StreamDuration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsedLocked() - s.start
}

func (s *FFmpegSource) SetVolume(volume float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if volume < 0 {
		volume = 0
	}
	s.volume = volume
	return nil
}

func (s *FFmpegSource) SetEqualizer(eq audio.Equalizer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eq = eq
	return nil
}

func (s *FFmpegSource) Recreate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc != nil {
		s.proc.close()
		s.proc = nil
	}
	s.offset = s.start
	s.read = 0
	s.spawning = false
	s.spawnErr = nil
	s.closed = false
	return nil
}

func (s *FFmpegSource) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc != nil {
		s.proc.close()
		s.proc = nil
	}
	s.closed = true
	return nil
}
