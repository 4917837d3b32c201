package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/halcyonix/chorale/internal/audio"
	"github.com/halcyonix/chorale/internal/opus"
	"github.com/halcyonix/chorale/internal/playlist"
	"github.com/halcyonix/chorale/internal/rtp"
)

// run is the pacing goroutine for one playback session.
func (p *Player) run(sess *session) {
	var tickErr error
	defer func() {
		if r := recover(); r != nil {
			tickErr = fmt.Errorf("player: tick panic: %v", r)
		}
		p.finish(sess, tickErr)
	}()

	if err := p.transport.WaitReady(sess.ctx); err != nil {
		return
	}
	if err := p.transport.Speaking(true); err != nil {
		slog.Info("speaking call failed", "err", err)
	}
	defer func() { _ = p.transport.Speaking(false) }()

	interval := p.cfg.FrameInterval
	start := time.Now()
	loops := 0

	for {
		select {
		case <-sess.ctx.Done():
			return
		default:
		}

		// Paused: acknowledge, then either emit silence every tick or
		// block until resumed. Timing restarts afterwards so resuming
		// never schedules packets back-to-back to catch up.
		if !sess.resumed.IsSet() {
			sess.paused.Set()
			p.pauseWait(sess)
			sess.paused.Clear()
			start = time.Now()
			loops = 0
			continue
		}

		if !p.transport.Ready() {
			if p.cfg.DestroyOnDisconnect {
				sess.setReason(reasonStop, nil, false)
				return
			}
			if err := p.transport.WaitReady(sess.ctx); err != nil {
				return
			}
			start = time.Now()
			loops = 0
		}

		loops++
		packet, err := p.nextPacket(sess)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			tickErr = err
			return
		}
		if packet == nil {
			// Empty read: clean end of stream.
			return
		}

		if err := p.transport.WritePacket(packet); err != nil {
			tickErr = fmt.Errorf("player: transport write: %w", err)
			return
		}
		sess.sequence = rtp.NextSequence(sess.sequence)
		sess.timestamp = rtp.NextTimestamp(sess.timestamp, opus.FrameSamples)

		// Self-correcting sleep against the scheduled tick time; never
		// negative, never two packets back-to-back.
		scheduled := start.Add(time.Duration(loops) * interval)
		delay := interval + time.Until(scheduled)
		if delay < 0 {
			delay = 0
		}
		select {
		case <-sess.ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// pauseWait parks the loop until resume or session end. With silence
// enabled it keeps the RTP stream warm with one silence frame per tick.
func (p *Player) pauseWait(sess *session) {
	if !sess.playSilence() {
		select {
		case <-sess.resumed.WaitCh():
		case <-sess.ctx.Done():
		}
		return
	}

	ticker := time.NewTicker(p.cfg.FrameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-sess.resumed.WaitCh():
			return
		case <-sess.ctx.Done():
			return
		case <-ticker.C:
			frame := audio.SilenceFrame()
			packet := frame
			if sess.hasCrypto {
				var err error
				packet, err = sess.pkt.Packetize(frame, true, sess.sequence, sess.timestamp, sess.crypto.SSRC)
				if err != nil {
					slog.Warn("silence packetize failed", "err", err)
					continue
				}
			}
			if err := p.transport.WritePacket(packet); err != nil {
				slog.Warn("silence write failed", "err", err)
				continue
			}
			sess.sequence = rtp.NextSequence(sess.sequence)
			sess.timestamp = rtp.NextTimestamp(sess.timestamp, opus.FrameSamples)
		}
	}
}

// nextPacket produces one transport packet, or (nil, nil) at end of stream.
// Synchronous sources are read and transformed in a single worker job so
// the pacing goroutine never sits in blocking source IO; async sources are
// bridged through their own context read, with only the transform
// offloaded.
func (p *Player) nextPacket(sess *session) ([]byte, error) {
	if async, ok := sess.source.(audio.AsyncSource); ok {
		frame, err := async.ReadContext(sess.ctx)
		if err != nil {
			return nil, err
		}
		if len(frame) == 0 {
			return nil, nil
		}
		return p.submitTransform(sess, func() ([]byte, error) {
			return p.buildPacket(sess, frame)
		})
	}

	return p.submitTransform(sess, func() ([]byte, error) {
		frame, err := sess.source.Read()
		if err != nil {
			return nil, err
		}
		if len(frame) == 0 {
			return nil, nil
		}
		return p.buildPacket(sess, frame)
	})
}

func (p *Player) submitTransform(sess *session, job func() ([]byte, error)) ([]byte, error) {
	fut, err := p.pool.Submit(func() (any, error) {
		packet, err := job()
		return packet, err
	})
	if err != nil {
		return nil, err
	}
	result, err := fut.Wait(sess.ctx)
	if err != nil {
		return nil, err
	}
	packet, _ := result.([]byte)
	return packet, nil
}

// buildPacket turns one frame into transport bytes: the full encrypted RTP
// packet when the transport exposes crypto params, or a bare opus frame for
// gateway-managed transports.
func (p *Player) buildPacket(sess *session, frame []byte) ([]byte, error) {
	isOpus := sess.source.IsOpus()
	if sess.hasCrypto {
		return sess.pkt.Packetize(frame, isOpus, sess.sequence, sess.timestamp, sess.crypto.SSRC)
	}
	if !isOpus {
		encoded, err := sess.enc.Encode(frame)
		if err != nil {
			return nil, fmt.Errorf("player: encode: %w", err)
		}
		return encoded, nil
	}
	return frame, nil
}

// finish is the single teardown path for a session: source cleanup, cursor
// advance, after callback and the track-ended event, in that order. It runs
// exactly once, on the pacing goroutine.
func (p *Player) finish(sess *session, tickErr error) {
	sess.cancel()
	if err := sess.source.Cleanup(); err != nil {
		slog.Warn("source cleanup failed", "track", sess.track.Name, "err", err)
	}

	reason, target, recreate := sess.stopReason()

	p.mu.Lock()
	if p.sess == sess {
		p.sess = nil
		p.status = StatusIdle
	}
	after := p.after
	p.mu.Unlock()

	var next *playlist.Track
	switch reason {
	case reasonStop:
	case reasonSwitch:
		next = target
	default:
		// Only natural exhaustion advances the queue. A mid-playback
		// failure delivers (err, nil); continuing past the broken track
		// is the callback's call.
		if tickErr == nil {
			if t, err := p.pl.Next(); err == nil {
				next = t
			}
		}
	}

	if next != nil {
		p.mu.Lock()
		err := p.startSessionLocked(next, recreate)
		p.mu.Unlock()
		if err != nil {
			slog.Error("failed to start next track", "track", next.Name, "err", err)
			if tickErr == nil {
				tickErr = err
			}
			next = nil
		}
	}

	if tickErr != nil {
		slog.Error("playback session ended with error", "track", sess.track.Name, "err", tickErr)
	}

	// The after callback runs on this goroutine but must never take the
	// pacing thread down with it.
	if after != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("after callback panic", "panic", r)
				}
			}()
			after(tickErr, next)
		}()
	}

	p.emit(Event{Type: EventTrackEnded, Track: sess.track, Next: next, Err: tickErr})
	close(sess.doneCh)
}

func (p *Player) emit(ev Event) {
	select {
	case p.events <- ev:
	default:
		slog.Debug("event channel full, dropping", "type", ev.Type)
	}
}
