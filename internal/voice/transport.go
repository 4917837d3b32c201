// Package voice defines the boundary to the voice-session collaborator: an
// opaque packet sink plus a readiness signal the player polls. The gateway
// handshake itself (websocket, IP discovery) lives outside this module.
package voice

import (
	"context"

	"github.com/halcyonix/chorale/internal/rtp"
)

// CryptoParams are the session-bound packet parameters negotiated by the
// voice gateway: SSRC, the 32-byte secret key and the nonce mode. They are
// fixed for the life of a session.
type CryptoParams struct {
	SSRC      uint32
	SecretKey [32]byte
	Mode      rtp.Mode
}

// Transport is one logical voice connection's byte sink.
//
// Transports that expose Crypto params receive fully RTP-framed, encrypted
// packets built by the player's packetizer. Transports that frame and
// encrypt internally (managed gateway libraries) report ok == false and
// receive raw Opus frames instead.
type Transport interface {
	WritePacket(p []byte) error

	// Ready reports whether the session is currently connected.
	Ready() bool

	// WaitReady blocks until the session is connected or ctx is done.
	WaitReady(ctx context.Context) error

	// Speaking toggles the session's speaking state. Failures are
	// non-fatal to playback.
	Speaking(on bool) error

	Crypto() (CryptoParams, bool)
}
