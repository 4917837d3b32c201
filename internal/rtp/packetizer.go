package rtp

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/halcyonix/chorale/internal/opus"
)

// Mode selects the per-packet nonce construction. It is negotiated once per
// voice session and fixed for its duration.
type Mode string

const (
	// ModeNormal pads the 12-byte header with zeros into the nonce; the
	// packet carries no trailer.
	ModeNormal Mode = "xsalsa20_poly1305"

	// ModeSuffix uses a random 24-byte nonce appended to the packet.
	ModeSuffix Mode = "xsalsa20_poly1305_suffix"

	// ModeLite uses a 4-byte big-endian incrementing counter padded into
	// the nonce; the counter is appended to the packet and wraps past
	// MaxTimestamp to zero.
	ModeLite Mode = "xsalsa20_poly1305_lite"
)

// TrailerSize reports the number of bytes the mode appends after the
// ciphertext.
func (m Mode) TrailerSize() int {
	switch m {
	case ModeSuffix:
		return 24
	case ModeLite:
		return 4
	default:
		return 0
	}
}

var ErrUnknownMode = errors.New("rtp: unknown encryption mode")

// Packetizer turns one audio frame into one transport-ready packet:
// header || ciphertext || trailer. It holds the session secret key and
// mode plus the opus encoder for PCM input; the RTP counters are owned and
// advanced by the player, the packetizer only reads them.
type Packetizer struct {
	key       [32]byte
	mode      Mode
	enc       opus.Encoder
	liteNonce uint32
}

func NewPacketizer(key [32]byte, mode Mode, enc opus.Encoder) *Packetizer {
	return &Packetizer{key: key, mode: mode, enc: enc}
}

// Packetize wraps frame into one encrypted packet. When isOpus is false the
// frame is raw PCM and is opus-encoded first.
func (p *Packetizer) Packetize(frame []byte, isOpus bool, sequence uint16, timestamp, ssrc uint32) ([]byte, error) {
	if !isOpus {
		encoded, err := p.enc.Encode(frame)
		if err != nil {
			return nil, fmt.Errorf("rtp: encode frame: %w", err)
		}
		frame = encoded
	}

	header := make([]byte, HeaderSize)
	EncodeHeader(header, sequence, timestamp, ssrc)

	switch p.mode {
	case ModeNormal:
		var nonce [24]byte
		copy(nonce[:HeaderSize], header)
		return secretbox.Seal(header, frame, &nonce, &p.key), nil

	case ModeSuffix:
		var nonce [24]byte
		if _, err := rand.Read(nonce[:]); err != nil {
			return nil, fmt.Errorf("rtp: nonce: %w", err)
		}
		packet := secretbox.Seal(header, frame, &nonce, &p.key)
		return append(packet, nonce[:]...), nil

	case ModeLite:
		var nonce [24]byte
		EncodeLiteNonce(nonce[:4], p.liteNonce)
		p.liteNonce = NextTimestamp(p.liteNonce, 1)
		packet := secretbox.Seal(header, frame, &nonce, &p.key)
		return append(packet, nonce[:4]...), nil

	default:
		return nil, ErrUnknownMode
	}
}

// EncodeLiteNonce writes the lite-mode counter. Big-endian, matching the
// header counters; documented here because historical implementations
// disagreed on the byte order.
func EncodeLiteNonce(dst []byte, counter uint32) {
	dst[0] = byte(counter >> 24)
	dst[1] = byte(counter >> 16)
	dst[2] = byte(counter >> 8)
	dst[3] = byte(counter)
}
