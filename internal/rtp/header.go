// Package rtp builds the transport packets for voice playback: a fixed
// 12-byte RTP header followed by an xsalsa20-poly1305 ciphertext and a
// mode-specific trailer.
package rtp

import (
	"encoding/binary"
	"math"
)

const (
	// HeaderSize is the fixed RTP header length.
	HeaderSize = 12

	headerVersion     = 0x80
	headerPayloadType = 0x78

	// MaxSequence is the wrap point for the 16-bit sequence counter.
	MaxSequence = 65535

	// MaxTimestamp is the wrap point for the 32-bit timestamp counter.
	MaxTimestamp = math.MaxUint32
)

// EncodeHeader writes the 12-byte RTP header: version/flags 0x80, payload
// type 0x78, then big-endian sequence, timestamp and SSRC.
func EncodeHeader(header []byte, sequence uint16, timestamp, ssrc uint32) {
	header[0] = headerVersion
	header[1] = headerPayloadType
	binary.BigEndian.PutUint16(header[2:4], sequence)
	binary.BigEndian.PutUint32(header[4:8], timestamp)
	binary.BigEndian.PutUint32(header[8:12], ssrc)
}

// NextSequence advances the sequence counter, wrapping past MaxSequence to
// zero.
func NextSequence(sequence uint16) uint16 {
	if uint32(sequence)+1 > MaxSequence {
		return 0
	}
	return sequence + 1
}

// NextTimestamp advances the timestamp by one frame's sample count, wrapping
// past MaxTimestamp to zero.
func NextTimestamp(timestamp uint32, samples uint32) uint32 {
	if uint64(timestamp)+uint64(samples) > MaxTimestamp {
		return 0
	}
	return timestamp + samples
}
