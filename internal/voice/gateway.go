package voice

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"
)

var ErrSendTimeout = errors.New("voice: opus send timeout")

// GatewayTransport adapts a managed discordgo voice connection. discordgo
// frames and encrypts internally, so Crypto reports false and WritePacket
// receives raw Opus frames for the OpusSend channel.
type GatewayTransport struct {
	vc *discordgo.VoiceConnection
}

func NewGatewayTransport(vc *discordgo.VoiceConnection) *GatewayTransport {
	// Ensure channels exist; Kill panics on nil channels otherwise.
	if vc.OpusSend == nil {
		vc.OpusSend = make(chan []byte, 2)
	}
	if vc.OpusRecv == nil {
		vc.OpusRecv = make(chan *discordgo.Packet, 2)
	}
	return &GatewayTransport{vc: vc}
}

func (t *GatewayTransport) WritePacket(p []byte) error {
	select {
	case t.vc.OpusSend <- p:
		return nil
	case <-time.After(200 * time.Millisecond):
		return ErrSendTimeout
	}
}

func (t *GatewayTransport) Ready() bool {
	return t.vc != nil && t.vc.Ready
}

func (t *GatewayTransport) WaitReady(ctx context.Context) error {
	for !t.Ready() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return nil
}

func (t *GatewayTransport) Speaking(on bool) error {
	return t.vc.Speaking(on)
}

func (t *GatewayTransport) Crypto() (CryptoParams, bool) {
	return CryptoParams{}, false
}
