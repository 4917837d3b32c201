package voice

import (
	"context"
	"fmt"
	"net"
	"sync"
)

// UDPTransport writes encrypted RTP packets straight to a UDP socket opened
// by an external voice session. The session owner flips readiness as the
// gateway connects and drops.
type UDPTransport struct {
	conn   net.Conn
	params CryptoParams

	mu      sync.Mutex
	ready   bool
	readyCh chan struct{} // closed while ready
}

func NewUDPTransport(conn net.Conn, params CryptoParams) *UDPTransport {
	return &UDPTransport{
		conn:    conn,
		params:  params,
		readyCh: make(chan struct{}),
	}
}

func (t *UDPTransport) WritePacket(p []byte) error {
	if _, err := t.conn.Write(p); err != nil {
		return fmt.Errorf("voice: udp write: %w", err)
	}
	return nil
}

// SetReady flips the readiness signal. The player blocks in WaitReady while
// the session is down and resets its pacing clock on reconnect.
func (t *UDPTransport) SetReady(ready bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ready == t.ready {
		return
	}
	t.ready = ready
	if ready {
		close(t.readyCh)
	} else {
		t.readyCh = make(chan struct{})
	}
}

func (t *UDPTransport) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ready
}

func (t *UDPTransport) WaitReady(ctx context.Context) error {
	t.mu.Lock()
	ch := t.readyCh
	ready := t.ready
	t.mu.Unlock()
	if ready {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Speaking is a gateway-level signal; a bare UDP sink has nowhere to send
// it.
func (t *UDPTransport) Speaking(bool) error { return nil }

func (t *UDPTransport) Crypto() (CryptoParams, bool) {
	return t.params, true
}
