package collab

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

const relayProbeInterval = 250 * time.Millisecond

// Relay is the external document-sync process. This package never starts
// one; it only needs an address to probe and a handle to stop.
type Relay interface {
	URL() string
	Stop() error
}

// WaitReady polls the relay's WebSocket endpoint until a dial succeeds or
// ctx expires. The relay boots out-of-process, so the only readiness
// signal is an accepted handshake.
func WaitReady(ctx context.Context, wsURL string) error {
	dialer := &websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	ticker := time.NewTicker(relayProbeInterval)
	defer ticker.Stop()

	for {
		conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("relay %s not ready: %w", wsURL, ctx.Err())
		case <-ticker.C:
		}
	}
}
