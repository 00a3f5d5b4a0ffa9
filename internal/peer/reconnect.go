package peer

import (
	"context"
	"time"
)

// reconnectDelay is the fixed pause between a lost connection and the
// next dial attempt for a connector-mode peer.
const reconnectDelay = 5 * time.Second

// waitToReconnect blocks for reconnectDelay or until ctx is cancelled,
// reporting which happened.
func waitToReconnect(ctx context.Context) error {
	timer := time.NewTimer(reconnectDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
