// Package broadcast defines the port for pushing admin console events
// (batch progress, applied optimizations) to connected clients.
package broadcast

import "context"

// Broadcaster fans an event out to every connected admin client. Delivery
// is best effort; slow clients may miss events.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
