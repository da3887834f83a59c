// Package subscriberService tracks the live sessions of the Session
// adapter (component E) and removes a closed connection from the
// broker registry. Translating inbound envelopes into registry calls
// and emitting outbound envelopes is done by its http subpackage.
package subscriberService

import "context"

// SubscriberService manages the lifetime of WebSocket sessions bound
// to the broker registry.
type SubscriberService interface {
	// Shutdown closes every active connection. It does not wait for
	// in-flight writes to flush.
	Shutdown(ctx context.Context) error

	// ActiveConnections returns the number of currently open sessions.
	ActiveConnections() int
}
