// Package delivery defines the contract every transport entry point
// (HTTP server, background worker) exposes to the application runtime.
package delivery

import "context"

// Delivery is a long-running transport that serves requests until the
// context is cancelled or the server is shut down.
type Delivery interface {
	Serve(ctx context.Context) error
}
