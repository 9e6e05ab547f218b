// Package lifecycle holds shared constants for application start/stop handling.
package lifecycle

import "time"

// DefaultTimeout bounds graceful startup and shutdown operations
// (server shutdown, database ping) so a hung dependency cannot block exit.
const DefaultTimeout = 10 * time.Second
