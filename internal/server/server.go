// Package server defines the lifecycle contract of the listeners the
// service exposes.
package server

import "context"

type Server interface {
	// Start binds the listener and serves in the background. A bind
	// failure is returned before Start comes back.
	Start(ctx context.Context) error
	// Stop drains in-flight requests until ctx expires.
	Stop(ctx context.Context) error
	// Addr is the configured address before Start and the bound one after.
	Addr() string
}
