// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package server

// Server defines the lifecycle contract of the control-plane transport.
//
// RunServer blocks until a stop signal arrives or the transport fails;
// Shutdown stops serving and releases the listener.
type Server interface {
	// RunServer binds the listener and serves until the process is told to
	// stop. A bind failure is returned immediately.
	RunServer() error

	// Shutdown gracefully stops the server.
	Shutdown()
}
