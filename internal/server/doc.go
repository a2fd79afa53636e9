// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package server runs the control-plane HTTP API of the sync daemon.
//
// It owns the listener lifecycle: binding, serving, and graceful shutdown
// once SIGTERM, SIGINT or SIGQUIT is received.
package server
