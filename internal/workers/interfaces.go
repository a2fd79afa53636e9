// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package workers runs the daemon's background jobs.
package workers

import (
	"context"

	"github.com/MKhiriev/go-sync-engine/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/workers_mock.go -package=mock

// Worker is a background job. Run starts it and returns immediately; Stop
// blocks until it has exited.
type Worker interface {
	Run(ctx context.Context)
	Stop()
}

// Resolver pushes one queued operation to the remote store, settling any
// conflict on the way.
type Resolver interface {
	Resolve(ctx context.Context, op models.SyncOperation) (models.ResolveResult, error)
}

// ActivityRecorder is told about foreground work so background migration
// ticks can stay out of its way.
type ActivityRecorder interface {
	Touch()
}
