// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"

	"github.com/MKhiriev/go-sync-engine/internal/queue"
	"github.com/MKhiriev/go-sync-engine/internal/workers"
	"github.com/MKhiriev/go-sync-engine/models"
)

// MigrationService drives the storage migration from the control API.
type MigrationService interface {
	// Start launches a migration in the background and returns at once.
	Start(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) (*models.MigrationResumeData, error)
	Cancel(ctx context.Context, reason string) error
	SetHidden(ctx context.Context, hidden bool)

	Status(ctx context.Context) models.MigrationStatus
	State(ctx context.Context) models.ControlState
	// LastResult returns the outcome of the most recent finished run.
	LastResult(ctx context.Context) (*models.MigrationResult, string)

	// Estimate and Preview default to every migratable source key when keys
	// is empty.
	Estimate(ctx context.Context, keys []string) (models.MigrationEstimation, error)
	Preview(ctx context.Context, keys []string) (models.MigrationPreview, error)

	// Close stops a running migration, leaving a resumable checkpoint.
	Close()
}

// SyncService queues local changes and reports on the sync queue.
type SyncService interface {
	Enqueue(ctx context.Context, op models.SyncOperation) (models.SyncOperation, error)
	Operations(ctx context.Context) ([]models.SyncOperation, error)
	Stats(ctx context.Context) (queue.Stats, error)
	Retry(ctx context.Context, id string) error
	Drain(ctx context.Context) (workers.DrainReport, error)
}

// AppInfoService reports build metadata.
type AppInfoService interface {
	GetAppVersion(ctx context.Context) string
	GetBuildInfo(ctx context.Context) models.AppBuildInfo
}
