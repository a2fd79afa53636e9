// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package conflict

import (
	"context"
	"encoding/json"

	"github.com/MKhiriev/go-sync-engine/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/conflict_mock.go -package=mock

// RemoteStore is the authoritative copy of every entity.
type RemoteStore interface {
	// Fetch returns the current remote record, or nil when there is none.
	// lookup is the operation payload, passed along for entities addressed
	// by a composite or parent id. Delete takes it for the same reason.
	Fetch(ctx context.Context, entityType models.EntityType, entityID string, lookup json.RawMessage) (*models.CloudRecord, error)
	Write(ctx context.Context, entityType models.EntityType, entityID string, data json.RawMessage) error
	Delete(ctx context.Context, entityType models.EntityType, entityID string, lookup json.RawMessage) error
}

// LocalStore receives remote records that won a conflict.
type LocalStore interface {
	Write(ctx context.Context, entityType models.EntityType, entityID string, data json.RawMessage) error
}
