// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"

	"github.com/MKhiriev/go-sync-engine/internal/apperrors"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// KeyValueStore is the generic device storage every component persists to:
// migration source and target, lock records, checkpoints and the sync queue.
//
// Get returns [ErrKeyNotFound] for a missing key. Delete of a missing key is
// not an error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// ConditionalStore is implemented by stores that can perform atomic
// compare-style writes.
type ConditionalStore interface {
	KeyValueStore
	// SetIfAbsent writes value only when key does not exist and reports
	// whether it did.
	SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error)
	// CompareAndDelete removes key only while it still holds expected.
	CompareAndDelete(ctx context.Context, key string, expected []byte) (bool, error)
}

// QuotaReporter is implemented by stores that know their capacity.
// A quota of zero means unlimited.
type QuotaReporter interface {
	Usage(ctx context.Context) (used, quota int64, err error)
}

// ErrorClassificator maps driver errors onto application error kinds.
type ErrorClassificator interface {
	Classify(err error) apperrors.Kind
}
