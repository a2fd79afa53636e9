// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "errors"

// Validation errors returned by [StructuredConfig.validate] when a
// configuration group is incomplete or invalid.
var (
	// ErrInvalidStorageConfigs indicates an unknown driver or an empty DSN
	// for a non-memory backend.
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidSyncConfigs indicates a non-positive sync interval or
	// inconsistent backoff bounds.
	ErrInvalidSyncConfigs = errors.New("invalid sync configuration")
	// ErrInvalidMigrationConfigs indicates invalid migration engine settings
	// (negative retries, unknown hidden mode, unknown error kind, ...).
	ErrInvalidMigrationConfigs = errors.New("invalid migration configuration")
	// ErrInvalidLockConfigs indicates non-positive lock timings.
	ErrInvalidLockConfigs = errors.New("invalid lock configuration")
	// ErrInvalidServerConfigs indicates a missing control API address.
	ErrInvalidServerConfigs = errors.New("invalid server configuration")
)
