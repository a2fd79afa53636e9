// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import "errors"

var (
	ErrVersionIsNotSpecified = errors.New("app version is not specified")
	ErrMigrationRunning      = errors.New("migration is already running")
	ErrNoKeysToEstimate      = errors.New("no keys to estimate")
	ErrInvalidDataProvided   = errors.New("invalid data provided")
)
