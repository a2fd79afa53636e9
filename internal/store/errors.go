// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import "errors"

// Sentinel errors returned by the key/value stores. Callers should use
// [errors.Is] to match against these values.
var (
	// ErrKeyNotFound is returned by Get when the key does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrQuotaExceeded is returned when a write would grow a store past its
	// configured quota. It is always wrapped in an apperrors quota_exceeded
	// error.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrUnknownDriver is returned by [NewStorages] for an unsupported
	// backend driver.
	ErrUnknownDriver = errors.New("unknown storage driver")

	// ErrInvalidEntityKey is returned by the entity store for a blank
	// entity type or id.
	ErrInvalidEntityKey = errors.New("invalid entity key")
)

// Low-level database operation errors. These wrap the driver error so the
// original cause stays inspectable with [errors.As].
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrExecutingStatement is returned when executing an INSERT or DELETE
	// fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRows is returned when scanning a result row fails.
	ErrScanningRows = errors.New("failed to scan kv rows")
)
