// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package migration

import (
	"errors"
	"fmt"

	"github.com/MKhiriev/go-sync-engine/models"
)

var (
	ErrEngineRunning  = errors.New("migration is already running")
	ErrPauseDisabled  = errors.New("pausing the migration is disabled")
	ErrCancelDisabled = errors.New("cancelling the migration is disabled")
	ErrResumeDisabled = errors.New("resuming the migration is disabled")
)

// MigrationError is the terminal failure of a run. It carries enough context
// for the caller to choose between retry, resume and restart.
type MigrationError struct {
	Phase     models.MigrationPhase
	Processed int
	Key       string
	Err       error
}

func (e *MigrationError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("migration failed in %s phase after %d items at key %q: %v", e.Phase, e.Processed, e.Key, e.Err)
	}
	return fmt.Sprintf("migration failed in %s phase after %d items: %v", e.Phase, e.Processed, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}
