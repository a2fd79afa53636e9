// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"
	"strings"

	"github.com/MKhiriev/go-sync-engine/internal/apperrors"
)

var knownDrivers = map[string]struct{}{
	"memory":   {},
	"sqlite":   {},
	"postgres": {},
}

// validate checks that the final merged [StructuredConfig] satisfies all
// invariants before it is used at startup.
func (cfg *StructuredConfig) validate() error {
	for name, b := range map[string]Backend{
		"source": cfg.Storage.Source,
		"target": cfg.Storage.Target,
		"queue":  cfg.Storage.Queue,
	} {
		if err := b.validate(); err != nil {
			return fmt.Errorf("%s backend: %w", name, err)
		}
	}

	if cfg.Server.HTTPAddress == "" {
		return ErrInvalidServerConfigs
	}

	if cfg.Sync.Interval <= 0 || cfg.Sync.MaxRetries < 0 || cfg.Sync.MaxBackoff < cfg.Sync.InitialBackoff {
		return ErrInvalidSyncConfigs
	}

	if err := cfg.Migration.validate(); err != nil {
		return err
	}

	return cfg.Lock.validate()
}

func (b Backend) validate() error {
	if _, ok := knownDrivers[b.Driver]; !ok {
		return fmt.Errorf("%w: unknown driver %q", ErrInvalidStorageConfigs, b.Driver)
	}
	if b.Driver != "memory" && strings.TrimSpace(b.DSN) == "" {
		return fmt.Errorf("%w: empty dsn", ErrInvalidStorageConfigs)
	}
	if b.QuotaBytes < 0 {
		return fmt.Errorf("%w: negative quota", ErrInvalidStorageConfigs)
	}
	return nil
}

func (m Migration) validate() error {
	if m.MaxRetries < 0 || m.InitialBackoff <= 0 || m.MaxBackoff < m.InitialBackoff {
		return fmt.Errorf("%w: retry settings", ErrInvalidMigrationConfigs)
	}

	switch m.HiddenMode {
	case HiddenModeNone, HiddenModePause, HiddenModeThrottle:
	default:
		return fmt.Errorf("%w: unknown hidden mode %q", ErrInvalidMigrationConfigs, m.HiddenMode)
	}

	for _, name := range m.RetryableErrors {
		if _, ok := apperrors.ParseKind(name); !ok {
			return fmt.Errorf("%w: unknown error kind %q", ErrInvalidMigrationConfigs, name)
		}
	}

	if m.CheckpointInterval <= 0 || m.RateLimitMaxOps <= 0 || m.RateLimitWindow <= 0 {
		return fmt.Errorf("%w: checkpoint or rate limit settings", ErrInvalidMigrationConfigs)
	}

	if m.DryRunSampleSize <= 0 || m.MaxEstimateKeys <= 0 || m.MaxKeyLength <= 0 {
		return fmt.Errorf("%w: estimation bounds", ErrInvalidMigrationConfigs)
	}

	if m.TickBudget <= 0 {
		return fmt.Errorf("%w: tick budget", ErrInvalidMigrationConfigs)
	}

	return nil
}

func (l Lock) validate() error {
	if l.Timeout <= 0 || l.HeartbeatInterval <= 0 || l.AcquireTimeout <= 0 || l.PollInterval <= 0 {
		return ErrInvalidLockConfigs
	}
	return nil
}
