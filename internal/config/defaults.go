// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "time"

// Default returns the built-in configuration every other source is merged
// on top of.
func Default() *StructuredConfig {
	return &StructuredConfig{
		App: App{LogLevel: "info"},
		Storage: Storage{
			Source: Backend{Driver: "sqlite", DSN: "data/device.db"},
			Target: Backend{Driver: "sqlite", DSN: "data/device-next.db"},
			Queue:  Backend{Driver: "sqlite", DSN: "data/queue.db"},
		},
		Remote: Remote{RequestTimeout: 15 * time.Second},
		Server: Server{HTTPAddress: "localhost:8089", RequestTimeout: 30 * time.Second},
		Sync: Sync{
			Interval:       30 * time.Second,
			MaxRetries:     5,
			InitialBackoff: time.Second,
			MaxBackoff:     time.Minute,
		},
		Migration: DefaultMigration(),
		Lock:      DefaultLock(),
	}
}

// DefaultMigration returns the default migration settings.
func DefaultMigration() Migration {
	return Migration{
		MaxRetries:          3,
		InitialBackoff:      100 * time.Millisecond,
		MaxBackoff:          5 * time.Second,
		RetryableErrors:     []string{"network", "timeout", "rate_limited", "quota_exceeded"},
		IdleQuietPeriod:     200 * time.Millisecond,
		HiddenMode:          HiddenModeThrottle,
		HiddenThrottleDelay: 50 * time.Millisecond,
		TickBudget:          40 * time.Millisecond,
		TickDelay:           10 * time.Millisecond,
		CheckpointInterval:  50,
		PersistenceInterval: 2 * time.Second,
		RateLimitWindow:     time.Minute,
		RateLimitMaxOps:     10,
		DryRunSampleSize:    50,
		SampleTimeBudget:    2 * time.Second,
		MaxEstimateKeys:     100000,
		MaxKeyLength:        1024,
		LargeItemThreshold:  1 << 20,
		CriticalPrefixes:    []string{"settings", "teamRoster", "masterRoster"},
		ChecksumAlgorithm:   "sha256",
	}
}

// DefaultLock returns the default mutex settings.
func DefaultLock() Lock {
	return Lock{
		Timeout:           5 * time.Minute,
		HeartbeatInterval: 10 * time.Second,
		AcquireTimeout:    60 * time.Second,
		PollInterval:      time.Second,
	}
}
