// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration of the sync daemon. It is
// populated by merging defaults, an optional JSON file, environment variables
// and command-line flags (in increasing priority).
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env      : direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds process-level settings such as logging.
	App App `envPrefix:"APP_"`

	// Storage selects the key/value backends used as migration source,
	// migration target and sync-queue store.
	Storage Storage `envPrefix:"STORAGE_"`

	// Remote configures the HTTP remote store the conflict resolver talks to.
	Remote Remote `envPrefix:"REMOTE_"`

	// Server configures the control-plane HTTP API.
	Server Server `envPrefix:"SERVER_"`

	// Sync configures the background sync job that drains the queue.
	Sync Sync `envPrefix:"SYNC_"`

	// Migration configures the migration control manager and engine.
	Migration Migration `envPrefix:"MIGRATION_"`

	// Lock configures the cross-instance migration mutex.
	Lock Lock `envPrefix:"LOCK_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds process-level settings.
type App struct {
	// LogLevel is a zerolog level name ("debug", "info", ...).
	// Env: APP_LOG_LEVEL
	LogLevel string `env:"LOG_LEVEL"`

	// LogFile, when set, redirects logs from stdout to this file.
	// Env: APP_LOG_FILE
	LogFile string `env:"LOG_FILE"`
}

// Backend describes one key/value store.
type Backend struct {
	// Driver is one of "memory", "sqlite" or "postgres".
	Driver string `env:"DRIVER"`

	// DSN is the connection string; a file path for sqlite.
	DSN string `env:"DSN"`

	// QuotaBytes caps the memory backend. Zero means unlimited.
	QuotaBytes int64 `env:"QUOTA_BYTES"`
}

// Storage groups every backend the daemon opens.
type Storage struct {
	// Source is the store data is migrated from. It also holds the lock
	// and checkpoint records.
	// Env: STORAGE_SOURCE_DRIVER, STORAGE_SOURCE_DSN
	Source Backend `envPrefix:"SOURCE_"`

	// Target is the store data is migrated to.
	// Env: STORAGE_TARGET_DRIVER, STORAGE_TARGET_DSN
	Target Backend `envPrefix:"TARGET_"`

	// Queue persists pending sync operations and the local entity copies.
	// Env: STORAGE_QUEUE_DRIVER, STORAGE_QUEUE_DSN
	Queue Backend `envPrefix:"QUEUE_"`
}

// Remote configures the HTTP remote store.
type Remote struct {
	// HTTPAddress is the base address of the remote API ("host:port" or URL).
	// Env: REMOTE_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout bounds every remote request.
	// Env: REMOTE_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Server configures the control-plane HTTP API.
type Server struct {
	// HTTPAddress is the listen address in "host:port" form.
	// Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout is the read/write timeout of the HTTP server.
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Sync configures the queue-draining job.
type Sync struct {
	// Interval between two drains of the sync queue.
	Interval time.Duration `env:"INTERVAL"`

	// MaxRetries is stamped on every enqueued operation.
	MaxRetries int `env:"MAX_RETRIES"`

	// InitialBackoff and MaxBackoff bound the delay before a transiently
	// failed operation is attempted again.
	InitialBackoff time.Duration `env:"INITIAL_BACKOFF"`
	MaxBackoff     time.Duration `env:"MAX_BACKOFF"`
}

// Hidden-window behaviours for [Migration.HiddenMode].
const (
	HiddenModeNone     = "none"
	HiddenModePause    = "pause"
	HiddenModeThrottle = "throttle"
)

// Migration configures the control manager and the background engine.
type Migration struct {
	// MaxRetries is the number of retries after the first failed write of a key.
	MaxRetries int `env:"MAX_RETRIES"`

	// InitialBackoff is the first retry delay; it doubles up to MaxBackoff.
	InitialBackoff time.Duration `env:"INITIAL_BACKOFF"`
	MaxBackoff     time.Duration `env:"MAX_BACKOFF"`

	// RetryableErrors lists apperrors kind names eligible for retry
	// (e.g. "network,timeout,rate_limited").
	RetryableErrors []string `env:"RETRYABLE_ERRORS" envSeparator:","`

	// DisableIdleProcessing makes the background phase always use deferred
	// ticks even when an idle scheduler is available.
	DisableIdleProcessing bool `env:"DISABLE_IDLE_PROCESSING"`

	// IdleQuietPeriod is how long the daemon must see no API or sync
	// activity before a background tick counts as idle time.
	IdleQuietPeriod time.Duration `env:"IDLE_QUIET_PERIOD"`

	// HiddenMode is what the engine does while the host window is hidden:
	// "pause", "throttle" or "none".
	HiddenMode string `env:"HIDDEN_MODE"`

	// HiddenThrottleDelay is the pause inserted between keys in throttle mode.
	HiddenThrottleDelay time.Duration `env:"HIDDEN_THROTTLE_DELAY"`

	// TickBudget is how long one background tick may work before yielding;
	// TickDelay is the deferred-tick pause when no idle scheduler is used.
	TickBudget time.Duration `env:"TICK_BUDGET"`
	TickDelay  time.Duration `env:"TICK_DELAY"`

	// CheckpointInterval takes a checkpoint once every this many keys.
	CheckpointInterval int `env:"CHECKPOINT_INTERVAL"`

	// PersistenceInterval is the minimum time between two persisted
	// periodic checkpoints. Pause checkpoints are always persisted.
	PersistenceInterval time.Duration `env:"PERSISTENCE_INTERVAL"`

	// RateLimitWindow and RateLimitMaxOps bound pause/resume requests.
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW"`
	RateLimitMaxOps int           `env:"RATE_LIMIT_MAX_OPS"`

	// DryRunSampleSize is the number of keys read by estimate/preview;
	// SampleTimeBudget cuts sampling short.
	DryRunSampleSize int           `env:"DRY_RUN_SAMPLE_SIZE"`
	SampleTimeBudget time.Duration `env:"SAMPLE_TIME_BUDGET"`

	// MaxEstimateKeys and MaxKeyLength bound estimate/preview input.
	MaxEstimateKeys int `env:"MAX_ESTIMATE_KEYS"`
	MaxKeyLength    int `env:"MAX_KEY_LENGTH"`

	// LargeItemThreshold (bytes) triggers a preview warning.
	LargeItemThreshold int64 `env:"LARGE_ITEM_THRESHOLD"`

	// CriticalPrefixes classify keys migrated before the app is usable.
	CriticalPrefixes []string `env:"CRITICAL_PREFIXES" envSeparator:","`

	// CurrentGameID marks "currentGame_<id>" as critical.
	CurrentGameID string `env:"CURRENT_GAME_ID"`

	// ChecksumAlgorithm protects persisted checkpoints ("sha256", "blake2b").
	ChecksumAlgorithm string `env:"CHECKSUM_ALGORITHM"`

	// Feature flags seeding the control state.
	DisablePause  bool `env:"DISABLE_PAUSE"`
	DisableCancel bool `env:"DISABLE_CANCEL"`
	DisableResume bool `env:"DISABLE_RESUME"`
}

// Lock configures the cross-instance migration mutex.
type Lock struct {
	// Timeout is the maximum age of a lock before it is considered stale.
	Timeout time.Duration `env:"TIMEOUT"`

	// HeartbeatInterval is the refresh period; a heartbeat older than twice
	// this value also marks the lock stale.
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL"`

	// AcquireTimeout bounds the acquire poll loop; PollInterval spaces its
	// attempts.
	AcquireTimeout time.Duration `env:"ACQUIRE_TIMEOUT"`
	PollInterval   time.Duration `env:"POLL_INTERVAL"`
}

// GetStructuredConfig loads, merges, and validates the configuration from
// all available sources. Priority, lowest first:
//  1. Built-in defaults
//  2. JSON file (path resolved from env or flags)
//  3. Environment variables
//  4. Command-line flags
func GetStructuredConfig(args []string) (*StructuredConfig, error) {
	return newConfigBuilder().
		withDefaults().
		withEnv().
		withFlags(args).
		withJSON().
		build()
}
