// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type backendJSON struct {
	Driver     string `json:"driver"`
	DSN        string `json:"dsn"`
	QuotaBytes int64  `json:"quota_bytes"`
}

func (b backendJSON) toBackend() Backend {
	return Backend{Driver: b.Driver, DSN: b.DSN, QuotaBytes: b.QuotaBytes}
}

// StructuredJSONConfig mirrors [StructuredConfig] with JSON tags and
// string-friendly durations.
type StructuredJSONConfig struct {
	App struct {
		LogLevel string `json:"log_level"`
		LogFile  string `json:"log_file"`
	} `json:"app,omitempty"`

	Storage struct {
		Source backendJSON `json:"source"`
		Target backendJSON `json:"target"`
		Queue  backendJSON `json:"queue"`
	} `json:"storage,omitempty"`

	Remote struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"remote,omitempty"`

	Server struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"server,omitempty"`

	Sync struct {
		Interval       Duration `json:"interval"`
		MaxRetries     int      `json:"max_retries"`
		InitialBackoff Duration `json:"initial_backoff"`
		MaxBackoff     Duration `json:"max_backoff"`
	} `json:"sync,omitempty"`

	Migration struct {
		MaxRetries            int      `json:"max_retries"`
		InitialBackoff        Duration `json:"initial_backoff"`
		MaxBackoff            Duration `json:"max_backoff"`
		RetryableErrors       []string `json:"retryable_errors"`
		DisableIdleProcessing bool     `json:"disable_idle_processing"`
		IdleQuietPeriod       Duration `json:"idle_quiet_period"`
		HiddenMode            string   `json:"hidden_mode"`
		HiddenThrottleDelay   Duration `json:"hidden_throttle_delay"`
		TickBudget            Duration `json:"tick_budget"`
		TickDelay             Duration `json:"tick_delay"`
		CheckpointInterval    int      `json:"checkpoint_interval"`
		PersistenceInterval   Duration `json:"persistence_interval"`
		RateLimitWindow       Duration `json:"rate_limit_window"`
		RateLimitMaxOps       int      `json:"rate_limit_max_ops"`
		DryRunSampleSize      int      `json:"dry_run_sample_size"`
		SampleTimeBudget      Duration `json:"sample_time_budget"`
		MaxEstimateKeys       int      `json:"max_estimate_keys"`
		MaxKeyLength          int      `json:"max_key_length"`
		LargeItemThreshold    int64    `json:"large_item_threshold"`
		CriticalPrefixes      []string `json:"critical_prefixes"`
		CurrentGameID         string   `json:"current_game_id"`
		ChecksumAlgorithm     string   `json:"checksum_algorithm"`
		DisablePause          bool     `json:"disable_pause"`
		DisableCancel         bool     `json:"disable_cancel"`
		DisableResume         bool     `json:"disable_resume"`
	} `json:"migration,omitempty"`

	Lock struct {
		Timeout           Duration `json:"timeout"`
		HeartbeatInterval Duration `json:"heartbeat_interval"`
		AcquireTimeout    Duration `json:"acquire_timeout"`
		PollInterval      Duration `json:"poll_interval"`
	} `json:"lock,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	m := jsonCfg.Migration
	cfg := &StructuredConfig{
		App: App{
			LogLevel: jsonCfg.App.LogLevel,
			LogFile:  jsonCfg.App.LogFile,
		},
		Storage: Storage{
			Source: jsonCfg.Storage.Source.toBackend(),
			Target: jsonCfg.Storage.Target.toBackend(),
			Queue:  jsonCfg.Storage.Queue.toBackend(),
		},
		Remote: Remote{
			HTTPAddress:    jsonCfg.Remote.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Remote.RequestTimeout),
		},
		Server: Server{
			HTTPAddress:    jsonCfg.Server.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Server.RequestTimeout),
		},
		Sync: Sync{
			Interval:       time.Duration(jsonCfg.Sync.Interval),
			MaxRetries:     jsonCfg.Sync.MaxRetries,
			InitialBackoff: time.Duration(jsonCfg.Sync.InitialBackoff),
			MaxBackoff:     time.Duration(jsonCfg.Sync.MaxBackoff),
		},
		Migration: Migration{
			MaxRetries:            m.MaxRetries,
			InitialBackoff:        time.Duration(m.InitialBackoff),
			MaxBackoff:            time.Duration(m.MaxBackoff),
			RetryableErrors:       m.RetryableErrors,
			DisableIdleProcessing: m.DisableIdleProcessing,
			IdleQuietPeriod:       time.Duration(m.IdleQuietPeriod),
			HiddenMode:            m.HiddenMode,
			HiddenThrottleDelay:   time.Duration(m.HiddenThrottleDelay),
			TickBudget:            time.Duration(m.TickBudget),
			TickDelay:             time.Duration(m.TickDelay),
			CheckpointInterval:    m.CheckpointInterval,
			PersistenceInterval:   time.Duration(m.PersistenceInterval),
			RateLimitWindow:       time.Duration(m.RateLimitWindow),
			RateLimitMaxOps:       m.RateLimitMaxOps,
			DryRunSampleSize:      m.DryRunSampleSize,
			SampleTimeBudget:      time.Duration(m.SampleTimeBudget),
			MaxEstimateKeys:       m.MaxEstimateKeys,
			MaxKeyLength:          m.MaxKeyLength,
			LargeItemThreshold:    m.LargeItemThreshold,
			CriticalPrefixes:      m.CriticalPrefixes,
			CurrentGameID:         m.CurrentGameID,
			ChecksumAlgorithm:     m.ChecksumAlgorithm,
			DisablePause:          m.DisablePause,
			DisableCancel:         m.DisableCancel,
			DisableResume:         m.DisableResume,
		},
		Lock: Lock{
			Timeout:           time.Duration(jsonCfg.Lock.Timeout),
			HeartbeatInterval: time.Duration(jsonCfg.Lock.HeartbeatInterval),
			AcquireTimeout:    time.Duration(jsonCfg.Lock.AcquireTimeout),
			PollInterval:      time.Duration(jsonCfg.Lock.PollInterval),
		},
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
