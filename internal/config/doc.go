// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package config provides configuration loading, merging, and validation
// facilities for the sync daemon.
//
// Configuration is assembled from multiple sources in the following priority
// order (later sources override earlier non-zero fields):
//  1. Built-in defaults ([Default])
//  2. JSON config file
//  3. Environment variables
//  4. Command-line flags
//
// Boolean switches are phrased negatively (DisablePause, ...) so that the
// zero value is the default and a merge never needs to override true with
// false.
//
// The main entry point is [GetStructuredConfig].
package config
