// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package http implements the control-plane REST API of the sync daemon.
//
// Migration endpoints start, pause, resume and cancel a storage migration
// and report its status and dry-run estimates. Sync endpoints queue local
// changes and report on the sync queue. Request tracing, access logging,
// compression and activity tracking are handled by middleware before a
// request reaches the service layer.
package http
