// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

//go:generate mockgen -source=interfaces.go -destination=../mock/migration_mock.go -package=mock

package migration

import (
	"context"
	"time"
)

// Locker is the cross-instance mutex the engine holds while it writes.
// *lock.InstanceMutex implements it. IsHeld turns false once another
// instance takes the lock over.
type Locker interface {
	Acquire(ctx context.Context, operation string) bool
	Release(ctx context.Context) error
	IsHeld() bool
}

// IdleScheduler hands out idle time to the background phase. WaitIdle blocks
// until the host has spare capacity and returns how long the next tick may
// work.
type IdleScheduler interface {
	WaitIdle(ctx context.Context) (time.Duration, error)
}
