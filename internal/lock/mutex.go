// Package lock implements InstanceMutex, a cooperative lock over a shared
// key/value slot that keeps two running instances from migrating at once.
//
// The lock is best effort. Without a [store.ConditionalStore] ownership is
// established by write-then-verify, not by an atomic compare-and-swap.
package lock

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/store"
	"github.com/MKhiriev/go-sync-engine/internal/utils"
	"github.com/MKhiriev/go-sync-engine/models"
)

const (
	// LockKey holds the JSON-encoded [models.MigrationLock].
	LockKey = "migration_lock"
	// HeartbeatKey holds the holder's last liveness update.
	HeartbeatKey = "migration_lock_heartbeat"
)

// InstanceMutex is held by at most one instance sharing the same store.
// It is not reentrant: Acquire on an already held mutex returns false.
type InstanceMutex struct {
	kv      store.KeyValueStore
	cond    store.ConditionalStore
	cfg     config.Lock
	ownerID string
	now     func() time.Time
	logger  *logger.Logger

	acquireMu sync.Mutex

	mu            sync.Mutex
	held          bool
	stopHeartbeat context.CancelFunc
	wg            sync.WaitGroup
}

// Option customises an InstanceMutex.
type Option func(*InstanceMutex)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *InstanceMutex) { m.now = now }
}

// WithOwnerID replaces the generated owner id.
func WithOwnerID(id string) Option {
	return func(m *InstanceMutex) { m.ownerID = id }
}

// NewInstanceMutex returns an unlocked mutex with a fresh UUIDv7 owner id.
// Conditional writes are used when kv supports them.
func NewInstanceMutex(kv store.KeyValueStore, cfg config.Lock, log *logger.Logger, opts ...Option) *InstanceMutex {
	m := &InstanceMutex{
		kv:      kv,
		cfg:     cfg,
		ownerID: utils.NewUUIDGenerator().Generate(),
		now:     time.Now,
		logger:  log,
	}
	if cond, ok := kv.(store.ConditionalStore); ok {
		m.cond = cond
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OwnerID identifies this instance in the lock record.
func (m *InstanceMutex) OwnerID() string {
	return m.ownerID
}

// IsHeld reports whether this instance believes it holds the lock.
func (m *InstanceMutex) IsHeld() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held
}

// Acquire polls every PollInterval for at most AcquireTimeout. A stale lock
// is cleared and retried at once. It never returns an error: store failures,
// timeout and ctx cancellation all report false.
func (m *InstanceMutex) Acquire(ctx context.Context, operation string) bool {
	m.acquireMu.Lock()
	defer m.acquireMu.Unlock()

	if m.IsHeld() {
		m.logger.Warn().Str("func", "*InstanceMutex.Acquire").Str("owner_id", m.ownerID).Msg("lock already held by this instance")
		return false
	}

	acquireCtx, cancel := context.WithTimeout(ctx, m.cfg.AcquireTimeout)
	defer cancel()

	poll := time.NewTimer(0)
	defer poll.Stop()

	for {
		acquired, retryNow := m.tryAcquire(acquireCtx, operation)
		if acquired {
			m.startHeartbeat(ctx)
			m.logger.Info().
				Str("func", "*InstanceMutex.Acquire").
				Str("owner_id", m.ownerID).
				Str("operation", operation).
				Msg("migration lock acquired")
			return true
		}
		if retryNow {
			continue
		}

		poll.Reset(m.cfg.PollInterval)
		select {
		case <-acquireCtx.Done():
			m.logger.Warn().
				Str("func", "*InstanceMutex.Acquire").
				Str("owner_id", m.ownerID).
				Str("operation", operation).
				Err(acquireCtx.Err()).
				Msg("gave up acquiring migration lock")
			return false
		case <-poll.C:
		}
	}
}

// tryAcquire makes one attempt. retryNow is set after a stale lock has been
// cleared.
func (m *InstanceMutex) tryAcquire(ctx context.Context, operation string) (acquired, retryNow bool) {
	if ctx.Err() != nil {
		return false, false
	}

	raw, current, err := m.read(ctx)
	switch {
	case errors.Is(err, store.ErrKeyNotFound):
		return m.write(ctx, operation), false
	case err != nil:
		m.logger.Err(err).Str("func", "*InstanceMutex.tryAcquire").Msg("error reading migration lock")
		return false, false
	}

	if current != nil && !m.stale(ctx, *current) {
		return false, false
	}

	// stale or undecodable
	m.clear(ctx, raw)
	m.logger.Info().
		Str("func", "*InstanceMutex.tryAcquire").
		Str("owner_id", m.ownerID).
		Interface("stale_lock", current).
		Msg("reclaimed stale migration lock")
	return false, true
}

func (m *InstanceMutex) write(ctx context.Context, operation string) bool {
	nowMs := m.now().UnixMilli()
	record, err := json.Marshal(models.MigrationLock{
		OwnerID:   m.ownerID,
		Timestamp: nowMs,
		Operation: operation,
		Heartbeat: nowMs,
	})
	if err != nil {
		m.logger.Err(err).Str("func", "*InstanceMutex.write").Msg("error encoding migration lock")
		return false
	}

	if m.cond != nil {
		ok, err := m.cond.SetIfAbsent(ctx, LockKey, record)
		if err != nil || !ok {
			if err != nil {
				m.logger.Err(err).Str("func", "*InstanceMutex.write").Msg("error writing migration lock")
			}
			return false
		}
	} else {
		if err = m.kv.Set(ctx, LockKey, record); err != nil {
			m.logger.Err(err).Str("func", "*InstanceMutex.write").Msg("error writing migration lock")
			return false
		}

		// another instance may have written in between
		_, confirmed, err := m.read(ctx)
		if err != nil || confirmed == nil || confirmed.OwnerID != m.ownerID {
			return false
		}
	}

	m.writeHeartbeatRecord(ctx, nowMs)

	m.mu.Lock()
	m.held = true
	m.mu.Unlock()
	return true
}

// read returns the raw record and its decoded form. An undecodable record
// yields a nil lock and no error.
func (m *InstanceMutex) read(ctx context.Context) ([]byte, *models.MigrationLock, error) {
	raw, err := m.kv.Get(ctx, LockKey)
	if err != nil {
		return nil, nil, err
	}

	var l models.MigrationLock
	if err = json.Unmarshal(raw, &l); err != nil {
		m.logger.Err(err).Str("func", "*InstanceMutex.read").Msg("undecodable migration lock")
		return raw, nil, nil
	}
	return raw, &l, nil
}

// stale reports whether l may be reclaimed: older than Timeout, or its
// latest heartbeat older than twice HeartbeatInterval.
func (m *InstanceMutex) stale(ctx context.Context, l models.MigrationLock) bool {
	nowMs := m.now().UnixMilli()

	if nowMs-l.Timestamp > m.cfg.Timeout.Milliseconds() {
		return true
	}

	heartbeat := l.Heartbeat
	if hb, err := m.readHeartbeatRecord(ctx); err == nil && hb.OwnerID == l.OwnerID && hb.Heartbeat > heartbeat {
		heartbeat = hb.Heartbeat
	}
	return nowMs-heartbeat > 2*m.cfg.HeartbeatInterval.Milliseconds()
}

func (m *InstanceMutex) clear(ctx context.Context, raw []byte) {
	if m.cond != nil && raw != nil {
		if _, err := m.cond.CompareAndDelete(ctx, LockKey, raw); err != nil {
			m.logger.Err(err).Str("func", "*InstanceMutex.clear").Msg("error clearing migration lock")
		}
	} else if err := m.kv.Delete(ctx, LockKey); err != nil {
		m.logger.Err(err).Str("func", "*InstanceMutex.clear").Msg("error clearing migration lock")
	}

	if err := m.kv.Delete(ctx, HeartbeatKey); err != nil {
		m.logger.Err(err).Str("func", "*InstanceMutex.clear").Msg("error clearing migration lock heartbeat")
	}
}

func (m *InstanceMutex) readHeartbeatRecord(ctx context.Context) (models.MigrationLock, error) {
	var hb models.MigrationLock
	raw, err := m.kv.Get(ctx, HeartbeatKey)
	if err != nil {
		return hb, err
	}
	err = json.Unmarshal(raw, &hb)
	return hb, err
}

func (m *InstanceMutex) writeHeartbeatRecord(ctx context.Context, nowMs int64) {
	raw, _ := json.Marshal(models.MigrationLock{OwnerID: m.ownerID, Heartbeat: nowMs})
	if err := m.kv.Set(ctx, HeartbeatKey, raw); err != nil {
		m.logger.Err(err).Str("func", "*InstanceMutex.writeHeartbeatRecord").Msg("error writing migration lock heartbeat")
	}
}

// Release deletes the lock if this instance holds it; otherwise it is a
// no-op. A lock already reclaimed by another instance is left alone.
func (m *InstanceMutex) Release(ctx context.Context) error {
	m.mu.Lock()
	wasHeld := m.held
	m.held = false
	m.mu.Unlock()

	m.haltHeartbeat()
	if !wasHeld {
		return nil
	}

	raw, current, err := m.read(ctx)
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if current == nil || current.OwnerID != m.ownerID {
		m.logger.Warn().Str("func", "*InstanceMutex.Release").Str("owner_id", m.ownerID).Msg("migration lock was taken over; nothing to release")
		return nil
	}

	if m.cond != nil {
		if _, err = m.cond.CompareAndDelete(ctx, LockKey, raw); err != nil {
			return err
		}
	} else if err = m.kv.Delete(ctx, LockKey); err != nil {
		return err
	}
	if err = m.kv.Delete(ctx, HeartbeatKey); err != nil {
		return err
	}

	m.logger.Info().Str("func", "*InstanceMutex.Release").Str("owner_id", m.ownerID).Msg("migration lock released")
	return nil
}

// ForceRelease clears the lock regardless of owner. Store errors are logged.
func (m *InstanceMutex) ForceRelease(ctx context.Context) {
	m.mu.Lock()
	m.held = false
	m.mu.Unlock()

	m.haltHeartbeat()

	if err := m.kv.Delete(ctx, LockKey); err != nil {
		m.logger.Err(err).Str("func", "*InstanceMutex.ForceRelease").Msg("error deleting migration lock")
	}
	if err := m.kv.Delete(ctx, HeartbeatKey); err != nil {
		m.logger.Err(err).Str("func", "*InstanceMutex.ForceRelease").Msg("error deleting migration lock heartbeat")
	}
	m.logger.Warn().Str("func", "*InstanceMutex.ForceRelease").Str("owner_id", m.ownerID).Msg("migration lock force-released")
}

// Close releases the lock on teardown.
func (m *InstanceMutex) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Release(ctx)
}
