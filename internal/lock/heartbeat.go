package lock

import (
	"context"
	"encoding/json"
	"time"
)

func (m *InstanceMutex) startHeartbeat(ctx context.Context) {
	if m.cfg.HeartbeatInterval <= 0 {
		return
	}

	m.haltHeartbeat()
	hbCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	m.mu.Lock()
	m.stopHeartbeat = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		t := time.NewTicker(m.cfg.HeartbeatInterval)
		defer t.Stop()

		for {
			select {
			case <-hbCtx.Done():
				return
			case <-t.C:
				m.beat(hbCtx)
			}
		}
	}()
}

func (m *InstanceMutex) haltHeartbeat() {
	m.mu.Lock()
	cancel := m.stopHeartbeat
	m.stopHeartbeat = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// beat rewrites the heartbeat in place after verifying ownership. Failures
// are logged and otherwise ignored.
func (m *InstanceMutex) beat(ctx context.Context) {
	if !m.IsHeld() {
		return
	}

	_, current, err := m.read(ctx)
	if err != nil {
		m.logger.Err(err).Str("func", "*InstanceMutex.beat").Msg("error reading migration lock")
		return
	}
	if current == nil || current.OwnerID != m.ownerID {
		m.logger.Warn().Str("func", "*InstanceMutex.beat").Str("owner_id", m.ownerID).Msg("migration lock lost to another instance")
		m.mu.Lock()
		m.held = false
		cancel := m.stopHeartbeat
		m.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return
	}

	nowMs := m.now().UnixMilli()
	current.Heartbeat = nowMs
	raw, err := json.Marshal(current)
	if err != nil {
		return
	}
	if err = m.kv.Set(ctx, LockKey, raw); err != nil {
		m.logger.Err(err).Str("func", "*InstanceMutex.beat").Msg("error refreshing migration lock heartbeat")
		return
	}
	m.writeHeartbeatRecord(ctx, nowMs)
}
