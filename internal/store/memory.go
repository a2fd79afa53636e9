package store

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/MKhiriev/go-sync-engine/internal/apperrors"
)

// MemoryStore is an in-process [KeyValueStore]. It also implements
// [ConditionalStore] and [QuotaReporter]. Values are copied on the way in
// and out.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string][]byte
	used  int64
	quota int64
}

// NewMemoryStore returns an empty store limited to quotaBytes (key plus
// value lengths). Zero means unlimited.
func NewMemoryStore(quotaBytes int64) *MemoryStore {
	return &MemoryStore{
		data:  make(map[string][]byte),
		quota: quotaBytes,
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return bytes.Clone(v), nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.setLocked(key, value)
}

func (m *MemoryStore) setLocked(key string, value []byte) error {
	delta := int64(len(key) + len(value))
	if old, ok := m.data[key]; ok {
		delta -= int64(len(key) + len(old))
	}
	if m.quota > 0 && m.used+delta > m.quota {
		return apperrors.Wrap(apperrors.KindQuotaExceeded, "MemoryStore.Set", ErrQuotaExceeded)
	}

	m.data[key] = bytes.Clone(value)
	m.used += delta
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteLocked(key)
	return nil
}

func (m *MemoryStore) deleteLocked(key string) {
	if old, ok := m.data[key]; ok {
		m.used -= int64(len(key) + len(old))
		delete(m.data, key)
	}
}

// Keys returns all keys in lexical order.
func (m *MemoryStore) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[key]; ok {
		return false, nil
	}
	if err := m.setLocked(key, value); err != nil {
		return false, err
	}
	return true, nil
}

func (m *MemoryStore) CompareAndDelete(ctx context.Context, key string, expected []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.data[key]
	if !ok || !bytes.Equal(v, expected) {
		return false, nil
	}
	m.deleteLocked(key)
	return true, nil
}

func (m *MemoryStore) Usage(ctx context.Context) (int64, int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.used, m.quota, nil
}
