package migration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-sync-engine/internal/checksum"
	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/lock"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/store"
)

func testMigrationConfig() config.Migration {
	cfg := config.DefaultMigration()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 4 * time.Millisecond
	cfg.HiddenThrottleDelay = time.Millisecond
	cfg.TickBudget = time.Hour
	cfg.TickDelay = time.Millisecond
	cfg.PersistenceInterval = 0
	cfg.DisableIdleProcessing = true
	cfg.CurrentGameID = "123"
	return cfg
}

func testLockConfig() config.Lock {
	return config.Lock{
		Timeout:           time.Minute,
		HeartbeatInterval: time.Minute,
		AcquireTimeout:    100 * time.Millisecond,
		PollInterval:      10 * time.Millisecond,
	}
}

func newTestControl(t *testing.T, source store.KeyValueStore, cfg config.Migration, callbacks ControlCallbacks, opts ...ControlOption) *ControlManager {
	t.Helper()
	sum, err := checksum.New(checksum.SHA256)
	require.NoError(t, err)
	return NewControlManager(source, cfg, sum, callbacks, logger.Nop(), opts...)
}

func seed(t *testing.T, kv store.KeyValueStore, pairs map[string]string) {
	t.Helper()
	for k, v := range pairs {
		require.NoError(t, kv.Set(context.Background(), k, []byte(v)))
	}
}

// recordingStore records every successful Set and can inject failures.
type recordingStore struct {
	*store.MemoryStore

	mu      sync.Mutex
	writes  []string
	calls   map[string]int
	failSet func(key string, call int) error
	onSet   func(key string)
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: store.NewMemoryStore(0), calls: make(map[string]int)}
}

func (s *recordingStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.calls[key]++
	call := s.calls[key]
	fail := s.failSet
	s.mu.Unlock()

	if fail != nil {
		if err := fail(key, call); err != nil {
			return err
		}
	}
	if err := s.MemoryStore.Set(ctx, key, value); err != nil {
		return err
	}

	s.mu.Lock()
	s.writes = append(s.writes, key)
	onSet := s.onSet
	s.mu.Unlock()
	if onSet != nil {
		onSet(key)
	}
	return nil
}

func (s *recordingStore) Writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.writes...)
}

func (s *recordingStore) Calls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

type engineFixture struct {
	source  *store.MemoryStore
	target  *recordingStore
	control *ControlManager
	mutex   *lock.InstanceMutex
	engine  *Engine
}

func newEngineFixture(t *testing.T, cfg config.Migration, callbacks EngineCallbacks, opts ...EngineOption) *engineFixture {
	t.Helper()

	f := &engineFixture{
		source: store.NewMemoryStore(0),
		target: newRecordingStore(),
	}
	f.control = newTestControl(t, f.source, cfg, ControlCallbacks{})
	f.mutex = lock.NewInstanceMutex(f.source, testLockConfig(), logger.Nop())
	f.engine = NewEngine(f.source, f.target, f.mutex, f.control, cfg, callbacks, logger.Nop(), opts...)
	return f
}
