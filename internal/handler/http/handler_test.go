package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-sync-engine/internal/checksum"
	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/lock"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/migration"
	"github.com/MKhiriev/go-sync-engine/internal/mock"
	"github.com/MKhiriev/go-sync-engine/internal/queue"
	"github.com/MKhiriev/go-sync-engine/internal/service"
	"github.com/MKhiriev/go-sync-engine/internal/store"
	"github.com/MKhiriev/go-sync-engine/internal/workers"
	"github.com/MKhiriev/go-sync-engine/models"
)

type touchCounter struct {
	n atomic.Int32
}

func (c *touchCounter) Touch() { c.n.Add(1) }

type apiFixture struct {
	source   *store.MemoryStore
	target   *store.MemoryStore
	resolver *mock.MockResolver
	activity *touchCounter
	services *service.Services
	router   http.Handler
}

func newAPIFixture(t *testing.T, tweak func(*config.Migration)) *apiFixture {
	t.Helper()

	cfg := config.DefaultMigration()
	cfg.DisableIdleProcessing = true
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = time.Millisecond
	cfg.PersistenceInterval = 0
	if tweak != nil {
		tweak(&cfg)
	}

	sum, err := checksum.New(checksum.SHA256)
	require.NoError(t, err)

	f := &apiFixture{
		source:   store.NewMemoryStore(0),
		target:   store.NewMemoryStore(1 << 20),
		resolver: mock.NewMockResolver(gomock.NewController(t)),
		activity: &touchCounter{},
	}

	control := migration.NewControlManager(f.source, cfg, sum, migration.ControlCallbacks{}, logger.Nop())
	mutex := lock.NewInstanceMutex(f.source, config.Lock{
		Timeout:           time.Minute,
		HeartbeatInterval: time.Minute,
		AcquireTimeout:    50 * time.Millisecond,
		PollInterval:      10 * time.Millisecond,
	}, logger.Nop())
	engine := migration.NewEngine(f.source, f.target, mutex, control, cfg, migration.EngineCallbacks{}, logger.Nop())

	q := queue.New(store.NewMemoryStore(0), config.Sync{MaxRetries: 2, InitialBackoff: time.Hour}, logger.Nop())
	job := workers.NewSyncJob(q, f.resolver, f.activity, time.Hour, logger.Nop())

	f.services, err = service.NewServices(engine, control, q, job,
		models.NewAppBuildInfo("1.2.3", "2026-10-01", "cafe"), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(f.services.MigrationService.Close)

	f.router = NewHandler(f.services, f.activity, logger.Nop()).Init()
	return f
}

func (f *apiFixture) seed(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		require.NoError(t, f.source.Set(context.Background(), k, []byte(`{"key":"`+k+`"}`)))
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		var err error
		payload, err = json.Marshal(b)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
