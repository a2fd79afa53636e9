package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-sync-engine/internal/queue"
	"github.com/MKhiriev/go-sync-engine/internal/workers"
	"github.com/MKhiriev/go-sync-engine/models"
)

const playerUpdate = `{"entityType":"player","entityId":"p1","operation":"update","data":{"name":"Ada"},"timestamp":1700000000000}`

func TestEnqueueOperation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantField  string
	}{
		{
			name:       "accepted",
			body:       playerUpdate,
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "unknown entity type",
			body:       `{"entityType":"coach","entityId":"c1","operation":"update","data":{},"timestamp":1}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "entityType",
		},
		{
			name:       "delete with payload",
			body:       `{"entityType":"team","entityId":"t1","operation":"delete","data":{"a":1},"timestamp":1}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "data",
		},
		{
			name:       "malformed json",
			body:       `{"entityType":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t, nil)

			rec := f.do(t, http.MethodPost, "/api/sync/operations", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Positive(t, f.activity.n.Load())

			if tt.wantStatus != http.StatusAccepted {
				assert.Equal(t, tt.wantField, decode[errorResponse](t, rec).Field)
				return
			}

			op := decode[models.SyncOperation](t, rec)
			assert.NotEmpty(t, op.ID)
			assert.Equal(t, models.StatusPending, op.Status)
			assert.Equal(t, 2, op.MaxRetries)
		})
	}
}

func TestListOperationsAndStats(t *testing.T) {
	f := newAPIFixture(t, nil)

	list := decode[operationsResponse](t, f.do(t, http.MethodGet, "/api/sync/operations", nil))
	assert.Equal(t, 0, list.Length)
	assert.NotNil(t, list.Operations)

	require.Equal(t, http.StatusAccepted, f.do(t, http.MethodPost, "/api/sync/operations", playerUpdate).Code)
	// same entity, folded into the queued operation
	require.Equal(t, http.StatusAccepted, f.do(t, http.MethodPost, "/api/sync/operations", playerUpdate).Code)

	list = decode[operationsResponse](t, f.do(t, http.MethodGet, "/api/sync/operations", nil))
	require.Equal(t, 1, list.Length)
	assert.Equal(t, "p1", list.Operations[0].EntityID)

	rec := f.do(t, http.MethodGet, "/api/sync/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, queue.Stats{Pending: 1}, decode[queue.Stats](t, rec))
}

func TestRetryOperation_NotFound(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/sync/operations/missing/retry", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDrainQueue(t *testing.T) {
	f := newAPIFixture(t, nil)
	require.Equal(t, http.StatusAccepted, f.do(t, http.MethodPost, "/api/sync/operations", playerUpdate).Code)

	f.resolver.EXPECT().
		Resolve(gomock.Any(), gomock.Cond(func(op models.SyncOperation) bool { return op.EntityID == "p1" })).
		Return(models.ResolveResult{ActionTaken: true}, nil)

	rec := f.do(t, http.MethodPost, "/api/sync/drain", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, workers.DrainReport{Synced: 1}, decode[workers.DrainReport](t, rec))

	assert.Equal(t, queue.Stats{}, decode[queue.Stats](t, f.do(t, http.MethodGet, "/api/sync/stats", nil)))
}
