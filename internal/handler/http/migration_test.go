package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/lock"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/models"
)

func TestMigrationStatus_Idle(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/migration/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	status := decode[models.MigrationStatus](t, rec)
	assert.Equal(t, models.PhaseIdle, status.Phase)
	assert.Zero(t, f.activity.n.Load(), "status polling is not activity")
}

func TestStartMigration_RunsToCompletion(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.seed(t, "settings", "bg_1", "bg_2")

	rec := f.do(t, http.MethodPost, "/api/migration/start", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Positive(t, f.activity.n.Load())

	require.Eventually(t, func() bool {
		res := decode[resultResponse](t, f.do(t, http.MethodGet, "/api/migration/result", nil))
		return res.Result != nil
	}, 5*time.Second, 5*time.Millisecond)

	res := decode[resultResponse](t, f.do(t, http.MethodGet, "/api/migration/result", nil))
	assert.Empty(t, res.Error)
	assert.Equal(t, models.PhaseCompleted, res.Result.Phase)
	assert.Equal(t, 3, res.Result.ItemsProcessed)

	got, err := f.target.Get(context.Background(), "settings")
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"settings"}`, string(got))
}

func TestStartMigration_AlreadyRunning(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.seed(t, "bg_1")

	other := lock.NewInstanceMutex(f.source, config.DefaultLock(), logger.Nop())
	require.True(t, other.Acquire(context.Background(), "migration"))
	t.Cleanup(func() { _ = other.Release(context.Background()) })

	require.Equal(t, http.StatusAccepted, f.do(t, http.MethodPost, "/api/migration/start", nil).Code)

	rec := f.do(t, http.MethodPost, "/api/migration/start", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "already running")
}

func TestPauseResume(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/migration/pause", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.ControlState](t, rec).IsPaused)

	rec = f.do(t, http.MethodPost, "/api/migration/resume", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[resumeResponse](t, rec).ResumeData)

	state := decode[models.ControlState](t, f.do(t, http.MethodGet, "/api/migration/state", nil))
	assert.False(t, state.IsPaused)
}

func TestPause_RateLimited(t *testing.T) {
	f := newAPIFixture(t, func(cfg *config.Migration) { cfg.RateLimitMaxOps = 2 })

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/migration/pause", nil).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/migration/resume", nil).Code)

	rec := f.do(t, http.MethodPost, "/api/migration/pause", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", decode[errorResponse](t, rec).Kind)
}

func TestControlDisabled(t *testing.T) {
	f := newAPIFixture(t, func(cfg *config.Migration) {
		cfg.DisablePause = true
		cfg.DisableResume = true
		cfg.DisableCancel = true
	})

	for _, path := range []string{"/api/migration/pause", "/api/migration/resume", "/api/migration/cancel"} {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, path, nil).Code)
		})
	}
}

func TestCancelMigration(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/migration/cancel", cancelRequest{Reason: "user request"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.ControlState](t, rec).IsCancelling)

	rec = f.do(t, http.MethodPost, "/api/migration/cancel", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "an empty body is accepted and cancelling twice is fine")

	rec = f.do(t, http.MethodPost, "/api/migration/cancel", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetVisibility(t *testing.T) {
	f := newAPIFixture(t, nil)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/api/migration/visibility", visibilityRequest{Hidden: true}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/migration/visibility", "").Code)
}

func TestEstimateMigration(t *testing.T) {
	f := newAPIFixture(t, nil)

	t.Run("nothing to estimate", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/migration/estimate", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	f.seed(t, "bg_1", "bg_2", "settings")

	t.Run("all source keys", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/migration/estimate", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		estimation := decode[models.MigrationEstimation](t, rec)
		assert.Equal(t, 3, estimation.TotalKeys)
		assert.Equal(t, 3, estimation.SampledKeys)
		assert.Equal(t, models.ConfidenceHigh, estimation.Confidence)
	})

	t.Run("explicit keys", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/migration/estimate", keysRequest{Keys: []string{"bg_1"}})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, decode[models.MigrationEstimation](t, rec).TotalKeys)
	})

	t.Run("invalid key", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/migration/estimate", keysRequest{Keys: []string{""}})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		body := decode[errorResponse](t, rec)
		assert.Equal(t, "validation", body.Kind)
		assert.Equal(t, "keys[0]", body.Field)
	})
}

func TestPreviewMigration(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.seed(t, "bg_1", "bg_2")

	rec := f.do(t, http.MethodPost, "/api/migration/preview", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	preview := decode[models.MigrationPreview](t, rec)
	assert.True(t, preview.CanProceed)
	assert.True(t, preview.Resources.QuotaKnown)
	assert.Equal(t, int64(1<<20), preview.Resources.StorageQuota)
}
