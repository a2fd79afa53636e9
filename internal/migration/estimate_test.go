package migration

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-sync-engine/internal/apperrors"
	"github.com/MKhiriev/go-sync-engine/internal/store"
	"github.com/MKhiriev/go-sync-engine/models"
)

func seedUniform(t *testing.T, kv store.KeyValueStore, n int, prefix string, size int) []string {
	t.Helper()
	keys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("%s_%04d", prefix, i)
		require.NoError(t, kv.Set(context.Background(), key, []byte(strings.Repeat("x", size))))
		keys = append(keys, key)
	}
	return keys
}

func TestEstimateMigration_Validation(t *testing.T) {
	cfg := testMigrationConfig()
	cfg.MaxEstimateKeys = 3
	cfg.MaxKeyLength = 8
	c := newTestControl(t, store.NewMemoryStore(0), cfg, ControlCallbacks{})

	tests := []struct {
		name  string
		keys  []string
		field string
	}{
		{name: "empty", keys: nil, field: "keys"},
		{name: "too many", keys: []string{"a", "b", "c", "d"}, field: "keys"},
		{name: "blank key", keys: []string{"a", ""}, field: "keys[1]"},
		{name: "long key", keys: []string{"abcdefghi"}, field: "keys[0]"},
		{name: "control character", keys: []string{"a\x00b"}, field: "keys[0]"},
		{name: "newline", keys: []string{"ok", "a\nb"}, field: "keys[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.EstimateMigration(context.Background(), tt.keys)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.KindValidation))
			assert.Equal(t, tt.field, apperrors.FieldOf(err))

			_, err = c.PreviewMigration(context.Background(), tt.keys, store.NewMemoryStore(0))
			assert.True(t, apperrors.Is(err, apperrors.KindValidation))
		})
	}
}

func TestEstimateMigration_Extrapolates(t *testing.T) {
	source := store.NewMemoryStore(0)
	keys := seedUniform(t, source, 200, "bg", 95)

	cfg := testMigrationConfig()
	cfg.DryRunSampleSize = 20
	c := newTestControl(t, source, cfg, ControlCallbacks{})

	est, err := c.EstimateMigration(context.Background(), keys)
	require.NoError(t, err)

	// every item is "bg_NNNN" (7 bytes) plus 95 bytes of value
	assert.Equal(t, 200, est.TotalKeys)
	assert.Equal(t, 20, est.SampledKeys)
	assert.Equal(t, int64(102), est.AverageItemBytes)
	assert.Equal(t, int64(102*200), est.EstimatedBytes)
	assert.Equal(t, int64(102), est.LargestItemBytes)
	assert.Equal(t, map[string]int{"bg": 200}, est.Categories)
	assert.Equal(t, models.ConfidenceMedium, est.Confidence)
	assert.False(t, est.SamplingCutShort)
}

func TestEstimateMigration_StratifiedAcrossCategories(t *testing.T) {
	source := store.NewMemoryStore(0)
	keys := seedUniform(t, source, 100, "big", 10)
	keys = append(keys, seedUniform(t, source, 1, "settings", 10)...)
	keys = append(keys, seedUniform(t, source, 2, "roster", 10)...)

	sampled := stratify(groupByCategory(keys), 10)

	perCategory := make(map[string]int)
	for _, key := range sampled {
		perCategory[Category(key)]++
	}
	assert.Equal(t, 1, perCategory["settings"], "small categories are represented")
	assert.Equal(t, 1, perCategory["roster"])
	assert.Equal(t, 10, perCategory["big"])
}

func TestEstimateMigration_FullSampleIsHighConfidence(t *testing.T) {
	source := store.NewMemoryStore(0)
	keys := seedUniform(t, source, 10, "k", 1)

	c := newTestControl(t, source, testMigrationConfig(), ControlCallbacks{})
	est, err := c.EstimateMigration(context.Background(), keys)
	require.NoError(t, err)
	assert.Equal(t, 10, est.SampledKeys)
	assert.Equal(t, models.ConfidenceHigh, est.Confidence)
}

func TestEstimateMigration_MissingKeysAreSkipped(t *testing.T) {
	c := newTestControl(t, store.NewMemoryStore(0), testMigrationConfig(), ControlCallbacks{})

	est, err := c.EstimateMigration(context.Background(), []string{"ghost_1", "ghost_2"})
	require.NoError(t, err)
	assert.Zero(t, est.SampledKeys)
	assert.Zero(t, est.EstimatedBytes)
	assert.Equal(t, models.ConfidenceLow, est.Confidence)
}

func TestEstimateMigration_TimeBudgetCutsShort(t *testing.T) {
	source := store.NewMemoryStore(0)
	keys := seedUniform(t, source, 50, "k", 1)

	cfg := testMigrationConfig()
	cfg.SampleTimeBudget = -1
	c := newTestControl(t, source, cfg, ControlCallbacks{})

	est, err := c.EstimateMigration(context.Background(), keys)
	require.NoError(t, err)
	assert.True(t, est.SamplingCutShort)
	assert.Equal(t, models.ConfidenceLow, est.Confidence)
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, models.ConfidenceLow, confidence(0, 10, false))
	assert.Equal(t, models.ConfidenceHigh, confidence(5, 10, false))
	assert.Equal(t, models.ConfidenceMedium, confidence(5, 10, true))
	assert.Equal(t, models.ConfidenceMedium, confidence(10, 100, false))
	assert.Equal(t, models.ConfidenceMedium, confidence(30, 10000, false))
	assert.Equal(t, models.ConfidenceLow, confidence(30, 10000, true))
	assert.Equal(t, models.ConfidenceLow, confidence(5, 10000, false))
}

func TestPreviewMigration(t *testing.T) {
	source := store.NewMemoryStore(0)
	keys := seedUniform(t, source, 5, "bg", 10)
	keys = append(keys, seedUniform(t, source, 1, "huge", 2048)...)

	cfg := testMigrationConfig()
	cfg.LargeItemThreshold = 1024
	c := newTestControl(t, source, cfg, ControlCallbacks{})

	t.Run("enough room", func(t *testing.T) {
		preview, err := c.PreviewMigration(context.Background(), keys, store.NewMemoryStore(1<<20))
		require.NoError(t, err)

		assert.True(t, preview.CanProceed)
		assert.Equal(t, []string{"huge_0000"}, preview.LargeItems)
		assert.True(t, preview.Resources.QuotaKnown)
		assert.Equal(t, int64(1<<20), preview.Resources.StorageHeadroom)
		assert.True(t, preview.Capabilities.ConditionalWrites)
		assert.True(t, preview.Capabilities.QuotaReporting)
		assert.True(t, preview.Capabilities.KeyEnumeration)
		assert.False(t, preview.Capabilities.IdleScheduling)
		assert.NotEmpty(t, preview.Warnings, "large item warning")
	})

	t.Run("quota too small", func(t *testing.T) {
		preview, err := c.PreviewMigration(context.Background(), keys, store.NewMemoryStore(100))
		require.NoError(t, err, "resource findings never fail the preview")

		assert.False(t, preview.CanProceed)
		assert.Contains(t, strings.Join(preview.Warnings, "\n"), "bytes free")
	})

	t.Run("target without optional capabilities", func(t *testing.T) {
		preview, err := c.PreviewMigration(context.Background(), keys, plainTarget{store.NewMemoryStore(0)})
		require.NoError(t, err)

		assert.True(t, preview.CanProceed)
		assert.False(t, preview.Resources.QuotaKnown)
		assert.False(t, preview.Capabilities.ConditionalWrites)
		assert.False(t, preview.Capabilities.QuotaReporting)
	})
}

type plainTarget struct {
	store.KeyValueStore
}
