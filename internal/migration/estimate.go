package migration

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/MKhiriev/go-sync-engine/internal/apperrors"
	"github.com/MKhiriev/go-sync-engine/internal/store"
	"github.com/MKhiriev/go-sync-engine/models"
)

const memoryPressureHigh = 0.8

type sample struct {
	estimation models.MigrationEstimation
	largeItems []string
}

// EstimateMigration extrapolates size and duration of migrating keys from a
// stratified random sample read from the source store.
func (c *ControlManager) EstimateMigration(ctx context.Context, keys []string) (models.MigrationEstimation, error) {
	s, err := c.sample(ctx, "ControlManager.EstimateMigration", keys)
	if err != nil {
		return models.MigrationEstimation{}, err
	}
	return s.estimation, nil
}

// PreviewMigration is a dry run: the estimate plus resource and capability
// probes against target. Findings are reported as warnings; only invalid
// input fails the call.
func (c *ControlManager) PreviewMigration(ctx context.Context, keys []string, target store.KeyValueStore) (models.MigrationPreview, error) {
	s, err := c.sample(ctx, "ControlManager.PreviewMigration", keys)
	if err != nil {
		return models.MigrationPreview{}, err
	}

	preview := models.MigrationPreview{
		Estimation: s.estimation,
		LargeItems: s.largeItems,
		CanProceed: true,
	}

	_, conditional := target.(store.ConditionalStore)
	quota, quotaReporting := target.(store.QuotaReporter)

	c.mu.Lock()
	idle := c.idleScheduling
	c.mu.Unlock()

	preview.Capabilities = models.PlatformCapabilities{
		KeyEnumeration:    true,
		ConditionalWrites: conditional,
		QuotaReporting:    quotaReporting,
		IdleScheduling:    idle,
	}

	if quotaReporting {
		used, limit, err := quota.Usage(ctx)
		switch {
		case err != nil:
			c.logger.Err(err).Str("func", "*ControlManager.PreviewMigration").Msg("error probing storage quota")
			preview.Warnings = append(preview.Warnings, "storage quota could not be determined")
		case limit > 0:
			preview.Resources.QuotaKnown = true
			preview.Resources.StorageUsed = used
			preview.Resources.StorageQuota = limit
			preview.Resources.StorageHeadroom = limit - used
		}
	}
	if preview.Resources.QuotaKnown && preview.Resources.StorageHeadroom < s.estimation.EstimatedBytes {
		preview.CanProceed = false
		preview.Warnings = append(preview.Warnings, fmt.Sprintf(
			"target has %d bytes free but about %d bytes are needed",
			preview.Resources.StorageHeadroom, s.estimation.EstimatedBytes))
	}

	preview.Resources.MemoryPressure = memoryPressure()
	preview.Resources.MemoryHigh = preview.Resources.MemoryPressure >= memoryPressureHigh
	if preview.Resources.MemoryHigh {
		preview.Warnings = append(preview.Warnings, fmt.Sprintf("memory pressure is high (%.0f%%)", preview.Resources.MemoryPressure*100))
	}

	if len(s.largeItems) > 0 {
		preview.Warnings = append(preview.Warnings, fmt.Sprintf(
			"%d sampled items exceed %d bytes", len(s.largeItems), c.cfg.LargeItemThreshold))
	}
	if s.estimation.SamplingCutShort {
		preview.Warnings = append(preview.Warnings, "sampling was cut short; the estimate is rough")
	}
	if s.estimation.Confidence == models.ConfidenceLow {
		preview.Warnings = append(preview.Warnings, "estimate confidence is low")
	}

	return preview, nil
}

func (c *ControlManager) sample(ctx context.Context, op string, keys []string) (sample, error) {
	if err := c.validateKeys(op, keys); err != nil {
		return sample{}, err
	}

	groups := groupByCategory(keys)
	picked := stratify(groups, min(c.cfg.DryRunSampleSize, len(keys)))

	est := models.MigrationEstimation{
		TotalKeys:  len(keys),
		Categories: make(map[string]int, len(groups)),
	}
	for category, members := range groups {
		est.Categories[category] = len(members)
	}

	var (
		largeItems []string
		totalBytes int64
		totalTime  time.Duration
		begin      = time.Now()
	)
	for _, key := range picked {
		if time.Since(begin) > c.cfg.SampleTimeBudget || ctx.Err() != nil {
			est.SamplingCutShort = true
			break
		}

		readStart := time.Now()
		value, err := c.source.Get(ctx, key)
		elapsed := time.Since(readStart)
		if err != nil {
			if !errors.Is(err, store.ErrKeyNotFound) {
				c.logger.Err(err).Str("func", "*ControlManager.sample").Str("key", key).Msg("error sampling key")
			}
			continue
		}

		size := int64(len(key) + len(value))
		est.SampledKeys++
		totalBytes += size
		totalTime += elapsed
		if size > est.LargestItemBytes {
			est.LargestItemBytes = size
			est.LargestItemKey = key
		}
		if c.cfg.LargeItemThreshold > 0 && size > c.cfg.LargeItemThreshold {
			largeItems = append(largeItems, key)
		}
	}

	if est.SampledKeys > 0 {
		est.AverageItemBytes = totalBytes / int64(est.SampledKeys)
		est.AverageItemTime = totalTime / time.Duration(est.SampledKeys)
		est.EstimatedBytes = est.AverageItemBytes * int64(est.TotalKeys)
		est.EstimatedDuration = est.AverageItemTime * time.Duration(est.TotalKeys)
	}
	est.Confidence = confidence(est.SampledKeys, est.TotalKeys, est.SamplingCutShort)

	c.logger.Debug().
		Str("func", "*ControlManager.sample").
		Int("total_keys", est.TotalKeys).
		Int("sampled_keys", est.SampledKeys).
		Int64("estimated_bytes", est.EstimatedBytes).
		Str("confidence", string(est.Confidence)).
		Msg("migration estimated")

	return sample{estimation: est, largeItems: largeItems}, nil
}

func (c *ControlManager) validateKeys(op string, keys []string) error {
	if len(keys) == 0 {
		return apperrors.Validation(op, "keys", "must not be empty")
	}
	if len(keys) > c.cfg.MaxEstimateKeys {
		return apperrors.Validation(op, "keys", fmt.Sprintf("at most %d keys are allowed, got %d", c.cfg.MaxEstimateKeys, len(keys)))
	}

	for i, key := range keys {
		field := fmt.Sprintf("keys[%d]", i)
		switch {
		case key == "":
			return apperrors.Validation(op, field, "must not be empty")
		case len(key) > c.cfg.MaxKeyLength:
			return apperrors.Validation(op, field, fmt.Sprintf("longer than %d bytes", c.cfg.MaxKeyLength))
		case strings.IndexFunc(key, unicode.IsControl) >= 0:
			return apperrors.Validation(op, field, "contains control characters")
		}
	}
	return nil
}

// Category is the data category of key: everything before the first
// separator, or the whole key.
func Category(key string) string {
	if i := strings.IndexAny(key, "_:-./"); i > 0 {
		return key[:i]
	}
	return key
}

func groupByCategory(keys []string) map[string][]string {
	groups := make(map[string][]string)
	for _, key := range keys {
		category := Category(key)
		groups[category] = append(groups[category], key)
	}
	return groups
}

// stratify draws about n keys, each category contributing in proportion to
// its size and at least one key.
func stratify(groups map[string][]string, n int) []string {
	total := 0
	categories := make([]string, 0, len(groups))
	for category, members := range groups {
		total += len(members)
		categories = append(categories, category)
	}
	sort.Strings(categories)

	picked := make([]string, 0, n)
	for _, category := range categories {
		members := groups[category]
		quota := int(math.Round(float64(n) * float64(len(members)) / float64(total)))
		quota = max(1, min(quota, len(members)))

		for _, i := range rand.Perm(len(members))[:quota] {
			picked = append(picked, members[i])
		}
	}

	rand.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	return picked
}

func confidence(sampled, total int, cutShort bool) models.Confidence {
	if sampled == 0 || total == 0 {
		return models.ConfidenceLow
	}

	levels := []models.Confidence{models.ConfidenceLow, models.ConfidenceMedium, models.ConfidenceHigh}
	ratio := float64(sampled) / float64(total)

	level := 0
	switch {
	case ratio >= 0.5:
		level = 2
	case ratio >= 0.1 || sampled >= 30:
		level = 1
	}
	if cutShort && level > 0 {
		level--
	}
	return levels[level]
}

// memoryPressure is heap in use relative to the soft memory limit, or to
// memory obtained from the OS when no limit is set.
func memoryPressure() float64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	limit := debug.SetMemoryLimit(-1)
	if limit <= 0 || limit == math.MaxInt64 {
		if ms.Sys == 0 {
			return 0
		}
		return float64(ms.HeapInuse) / float64(ms.Sys)
	}
	return float64(ms.HeapInuse) / float64(limit)
}
