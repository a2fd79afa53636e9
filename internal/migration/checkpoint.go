package migration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-sync-engine/internal/apperrors"
	"github.com/MKhiriev/go-sync-engine/internal/store"
	"github.com/MKhiriev/go-sync-engine/models"
)

func (c *ControlManager) buildResumeData(progress models.MigrationProgress, paused bool) (models.MigrationResumeData, error) {
	now := c.now().UnixMilli()

	c.mu.Lock()
	data := models.MigrationResumeData{
		LastProcessedKey:    progress.LastKey,
		ProcessedKeys:       append([]string(nil), progress.ProcessedKeys...),
		RemainingKeys:       append([]string(nil), progress.RemainingKeys...),
		ItemsProcessed:      progress.ItemsProcessed,
		TotalItems:          progress.TotalItems,
		BytesProcessed:      progress.BytesProcessed,
		TotalBytes:          progress.TotalBytes,
		CheckpointID:        c.ids.Generate(),
		CheckpointTimestamp: now,
		SessionID:           c.sessionID,
		StartTime:           c.startTime,
	}
	c.mu.Unlock()

	if paused {
		data.PauseTime = now
	}

	sum, err := c.checksum.Compute(data.WithoutChecksum())
	if err != nil {
		return models.MigrationResumeData{}, fmt.Errorf("error computing checkpoint checksum: %w", err)
	}
	data.Checksum = sum
	return data, nil
}

func (c *ControlManager) persist(ctx context.Context, data models.MigrationResumeData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("error encoding checkpoint: %w", err)
	}
	return c.source.Set(ctx, ResumeDataKey, raw)
}

func (c *ControlManager) logPersistError(fn string, err error) {
	event := c.logger.Error()
	if apperrors.Is(err, apperrors.KindQuotaExceeded) || errors.Is(err, store.ErrQuotaExceeded) {
		event = c.logger.Warn()
	}
	event.Err(err).Str("func", fn).Msg("checkpoint not persisted; keeping it in memory")
}

// LoadCheckpoint returns the persisted checkpoint without clearing it, or nil
// when there is none. A checkpoint failing its checksum is deleted and
// reported as nil. One without a checksum predates checksumming and is
// accepted unverified.
func (c *ControlManager) LoadCheckpoint(ctx context.Context) (*models.MigrationResumeData, error) {
	raw, err := c.source.Get(ctx, ResumeDataKey)
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading checkpoint: %w", err)
	}

	var data models.MigrationResumeData
	if err = json.Unmarshal(raw, &data); err != nil {
		c.discard(ctx, apperrors.Wrap(apperrors.KindCheckpointCorrupt, "ControlManager.LoadCheckpoint", err))
		return nil, nil
	}

	if data.Checksum == "" {
		c.logger.Warn().
			Str("func", "*ControlManager.LoadCheckpoint").
			Str("checkpoint_id", data.CheckpointID).
			Msg("unverified checkpoint without checksum accepted")
		return &data, nil
	}

	ok, err := c.checksum.Verify(data.WithoutChecksum(), data.Checksum)
	if err != nil || !ok {
		if err == nil {
			err = errors.New("checksum mismatch")
		}
		c.discard(ctx, apperrors.Wrap(apperrors.KindCheckpointCorrupt, "ControlManager.LoadCheckpoint", err))
		return nil, nil
	}
	return &data, nil
}

func (c *ControlManager) discard(ctx context.Context, cause error) {
	c.logger.Warn().Err(cause).Str("func", "*ControlManager.discard").Msg("discarding corrupt checkpoint")
	if err := c.source.Delete(ctx, ResumeDataKey); err != nil {
		c.logger.Err(err).Str("func", "*ControlManager.discard").Msg("error deleting corrupt checkpoint")
	}
}

// ClearCheckpoint forgets the checkpoint in memory and in the store.
func (c *ControlManager) ClearCheckpoint(ctx context.Context) error {
	c.mu.Lock()
	c.state.CanResume = false
	c.state.ResumeData = nil
	c.mu.Unlock()

	if err := c.source.Delete(ctx, ResumeDataKey); err != nil {
		return fmt.Errorf("error clearing checkpoint: %w", err)
	}
	return nil
}
