package migration

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/MKhiriev/go-sync-engine/internal/apperrors"
	"github.com/MKhiriev/go-sync-engine/internal/checksum"
	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/store"
	"github.com/MKhiriev/go-sync-engine/internal/utils"
	"github.com/MKhiriev/go-sync-engine/models"
)

// ResumeDataKey is where the checkpoint lives in the source store.
const ResumeDataKey = "migration_resume_data"

// ControlCallbacks are invoked synchronously, outside any internal lock.
// Nil callbacks are skipped.
type ControlCallbacks struct {
	OnPause          func(models.MigrationResumeData)
	OnResume         func(models.MigrationResumeData)
	OnCancel         func(reason string)
	OnCancelComplete func(models.CancellationResult)
}

// ControlManager owns the resumable checkpoint and the pause, resume and
// cancel protocol. It never moves data itself.
type ControlManager struct {
	source    store.KeyValueStore
	cfg       config.Migration
	checksum  *checksum.Service
	callbacks ControlCallbacks
	limiter   *slidingWindow
	ids       utils.IDGenerator
	now       func() time.Time
	logger    *logger.Logger

	mu                sync.Mutex
	state             models.ControlState
	cancelReason      string
	checkpointCounter int
	lastPersisted     time.Time
	sessionID         string
	startTime         int64
	idleScheduling    bool
}

// ControlOption customises a ControlManager.
type ControlOption func(*ControlManager)

// WithControlClock replaces time.Now.
func WithControlClock(now func() time.Time) ControlOption {
	return func(c *ControlManager) { c.now = now }
}

// WithControlIDGenerator replaces the UUIDv7 checkpoint id source.
func WithControlIDGenerator(g utils.IDGenerator) ControlOption {
	return func(c *ControlManager) { c.ids = g }
}

// NewControlManager keeps its checkpoint in source, the store being
// migrated from.
func NewControlManager(source store.KeyValueStore, cfg config.Migration, sum *checksum.Service,
	callbacks ControlCallbacks, log *logger.Logger, opts ...ControlOption) *ControlManager {
	c := &ControlManager{
		source:    source,
		cfg:       cfg,
		checksum:  sum,
		callbacks: callbacks,
		ids:       utils.NewUUIDGenerator(),
		now:       time.Now,
		logger:    log,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.limiter = newSlidingWindow(cfg.RateLimitWindow, cfg.RateLimitMaxOps, c.now)
	c.state = models.ControlState{
		CanPause:  !cfg.DisablePause,
		CanCancel: !cfg.DisableCancel,
	}
	return c
}

// State returns a snapshot of the control state.
func (c *ControlManager) State() models.ControlState {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	if s.ResumeData != nil {
		data := *s.ResumeData
		s.ResumeData = &data
	}
	return s
}

func (c *ControlManager) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.IsPaused
}

func (c *ControlManager) IsCancelling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.IsCancelling
}

// beginSession resets the per-run flags. A resumed session keeps its id.
func (c *ControlManager) beginSession(sessionID string, startTime int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessionID = sessionID
	c.startTime = startTime
	c.checkpointCounter = 0
	c.lastPersisted = time.Time{}
	c.cancelReason = ""
	c.state.IsPaused = false
	c.state.IsCancelling = false
	c.state.CanResume = false
	c.state.ResumeData = nil
}

// RequestPause asks the engine to pause at its next yield point. Pausing an
// already paused migration is a no-op.
func (c *ControlManager) RequestPause(_ context.Context) error {
	c.mu.Lock()
	if !c.state.CanPause {
		c.mu.Unlock()
		return ErrPauseDisabled
	}
	if c.state.IsPaused {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if !c.limiter.Allow() {
		return apperrors.New(apperrors.KindRateLimited, "ControlManager.RequestPause", "too many control requests")
	}

	c.markPaused()
	c.logger.Info().Str("func", "*ControlManager.RequestPause").Msg("pause requested")
	return nil
}

func (c *ControlManager) markPaused() {
	c.mu.Lock()
	c.state.IsPaused = true
	c.mu.Unlock()
}

// SavePauseState checkpoints progress and makes the migration resumable.
// A failed write (quota included) is logged and the in-memory checkpoint is
// still used for a resume within this process.
func (c *ControlManager) SavePauseState(ctx context.Context, progress models.MigrationProgress) error {
	data, err := c.buildResumeData(progress, true)
	if err != nil {
		return err
	}

	if err = c.persist(ctx, data); err != nil {
		c.logPersistError("*ControlManager.SavePauseState", err)
	}

	c.mu.Lock()
	c.state.IsPaused = true
	c.state.ResumeData = &data
	c.state.CanResume = !c.cfg.DisableResume
	c.lastPersisted = c.now()
	c.mu.Unlock()

	c.logger.Info().
		Str("func", "*ControlManager.SavePauseState").
		Str("checkpoint_id", data.CheckpointID).
		Int("items_processed", data.ItemsProcessed).
		Int("total_items", data.TotalItems).
		Msg("pause state saved")

	if c.callbacks.OnPause != nil {
		c.callbacks.OnPause(data)
	}
	return nil
}

// SaveCheckpoint persists a periodic checkpoint, at most once per
// PersistenceInterval. It reports whether a write happened.
func (c *ControlManager) SaveCheckpoint(ctx context.Context, progress models.MigrationProgress) (bool, error) {
	c.mu.Lock()
	due := c.lastPersisted.IsZero() || c.now().Sub(c.lastPersisted) >= c.cfg.PersistenceInterval
	c.mu.Unlock()
	if !due {
		return false, nil
	}

	data, err := c.buildResumeData(progress, false)
	if err != nil {
		return false, err
	}
	if err = c.persist(ctx, data); err != nil {
		c.logPersistError("*ControlManager.SaveCheckpoint", err)
		return false, nil
	}

	c.mu.Lock()
	c.lastPersisted = c.now()
	c.mu.Unlock()

	c.logger.Debug().
		Str("func", "*ControlManager.SaveCheckpoint").
		Str("checkpoint_id", data.CheckpointID).
		Int("items_processed", data.ItemsProcessed).
		Msg("checkpoint saved")
	return true, nil
}

// RequestResume returns the resumable checkpoint and clears it, or nil when
// nothing is resumable. A paused migration is unpaused either way.
func (c *ControlManager) RequestResume(ctx context.Context) (*models.MigrationResumeData, error) {
	if c.cfg.DisableResume {
		return nil, ErrResumeDisabled
	}
	if !c.limiter.Allow() {
		return nil, apperrors.New(apperrors.KindRateLimited, "ControlManager.RequestResume", "too many control requests")
	}
	return c.resume(ctx)
}

// ResumableCheckpoint unpauses an idle migration and returns the checkpoint
// the next run will continue from. The persisted record is kept for that run.
func (c *ControlManager) ResumableCheckpoint(ctx context.Context) (*models.MigrationResumeData, error) {
	if c.cfg.DisableResume {
		return nil, ErrResumeDisabled
	}
	if !c.limiter.Allow() {
		return nil, apperrors.New(apperrors.KindRateLimited, "ControlManager.ResumableCheckpoint", "too many control requests")
	}

	c.mu.Lock()
	c.state.IsPaused = false
	data := c.pendingLocked()
	c.mu.Unlock()

	if data == nil {
		loaded, err := c.LoadCheckpoint(ctx)
		if err != nil {
			return nil, err
		}
		data = loaded
	}
	if data != nil {
		c.logger.Info().
			Str("func", "*ControlManager.ResumableCheckpoint").
			Str("checkpoint_id", data.CheckpointID).
			Int("remaining_keys", len(data.RemainingKeys)).
			Msg("checkpoint kept for the next run")
	}
	return data, nil
}

// pendingResume returns a copy of the in-memory checkpoint of an interrupted
// run, or nil.
func (c *ControlManager) pendingResume() *models.MigrationResumeData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

func (c *ControlManager) pendingLocked() *models.MigrationResumeData {
	if !c.state.CanResume || c.state.ResumeData == nil {
		return nil
	}
	data := *c.state.ResumeData
	data.ProcessedKeys = slices.Clone(data.ProcessedKeys)
	data.RemainingKeys = slices.Clone(data.RemainingKeys)
	return &data
}

func (c *ControlManager) resume(ctx context.Context) (*models.MigrationResumeData, error) {
	c.mu.Lock()
	data := c.state.ResumeData
	canResume := c.state.CanResume
	c.state.IsPaused = false
	c.state.CanResume = false
	c.state.ResumeData = nil
	c.mu.Unlock()

	if !canResume || data == nil {
		loaded, err := c.LoadCheckpoint(ctx)
		if err != nil {
			return nil, err
		}
		data = loaded
	}
	if data == nil {
		return nil, nil
	}

	if err := c.source.Delete(ctx, ResumeDataKey); err != nil {
		c.logger.Err(err).Str("func", "*ControlManager.resume").Msg("error clearing persisted checkpoint")
	}

	c.logger.Info().
		Str("func", "*ControlManager.resume").
		Str("checkpoint_id", data.CheckpointID).
		Int("remaining_keys", len(data.RemainingKeys)).
		Msg("migration resumed")

	if c.callbacks.OnResume != nil {
		c.callbacks.OnResume(*data)
	}
	return data, nil
}

// RequestCancel marks the migration as cancelling. Repeated calls are no-ops.
func (c *ControlManager) RequestCancel(_ context.Context, reason string) error {
	c.mu.Lock()
	if !c.state.CanCancel {
		c.mu.Unlock()
		return ErrCancelDisabled
	}
	if c.state.IsCancelling {
		c.mu.Unlock()
		return nil
	}
	c.state.IsCancelling = true
	c.cancelReason = reason
	c.mu.Unlock()

	c.logger.Info().Str("func", "*ControlManager.RequestCancel").Str("reason", reason).Msg("cancellation requested")

	if c.callbacks.OnCancel != nil {
		c.callbacks.OnCancel(reason)
	}
	return nil
}

// CompleteCancellation reports how the cancelled run was wound down and
// resets the control flags.
func (c *ControlManager) CompleteCancellation(dataRolledBack, cleanupCompleted, backupRestored bool) models.CancellationResult {
	c.mu.Lock()
	result := models.CancellationResult{
		Reason:           c.cancelReason,
		DataRolledBack:   dataRolledBack,
		CleanupCompleted: cleanupCompleted,
		BackupRestored:   backupRestored,
		CompletedAt:      c.now().UnixMilli(),
	}
	c.state.IsCancelling = false
	c.state.IsPaused = false
	c.state.CanResume = false
	c.state.ResumeData = nil
	c.cancelReason = ""
	c.mu.Unlock()

	c.logger.Info().
		Str("func", "*ControlManager.CompleteCancellation").
		Str("reason", result.Reason).
		Bool("data_rolled_back", dataRolledBack).
		Bool("cleanup_completed", cleanupCompleted).
		Bool("backup_restored", backupRestored).
		Msg("cancellation completed")

	if c.callbacks.OnCancelComplete != nil {
		c.callbacks.OnCancelComplete(result)
	}
	return result
}

// ShouldCreateCheckpoint returns true on every CheckpointInterval-th call.
func (c *ControlManager) ShouldCreateCheckpoint() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.CheckpointInterval <= 0 {
		return false
	}
	c.checkpointCounter++
	return c.checkpointCounter%c.cfg.CheckpointInterval == 0
}
