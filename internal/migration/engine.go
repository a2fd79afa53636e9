package migration

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/MKhiriev/go-sync-engine/internal/apperrors"
	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/lock"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/store"
	"github.com/MKhiriev/go-sync-engine/internal/utils"
	"github.com/MKhiriev/go-sync-engine/models"
)

const (
	lockOperation    = "migration"
	durationWindow   = 20
	releaseTimeout   = 5 * time.Second
	defaultTickDelay = time.Millisecond
)

// reservedKeys are bookkeeping records living in the source store.
var reservedKeys = []string{ResumeDataKey, lock.LockKey, lock.HeartbeatKey}

// EngineCallbacks are invoked from the goroutine running Start. Nil
// callbacks are skipped.
type EngineCallbacks struct {
	OnPhaseChange func(from, to models.MigrationPhase)
	OnProgress    func(models.MigrationStatus)
	OnError       func(error)
	OnComplete    func(models.MigrationResult)
}

// Engine moves every key from source to target. Critical keys go first and
// synchronously, the rest in short ticks that yield to the host. Pause,
// resume and cancel are observed between keys only.
type Engine struct {
	source    store.KeyValueStore
	target    store.KeyValueStore
	mutex     Locker
	control   *ControlManager
	cfg       config.Migration
	idle      IdleScheduler
	callbacks EngineCallbacks
	retryable map[apperrors.Kind]struct{}
	ids       utils.IDGenerator
	logger    *logger.Logger

	wake chan struct{}

	mu         sync.Mutex
	running    bool
	phase      models.MigrationPhase
	processed  int
	total      int
	errorCount int
	hidden     bool
	autoPaused bool
	durations  []time.Duration
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithIdleScheduler lets background ticks wait for idle time instead of a
// fixed delay. It is ignored when idle processing is disabled.
func WithIdleScheduler(s IdleScheduler) EngineOption {
	return func(e *Engine) { e.idle = s }
}

// WithEngineIDGenerator replaces the UUIDv7 session id source.
func WithEngineIDGenerator(g utils.IDGenerator) EngineOption {
	return func(e *Engine) { e.ids = g }
}

// NewEngine wires an engine. control must be built over the same source store.
func NewEngine(source, target store.KeyValueStore, mutex Locker, control *ControlManager,
	cfg config.Migration, callbacks EngineCallbacks, log *logger.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		source:    source,
		target:    target,
		mutex:     mutex,
		control:   control,
		cfg:       cfg,
		callbacks: callbacks,
		retryable: make(map[apperrors.Kind]struct{}, len(cfg.RetryableErrors)),
		ids:       utils.NewUUIDGenerator(),
		logger:    log,
		wake:      make(chan struct{}, 1),
		phase:     models.PhaseIdle,
	}
	for _, name := range cfg.RetryableErrors {
		if kind, ok := apperrors.ParseKind(name); ok {
			e.retryable[kind] = struct{}{}
		}
	}
	for _, opt := range opts {
		opt(e)
	}
	if cfg.DisableIdleProcessing {
		e.idle = nil
	}

	control.mu.Lock()
	control.idleScheduling = e.idle != nil
	control.mu.Unlock()

	return e
}

// run is the state of one Start call.
type run struct {
	keys      []string
	done      map[string]struct{}
	lastKey   string
	bytes     int64
	result    models.MigrationResult
	startedAt time.Time
}

func (r *run) progress(total int) models.MigrationProgress {
	processed := make([]string, 0, len(r.done))
	remaining := make([]string, 0, len(r.keys)-len(r.done))
	for _, key := range r.keys {
		if _, ok := r.done[key]; ok {
			processed = append(processed, key)
		} else {
			remaining = append(remaining, key)
		}
	}
	return models.MigrationProgress{
		LastKey:        r.lastKey,
		ProcessedKeys:  processed,
		RemainingKeys:  remaining,
		ItemsProcessed: len(r.done),
		TotalItems:     total,
		BytesProcessed: r.bytes,
	}
}

// Start runs a migration to completion, cancellation or failure. It refuses
// to start without the instance lock. A checkpoint left by an interrupted
// run is resumed. Cancelling ctx stops at the next key and leaves a
// resumable checkpoint behind.
func (e *Engine) Start(ctx context.Context) (models.MigrationResult, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return models.MigrationResult{}, ErrEngineRunning
	}
	e.running = true
	e.processed, e.total, e.errorCount = 0, 0, 0
	e.durations = e.durations[:0]
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	r := &run{done: make(map[string]struct{}), startedAt: time.Now()}
	e.setPhase(models.PhaseInitializing)

	if !e.mutex.Acquire(ctx, lockOperation) {
		return r.result, e.fail(r, "", apperrors.New(apperrors.KindLockAcquisition, "Engine.Start", "migration lock is held by another instance"))
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := e.mutex.Release(releaseCtx); err != nil {
			e.logger.Err(err).Str("func", "*Engine.Start").Msg("error releasing migration lock")
		}
	}()

	checkpoint, err := e.control.LoadCheckpoint(ctx)
	if err != nil {
		e.logger.Err(err).Str("func", "*Engine.Start").Msg("checkpoint unavailable; starting over")
	}
	if checkpoint == nil {
		checkpoint = e.control.pendingResume()
	}

	r.result.SessionID = e.ids.Generate()
	startTime := time.Now().UnixMilli()
	if checkpoint != nil {
		r.result.Resumed = true
		if checkpoint.SessionID != "" {
			r.result.SessionID = checkpoint.SessionID
		}
		if checkpoint.StartTime > 0 {
			startTime = checkpoint.StartTime
		}
		r.bytes = checkpoint.BytesProcessed
	}
	r.result.Phase = models.PhaseInitializing
	e.control.beginSession(r.result.SessionID, startTime)

	e.setPhase(models.PhaseClassifying)
	if r.keys, err = e.Keys(ctx); err != nil {
		return r.result, e.fail(r, "", err)
	}

	if checkpoint != nil {
		for _, key := range checkpoint.ProcessedKeys {
			if slices.Contains(r.keys, key) {
				r.done[key] = struct{}{}
			}
		}
		r.lastKey = checkpoint.LastProcessedKey
	}

	classes := ClassifyKeys(r.keys, e.cfg.CriticalPrefixes, e.cfg.CurrentGameID)
	r.result.CriticalKeys = len(classes.Critical)
	r.result.BackgroundKeys = len(classes.Background)
	r.result.TotalItems = len(r.keys)

	e.mu.Lock()
	e.total = len(r.keys)
	e.processed = len(r.done)
	e.mu.Unlock()

	e.logger.Info().
		Str("func", "*Engine.Start").
		Str("session_id", r.result.SessionID).
		Bool("resumed", r.result.Resumed).
		Int("critical_keys", len(classes.Critical)).
		Int("background_keys", len(classes.Background)).
		Int("already_processed", len(r.done)).
		Msg("keys classified")

	e.setPhase(models.PhaseCritical)
	for _, key := range classes.Critical {
		if _, ok := r.done[key]; ok {
			continue
		}
		if e.control.IsCancelling() {
			return e.cancel(ctx, r)
		}
		if ctx.Err() != nil {
			return e.interrupt(ctx, r)
		}
		if !e.mutex.IsHeld() {
			return e.lockLost(ctx, r)
		}

		if err = e.migrateKey(ctx, r, key); err != nil {
			if ctx.Err() != nil {
				return e.interrupt(ctx, r)
			}
			return r.result, e.fail(r, key, err)
		}
	}

	e.setPhase(models.PhaseBackground)
	if result, stop, err := e.runBackground(ctx, r, classes.Background); stop {
		return result, err
	}

	e.setPhase(models.PhaseCompleting)
	if err = e.control.ClearCheckpoint(context.WithoutCancel(ctx)); err != nil {
		e.logger.Err(err).Str("func", "*Engine.Start").Msg("error clearing checkpoint")
	}
	e.setPhase(models.PhaseCompleted)

	r.result.Phase = models.PhaseCompleted
	r.result.ItemsProcessed = len(r.done)
	r.result.BytesProcessed = r.bytes
	r.result.Duration = time.Since(r.startedAt)

	e.logger.Info().
		Str("func", "*Engine.Start").
		Str("session_id", r.result.SessionID).
		Int("items_processed", r.result.ItemsProcessed).
		Int("failed_keys", len(r.result.FailedKeys)).
		Dur("duration", r.result.Duration).
		Msg("migration completed")

	if e.callbacks.OnComplete != nil {
		e.callbacks.OnComplete(r.result)
	}
	return r.result, nil
}

// Keys lists the source keys a migration would move, bookkeeping records
// excluded.
func (e *Engine) Keys(ctx context.Context) ([]string, error) {
	keys, err := e.source.Keys(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(keys, func(k string) bool { return slices.Contains(reservedKeys, k) }), nil
}

// Target returns the store keys are migrated to.
func (e *Engine) Target() store.KeyValueStore {
	return e.target
}

// runBackground migrates keys in ticks of at most TickBudget. stop is set
// when the run ended early and result/err must be returned as is.
func (e *Engine) runBackground(ctx context.Context, r *run, keys []string) (models.MigrationResult, bool, error) {
	budget := e.cfg.TickBudget
	tickStart := time.Now()

	for _, key := range keys {
		if _, ok := r.done[key]; ok {
			continue
		}

		if result, stop, err := e.yieldPoint(ctx, r); stop {
			return result, true, err
		}

		if e.throttled() {
			if err := sleep(ctx, e.cfg.HiddenThrottleDelay); err != nil {
				return e.interruptStop(ctx, r)
			}
		}

		if err := e.migrateKey(ctx, r, key); err != nil {
			if ctx.Err() != nil {
				return e.interruptStop(ctx, r)
			}
			r.result.FailedKeys = append(r.result.FailedKeys, models.KeyFailure{
				Key:      key,
				Attempts: attemptsOf(err),
				Error:    err.Error(),
			})
			e.logger.Warn().Err(err).Str("func", "*Engine.runBackground").Str("key", key).Msg("background key failed; continuing")
			if e.callbacks.OnError != nil {
				e.callbacks.OnError(err)
			}
		}

		if e.control.ShouldCreateCheckpoint() {
			if _, err := e.control.SaveCheckpoint(ctx, e.progress(r)); err != nil {
				e.logger.Err(err).Str("func", "*Engine.runBackground").Msg("error creating checkpoint")
			}
		}

		if time.Since(tickStart) >= budget {
			next, err := e.yieldTick(ctx)
			if err != nil {
				return e.interruptStop(ctx, r)
			}
			budget = next
			tickStart = time.Now()
		}
	}

	// signals that arrived during the last key
	return e.yieldPoint(ctx, r)
}

// yieldPoint handles cancel and pause between two keys.
func (e *Engine) yieldPoint(ctx context.Context, r *run) (models.MigrationResult, bool, error) {
	for {
		if e.control.IsCancelling() {
			result, err := e.cancel(ctx, r)
			return result, true, err
		}
		if ctx.Err() != nil {
			return e.interruptStop(ctx, r)
		}
		if !e.mutex.IsHeld() {
			result, err := e.lockLost(ctx, r)
			return result, true, err
		}
		if !e.control.IsPaused() {
			return models.MigrationResult{}, false, nil
		}

		if err := e.control.SavePauseState(ctx, e.progress(r)); err != nil {
			e.logger.Err(err).Str("func", "*Engine.yieldPoint").Msg("error saving pause state")
		}
		e.setPhase(models.PhasePaused)

		for e.control.IsPaused() && !e.control.IsCancelling() {
			select {
			case <-ctx.Done():
				return e.interruptStop(ctx, r)
			case <-e.wake:
			}
		}

		if !e.control.IsCancelling() {
			e.setPhase(models.PhaseBackground)
		}
	}
}

// yieldTick gives the host a break between ticks and returns the next
// tick's budget.
func (e *Engine) yieldTick(ctx context.Context) (time.Duration, error) {
	if e.idle != nil {
		budget, err := e.idle.WaitIdle(ctx)
		if err != nil {
			return 0, err
		}
		if budget <= 0 || budget > e.cfg.TickBudget {
			budget = e.cfg.TickBudget
		}
		return budget, nil
	}

	delay := e.cfg.TickDelay
	if delay <= 0 {
		delay = defaultTickDelay
	}
	return e.cfg.TickBudget, sleep(ctx, delay)
}

func (e *Engine) migrateKey(ctx context.Context, r *run, key string) error {
	start := time.Now()
	var size int64

	attempts, err := e.withRetry(ctx, key, func(ctx context.Context) error {
		value, err := e.source.Get(ctx, key)
		if errors.Is(err, store.ErrKeyNotFound) {
			// deleted since enumeration
			size = 0
			return nil
		}
		if err != nil {
			return err
		}
		if err = e.target.Set(ctx, key, value); err != nil {
			return err
		}
		size = int64(len(value))
		return nil
	})
	if err != nil {
		e.mu.Lock()
		e.errorCount++
		e.mu.Unlock()
		return &keyError{attempts: attempts, err: err}
	}

	r.done[key] = struct{}{}
	r.lastKey = key
	r.bytes += size

	e.mu.Lock()
	e.processed = len(r.done)
	e.durations = append(e.durations, time.Since(start))
	if len(e.durations) > durationWindow {
		e.durations = e.durations[len(e.durations)-durationWindow:]
	}
	e.mu.Unlock()

	if e.callbacks.OnProgress != nil {
		e.callbacks.OnProgress(e.Status())
	}
	return nil
}

func (e *Engine) progress(r *run) models.MigrationProgress {
	e.mu.Lock()
	total := e.total
	e.mu.Unlock()
	return r.progress(total)
}

// cancel winds the run down after a cancellation request. Keys already
// written stay written.
func (e *Engine) cancel(ctx context.Context, r *run) (models.MigrationResult, error) {
	cleanupCtx := context.WithoutCancel(ctx)
	cleaned := e.control.ClearCheckpoint(cleanupCtx) == nil

	e.setPhase(models.PhaseCancelled)
	cancellation := e.control.CompleteCancellation(false, cleaned, false)

	r.result.Phase = models.PhaseCancelled
	r.result.ItemsProcessed = len(r.done)
	r.result.BytesProcessed = r.bytes
	r.result.Duration = time.Since(r.startedAt)

	e.logger.Info().
		Str("func", "*Engine.cancel").
		Str("session_id", r.result.SessionID).
		Str("reason", cancellation.Reason).
		Int("items_processed", r.result.ItemsProcessed).
		Msg("migration cancelled")

	if e.callbacks.OnComplete != nil {
		e.callbacks.OnComplete(r.result)
	}
	return r.result, nil
}

// interrupt handles ctx cancellation: progress is checkpointed as a pause so
// the next Start resumes it.
func (e *Engine) interrupt(ctx context.Context, r *run) (models.MigrationResult, error) {
	if err := e.control.SavePauseState(context.WithoutCancel(ctx), e.progress(r)); err != nil {
		e.logger.Err(err).Str("func", "*Engine.interrupt").Msg("error saving pause state")
	}
	e.setPhase(models.PhasePaused)

	r.result.Phase = models.PhasePaused
	r.result.ItemsProcessed = len(r.done)
	r.result.BytesProcessed = r.bytes
	r.result.Duration = time.Since(r.startedAt)
	return r.result, apperrors.Wrap(apperrors.KindCancelled, "Engine.Start", ctx.Err())
}

func (e *Engine) interruptStop(ctx context.Context, r *run) (models.MigrationResult, bool, error) {
	result, err := e.interrupt(ctx, r)
	return result, true, err
}

// lockLost stops a run whose lock another instance took over. Progress is
// checkpointed as a pause so the run can be resumed once the lock is free.
func (e *Engine) lockLost(ctx context.Context, r *run) (models.MigrationResult, error) {
	if err := e.control.SavePauseState(context.WithoutCancel(ctx), e.progress(r)); err != nil {
		e.logger.Err(err).Str("func", "*Engine.lockLost").Msg("error saving pause state")
	}
	return r.result, e.fail(r, "", apperrors.New(apperrors.KindLockAcquisition, "Engine.Start", "migration lock was taken over by another instance"))
}

// fail ends the run in the failed phase and reports err.
func (e *Engine) fail(r *run, key string, err error) error {
	e.mu.Lock()
	phase := e.phase
	e.mu.Unlock()

	var ke *keyError
	if errors.As(err, &ke) {
		err = ke.err
	}

	migrationErr := &MigrationError{Phase: phase, Processed: len(r.done), Key: key, Err: err}
	e.setPhase(models.PhaseFailed)

	r.result.Phase = models.PhaseFailed
	r.result.ItemsProcessed = len(r.done)
	r.result.BytesProcessed = r.bytes
	r.result.Duration = time.Since(r.startedAt)

	e.logger.Error().Err(err).
		Str("func", "*Engine.fail").
		Str("phase", string(phase)).
		Str("key", key).
		Int("processed", len(r.done)).
		Msg("migration failed")

	if e.callbacks.OnError != nil {
		e.callbacks.OnError(migrationErr)
	}
	return migrationErr
}

func (e *Engine) setPhase(to models.MigrationPhase) {
	e.mu.Lock()
	from := e.phase
	e.phase = to
	e.mu.Unlock()

	if from == to {
		return
	}
	e.logger.Debug().Str("func", "*Engine.setPhase").Str("from", string(from)).Str("to", string(to)).Msg("migration phase changed")
	if e.callbacks.OnPhaseChange != nil {
		e.callbacks.OnPhaseChange(from, to)
	}
}

func (e *Engine) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// keyError remembers how many attempts a failed key took.
type keyError struct {
	attempts int
	err      error
}

func (e *keyError) Error() string { return e.err.Error() }
func (e *keyError) Unwrap() error { return e.err }

func attemptsOf(err error) int {
	var ke *keyError
	if errors.As(err, &ke) {
		return ke.attempts
	}
	return 1
}
