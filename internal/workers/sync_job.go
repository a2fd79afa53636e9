package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MKhiriev/go-sync-engine/internal/apperrors"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/queue"
	"github.com/MKhiriev/go-sync-engine/models"
)

const defaultSyncInterval = 30 * time.Second

// DrainReport counts what one pass over the queue did.
type DrainReport struct {
	Synced   int `json:"synced"`
	Retrying int `json:"retrying"`
	Failed   int `json:"failed"`
}

// SyncJob drains the sync queue on a ticker.
type SyncJob struct {
	queue    *queue.Queue
	resolver Resolver
	activity ActivityRecorder
	interval time.Duration
	logger   *logger.Logger

	trigger chan struct{}
	drainMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSyncJob creates an idle job; call Run or Start. activity may be nil.
func NewSyncJob(q *queue.Queue, resolver Resolver, activity ActivityRecorder, interval time.Duration, log *logger.Logger) *SyncJob {
	return &SyncJob{
		queue:    q,
		resolver: resolver,
		activity: activity,
		interval: interval,
		logger:   log,
		trigger:  make(chan struct{}, 1),
	}
}

// Run implements [Worker] with the configured interval.
func (j *SyncJob) Run(ctx context.Context) {
	j.Start(ctx, j.interval)
}

// Start stops any previous run, then drains the queue every interval and
// whenever Trigger is called. A non-positive interval means 30s.
func (j *SyncJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultSyncInterval
	}

	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
			case <-j.trigger:
			}

			if _, err := j.Drain(jobCtx); err != nil && jobCtx.Err() == nil {
				j.logger.Err(err).Str("func", "*SyncJob.Start").Msg("sync queue drain failed")
			}
		}
	}()
}

// Trigger asks a running job to drain now instead of at the next tick.
func (j *SyncJob) Trigger() {
	select {
	case j.trigger <- struct{}{}:
	default:
	}
}

// Stop cancels the job and waits for it to exit. It is a no-op when the
// job is not running.
func (j *SyncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}

// Drain syncs every ready operation. A transient failure is retried later
// and ends the pass, since the remote is likely unavailable for the rest
// too. Any other failure parks the operation for a human.
func (j *SyncJob) Drain(ctx context.Context) (DrainReport, error) {
	j.drainMu.Lock()
	defer j.drainMu.Unlock()

	var report DrainReport
	if _, err := j.queue.Recover(ctx); err != nil {
		return report, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		op, err := j.queue.Next(ctx)
		if err != nil {
			return report, err
		}
		if op == nil {
			return report, nil
		}
		j.touch()

		result, err := j.resolver.Resolve(ctx, *op)
		if err == nil {
			if err = j.queue.Complete(ctx, op.ID); err != nil {
				return report, err
			}
			report.Synced++
			j.logger.Debug().
				Str("func", "*SyncJob.Drain").
				Str("id", op.ID).
				Str("winner", string(result.Resolution.Winner)).
				Bool("action_taken", result.ActionTaken).
				Msg("sync operation settled")
			continue
		}

		if ctx.Err() != nil {
			// left syncing; the next drain recovers it
			return report, ctx.Err()
		}

		stop, ferr := j.fail(ctx, *op, err, &report)
		if ferr != nil {
			return report, errors.Join(err, ferr)
		}
		if stop {
			return report, nil
		}
	}
}

func (j *SyncJob) fail(ctx context.Context, op models.SyncOperation, cause error, report *DrainReport) (bool, error) {
	transient := apperrors.IsTransient(cause)

	failed, err := j.queue.Fail(ctx, op.ID, cause, transient)
	if err != nil {
		return false, err
	}

	if failed.Status == models.StatusPending {
		report.Retrying++
		j.logger.Info().
			Str("func", "*SyncJob.fail").
			Str("id", op.ID).
			Int("retry_count", failed.RetryCount).
			Dur("backoff", j.queue.Backoff(failed.RetryCount)).
			Err(cause).
			Msg("remote unavailable; sync deferred")
		return true, nil
	}

	report.Failed++
	j.logger.Warn().
		Str("func", "*SyncJob.fail").
		Str("id", op.ID).
		Str("entity_type", string(op.EntityType)).
		Str("entity_id", op.EntityID).
		Str("kind", apperrors.KindOf(cause).String()).
		Err(cause).
		Msg("sync operation needs attention")
	return transient, nil
}

func (j *SyncJob) touch() {
	if j.activity != nil {
		j.activity.Touch()
	}
}
