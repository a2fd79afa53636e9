// Package queue persists local sync operations until the conflict resolver
// has settled them against the remote store.
//
// Operations are stored as JSON in a [store.KeyValueStore] under
// "sync_queue:<id>". At most one pending or failed operation exists per
// entity: a newer change to the same entity is folded into it.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/MKhiriev/go-sync-engine/internal/apperrors"
	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/store"
	"github.com/MKhiriev/go-sync-engine/internal/utils"
	"github.com/MKhiriev/go-sync-engine/models"
)

// KeyPrefix namespaces queue records inside the shared store.
const KeyPrefix = "sync_queue:"

// ErrOperationNotFound is returned for an unknown operation id.
var ErrOperationNotFound = errors.New("sync operation not found")

// Stats counts queued operations by status.
type Stats struct {
	Pending int `json:"pending"`
	Syncing int `json:"syncing"`
	Failed  int `json:"failed"`
}

// Queue is safe for concurrent use within one process.
type Queue struct {
	kv     store.KeyValueStore
	cfg    config.Sync
	ids    utils.IDGenerator
	now    func() time.Time
	logger *logger.Logger

	mu sync.Mutex
}

// Option customises a Queue.
type Option func(*Queue)

// WithIDGenerator replaces the UUIDv7 id source.
func WithIDGenerator(g utils.IDGenerator) Option {
	return func(q *Queue) { q.ids = g }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// New returns a Queue persisting to kv.
func New(kv store.KeyValueStore, cfg config.Sync, log *logger.Logger, opts ...Option) *Queue {
	q := &Queue{
		kv:     kv,
		cfg:    cfg,
		ids:    utils.NewUUIDGenerator(),
		now:    time.Now,
		logger: log,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue validates op and queues it, or folds it into the pending
// operation for the same entity. The returned value is what was stored.
func (q *Queue) Enqueue(ctx context.Context, op models.SyncOperation) (models.SyncOperation, error) {
	if err := validate(&op); err != nil {
		return models.SyncOperation{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	ops, err := q.load(ctx)
	if err != nil {
		return models.SyncOperation{}, err
	}

	for _, existing := range ops {
		if existing.EntityType != op.EntityType || existing.EntityID != op.EntityID {
			continue
		}
		if existing.Status == models.StatusSyncing {
			// in flight; the newer change is queued on its own
			continue
		}

		merged := merge(existing, op)
		if err = q.save(ctx, merged); err != nil {
			return models.SyncOperation{}, err
		}
		q.logger.Debug().
			Str("func", "*Queue.Enqueue").
			Str("id", merged.ID).
			Str("entity_type", string(merged.EntityType)).
			Str("entity_id", merged.EntityID).
			Str("operation", string(merged.Operation)).
			Msg("merged into pending operation")
		return merged, nil
	}

	op.ID = q.ids.Generate()
	op.Status = models.StatusPending
	op.RetryCount = 0
	op.MaxRetries = q.cfg.MaxRetries
	op.LastError = ""
	op.LastAttempt = 0
	op.CreatedAt = q.now().UnixMilli()

	if err = q.save(ctx, op); err != nil {
		return models.SyncOperation{}, err
	}
	q.logger.Debug().
		Str("func", "*Queue.Enqueue").
		Str("id", op.ID).
		Str("entity_type", string(op.EntityType)).
		Str("entity_id", op.EntityID).
		Str("operation", string(op.Operation)).
		Msg("operation enqueued")

	return op, nil
}

// merge folds next into the queued operation for the same entity, keeping
// its id and CreatedAt and resetting its retry state.
func merge(existing, next models.SyncOperation) models.SyncOperation {
	merged := existing

	switch {
	case next.Operation == models.OperationDelete:
		merged.Operation = models.OperationDelete
	case existing.Operation == models.OperationCreate && next.Operation == models.OperationUpdate:
		// never pushed yet, so it is still a create
	default:
		merged.Operation = next.Operation
	}

	merged.Data = next.Data
	merged.Timestamp = next.Timestamp
	merged.Status = models.StatusPending
	merged.RetryCount = 0
	merged.LastError = ""
	merged.LastAttempt = 0

	return merged
}

// Next claims the oldest pending operation whose retry backoff has elapsed
// and marks it syncing. It returns nil when nothing is ready.
func (q *Queue) Next(ctx context.Context) (*models.SyncOperation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ops, err := q.load(ctx)
	if err != nil {
		return nil, err
	}

	now := q.now().UnixMilli()
	for _, op := range ops {
		if op.Status != models.StatusPending || !q.ready(op, now) {
			continue
		}

		op.Status = models.StatusSyncing
		if err = q.save(ctx, op); err != nil {
			return nil, err
		}
		return &op, nil
	}

	return nil, nil
}

func (q *Queue) ready(op models.SyncOperation, now int64) bool {
	if op.RetryCount == 0 || op.LastAttempt == 0 {
		return true
	}
	return now >= op.LastAttempt+q.Backoff(op.RetryCount).Milliseconds()
}

// Backoff is the delay before attempt retries+1: InitialBackoff doubled per
// retry and capped at MaxBackoff.
func (q *Queue) Backoff(retries int) time.Duration {
	if retries <= 0 || q.cfg.InitialBackoff <= 0 {
		return 0
	}

	var b retry.Backoff = retry.NewExponential(q.cfg.InitialBackoff)
	if q.cfg.MaxBackoff > 0 {
		b = retry.WithCappedDuration(q.cfg.MaxBackoff, b)
	}

	var d time.Duration
	for i := 0; i < retries; i++ {
		next, stop := b.Next()
		if stop {
			break
		}
		d = next
	}
	return d
}

// Complete removes a settled operation.
func (q *Queue) Complete(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, err := q.get(ctx, id); err != nil {
		return err
	}
	return q.kv.Delete(ctx, KeyPrefix+id)
}

// Fail records a failed attempt. A retryable failure under MaxRetries goes
// back to pending; anything else is parked as failed and kept for a human.
func (q *Queue) Fail(ctx context.Context, id string, cause error, retryable bool) (models.SyncOperation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	op, err := q.get(ctx, id)
	if err != nil {
		return models.SyncOperation{}, err
	}

	op.RetryCount++
	op.LastAttempt = q.now().UnixMilli()
	if cause != nil {
		op.LastError = cause.Error()
	}

	if retryable && op.RetryCount < op.MaxRetries {
		op.Status = models.StatusPending
	} else {
		op.Status = models.StatusFailed
	}

	if err = q.save(ctx, op); err != nil {
		return models.SyncOperation{}, err
	}

	event := q.logger.Debug()
	if op.Status == models.StatusFailed {
		event = q.logger.Warn()
	}
	event.
		Str("func", "*Queue.Fail").
		Str("id", op.ID).
		Str("status", string(op.Status)).
		Int("retry_count", op.RetryCount).
		Int("max_retries", op.MaxRetries).
		Str("last_error", op.LastError).
		Msg("sync operation failed")

	return op, nil
}

// Retry puts a failed operation back to pending with a fresh retry budget.
func (q *Queue) Retry(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	op, err := q.get(ctx, id)
	if err != nil {
		return err
	}
	if op.Status != models.StatusFailed {
		return nil
	}

	op.Status = models.StatusPending
	op.RetryCount = 0
	op.LastAttempt = 0
	return q.save(ctx, op)
}

// Recover returns operations left syncing by a crashed run to pending and
// reports how many there were.
func (q *Queue) Recover(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ops, err := q.load(ctx)
	if err != nil {
		return 0, err
	}

	var recovered int
	for _, op := range ops {
		if op.Status != models.StatusSyncing {
			continue
		}
		op.Status = models.StatusPending
		if err = q.save(ctx, op); err != nil {
			return recovered, err
		}
		recovered++
	}

	if recovered > 0 {
		q.logger.Info().Str("func", "*Queue.Recover").Int("recovered", recovered).Msg("recovered interrupted sync operations")
	}
	return recovered, nil
}

// List returns every queued operation, oldest first.
func (q *Queue) List(ctx context.Context) ([]models.SyncOperation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.load(ctx)
}

// Stats counts operations by status.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	ops, err := q.List(ctx)
	if err != nil {
		return Stats{}, err
	}

	var s Stats
	for _, op := range ops {
		switch op.Status {
		case models.StatusPending:
			s.Pending++
		case models.StatusSyncing:
			s.Syncing++
		case models.StatusFailed:
			s.Failed++
		}
	}
	return s, nil
}

func (q *Queue) get(ctx context.Context, id string) (models.SyncOperation, error) {
	raw, err := q.kv.Get(ctx, KeyPrefix+id)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return models.SyncOperation{}, fmt.Errorf("%w: %s", ErrOperationNotFound, id)
		}
		return models.SyncOperation{}, err
	}

	var op models.SyncOperation
	if err = json.Unmarshal(raw, &op); err != nil {
		return models.SyncOperation{}, fmt.Errorf("error decoding sync operation %s: %w", id, err)
	}
	return op, nil
}

// load reads all queue records ordered by CreatedAt, then id. Undecodable
// records are logged and skipped.
func (q *Queue) load(ctx context.Context) ([]models.SyncOperation, error) {
	keys, err := q.kv.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing sync queue: %w", err)
	}

	ops := make([]models.SyncOperation, 0)
	for _, key := range keys {
		if !strings.HasPrefix(key, KeyPrefix) {
			continue
		}

		raw, err := q.kv.Get(ctx, key)
		if errors.Is(err, store.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", key, err)
		}

		var op models.SyncOperation
		if err = json.Unmarshal(raw, &op); err != nil {
			q.logger.Err(err).Str("func", "*Queue.load").Str("key", key).Msg("skipping undecodable sync operation")
			continue
		}
		ops = append(ops, op)
	}

	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].CreatedAt != ops[j].CreatedAt {
			return ops[i].CreatedAt < ops[j].CreatedAt
		}
		return ops[i].ID < ops[j].ID
	})
	return ops, nil
}

func (q *Queue) save(ctx context.Context, op models.SyncOperation) error {
	raw, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("error encoding sync operation %s: %w", op.ID, err)
	}
	if err = q.kv.Set(ctx, KeyPrefix+op.ID, raw); err != nil {
		return fmt.Errorf("error saving sync operation %s: %w", op.ID, err)
	}
	return nil
}

// validate rejects malformed operations. Nothing is coerced except an absent
// delete payload, which becomes JSON null.
func validate(op *models.SyncOperation) error {
	const opName = "Queue.Enqueue"

	if !op.EntityType.Valid() {
		return apperrors.Validation(opName, "entityType", fmt.Sprintf("unknown entity type %q", op.EntityType))
	}
	if strings.TrimSpace(op.EntityID) == "" {
		return apperrors.Validation(opName, "entityId", "must not be blank")
	}
	if strings.TrimSpace(op.EntityID) != op.EntityID {
		return apperrors.Validation(opName, "entityId", "must not have leading or trailing whitespace")
	}
	if !op.Operation.Valid() {
		return apperrors.Validation(opName, "operation", fmt.Sprintf("unknown operation %q", op.Operation))
	}
	if op.Timestamp <= 0 || op.Timestamp == math.MaxInt64 {
		return apperrors.Validation(opName, "timestamp", "must be a positive finite number")
	}

	if op.Operation == models.OperationDelete {
		if op.HasData() {
			return apperrors.Validation(opName, "data", "must be null for delete")
		}
		op.Data = json.RawMessage("null")
		return nil
	}

	if !op.HasData() {
		return apperrors.Validation(opName, "data", "is required for "+string(op.Operation))
	}
	if !json.Valid(op.Data) {
		return apperrors.Validation(opName, "data", "must be valid JSON")
	}
	return nil
}
