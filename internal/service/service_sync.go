package service

import (
	"context"

	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/queue"
	"github.com/MKhiriev/go-sync-engine/internal/workers"
	"github.com/MKhiriev/go-sync-engine/models"
)

type syncService struct {
	queue *queue.Queue
	job   *workers.SyncJob

	logger *logger.Logger
}

// NewSyncService wires the queue to the job that drains it. A nil job means
// operations are only drained by explicit Drain calls.
func NewSyncService(q *queue.Queue, job *workers.SyncJob, logger *logger.Logger) SyncService {
	return &syncService{queue: q, job: job, logger: logger}
}

// Enqueue stores op and nudges the sync job.
func (s *syncService) Enqueue(ctx context.Context, op models.SyncOperation) (models.SyncOperation, error) {
	stored, err := s.queue.Enqueue(ctx, op)
	if err != nil {
		return models.SyncOperation{}, err
	}
	s.trigger()
	return stored, nil
}

func (s *syncService) Operations(ctx context.Context) ([]models.SyncOperation, error) {
	return s.queue.List(ctx)
}

func (s *syncService) Stats(ctx context.Context) (queue.Stats, error) {
	return s.queue.Stats(ctx)
}

// Retry gives a parked operation a fresh retry budget.
func (s *syncService) Retry(ctx context.Context, id string) error {
	if err := s.queue.Retry(ctx, id); err != nil {
		return err
	}
	s.trigger()
	return nil
}

func (s *syncService) Drain(ctx context.Context) (workers.DrainReport, error) {
	if s.job == nil {
		return workers.DrainReport{}, nil
	}
	return s.job.Drain(ctx)
}

func (s *syncService) trigger() {
	if s.job != nil {
		s.job.Trigger()
	}
}
