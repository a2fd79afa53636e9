package service

import (
	"context"
	"errors"
	"sync"

	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/migration"
	"github.com/MKhiriev/go-sync-engine/models"
)

type migrationService struct {
	engine  *migration.Engine
	control *migration.ControlManager

	// runs outlive the request that started them
	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu        sync.Mutex
	running   bool
	result    *models.MigrationResult
	resultErr string

	logger *logger.Logger
}

func NewMigrationService(engine *migration.Engine, control *migration.ControlManager, logger *logger.Logger) MigrationService {
	ctx, stop := context.WithCancel(context.Background())
	return &migrationService{
		engine:  engine,
		control: control,
		baseCtx: ctx,
		stop:    stop,
		logger:  logger,
	}
}

func (s *migrationService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrMigrationRunning
	}
	if s.baseCtx.Err() != nil {
		s.mu.Unlock()
		return s.baseCtx.Err()
	}
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		result, err := s.engine.Start(s.baseCtx)
		if errors.Is(err, migration.ErrEngineRunning) {
			err = ErrMigrationRunning
		}

		s.mu.Lock()
		s.running = false
		s.result = &result
		s.resultErr = ""
		if err != nil {
			s.resultErr = err.Error()
		}
		s.mu.Unlock()

		s.logger.Info().
			Str("func", "*migrationService.Start").
			Str("phase", string(result.Phase)).
			Str("session_id", result.SessionID).
			Int("items_processed", result.ItemsProcessed).
			AnErr("error", err).
			Msg("migration run finished")
	}()

	logger.FromContext(ctx).Info().Str("func", "*migrationService.Start").Msg("migration started")
	return nil
}

func (s *migrationService) Pause(ctx context.Context) error {
	return s.engine.Pause(ctx)
}

func (s *migrationService) Resume(ctx context.Context) (*models.MigrationResumeData, error) {
	return s.engine.Resume(ctx)
}

func (s *migrationService) Cancel(ctx context.Context, reason string) error {
	return s.engine.Cancel(ctx, reason)
}

func (s *migrationService) SetHidden(ctx context.Context, hidden bool) {
	s.engine.SetHidden(ctx, hidden)
}

func (s *migrationService) Status(ctx context.Context) models.MigrationStatus {
	return s.engine.Status()
}

func (s *migrationService) State(ctx context.Context) models.ControlState {
	return s.control.State()
}

func (s *migrationService) LastResult(ctx context.Context) (*models.MigrationResult, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.resultErr
}

func (s *migrationService) Estimate(ctx context.Context, keys []string) (models.MigrationEstimation, error) {
	keys, err := s.keys(ctx, keys)
	if err != nil {
		return models.MigrationEstimation{}, err
	}
	return s.control.EstimateMigration(ctx, keys)
}

func (s *migrationService) Preview(ctx context.Context, keys []string) (models.MigrationPreview, error) {
	keys, err := s.keys(ctx, keys)
	if err != nil {
		return models.MigrationPreview{}, err
	}
	return s.control.PreviewMigration(ctx, keys, s.engine.Target())
}

func (s *migrationService) keys(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) > 0 {
		return keys, nil
	}

	all, err := s.engine.Keys(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrNoKeysToEstimate
	}
	return all, nil
}

func (s *migrationService) Close() {
	s.stop()
	s.wg.Wait()
}
