// Package service adapts the migration engine and the sync queue to the
// control-plane API.
package service

import (
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/migration"
	"github.com/MKhiriev/go-sync-engine/internal/queue"
	"github.com/MKhiriev/go-sync-engine/internal/workers"
	"github.com/MKhiriev/go-sync-engine/models"
)

type Services struct {
	MigrationService MigrationService
	SyncService      SyncService
	AppInfoService   AppInfoService
}

func NewServices(engine *migration.Engine, control *migration.ControlManager, q *queue.Queue,
	job *workers.SyncJob, info models.AppBuildInfo, logger *logger.Logger) (*Services, error) {
	appInfo, err := NewAppInfoService(info, logger)
	if err != nil {
		return nil, err
	}

	return &Services{
		MigrationService: NewMigrationService(engine, control, logger),
		SyncService:      NewSyncService(q, job, logger),
		AppInfoService:   appInfo,
	}, nil
}
