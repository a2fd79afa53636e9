// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Command syncd is the local-first sync daemon: it drains the sync queue
// against the remote store, runs storage migrations and serves the
// control-plane API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/MKhiriev/go-sync-engine/internal/adapter"
	"github.com/MKhiriev/go-sync-engine/internal/checksum"
	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/conflict"
	"github.com/MKhiriev/go-sync-engine/internal/handler"
	"github.com/MKhiriev/go-sync-engine/internal/lock"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/migration"
	"github.com/MKhiriev/go-sync-engine/internal/queue"
	"github.com/MKhiriev/go-sync-engine/internal/server"
	"github.com/MKhiriev/go-sync-engine/internal/service"
	"github.com/MKhiriev/go-sync-engine/internal/store"
	"github.com/MKhiriev/go-sync-engine/internal/workers"
	"github.com/MKhiriev/go-sync-engine/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	info := models.NewAppBuildInfo(buildVersion, buildDate, buildCommit).WithDefaults()
	fmt.Print(info)

	cfg, err := config.GetStructuredConfig(os.Args[1:])
	if err != nil {
		l := logger.NewLogger("syncd")
		l.Fatal().Err(err).Msg("error getting configs")
	}

	log := logger.NewFileLogger("syncd", cfg.App.LogFile, cfg.App.LogLevel)
	log.Debug().Any("config", cfg).Msg("received configs")

	if err = run(cfg, info, log); err != nil {
		log.Fatal().Err(err).Msg("sync daemon stopped with error")
	}
}

func run(cfg *config.StructuredConfig, info models.AppBuildInfo, log *logger.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storages, err := store.NewStorages(ctx, cfg.Storage, log.WithComponent("store"))
	if err != nil {
		return fmt.Errorf("error creating storages: %w", err)
	}
	defer func() {
		if err := storages.Close(); err != nil {
			log.Err(err).Msg("error closing storages")
		}
	}()

	remote, err := adapter.NewHTTPRemoteStore(cfg.Remote, log.WithComponent("remote"))
	if err != nil {
		return fmt.Errorf("error creating remote store: %w", err)
	}
	resolver := conflict.NewResolver(remote, storages.Entities, log.WithComponent("conflict"))

	activity := migration.NewActivityScheduler(cfg.Migration.IdleQuietPeriod, cfg.Migration.TickBudget)
	q := queue.New(storages.Queue, cfg.Sync, log.WithComponent("queue"))
	job := workers.NewSyncJob(q, resolver, activity, cfg.Sync.Interval, log.WithComponent("sync"))

	engine, control, mutex, err := newMigration(cfg, storages, activity, log.WithComponent("migration"))
	if err != nil {
		return err
	}

	services, err := service.NewServices(engine, control, q, job, info, log)
	if err != nil {
		return fmt.Errorf("error creating services: %w", err)
	}

	handlers, err := handler.NewHandlers(services, activity, cfg.Server, log.WithComponent("api"))
	if err != nil {
		return fmt.Errorf("error creating handlers: %w", err)
	}

	srv, err := server.NewServer(handlers, cfg.Server, log)
	if err != nil {
		return fmt.Errorf("error creating server: %w", err)
	}

	background := workers.NewWorkers(job)
	background.Run(ctx)

	err = srv.RunServer()

	background.Stop()
	services.MigrationService.Close()
	if cerr := mutex.Close(); cerr != nil {
		log.Err(cerr).Msg("error releasing migration lock")
	}

	return err
}

func newMigration(cfg *config.StructuredConfig, storages *store.Storages, idle migration.IdleScheduler,
	log *logger.Logger) (*migration.Engine, *migration.ControlManager, *lock.InstanceMutex, error) {
	sum, err := checksum.New(checksum.Algorithm(cfg.Migration.ChecksumAlgorithm))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error creating checksum service: %w", err)
	}

	control := migration.NewControlManager(storages.Source, cfg.Migration, sum, migration.ControlCallbacks{
		OnCancelComplete: func(r models.CancellationResult) {
			log.Info().
				Str("reason", r.Reason).
				Bool("data_rolled_back", r.DataRolledBack).
				Msg("migration cancelled")
		},
	}, log)

	mutex := lock.NewInstanceMutex(storages.Source, cfg.Lock, log.WithComponent("lock"))

	engine := migration.NewEngine(storages.Source, storages.Target, mutex, control, cfg.Migration,
		migration.EngineCallbacks{
			OnPhaseChange: func(from, to models.MigrationPhase) {
				log.Info().Str("from", string(from)).Str("to", string(to)).Msg("migration phase changed")
			},
			OnComplete: func(r models.MigrationResult) {
				log.Info().
					Str("session_id", r.SessionID).
					Int("items_processed", r.ItemsProcessed).
					Int("failed_keys", len(r.FailedKeys)).
					Dur("duration", r.Duration).
					Msg("migration finished")
			},
		}, log, migration.WithIdleScheduler(idle))

	return engine, control, mutex, nil
}
