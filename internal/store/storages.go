package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
)

// Storages groups every store the daemon works with.
type Storages struct {
	// Source is the migration source. Lock and checkpoint records live here.
	Source KeyValueStore
	// Target is the migration destination.
	Target KeyValueStore
	// Queue persists pending sync operations.
	Queue KeyValueStore
	// Entities is the local copy of synchronised entities, kept next to the
	// queue.
	Entities *EntityStore

	dbs []*DB
}

// NewStorages opens the source, target and queue backends described by cfg.
// SQL backends are migrated before use. On error every backend opened so far
// is closed.
func NewStorages(ctx context.Context, cfg config.Storage, log *logger.Logger) (*Storages, error) {
	log.Info().Msg("creating new storages...")

	s := &Storages{}
	var err error

	if s.Source, err = s.open(ctx, cfg.Source, log); err != nil {
		return nil, errors.Join(fmt.Errorf("source storage: %w", err), s.Close())
	}
	if s.Target, err = s.open(ctx, cfg.Target, log); err != nil {
		return nil, errors.Join(fmt.Errorf("target storage: %w", err), s.Close())
	}
	if s.Queue, err = s.open(ctx, cfg.Queue, log); err != nil {
		return nil, errors.Join(fmt.Errorf("queue storage: %w", err), s.Close())
	}
	s.Entities = NewEntityStore(s.Queue)

	return s, nil
}

func (s *Storages) open(ctx context.Context, b config.Backend, log *logger.Logger) (KeyValueStore, error) {
	var (
		db  *DB
		err error
	)

	switch b.Driver {
	case "memory":
		return NewMemoryStore(b.QuotaBytes), nil
	case "sqlite":
		db, err = NewConnectSQLite(ctx, b, log)
	case "postgres":
		db, err = NewConnectPostgres(ctx, b, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, b.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%s connection error: %w", b.Driver, err)
	}
	s.dbs = append(s.dbs, db)

	if err = db.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return NewSQLStore(db, log), nil
}

// Close closes every SQL connection pool.
func (s *Storages) Close() error {
	var errs []error
	for _, db := range s.dbs {
		errs = append(errs, db.Close())
	}
	s.dbs = nil
	return errors.Join(errs...)
}
