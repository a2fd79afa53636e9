package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-sync-engine/internal/apperrors"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
)

const (
	kvTable     = "kv_records"
	kvKeyCol    = "record_key"
	kvValueCol  = "record_value"
	kvUpdateCol = "updated_at"
)

// sqlStore is the relational [ConditionalStore]. The same statements run on
// SQLite and PostgreSQL; only the placeholder format differs.
type sqlStore struct {
	db      *DB
	builder sq.StatementBuilderType
	logger  *logger.Logger
	now     func() time.Time
}

// NewSQLStore returns a [ConditionalStore] over the kv_records table of db.
// The schema must already be migrated with [DB.Migrate].
func NewSQLStore(db *DB, log *logger.Logger) ConditionalStore {
	var placeholder sq.PlaceholderFormat = sq.Question
	if db.dialect == DialectPostgres {
		placeholder = sq.Dollar
	}

	return &sqlStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
		logger:  log,
		now:     time.Now,
	}
}

func (s *sqlStore) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := s.builder.
		Select(kvValueCol).
		From(kvTable).
		Where(sq.Eq{kvKeyCol: key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var value []byte
	if err = s.db.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		logger.FromContext(ctx).Err(err).Str("func", "*sqlStore.Get").Str("key", key).Msg("error reading kv record")
		return nil, s.classify("sqlStore.Get", fmt.Errorf("%w: %w", ErrExecutingQuery, err))
	}

	return value, nil
}

func (s *sqlStore) Set(ctx context.Context, key string, value []byte) error {
	query, args, err := s.builder.
		Insert(kvTable).
		Columns(kvKeyCol, kvValueCol, kvUpdateCol).
		Values(key, value, s.now().UnixMilli()).
		Suffix(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s = excluded.%s, %s = excluded.%s",
			kvKeyCol, kvValueCol, kvValueCol, kvUpdateCol, kvUpdateCol)).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = s.db.ExecContext(ctx, query, args...); err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "*sqlStore.Set").Str("key", key).Msg("error upserting kv record")
		return s.classify("sqlStore.Set", fmt.Errorf("%w: %w", ErrExecutingStatement, err))
	}

	return nil
}

func (s *sqlStore) Delete(ctx context.Context, key string) error {
	query, args, err := s.builder.
		Delete(kvTable).
		Where(sq.Eq{kvKeyCol: key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = s.db.ExecContext(ctx, query, args...); err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "*sqlStore.Delete").Str("key", key).Msg("error deleting kv record")
		return s.classify("sqlStore.Delete", fmt.Errorf("%w: %w", ErrExecutingStatement, err))
	}

	return nil
}

func (s *sqlStore) Keys(ctx context.Context) ([]string, error) {
	query, args, err := s.builder.
		Select(kvKeyCol).
		From(kvTable).
		OrderBy(kvKeyCol).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "*sqlStore.Keys").Msg("error listing kv keys")
		return nil, s.classify("sqlStore.Keys", fmt.Errorf("%w: %w", ErrExecutingQuery, err))
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err = rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		keys = append(keys, key)
	}
	if err = rows.Err(); err != nil {
		return nil, s.classify("sqlStore.Keys", fmt.Errorf("%w: %w", ErrScanningRows, err))
	}

	return keys, nil
}

func (s *sqlStore) SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	query, args, err := s.builder.
		Insert(kvTable).
		Columns(kvKeyCol, kvValueCol, kvUpdateCol).
		Values(key, value, s.now().UnixMilli()).
		Suffix(fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", kvKeyCol)).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return s.execAffected(ctx, "sqlStore.SetIfAbsent", query, args)
}

func (s *sqlStore) CompareAndDelete(ctx context.Context, key string, expected []byte) (bool, error) {
	query, args, err := s.builder.
		Delete(kvTable).
		Where(sq.Eq{kvKeyCol: key}).
		// sq.Eq would expand a []byte into an IN list
		Where(sq.Expr(kvValueCol+" = ?", expected)).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return s.execAffected(ctx, "sqlStore.CompareAndDelete", query, args)
}

func (s *sqlStore) execAffected(ctx context.Context, op, query string, args []any) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", op).Msg("error executing conditional statement")
		return false, s.classify(op, fmt.Errorf("%w: %w", ErrExecutingStatement, err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, s.classify(op, err)
	}
	return n == 1, nil
}

// classify tags err with the kind the dialect's classifier derives from the
// driver error.
func (s *sqlStore) classify(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(apperrors.KindTimeout, op, err)
	case errors.Is(err, context.Canceled):
		return apperrors.Wrap(apperrors.KindCancelled, op, err)
	}

	kind := apperrors.KindUnknown
	if s.db.errorClassificator != nil {
		kind = s.db.errorClassificator.Classify(err)
	}
	return apperrors.Wrap(kind, op, err)
}
