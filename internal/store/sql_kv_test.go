package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-sync-engine/internal/apperrors"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
)

func newTestSQLStore(t *testing.T, dialect string) (*sqlStore, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	var classifier ErrorClassificator = NewSQLiteErrorClassifier()
	if dialect == DialectPostgres {
		classifier = NewPostgresErrorClassifier()
	}

	l := logger.Nop()
	s := NewSQLStore(&DB{DB: conn, dialect: dialect, errorClassificator: classifier, logger: l}, l).(*sqlStore)
	s.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }

	return s, mock
}

func pgError(code string) error {
	return &pgconn.PgError{Code: code}
}

func TestSQLStore_Get(t *testing.T) {
	s, mock := newTestSQLStore(t, DialectSQLite)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT record_value FROM kv_records WHERE record_key = ?")).
		WithArgs("settings").
		WillReturnRows(sqlmock.NewRows([]string{"record_value"}).AddRow([]byte(`{"a":1}`)))

	v, err := s.Get(context.Background(), "settings")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Get_NotFound(t *testing.T) {
	s, mock := newTestSQLStore(t, DialectPostgres)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT record_value FROM kv_records WHERE record_key = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestSQLStore_Get_ConnectionError(t *testing.T) {
	s, mock := newTestSQLStore(t, DialectPostgres)

	mock.ExpectQuery("SELECT record_value FROM kv_records").
		WillReturnError(pgError(pgerrcode.ConnectionFailure))

	_, err := s.Get(context.Background(), "k")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExecutingQuery)
	assert.True(t, apperrors.Is(err, apperrors.KindNetwork))
	assert.True(t, apperrors.IsTransient(err))
}

func TestSQLStore_Set_Upsert(t *testing.T) {
	s, mock := newTestSQLStore(t, DialectSQLite)

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO kv_records (record_key,record_value,updated_at) VALUES (?,?,?) "+
			"ON CONFLICT (record_key) DO UPDATE SET record_value = excluded.record_value, updated_at = excluded.updated_at")).
		WithArgs("k", []byte("v"), int64(1_700_000_000_000)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Set(context.Background(), "k", []byte("v")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Set_DiskFull(t *testing.T) {
	s, mock := newTestSQLStore(t, DialectPostgres)

	mock.ExpectExec("INSERT INTO kv_records").
		WillReturnError(pgError(pgerrcode.DiskFull))

	err := s.Set(context.Background(), "k", []byte("v"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExecutingStatement)
	assert.True(t, apperrors.Is(err, apperrors.KindQuotaExceeded))
}

func TestSQLStore_Delete(t *testing.T) {
	s, mock := newTestSQLStore(t, DialectPostgres)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM kv_records WHERE record_key = $1")).
		WithArgs("k").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Delete(context.Background(), "k"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Keys(t *testing.T) {
	s, mock := newTestSQLStore(t, DialectSQLite)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT record_key FROM kv_records ORDER BY record_key")).
		WillReturnRows(sqlmock.NewRows([]string{"record_key"}).AddRow("a").AddRow("b"))

	keys, err := s.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestSQLStore_Keys_Empty(t *testing.T) {
	s, mock := newTestSQLStore(t, DialectSQLite)

	mock.ExpectQuery("SELECT record_key FROM kv_records").
		WillReturnRows(sqlmock.NewRows([]string{"record_key"}))

	keys, err := s.Keys(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, keys)
	assert.Empty(t, keys)
}

func TestSQLStore_Keys_RowError(t *testing.T) {
	s, mock := newTestSQLStore(t, DialectSQLite)

	mock.ExpectQuery("SELECT record_key FROM kv_records").
		WillReturnRows(sqlmock.NewRows([]string{"record_key"}).AddRow("a").RowError(0, errors.New("boom")))

	_, err := s.Keys(context.Background())
	assert.ErrorIs(t, err, ErrScanningRows)
}

func TestSQLStore_SetIfAbsent(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "inserted", affected: 1, want: true},
		{name: "already present", affected: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newTestSQLStore(t, DialectPostgres)

			mock.ExpectExec(regexp.QuoteMeta(
				"INSERT INTO kv_records (record_key,record_value,updated_at) VALUES ($1,$2,$3) ON CONFLICT (record_key) DO NOTHING")).
				WithArgs("migration_lock", []byte("x"), sqlmock.AnyArg()).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			ok, err := s.SetIfAbsent(context.Background(), "migration_lock", []byte("x"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestSQLStore_CompareAndDelete(t *testing.T) {
	s, mock := newTestSQLStore(t, DialectPostgres)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM kv_records WHERE record_key = $1 AND record_value = $2")).
		WithArgs("migration_lock", []byte("x")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := s.CompareAndDelete(context.Background(), "migration_lock", []byte("x"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLStore_ContextDeadline(t *testing.T) {
	s, mock := newTestSQLStore(t, DialectSQLite)

	mock.ExpectExec("DELETE FROM kv_records").WillReturnError(context.DeadlineExceeded)

	err := s.Delete(context.Background(), "k")
	assert.True(t, apperrors.Is(err, apperrors.KindTimeout))
}
