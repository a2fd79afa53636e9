package conflict

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/MKhiriev/go-sync-engine/internal/apperrors"
	"github.com/MKhiriev/go-sync-engine/internal/store"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.Kind
	}{
		{name: "nil", err: nil, want: apperrors.KindUnknown},

		// auto-resolvable
		{name: "already exists", err: errors.New("Entity already exists"), want: apperrors.KindAutoResolvableConflict},
		{name: "postgres duplicate key text", err: errors.New(`ERROR: duplicate key value violates unique constraint "x"`), want: apperrors.KindAutoResolvableConflict},
		{name: "sqlite unique", err: errors.New("UNIQUE constraint failed: players.id"), want: apperrors.KindAutoResolvableConflict},
		{name: "mysql duplicate entry", err: errors.New("Error 1062: Duplicate entry 'p1' for key 'PRIMARY'"), want: apperrors.KindAutoResolvableConflict},
		{name: "mysql code name", err: errors.New("ER_DUP_ENTRY"), want: apperrors.KindAutoResolvableConflict},
		{name: "pg unique violation code", err: fmt.Errorf("write: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation}), want: apperrors.KindAutoResolvableConflict},
		{name: "duplicate reported as conflict", err: errors.New("409 conflict: record already exists"), want: apperrors.KindAutoResolvableConflict},
		{name: "tagged auto", err: apperrors.New(apperrors.KindAutoResolvableConflict, "put", ""), want: apperrors.KindAutoResolvableConflict},

		// requires user resolution
		{name: "version conflict", err: errors.New("version conflict on player p1"), want: apperrors.KindRequiresUserResolution},
		{name: "optimistic lock", err: errors.New("Optimistic lock failure"), want: apperrors.KindRequiresUserResolution},
		{name: "generic conflict", err: errors.New("Conflict"), want: apperrors.KindRequiresUserResolution},
		{name: "tagged user", err: apperrors.New(apperrors.KindRequiresUserResolution, "put", ""), want: apperrors.KindRequiresUserResolution},

		// not found
		{name: "store key", err: fmt.Errorf("get: %w", store.ErrKeyNotFound), want: apperrors.KindNotFound},
		{name: "sql no rows", err: sql.ErrNoRows, want: apperrors.KindNotFound},
		{name: "does not exist", err: errors.New("relation does not exist"), want: apperrors.KindNotFound},
		{name: "http 404", err: errors.New("remote returned 404"), want: apperrors.KindNotFound},

		// others
		{name: "pg other code", err: &pgconn.PgError{Code: pgerrcode.SerializationFailure}, want: apperrors.KindUnknown},
		{name: "network stays network", err: apperrors.New(apperrors.KindNetwork, "get", "already exists"), want: apperrors.KindNetwork},
		{name: "plain", err: errors.New("boom"), want: apperrors.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassifierHelpers(t *testing.T) {
	dup := errors.New("duplicate key")
	ver := errors.New("version mismatch")
	missing := errors.New("not found")

	assert.True(t, IsAutoResolvable(dup))
	assert.False(t, RequiresUserResolution(dup))

	assert.True(t, RequiresUserResolution(ver))
	assert.False(t, IsAutoResolvable(ver))

	assert.True(t, IsNotFound(missing))
	assert.False(t, IsNotFound(nil))
}
