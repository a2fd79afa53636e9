// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"github.com/jackc/pgerrcode"

	"github.com/MKhiriev/go-sync-engine/internal/apperrors"
)

// PostgresErrorClassifier implements [ErrorClassificator] for PostgreSQL.
// It inspects the pgconn error code returned by the pgx driver and maps it
// to an [apperrors.Kind].
type PostgresErrorClassifier struct{}

// NewPostgresErrorClassifier constructs a [PostgresErrorClassifier] ready for use.
func NewPostgresErrorClassifier() *PostgresErrorClassifier {
	return &PostgresErrorClassifier{}
}

// Classify implements [ErrorClassificator]. Errors that are not PostgreSQL
// driver errors keep whatever kind they already carry.
func (c *PostgresErrorClassifier) Classify(err error) apperrors.Kind {
	if err == nil {
		return apperrors.KindUnknown
	}

	code := postgresError(err)
	if code == "" {
		return apperrors.KindOf(err)
	}

	return ClassifyPgCode(code)
}

// ClassifyPgCode maps a PostgreSQL error code to an [apperrors.Kind].
// See https://www.postgresql.org/docs/current/errcodes-appendix.html for the
// full list of PostgreSQL error codes.
//
// Transient (retryable) codes:
//   - Class 08: connection exceptions → network
//   - Class 40: transaction rollback, serialization failure, deadlock → network
//   - Class 57: cannot connect now → network; query canceled → timeout
//   - Class 53: disk full, out of memory → quota_exceeded
//
// Permanent codes:
//   - 23505 unique_violation → auto_resolvable_conflict
//   - Class 22 / 23 (other): data and integrity errors → validation
//
// Any code not listed above is [apperrors.KindUnknown].
func ClassifyPgCode(code string) apperrors.Kind {
	switch code {
	// Class 08: connection exceptions
	case pgerrcode.ConnectionException,
		pgerrcode.ConnectionDoesNotExist,
		pgerrcode.ConnectionFailure:
		return apperrors.KindNetwork

	// Class 40: transaction rollback
	case pgerrcode.TransactionRollback, // 40000
		pgerrcode.SerializationFailure, // 40001
		pgerrcode.DeadlockDetected:     // 40P01
		return apperrors.KindNetwork

	// Class 57: operator intervention
	case pgerrcode.CannotConnectNow: // 57P03
		return apperrors.KindNetwork
	case pgerrcode.QueryCanceled: // 57014
		return apperrors.KindTimeout

	// Class 53: insufficient resources
	case pgerrcode.DiskFull,
		pgerrcode.OutOfMemory:
		return apperrors.KindQuotaExceeded

	// Class 23: integrity constraint violations
	case pgerrcode.UniqueViolation:
		return apperrors.KindAutoResolvableConflict
	case pgerrcode.IntegrityConstraintViolation,
		pgerrcode.RestrictViolation,
		pgerrcode.NotNullViolation,
		pgerrcode.ForeignKeyViolation,
		pgerrcode.CheckViolation:
		return apperrors.KindValidation

	// Class 22: data exceptions
	case pgerrcode.DataException,
		pgerrcode.NullValueNotAllowedDataException:
		return apperrors.KindValidation
	}

	// Default: unrecognised codes.
	return apperrors.KindUnknown
}
