package store

import (
	"database/sql"

	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/migrations"
)

// SQL dialects understood by [DB] and [NewSQLStore].
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// DB is a database handle together with the dialect it speaks and the
// classifier for its driver errors.
type DB struct {
	*sql.DB
	dialect            string
	errorClassificator ErrorClassificator
	logger             *logger.Logger
}

// Dialect returns [DialectSQLite] or [DialectPostgres].
func (db *DB) Dialect() string {
	return db.dialect
}

// Migrate applies the embedded schema migrations for the DB's dialect.
func (db *DB) Migrate() error {
	return migrations.Migrate(db.DB, db.dialect)
}
