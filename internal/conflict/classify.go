package conflict

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MKhiriev/go-sync-engine/internal/apperrors"
	"github.com/MKhiriev/go-sync-engine/internal/store"
)

// Message fragments, lower-case. Uniqueness patterns are checked before the
// generic "conflict" pattern so a duplicate reported as a conflict still
// auto-resolves.
var (
	autoResolvablePatterns = []string{
		"already exists",
		"duplicate key",
		"unique constraint",
		"unique violation",
		"duplicate entry",
		"er_dup_entry",
		"error 1062",
	}
	userResolutionPatterns = []string{
		"version conflict",
		"version mismatch",
		"optimistic lock",
		"stale version",
		"conflict",
	}
	notFoundPatterns = []string{
		"not found",
		"does not exist",
		"no rows in result set",
		"404",
	}
)

// Classify sorts a store error into auto_resolvable_conflict,
// requires_user_resolution or not_found. Errors already classified keep
// their kind; everything else is unknown.
func Classify(err error) apperrors.Kind {
	if err == nil {
		return apperrors.KindUnknown
	}

	if kind := apperrors.KindOf(err); kind != apperrors.KindUnknown {
		return kind
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return apperrors.KindAutoResolvableConflict
	}

	if errors.Is(err, store.ErrKeyNotFound) || errors.Is(err, sql.ErrNoRows) {
		return apperrors.KindNotFound
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, autoResolvablePatterns):
		return apperrors.KindAutoResolvableConflict
	case containsAny(msg, userResolutionPatterns):
		return apperrors.KindRequiresUserResolution
	case containsAny(msg, notFoundPatterns):
		return apperrors.KindNotFound
	}

	return apperrors.KindUnknown
}

// IsAutoResolvable reports whether err is a uniqueness violation that means
// another writer already reached the same state.
func IsAutoResolvable(err error) bool {
	return Classify(err) == apperrors.KindAutoResolvableConflict
}

// RequiresUserResolution reports whether err is a version conflict a human
// has to look at.
func RequiresUserResolution(err error) bool {
	return Classify(err) == apperrors.KindRequiresUserResolution
}

// IsNotFound reports whether err says the entity does not exist.
func IsNotFound(err error) bool {
	return Classify(err) == apperrors.KindNotFound
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
