package conflict

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/MKhiriev/go-sync-engine/internal/apperrors"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/models"
)

// Resolver settles a queued local operation against the remote store using
// last-write-wins on timestamps. Ties go to the local side.
//
// A Resolver holds no per-call state and is safe for concurrent use.
type Resolver struct {
	remote RemoteStore
	local  LocalStore
	logger *logger.Logger
}

// NewResolver returns a Resolver writing winners to remote or local.
func NewResolver(remote RemoteStore, local LocalStore, logger *logger.Logger) *Resolver {
	return &Resolver{
		remote: remote,
		local:  local,
		logger: logger,
	}
}

// Resolve decides the winner for op and performs at most one write:
// push op.Data to the remote, pull the remote record locally, or delete the
// remote record. A delete of an entity already absent remotely performs no
// write and reports ActionTaken=false.
//
// A push rejected because the remote already holds the id counts as
// success. Every other store error is returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, op models.SyncOperation) (models.ResolveResult, error) {
	if err := validateOperation(op); err != nil {
		return models.ResolveResult{}, err
	}

	record, err := r.remote.Fetch(ctx, op.EntityType, op.EntityID, op.Data)
	if err != nil {
		return models.ResolveResult{}, err
	}

	cloudTimestamp, err := CloudTimestamp(record)
	if err != nil {
		return models.ResolveResult{}, err
	}

	resolution := models.ConflictResolution{
		EntityType:     op.EntityType,
		EntityID:       op.EntityID,
		LocalTimestamp: op.Timestamp,
		CloudTimestamp: cloudTimestamp,
	}
	localWins := op.Timestamp >= cloudTimestamp

	var actionTaken bool
	switch {
	case op.Operation == models.OperationDelete && record == nil:
		// both sides agree the entity is gone
		resolution.Winner = models.WinnerLocal
	case op.Operation == models.OperationDelete && localWins:
		resolution.Winner = models.WinnerLocal
		if err = r.remote.Delete(ctx, op.EntityType, op.EntityID, op.Data); err != nil {
			return models.ResolveResult{}, err
		}
		actionTaken = true
	case localWins:
		resolution.Winner = models.WinnerLocal
		if err = r.push(ctx, op); err != nil {
			return models.ResolveResult{}, err
		}
		actionTaken = true
	default:
		// remote is newer; for a delete this resurrects the entity locally
		resolution.Winner = models.WinnerCloud
		if err = r.local.Write(ctx, op.EntityType, op.EntityID, record.Data); err != nil {
			return models.ResolveResult{}, err
		}
		actionTaken = true
	}

	r.logger.Info().
		Str("func", "*Resolver.Resolve").
		Str("entity_type", string(op.EntityType)).
		Str("entity_id", op.EntityID).
		Str("operation", string(op.Operation)).
		Str("winner", string(resolution.Winner)).
		Int64("local_timestamp", resolution.LocalTimestamp).
		Int64("cloud_timestamp", resolution.CloudTimestamp).
		Bool("action_taken", actionTaken).
		Msg("conflict resolved")

	return models.ResolveResult{Resolution: resolution, ActionTaken: actionTaken}, nil
}

func (r *Resolver) push(ctx context.Context, op models.SyncOperation) error {
	err := r.remote.Write(ctx, op.EntityType, op.EntityID, op.Data)
	if err == nil {
		return nil
	}

	if IsAutoResolvable(err) {
		r.logger.Debug().
			Err(err).
			Str("func", "*Resolver.push").
			Str("entity_type", string(op.EntityType)).
			Str("entity_id", op.EntityID).
			Msg("remote already holds the entity, treating push as done")
		return nil
	}

	return err
}

func validateOperation(op models.SyncOperation) error {
	const opName = "Resolver.Resolve"

	if strings.TrimSpace(op.EntityID) == "" {
		return apperrors.Validation(opName, "entityId", "must not be blank")
	}
	if strings.TrimSpace(op.EntityID) != op.EntityID {
		return apperrors.Validation(opName, "entityId", "must not have leading or trailing whitespace")
	}
	if op.Timestamp <= 0 || op.Timestamp == math.MaxInt64 {
		return apperrors.Validation(opName, "timestamp", "must be a positive finite number")
	}
	if !op.EntityType.Valid() {
		return apperrors.Validation(opName, "entityType", "unknown entity type "+string(op.EntityType))
	}
	if !op.Operation.Valid() {
		return apperrors.Validation(opName, "operation", "unknown operation "+string(op.Operation))
	}
	return nil
}

// CloudTimestamp returns the remote modification time in milliseconds.
// A nil record means "no remote copy" and yields 0. A live record with an
// empty or unparseable UpdatedAt is an error.
func CloudTimestamp(record *models.CloudRecord) (int64, error) {
	if record == nil {
		return 0, nil
	}

	raw := strings.TrimSpace(record.UpdatedAt)
	if raw == "" {
		return 0, apperrors.Validation("CloudTimestamp", "updatedAt", "remote record has no update time")
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return 0, apperrors.Validation("CloudTimestamp", "updatedAt", "unparseable update time "+raw)
	}

	return t.UnixMilli(), nil
}
