package models

import "encoding/json"

// EntityType names one business record type that can be synchronised.
// The set is closed: anything outside it is rejected before resolution.
type EntityType string

const (
	EntityPlayer           EntityType = "player"
	EntityTeam             EntityType = "team"
	EntityGame             EntityType = "game"
	EntitySeason           EntityType = "season"
	EntityTournament       EntityType = "tournament"
	EntityPersonnel        EntityType = "personnel"
	EntitySettings         EntityType = "settings"
	EntityTeamRoster       EntityType = "teamRoster"
	EntityPlayerAdjustment EntityType = "playerAdjustment"
	EntityWarmupPlan       EntityType = "warmupPlan"
)

// EntityTypes lists every supported [EntityType].
var EntityTypes = []EntityType{
	EntityPlayer,
	EntityTeam,
	EntityGame,
	EntitySeason,
	EntityTournament,
	EntityPersonnel,
	EntitySettings,
	EntityTeamRoster,
	EntityPlayerAdjustment,
	EntityWarmupPlan,
}

// Valid reports whether t belongs to the closed entity set.
func (t EntityType) Valid() bool {
	for _, known := range EntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// OperationKind is the kind of mutation a [SyncOperation] carries.
type OperationKind string

const (
	OperationCreate OperationKind = "create"
	OperationUpdate OperationKind = "update"
	OperationDelete OperationKind = "delete"
)

// Valid reports whether k is create, update or delete.
func (k OperationKind) Valid() bool {
	switch k {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// OperationStatus is the queue state of a [SyncOperation].
type OperationStatus string

const (
	StatusPending OperationStatus = "pending"
	StatusSyncing OperationStatus = "syncing"
	StatusFailed  OperationStatus = "failed"
)

// SyncOperation is one pending local change waiting to be reconciled with the
// remote store.
type SyncOperation struct {
	// ID is an opaque unique token assigned on enqueue.
	ID string `json:"id"`

	EntityType EntityType `json:"entityType"`

	// EntityID identifies the entity inside its type. Never blank.
	EntityID string `json:"entityId"`

	Operation OperationKind `json:"operation"`

	// Data is the opaque entity payload; JSON null for deletes.
	Data json.RawMessage `json:"data"`

	// Timestamp is the moment the user action happened (ms since epoch),
	// not the moment the operation was queued.
	Timestamp int64 `json:"timestamp"`

	Status     OperationStatus `json:"status"`
	RetryCount int             `json:"retryCount"`
	MaxRetries int             `json:"maxRetries"`

	LastError   string `json:"lastError,omitempty"`
	LastAttempt int64  `json:"lastAttempt,omitempty"`

	// CreatedAt is the first enqueue time; deduplication keeps it.
	CreatedAt int64 `json:"createdAt"`
}

// HasData reports whether the operation carries a non-null payload.
func (o SyncOperation) HasData() bool {
	return len(o.Data) > 0 && string(o.Data) != "null"
}
