package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MKhiriev/go-sync-engine/models"
)

// EntityStore keeps the local copy of every synchronised entity in a
// [KeyValueStore] under "<entityType>:<entityID>".
type EntityStore struct {
	kv KeyValueStore
}

// NewEntityStore wraps kv.
func NewEntityStore(kv KeyValueStore) *EntityStore {
	return &EntityStore{kv: kv}
}

// EntityKey returns the storage key of an entity.
func EntityKey(entityType models.EntityType, entityID string) string {
	return string(entityType) + ":" + entityID
}

// Write stores data as the local copy of the entity. A null or empty
// payload removes the copy.
func (e *EntityStore) Write(ctx context.Context, entityType models.EntityType, entityID string, data json.RawMessage) error {
	if entityType == "" || strings.TrimSpace(entityID) == "" {
		return ErrInvalidEntityKey
	}

	key := EntityKey(entityType, entityID)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return e.kv.Delete(ctx, key)
	}

	if err := e.kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("error writing entity %s: %w", key, err)
	}
	return nil
}

// Read returns the local copy, or [ErrKeyNotFound].
func (e *EntityStore) Read(ctx context.Context, entityType models.EntityType, entityID string) (json.RawMessage, error) {
	data, err := e.kv.Get(ctx, EntityKey(entityType, entityID))
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Delete removes the local copy.
func (e *EntityStore) Delete(ctx context.Context, entityType models.EntityType, entityID string) error {
	return e.kv.Delete(ctx, EntityKey(entityType, entityID))
}
