package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-sync-engine/models"
)

func TestEntityStore(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore(0)
	es := NewEntityStore(kv)

	require.NoError(t, es.Write(ctx, models.EntityPlayer, "p1", json.RawMessage(`{"name":"Ann"}`)))

	raw, err := kv.Get(ctx, "player:p1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ann"}`, string(raw))

	got, err := es.Read(ctx, models.EntityPlayer, "p1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ann"}`, string(got))

	// null payload removes the local copy
	require.NoError(t, es.Write(ctx, models.EntityPlayer, "p1", json.RawMessage("null")))
	_, err = es.Read(ctx, models.EntityPlayer, "p1")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestEntityStore_InvalidKey(t *testing.T) {
	es := NewEntityStore(NewMemoryStore(0))

	assert.ErrorIs(t, es.Write(context.Background(), "", "id", json.RawMessage(`{}`)), ErrInvalidEntityKey)
	assert.ErrorIs(t, es.Write(context.Background(), models.EntityTeam, "  ", json.RawMessage(`{}`)), ErrInvalidEntityKey)
}

func TestEntityStore_Delete(t *testing.T) {
	ctx := context.Background()
	es := NewEntityStore(NewMemoryStore(0))

	require.NoError(t, es.Write(ctx, models.EntityTeam, "t1", json.RawMessage(`{}`)))
	require.NoError(t, es.Delete(ctx, models.EntityTeam, "t1"))

	_, err := es.Read(ctx, models.EntityTeam, "t1")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
