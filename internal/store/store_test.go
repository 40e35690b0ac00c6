package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"filippo.io/age"
	"github.com/evdal/switchback/internal/constants"
	"github.com/evdal/switchback/internal/deploytypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordRoundtrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	missing, err := db.GetRecord(ctx, "api")
	require.NoError(t, err)
	assert.Nil(t, missing)

	now := time.Now().UTC().Truncate(time.Millisecond)
	record := &deploytypes.DeploymentRecord{
		Target:          "api",
		CurrentArtifact: "model:v1",
		State:           deploytypes.StateStable,
		StartedAt:       now,
		LastTransition:  now,
	}
	require.NoError(t, db.SaveRecord(ctx, record))

	got, err := db.GetRecord(ctx, "api")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "model:v1", got.CurrentArtifact)
	assert.Empty(t, got.PreviousArtifact)
	assert.Equal(t, deploytypes.StateStable, got.State)
	assert.True(t, got.StartedAt.Equal(now))
}

func TestRecordUpsertOverwrites(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	record := &deploytypes.DeploymentRecord{
		Target:          "api",
		CurrentArtifact: "model:v1",
		State:           deploytypes.StateStable,
		StartedAt:       now,
		LastTransition:  now,
	}
	require.NoError(t, db.SaveRecord(ctx, record))

	record.PreviousArtifact = "model:v1"
	record.CurrentArtifact = "model:v2"
	record.State = deploytypes.StateStable
	require.NoError(t, db.SaveRecord(ctx, record))

	got, err := db.GetRecord(ctx, "api")
	require.NoError(t, err)
	assert.Equal(t, "model:v2", got.CurrentArtifact)
	assert.Equal(t, "model:v1", got.PreviousArtifact)

	records, err := db.ListRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestDeploymentHistoryOrderAndPrune(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ids := []string{
		"01J0000000000000000000001",
		"01J0000000000000000000002",
		"01J0000000000000000000003",
	}
	for i, id := range ids {
		require.NoError(t, db.SaveDeployment(ctx, deploytypes.Deployment{
			ID:        id,
			Target:    "api",
			Artifact:  "model:v1",
			State:     deploytypes.StateStable,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	history, err := db.GetDeploymentHistory(ctx, "api", 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, ids[2], history[0].ID, "newest first")

	require.NoError(t, db.PruneOldDeployments(ctx, "api", 2))
	history, err = db.GetDeploymentHistory(ctx, "api", 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, ids[2], history[0].ID)
}

func TestSecretsLifecycle(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	t.Setenv(constants.EnvVarAgeIdentity, identity.String())

	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SetSecret(ctx, "webhook-token", "s3cret"))

	value, err := db.GetSecretDecryptedValue(ctx, "webhook-token")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", value)

	list, err := db.GetSecretsList(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotEqual(t, "s3cret", list[0].EncryptedValue)

	require.NoError(t, db.DeleteSecret(ctx, "webhook-token"))
	assert.Error(t, db.DeleteSecret(ctx, "webhook-token"))

	_, err = db.GetSecretDecryptedValue(ctx, "webhook-token")
	assert.ErrorContains(t, err, "not found")
}

func TestTargetSpecRoundtrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	raw, err := db.GetTargetSpec(ctx, "api")
	require.NoError(t, err)
	assert.Nil(t, raw, "unknown target has no spec")

	spec := json.RawMessage(`{"name":"api","image":"ghcr.io/acme/api:v1","port":"8080"}`)
	require.NoError(t, db.SaveTargetSpec(ctx, "api", spec))

	raw, err = db.GetTargetSpec(ctx, "api")
	require.NoError(t, err)
	assert.JSONEq(t, string(spec), string(raw))

	updated := json.RawMessage(`{"name":"api","image":"ghcr.io/acme/api:v2","port":"8080"}`)
	require.NoError(t, db.SaveTargetSpec(ctx, "api", updated))

	raw, err = db.GetTargetSpec(ctx, "api")
	require.NoError(t, err)
	assert.JSONEq(t, string(updated), string(raw))

	assert.Error(t, db.SaveTargetSpec(ctx, "api", json.RawMessage(`{not json`)))
}
