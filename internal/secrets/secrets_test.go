package secrets

import (
	"testing"

	"filippo.io/age"
	"github.com/evdal/switchback/internal/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundtrip(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)

	encrypted, err := Encrypt("hunter2", identity.Recipient())
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", encrypted)

	decrypted, err := Decrypt(encrypted, identity)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", decrypted)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)

	_, err = Decrypt("not-base64!!", identity)
	assert.Error(t, err)
}

func TestGetAgeIdentityFromEnv(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)

	t.Setenv(constants.EnvVarAgeIdentity, identity.String())
	parsed, err := GetAgeIdentity()
	require.NoError(t, err)
	assert.Equal(t, identity.Recipient().String(), parsed.Recipient().String())
}

func TestGetAgeIdentityMissingEnv(t *testing.T) {
	t.Setenv(constants.EnvVarAgeIdentity, "")
	_, err := GetAgeIdentity()
	assert.ErrorContains(t, err, constants.EnvVarAgeIdentity)
}
