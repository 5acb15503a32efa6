package keys

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Vectors from the NIP-19 reference examples.
const (
	vectorSecretHex = "67dea2ed018072d675f5415ecfaed7d2597555e202d85b3d65ea4e58d2d92ffa"
	vectorNsec      = "nsec1vl029mgpspedva04g90vltkh6fvh240zqtv9k0t9af8935ke9laqsnlfe5"
	vectorPublicHex = "7e7e9c42a91bfef19fa929e5fda1b72e0ebc1a4c1141673e2794234d86addf4e"
	vectorNpub      = "npub10elfcs4fr0l0r8af98jlmgdh9c8tcxjvz9qkw038js35mp4dma8qzvjptg"
)

func TestFromSecretBech32(t *testing.T) {
	key, err := FromSecret(vectorNsec)
	require.NoError(t, err)
	assert.Equal(t, vectorSecretHex, key.SecretHex)
	assert.Equal(t, vectorNsec, key.Nsec)
}

func TestFromSecretHex(t *testing.T) {
	key, err := FromSecret(vectorSecretHex)
	require.NoError(t, err)
	assert.Equal(t, vectorNsec, key.Nsec)
	assert.Len(t, key.PublicHex, 64)
	assert.Contains(t, key.Npub, "npub1")
}

func TestFromSecretRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "hunter2", "nsec1notvalidbech32", "abcd"} {
		_, err := FromSecret(raw)
		assert.ErrorIs(t, err, ErrInvalidKeyFormat, "input %q", raw)
	}
}

func TestGenerateRoundTrips(t *testing.T) {
	key, err := Generate()
	require.NoError(t, err)

	again, err := FromSecret(key.Nsec)
	require.NoError(t, err)
	assert.Equal(t, key, again)
}

func TestResolvePrecedence(t *testing.T) {
	flagKey, err := Generate()
	require.NoError(t, err)
	envKey, err := Generate()
	require.NoError(t, err)
	fileKey, err := Generate()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, fileKey.Save(path))

	got, err := Resolve(flagKey.Nsec, envKey.Nsec, path)
	require.NoError(t, err)
	assert.Equal(t, flagKey.PublicHex, got.PublicHex, "flag wins")

	got, err = Resolve("", envKey.Nsec, path)
	require.NoError(t, err)
	assert.Equal(t, envKey.PublicHex, got.PublicHex, "environment beats file")

	got, err = Resolve("", "", path)
	require.NoError(t, err)
	assert.Equal(t, fileKey.PublicHex, got.PublicHex, "file is the fallback")
}

func TestResolveMissing(t *testing.T) {
	_, err := Resolve("", "", filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestResolveMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Resolve("", "", path)
	assert.ErrorIs(t, err, ErrMalformedKeyFile)
}

func TestResolveFileMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"note":"hi"}`), 0o600))

	_, err := Resolve("", "", path)
	assert.ErrorIs(t, err, ErrMalformedKeyFile)
}

func TestResolveFilePrivateKeyField(t *testing.T) {
	key, err := Generate()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "key.json")
	body := `{"privateKey":"` + key.SecretHex + `"}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	got, err := Resolve("", "", path)
	require.NoError(t, err)
	assert.Equal(t, key.Npub, got.Npub)
}

func TestSavePermissions(t *testing.T) {
	key, err := Generate()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "nested", "key.json")
	require.NoError(t, key.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestParsePublicKey(t *testing.T) {
	pk, err := ParsePublicKey(vectorNpub)
	require.NoError(t, err)
	assert.Equal(t, vectorPublicHex, pk)

	pk, err = ParsePublicKey(vectorPublicHex)
	require.NoError(t, err)
	assert.Equal(t, vectorPublicHex, pk)

	_, err = ParsePublicKey("alice")
	assert.Error(t, err, "names are not public keys")
}
