package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-long-enough-123"

func enableEncryption(t *testing.T) {
	t.Helper()
	t.Setenv("COLEGIOBOT_ENABLE_ENCRYPTION", "true")
	t.Setenv("COLEGIOBOT_ENCRYPTION_SECRET", testSecret)
}

func TestEncryptor_Disabled(t *testing.T) {
	t.Setenv("COLEGIOBOT_ENABLE_ENCRYPTION", "false")

	enc, err := NewEncryptor()
	require.NoError(t, err)

	out, err := enc.EncryptIfEnabled("hola")
	require.NoError(t, err)
	assert.Equal(t, "hola", out)
}

func TestEncryptor_RoundTrip(t *testing.T) {
	enableEncryption(t)

	enc, err := NewEncryptor()
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt("quiero agendar una visita")
	require.NoError(t, err)
	assert.NotEqual(t, "quiero agendar una visita", ciphertext)

	plaintext, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "quiero agendar una visita", plaintext)
}

func TestEncryptor_LookupIsDeterministic(t *testing.T) {
	enableEncryption(t)

	enc, err := NewEncryptor()
	require.NoError(t, err)

	first, err := enc.EncryptForLookup("+5215512345678")
	require.NoError(t, err)
	second, err := enc.EncryptForLookup("+5215512345678")
	require.NoError(t, err)

	// Equal plaintexts must produce equal ciphertexts so the phone
	// UNIQUE constraint keeps working.
	assert.Equal(t, first, second)

	other, err := enc.EncryptForLookup("+5215587654321")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestEncryptor_ShortSecretRejected(t *testing.T) {
	t.Setenv("COLEGIOBOT_ENABLE_ENCRYPTION", "true")
	t.Setenv("COLEGIOBOT_ENCRYPTION_SECRET", "too-short")

	_, err := NewEncryptor()
	assert.Error(t, err)
}

func TestEncryptor_MissingSecretRejected(t *testing.T) {
	t.Setenv("COLEGIOBOT_ENABLE_ENCRYPTION", "true")
	t.Setenv("COLEGIOBOT_ENCRYPTION_SECRET", "")

	_, err := NewEncryptor()
	assert.Error(t, err)
}

func TestEncryptor_EmptyStringPassesThrough(t *testing.T) {
	enableEncryption(t)

	enc, err := NewEncryptor()
	require.NoError(t, err)

	out, err := enc.Encrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}
