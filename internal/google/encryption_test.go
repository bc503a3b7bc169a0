package google

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenEncryption(t *testing.T) {
	key := bytes.Repeat([]byte{7}, 32)
	enc, err := NewTokenEncryption(key)
	require.NoError(t, err)
	assert.True(t, enc.Enabled())

	sealed, err := enc.Encrypt("ya29.secret")
	require.NoError(t, err)
	assert.NotEqual(t, "ya29.secret", sealed)

	again, err := enc.Encrypt("ya29.secret")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonces differ")

	plain, err := enc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "ya29.secret", plain)

	other, err := NewTokenEncryption(bytes.Repeat([]byte{8}, 32))
	require.NoError(t, err)
	_, err = other.Decrypt(sealed)
	assert.Error(t, err)
}

func TestTokenEncryption_Disabled(t *testing.T) {
	enc, err := NewTokenEncryptionFromBase64("")
	require.NoError(t, err)
	assert.False(t, enc.Enabled())

	out, err := enc.Encrypt("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", out)

	var nilEnc *TokenEncryption
	out, err = nilEnc.Decrypt("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", out)
}

func TestNewTokenEncryptionFromBase64(t *testing.T) {
	_, err := NewTokenEncryptionFromBase64("%%%")
	assert.Error(t, err)

	_, err = NewTokenEncryptionFromBase64(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)

	enc, err := NewTokenEncryptionFromBase64(base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, 32)))
	require.NoError(t, err)
	assert.True(t, enc.Enabled())
}
