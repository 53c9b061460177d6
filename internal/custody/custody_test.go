package custody

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	masterKey := strings.Repeat("0a", 32)
	nonce := strings.Repeat("1b", 24)
	secret := []byte("59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d")

	cipher, err := Encrypt(secret, masterKey, nonce)
	require.NoError(t, err)
	require.NotContains(t, cipher, string(secret))

	plain, err := Decrypt(cipher, masterKey, nonce)
	require.NoError(t, err)
	require.Equal(t, secret, plain)
}

func TestDecryptWrongMasterKeyFails(t *testing.T) {
	masterKey := strings.Repeat("0a", 32)
	nonce := strings.Repeat("1b", 24)

	cipher, err := Encrypt([]byte("secret material"), masterKey, nonce)
	require.NoError(t, err)

	_, err = Decrypt(cipher, strings.Repeat("ff", 32), nonce)
	require.ErrorIs(t, err, ErrDecrypt)
}

func TestDecryptRejectsMalformedInputs(t *testing.T) {
	masterKey := strings.Repeat("0a", 32)
	nonce := strings.Repeat("1b", 24)

	_, err := Decrypt("not-hex", masterKey, nonce)
	require.ErrorIs(t, err, ErrDecrypt)

	_, err = Decrypt("abcd", "tooshort", nonce)
	require.ErrorIs(t, err, ErrDecrypt)

	_, err = Decrypt("abcd", masterKey, "deadbeef")
	require.ErrorIs(t, err, ErrDecrypt)
}
