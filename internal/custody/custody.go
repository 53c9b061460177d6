// Package custody opens the platform's encrypted signing key. The
// plaintext key must never be persisted or logged; callers hold it only
// for the duration of a single signing operation.
package custody

import (
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/nacl/secretbox"
)

var ErrDecrypt = errors.New("custody: cannot decrypt key material")

// Decrypt opens a secretbox ciphertext with the 32-byte master key and
// 24-byte nonce, all hex encoded.
func Decrypt(cipherHex, masterKeyHex, nonceHex string) ([]byte, error) {
	cipher, err := hex.DecodeString(cipherHex)
	if err != nil {
		return nil, ErrDecrypt
	}
	keyBytes, err := hex.DecodeString(masterKeyHex)
	if err != nil || len(keyBytes) != 32 {
		return nil, ErrDecrypt
	}
	nonceBytes, err := hex.DecodeString(nonceHex)
	if err != nil || len(nonceBytes) != 24 {
		return nil, ErrDecrypt
	}

	var key [32]byte
	var nonce [24]byte
	copy(key[:], keyBytes)
	copy(nonce[:], nonceBytes)

	plain, ok := secretbox.Open(nil, cipher, &nonce, &key)
	if !ok {
		return nil, ErrDecrypt
	}
	return plain, nil
}

// Encrypt seals key material for storage. Used by provisioning tooling
// and tests, never on the purchase path.
func Encrypt(plain []byte, masterKeyHex, nonceHex string) (string, error) {
	keyBytes, err := hex.DecodeString(masterKeyHex)
	if err != nil || len(keyBytes) != 32 {
		return "", ErrDecrypt
	}
	nonceBytes, err := hex.DecodeString(nonceHex)
	if err != nil || len(nonceBytes) != 24 {
		return "", ErrDecrypt
	}

	var key [32]byte
	var nonce [24]byte
	copy(key[:], keyBytes)
	copy(nonce[:], nonceBytes)

	sealed := secretbox.Seal(nil, plain, &nonce, &key)
	return hex.EncodeToString(sealed), nil
}
