package crypto

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrDecrypt means the key, nonce, ciphertext or associated data did not match.
var ErrDecrypt = errors.New("failed to decrypt note")

// EncryptNote encrypts a donation note with ChaCha20-Poly1305.
//
// Parameters:
//   - key: A 32-byte symmetric encryption key.
//   - nonce: A 12-byte nonce, unique for each encryption under the same key.
//   - plaintext: The serialized DonationNote.
//   - additionalData: Authenticated but not encrypted. SealTo passes the
//     ephemeral public key.
//
// The returned ciphertext carries the authentication tag.
func EncryptNote(key, nonce, plaintext, additionalData []byte) ([]byte, error) {
	aead, err := newAEAD(key, nonce)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, additionalData), nil
}

// DecryptNote opens a ciphertext produced by EncryptNote.
func DecryptNote(key, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	aead, err := newAEAD(key, nonce)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plaintext, nil
}

type aeadCipher interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
}

func newAEAD(key, nonce []byte) (aeadCipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("invalid key size: must be %d bytes", chacha20poly1305.KeySize)
	}
	if len(nonce) != chacha20poly1305.NonceSize {
		return nil, fmt.Errorf("invalid nonce size: must be %d bytes", chacha20poly1305.NonceSize)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create ChaCha20-Poly1305 AEAD: %w", err)
	}
	return aead, nil
}
