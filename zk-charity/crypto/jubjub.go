package crypto

import (
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/big"

	tedwards "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"golang.org/x/crypto/blake2s"
)

const PubKeySize = 32

var ErrInvalidPubKey = errors.New("invalid public key")

//
// GenerateKey

func NewKey() (*jubjub.PrivateKey, error) {
	return jubjub.GenerateKey(crand.Reader)
}

func NewPub() *jubjub.PublicKey {
	return new(jubjub.PublicKey)
}

// ParsePub decodes a compressed public key and checks it is on the curve.
func ParsePub(bz []byte) (*jubjub.PublicKey, error) {
	if len(bz) != PubKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPubKey, PubKeySize, len(bz))
	}
	pub := NewPub()
	if _, err := pub.SetBytes(bz); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPubKey, err)
	}
	if !pub.A.IsOnCurve() {
		return nil, fmt.Errorf("%w: not on curve", ErrInvalidPubKey)
	}
	return pub, nil
}

// ECDHEComputeSharedSecret computes the ECDHE shared secret
// sharedSecret = privateKey * otherPublicKey
func ECDHEComputeSharedSecret(privateKey *jubjub.PrivateKey, otherPublicKey *jubjub.PublicKey) ([]byte, error) {
	if !otherPublicKey.A.IsOnCurve() {
		return nil, errors.New("other public key is not on curve")
	}

	var sharedSecret tedwards.PointAffine

	scalarBytes := privateKey.Bytes()
	scalarBigInt := new(big.Int).SetBytes(scalarBytes[32:64])
	sharedSecret.ScalarMultiplication(&otherPublicKey.A, scalarBigInt)

	if !sharedSecret.IsOnCurve() {
		return nil, errors.New("computed shared secret is not on curve")
	}

	hasher, err := blake2s.New256(nil)
	if err != nil {
		return nil, err
	}
	ax := sharedSecret.X.Bytes()
	hasher.Write(ax[:])
	return hasher.Sum(nil), nil
}

// NoteKDF derives a key stream of outputLen bytes from a shared secret,
// expanding with a counter like HKDF-Expand.
func NoteKDF(sharedSecret []byte, outputLen int) ([]byte, error) {
	if len(sharedSecret) != 32 {
		return nil, fmt.Errorf("sharedSecret must be 32 bytes")
	}

	personalization := []byte("ZkCharity_NoteKDF")

	var keyStream []byte
	var counter byte = 1
	for len(keyStream) < outputLen {
		h, err := blake2s.New256(personalization)
		if err != nil {
			return nil, fmt.Errorf("failed to create blake2s hash: %w", err)
		}
		h.Write(sharedSecret)
		h.Write([]byte{counter})

		keyStream = append(keyStream, h.Sum(nil)...)

		counter++
		if counter == 0 {
			return nil, errors.New("KDF counter overflow")
		}
	}

	return keyStream[:outputLen], nil
}

// SealTo encrypts plaintext to the holder of recipient's private key.
// The output is [ephemeral public key | ciphertext].
func SealTo(recipient *jubjub.PublicKey, plaintext []byte) ([]byte, error) {
	ephemeral, err := NewKey()
	if err != nil {
		return nil, err
	}
	shared, err := ECDHEComputeSharedSecret(ephemeral, recipient)
	if err != nil {
		return nil, err
	}
	ks, err := NoteKDF(shared, 44)
	if err != nil {
		return nil, err
	}
	epk := ephemeral.PublicKey.Bytes()
	ct, err := EncryptNote(ks[:32], ks[32:44], plaintext, epk)
	if err != nil {
		return nil, err
	}
	return append(epk, ct...), nil
}

// OpenWith reverses SealTo.
func OpenWith(prv *jubjub.PrivateKey, sealed []byte) ([]byte, error) {
	if len(sealed) <= PubKeySize {
		return nil, errors.New("sealed note too short")
	}
	epkBytes := sealed[:PubKeySize]
	epk, err := ParsePub(epkBytes)
	if err != nil {
		return nil, err
	}
	shared, err := ECDHEComputeSharedSecret(prv, epk)
	if err != nil {
		return nil, err
	}
	ks, err := NoteKDF(shared, 44)
	if err != nil {
		return nil, err
	}
	return DecryptNote(ks[:32], ks[32:44], sealed[PubKeySize:], epkBytes)
}
