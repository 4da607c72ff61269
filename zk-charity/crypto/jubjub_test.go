package crypto

import (
	crand "crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJubjubKeyGeneration(t *testing.T) {
	priv, err := NewKey()
	require.NoError(t, err)

	pubk := priv.PublicKey
	require.True(t, pubk.A.IsOnCurve(), "Generated public key is not on curve")

	parsed, err := ParsePub(pubk.Bytes())
	require.NoError(t, err)
	require.Equal(t, pubk.Bytes(), parsed.Bytes())

	_, err = ParsePub([]byte{0x1, 0x2})
	require.ErrorIs(t, err, ErrInvalidPubKey)
}

func TestECDHESharedSecret(t *testing.T) {
	alicePriv, err := NewKey()
	require.NoError(t, err)
	bobPriv, err := NewKey()
	require.NoError(t, err)

	sharedSecretAlice, err := ECDHEComputeSharedSecret(alicePriv, &bobPriv.PublicKey)
	require.NoError(t, err)
	sharedSecretBob, err := ECDHEComputeSharedSecret(bobPriv, &alicePriv.PublicKey)
	require.NoError(t, err)
	require.Equal(t, sharedSecretAlice, sharedSecretBob, "Shared secrets do not match")

	keyAlice, err := NoteKDF(sharedSecretAlice, 44)
	require.NoError(t, err)
	keyBob, err := NoteKDF(sharedSecretBob, 44)
	require.NoError(t, err)
	require.Equal(t, keyAlice, keyBob)
	require.Len(t, keyAlice, 44)
}

func TestNoteKDF_BadSecret(t *testing.T) {
	_, err := NoteKDF([]byte("short"), 44)
	require.Error(t, err)
}

func TestSealOpen(t *testing.T) {
	charity, err := NewKey()
	require.NoError(t, err)
	other, err := NewKey()
	require.NoError(t, err)

	msg := []byte("donation of 10 NIGHT")
	sealed, err := SealTo(&charity.PublicKey, msg)
	require.NoError(t, err)

	opened, err := OpenWith(charity, sealed)
	require.NoError(t, err)
	require.Equal(t, msg, opened)

	// a different key can not open it
	_, err = OpenWith(other, sealed)
	require.ErrorIs(t, err, ErrDecrypt)

	// tampered ciphertext
	sealed[len(sealed)-1] ^= 0xff
	_, err = OpenWith(charity, sealed)
	require.ErrorIs(t, err, ErrDecrypt)

	_, err = OpenWith(charity, sealed[:10])
	require.Error(t, err)
}

func BenchmarkECDHESharedSecret(b *testing.B) {
	alicePriv, err := NewKey()
	require.NoError(b, err)
	bobPriv, err := NewKey()
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := ECDHEComputeSharedSecret(alicePriv, &bobPriv.PublicKey)
		require.NoError(b, err)
	}
}

func Test_Encrypt(t *testing.T) {
	m := []byte("hello")

	sharedSecret := make([]byte, 32)
	n, err := crand.Read(sharedSecret)
	require.NoError(t, err)
	require.Equal(t, 32, n)

	ks, err := NoteKDF(sharedSecret, 44)
	require.NoError(t, err)

	enc, err := EncryptNote(ks[:32], ks[32:44], m, []byte("adata"))
	require.NoError(t, err)

	dec, err := DecryptNote(ks[:32], ks[32:44], enc, []byte("adata"))
	require.NoError(t, err)
	require.Equal(t, m, dec)

	_, err = DecryptNote(ks[:32], ks[32:44], enc, []byte("other"))
	require.ErrorIs(t, err, ErrDecrypt)

	_, err = EncryptNote(ks[:31], ks[32:44], m, nil)
	require.Error(t, err)
}
