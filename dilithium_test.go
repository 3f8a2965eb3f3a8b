package mldsa

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLegacySignVerify44(t *testing.T) {
	key, err := GenerateLegacyKey44(rand.Reader)
	require.NoError(t, err)

	message := []byte("legacy dilithium2 message")
	sig, err := key.Sign(rand.Reader, message, true)
	require.NoError(t, err)
	require.Len(t, sig, LegacySignatureSize44)

	pk := key.PublicKey()
	require.True(t, pk.Verify(sig, message))
	require.False(t, pk.Verify(sig, []byte("different message")))

	corrupted := append([]byte(nil), sig...)
	corrupted[0] ^= 0xFF
	require.False(t, pk.Verify(corrupted, message))
}

func TestLegacySignVerify65(t *testing.T) {
	key, err := GenerateLegacyKey65(rand.Reader)
	require.NoError(t, err)

	message := []byte("legacy dilithium3 message")
	sig, err := key.Sign(rand.Reader, message, true)
	require.NoError(t, err)
	require.Len(t, sig, LegacySignatureSize65)

	pk := key.PublicKey()
	require.True(t, pk.Verify(sig, message))
	require.False(t, pk.Verify(sig, []byte("different message")))
}

func TestLegacySignVerify87(t *testing.T) {
	key, err := GenerateLegacyKey87(rand.Reader)
	require.NoError(t, err)

	message := []byte("legacy dilithium5 message")
	sig, err := key.Sign(rand.Reader, message, true)
	require.NoError(t, err)
	require.Len(t, sig, LegacySignatureSize87)

	pk := key.PublicKey()
	require.True(t, pk.Verify(sig, message))
	require.False(t, pk.Verify(sig, []byte("different message")))
}

func TestLegacyDeterministicSign65(t *testing.T) {
	key, err := GenerateLegacyKey65(rand.Reader)
	require.NoError(t, err)

	message := []byte("deterministic legacy signing")
	sig1, err := key.Sign(rand.Reader, message, false)
	require.NoError(t, err)
	sig2, err := key.Sign(rand.Reader, message, false)
	require.NoError(t, err)
	require.Equal(t, sig1, sig2)
}

func TestLegacyKeyRoundtrip65(t *testing.T) {
	key, err := GenerateLegacyKey65(rand.Reader)
	require.NoError(t, err)

	skBytes := key.LegacyPrivateKey65.Bytes()
	sk, err := NewLegacyPrivateKey65(skBytes)
	require.NoError(t, err)
	require.Equal(t, skBytes, sk.Bytes())

	pk := key.PublicKey()
	pkBytes := pk.Bytes()
	pk2, err := NewLegacyPublicKey65(pkBytes)
	require.NoError(t, err)
	require.Equal(t, pkBytes, pk2.Bytes())
}

func TestLegacyPublicKeySizeMatchesMLDSA(t *testing.T) {
	// spec.md §3 ADDED: the public key layout is unchanged between the
	// legacy and ML-DSA wrappers, only secret key and signature differ.
	require.Equal(t, PublicKeySize44, LegacyPublicKeySize44)
	require.Equal(t, PublicKeySize65, LegacyPublicKeySize65)
	require.Equal(t, PublicKeySize87, LegacyPublicKeySize87)
}
