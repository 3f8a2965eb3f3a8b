package mldsa

import (
	"crypto/sha3"
	"errors"
	"io"
)

// LegacyPrivateKey65 is the private key for the round-3 CRYSTALS-Dilithium3
// wrapper that ML-DSA-65 evolved from.
type LegacyPrivateKey65 struct {
	rho [32]byte
	key [32]byte
	tr  [legacyCTildeBytes65]byte
	s1  [l65]ringElement
	s2  [k65]ringElement
	t0  [k65]ringElement
	a   [k65 * l65]nttElement
}

// LegacyPublicKey65 is the public key for legacy Dilithium3.
type LegacyPublicKey65 struct {
	rho [32]byte
	t1  [k65]ringElement
	tr  [legacyCTildeBytes65]byte
	a   [k65 * l65]nttElement
}

// LegacyKey65 is a Dilithium3 key pair.
type LegacyKey65 struct {
	LegacyPrivateKey65
	seed [32]byte
}

// GenerateLegacyKey65 generates a new Dilithium3 key pair.
func GenerateLegacyKey65(rand io.Reader) (*LegacyKey65, error) {
	var seed [SeedSize]byte
	if _, err := io.ReadFull(rand, seed[:]); err != nil {
		return nil, err
	}
	return NewLegacyKey65(seed[:])
}

// NewLegacyKey65 creates a Dilithium3 key pair from a seed.
func NewLegacyKey65(seed []byte) (*LegacyKey65, error) {
	if len(seed) != SeedSize {
		return nil, ErrBadSeedLength
	}
	key := &LegacyKey65{}
	copy(key.seed[:], seed)
	key.generate()
	return key, nil
}

func (key *LegacyKey65) generate() {
	h := sha3.NewSHAKE256()
	h.Write(key.seed[:])

	var expanded [128]byte
	h.Read(expanded[:])

	copy(key.rho[:], expanded[:32])
	rho1 := expanded[32:96]
	copy(key.key[:], expanded[96:128])

	for i := 0; i < l65; i++ {
		key.s1[i] = sampleBoundedPoly(rho1, eta4, uint16(i))
	}
	for i := 0; i < k65; i++ {
		key.s2[i] = sampleBoundedPoly(rho1, eta4, uint16(l65+i))
	}

	for i := 0; i < k65; i++ {
		for j := 0; j < l65; j++ {
			key.a[i*l65+j] = sampleNTTPoly(key.rho[:], byte(j), byte(i))
		}
	}

	var s1NTT [l65]nttElement
	for i := 0; i < l65; i++ {
		s1NTT[i] = ntt(key.s1[i])
	}

	var t1 [k65]ringElement
	var t0 [k65]ringElement
	for i := 0; i < k65; i++ {
		var acc nttElement
		for j := 0; j < l65; j++ {
			acc = polyAdd(acc, nttMul(key.a[i*l65+j], s1NTT[j]))
		}
		t := polyAdd(invNTT(acc), key.s2[i])
		for j := 0; j < n; j++ {
			t1[i][j], t0[i][j] = power2Round(t[j])
		}
	}
	key.t0 = t0

	b := make([]byte, LegacyPublicKeySize65)
	copy(b[:32], key.rho[:])
	offset := 32
	for i := 0; i < k65; i++ {
		copy(b[offset:], packT1(t1[i]))
		offset += encodingSize10
	}
	h.Reset()
	h.Write(b)
	h.Read(key.tr[:])
}

// PublicKey returns the public key.
func (key *LegacyKey65) PublicKey() *LegacyPublicKey65 {
	pk := &LegacyPublicKey65{rho: key.rho, tr: key.tr, a: key.a}
	var s1NTT [l65]nttElement
	for i := 0; i < l65; i++ {
		s1NTT[i] = ntt(key.s1[i])
	}
	for i := 0; i < k65; i++ {
		var acc nttElement
		for j := 0; j < l65; j++ {
			acc = polyAdd(acc, nttMul(key.a[i*l65+j], s1NTT[j]))
		}
		t := polyAdd(invNTT(acc), key.s2[i])
		for j := 0; j < n; j++ {
			pk.t1[i][j], _ = power2Round(t[j])
		}
	}
	return pk
}

// Bytes returns the encoded public key.
func (pk *LegacyPublicKey65) Bytes() []byte {
	b := make([]byte, LegacyPublicKeySize65)
	copy(b[:32], pk.rho[:])
	offset := 32
	for i := 0; i < k65; i++ {
		copy(b[offset:], packT1(pk.t1[i]))
		offset += encodingSize10
	}
	return b
}

// NewLegacyPublicKey65 parses an encoded Dilithium3 public key.
func NewLegacyPublicKey65(b []byte) (*LegacyPublicKey65, error) {
	if len(b) != LegacyPublicKeySize65 {
		return nil, errors.New("mldsa: invalid legacy public key length")
	}
	pk := &LegacyPublicKey65{}
	copy(pk.rho[:], b[:32])
	offset := 32
	for i := 0; i < k65; i++ {
		pk.t1[i] = unpackT1(b[offset : offset+encodingSize10])
		offset += encodingSize10
	}
	for i := 0; i < k65; i++ {
		for j := 0; j < l65; j++ {
			pk.a[i*l65+j] = sampleNTTPoly(pk.rho[:], byte(j), byte(i))
		}
	}
	h := sha3.NewSHAKE256()
	h.Write(b)
	h.Read(pk.tr[:])
	return pk, nil
}

// Bytes returns the encoded legacy private key.
func (sk *LegacyPrivateKey65) Bytes() []byte {
	b := make([]byte, LegacySecretKeySize65)
	copy(b[:32], sk.rho[:])
	copy(b[32:64], sk.key[:])
	copy(b[64:96], sk.tr[:])

	offset := 96
	for i := 0; i < l65; i++ {
		copy(b[offset:], packEta4(sk.s1[i]))
		offset += encodingSize4
	}
	for i := 0; i < k65; i++ {
		copy(b[offset:], packEta4(sk.s2[i]))
		offset += encodingSize4
	}
	for i := 0; i < k65; i++ {
		copy(b[offset:], packT0(sk.t0[i]))
		offset += encodingSize13
	}
	return b
}

// NewLegacyPrivateKey65 parses an encoded legacy private key.
func NewLegacyPrivateKey65(b []byte) (*LegacyPrivateKey65, error) {
	if len(b) != LegacySecretKeySize65 {
		return nil, errors.New("mldsa: invalid legacy private key length")
	}
	sk := &LegacyPrivateKey65{}
	copy(sk.rho[:], b[:32])
	copy(sk.key[:], b[32:64])
	copy(sk.tr[:], b[64:96])

	offset := 96
	var err error
	for i := 0; i < l65; i++ {
		sk.s1[i], err = unpackEta4(b[offset : offset+encodingSize4])
		if err != nil {
			return nil, err
		}
		offset += encodingSize4
	}
	for i := 0; i < k65; i++ {
		sk.s2[i], err = unpackEta4(b[offset : offset+encodingSize4])
		if err != nil {
			return nil, err
		}
		offset += encodingSize4
	}
	for i := 0; i < k65; i++ {
		sk.t0[i] = unpackT0(b[offset : offset+encodingSize13])
		offset += encodingSize13
	}
	for i := 0; i < k65; i++ {
		for j := 0; j < l65; j++ {
			sk.a[i*l65+j] = sampleNTTPoly(sk.rho[:], byte(j), byte(i))
		}
	}
	return sk, nil
}

// Sign signs message with the legacy Dilithium3 key.
func (sk *LegacyPrivateKey65) Sign(rand io.Reader, message []byte, hedged bool) ([]byte, error) {
	rnd, err := signRandomizer(rand, hedged)
	if err != nil {
		return nil, err
	}
	return sk.signInternal(rnd[:], message)
}

func (sk *LegacyPrivateKey65) signInternal(rnd, message []byte) ([]byte, error) {
	h := sha3.NewSHAKE256()
	h.Write(sk.tr[:])
	h.Write(message)

	var mu [64]byte
	h.Read(mu[:])

	h.Reset()
	h.Write(sk.key[:])
	h.Write(rnd)
	h.Write(mu[:])

	var rhoPrime [64]byte
	h.Read(rhoPrime[:])

	var s1NTT [l65]nttElement
	var s2NTT [k65]nttElement
	var t0NTT [k65]nttElement
	for i := 0; i < l65; i++ {
		s1NTT[i] = ntt(sk.s1[i])
	}
	for i := 0; i < k65; i++ {
		s2NTT[i] = ntt(sk.s2[i])
		t0NTT[i] = ntt(sk.t0[i])
	}

	var seedBuf [66]byte
	copy(seedBuf[:64], rhoPrime[:])

	for kappa := uint16(0); ; kappa += l65 {
		var y [l65]ringElement
		for i := 0; i < l65; i++ {
			seedBuf[64] = byte(kappa + uint16(i))
			seedBuf[65] = byte((kappa + uint16(i)) >> 8)
			y[i] = expandMask(seedBuf[:], gamma1Bits19)
		}

		var yNTT [l65]nttElement
		for i := 0; i < l65; i++ {
			yNTT[i] = ntt(y[i])
		}

		var w [k65]ringElement
		var w1 [k65]ringElement
		for i := 0; i < k65; i++ {
			var acc nttElement
			for j := 0; j < l65; j++ {
				acc = polyAdd(acc, nttMul(sk.a[i*l65+j], yNTT[j]))
			}
			w[i] = invNTT(acc)
			for j := 0; j < n; j++ {
				w1[i][j] = fieldElement(highBits(w[i][j], gamma2QMinus1Div32))
			}
		}

		h.Reset()
		h.Write(mu[:])
		for i := 0; i < k65; i++ {
			h.Write(packW1_4(w1[i]))
		}
		var cTilde [legacyCTildeBytes65]byte
		h.Read(cTilde[:])

		c := sampleChallenge(cTilde[:], tau49)
		cNTT := ntt(c)

		var z [l65]ringElement
		for i := 0; i < l65; i++ {
			cs1 := invNTT(nttMul(cNTT, s1NTT[i]))
			z[i] = polyAdd(y[i], cs1)
		}
		if vectorInfinityNorm(z[:]) >= gamma1Pow19-beta65 {
			continue
		}

		var r0 [k65][n]int32
		for i := 0; i < k65; i++ {
			cs2 := invNTT(nttMul(cNTT, s2NTT[i]))
			for j := 0; j < n; j++ {
				_, r0[i][j] = decompose(fieldSub(w[i][j], cs2[j]), gamma2QMinus1Div32)
			}
		}
		if vectorInfinityNormSigned(r0[:]) >= int32(gamma2QMinus1Div32-beta65) {
			continue
		}

		var ct0 [k65]ringElement
		for i := 0; i < k65; i++ {
			ct0[i] = invNTT(nttMul(cNTT, t0NTT[i]))
		}
		if vectorInfinityNorm(ct0[:]) >= gamma2QMinus1Div32 {
			continue
		}

		var hints [k65]ringElement
		for i := 0; i < k65; i++ {
			cs2 := invNTT(nttMul(cNTT, s2NTT[i]))
			for j := 0; j < n; j++ {
				r := fieldSub(w[i][j], cs2[j])
				hints[i][j] = makeHint(ct0[i][j], r, gamma2QMinus1Div32)
			}
		}
		if countOnes(hints[:]) > omega55 {
			continue
		}

		sig := make([]byte, LegacySignatureSize65)
		copy(sig[:legacyCTildeBytes65], cTilde[:])
		offset := legacyCTildeBytes65
		for i := 0; i < l65; i++ {
			copy(sig[offset:], packZ19(z[i]))
			offset += encodingSize20
		}
		copy(sig[offset:], packHint(hints[:], omega55))

		return sig, nil
	}
}

// Verify checks a legacy Dilithium3 signature against the raw message.
func (pk *LegacyPublicKey65) Verify(sig, message []byte) bool {
	if len(sig) != LegacySignatureSize65 {
		return false
	}

	h := sha3.NewSHAKE256()
	h.Write(pk.tr[:])
	h.Write(message)

	var mu [64]byte
	h.Read(mu[:])

	cTilde := sig[:legacyCTildeBytes65]
	offset := legacyCTildeBytes65

	var z [l65]ringElement
	for i := 0; i < l65; i++ {
		z[i] = unpackZ19Sig(sig[offset : offset+encodingSize20])
		offset += encodingSize20
	}
	if vectorInfinityNorm(z[:]) >= gamma1Pow19-beta65 {
		return false
	}

	var hints [k65]ringElement
	if !unpackHint(sig[offset:], hints[:], omega55) {
		return false
	}

	c := sampleChallenge(cTilde, tau49)
	cNTT := ntt(c)

	var zNTT [l65]nttElement
	for i := 0; i < l65; i++ {
		zNTT[i] = ntt(z[i])
	}

	var t1NTT [k65]nttElement
	for i := 0; i < k65; i++ {
		var t1Scaled ringElement
		for j := 0; j < n; j++ {
			t1Scaled[j] = pk.t1[i][j] << d
		}
		t1NTT[i] = ntt(t1Scaled)
	}

	var w1 [k65]ringElement
	h.Reset()
	h.Write(mu[:])
	for i := 0; i < k65; i++ {
		var acc nttElement
		for j := 0; j < l65; j++ {
			acc = polyAdd(acc, nttMul(pk.a[i*l65+j], zNTT[j]))
		}
		ct1 := nttMul(cNTT, t1NTT[i])
		acc = polySub(acc, ct1)
		wApprox := invNTT(acc)
		for j := 0; j < n; j++ {
			w1[i][j] = useHint(hints[i][j], wApprox[j], gamma2QMinus1Div32)
		}
		h.Write(packW1_4(w1[i]))
	}

	var cTildeCheck [legacyCTildeBytes65]byte
	h.Read(cTildeCheck[:])

	var diff byte
	for i := range cTilde {
		diff |= cTilde[i] ^ cTildeCheck[i]
	}
	return diff == 0
}

// Sign signs message using the key pair's private key.
func (key *LegacyKey65) Sign(rand io.Reader, message []byte, hedged bool) ([]byte, error) {
	return key.LegacyPrivateKey65.Sign(rand, message, hedged)
}
