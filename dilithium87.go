package mldsa

import (
	"crypto/sha3"
	"errors"
	"io"
)

// LegacyPrivateKey87 is the private key for the round-3 CRYSTALS-Dilithium5
// wrapper that ML-DSA-87 evolved from.
type LegacyPrivateKey87 struct {
	rho [32]byte
	key [32]byte
	tr  [legacyCTildeBytes87]byte
	s1  [l87]ringElement
	s2  [k87]ringElement
	t0  [k87]ringElement
	a   [k87 * l87]nttElement
}

// LegacyPublicKey87 is the public key for legacy Dilithium5.
type LegacyPublicKey87 struct {
	rho [32]byte
	t1  [k87]ringElement
	tr  [legacyCTildeBytes87]byte
	a   [k87 * l87]nttElement
}

// LegacyKey87 is a Dilithium5 key pair.
type LegacyKey87 struct {
	LegacyPrivateKey87
	seed [32]byte
}

// GenerateLegacyKey87 generates a new Dilithium5 key pair.
func GenerateLegacyKey87(rand io.Reader) (*LegacyKey87, error) {
	var seed [SeedSize]byte
	if _, err := io.ReadFull(rand, seed[:]); err != nil {
		return nil, err
	}
	return NewLegacyKey87(seed[:])
}

// NewLegacyKey87 creates a Dilithium5 key pair from a seed.
func NewLegacyKey87(seed []byte) (*LegacyKey87, error) {
	if len(seed) != SeedSize {
		return nil, ErrBadSeedLength
	}
	key := &LegacyKey87{}
	copy(key.seed[:], seed)
	key.generate()
	return key, nil
}

func (key *LegacyKey87) generate() {
	h := sha3.NewSHAKE256()
	h.Write(key.seed[:])

	var expanded [128]byte
	h.Read(expanded[:])

	copy(key.rho[:], expanded[:32])
	rho1 := expanded[32:96]
	copy(key.key[:], expanded[96:128])

	for i := 0; i < l87; i++ {
		key.s1[i] = sampleBoundedPoly(rho1, eta2, uint16(i))
	}
	for i := 0; i < k87; i++ {
		key.s2[i] = sampleBoundedPoly(rho1, eta2, uint16(l87+i))
	}

	for i := 0; i < k87; i++ {
		for j := 0; j < l87; j++ {
			key.a[i*l87+j] = sampleNTTPoly(key.rho[:], byte(j), byte(i))
		}
	}

	var s1NTT [l87]nttElement
	for i := 0; i < l87; i++ {
		s1NTT[i] = ntt(key.s1[i])
	}

	var t1 [k87]ringElement
	var t0 [k87]ringElement
	for i := 0; i < k87; i++ {
		var acc nttElement
		for j := 0; j < l87; j++ {
			acc = polyAdd(acc, nttMul(key.a[i*l87+j], s1NTT[j]))
		}
		t := polyAdd(invNTT(acc), key.s2[i])
		for j := 0; j < n; j++ {
			t1[i][j], t0[i][j] = power2Round(t[j])
		}
	}
	key.t0 = t0

	b := make([]byte, LegacyPublicKeySize87)
	copy(b[:32], key.rho[:])
	offset := 32
	for i := 0; i < k87; i++ {
		copy(b[offset:], packT1(t1[i]))
		offset += encodingSize10
	}
	h.Reset()
	h.Write(b)
	h.Read(key.tr[:])
}

// PublicKey returns the public key.
func (key *LegacyKey87) PublicKey() *LegacyPublicKey87 {
	pk := &LegacyPublicKey87{rho: key.rho, tr: key.tr, a: key.a}
	var s1NTT [l87]nttElement
	for i := 0; i < l87; i++ {
		s1NTT[i] = ntt(key.s1[i])
	}
	for i := 0; i < k87; i++ {
		var acc nttElement
		for j := 0; j < l87; j++ {
			acc = polyAdd(acc, nttMul(key.a[i*l87+j], s1NTT[j]))
		}
		t := polyAdd(invNTT(acc), key.s2[i])
		for j := 0; j < n; j++ {
			pk.t1[i][j], _ = power2Round(t[j])
		}
	}
	return pk
}

// Bytes returns the encoded public key.
func (pk *LegacyPublicKey87) Bytes() []byte {
	b := make([]byte, LegacyPublicKeySize87)
	copy(b[:32], pk.rho[:])
	offset := 32
	for i := 0; i < k87; i++ {
		copy(b[offset:], packT1(pk.t1[i]))
		offset += encodingSize10
	}
	return b
}

// NewLegacyPublicKey87 parses an encoded Dilithium5 public key.
func NewLegacyPublicKey87(b []byte) (*LegacyPublicKey87, error) {
	if len(b) != LegacyPublicKeySize87 {
		return nil, errors.New("mldsa: invalid legacy public key length")
	}
	pk := &LegacyPublicKey87{}
	copy(pk.rho[:], b[:32])
	offset := 32
	for i := 0; i < k87; i++ {
		pk.t1[i] = unpackT1(b[offset : offset+encodingSize10])
		offset += encodingSize10
	}
	for i := 0; i < k87; i++ {
		for j := 0; j < l87; j++ {
			pk.a[i*l87+j] = sampleNTTPoly(pk.rho[:], byte(j), byte(i))
		}
	}
	h := sha3.NewSHAKE256()
	h.Write(b)
	h.Read(pk.tr[:])
	return pk, nil
}

// Bytes returns the encoded legacy private key.
func (sk *LegacyPrivateKey87) Bytes() []byte {
	b := make([]byte, LegacySecretKeySize87)
	copy(b[:32], sk.rho[:])
	copy(b[32:64], sk.key[:])
	copy(b[64:96], sk.tr[:])

	offset := 96
	for i := 0; i < l87; i++ {
		copy(b[offset:], packEta2(sk.s1[i]))
		offset += encodingSize3
	}
	for i := 0; i < k87; i++ {
		copy(b[offset:], packEta2(sk.s2[i]))
		offset += encodingSize3
	}
	for i := 0; i < k87; i++ {
		copy(b[offset:], packT0(sk.t0[i]))
		offset += encodingSize13
	}
	return b
}

// NewLegacyPrivateKey87 parses an encoded legacy private key.
func NewLegacyPrivateKey87(b []byte) (*LegacyPrivateKey87, error) {
	if len(b) != LegacySecretKeySize87 {
		return nil, errors.New("mldsa: invalid legacy private key length")
	}
	sk := &LegacyPrivateKey87{}
	copy(sk.rho[:], b[:32])
	copy(sk.key[:], b[32:64])
	copy(sk.tr[:], b[64:96])

	offset := 96
	var err error
	for i := 0; i < l87; i++ {
		sk.s1[i], err = unpackEta2(b[offset : offset+encodingSize3])
		if err != nil {
			return nil, err
		}
		offset += encodingSize3
	}
	for i := 0; i < k87; i++ {
		sk.s2[i], err = unpackEta2(b[offset : offset+encodingSize3])
		if err != nil {
			return nil, err
		}
		offset += encodingSize3
	}
	for i := 0; i < k87; i++ {
		sk.t0[i] = unpackT0(b[offset : offset+encodingSize13])
		offset += encodingSize13
	}
	for i := 0; i < k87; i++ {
		for j := 0; j < l87; j++ {
			sk.a[i*l87+j] = sampleNTTPoly(sk.rho[:], byte(j), byte(i))
		}
	}
	return sk, nil
}

// Sign signs message with the legacy Dilithium5 key.
func (sk *LegacyPrivateKey87) Sign(rand io.Reader, message []byte, hedged bool) ([]byte, error) {
	rnd, err := signRandomizer(rand, hedged)
	if err != nil {
		return nil, err
	}
	return sk.signInternal(rnd[:], message)
}

func (sk *LegacyPrivateKey87) signInternal(rnd, message []byte) ([]byte, error) {
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

	var s1NTT [l87]nttElement
	var s2NTT [k87]nttElement
	var t0NTT [k87]nttElement
	for i := 0; i < l87; i++ {
		s1NTT[i] = ntt(sk.s1[i])
	}
	for i := 0; i < k87; i++ {
		s2NTT[i] = ntt(sk.s2[i])
		t0NTT[i] = ntt(sk.t0[i])
	}

	var seedBuf [66]byte
	copy(seedBuf[:64], rhoPrime[:])

	for kappa := uint16(0); ; kappa += l87 {
		var y [l87]ringElement
		for i := 0; i < l87; i++ {
			seedBuf[64] = byte(kappa + uint16(i))
			seedBuf[65] = byte((kappa + uint16(i)) >> 8)
			y[i] = expandMask(seedBuf[:], gamma1Bits19)
		}

		var yNTT [l87]nttElement
		for i := 0; i < l87; i++ {
			yNTT[i] = ntt(y[i])
		}

		var w [k87]ringElement
		var w1 [k87]ringElement
		for i := 0; i < k87; i++ {
			var acc nttElement
			for j := 0; j < l87; j++ {
				acc = polyAdd(acc, nttMul(sk.a[i*l87+j], yNTT[j]))
			}
			w[i] = invNTT(acc)
			for j := 0; j < n; j++ {
				w1[i][j] = fieldElement(highBits(w[i][j], gamma2QMinus1Div32))
			}
		}

		h.Reset()
		h.Write(mu[:])
		for i := 0; i < k87; i++ {
			h.Write(packW1_4(w1[i]))
		}
		var cTilde [legacyCTildeBytes87]byte
		h.Read(cTilde[:])

		c := sampleChallenge(cTilde[:], tau60)
		cNTT := ntt(c)

		var z [l87]ringElement
		for i := 0; i < l87; i++ {
			cs1 := invNTT(nttMul(cNTT, s1NTT[i]))
			z[i] = polyAdd(y[i], cs1)
		}
		if vectorInfinityNorm(z[:]) >= gamma1Pow19-beta87 {
			continue
		}

		var r0 [k87][n]int32
		for i := 0; i < k87; i++ {
			cs2 := invNTT(nttMul(cNTT, s2NTT[i]))
			for j := 0; j < n; j++ {
				_, r0[i][j] = decompose(fieldSub(w[i][j], cs2[j]), gamma2QMinus1Div32)
			}
		}
		if vectorInfinityNormSigned(r0[:]) >= int32(gamma2QMinus1Div32-beta87) {
			continue
		}

		var ct0 [k87]ringElement
		for i := 0; i < k87; i++ {
			ct0[i] = invNTT(nttMul(cNTT, t0NTT[i]))
		}
		if vectorInfinityNorm(ct0[:]) >= gamma2QMinus1Div32 {
			continue
		}

		var hints [k87]ringElement
		for i := 0; i < k87; i++ {
			cs2 := invNTT(nttMul(cNTT, s2NTT[i]))
			for j := 0; j < n; j++ {
				r := fieldSub(w[i][j], cs2[j])
				hints[i][j] = makeHint(ct0[i][j], r, gamma2QMinus1Div32)
			}
		}
		if countOnes(hints[:]) > omega75 {
			continue
		}

		sig := make([]byte, LegacySignatureSize87)
		copy(sig[:legacyCTildeBytes87], cTilde[:])
		offset := legacyCTildeBytes87
		for i := 0; i < l87; i++ {
			copy(sig[offset:], packZ19(z[i]))
			offset += encodingSize20
		}
		copy(sig[offset:], packHint(hints[:], omega75))

		return sig, nil
	}
}

// Verify checks a legacy Dilithium5 signature against the raw message.
func (pk *LegacyPublicKey87) Verify(sig, message []byte) bool {
	if len(sig) != LegacySignatureSize87 {
		return false
	}

	h := sha3.NewSHAKE256()
	h.Write(pk.tr[:])
	h.Write(message)

	var mu [64]byte
	h.Read(mu[:])

	cTilde := sig[:legacyCTildeBytes87]
	offset := legacyCTildeBytes87

	var z [l87]ringElement
	for i := 0; i < l87; i++ {
		z[i] = unpackZ19Sig(sig[offset : offset+encodingSize20])
		offset += encodingSize20
	}
	if vectorInfinityNorm(z[:]) >= gamma1Pow19-beta87 {
		return false
	}

	var hints [k87]ringElement
	if !unpackHint(sig[offset:], hints[:], omega75) {
		return false
	}

	c := sampleChallenge(cTilde, tau60)
	cNTT := ntt(c)

	var zNTT [l87]nttElement
	for i := 0; i < l87; i++ {
		zNTT[i] = ntt(z[i])
	}

	var t1NTT [k87]nttElement
	for i := 0; i < k87; i++ {
		var t1Scaled ringElement
		for j := 0; j < n; j++ {
			t1Scaled[j] = pk.t1[i][j] << d
		}
		t1NTT[i] = ntt(t1Scaled)
	}

	var w1 [k87]ringElement
	h.Reset()
	h.Write(mu[:])
	for i := 0; i < k87; i++ {
		var acc nttElement
		for j := 0; j < l87; j++ {
			acc = polyAdd(acc, nttMul(pk.a[i*l87+j], zNTT[j]))
		}
		ct1 := nttMul(cNTT, t1NTT[i])
		acc = polySub(acc, ct1)
		wApprox := invNTT(acc)
		for j := 0; j < n; j++ {
			w1[i][j] = useHint(hints[i][j], wApprox[j], gamma2QMinus1Div32)
		}
		h.Write(packW1_4(w1[i]))
	}

	var cTildeCheck [legacyCTildeBytes87]byte
	h.Read(cTildeCheck[:])

	var diff byte
	for i := range cTilde {
		diff |= cTilde[i] ^ cTildeCheck[i]
	}
	return diff == 0
}

// Sign signs message using the key pair's private key.
func (key *LegacyKey87) Sign(rand io.Reader, message []byte, hedged bool) ([]byte, error) {
	return key.LegacyPrivateKey87.Sign(rand, message, hedged)
}
