package mldsa

import (
	"crypto/sha3"
	"errors"
	"io"
)

// LegacyPrivateKey44 is the private key for the round-3 CRYSTALS-Dilithium2
// wrapper that ML-DSA-44 evolved from. Unlike PrivateKey44, signing carries
// no context string and no domain-separation byte (spec.md §9).
type LegacyPrivateKey44 struct {
	rho [32]byte                // Public seed
	key [32]byte                // Private seed for signing
	tr  [legacyCTildeBytes44]byte // H(pk), legacy width
	s1  [l44]ringElement
	s2  [k44]ringElement
	t0  [k44]ringElement
	a   [k44 * l44]nttElement
}

// LegacyPublicKey44 is the public key for legacy Dilithium2. Its layout is
// identical to PublicKey44's: rho || t1.
type LegacyPublicKey44 struct {
	rho [32]byte
	t1  [k44]ringElement
	tr  [legacyCTildeBytes44]byte
	a   [k44 * l44]nttElement
}

// LegacyKey44 is a Dilithium2 key pair.
type LegacyKey44 struct {
	LegacyPrivateKey44
	seed [32]byte
}

// GenerateLegacyKey44 generates a new Dilithium2 key pair.
func GenerateLegacyKey44(rand io.Reader) (*LegacyKey44, error) {
	var seed [SeedSize]byte
	if _, err := io.ReadFull(rand, seed[:]); err != nil {
		return nil, err
	}
	return NewLegacyKey44(seed[:])
}

// NewLegacyKey44 creates a Dilithium2 key pair from a seed.
func NewLegacyKey44(seed []byte) (*LegacyKey44, error) {
	if len(seed) != SeedSize {
		return nil, ErrBadSeedLength
	}
	key := &LegacyKey44{}
	copy(key.seed[:], seed)
	key.generate()
	return key, nil
}

// generate expands the seed without the (K, L) domain suffix ML-DSA mixes
// in (spec.md §3 ADDED legacy layout note).
func (key *LegacyKey44) generate() {
	h := sha3.NewSHAKE256()
	h.Write(key.seed[:])

	var expanded [128]byte
	h.Read(expanded[:])

	copy(key.rho[:], expanded[:32])
	rho1 := expanded[32:96]
	copy(key.key[:], expanded[96:128])

	for i := 0; i < l44; i++ {
		key.s1[i] = sampleBoundedPoly(rho1, eta2, uint16(i))
	}
	for i := 0; i < k44; i++ {
		key.s2[i] = sampleBoundedPoly(rho1, eta2, uint16(l44+i))
	}

	for i := 0; i < k44; i++ {
		for j := 0; j < l44; j++ {
			key.a[i*l44+j] = sampleNTTPoly(key.rho[:], byte(j), byte(i))
		}
	}

	var s1NTT [l44]nttElement
	for i := 0; i < l44; i++ {
		s1NTT[i] = ntt(key.s1[i])
	}

	var t1 [k44]ringElement
	var t0 [k44]ringElement
	for i := 0; i < k44; i++ {
		var acc nttElement
		for j := 0; j < l44; j++ {
			acc = polyAdd(acc, nttMul(key.a[i*l44+j], s1NTT[j]))
		}
		t := polyAdd(invNTT(acc), key.s2[i])
		for j := 0; j < n; j++ {
			t1[i][j], t0[i][j] = power2Round(t[j])
		}
	}
	key.t0 = t0

	b := make([]byte, LegacyPublicKeySize44)
	copy(b[:32], key.rho[:])
	offset := 32
	for i := 0; i < k44; i++ {
		copy(b[offset:], packT1(t1[i]))
		offset += encodingSize10
	}
	h.Reset()
	h.Write(b)
	h.Read(key.tr[:])
}

// PublicKey returns the public key.
func (key *LegacyKey44) PublicKey() *LegacyPublicKey44 {
	pk := &LegacyPublicKey44{rho: key.rho, tr: key.tr, a: key.a}
	var s1NTT [l44]nttElement
	for i := 0; i < l44; i++ {
		s1NTT[i] = ntt(key.s1[i])
	}
	for i := 0; i < k44; i++ {
		var acc nttElement
		for j := 0; j < l44; j++ {
			acc = polyAdd(acc, nttMul(key.a[i*l44+j], s1NTT[j]))
		}
		t := polyAdd(invNTT(acc), key.s2[i])
		for j := 0; j < n; j++ {
			pk.t1[i][j], _ = power2Round(t[j])
		}
	}
	return pk
}

// Bytes returns the encoded public key.
func (pk *LegacyPublicKey44) Bytes() []byte {
	b := make([]byte, LegacyPublicKeySize44)
	copy(b[:32], pk.rho[:])
	offset := 32
	for i := 0; i < k44; i++ {
		copy(b[offset:], packT1(pk.t1[i]))
		offset += encodingSize10
	}
	return b
}

// NewLegacyPublicKey44 parses an encoded Dilithium2 public key.
func NewLegacyPublicKey44(b []byte) (*LegacyPublicKey44, error) {
	if len(b) != LegacyPublicKeySize44 {
		return nil, errors.New("mldsa: invalid legacy public key length")
	}
	pk := &LegacyPublicKey44{}
	copy(pk.rho[:], b[:32])
	offset := 32
	for i := 0; i < k44; i++ {
		pk.t1[i] = unpackT1(b[offset : offset+encodingSize10])
		offset += encodingSize10
	}
	for i := 0; i < k44; i++ {
		for j := 0; j < l44; j++ {
			pk.a[i*l44+j] = sampleNTTPoly(pk.rho[:], byte(j), byte(i))
		}
	}
	h := sha3.NewSHAKE256()
	h.Write(b)
	h.Read(pk.tr[:])
	return pk, nil
}

// Sign signs message with the legacy Dilithium2 key. There is no context
// string or domain byte: M' is the raw message (spec.md §3 ADDED note).
// hedged selects between randomized and deterministic rnd generation, as
// with the ML-DSA entry points.
func (sk *LegacyPrivateKey44) Sign(rand io.Reader, message []byte, hedged bool) ([]byte, error) {
	rnd, err := signRandomizer(rand, hedged)
	if err != nil {
		return nil, err
	}
	return sk.signInternal(rnd[:], message)
}

func (sk *LegacyPrivateKey44) signInternal(rnd, message []byte) ([]byte, error) {
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

	var s1NTT [l44]nttElement
	var s2NTT [k44]nttElement
	var t0NTT [k44]nttElement
	for i := 0; i < l44; i++ {
		s1NTT[i] = ntt(sk.s1[i])
	}
	for i := 0; i < k44; i++ {
		s2NTT[i] = ntt(sk.s2[i])
		t0NTT[i] = ntt(sk.t0[i])
	}

	var seedBuf [66]byte
	copy(seedBuf[:64], rhoPrime[:])

	for kappa := uint16(0); ; kappa += l44 {
		var y [l44]ringElement
		for i := 0; i < l44; i++ {
			seedBuf[64] = byte(kappa + uint16(i))
			seedBuf[65] = byte((kappa + uint16(i)) >> 8)
			y[i] = expandMask(seedBuf[:], gamma1Bits17)
		}

		var yNTT [l44]nttElement
		for i := 0; i < l44; i++ {
			yNTT[i] = ntt(y[i])
		}

		var w [k44]ringElement
		var w1 [k44]ringElement
		for i := 0; i < k44; i++ {
			var acc nttElement
			for j := 0; j < l44; j++ {
				acc = polyAdd(acc, nttMul(sk.a[i*l44+j], yNTT[j]))
			}
			w[i] = invNTT(acc)
			for j := 0; j < n; j++ {
				w1[i][j] = fieldElement(highBits(w[i][j], gamma2QMinus1Div88))
			}
		}

		h.Reset()
		h.Write(mu[:])
		for i := 0; i < k44; i++ {
			h.Write(packW1_6(w1[i]))
		}
		var cTilde [legacyCTildeBytes44]byte
		h.Read(cTilde[:])

		c := sampleChallenge(cTilde[:], tau39)
		cNTT := ntt(c)

		var z [l44]ringElement
		for i := 0; i < l44; i++ {
			cs1 := invNTT(nttMul(cNTT, s1NTT[i]))
			z[i] = polyAdd(y[i], cs1)
		}
		if vectorInfinityNorm(z[:]) >= gamma1Pow17-beta44 {
			continue
		}

		var r0 [k44][n]int32
		for i := 0; i < k44; i++ {
			cs2 := invNTT(nttMul(cNTT, s2NTT[i]))
			for j := 0; j < n; j++ {
				_, r0[i][j] = decompose(fieldSub(w[i][j], cs2[j]), gamma2QMinus1Div88)
			}
		}
		if vectorInfinityNormSigned(r0[:]) >= int32(gamma2QMinus1Div88-beta44) {
			continue
		}

		var ct0 [k44]ringElement
		for i := 0; i < k44; i++ {
			ct0[i] = invNTT(nttMul(cNTT, t0NTT[i]))
		}
		if vectorInfinityNorm(ct0[:]) >= gamma2QMinus1Div88 {
			continue
		}

		var hints [k44]ringElement
		for i := 0; i < k44; i++ {
			cs2 := invNTT(nttMul(cNTT, s2NTT[i]))
			for j := 0; j < n; j++ {
				r := fieldSub(w[i][j], cs2[j])
				hints[i][j] = makeHint(ct0[i][j], r, gamma2QMinus1Div88)
			}
		}
		if countOnes(hints[:]) > omega80 {
			continue
		}

		sig := make([]byte, LegacySignatureSize44)
		copy(sig[:legacyCTildeBytes44], cTilde[:])
		offset := legacyCTildeBytes44
		for i := 0; i < l44; i++ {
			copy(sig[offset:], packZ17(z[i]))
			offset += encodingSize18
		}
		copy(sig[offset:], packHint(hints[:], omega80))

		return sig, nil
	}
}

// Verify checks a legacy Dilithium2 signature against the raw message.
func (pk *LegacyPublicKey44) Verify(sig, message []byte) bool {
	if len(sig) != LegacySignatureSize44 {
		return false
	}

	h := sha3.NewSHAKE256()
	h.Write(pk.tr[:])
	h.Write(message)

	var mu [64]byte
	h.Read(mu[:])

	cTilde := sig[:legacyCTildeBytes44]
	offset := legacyCTildeBytes44

	var z [l44]ringElement
	for i := 0; i < l44; i++ {
		z[i] = unpackZ17Sig(sig[offset : offset+encodingSize18])
		offset += encodingSize18
	}
	if vectorInfinityNorm(z[:]) >= gamma1Pow17-beta44 {
		return false
	}

	var hints [k44]ringElement
	if !unpackHint(sig[offset:], hints[:], omega80) {
		return false
	}

	c := sampleChallenge(cTilde, tau39)
	cNTT := ntt(c)

	var zNTT [l44]nttElement
	for i := 0; i < l44; i++ {
		zNTT[i] = ntt(z[i])
	}

	var t1NTT [k44]nttElement
	for i := 0; i < k44; i++ {
		var t1Scaled ringElement
		for j := 0; j < n; j++ {
			t1Scaled[j] = pk.t1[i][j] << d
		}
		t1NTT[i] = ntt(t1Scaled)
	}

	var w1 [k44]ringElement
	h.Reset()
	h.Write(mu[:])
	for i := 0; i < k44; i++ {
		var acc nttElement
		for j := 0; j < l44; j++ {
			acc = polyAdd(acc, nttMul(pk.a[i*l44+j], zNTT[j]))
		}
		ct1 := nttMul(cNTT, t1NTT[i])
		acc = polySub(acc, ct1)
		wApprox := invNTT(acc)
		for j := 0; j < n; j++ {
			w1[i][j] = useHint(hints[i][j], wApprox[j], gamma2QMinus1Div88)
		}
		h.Write(packW1_6(w1[i]))
	}

	var cTildeCheck [legacyCTildeBytes44]byte
	h.Read(cTildeCheck[:])

	var diff byte
	for i := range cTilde {
		diff |= cTilde[i] ^ cTildeCheck[i]
	}
	return diff == 0
}

// Sign signs message using the key pair's private key.
func (key *LegacyKey44) Sign(rand io.Reader, message []byte, hedged bool) ([]byte, error) {
	return key.LegacyPrivateKey44.Sign(rand, message, hedged)
}

// Bytes returns the encoded legacy private key: rho || key || tr32 ||
// s1 || s2 || t0.
func (sk *LegacyPrivateKey44) Bytes() []byte {
	b := make([]byte, LegacySecretKeySize44)
	copy(b[:32], sk.rho[:])
	copy(b[32:64], sk.key[:])
	copy(b[64:96], sk.tr[:])

	offset := 96
	for i := 0; i < l44; i++ {
		copy(b[offset:], packEta2(sk.s1[i]))
		offset += encodingSize3
	}
	for i := 0; i < k44; i++ {
		copy(b[offset:], packEta2(sk.s2[i]))
		offset += encodingSize3
	}
	for i := 0; i < k44; i++ {
		copy(b[offset:], packT0(sk.t0[i]))
		offset += encodingSize13
	}
	return b
}

// NewLegacyPrivateKey44 parses an encoded legacy private key.
func NewLegacyPrivateKey44(b []byte) (*LegacyPrivateKey44, error) {
	if len(b) != LegacySecretKeySize44 {
		return nil, errors.New("mldsa: invalid legacy private key length")
	}
	sk := &LegacyPrivateKey44{}
	copy(sk.rho[:], b[:32])
	copy(sk.key[:], b[32:64])
	copy(sk.tr[:], b[64:96])

	offset := 96
	var err error
	for i := 0; i < l44; i++ {
		sk.s1[i], err = unpackEta2(b[offset : offset+encodingSize3])
		if err != nil {
			return nil, err
		}
		offset += encodingSize3
	}
	for i := 0; i < k44; i++ {
		sk.s2[i], err = unpackEta2(b[offset : offset+encodingSize3])
		if err != nil {
			return nil, err
		}
		offset += encodingSize3
	}
	for i := 0; i < k44; i++ {
		sk.t0[i] = unpackT0(b[offset : offset+encodingSize13])
		offset += encodingSize13
	}
	for i := 0; i < k44; i++ {
		for j := 0; j < l44; j++ {
			sk.a[i*l44+j] = sampleNTTPoly(sk.rho[:], byte(j), byte(i))
		}
	}
	return sk, nil
}
