package ecverify

import (
	"fmt"
	"math/big"

	"github.com/mahdiidarabi/ticketsig/pkg/curve"
)

// PackedLen is the length of a packed r ‖ s ‖ v signature.
const PackedLen = 65

// Signature is an ECDSA signature over secp256k1. V holds the recovery id
// (0 or 1) when HasV is set.
type Signature struct {
	R    *big.Int
	S    *big.Int
	V    byte
	HasV bool
}

// FromRS builds a signature without a recovery id.
func FromRS(r, s *big.Int) *Signature {
	return &Signature{R: new(big.Int).Set(r), S: new(big.Int).Set(s)}
}

// ParseSignature65 decodes a packed 65-byte r ‖ s ‖ v signature. Both the
// raw recovery id (0, 1) and the 27/28 convention are accepted for v.
func ParseSignature65(b []byte) (*Signature, error) {
	if len(b) != PackedLen {
		return nil, fmt.Errorf("packed signature must be %d bytes, got %d", PackedLen, len(b))
	}
	v := b[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return nil, fmt.Errorf("invalid recovery id %d", b[64])
	}
	return &Signature{
		R:    new(big.Int).SetBytes(b[:32]),
		S:    new(big.Int).SetBytes(b[32:64]),
		V:    v,
		HasV: true,
	}, nil
}

// Bytes returns the packed r ‖ s ‖ v form, with v as a raw recovery id.
func (sig *Signature) Bytes() []byte {
	out := make([]byte, PackedLen)
	sig.R.FillBytes(out[:32])
	sig.S.FillBytes(out[32:64])
	out[64] = sig.V
	return out
}

// IsLowS reports whether s <= ⌊n/2⌋.
func (sig *Signature) IsLowS() bool {
	return sig.S.Cmp(curve.S256().HalfN()) <= 0
}

// Normalize maps a high-S signature onto its low-S twin (r, n - s) and flips
// the recovery id accordingly. It is meant for signers; Verify never
// normalizes on the caller's behalf.
func (sig *Signature) Normalize() {
	if sig.IsLowS() {
		return
	}
	sig.S = new(big.Int).Sub(curve.S256().N(), sig.S)
	sig.V ^= 1
}
