// Package ecverify verifies ECDSA signatures over secp256k1 using the
// hand-written arithmetic in packages field and curve.
//
// Verification is stricter than textbook ECDSA: s must lie in the lower
// half of the group order, so that (r, n - s) can never be presented as a
// second valid signature for the same message.
package ecverify

import (
	"errors"
	"math/big"

	"github.com/mahdiidarabi/ticketsig/pkg/curve"
)

var (
	// ErrInvalidR is returned when r is outside [1, n-1].
	ErrInvalidR = errors.New("signature r out of range")

	// ErrInvalidS is returned when s is outside [1, ⌊n/2⌋], which includes
	// the malleable high-S form.
	ErrInvalidS = errors.New("signature s out of range or not canonical")

	// ErrInvalidPublicKey is returned for the point at infinity and for
	// points that are not on the curve.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrNoRecoveryID is returned by RecoverPublicKey when the signature
	// does not carry a recovery id.
	ErrNoRecoveryID = errors.New("signature has no recovery id")

	// ErrRecoveryFailed is returned when no public key can be recovered.
	ErrRecoveryFailed = errors.New("public key recovery failed")
)

// checkRS validates the range of both signature components.
func checkRS(c *curve.Curve, r, s *big.Int) error {
	if r == nil || r.Sign() <= 0 || r.Cmp(c.N()) >= 0 {
		return ErrInvalidR
	}
	if s == nil || s.Sign() <= 0 || s.Cmp(c.HalfN()) > 0 {
		return ErrInvalidS
	}
	return nil
}

// Verify checks the signature (r, s) over the message hash z against the
// public key q.
//
// Args:
//   - z: Message hash as an integer; it is reduced mod n.
//   - r, s: Signature components.
//   - q: Signer public key.
//
// Returns:
//   - (true, nil) for a valid signature, (false, nil) for a well-formed
//     signature that does not match, or an error identifying the malformed
//     input. Input checks run in the order r, s, public key.
func Verify(z, r, s *big.Int, q curve.Point) (bool, error) {
	c := curve.S256()
	fn := c.Fn()

	if err := checkRS(c, r, s); err != nil {
		return false, err
	}
	if q.IsInfinity() || !c.IsOnCurve(q) {
		return false, ErrInvalidPublicKey
	}

	sInv, err := fn.Inverse(s)
	if err != nil {
		return false, ErrInvalidS
	}
	zr := fn.Reduce(z)
	u1 := fn.Mul(zr, sInv)
	u2 := fn.Mul(r, sInv)

	pt := c.Add(c.ScalarBaseMul(u1), c.ScalarMul(u2, q))
	if pt.IsInfinity() {
		return false, nil
	}
	return fn.Reduce(pt.X()).Cmp(r) == 0, nil
}

// VerifySignature is Verify for a Signature value.
func VerifySignature(z *big.Int, sig *Signature, q curve.Point) (bool, error) {
	if sig == nil {
		return false, ErrInvalidR
	}
	return Verify(z, sig.R, sig.S, q)
}

// RecoverPublicKey returns the public key that produced sig over z, using
// the recovery id carried in the signature. The same r and s range rules as
// Verify apply.
func RecoverPublicKey(z *big.Int, sig *Signature) (curve.Point, error) {
	c := curve.S256()
	fn := c.Fn()

	if sig == nil {
		return curve.Infinity(), ErrInvalidR
	}
	if err := checkRS(c, sig.R, sig.S); err != nil {
		return curve.Infinity(), err
	}
	if !sig.HasV {
		return curve.Infinity(), ErrNoRecoveryID
	}

	// secp256k1 has n < p, so only ids 0 and 1 (x = r) are meaningful.
	x := new(big.Int).Set(sig.R)
	if x.Cmp(c.Params().P) >= 0 {
		return curve.Infinity(), ErrRecoveryFailed
	}
	y, err := c.DecompressY(x, sig.V&1 == 1)
	if err != nil {
		return curve.Infinity(), ErrRecoveryFailed
	}
	rp := curve.NewAffine(x, y)

	rInv, err := fn.Inverse(sig.R)
	if err != nil {
		return curve.Infinity(), ErrInvalidR
	}
	// q = r⁻¹ (s·R - z·G)
	sR := c.ScalarMul(sig.S, rp)
	zG := c.ScalarBaseMul(fn.Reduce(z))
	q := c.ScalarMul(rInv, c.Add(sR, c.Neg(zG)))
	if q.IsInfinity() {
		return curve.Infinity(), ErrRecoveryFailed
	}
	return q, nil
}
