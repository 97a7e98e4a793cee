// Package curve implements affine point arithmetic on short Weierstrass
// curves of the form y² = x³ + b (a = 0), with secp256k1 as the only
// instantiated curve.
//
// All arithmetic is carried out with package field on math/big values. The
// scalar multiplication always performs the same number of group operations
// for a given curve, but big.Int itself is not constant time.
package curve

import (
	"errors"
	"math/big"

	"github.com/mahdiidarabi/ticketsig/pkg/field"
)

// ErrPointNotOnCurve is returned when coordinates do not satisfy the curve
// equation or fall outside [0, p).
var ErrPointNotOnCurve = errors.New("point is not on the curve")

// Params holds the domain parameters of a curve y² = x³ + B over F_P.
type Params struct {
	Name   string
	P      *big.Int // field prime
	N      *big.Int // order of the base point
	B      *big.Int // curve constant
	Gx, Gy *big.Int // base point
}

// Curve bundles the parameters with arithmetic helpers over F_P and Z_N.
type Curve struct {
	params Params
	fp     *field.Field
	fn     *field.Field
	g      Point
	halfN  *big.Int
}

var secp256k1 = newCurve(Params{
	Name: "secp256k1",
	P:    mustHex("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEFFFFFC2F"),
	N:    mustHex("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141"),
	B:    big.NewInt(7),
	Gx:   mustHex("79BE667EF9DCBBAC55A06295CE870B07029BFCDB2DCE28D959F2815B16F81798"),
	Gy:   mustHex("483ADA7726A3C4655DA4FBFC0E1108A8FD17B448A68554199C47D08FFB10D4B8"),
})

// S256 returns the secp256k1 curve.
func S256() *Curve {
	return secp256k1
}

func newCurve(p Params) *Curve {
	return &Curve{
		params: p,
		fp:     field.New(p.P),
		fn:     field.New(p.N),
		g:      NewAffine(p.Gx, p.Gy),
		halfN:  new(big.Int).Rsh(p.N, 1),
	}
}

func mustHex(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("curve: invalid hex constant " + s)
	}
	return v
}

// Params returns a copy of the curve parameters.
func (c *Curve) Params() Params {
	return Params{
		Name: c.params.Name,
		P:    new(big.Int).Set(c.params.P),
		N:    new(big.Int).Set(c.params.N),
		B:    new(big.Int).Set(c.params.B),
		Gx:   new(big.Int).Set(c.params.Gx),
		Gy:   new(big.Int).Set(c.params.Gy),
	}
}

// Fp returns arithmetic modulo the field prime.
func (c *Curve) Fp() *field.Field { return c.fp }

// Fn returns arithmetic modulo the group order.
func (c *Curve) Fn() *field.Field { return c.fn }

// N returns a copy of the group order.
func (c *Curve) N() *big.Int { return new(big.Int).Set(c.params.N) }

// HalfN returns ⌊n/2⌋, the largest s accepted by low-S signatures.
func (c *Curve) HalfN() *big.Int { return new(big.Int).Set(c.halfN) }

// G returns the base point.
func (c *Curve) G() Point { return c.g }

// NewPoint returns (x, y) if it lies on the curve.
func (c *Curve) NewPoint(x, y *big.Int) (Point, error) {
	p := NewAffine(x, y)
	if !c.IsOnCurve(p) {
		return Infinity(), ErrPointNotOnCurve
	}
	return p, nil
}

// rhs returns x³ + b mod p.
func (c *Curve) rhs(x *big.Int) *big.Int {
	x3 := c.fp.Mul(c.fp.Square(x), x)
	return c.fp.Add(x3, c.params.B)
}

// IsOnCurve reports whether q is an affine point with coordinates in
// [0, p) satisfying y² ≡ x³ + b. The point at infinity is not on the curve.
func (c *Curve) IsOnCurve(q Point) bool {
	if q.IsInfinity() {
		return false
	}
	if !c.fp.Contains(q.x) || !c.fp.Contains(q.y) {
		return false
	}
	return c.fp.Square(q.y).Cmp(c.rhs(q.x)) == 0
}

// Neg returns -q.
func (c *Curve) Neg(q Point) Point {
	if q.IsInfinity() {
		return q
	}
	return Point{x: new(big.Int).Set(q.x), y: c.fp.Neg(q.y), affine: true}
}

// Add returns p + q.
func (c *Curve) Add(p, q Point) Point {
	if p.IsInfinity() {
		return q
	}
	if q.IsInfinity() {
		return p
	}

	fp := c.fp
	if p.x.Cmp(q.x) == 0 {
		// same x: either q = -p or q = p
		if fp.Add(p.y, q.y).Sign() == 0 {
			return Infinity()
		}
		if p.y.Cmp(q.y) == 0 {
			return c.Double(p)
		}
	}

	den, err := fp.Inverse(fp.Sub(q.x, p.x))
	if err != nil {
		return Infinity()
	}
	lambda := fp.Mul(fp.Sub(q.y, p.y), den)
	return c.chord(lambda, p, q.x)
}

// Double returns 2p.
func (c *Curve) Double(p Point) Point {
	if p.IsInfinity() {
		return p
	}
	fp := c.fp
	if p.y.Sign() == 0 {
		return Infinity()
	}

	den, err := fp.Inverse(fp.Add(p.y, p.y))
	if err != nil {
		return Infinity()
	}
	num := fp.Mul(big.NewInt(3), fp.Square(p.x))
	lambda := fp.Mul(num, den)
	return c.chord(lambda, p, p.x)
}

// chord completes an addition given the slope through p and a second point
// with abscissa qx.
func (c *Curve) chord(lambda *big.Int, p Point, qx *big.Int) Point {
	fp := c.fp
	x3 := fp.Sub(fp.Sub(fp.Square(lambda), p.x), qx)
	y3 := fp.Sub(fp.Mul(lambda, fp.Sub(p.x, x3)), p.y)
	return Point{x: x3, y: y3, affine: true}
}

// ScalarMul returns k·p. The scalar is first reduced modulo n, so
// ScalarMul(0, p) and ScalarMul(n, p) are both the point at infinity.
//
// The ladder walks all N.BitLen() bits and does one addition and one
// doubling per bit, regardless of the value of k.
func (c *Curve) ScalarMul(k *big.Int, p Point) Point {
	kr := c.fn.Reduce(k)
	r0, r1 := Infinity(), p
	for i := c.params.N.BitLen() - 1; i >= 0; i-- {
		if kr.Bit(i) == 0 {
			r1 = c.Add(r0, r1)
			r0 = c.Double(r0)
		} else {
			r0 = c.Add(r0, r1)
			r1 = c.Double(r1)
		}
	}
	return r0
}

// ScalarBaseMul returns k·G.
func (c *Curve) ScalarBaseMul(k *big.Int) Point {
	return c.ScalarMul(k, c.g)
}
