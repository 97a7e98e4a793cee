package curve

import (
	"fmt"
	"math/big"
)

// Point is an element of the curve group in affine form. The point at
// infinity is an explicit variant, it is never encoded as the (0, 0)
// coordinate pair.
//
// The zero value is the point at infinity.
type Point struct {
	x, y   *big.Int
	affine bool
}

// Infinity returns the identity element of the group.
func Infinity() Point {
	return Point{}
}

// NewAffine returns the affine point (x, y). The coordinates are copied but
// not validated; use Curve.IsOnCurve or Curve.NewPoint before trusting it.
func NewAffine(x, y *big.Int) Point {
	return Point{
		x:      new(big.Int).Set(x),
		y:      new(big.Int).Set(y),
		affine: true,
	}
}

// IsInfinity reports whether p is the point at infinity.
func (p Point) IsInfinity() bool {
	return !p.affine
}

// X returns a copy of the x coordinate, or nil for the point at infinity.
func (p Point) X() *big.Int {
	if !p.affine {
		return nil
	}
	return new(big.Int).Set(p.x)
}

// Y returns a copy of the y coordinate, or nil for the point at infinity.
func (p Point) Y() *big.Int {
	if !p.affine {
		return nil
	}
	return new(big.Int).Set(p.y)
}

// Equal reports whether p and q are the same point.
func (p Point) Equal(q Point) bool {
	if p.affine != q.affine {
		return false
	}
	if !p.affine {
		return true
	}
	return p.x.Cmp(q.x) == 0 && p.y.Cmp(q.y) == 0
}

func (p Point) String() string {
	if !p.affine {
		return "Infinity"
	}
	return fmt.Sprintf("(%064x, %064x)", p.x, p.y)
}
