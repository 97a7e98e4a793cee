package curve

import (
	"errors"
	"fmt"
	"math/big"
)

const (
	// CompressedLen is the length of a SEC1 compressed point.
	CompressedLen = 33
	// UncompressedLen is the length of a SEC1 uncompressed point.
	UncompressedLen = 65
)

var errInvalidEncoding = errors.New("invalid point encoding")

// DecompressY returns the y coordinate matching x whose parity is odd when
// odd is set.
func (c *Curve) DecompressY(x *big.Int, odd bool) (*big.Int, error) {
	if !c.fp.Contains(x) {
		return nil, ErrPointNotOnCurve
	}
	y, ok := c.fp.Sqrt(c.rhs(x))
	if !ok {
		return nil, ErrPointNotOnCurve
	}
	if (y.Bit(0) == 1) != odd {
		y = c.fp.Neg(y)
	}
	return y, nil
}

// ParsePublicKey decodes a SEC1 encoded point (33 or 65 bytes) and makes sure
// it lies on the curve.
func (c *Curve) ParsePublicKey(b []byte) (Point, error) {
	switch {
	case len(b) == CompressedLen && (b[0] == 0x02 || b[0] == 0x03):
		x := new(big.Int).SetBytes(b[1:])
		y, err := c.DecompressY(x, b[0] == 0x03)
		if err != nil {
			return Infinity(), err
		}
		return NewAffine(x, y), nil

	case len(b) == UncompressedLen && b[0] == 0x04:
		x := new(big.Int).SetBytes(b[1:33])
		y := new(big.Int).SetBytes(b[33:])
		return c.NewPoint(x, y)

	default:
		return Infinity(), fmt.Errorf("%w: length %d", errInvalidEncoding, len(b))
	}
}

// MarshalUncompressed encodes p as 0x04 ‖ X ‖ Y. It returns nil for the
// point at infinity.
func MarshalUncompressed(p Point) []byte {
	if p.IsInfinity() {
		return nil
	}
	out := make([]byte, UncompressedLen)
	out[0] = 0x04
	p.x.FillBytes(out[1:33])
	p.y.FillBytes(out[33:])
	return out
}

// MarshalCompressed encodes p as 0x02/0x03 ‖ X.
func MarshalCompressed(p Point) []byte {
	if p.IsInfinity() {
		return nil
	}
	out := make([]byte, CompressedLen)
	out[0] = 0x02
	if p.y.Bit(0) == 1 {
		out[0] = 0x03
	}
	p.x.FillBytes(out[1:])
	return out
}
