// Package field implements modular arithmetic over a fixed modulus.
//
// Every value returned by a Field method is a freshly allocated *big.Int in
// the range [0, m). Inputs are never modified, so callers may freely reuse
// them as operands of later operations.
package field

import (
	"errors"
	"math/big"
)

// ErrNotInvertible is returned when an element has no multiplicative inverse
// with respect to the modulus (a ≡ 0 or gcd(a, m) ≠ 1).
var ErrNotInvertible = errors.New("element is not invertible")

var (
	bigZero  = big.NewInt(0)
	bigOne   = big.NewInt(1)
	bigTwo   = big.NewInt(2)
	bigThree = big.NewInt(3)
	bigFour  = big.NewInt(4)
)

// Field is the ring of integers modulo m. For the curve's p and n the
// modulus is prime, which is what Inverse and Sqrt rely on.
type Field struct {
	m *big.Int
}

// New creates a Field for the given modulus. The modulus is copied.
func New(m *big.Int) *Field {
	if m.Cmp(bigOne) <= 0 {
		panic("field: modulus must be greater than one")
	}
	return &Field{m: new(big.Int).Set(m)}
}

// Modulus returns a copy of the modulus.
func (f *Field) Modulus() *big.Int {
	return new(big.Int).Set(f.m)
}

// Contains reports whether a is an already reduced element, i.e. 0 <= a < m.
func (f *Field) Contains(a *big.Int) bool {
	return a.Sign() >= 0 && a.Cmp(f.m) < 0
}

// Reduce returns a mod m. Negative inputs are mapped into [0, m).
func (f *Field) Reduce(a *big.Int) *big.Int {
	return new(big.Int).Mod(a, f.m)
}

// Add returns a + b mod m.
func (f *Field) Add(a, b *big.Int) *big.Int {
	r := new(big.Int).Add(a, b)
	return r.Mod(r, f.m)
}

// Sub returns a - b mod m.
func (f *Field) Sub(a, b *big.Int) *big.Int {
	r := new(big.Int).Sub(a, b)
	return r.Mod(r, f.m)
}

// Mul returns a * b mod m.
func (f *Field) Mul(a, b *big.Int) *big.Int {
	r := new(big.Int).Mul(a, b)
	return r.Mod(r, f.m)
}

// Square returns a² mod m.
func (f *Field) Square(a *big.Int) *big.Int {
	return f.Mul(a, a)
}

// Neg returns -a mod m.
func (f *Field) Neg(a *big.Int) *big.Int {
	r := new(big.Int).Neg(a)
	return r.Mod(r, f.m)
}

// Equal reports whether a ≡ b (mod m).
func (f *Field) Equal(a, b *big.Int) bool {
	return f.Reduce(a).Cmp(f.Reduce(b)) == 0
}

// Exp returns base^exp mod m.
//
// The exponent is processed with a Montgomery ladder: every bit costs exactly
// one multiplication and one squaring, whatever its value, and the loop
// always runs for exp.BitLen() iterations.
func (f *Field) Exp(base, exp *big.Int) *big.Int {
	if exp.Sign() < 0 {
		panic("field: negative exponent")
	}
	r0 := big.NewInt(1)
	r1 := f.Reduce(base)
	for i := exp.BitLen() - 1; i >= 0; i-- {
		if exp.Bit(i) == 0 {
			r1 = f.Mul(r0, r1)
			r0 = f.Square(r0)
		} else {
			r0 = f.Mul(r0, r1)
			r1 = f.Square(r1)
		}
	}
	return r0.Mod(r0, f.m)
}

// Inverse returns a⁻¹ mod m using Fermat's little theorem (a^(m-2)).
// The modulus must be prime.
func (f *Field) Inverse(a *big.Int) (*big.Int, error) {
	ar := f.Reduce(a)
	if ar.Sign() == 0 {
		return nil, ErrNotInvertible
	}
	e := new(big.Int).Sub(f.m, bigTwo)
	return f.Exp(ar, e), nil
}

// Div returns a / b mod m.
func (f *Field) Div(a, b *big.Int) (*big.Int, error) {
	inv, err := f.Inverse(b)
	if err != nil {
		return nil, err
	}
	return f.Mul(a, inv), nil
}

// Sqrt returns a square root of a when one exists. Only moduli congruent to
// 3 mod 4 are supported, where the root is a^((m+1)/4).
func (f *Field) Sqrt(a *big.Int) (*big.Int, bool) {
	if new(big.Int).Mod(f.m, bigFour).Cmp(bigThree) != 0 {
		panic("field: Sqrt requires modulus ≡ 3 (mod 4)")
	}
	e := new(big.Int).Add(f.m, bigOne)
	e.Rsh(e, 2)
	root := f.Exp(a, e)
	if f.Square(root).Cmp(f.Reduce(a)) != 0 {
		return nil, false
	}
	return root, true
}

// ModInverse returns x with a·x ≡ 1 (mod m), computed with the extended
// Euclidean algorithm. Unlike Field.Inverse it works for composite moduli.
func ModInverse(a, m *big.Int) (*big.Int, error) {
	if m.Cmp(bigOne) <= 0 {
		return nil, ErrNotInvertible
	}
	r0 := new(big.Int).Mod(a, m)
	if r0.Sign() == 0 {
		return nil, ErrNotInvertible
	}
	r1 := new(big.Int).Set(m)
	s0, s1 := big.NewInt(1), big.NewInt(0)

	q, t := new(big.Int), new(big.Int)
	for r1.Sign() != 0 {
		q.Div(r0, r1)

		t.Mul(q, r1)
		r0, r1 = r1, new(big.Int).Sub(r0, t)

		t.Mul(q, s1)
		s0, s1 = s1, new(big.Int).Sub(s0, t)
	}
	// r0 holds gcd(a, m)
	if r0.Cmp(bigOne) != 0 {
		return nil, ErrNotInvertible
	}
	return s0.Mod(s0, m), nil
}

// IsZero reports whether a ≡ 0 (mod m).
func (f *Field) IsZero(a *big.Int) bool {
	return f.Reduce(a).Cmp(bigZero) == 0
}
