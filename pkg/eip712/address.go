package eip712

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/mahdiidarabi/ticketsig/pkg/curve"
)

// AddressLen is the width of an account identifier.
const AddressLen = 20

// Address is a 20-byte account identifier.
type Address [AddressLen]byte

// ErrInvalidAddress is returned by ParseAddress for malformed input.
var ErrInvalidAddress = errors.New("invalid address")

// ParseAddress decodes a 40 hex digit address, with or without 0x prefix.
// Mixed case input is accepted without checksum validation.
func ParseAddress(s string) (Address, error) {
	var a Address
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 2*AddressLen {
		return a, fmt.Errorf("%w: want %d hex digits, got %d", ErrInvalidAddress, 2*AddressLen, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	copy(a[:], b)
	return a, nil
}

// MustParseAddress is ParseAddress for constants; it panics on error.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Hex returns the EIP-55 mixed-case checksummed form.
func (a Address) Hex() string {
	lower := hex.EncodeToString(a[:])
	sum := Keccak256{}.Sum([]byte(lower))

	out := []byte(lower)
	for i := range out {
		if out[i] < 'a' {
			continue
		}
		nibble := sum[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] -= 'a' - 'A'
		}
	}
	return "0x" + string(out)
}

func (a Address) String() string {
	return a.Hex()
}

// AddressFromPublicKey derives the account identifier of q: the last 20
// bytes of H(X ‖ Y) with both coordinates as 32-byte big-endian values.
func AddressFromPublicKey(h Hasher, q curve.Point) (Address, error) {
	var a Address
	if q.IsInfinity() || !curve.S256().IsOnCurve(q) {
		return a, curve.ErrPointNotOnCurve
	}
	raw := curve.MarshalUncompressed(q)
	sum := h.Sum(raw[1:])
	copy(a[:], sum[32-AddressLen:])
	return a, nil
}
