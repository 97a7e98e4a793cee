// Package parser converts loosely typed request fields, as decoded from
// JSON or CSV, into the typed values used by package redeem.
package parser

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/mahdiidarabi/ticketsig/pkg/curve"
	"github.com/mahdiidarabi/ticketsig/pkg/ecverify"
	"github.com/mahdiidarabi/ticketsig/pkg/eip712"
)

func hasHexPrefix(s string) bool {
	return strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")
}

// decodeHex decodes a hex string with optional 0x prefix.
func decodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if hasHexPrefix(s) {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}

// BigInt parses a non-negative integer from a string, json.Number or Go
// integer. Strings with a 0x prefix are hex, everything else is decimal.
func BigInt(val interface{}) (*big.Int, error) {
	switch v := val.(type) {
	case string:
		s := strings.TrimSpace(v)
		base := 10
		if hasHexPrefix(s) {
			s, base = s[2:], 16
		}
		z, ok := new(big.Int).SetString(s, base)
		if !ok || s == "" {
			return nil, fmt.Errorf("invalid number format: %q", v)
		}
		return checkNonNegative(z)

	case json.Number:
		z, ok := new(big.Int).SetString(string(v), 10)
		if !ok {
			return nil, fmt.Errorf("invalid number format: %s", v)
		}
		return checkNonNegative(z)

	case float64:
		if v != math.Trunc(v) || v > 1<<53 {
			return nil, fmt.Errorf("number %v is not an exact integer; quote it", v)
		}
		return checkNonNegative(big.NewInt(int64(v)))

	case int64:
		return checkNonNegative(big.NewInt(v))

	case int:
		return checkNonNegative(big.NewInt(int64(v)))

	case nil:
		return nil, fmt.Errorf("missing value")

	default:
		return nil, fmt.Errorf("unsupported type: %T", val)
	}
}

func checkNonNegative(z *big.Int) (*big.Int, error) {
	if z.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s", z)
	}
	return z, nil
}

func asString(val interface{}) (string, error) {
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", val)
	}
	return strings.TrimSpace(s), nil
}

// Address parses a 20-byte hex address.
func Address(val interface{}) (eip712.Address, error) {
	s, err := asString(val)
	if err != nil {
		return eip712.Address{}, err
	}
	return eip712.ParseAddress(s)
}

// Hash parses a 32-byte hex value.
func Hash(val interface{}) (eip712.Hash, error) {
	var h eip712.Hash
	s, err := asString(val)
	if err != nil {
		return h, err
	}
	b, err := decodeHex(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash: %w", err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("hash must be %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

// PackedSignature parses a 65-byte r ‖ s ‖ v hex signature.
func PackedSignature(val interface{}) (*ecverify.Signature, error) {
	s, err := asString(val)
	if err != nil {
		return nil, err
	}
	b, err := decodeHex(s)
	if err != nil {
		return nil, fmt.Errorf("invalid signature hex: %w", err)
	}
	return ecverify.ParseSignature65(b)
}

// SignatureRS builds a signature from separate components. v may be nil.
func SignatureRS(r, s, v interface{}) (*ecverify.Signature, error) {
	rv, err := BigInt(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse r: %w", err)
	}
	sv, err := BigInt(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse s: %w", err)
	}
	sig := ecverify.FromRS(rv, sv)
	if v == nil || v == "" {
		return sig, nil
	}
	vv, err := BigInt(v)
	if err != nil {
		return nil, fmt.Errorf("failed to parse v: %w", err)
	}
	id := vv.Int64()
	if id >= 27 {
		id -= 27
	}
	if !vv.IsInt64() || id < 0 || id > 1 {
		return nil, fmt.Errorf("invalid recovery id %s", vv)
	}
	sig.V, sig.HasV = byte(id), true
	return sig, nil
}

// PublicKey parses a SEC1 compressed or uncompressed secp256k1 key.
func PublicKey(val interface{}) (*curve.Point, error) {
	s, err := asString(val)
	if err != nil {
		return nil, err
	}
	b, err := decodeHex(s)
	if err != nil {
		return nil, fmt.Errorf("invalid public key hex: %w", err)
	}
	q, err := curve.S256().ParsePublicKey(b)
	if err != nil {
		return nil, err
	}
	return &q, nil
}
