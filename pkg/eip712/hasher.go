package eip712

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/decred/dcrd/crypto/blake256"
	"golang.org/x/crypto/sha3"
)

// Hash is a 256-bit digest.
type Hash [32]byte

// Hex returns the 0x prefixed lowercase hex form.
func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) String() string {
	return h.Hex()
}

// Hasher is the 256-bit hash primitive used for type hashes, struct hashes,
// the domain separator and identity derivation. A deployment must use the
// same Hasher as its off-chain signer.
type Hasher interface {
	// Sum hashes the concatenation of all inputs.
	Sum(data ...[]byte) Hash
	// Name identifies the primitive, e.g. in configuration files.
	Name() string
}

// Keccak256 is the original Keccak-256 (not FIPS-202 SHA3-256), as used by
// EIP-712 signers.
type Keccak256 struct{}

// Sum implements Hasher.
func (Keccak256) Sum(data ...[]byte) Hash {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var out Hash
	h.Sum(out[:0])
	return out
}

// Name implements Hasher.
func (Keccak256) Name() string { return "keccak256" }

// SHA256 is provided for deployments whose signers hash with SHA-256.
type SHA256 struct{}

// Sum implements Hasher.
func (SHA256) Sum(data ...[]byte) Hash {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	var out Hash
	h.Sum(out[:0])
	return out
}

// Name implements Hasher.
func (SHA256) Name() string { return "sha256" }

// Blake256 is BLAKE-256 with 14 rounds, the hash used by Decred signers.
type Blake256 struct{}

// Sum implements Hasher.
func (Blake256) Sum(data ...[]byte) Hash {
	h := blake256.New()
	for _, d := range data {
		h.Write(d)
	}
	var out Hash
	h.Sum(out[:0])
	return out
}

// Name implements Hasher.
func (Blake256) Name() string { return "blake256" }

// HasherByName returns the hasher registered under name.
func HasherByName(name string) (Hasher, bool) {
	switch name {
	case "", "keccak256", "keccak-256":
		return Keccak256{}, true
	case "sha256", "sha-256":
		return SHA256{}, true
	case "blake256", "blake-256":
		return Blake256{}, true
	default:
		return nil, false
	}
}
