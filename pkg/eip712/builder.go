package eip712

import (
	"errors"
	"fmt"
	"math/big"
)

// DomainType is the EIP712Domain struct used for the separator.
var DomainType = StructType{
	Name: "EIP712Domain",
	Fields: []Field{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
}

// Domain identifies the issuer, network and contract instance a signature
// is bound to.
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract Address
}

// Builder produces digests for a fixed Domain and Hasher. It is immutable
// after construction and safe for concurrent use.
type Builder struct {
	hasher    Hasher
	domain    Domain
	separator Hash
}

// NewBuilder computes the domain separator once and returns a Builder.
// A nil hasher selects Keccak256.
func NewBuilder(h Hasher, d Domain) (*Builder, error) {
	if h == nil {
		h = Keccak256{}
	}
	if d.ChainID == nil {
		return nil, errors.New("domain chain id is required")
	}
	chainID, err := Uint256Word(d.ChainID)
	if err != nil {
		return nil, fmt.Errorf("invalid chain id: %w", err)
	}
	sep, err := HashStruct(h, DomainType,
		StringWord(h, d.Name),
		StringWord(h, d.Version),
		chainID,
		AddressWord(d.VerifyingContract),
	)
	if err != nil {
		return nil, err
	}

	d.ChainID = new(big.Int).Set(d.ChainID)
	return &Builder{hasher: h, domain: d, separator: sep}, nil
}

// Hasher returns the hash primitive the builder was created with.
func (b *Builder) Hasher() Hasher { return b.hasher }

// Domain returns a copy of the bound domain.
func (b *Builder) Domain() Domain {
	d := b.domain
	d.ChainID = new(big.Int).Set(b.domain.ChainID)
	return d
}

// DomainSeparator returns hashStruct(EIP712Domain).
func (b *Builder) DomainSeparator() Hash { return b.separator }

// HashStruct hashes a message of type t with the builder's hasher.
func (b *Builder) HashStruct(t StructType, words ...Word) (Hash, error) {
	return HashStruct(b.hasher, t, words...)
}

// Digest returns H(0x19 ‖ 0x01 ‖ domainSeparator ‖ structHash).
func (b *Builder) Digest(structHash Hash) Hash {
	return b.hasher.Sum(digestPrefix, b.separator[:], structHash[:])
}

// TypedDigest hashes the message and returns its digest in one step.
func (b *Builder) TypedDigest(t StructType, words ...Word) (Hash, error) {
	sh, err := b.HashStruct(t, words...)
	if err != nil {
		return Hash{}, err
	}
	return b.Digest(sh), nil
}
