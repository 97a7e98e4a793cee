// Package eip712 builds domain-separated digests of typed structured data
// in the manner of EIP-712.
//
// A Builder is bound to one Domain (application name, version, chain and
// verifying contract) and one Hasher. Its digests have the form
//
//	H(0x19 ‖ 0x01 ‖ domainSeparator ‖ hashStruct(message))
//
// so a signature produced for one deployment or network does not verify
// against another.
package eip712

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
)

// WordLen is the width of every encoded struct member.
const WordLen = 32

// Word is one fixed-width member of an encoded struct.
type Word [WordLen]byte

var (
	// ErrUintOverflow is returned for integers that do not fit in 256 bits.
	ErrUintOverflow = errors.New("integer does not fit in uint256")

	// ErrNegativeUint is returned for negative values passed as uint256.
	ErrNegativeUint = errors.New("negative value for unsigned integer")

	// ErrFieldCount is returned when the number of words does not match the
	// number of declared fields.
	ErrFieldCount = errors.New("field count mismatch")
)

var digestPrefix = []byte{0x19, 0x01}

// Field declares one member of a struct type.
type Field struct {
	Name string
	Type string
}

// StructType describes a named struct. Refs lists the struct types used by
// any member (directly or transitively), which are appended to the encoded
// type in alphabetical order.
type StructType struct {
	Name   string
	Fields []Field
	Refs   []StructType
}

func (t StructType) encodeOwn() string {
	var sb strings.Builder
	sb.WriteString(t.Name)
	sb.WriteByte('(')
	for i, f := range t.Fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(f.Type)
		sb.WriteByte(' ')
		sb.WriteString(f.Name)
	}
	sb.WriteByte(')')
	return sb.String()
}

// EncodeType returns the canonical type descriptor, e.g.
// "Mail(Person from,Person to,string contents)Person(string name,address wallet)".
func (t StructType) EncodeType() string {
	refs := make([]StructType, len(t.Refs))
	copy(refs, t.Refs)
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })

	var sb strings.Builder
	sb.WriteString(t.encodeOwn())
	for _, r := range refs {
		sb.WriteString(r.encodeOwn())
	}
	return sb.String()
}

// TypeHash returns H(EncodeType()).
func (t StructType) TypeHash(h Hasher) Hash {
	return h.Sum([]byte(t.EncodeType()))
}

// HashStruct returns H(typeHash ‖ words...). The words must be supplied in
// field declaration order.
func HashStruct(h Hasher, t StructType, words ...Word) (Hash, error) {
	if len(words) != len(t.Fields) {
		return Hash{}, fmt.Errorf("%w: %s declares %d fields, got %d", ErrFieldCount, t.Name, len(t.Fields), len(words))
	}
	typeHash := t.TypeHash(h)
	parts := make([][]byte, 0, len(words)+1)
	parts = append(parts, typeHash[:])
	for i := range words {
		parts = append(parts, words[i][:])
	}
	return h.Sum(parts...), nil
}

// Uint256Word encodes v as a 32-byte big-endian integer. A nil v encodes
// as zero.
func Uint256Word(v *big.Int) (Word, error) {
	var w Word
	if v == nil {
		return w, nil
	}
	if v.Sign() < 0 {
		return w, ErrNegativeUint
	}
	if v.BitLen() > 8*WordLen {
		return w, ErrUintOverflow
	}
	v.FillBytes(w[:])
	return w, nil
}

// Uint64Word encodes v as a 32-byte big-endian integer.
func Uint64Word(v uint64) Word {
	w, _ := Uint256Word(new(big.Int).SetUint64(v))
	return w
}

// AddressWord left-pads a 20-byte identifier to a word.
func AddressWord(a Address) Word {
	var w Word
	copy(w[WordLen-AddressLen:], a[:])
	return w
}

// Bytes32Word passes a 32-byte value through unchanged.
func Bytes32Word(b Hash) Word {
	return Word(b)
}

// StringWord encodes a dynamic string member as H(utf8 bytes).
func StringWord(h Hasher, s string) Word {
	return Word(h.Sum([]byte(s)))
}

// BytesWord encodes a dynamic bytes member as H(b).
func BytesWord(h Hasher, b []byte) Word {
	return Word(h.Sum(b))
}

// StructWord encodes a nested struct member by its struct hash.
func StructWord(structHash Hash) Word {
	return Word(structHash)
}
