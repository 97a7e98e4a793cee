package ecverify

import (
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	decredecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/mahdiidarabi/ticketsig/pkg/curve"
)

// testKey holds a key pair generated with the decred implementation.
type testKey struct {
	priv *secp256k1.PrivateKey
	pub  curve.Point
}

func newTestKey(t *testing.T) testKey {
	t.Helper()
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	pub, err := curve.S256().ParsePublicKey(priv.PubKey().SerializeUncompressed())
	if err != nil {
		t.Fatalf("Failed to parse public key: %v", err)
	}
	return testKey{priv: priv, pub: pub}
}

// sign produces a low-S signature with recovery id using RFC6979 nonces.
func (k testKey) sign(hash []byte) *Signature {
	compact := decredecdsa.SignCompact(k.priv, hash, false)
	sig := &Signature{
		R:    new(big.Int).SetBytes(compact[1:33]),
		S:    new(big.Int).SetBytes(compact[33:65]),
		V:    compact[0] - 27,
		HasV: true,
	}
	return sig
}

func hashMessage(msg string) []byte {
	h := sha256.Sum256([]byte(msg))
	return h[:]
}

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		t.Fatalf("invalid hex %q", s)
	}
	return v
}

func mustHexBytes(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("invalid hex %q: %v", s, err)
	}
	return b
}
