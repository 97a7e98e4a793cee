package ecverify

import (
	"math/big"
	"testing"

	"github.com/mahdiidarabi/ticketsig/pkg/curve"
)

func TestVerify_RoundTrip(t *testing.T) {
	messages := []string{"seat-A12", "", "redeem me", "another message entirely"}

	for i := 0; i < 3; i++ {
		key := newTestKey(t)
		for _, msg := range messages {
			hash := hashMessage(msg)
			sig := key.sign(hash)
			if !sig.IsLowS() {
				t.Fatalf("signer produced high-S signature")
			}

			ok, err := Verify(new(big.Int).SetBytes(hash), sig.R, sig.S, key.pub)
			if err != nil {
				t.Fatalf("Verify returned error: %v", err)
			}
			if !ok {
				t.Fatalf("valid signature rejected for message %q", msg)
			}
		}
	}
}

func TestVerify_WrongMessageOrKey(t *testing.T) {
	key := newTestKey(t)
	other := newTestKey(t)
	hash := hashMessage("seat-A12")
	sig := key.sign(hash)
	z := new(big.Int).SetBytes(hash)

	ok, err := Verify(new(big.Int).SetBytes(hashMessage("seat-A13")), sig.R, sig.S, key.pub)
	if err != nil || ok {
		t.Errorf("expected (false, nil) for wrong message, got (%v, %v)", ok, err)
	}

	ok, err = Verify(z, sig.R, sig.S, other.pub)
	if err != nil || ok {
		t.Errorf("expected (false, nil) for wrong key, got (%v, %v)", ok, err)
	}
}

func TestVerify_MalleableSignatureRejected(t *testing.T) {
	key := newTestKey(t)
	hash := hashMessage("seat-A12")
	sig := key.sign(hash)
	z := new(big.Int).SetBytes(hash)

	highS := new(big.Int).Sub(curve.S256().N(), sig.S)
	ok, err := Verify(z, sig.R, highS, key.pub)
	if err != ErrInvalidS {
		t.Fatalf("expected ErrInvalidS for (r, n-s), got (%v, %v)", ok, err)
	}

	// Normalize brings it back to the accepted form.
	twin := &Signature{R: sig.R, S: highS, V: sig.V ^ 1, HasV: true}
	twin.Normalize()
	if twin.S.Cmp(sig.S) != 0 || twin.V != sig.V {
		t.Fatal("Normalize did not restore the canonical signature")
	}
	if ok, err := VerifySignature(z, twin, key.pub); err != nil || !ok {
		t.Fatalf("normalized signature rejected: (%v, %v)", ok, err)
	}
}

func TestVerify_InputValidation(t *testing.T) {
	c := curve.S256()
	key := newTestKey(t)
	hash := hashMessage("seat-A12")
	sig := key.sign(hash)
	z := new(big.Int).SetBytes(hash)
	n := c.N()

	cases := []struct {
		name string
		r, s *big.Int
		q    curve.Point
		want error
	}{
		{"r zero", big.NewInt(0), sig.S, key.pub, ErrInvalidR},
		{"r equals n", n, sig.S, key.pub, ErrInvalidR},
		{"r negative", big.NewInt(-5), sig.S, key.pub, ErrInvalidR},
		{"s zero", sig.R, big.NewInt(0), key.pub, ErrInvalidS},
		{"s above half order", sig.R, new(big.Int).Add(c.HalfN(), big.NewInt(1)), key.pub, ErrInvalidS},
		{"s equals n", sig.R, n, key.pub, ErrInvalidS},
		{"r checked before s", big.NewInt(0), big.NewInt(0), key.pub, ErrInvalidR},
		{"infinity key", sig.R, sig.S, curve.Infinity(), ErrInvalidPublicKey},
		{"off-curve key", sig.R, sig.S, curve.NewAffine(big.NewInt(1), big.NewInt(1)), ErrInvalidPublicKey},
		{"s checked before key", sig.R, n, curve.Infinity(), ErrInvalidS},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := Verify(z, tc.r, tc.s, tc.q)
			if err != tc.want {
				t.Errorf("expected %v, got (%v, %v)", tc.want, ok, err)
			}
			if ok {
				t.Error("invalid input must not verify")
			}
		})
	}
}

func TestVerify_HalfOrderBoundaryAccepted(t *testing.T) {
	// s = ⌊n/2⌋ is the largest accepted value; the range check must pass
	// and the result is simply a non-matching signature.
	key := newTestKey(t)
	c := curve.S256()
	ok, err := Verify(big.NewInt(1), big.NewInt(1), c.HalfN(), key.pub)
	if err != nil {
		t.Fatalf("s = n/2 should pass the range check, got %v", err)
	}
	if ok {
		t.Error("arbitrary signature should not verify")
	}
}

// Vector taken from a libsecp256k1 compatible test suite.
func TestVerify_KnownVector(t *testing.T) {
	z := mustBig(t, "3382219555ddbb5b00e0090f469e590ba1eae03c7f28ab937de330aa60294ed6")
	r := mustBig(t, "fe00e013c244062847045ae7eb73b03fca583e9aa5dbd030a8fd1c6dfcf11b10")
	s := mustBig(t, "7d0d04fed8fa1e93007468d5a9e134b0a7023b6d31db4e50942d43a250f4d07c")
	q, err := curve.S256().ParsePublicKey(mustHexBytes(t, "040eaebcd1df2df853d66ce0e1b0fda07f67d1cabefde98514aad795b86a6ea66dbeb26b67d7a00e2447baeccc8a4cef7cd3cad67376ac1c5785aeebb4f6441c16"))
	if err != nil {
		t.Fatalf("Failed to parse public key: %v", err)
	}

	ok, err := Verify(z, r, s, q)
	if err != nil || !ok {
		t.Fatalf("known vector failed: (%v, %v)", ok, err)
	}
}

func TestRecoverPublicKey(t *testing.T) {
	key := newTestKey(t)
	hash := hashMessage("seat-A12")
	sig := key.sign(hash)
	z := new(big.Int).SetBytes(hash)

	got, err := RecoverPublicKey(z, sig)
	if err != nil {
		t.Fatalf("RecoverPublicKey failed: %v", err)
	}
	if !got.Equal(key.pub) {
		t.Fatalf("recovered %s, want %s", got, key.pub)
	}

	flipped := *sig
	flipped.V ^= 1
	got, err = RecoverPublicKey(z, &flipped)
	if err == nil && got.Equal(key.pub) {
		t.Error("wrong recovery id must not yield the signer key")
	}

	noV := FromRS(sig.R, sig.S)
	if _, err := RecoverPublicKey(z, noV); err != ErrNoRecoveryID {
		t.Errorf("expected ErrNoRecoveryID, got %v", err)
	}

	highS := &Signature{R: sig.R, S: new(big.Int).Sub(curve.S256().N(), sig.S), V: sig.V, HasV: true}
	if _, err := RecoverPublicKey(z, highS); err != ErrInvalidS {
		t.Errorf("expected ErrInvalidS, got %v", err)
	}
}

func TestRecoverPublicKey_KnownVectors(t *testing.T) {
	vectors := []struct {
		r, s, z string
		v       byte
		x, y    string
	}{
		{
			r: "6028b9e3a31c9e725fcbd7d5d16736aaaafcc9bf157dfb4be62bcbcf0969d488",
			s: "036d4a36fa235b8f9f815aa6f5457a607f956a71a035bf0970d8578bf218bb5a",
			z: "9cff3da1a4f86caf3683f865232c64992b5ed002af42b321b8d8a48420680487",
			v: 0,
			x: "56dc5df245955302893d8dda0677cc9865d8011bc678c7803a18b5f6faafec08",
			y: "54b5fbdcd8fac6468dac2de88fadce6414f5f3afbb103753e25161bef77705a6",
		},
		{
			r: "b470e02f834a3aaafa27bd2b49e07269e962a51410f364e9e195c31351a05e50",
			s: "560978aed76de9d5d781f87ed2068832ed545f2b21bf040654a2daff694c8b09",
			z: "9ce428d58e8e4caf619dc6fc7b2c2c28f0561654d1f80f322c038ad5e67ff8a6",
			v: 1,
			x: "15b7e7d00f024bffcd2e47524bb7b7d3a6b251e23a3a43191ed7f0a418d9a578",
			y: "bf29a25e2d1f32c5afb18b41ae60112723278a8af31275965a6ec1d95334e840",
		},
	}

	for i, vec := range vectors {
		sig := &Signature{R: mustBig(t, vec.r), S: mustBig(t, vec.s), V: vec.v, HasV: true}
		got, err := RecoverPublicKey(mustBig(t, vec.z), sig)
		if err != nil {
			t.Fatalf("vector %d: %v", i, err)
		}
		if got.X().Cmp(mustBig(t, vec.x)) != 0 || got.Y().Cmp(mustBig(t, vec.y)) != 0 {
			t.Errorf("vector %d: recovered %s", i, got)
		}
	}
}

func TestParseSignature65(t *testing.T) {
	key := newTestKey(t)
	sig := key.sign(hashMessage("seat-A12"))

	packed := sig.Bytes()
	parsed, err := ParseSignature65(packed)
	if err != nil {
		t.Fatalf("ParseSignature65 failed: %v", err)
	}
	if parsed.R.Cmp(sig.R) != 0 || parsed.S.Cmp(sig.S) != 0 || parsed.V != sig.V || !parsed.HasV {
		t.Fatal("parsed signature differs from original")
	}

	packed[64] += 27
	parsed, err = ParseSignature65(packed)
	if err != nil || parsed.V != sig.V {
		t.Fatalf("27/28 recovery id not accepted: %v", err)
	}

	packed[64] = 5
	if _, err := ParseSignature65(packed); err == nil {
		t.Error("expected error for recovery id 5")
	}
	if _, err := ParseSignature65(packed[:64]); err == nil {
		t.Error("expected error for 64-byte input")
	}
}
