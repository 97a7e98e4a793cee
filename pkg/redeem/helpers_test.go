package redeem_test

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	decredecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/require"

	"github.com/mahdiidarabi/ticketsig/internal/ledger"
	"github.com/mahdiidarabi/ticketsig/internal/store"
	"github.com/mahdiidarabi/ticketsig/pkg/curve"
	"github.com/mahdiidarabi/ticketsig/pkg/ecverify"
	"github.com/mahdiidarabi/ticketsig/pkg/eip712"
	"github.com/mahdiidarabi/ticketsig/pkg/redeem"
)

var testNow = time.Unix(1_700_000_000, 0)

func testDomain() eip712.Domain {
	return eip712.Domain{
		Name:              "TicketGate",
		Version:           "1",
		ChainID:           big.NewInt(1),
		VerifyingContract: eip712.MustParseAddress("0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC"),
	}
}

type signer struct {
	priv  *secp256k1.PrivateKey
	pub   curve.Point
	owner eip712.Address
}

func newSigner(t *testing.T) signer {
	t.Helper()
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	pub, err := curve.S256().ParsePublicKey(priv.PubKey().SerializeUncompressed())
	require.NoError(t, err)
	owner, err := eip712.AddressFromPublicKey(eip712.Keccak256{}, pub)
	require.NoError(t, err)
	return signer{priv: priv, pub: pub, owner: owner}
}

func (s signer) signDigest(d eip712.Hash) *ecverify.Signature {
	compact := decredecdsa.SignCompact(s.priv, d[:], false)
	return &ecverify.Signature{
		R:    new(big.Int).SetBytes(compact[1:33]),
		S:    new(big.Int).SetBytes(compact[33:65]),
		V:    compact[0] - 27,
		HasV: true,
	}
}

// countingLedger records MarkUsed successes on top of the memory ledger.
type countingLedger struct {
	*ledger.Memory
	marked int32
}

func (l *countingLedger) MarkUsed(ctx context.Context, id *big.Int) error {
	err := l.Memory.MarkUsed(ctx, id)
	if err == nil {
		atomic.AddInt32(&l.marked, 1)
	}
	return err
}

type fixture struct {
	t       *testing.T
	builder *eip712.Builder
	ledger  *countingLedger
	store   *store.MemStore
	guard   *redeem.Guard
	alice   signer
}

func newFixture(t *testing.T, opts ...redeem.Option) *fixture {
	t.Helper()
	b, err := eip712.NewBuilder(nil, testDomain())
	require.NoError(t, err)

	f := &fixture{
		t:       t,
		builder: b,
		ledger:  &countingLedger{Memory: ledger.NewMemory()},
		store:   store.NewMemStore(),
		alice:   newSigner(t),
	}
	all := append([]redeem.Option{redeem.WithClock(func() time.Time { return testNow })}, opts...)
	f.guard, err = redeem.New(b, f.ledger, f.store, all...)
	require.NoError(t, err)
	return f
}

func (f *fixture) mint(id int64, owner eip712.Address) {
	f.t.Helper()
	require.NoError(f.t, f.ledger.Mint(big.NewInt(id), owner))
}

// unsigned returns a request for alice that expires an hour from testNow.
func (f *fixture) unsigned(ticket, nonce int64) *redeem.Request {
	return &redeem.Request{
		TicketID:     big.NewInt(ticket),
		Owner:        f.alice.owner,
		Nonce:        big.NewInt(nonce),
		Deadline:     big.NewInt(testNow.Unix() + 3600),
		MetadataHash: eip712.Keccak256{}.Sum([]byte("seat-A12")),
	}
}

func (f *fixture) signWith(s signer, req *redeem.Request) *redeem.Request {
	f.t.Helper()
	d, err := f.guard.Digest(req)
	require.NoError(f.t, err)
	req.Signature = s.signDigest(d)
	return req
}

func (f *fixture) signed(ticket, nonce int64) *redeem.Request {
	return f.signWith(f.alice, f.unsigned(ticket, nonce))
}

// assertUntouched checks that no redemption has been committed anywhere.
func (f *fixture) assertUntouched(ticket int64) {
	f.t.Helper()
	require.False(f.t, f.ledger.IsUsed(big.NewInt(ticket)), "ticket must stay unused")
	require.Equal(f.t, 0, f.store.Len(), "replay record must stay empty")
	n, err := f.store.Nonce(context.Background(), f.alice.owner)
	require.NoError(f.t, err)
	require.Equal(f.t, 0, n.Sign(), "nonce must not advance")
}

// failingStore fails every operation with an I/O style error.
type failingStore struct{}

var errDisk = errors.New("disk on fire")

func (failingStore) HasDigest(context.Context, eip712.Hash) (bool, error) { return false, errDisk }
func (failingStore) Nonce(context.Context, eip712.Address) (*big.Int, error) {
	return nil, errDisk
}
func (failingStore) Commit(context.Context, redeem.Commit) error { return errDisk }

// commitFailingStore behaves like a MemStore until Commit, which fails.
type commitFailingStore struct {
	*store.MemStore
}

func (commitFailingStore) Commit(context.Context, redeem.Commit) error { return errDisk }
