package store

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahdiidarabi/ticketsig/pkg/eip712"
	"github.com/mahdiidarabi/ticketsig/pkg/redeem"
)

func digestOf(s string) eip712.Hash {
	return eip712.Hash(sha256.Sum256([]byte(s)))
}

var (
	alice = eip712.MustParseAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")
	bob   = eip712.MustParseAddress("0x2B5AD5c4795c026514f8317c7a215E218DcCD6cF")
)

// storeContract runs the behavior every redeem.Store must share.
func storeContract(t *testing.T, open func(t *testing.T) redeem.Store) {
	ctx := context.Background()

	t.Run("EmptyStore", func(t *testing.T) {
		s := open(t)
		seen, err := s.HasDigest(ctx, digestOf("a"))
		require.NoError(t, err)
		assert.False(t, seen)

		n, err := s.Nonce(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, 0, n.Sign())
	})

	t.Run("CommitRecordsDigestAndNonce", func(t *testing.T) {
		s := open(t)
		d := digestOf("a")
		require.NoError(t, s.Commit(ctx, redeem.Commit{Digest: d, Owner: alice, NextNonce: big.NewInt(1)}))

		seen, err := s.HasDigest(ctx, d)
		require.NoError(t, err)
		assert.True(t, seen)

		n, err := s.Nonce(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n.Int64())

		other, err := s.Nonce(ctx, bob)
		require.NoError(t, err)
		assert.Equal(t, 0, other.Sign(), "nonces are per owner")
	})

	t.Run("DuplicateDigestRejected", func(t *testing.T) {
		s := open(t)
		d := digestOf("dup")
		require.NoError(t, s.Commit(ctx, redeem.Commit{Digest: d, Owner: alice, NextNonce: big.NewInt(1)}))

		err := s.Commit(ctx, redeem.Commit{Digest: d, Owner: alice, NextNonce: big.NewInt(2)})
		assert.ErrorIs(t, err, redeem.ErrReplayed)

		n, err := s.Nonce(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n.Int64(), "failed commit must not touch the nonce")
	})

	t.Run("NilNextNonceLeavesNonce", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Commit(ctx, redeem.Commit{Digest: digestOf("x"), Owner: alice, NextNonce: big.NewInt(5)}))
		require.NoError(t, s.Commit(ctx, redeem.Commit{Digest: digestOf("y"), Owner: alice}))

		n, err := s.Nonce(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n.Int64())
	})

	t.Run("ReturnedNonceIsACopy", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Commit(ctx, redeem.Commit{Digest: digestOf("c"), Owner: alice, NextNonce: big.NewInt(3)}))

		n, err := s.Nonce(ctx, alice)
		require.NoError(t, err)
		n.SetInt64(100)

		again, err := s.Nonce(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, int64(3), again.Int64())
	})
}

func TestMemStore(t *testing.T) {
	storeContract(t, func(t *testing.T) redeem.Store { return NewMemStore() })
}

func TestMemStore_Len(t *testing.T) {
	s := NewMemStore()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Commit(context.Background(), redeem.Commit{Digest: digestOf(fmt.Sprint(i)), Owner: alice}))
	}
	assert.Equal(t, 3, s.Len())
}

func TestLevelStore(t *testing.T) {
	storeContract(t, func(t *testing.T) redeem.Store {
		s, err := OpenMemLevelStore(LevelOptions{NoSync: true})
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestLevelStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := OpenLevelStore(dir, LevelOptions{})
	require.NoError(t, err)
	d := digestOf("persist")
	require.NoError(t, s.Commit(ctx, redeem.Commit{Digest: d, Owner: alice, NextNonce: big.NewInt(7)}))
	require.NoError(t, s.Close())

	s, err = OpenLevelStore(dir, LevelOptions{})
	require.NoError(t, err)
	defer s.Close()

	seen, err := s.HasDigest(ctx, d)
	require.NoError(t, err)
	assert.True(t, seen, "digest must survive restart")
	assert.True(t, s.filter.mayContain(d), "filter must be rebuilt on open")

	n, err := s.Nonce(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n.Int64())

	err = s.Commit(ctx, redeem.Commit{Digest: d, Owner: alice})
	assert.ErrorIs(t, err, redeem.ErrReplayed)
}

func TestLevelStore_Closed(t *testing.T) {
	s, err := OpenMemLevelStore(LevelOptions{NoSync: true})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "second close is a no-op")

	ctx := context.Background()
	_, err = s.HasDigest(ctx, digestOf("a"))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Nonce(ctx, alice)
	assert.ErrorIs(t, err, ErrClosed)
	err = s.Commit(ctx, redeem.Commit{Digest: digestOf("a"), Owner: alice})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDigestFilter_SaturationFallsThrough(t *testing.T) {
	f := newDigestFilter(1)
	var inserted []eip712.Hash
	for i := 0; i < 64; i++ {
		d := digestOf(fmt.Sprintf("d%d", i))
		f.insert(d)
		inserted = append(inserted, d)
	}
	require.True(t, f.isSaturated())
	for _, d := range inserted {
		assert.True(t, f.mayContain(d))
	}
	assert.True(t, f.mayContain(digestOf("never")), "saturated filter answers maybe")
}

func TestLevelStore_SaturatedFilterStillCorrect(t *testing.T) {
	ctx := context.Background()
	s, err := OpenMemLevelStore(LevelOptions{FilterCapacity: 1, NoSync: true})
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 32; i++ {
		require.NoError(t, s.Commit(ctx, redeem.Commit{Digest: digestOf(fmt.Sprint(i)), Owner: alice}))
	}
	require.True(t, s.filter.isSaturated())

	seen, err := s.HasDigest(ctx, digestOf("5"))
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = s.HasDigest(ctx, digestOf("missing"))
	require.NoError(t, err)
	assert.False(t, seen)
}
