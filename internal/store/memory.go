// Package store provides redeem.Store implementations: an in-memory store
// and a LevelDB backed store that survives restarts.
package store

import (
	"context"
	"math/big"
	"sync"

	"github.com/mahdiidarabi/ticketsig/pkg/eip712"
	"github.com/mahdiidarabi/ticketsig/pkg/redeem"
)

// MemStore keeps the replay record and nonces in maps.
type MemStore struct {
	mu      sync.RWMutex
	digests map[eip712.Hash]struct{}
	nonces  map[eip712.Address]*big.Int
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		digests: make(map[eip712.Hash]struct{}),
		nonces:  make(map[eip712.Address]*big.Int),
	}
}

// HasDigest implements redeem.Store.
func (s *MemStore) HasDigest(_ context.Context, d eip712.Hash) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.digests[d]
	return ok, nil
}

// Nonce implements redeem.Store. Unknown owners start at zero.
func (s *MemStore) Nonce(_ context.Context, owner eip712.Address) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.nonces[owner]; ok {
		return new(big.Int).Set(n), nil
	}
	return new(big.Int), nil
}

// Commit implements redeem.Store.
func (s *MemStore) Commit(_ context.Context, c redeem.Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.digests[c.Digest]; ok {
		return redeem.ErrReplayed
	}
	s.digests[c.Digest] = struct{}{}
	if c.NextNonce != nil {
		s.nonces[c.Owner] = new(big.Int).Set(c.NextNonce)
	}
	return nil
}

// Len returns the number of recorded digests.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.digests)
}
