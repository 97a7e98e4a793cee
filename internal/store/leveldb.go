package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/mahdiidarabi/ticketsig/pkg/eip712"
	"github.com/mahdiidarabi/ticketsig/pkg/redeem"
)

var (
	digestPrefix = []byte("d/")
	noncePrefix  = []byte("n/")
)

// ErrClosed is returned by operations on a closed LevelStore.
var ErrClosed = errors.New("store is closed")

// LevelOptions configures a LevelStore.
type LevelOptions struct {
	// FilterCapacity sizes the in-memory digest filter (0 = default).
	FilterCapacity uint
	// NoSync skips fsync on commit. Only meant for tests.
	NoSync bool
}

// LevelStore persists the replay record and nonces in LevelDB. Digests are
// stored under "d/<digest>", nonces under "n/<owner>" as 32-byte big-endian
// values. Digest lookups go through a cuckoo filter that is rebuilt from the
// database on open.
type LevelStore struct {
	mu     sync.Mutex // serializes commits
	db     *leveldb.DB
	filter *digestFilter
	wo     *opt.WriteOptions
	closed bool
}

// OpenLevelStore opens (creating if needed) a store in dir.
func OpenLevelStore(dir string, o LevelOptions) (*LevelStore, error) {
	db, err := leveldb.OpenFile(dir, &opt.Options{ErrorIfMissing: false})
	if err != nil {
		return nil, fmt.Errorf("failed to open replay store %s: %w", dir, err)
	}
	log.Infof("Opened replay store at %s", dir)
	return newLevelStore(db, o)
}

// OpenMemLevelStore opens a store on volatile memory storage.
func OpenMemLevelStore(o LevelOptions) (*LevelStore, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory replay store: %w", err)
	}
	return newLevelStore(db, o)
}

func newLevelStore(db *leveldb.DB, o LevelOptions) (*LevelStore, error) {
	s := &LevelStore{
		db:     db,
		filter: newDigestFilter(o.FilterCapacity),
		wo:     &opt.WriteOptions{Sync: !o.NoSync},
	}
	n, err := s.warmFilter()
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Debugf("Loaded %d recorded digests into filter", n)
	return s, nil
}

func (s *LevelStore) warmFilter() (int, error) {
	iter := s.db.NewIterator(util.BytesPrefix(digestPrefix), nil)
	defer iter.Release()

	n := 0
	for iter.Next() {
		var d eip712.Hash
		copy(d[:], iter.Key()[len(digestPrefix):])
		s.filter.insert(d)
		n++
	}
	if err := iter.Error(); err != nil {
		return n, fmt.Errorf("failed to scan replay record: %w", err)
	}
	return n, nil
}

func digestKey(d eip712.Hash) []byte {
	return append(append([]byte{}, digestPrefix...), d[:]...)
}

func nonceKey(a eip712.Address) []byte {
	return append(append([]byte{}, noncePrefix...), a[:]...)
}

func (s *LevelStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// HasDigest implements redeem.Store.
func (s *LevelStore) HasDigest(_ context.Context, d eip712.Hash) (bool, error) {
	if s.isClosed() {
		return false, ErrClosed
	}
	if !s.filter.mayContain(d) {
		return false, nil
	}
	ok, err := s.db.Has(digestKey(d), nil)
	if err != nil {
		return false, fmt.Errorf("failed to read digest: %w", err)
	}
	return ok, nil
}

// Nonce implements redeem.Store.
func (s *LevelStore) Nonce(_ context.Context, owner eip712.Address) (*big.Int, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	v, err := s.db.Get(nonceKey(owner), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read nonce: %w", err)
	}
	return new(big.Int).SetBytes(v), nil
}

// Commit implements redeem.Store. The digest and nonce go into a single
// batch write.
func (s *LevelStore) Commit(_ context.Context, c redeem.Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	key := digestKey(c.Digest)
	exists, err := s.db.Has(key, nil)
	if err != nil {
		return fmt.Errorf("failed to read digest: %w", err)
	}
	if exists {
		return redeem.ErrReplayed
	}

	batch := new(leveldb.Batch)
	batch.Put(key, []byte{1})
	if c.NextNonce != nil {
		w, err := eip712.Uint256Word(c.NextNonce)
		if err != nil {
			return fmt.Errorf("invalid nonce: %w", err)
		}
		batch.Put(nonceKey(c.Owner), w[:])
	}
	if err := s.db.Write(batch, s.wo); err != nil {
		return fmt.Errorf("failed to write replay record: %w", err)
	}
	s.filter.insert(c.Digest)
	return nil
}

// Close closes the database.
func (s *LevelStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
