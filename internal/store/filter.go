package store

import (
	"sync"

	cuckoo "github.com/seiflotfy/cuckoofilter"

	"github.com/mahdiidarabi/ticketsig/pkg/eip712"
)

// DefaultFilterCapacity sizes the digest filter when none is configured.
const DefaultFilterCapacity = 1 << 20

// digestFilter answers "definitely not recorded" without touching the
// database. Digests are never removed, so a negative answer stays valid
// until the digest is inserted. Once the filter refuses an insert it is
// marked saturated and every lookup falls through to the database.
type digestFilter struct {
	mu        sync.Mutex
	cf        *cuckoo.Filter
	saturated bool
}

func newDigestFilter(capacity uint) *digestFilter {
	if capacity == 0 {
		capacity = DefaultFilterCapacity
	}
	return &digestFilter{cf: cuckoo.NewFilter(capacity)}
}

// mayContain returns false only when d was never inserted.
func (f *digestFilter) mayContain(d eip712.Hash) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saturated {
		return true
	}
	return f.cf.Lookup(d[:])
}

func (f *digestFilter) insert(d eip712.Hash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saturated {
		return
	}
	if !f.cf.Insert(d[:]) {
		log.Warnf("Digest filter full after %d entries; falling back to database lookups", f.cf.Count())
		f.saturated = true
	}
}

func (f *digestFilter) isSaturated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saturated
}
