package redeem

import (
	"hash/fnv"
	"sort"
	"sync"
)

const defaultLockStripes = 256

// keyLocks serializes work on the same ticket or owner with a fixed set of
// mutexes. Keys hash onto stripes; a request takes every stripe it touches
// in ascending order, so two requests can never wait on each other in a
// cycle.
type keyLocks struct {
	stripes []sync.Mutex
}

func newKeyLocks(n int) *keyLocks {
	if n <= 0 {
		n = defaultLockStripes
	}
	return &keyLocks{stripes: make([]sync.Mutex, n)}
}

func (k *keyLocks) index(key []byte) int {
	h := fnv.New32a()
	h.Write(key)
	return int(h.Sum32() % uint32(len(k.stripes)))
}

// lock acquires the stripes for all keys and returns the release func.
func (k *keyLocks) lock(keys ...[]byte) func() {
	idx := make([]int, 0, len(keys))
	seen := make(map[int]bool, len(keys))
	for _, key := range keys {
		i := k.index(key)
		if !seen[i] {
			seen[i] = true
			idx = append(idx, i)
		}
	}
	sort.Ints(idx)

	for _, i := range idx {
		k.stripes[i].Lock()
	}
	return func() {
		for j := len(idx) - 1; j >= 0; j-- {
			k.stripes[idx[j]].Unlock()
		}
	}
}
