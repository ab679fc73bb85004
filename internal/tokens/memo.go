package tokens

import (
	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoSize is the number of distinct contents remembered by NewMemo
// when no size is given.
const DefaultMemoSize = 4096

// Memo remembers counts by content digest so identical files (vendored copies,
// repeated license texts) are encoded once per run.
type Memo struct {
	inner Counter
	cache *lru.Cache[uint64, int]
}

// NewMemo wraps inner with an LRU of size entries.
func NewMemo(inner Counter, size int) (*Memo, error) {
	if size <= 0 {
		size = DefaultMemoSize
	}
	cache, err := lru.New[uint64, int](size)
	if err != nil {
		return nil, err
	}
	return &Memo{inner: inner, cache: cache}, nil
}

// Count returns the inner counter's result, from the cache when possible.
// Failures are not remembered.
func (m *Memo) Count(text string) (int, error) {
	key := xxhash.Sum64String(text)
	if n, ok := m.cache.Get(key); ok {
		return n, nil
	}
	n, err := m.inner.Count(text)
	if err != nil {
		return 0, err
	}
	m.cache.Add(key, n)
	return n, nil
}

// Len returns the number of remembered contents.
func (m *Memo) Len() int {
	return m.cache.Len()
}
