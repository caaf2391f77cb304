package chainkv

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultCacheSize is the per-family LRU capacity. Small and fixed: the
// cache exists to absorb the read-after-write and reorg-walk hot paths,
// not to act as a general block cache (that's the caller's concern).
const DefaultCacheSize = 256

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainstore_write_cache_hits_total",
		Help: "Write-through cache hits by key family.",
	}, []string{"family"})

	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainstore_write_cache_misses_total",
		Help: "Write-through cache misses by key family.",
	}, []string{"family"})
)

// family identifies one of the bounded caches WriteCache maintains. Each
// family caches encoded value bytes keyed by the family's own encoded key,
// so the cache never needs to know about RLP or JSON shapes.
type family struct {
	name string
	lru  *simplelru.LRU[string, []byte]
	mu   sync.RWMutex
}

func newFamily(name string, size int) *family {
	l, _ := simplelru.NewLRU[string, []byte](size, nil)
	return &family{name: name, lru: l}
}

func (f *family) get(key []byte) ([]byte, bool) {
	f.mu.RLock()
	v, ok := f.lru.Get(string(key))
	f.mu.RUnlock()
	if ok {
		cacheHits.WithLabelValues(f.name).Inc()
	} else {
		cacheMisses.WithLabelValues(f.name).Inc()
	}
	return v, ok
}

func (f *family) add(key, value []byte) {
	f.mu.Lock()
	f.lru.Add(string(key), value)
	f.mu.Unlock()
}

func (f *family) remove(key []byte) {
	f.mu.Lock()
	f.lru.Remove(string(key))
	f.mu.Unlock()
}

// WriteCache is a small write-through cache per key family (header, body,
// total difficulty, numberToHash, hashToNumber). It never originates data:
// a miss simply means "consult the store". Writers stage their cache
// updates while preparing a Batch, and Batch.Commit applies them only
// after the underlying store batch has been written successfully, so a
// failed commit leaves the cache untouched. Reads that miss also populate
// the cache with the bytes they loaded from the store.
type WriteCache struct {
	header       *family
	body         *family
	td           *family
	numberToHash *family
	hashToNumber *family
}

// NewWriteCache builds a WriteCache with DefaultCacheSize entries per family.
func NewWriteCache() *WriteCache {
	return &WriteCache{
		header:       newFamily("header", DefaultCacheSize),
		body:         newFamily("body", DefaultCacheSize),
		td:           newFamily("td", DefaultCacheSize),
		numberToHash: newFamily("number_to_hash", DefaultCacheSize),
		hashToNumber: newFamily("hash_to_number", DefaultCacheSize),
	}
}

func (c *WriteCache) familyFor(kind cacheKind) *family {
	switch kind {
	case kindHeader:
		return c.header
	case kindBody:
		return c.body
	case kindTd:
		return c.td
	case kindNumberToHash:
		return c.numberToHash
	case kindHashToNumber:
		return c.hashToNumber
	default:
		return nil
	}
}

// cacheKind tags which family a cache op applies to.
type cacheKind int

const (
	kindHeader cacheKind = iota
	kindBody
	kindTd
	kindNumberToHash
	kindHashToNumber
)

// Get returns the cached value for key in the given family, if present.
func (c *WriteCache) Get(kind cacheKind, key []byte) ([]byte, bool) {
	f := c.familyFor(kind)
	if f == nil {
		return nil, false
	}
	return f.get(key)
}

// Put inserts or overwrites key in the given family.
func (c *WriteCache) Put(kind cacheKind, key, value []byte) {
	if f := c.familyFor(kind); f != nil {
		f.add(key, value)
	}
}

// Del removes key from the given family, if present.
func (c *WriteCache) Del(kind cacheKind, key []byte) {
	if f := c.familyFor(kind); f != nil {
		f.remove(key)
	}
}
