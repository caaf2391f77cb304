package chainkv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCacheGetMissThenPutThenHit(t *testing.T) {
	c := NewWriteCache()
	key := []byte("k1")

	_, ok := c.Get(kindHeader, key)
	assert.False(t, ok)

	c.Put(kindHeader, key, []byte("v1"))
	got, ok := c.Get(kindHeader, key)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), got)
}

func TestWriteCacheFamiliesAreIsolated(t *testing.T) {
	c := NewWriteCache()
	key := []byte("shared-key")

	c.Put(kindHeader, key, []byte("header-value"))
	_, ok := c.Get(kindBody, key)
	assert.False(t, ok, "body family must not see header family's entry")
}

func TestWriteCacheDel(t *testing.T) {
	c := NewWriteCache()
	key := []byte("k2")
	c.Put(kindTd, key, []byte("td-value"))
	c.Del(kindTd, key)
	_, ok := c.Get(kindTd, key)
	assert.False(t, ok)
}

func TestWriteCacheEvictsBeyondCapacity(t *testing.T) {
	c := NewWriteCache()
	for i := 0; i < DefaultCacheSize+10; i++ {
		c.Put(kindNumberToHash, EncodeNumber(uint64(i)), []byte{byte(i)})
	}
	_, ok := c.Get(kindNumberToHash, EncodeNumber(0))
	assert.False(t, ok, "oldest entry should have been evicted")

	_, ok = c.Get(kindNumberToHash, EncodeNumber(uint64(DefaultCacheSize+9)))
	assert.True(t, ok, "most recent entry should still be cached")
}
