package chainkv

import "github.com/ethereum/go-ethereum/ethdb"

// KeyValueStore is the minimal surface chainkv needs from an ordered
// key-value engine: a narrow subset of go-ethereum's own
// ethdb.KeyValueStore. Any ethdb-compatible backend satisfies it
// structurally (memorydb, leveldb, a pebble adapter) without chainkv
// pulling in iterator/snapshot/compaction surface it never touches.
type KeyValueStore interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	NewBatch() ethdb.Batch
	Close() error
}
