package chainkv

import (
	"errors"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/ethdb"
)

// pebbleStore adapts a *pebble.DB to chainkv.KeyValueStore, grounded on the
// teacher's chain/db/chaindb.go pebble wiring: pebble.Open with the same
// tuning knobs, db.Get/Set/Delete, and batch.Commit(pebble.Sync) for
// durable atomic writes.
type pebbleStore struct {
	db *pebble.DB
}

// OpenPebble opens (creating if necessary) a pebble-backed KeyValueStore at
// dir, suitable for production use as WithKeyValueStore's argument.
func OpenPebble(dir string) (KeyValueStore, error) {
	opts := &pebble.Options{
		BytesPerSync:                512 * 1024,
		MemTableSize:                64 << 20,
		MemTableStopWritesThreshold: 4,
		L0CompactionThreshold:       4,
		L0StopWritesThreshold:       12,
		LBaseMaxBytes:               256 << 20,
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, err
	}
	return &pebbleStore{db: db}, nil
}

func (p *pebbleStore) Has(key []byte) (bool, error) {
	_, closer, err := p.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	closer.Close()
	return true, nil
}

func (p *pebbleStore) Get(key []byte) ([]byte, error) {
	data, closer, err := p.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	closer.Close()
	return out, nil
}

func (p *pebbleStore) Put(key, value []byte) error {
	return p.db.Set(key, value, pebble.Sync)
}

func (p *pebbleStore) Delete(key []byte) error {
	return p.db.Delete(key, pebble.Sync)
}

func (p *pebbleStore) NewBatch() ethdb.Batch {
	return &pebbleBatch{db: p.db, batch: p.db.NewBatch()}
}

func (p *pebbleStore) Close() error { return p.db.Close() }

// pebbleBatch adapts *pebble.Batch to ethdb.Batch.
type pebbleBatch struct {
	db    *pebble.DB
	batch *pebble.Batch
	size  int
}

func (b *pebbleBatch) Put(key, value []byte) error {
	b.size += len(key) + len(value)
	return b.batch.Set(key, value, nil)
}

func (b *pebbleBatch) Delete(key []byte) error {
	b.size += len(key)
	return b.batch.Delete(key, nil)
}

func (b *pebbleBatch) ValueSize() int { return b.size }

func (b *pebbleBatch) Write() error {
	return b.batch.Commit(pebble.Sync)
}

func (b *pebbleBatch) Reset() {
	b.batch.Reset()
	b.size = 0
}

func (b *pebbleBatch) Replay(w ethdb.KeyValueWriter) error {
	reader := b.batch.Reader()
	for {
		kind, key, value, ok, err := reader.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		switch kind {
		case pebble.InternalKeyKindDelete:
			if err := w.Delete(key); err != nil {
				return err
			}
		default:
			if err := w.Put(key, value); err != nil {
				return err
			}
		}
	}
}
