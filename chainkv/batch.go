package chainkv

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/rlp"
)

// cacheEffect is a cache mutation staged alongside a batch write. It is
// only applied after the underlying store batch commits successfully —
// spec.md §5's "cache updates ... must be rolled back (or the cache
// invalidated) if the batch commit fails" is satisfied by never applying
// effects on the failure path at all.
type cacheEffect struct {
	kind   cacheKind
	key    []byte
	value  []byte // nil means delete
}

// Batch accumulates a sequence of put/del operations for atomic commit,
// matching spec.md §4.3's "batch(ops) — atomic write of a sequence of
// put/del operations". Every helper both stages the raw KV write and
// records the matching cache effect; callers never touch the cache
// directly.
type Batch struct {
	store    *Store
	ethBatch ethdb.Batch
	effects  []cacheEffect
	err      error
}

// NewBatch starts a new atomic batch against the store.
func (s *Store) NewBatch() *Batch {
	return &Batch{store: s, ethBatch: s.db.NewBatch()}
}

func (b *Batch) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// PutHeader stages a header write at (number, hash).
func (b *Batch) PutHeader(number uint64, hash common.Hash, header *types.Header) *Batch {
	data, err := rlp.EncodeToBytes(header)
	if err != nil {
		b.fail(err)
		return b
	}
	key := HeaderKey(number, hash)
	if err := b.ethBatch.Put(key, data); err != nil {
		b.fail(err)
		return b
	}
	b.effects = append(b.effects, cacheEffect{kindHeader, key, data})
	return b
}

// PutBody stages a body write at (number, hash). Callers must not call this
// for header-only puts (spec.md's distinction between PutHeader and
// PutBlock).
func (b *Batch) PutBody(number uint64, hash common.Hash, body *types.Body) *Batch {
	enc := bodyEncoded{Transactions: body.Transactions, Uncles: body.Uncles}
	data, err := rlp.EncodeToBytes(&enc)
	if err != nil {
		b.fail(err)
		return b
	}
	key := BodyKey(number, hash)
	if err := b.ethBatch.Put(key, data); err != nil {
		b.fail(err)
		return b
	}
	b.effects = append(b.effects, cacheEffect{kindBody, key, data})
	return b
}

// PutTd stages a total-difficulty write at (number, hash).
func (b *Batch) PutTd(number uint64, hash common.Hash, td *big.Int) *Batch {
	data, err := rlp.EncodeToBytes(td)
	if err != nil {
		b.fail(err)
		return b
	}
	key := TdKey(number, hash)
	if err := b.ethBatch.Put(key, data); err != nil {
		b.fail(err)
		return b
	}
	b.effects = append(b.effects, cacheEffect{kindTd, key, data})
	return b
}

// PutNumberToHash stages a canonical number->hash assignment.
func (b *Batch) PutNumberToHash(number uint64, hash common.Hash) *Batch {
	key := NumberToHashKey(number)
	if err := b.ethBatch.Put(key, hash.Bytes()); err != nil {
		b.fail(err)
		return b
	}
	b.effects = append(b.effects, cacheEffect{kindNumberToHash, key, hash.Bytes()})
	return b
}

// DeleteNumberToHash stages removal of a canonical number->hash assignment.
func (b *Batch) DeleteNumberToHash(number uint64) *Batch {
	key := NumberToHashKey(number)
	if err := b.ethBatch.Delete(key); err != nil {
		b.fail(err)
		return b
	}
	b.effects = append(b.effects, cacheEffect{kindNumberToHash, key, nil})
	return b
}

// PutHashToNumber stages a hash->number assignment. Written unconditionally
// on every put, canonical or not (spec.md §4.6 step 7).
func (b *Batch) PutHashToNumber(hash common.Hash, number uint64) *Batch {
	key := HashToNumberKey(hash)
	enc := EncodeNumber(number)
	if err := b.ethBatch.Put(key, enc); err != nil {
		b.fail(err)
		return b
	}
	b.effects = append(b.effects, cacheEffect{kindHashToNumber, key, enc})
	return b
}

// DeleteHeader stages removal of a header key.
func (b *Batch) DeleteHeader(number uint64, hash common.Hash) *Batch {
	key := HeaderKey(number, hash)
	if err := b.ethBatch.Delete(key); err != nil {
		b.fail(err)
		return b
	}
	b.effects = append(b.effects, cacheEffect{kindHeader, key, nil})
	return b
}

// DeleteBody stages removal of a body key.
func (b *Batch) DeleteBody(number uint64, hash common.Hash) *Batch {
	key := BodyKey(number, hash)
	if err := b.ethBatch.Delete(key); err != nil {
		b.fail(err)
		return b
	}
	b.effects = append(b.effects, cacheEffect{kindBody, key, nil})
	return b
}

// DeleteTd stages removal of a total-difficulty key.
func (b *Batch) DeleteTd(number uint64, hash common.Hash) *Batch {
	key := TdKey(number, hash)
	if err := b.ethBatch.Delete(key); err != nil {
		b.fail(err)
		return b
	}
	b.effects = append(b.effects, cacheEffect{kindTd, key, nil})
	return b
}

// DeleteHashToNumber stages removal of a hash->number assignment.
func (b *Batch) DeleteHashToNumber(hash common.Hash) *Batch {
	key := HashToNumberKey(hash)
	if err := b.ethBatch.Delete(key); err != nil {
		b.fail(err)
		return b
	}
	b.effects = append(b.effects, cacheEffect{kindHashToNumber, key, nil})
	return b
}

// PutHeadHeader stages the canonical header-chain tip pointer.
func (b *Batch) PutHeadHeader(hash common.Hash) *Batch {
	if err := b.ethBatch.Put(HeadHeaderKey(), hash.Bytes()); err != nil {
		b.fail(err)
	}
	return b
}

// PutHeadBlock stages the canonical block-chain tip pointer.
func (b *Batch) PutHeadBlock(hash common.Hash) *Batch {
	if err := b.ethBatch.Put(HeadBlockKey(), hash.Bytes()); err != nil {
		b.fail(err)
	}
	return b
}

// PutHeads stages the named iterator head mapping.
func (b *Batch) PutHeads(heads map[string]common.Hash) *Batch {
	data, err := encodeHeads(heads)
	if err != nil {
		b.fail(err)
		return b
	}
	if err := b.ethBatch.Put(HeadsKey(), data); err != nil {
		b.fail(err)
	}
	return b
}

// Commit writes the batch atomically. On success, cache effects staged
// during batch preparation are applied; on failure, nothing is applied and
// the store state (KV and cache) is left exactly as it was before the
// batch began.
func (b *Batch) Commit() error {
	if b.err != nil {
		return b.err
	}
	if err := b.ethBatch.Write(); err != nil {
		return err
	}
	for _, e := range b.effects {
		if e.value == nil {
			b.store.cache.Del(e.kind, e.key)
		} else {
			b.store.cache.Put(e.kind, e.key, e.value)
		}
	}
	return nil
}
