package chainkv

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/rlp"
)

// ErrNotFound is returned by every read accessor when the requested key is
// absent. It is never returned for malformed data — a key present but
// undecodable is a StoreError-class failure, surfaced verbatim.
var ErrNotFound = errors.New("chainkv: not found")

// Store is the typed access layer (spec.md's DbManager) over any backend
// satisfying this package's KeyValueStore, fronted by a WriteCache. The zero value is not
// usable; construct with NewStore.
type Store struct {
	db    KeyValueStore
	cache *WriteCache
}

// NewStore wraps kv with a fresh WriteCache. A nil kv defaults to an
// in-memory store (go-ethereum's own memorydb), matching spec.md §6's
// "optional KV store handle (default: in-memory)".
func NewStore(kv KeyValueStore) *Store {
	if kv == nil {
		kv = memorydb.New()
	}
	return &Store{db: kv, cache: NewWriteCache()}
}

// Close releases the underlying KV store.
func (s *Store) Close() error { return s.db.Close() }

// resolveNumber returns *number if non-nil, otherwise resolves hash via the
// hashToNumber index. This is the single place spec.md's "threaded through
// to avoid a second lookup" rule is implemented.
func (s *Store) resolveNumber(hash common.Hash, number *uint64) (uint64, error) {
	if number != nil {
		return *number, nil
	}
	return s.HashToNumber(hash)
}

// GetHeader returns the header at (hash, number). number may be nil, in
// which case it is resolved via HashToNumber first.
func (s *Store) GetHeader(hash common.Hash, number *uint64) (*types.Header, error) {
	n, err := s.resolveNumber(hash, number)
	if err != nil {
		return nil, err
	}
	key := HeaderKey(n, hash)
	if cached, ok := s.cache.Get(kindHeader, key); ok {
		var h types.Header
		if err := rlp.DecodeBytes(cached, &h); err != nil {
			return nil, fmt.Errorf("chainkv: decode cached header: %w", err)
		}
		return &h, nil
	}
	data, err := s.db.Get(key)
	if err != nil {
		return nil, ErrNotFound
	}
	var h types.Header
	if err := rlp.DecodeBytes(data, &h); err != nil {
		return nil, fmt.Errorf("chainkv: decode header: %w", err)
	}
	s.cache.Put(kindHeader, key, data)
	return &h, nil
}

// bodyEncoded is the RLP shape of a block body: [transactions, uncles].
type bodyEncoded struct {
	Transactions []*types.Transaction
	Uncles       []*types.Header
}

// GetBody returns the body at (hash, number), or ErrNotFound if no body key
// exists (this is distinct from the body being absent on a genesis/header-
// only entry — callers that need that distinction use HasBody).
func (s *Store) GetBody(hash common.Hash, number *uint64) (*types.Body, error) {
	n, err := s.resolveNumber(hash, number)
	if err != nil {
		return nil, err
	}
	key := BodyKey(n, hash)
	if cached, ok := s.cache.Get(kindBody, key); ok {
		var b bodyEncoded
		if err := rlp.DecodeBytes(cached, &b); err != nil {
			return nil, fmt.Errorf("chainkv: decode cached body: %w", err)
		}
		return &types.Body{Transactions: b.Transactions, Uncles: b.Uncles}, nil
	}
	data, err := s.db.Get(key)
	if err != nil {
		return nil, ErrNotFound
	}
	var b bodyEncoded
	if err := rlp.DecodeBytes(data, &b); err != nil {
		return nil, fmt.Errorf("chainkv: decode body: %w", err)
	}
	s.cache.Put(kindBody, key, data)
	return &types.Body{Transactions: b.Transactions, Uncles: b.Uncles}, nil
}

// HasBody reports whether a body key exists for (hash, number), without
// paying for a full decode.
func (s *Store) HasBody(hash common.Hash, number uint64) bool {
	key := BodyKey(number, hash)
	if _, ok := s.cache.Get(kindBody, key); ok {
		return true
	}
	ok, _ := s.db.Has(key)
	return ok
}

// GetTd returns the total difficulty at (hash, number).
func (s *Store) GetTd(hash common.Hash, number *uint64) (*big.Int, error) {
	n, err := s.resolveNumber(hash, number)
	if err != nil {
		return nil, err
	}
	key := TdKey(n, hash)
	if cached, ok := s.cache.Get(kindTd, key); ok {
		td := new(big.Int)
		if err := rlp.DecodeBytes(cached, td); err != nil {
			return nil, fmt.Errorf("chainkv: decode cached td: %w", err)
		}
		return td, nil
	}
	data, err := s.db.Get(key)
	if err != nil {
		return nil, ErrNotFound
	}
	td := new(big.Int)
	if err := rlp.DecodeBytes(data, td); err != nil {
		return nil, fmt.Errorf("chainkv: decode td: %w", err)
	}
	s.cache.Put(kindTd, key, data)
	return td, nil
}

// HashToNumber resolves a header hash to its block number.
func (s *Store) HashToNumber(hash common.Hash) (uint64, error) {
	key := HashToNumberKey(hash)
	if cached, ok := s.cache.Get(kindHashToNumber, key); ok {
		return DecodeNumber(cached)
	}
	data, err := s.db.Get(key)
	if err != nil {
		return 0, ErrNotFound
	}
	n, err := DecodeNumber(data)
	if err != nil {
		return 0, err
	}
	s.cache.Put(kindHashToNumber, key, data)
	return n, nil
}

// NumberToHash resolves a canonical block number to its hash.
func (s *Store) NumberToHash(number uint64) (common.Hash, error) {
	key := NumberToHashKey(number)
	if cached, ok := s.cache.Get(kindNumberToHash, key); ok {
		return common.BytesToHash(cached), nil
	}
	data, err := s.db.Get(key)
	if err != nil {
		return common.Hash{}, ErrNotFound
	}
	s.cache.Put(kindNumberToHash, key, data)
	return common.BytesToHash(data), nil
}

// GetHeads returns the named iterator head mapping, or an empty map if the
// heads key has never been written.
func (s *Store) GetHeads() (map[string]common.Hash, error) {
	data, err := s.db.Get(HeadsKey())
	if err != nil {
		return map[string]common.Hash{}, nil
	}
	raw := map[string]string{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("chainkv: decode heads: %w", err)
	}
	out := make(map[string]common.Hash, len(raw))
	for name, hex := range raw {
		out[name] = common.HexToHash(hex)
	}
	return out, nil
}

// GetHeadHeader returns the canonical header-chain tip hash.
func (s *Store) GetHeadHeader() (common.Hash, error) {
	data, err := s.db.Get(HeadHeaderKey())
	if err != nil {
		return common.Hash{}, ErrNotFound
	}
	return common.BytesToHash(data), nil
}

// GetHeadBlock returns the canonical block-chain tip hash.
func (s *Store) GetHeadBlock() (common.Hash, error) {
	data, err := s.db.Get(HeadBlockKey())
	if err != nil {
		return common.Hash{}, ErrNotFound
	}
	return common.BytesToHash(data), nil
}

// encodeHeads JSON-encodes a name->hash mapping the way Batch.PutHeads
// expects to store it.
func encodeHeads(heads map[string]common.Hash) ([]byte, error) {
	raw := make(map[string]string, len(heads))
	for name, h := range heads {
		raw[name] = h.Hex()
	}
	return json.Marshal(raw)
}
