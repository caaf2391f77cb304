package chainstore

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/blockcore-labs/chainstore/chainkv"
)

// blockID is a tagged union of "by hash" or "by number", matching spec.md's
// "getBlock accepts either a hash or a number" surface.
type blockID struct {
	byHash bool
	hash   common.Hash
	number uint64
}

func byHash(h common.Hash) blockID { return blockID{byHash: true, hash: h} }
func byNumber(n uint64) blockID    { return blockID{byHash: false, number: n} }

// getBlock composes header and body for id. If number was given, it is
// resolved to a hash via numberToHash first. If the header exists but the
// body does not and the block is not genesis, ErrBodyMissing is returned.
func (c *ChainCore) getBlock(id blockID) (*types.Block, error) {
	hash := id.hash
	var numberPtr *uint64
	if !id.byHash {
		h, err := c.store.NumberToHash(id.number)
		if err != nil {
			return nil, wrapNotFound(err)
		}
		hash = h
		n := id.number
		numberPtr = &n
	}

	header, err := c.store.GetHeader(hash, numberPtr)
	if err != nil {
		return nil, wrapNotFound(err)
	}

	number := header.Number.Uint64()
	if !c.store.HasBody(hash, number) {
		if number == 0 {
			return types.NewBlockWithHeader(header), nil
		}
		return nil, ErrBodyMissing
	}

	body, err := c.store.GetBody(hash, &number)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return assembleBlock(header, body), nil
}

func (c *ChainCore) getHeader(hash common.Hash) (*types.Header, error) {
	h, err := c.store.GetHeader(hash, nil)
	return h, wrapNotFound(err)
}

func (c *ChainCore) getTd(hash common.Hash) (*big.Int, error) {
	td, err := c.store.GetTd(hash, nil)
	return td, wrapNotFound(err)
}

func (c *ChainCore) getHeadHeader() (common.Hash, error) {
	h, err := c.store.GetHeadHeader()
	return h, wrapNotFound(err)
}

func (c *ChainCore) getHeadBlock() (common.Hash, error) {
	h, err := c.store.GetHeadBlock()
	return h, wrapNotFound(err)
}

func (c *ChainCore) getLatestHeader() (*types.Header, error) {
	hash, err := c.getHeadHeader()
	if err != nil {
		return nil, err
	}
	return c.getHeader(hash)
}

func (c *ChainCore) getLatestBlock() (*types.Block, error) {
	hash, err := c.getHeadBlock()
	if err != nil {
		return nil, err
	}
	return c.getBlock(byHash(hash))
}

// selectNeededHashes implements spec.md §4.11: given hashes presumed
// oldest-first along some chain, binary-search for the boundary between
// "already known" (hashToNumber exists) and "unknown", returning the
// suffix starting at the first unknown hash.
func (c *ChainCore) selectNeededHashes(hashes []common.Hash) ([]common.Hash, error) {
	known := func(h common.Hash) (bool, error) {
		_, err := c.store.HashToNumber(h)
		if errors.Is(err, chainkv.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrStoreError, err)
		}
		return true, nil
	}

	lo, hi := 0, len(hashes)
	for lo < hi {
		mid := (lo + hi) / 2
		ok, err := known(hashes[mid])
		if err != nil {
			return nil, err
		}
		if ok {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return hashes[lo:], nil
}

// getBlocks implements spec.md §4.12: traverse from startID by number in
// direction reverse, optionally skipping intermediaries, stopping at
// maxBlocks collected or the first NotFound (terminating successfully with
// whatever was gathered so far).
func (c *ChainCore) getBlocks(start blockID, maxBlocks int, skip int, reverse bool) ([]*types.Block, error) {
	var startNumber uint64
	if start.byHash {
		n, err := c.store.HashToNumber(start.hash)
		if err != nil {
			return nil, wrapNotFound(err)
		}
		startNumber = n
	} else {
		startNumber = start.number
	}

	step := int64(skip + 1)
	if reverse {
		step = -step
	}

	out := make([]*types.Block, 0, maxBlocks)
	number := int64(startNumber)
	for len(out) < maxBlocks {
		if number < 0 {
			break
		}
		block, err := c.getBlock(byNumber(uint64(number)))
		if errors.Is(err, ErrNotFound) {
			break
		}
		if err != nil {
			return out, err
		}
		out = append(out, block)
		number += step
	}
	return out, nil
}
