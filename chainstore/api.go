package chainstore

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/blockcore-labs/chainstore/chainkv"
)

// Core is the public surface of this package: putBlock, putHeader,
// putBlocks, putHeaders, getBlock, getBlocks, getHead, getLatestHeader,
// getLatestBlock, delBlock, iterator, selectNeededHashes. It composes
// InitGate, WriteSerializer, ChainCore, and the underlying chainkv.Store,
// exactly as spec.md §2 lists PublicAPI's dependencies.
type Core struct {
	store *chainkv.Store
	gate  *initGate
	ser   *writeSerializer
	core  *ChainCore
}

// New constructs a Core and starts background initialisation immediately;
// every method below suspends on InitGate until that completes.
func New(opts ...Option) *Core {
	cfg := buildConfig(opts)
	store := chainkv.NewStore(cfg.kv)
	core := newChainCore(store, cfg)

	c := &Core{
		store: store,
		gate:  newInitGate(),
		ser:   newWriteSerializer(),
		core:  core,
	}
	c.gate.start(core.initialize)
	return c
}

// Heads is the ChainHeads singleton triple spec.md §3 names.
type Heads struct {
	HeadHeader common.Hash
	HeadBlock  common.Hash
	Genesis    common.Hash
}

// PutBlock persists a full block, including its body, updating the
// canonical chain if it wins. chainID must match the Core's configured
// chain id.
func (c *Core) PutBlock(ctx context.Context, chainID *big.Int, block *types.Block) error {
	if err := c.gate.await(ctx); err != nil {
		return err
	}
	return c.ser.lockedMutation(ctx, func() error {
		return c.core.putBlockOrHeader(blockItem(block), chainID, false)
	})
}

// PutHeader persists a standalone header: no body key is written, and
// headBlock is not advanced to this header when it extends the chain; a
// later PutBlock with the body does that. If the header wins and its reorg
// replaces the canonical entry headBlock points at, headBlock is moved to
// this header's hash.
func (c *Core) PutHeader(ctx context.Context, chainID *big.Int, header *types.Header) error {
	if err := c.gate.await(ctx); err != nil {
		return err
	}
	return c.ser.lockedMutation(ctx, func() error {
		return c.core.putBlockOrHeader(headerItem(header), chainID, false)
	})
}

// PutBlocks persists blocks in order, stopping at the first error.
func (c *Core) PutBlocks(ctx context.Context, chainID *big.Int, blocks []*types.Block) error {
	for _, b := range blocks {
		if err := c.PutBlock(ctx, chainID, b); err != nil {
			return err
		}
	}
	return nil
}

// PutHeaders persists headers in order, stopping at the first error.
func (c *Core) PutHeaders(ctx context.Context, chainID *big.Int, headers []*types.Header) error {
	for _, h := range headers {
		if err := c.PutHeader(ctx, chainID, h); err != nil {
			return err
		}
	}
	return nil
}

// GetBlock composes header and body for a hash. See GetBlockByNumber for
// the number-keyed form.
func (c *Core) GetBlock(ctx context.Context, hash common.Hash) (*types.Block, error) {
	if err := c.gate.await(ctx); err != nil {
		return nil, err
	}
	return c.core.getBlock(byHash(hash))
}

// GetBlockByNumber resolves number to its canonical hash, then composes
// header and body.
func (c *Core) GetBlockByNumber(ctx context.Context, number uint64) (*types.Block, error) {
	if err := c.gate.await(ctx); err != nil {
		return nil, err
	}
	return c.core.getBlock(byNumber(number))
}

// GetBlocks implements spec.md §4.12: traverse by number from startHash,
// direction reverse, optionally skipping skip intermediaries between
// yielded blocks, collecting at most maxBlocks.
func (c *Core) GetBlocks(ctx context.Context, startHash common.Hash, maxBlocks, skip int, reverse bool) ([]*types.Block, error) {
	if err := c.gate.await(ctx); err != nil {
		return nil, err
	}
	return c.core.getBlocks(byHash(startHash), maxBlocks, skip, reverse)
}

// GetHead returns the current ChainHeads triple.
func (c *Core) GetHead(ctx context.Context) (Heads, error) {
	if err := c.gate.await(ctx); err != nil {
		return Heads{}, err
	}
	headHeader, err := c.core.getHeadHeader()
	if err != nil {
		return Heads{}, err
	}
	headBlock, err := c.core.getHeadBlock()
	if err != nil {
		return Heads{}, err
	}
	genesis, err := c.store.NumberToHash(0)
	if err != nil {
		return Heads{}, wrapNotFound(err)
	}
	return Heads{HeadHeader: headHeader, HeadBlock: headBlock, Genesis: genesis}, nil
}

// GetLatestHeader returns the header at headHeader.
func (c *Core) GetLatestHeader(ctx context.Context) (*types.Header, error) {
	if err := c.gate.await(ctx); err != nil {
		return nil, err
	}
	return c.core.getLatestHeader()
}

// GetLatestBlock returns the block at headBlock.
func (c *Core) GetLatestBlock(ctx context.Context) (*types.Block, error) {
	if err := c.gate.await(ctx); err != nil {
		return nil, err
	}
	return c.core.getLatestBlock()
}

// DelBlock deletes a block and, if it was canonical, cascades the delete
// across its canonical descendants.
func (c *Core) DelBlock(ctx context.Context, hash common.Hash) error {
	if err := c.gate.await(ctx); err != nil {
		return err
	}
	return c.ser.lockedMutation(ctx, func() error {
		return c.core.delBlock(hash)
	})
}

// Iterator runs a named cursor over the canonical chain, invoking onBlock
// for each newly-reachable block. See OnBlock for the reorg-flag contract.
func (c *Core) Iterator(ctx context.Context, name string, onBlock OnBlock) error {
	if err := c.gate.await(ctx); err != nil {
		return err
	}
	return c.core.iterator(name, onBlock)
}

// SelectNeededHashes returns the suffix of hashes (presumed oldest-first)
// starting at the first hash this store does not already know.
func (c *Core) SelectNeededHashes(ctx context.Context, hashes []common.Hash) ([]common.Hash, error) {
	if err := c.gate.await(ctx); err != nil {
		return nil, err
	}
	return c.core.selectNeededHashes(hashes)
}

// Close releases the underlying KV store. It does not wait for any
// in-flight mutation; callers should ensure no mutation is pending.
func (c *Core) Close() error {
	return c.store.Close()
}
