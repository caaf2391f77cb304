package chainstore

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// OnBlock is the integration point for a downstream consumer (e.g. a VM).
// reorg is true when the block just yielded does not chain from the
// previously yielded block; for the first block of a run, the comparison is
// against the block the cursor pointed at when the run started. A returned error
// aborts the iterator and surfaces to the iterator caller unchanged.
type OnBlock func(block *types.Block, reorg bool) error

// iterator implements spec.md §4.10. name identifies a persistent cursor
// into the canonical chain; an unknown name starts from genesis. The
// cursor, along with headHeader/headBlock, is persisted once on
// termination rather than after every block, since the iterator is
// single-consumer per name and its own callback may fail partway through.
func (c *ChainCore) iterator(name string, onBlock OnBlock) error {
	heads, err := c.store.GetHeads()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreError, err)
	}

	startHash, ok := heads[name]
	if !ok {
		genesisHash, err := c.store.NumberToHash(0)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreError, err)
		}
		startHash = genesisHash
	}

	startNumber, err := c.store.HashToNumber(startHash)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreError, err)
	}

	currentHeaderHash, err := c.store.GetHeadHeader()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreError, err)
	}
	currentBlockHash, err := c.store.GetHeadBlock()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreError, err)
	}

	// lastBlock seeds from the cursor's current position so a reorg that
	// happened entirely between iterator runs is still caught on the first
	// block yielded by this run, not just within a single run.
	var lastBlock *types.Block
	if startBlock, err := c.getBlock(byHash(startHash)); err == nil {
		lastBlock = startBlock
	}
	number := startNumber + 1

	for {
		block, err := c.getBlock(byNumber(number))
		if errors.Is(err, ErrNotFound) {
			break
		}
		if err != nil {
			return err
		}

		hash := block.Hash()
		reorg := lastBlock != nil && lastBlock.Hash() != block.ParentHash()

		heads[name] = hash

		if err := onBlock(block, reorg); err != nil {
			if persistErr := c.persistHeads(heads, currentHeaderHash, currentBlockHash); persistErr != nil {
				return persistErr
			}
			return err
		}

		lastBlock = block
		number++
	}

	return c.persistHeads(heads, currentHeaderHash, currentBlockHash)
}

func (c *ChainCore) persistHeads(heads map[string]common.Hash, headHeader, headBlock common.Hash) error {
	batch := c.store.NewBatch()
	batch.PutHeads(heads)
	batch.PutHeadHeader(headHeader)
	batch.PutHeadBlock(headBlock)
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreError, err)
	}
	return nil
}
