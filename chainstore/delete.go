package chainstore

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/blockcore-labs/chainstore/chainkv"
)

// delBlock implements spec.md §4.9. If blockHash is canonical, its canonical
// descendants are cascade-deleted along with it (delChild); if it is not
// canonical, only the block itself is removed, since a non-canonical
// sibling may still anchor another chain.
func (c *ChainCore) delBlock(blockHash common.Hash) error {
	header, err := c.store.GetHeader(blockHash, nil)
	if errors.Is(wrapNotFound(err), ErrNotFound) {
		deleteCounter.WithLabelValues("not_found").Inc()
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreError, err)
	}

	number := header.Number.Uint64()
	parentHash := header.ParentHash

	canonicalHash, err := c.store.NumberToHash(number)
	inCanonical := err == nil && canonicalHash == blockHash

	batch := c.store.NewBatch()

	newHeaderHash, err := c.store.GetHeadHeader()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreError, err)
	}
	newBlockHash, err := c.store.GetHeadBlock()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreError, err)
	}

	var headHash *common.Hash
	if inCanonical {
		headHash = &parentHash
	}

	if err := c.delChild(batch, header, headHash, &newHeaderHash, &newBlockHash); err != nil {
		return err
	}

	heads, err := c.store.GetHeads()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreError, err)
	}

	if inCanonical {
		if _, err := c.deleteStaleAssignments(batch, heads, &newBlockHash, number, parentHash); err != nil {
			return err
		}
	}

	batch.PutHeadHeader(newHeaderHash)
	batch.PutHeadBlock(newBlockHash)
	batch.PutHeads(heads)

	if err := batch.Commit(); err != nil {
		deleteCounter.WithLabelValues("store_error").Inc()
		return fmt.Errorf("%w: %v", ErrStoreError, err)
	}

	deleteCounter.WithLabelValues("ok").Inc()
	c.logger.WithFields(logrus.Fields{
		"hash":      blockHash.Hex(),
		"number":    number,
		"canonical": inCanonical,
	}).Info("chainstore: delete committed")

	return nil
}

// delChild walks forward from the deleted block along its canonical
// descendants (if any), emitting deletes for header/body/hashToNumber/td at
// each hash, and rewriting headHeader/headBlock to headHash wherever they
// pointed at a hash being deleted. Iterative per spec.md §9; stops as soon
// as headHash is nil (non-canonical delete) or no canonical child exists.
func (c *ChainCore) delChild(batch *chainkv.Batch, first *types.Header, headHash *common.Hash, newHeaderHash, newBlockHash *common.Hash) error {
	current := first

	for {
		number := current.Number.Uint64()
		hash := current.Hash()

		batch.DeleteHeader(number, hash)
		batch.DeleteBody(number, hash)
		batch.DeleteHashToNumber(hash)
		batch.DeleteTd(number, hash)

		if headHash == nil {
			return nil
		}

		if hash == *newHeaderHash {
			*newHeaderHash = *headHash
		}
		if hash == *newBlockHash {
			*newBlockHash = *headHash
		}

		childHash, err := c.store.NumberToHash(number + 1)
		if errors.Is(err, chainkv.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreError, err)
		}

		childNumber := number + 1
		child, err := c.store.GetHeader(childHash, &childNumber)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreError, err)
		}
		current = child
	}
}
