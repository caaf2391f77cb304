package chainstore

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/blockcore-labs/chainstore/chainkv"
)

// ChainCore is the algorithmic heart: canonical-chain selection,
// reorganisation, iterator-head bookkeeping, and deletion cascades. It
// consumes a chainkv.Store directly; serialisation of mutations and
// readiness gating are handled one layer up, in Core (api.go).
type ChainCore struct {
	store     *chainkv.Store
	chainID   *big.Int
	validate  bool
	validator Validator
	powVerify PoWVerifier
	genesis   GenesisProvider
	logger    *logrus.Logger
}

func newChainCore(store *chainkv.Store, cfg *config) *ChainCore {
	return &ChainCore{
		store:     store,
		chainID:   cfg.chainID,
		validate:  cfg.validate,
		validator: cfg.validator,
		powVerify: cfg.powVerify,
		genesis:   cfg.genesis,
		logger:    cfg.logger,
	}
}

// wrapNotFound translates chainkv's package-local ErrNotFound into this
// package's ErrNotFound, the one PublicAPI callers match against.
func wrapNotFound(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, chainkv.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// initialize runs InitGate's steps 1-3. It is called once, from the
// background goroutine started by Core's constructor.
func (c *ChainCore) initialize() error {
	_, err := c.store.NumberToHash(0)
	switch {
	case err == nil:
		return c.ensureHeadsPersisted()
	case errors.Is(err, chainkv.ErrNotFound):
		genesisBlock := c.genesis.Genesis()
		return c.putBlockOrHeader(blockItem(genesisBlock), c.chainID, true)
	default:
		return fmt.Errorf("%w: %v", ErrStoreError, err)
	}
}

// ensureHeadsPersisted backfills heads/headHeader/headBlock to the genesis
// hash if genesis exists but those pointers were never written — the
// recovery case spec.md's InitGate step 2 names explicitly.
func (c *ChainCore) ensureHeadsPersisted() error {
	genesisHash, err := c.store.NumberToHash(0)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreError, err)
	}

	needsWrite := false
	batch := c.store.NewBatch()

	if _, err := c.store.GetHeadHeader(); errors.Is(err, chainkv.ErrNotFound) {
		batch.PutHeadHeader(genesisHash)
		needsWrite = true
	}
	if _, err := c.store.GetHeadBlock(); errors.Is(err, chainkv.ErrNotFound) {
		batch.PutHeadBlock(genesisHash)
		needsWrite = true
	}
	if heads, err := c.store.GetHeads(); err == nil && len(heads) == 0 {
		// GetHeads already returns {} on a missing key, so re-writing an
		// empty map here is harmless and keeps the key present.
		batch.PutHeads(heads)
		needsWrite = true
	}

	if !needsWrite {
		return nil
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreError, err)
	}
	return nil
}

// putBlockOrHeader runs the full put pipeline described in spec.md §4.6.
// isGenesis marks the one call allowed to claim block number 0.
func (c *ChainCore) putBlockOrHeader(item *chainItem, chainID *big.Int, isGenesis bool) error {
	if chainID.Cmp(c.chainID) != 0 {
		putCounter.WithLabelValues("chain_mismatch").Inc()
		return ErrChainMismatch
	}

	if !item.header.Number.IsUint64() {
		putCounter.WithLabelValues("out_of_range").Inc()
		return ErrOutOfRange
	}

	number := item.number()
	hash := item.hash()

	if number == 0 && !isGenesis {
		putCounter.WithLabelValues("already_have_genesis").Inc()
		return ErrAlreadyHaveGenesis
	}

	var parentHeader *types.Header
	if !isGenesis {
		ph, err := c.store.GetHeader(item.parentHash(), nil)
		if errors.Is(wrapNotFound(err), ErrNotFound) {
			putCounter.WithLabelValues("parent_missing").Inc()
			return ErrParentMissing
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreError, err)
		}
		parentHeader = ph
	}

	if c.validate {
		if !isGenesis {
			if err := c.validator.ValidateBlock(item.header, parentHeader, item.body); err != nil {
				putCounter.WithLabelValues("invalid_block").Inc()
				return fmt.Errorf("%w: %v", ErrInvalidBlock, err)
			}
		}
		if err := c.powVerify.VerifyPoW(item.header); err != nil {
			putCounter.WithLabelValues("invalid_pow").Inc()
			return fmt.Errorf("%w: %v", ErrInvalidPoW, err)
		}
	}

	var currentHeaderHash, currentBlockHash common.Hash
	var currentHeaderTd, currentBlockTd *big.Int

	if isGenesis {
		currentHeaderTd = big.NewInt(0)
		currentBlockTd = big.NewInt(0)
	} else {
		hh, err := c.store.GetHeadHeader()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreError, err)
		}
		currentHeaderHash = hh
		hhNumber, err := c.store.HashToNumber(hh)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreError, err)
		}
		currentHeaderTd, err = c.store.GetTd(hh, &hhNumber)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreError, err)
		}

		hb, err := c.store.GetHeadBlock()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreError, err)
		}
		currentBlockHash = hb
		hbNumber, err := c.store.HashToNumber(hb)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreError, err)
		}
		currentBlockTd, err = c.store.GetTd(hb, &hbNumber)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreError, err)
		}
	}

	var blockTd *big.Int
	if isGenesis {
		blockTd = new(big.Int).Set(item.difficulty())
	} else {
		parentNumber := number - 1
		parentTd, err := c.store.GetTd(item.parentHash(), &parentNumber)
		if errors.Is(wrapNotFound(err), ErrNotFound) {
			putCounter.WithLabelValues("parent_missing").Inc()
			return ErrParentMissing
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreError, err)
		}
		blockTd = new(big.Int).Add(parentTd, item.difficulty())
	}

	batch := c.store.NewBatch()
	batch.PutTd(number, hash, blockTd)
	batch.PutHeader(number, hash, item.header)
	if item.hasBody() || isGenesis {
		batch.PutBody(number, hash, item.body)
	}
	batch.PutHashToNumber(hash, number)

	heads, err := c.store.GetHeads()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreError, err)
	}

	newHeaderHash := currentHeaderHash
	newBlockHash := currentBlockHash

	winsHeader := isGenesis || blockTd.Cmp(currentHeaderTd) > 0
	if winsHeader {
		newHeaderHash = hash
		if item.hasBody() || isGenesis {
			newBlockHash = hash
		}

		deletedStale, err := c.deleteStaleAssignments(batch, heads, &newBlockHash, number+1, hash)
		if err != nil {
			return err
		}
		reorgDepth, err := c.rebuildCanonical(batch, heads, &newBlockHash, item.header, hash)
		if err != nil {
			return err
		}
		if deletedStale || reorgDepth > 0 {
			reorgCounter.Inc()
			reorgDepthHistogram.Observe(float64(reorgDepth))
		}
	} else if item.hasBody() && blockTd.Cmp(currentBlockTd) > 0 {
		newBlockHash = hash
	}

	batch.PutHeadHeader(newHeaderHash)
	batch.PutHeadBlock(newBlockHash)
	batch.PutHeads(heads)

	if err := batch.Commit(); err != nil {
		putCounter.WithLabelValues("store_error").Inc()
		return fmt.Errorf("%w: %v", ErrStoreError, err)
	}

	headTd := blockTd
	if !winsHeader {
		headTd = currentHeaderTd
	}
	observeHead(numberOf(newHeaderHash, c.store), headTdFloat(headTd))
	putCounter.WithLabelValues("ok").Inc()

	c.logger.WithFields(logrus.Fields{
		"hash":   hash.Hex(),
		"number": number,
		"td":     blockTd.String(),
		"reorg":  winsHeader && !isGenesis && number > 0,
	}).Info("chainstore: put committed")

	return nil
}

// numberOf is a best-effort head-height lookup for metrics only; a failure
// here must never affect the put's result.
func numberOf(hash common.Hash, store *chainkv.Store) uint64 {
	n, err := store.HashToNumber(hash)
	if err != nil {
		return 0
	}
	return n
}

func headTdFloat(td *big.Int) float64 {
	f := new(big.Float).SetInt(td)
	v, _ := f.Float64()
	return v
}

// deleteStaleAssignments walks forward from n while numberToHash(n) exists,
// deleting the stale canonical assignment and rewriting any iterator head
// (or headBlock) that pointed at it to newTip. Iterative per spec.md §9's
// redesign guidance.
func (c *ChainCore) deleteStaleAssignments(batch *chainkv.Batch, heads map[string]common.Hash, headBlock *common.Hash, start uint64, newTip common.Hash) (deletedAny bool, err error) {
	n := start
	for {
		staleHash, err := c.store.NumberToHash(n)
		if errors.Is(err, chainkv.ErrNotFound) {
			return deletedAny, nil
		}
		if err != nil {
			return deletedAny, fmt.Errorf("%w: %v", ErrStoreError, err)
		}

		batch.DeleteNumberToHash(n)
		deletedAny = true

		for name, h := range heads {
			if h == staleHash {
				heads[name] = newTip
			}
		}
		if *headBlock == staleHash {
			*headBlock = newTip
		}

		n++
	}
}

// rebuildCanonical walks the new canonical chain backward from (tipHeader,
// tipHash), overwriting numberToHash/hashToNumber until it reaches an
// ancestor whose numberToHash assignment already matches (older ancestors
// are already canonical) or genesis. Iterative per spec.md §9.
func (c *ChainCore) rebuildCanonical(batch *chainkv.Batch, heads map[string]common.Hash, headBlock *common.Hash, tipHeader *types.Header, tipHash common.Hash) (divergence int, err error) {
	staleNames := map[string]bool{}
	staleHeadBlock := false

	currentHeader := tipHeader
	hash := tipHash

	for {
		number := currentHeader.Number.Uint64()

		if number == 0 {
			batch.PutNumberToHash(0, hash)
			batch.PutHashToNumber(hash, 0)
			break
		}

		existing, err := c.store.NumberToHash(number)
		existingOk := true
		if errors.Is(err, chainkv.ErrNotFound) {
			existingOk = false
		} else if err != nil {
			return divergence, fmt.Errorf("%w: %v", ErrStoreError, err)
		}

		if existingOk && existing == hash {
			break
		}

		batch.PutNumberToHash(number, hash)
		batch.PutHashToNumber(hash, number)

		if existingOk {
			divergence++
			for name, h := range heads {
				if h == existing {
					staleNames[name] = true
				}
			}
			if *headBlock == existing {
				staleHeadBlock = true
			}
		}

		parentNumber := number - 1
		parentHeader, err := c.store.GetHeader(currentHeader.ParentHash, &parentNumber)
		if err != nil {
			return divergence, fmt.Errorf("%w: %v", ErrBrokenChain, err)
		}

		currentHeader = parentHeader
		hash = currentHeader.Hash()
	}

	for name := range staleNames {
		heads[name] = tipHash
	}
	if staleHeadBlock {
		*headBlock = tipHash
	}
	return divergence, nil
}
