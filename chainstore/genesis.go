package chainstore

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// GenesisProvider builds the canonical genesis block for a chain. Genesis
// construction is external to ChainCore's algorithm — "the core only sees
// the resulting block" — but a default builder is shipped as a convenience
// callers may opt out of via WithGenesis.
type GenesisProvider interface {
	Genesis() *types.Block
}

// defaultGenesisDifficulty is an arbitrary but fixed starting difficulty
// for the default genesis builder. Callers with a real chain-parameter set
// should supply their own GenesisProvider.
var defaultGenesisDifficulty = big.NewInt(131072)

// defaultGenesis is the built-in GenesisProvider. It records the chain id,
// but the block it builds does not depend on it: number 0, a zero parent
// hash, defaultGenesisDifficulty, a 30M gas limit, time 0 and a fixed extra
// string, with every other header field zero-valued and an empty body.
type defaultGenesis struct {
	chainID *big.Int
}

func (g defaultGenesis) Genesis() *types.Block {
	header := &types.Header{
		ParentHash: common.Hash{},
		Number:     big.NewInt(0),
		Difficulty: new(big.Int).Set(defaultGenesisDifficulty),
		GasLimit:   30_000_000,
		Time:       0,
		Extra:      []byte("chainstore genesis"),
	}
	return types.NewBlockWithHeader(header)
}
