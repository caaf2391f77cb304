package chainstore

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// itemKind tags whether a ChainCore.put call carries a full block or a bare
// header. Modeled as a tagged variant at the ChainCore boundary rather than
// two call paths, so the shared pipeline steps (chain check, validation,
// PoW, TD accounting, canonical decision) never fork.
type itemKind int

const (
	kindBlockItem itemKind = iota
	kindHeaderItem
)

// chainItem is the internal representation of "a Block or a Header" that
// ChainCore's put pipeline operates on uniformly. A header-only item still
// carries an empty Body so downstream code never needs a separate nil check,
// but hasBody is false so the batch never gets a body key for it.
type chainItem struct {
	kind   itemKind
	header *types.Header
	body   *types.Body
}

func blockItem(b *types.Block) *chainItem {
	return &chainItem{
		kind:   kindBlockItem,
		header: b.Header(),
		body:   b.Body(),
	}
}

func headerItem(h *types.Header) *chainItem {
	return &chainItem{
		kind:   kindHeaderItem,
		header: h,
		body:   &types.Body{},
	}
}

func (i *chainItem) hasBody() bool {
	return i.kind == kindBlockItem
}

func (i *chainItem) hash() common.Hash { return i.header.Hash() }

func (i *chainItem) number() uint64 { return i.header.Number.Uint64() }

func (i *chainItem) parentHash() common.Hash { return i.header.ParentHash }

func (i *chainItem) difficulty() *big.Int { return i.header.Difficulty }

// assembleBlock reassembles a full types.Block from header and body; getBlock
// uses it when composing a read result from a stored header and body.
func assembleBlock(header *types.Header, body *types.Body) *types.Block {
	return types.NewBlockWithHeader(header).WithBody(*body)
}

