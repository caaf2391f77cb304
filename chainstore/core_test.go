package chainstore

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testChainID = big.NewInt(1)

func newTestCore(t *testing.T, opts ...Option) *Core {
	t.Helper()
	c := New(opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// buildChain extends parent with n blocks of strictly increasing number
// and timestamp, each carrying difficulty diff.
func buildChain(parent *types.Header, n int, diff int64, saltExtra byte) []*types.Block {
	out := make([]*types.Block, 0, n)
	cur := parent
	for i := 0; i < n; i++ {
		h := &types.Header{
			ParentHash: cur.Hash(),
			Number:     new(big.Int).Add(cur.Number, big.NewInt(1)),
			Difficulty: big.NewInt(diff),
			GasLimit:   30_000_000,
			Time:       cur.Time + 12,
			Extra:      []byte{saltExtra, byte(i)},
		}
		block := types.NewBlockWithHeader(h)
		out = append(out, block)
		cur = h
	}
	return out
}

func sumTd(genesisDiff int64, chainDiffs ...int64) *big.Int {
	total := big.NewInt(genesisDiff)
	for _, d := range chainDiffs {
		total.Add(total, big.NewInt(d))
	}
	return total
}

func TestEmptyStart(t *testing.T) {
	ctx := context.Background()
	c := newTestCore(t)

	header, err := c.GetLatestHeader(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), header.Number.Uint64())

	heads, err := c.GetHead(ctx)
	require.NoError(t, err)
	assert.Equal(t, header.Hash(), heads.Genesis)
	assert.Equal(t, header.Hash(), heads.HeadHeader)
	assert.Equal(t, header.Hash(), heads.HeadBlock)
}

func TestLinearGrowth(t *testing.T) {
	ctx := context.Background()
	c := newTestCore(t)

	genesis, err := c.GetLatestHeader(ctx)
	require.NoError(t, err)

	chain := buildChain(genesis, 5, 1000, 0xAA)
	require.NoError(t, c.PutBlocks(ctx, testChainID, chain))

	tip := chain[len(chain)-1]
	heads, err := c.GetHead(ctx)
	require.NoError(t, err)
	assert.Equal(t, tip.Hash(), heads.HeadHeader)
	assert.Equal(t, tip.Hash(), heads.HeadBlock)

	td, err := c.core.getTd(tip.Hash())
	require.NoError(t, err)
	assert.Equal(t, 0, sumTd(genesis.Difficulty.Int64(), 1000, 1000, 1000, 1000, 1000).Cmp(td))
}

func TestReorg(t *testing.T) {
	ctx := context.Background()
	c := newTestCore(t)

	genesis, err := c.GetLatestHeader(ctx)
	require.NoError(t, err)

	mainChain := buildChain(genesis, 5, 1000, 0x01)
	require.NoError(t, c.PutBlocks(ctx, testChainID, mainChain))

	// Fork from block 2, with higher per-block difficulty so the alternative
	// chain overtakes the main chain's TD once it reaches block 6'.
	forkParent := mainChain[1].Header() // block 2
	altChain := buildChain(forkParent, 4, 2000, 0x02)
	require.NoError(t, c.PutBlocks(ctx, testChainID, altChain))

	altTip := altChain[len(altChain)-1]
	heads, err := c.GetHead(ctx)
	require.NoError(t, err)
	assert.Equal(t, altTip.Hash(), heads.HeadHeader)

	got3, err := c.core.store.NumberToHash(3)
	require.NoError(t, err)
	assert.Equal(t, altChain[0].Hash(), got3)

	got6, err := c.core.store.NumberToHash(6)
	require.NoError(t, err)
	assert.Equal(t, altTip.Hash(), got6)

	// Old blocks 4, 5 remain retrievable by hash but are no longer canonical.
	oldBlock4 := mainChain[3]
	stillThere, err := c.GetBlock(ctx, oldBlock4.Hash())
	require.NoError(t, err)
	assert.Equal(t, oldBlock4.Hash(), stillThere.Hash())

	nonCanonicalAt4, err := c.GetBlockByNumber(ctx, 4)
	require.NoError(t, err)
	assert.NotEqual(t, oldBlock4.Hash(), nonCanonicalAt4.Hash())
}

func TestIteratorCatchesReorg(t *testing.T) {
	ctx := context.Background()
	c := newTestCore(t)

	genesis, err := c.GetLatestHeader(ctx)
	require.NoError(t, err)

	mainChain := buildChain(genesis, 5, 1000, 0x11)
	require.NoError(t, c.PutBlocks(ctx, testChainID, mainChain))

	var seen []*types.Block
	require.NoError(t, c.Iterator(ctx, "vm", func(b *types.Block, reorg bool) error {
		seen = append(seen, b)
		return nil
	}))
	require.Len(t, seen, 5)

	forkParent := mainChain[1].Header()
	altChain := buildChain(forkParent, 4, 2000, 0x22)
	require.NoError(t, c.PutBlocks(ctx, testChainID, altChain))

	var reorgFlags []bool
	require.NoError(t, c.Iterator(ctx, "vm", func(b *types.Block, reorg bool) error {
		reorgFlags = append(reorgFlags, reorg)
		return nil
	}))
	require.NotEmpty(t, reorgFlags)
	assert.True(t, reorgFlags[0])
}

func TestDeleteCanonicalMiddle(t *testing.T) {
	ctx := context.Background()
	c := newTestCore(t)

	genesis, err := c.GetLatestHeader(ctx)
	require.NoError(t, err)

	chain := buildChain(genesis, 5, 1000, 0x33)
	require.NoError(t, c.PutBlocks(ctx, testChainID, chain))

	require.NoError(t, c.DelBlock(ctx, chain[2].Hash())) // block 3

	for _, b := range chain[2:] {
		_, err := c.GetBlock(ctx, b.Hash())
		assert.ErrorIs(t, err, ErrNotFound)
	}

	heads, err := c.GetHead(ctx)
	require.NoError(t, err)
	assert.Equal(t, chain[1].Hash(), heads.HeadHeader)
}

type rejectingPoW struct {
	reject func(*types.Header) bool
}

func (r rejectingPoW) VerifyPoW(h *types.Header) error {
	if r.reject(h) {
		return errors.New("bad nonce")
	}
	return nil
}

func TestInvalidPoWRejected(t *testing.T) {
	ctx := context.Background()
	c := newTestCore(t, WithPoWVerifier(rejectingPoW{reject: func(h *types.Header) bool {
		return len(h.Extra) > 0 && h.Extra[0] == 0xFF
	}}))

	genesis, err := c.GetLatestHeader(ctx)
	require.NoError(t, err)

	bad := buildChain(genesis, 1, 1000, 0xFF)[0]
	err = c.PutBlock(ctx, testChainID, bad)
	assert.ErrorIs(t, err, ErrInvalidPoW)

	_, err = c.GetBlock(ctx, bad.Hash())
	assert.ErrorIs(t, err, ErrNotFound)
}
