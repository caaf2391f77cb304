package chainstore

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitGateAwaitBlocksUntilDone(t *testing.T) {
	g := newInitGate()
	ready := make(chan struct{})
	g.start(func() error {
		<-ready
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := g.await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(ready)
	require.NoError(t, g.await(context.Background()))
}

func TestInitGatePropagatesFailure(t *testing.T) {
	g := newInitGate()
	g.start(func() error { return assert.AnError })
	err := g.await(context.Background())
	assert.ErrorIs(t, err, ErrInitFailed)
}

func TestWriteSerializerExcludesConcurrentMutations(t *testing.T) {
	ser := newWriteSerializer()
	inFlight := make(chan struct{}, 2)
	release := make(chan struct{})
	errs := make(chan error, 2)

	run := func() {
		errs <- ser.lockedMutation(context.Background(), func() error {
			inFlight <- struct{}{}
			<-release
			<-inFlight
			return nil
		})
	}

	go run()
	time.Sleep(10 * time.Millisecond)
	go run()

	// Only one mutation should be in flight at a time.
	time.Sleep(10 * time.Millisecond)
	assert.Len(t, inFlight, 1)

	close(release)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
}

func TestSelectNeededHashes(t *testing.T) {
	ctx := context.Background()
	c := newTestCore(t)

	genesis, err := c.GetLatestHeader(ctx)
	require.NoError(t, err)

	chain := buildChain(genesis, 5, 1000, 0x44)
	require.NoError(t, c.PutBlocks(ctx, testChainID, chain))

	known := []common.Hash{genesis.Hash(), chain[0].Hash(), chain[1].Hash()}
	unknown := []common.Hash{
		common.HexToHash("0xdead01"),
		common.HexToHash("0xdead02"),
	}
	all := append(append([]common.Hash{}, known...), unknown...)

	needed, err := c.SelectNeededHashes(ctx, all)
	require.NoError(t, err)
	assert.Equal(t, unknown, needed)
}

func TestGetBlocksReverseTraversal(t *testing.T) {
	ctx := context.Background()
	c := newTestCore(t)

	genesis, err := c.GetLatestHeader(ctx)
	require.NoError(t, err)

	chain := buildChain(genesis, 5, 1000, 0x55)
	require.NoError(t, c.PutBlocks(ctx, testChainID, chain))

	blocks, err := c.GetBlocks(ctx, chain[4].Hash(), 3, 0, true)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, chain[4].Hash(), blocks[0].Hash())
	assert.Equal(t, chain[3].Hash(), blocks[1].Hash())
	assert.Equal(t, chain[2].Hash(), blocks[2].Hash())
}

func TestPutHeaderThenPutBlockFillsBody(t *testing.T) {
	ctx := context.Background()
	c := newTestCore(t)

	genesis, err := c.GetLatestHeader(ctx)
	require.NoError(t, err)

	block := buildChain(genesis, 1, 1000, 0x66)[0]

	require.NoError(t, c.PutHeader(ctx, testChainID, block.Header()))
	_, err = c.GetBlock(ctx, block.Hash())
	assert.ErrorIs(t, err, ErrBodyMissing)

	require.NoError(t, c.PutBlock(ctx, testChainID, block))
	got, err := c.GetBlock(ctx, block.Hash())
	require.NoError(t, err)
	assert.Equal(t, block.Hash(), got.Hash())
}

func TestPutChainMismatch(t *testing.T) {
	ctx := context.Background()
	c := newTestCore(t)

	genesis, err := c.GetLatestHeader(ctx)
	require.NoError(t, err)

	block := buildChain(genesis, 1, 1000, 0x77)[0]
	err = c.PutBlock(ctx, big.NewInt(999), block)
	assert.ErrorIs(t, err, ErrChainMismatch)
}

func TestPutAlreadyHaveGenesis(t *testing.T) {
	ctx := context.Background()
	c := newTestCore(t)

	genesis, err := c.GetLatestHeader(ctx)
	require.NoError(t, err)

	// A block claiming number 0 that isn't the designated genesis put.
	claim := &types.Header{
		ParentHash: common.Hash{},
		Number:     big.NewInt(0),
		Difficulty: big.NewInt(1),
		Extra:      []byte{0x99},
	}
	err = c.PutBlock(ctx, testChainID, types.NewBlockWithHeader(claim))
	assert.ErrorIs(t, err, ErrAlreadyHaveGenesis)
	_ = genesis
}
