package chainkv

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHeader(number uint64, parent common.Hash) *types.Header {
	return &types.Header{
		ParentHash: parent,
		Number:     new(big.Int).SetUint64(number),
		Difficulty: big.NewInt(131072),
		GasLimit:   30_000_000,
		Time:       uint64(number) * 12,
		Extra:      []byte{},
	}
}

func TestStoreHeaderRoundTrip(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	h := testHeader(1, common.Hash{})
	hash := h.Hash()

	b := s.NewBatch()
	b.PutHeader(1, hash, h)
	b.PutHashToNumber(hash, 1)
	require.NoError(t, b.Commit())

	got, err := s.GetHeader(hash, nil)
	require.NoError(t, err)
	assert.Equal(t, h.Number, got.Number)
	assert.Equal(t, h.ParentHash, got.ParentHash)
}

func TestStoreGetHeaderNotFound(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	_, err := s.GetHeader(common.HexToHash("0xabc"), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreResolveNumberViaHashToNumber(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	h := testHeader(5, common.Hash{})
	hash := h.Hash()

	b := s.NewBatch()
	b.PutHeader(5, hash, h)
	b.PutHashToNumber(hash, 5)
	require.NoError(t, b.Commit())

	n, err := s.resolveNumber(hash, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)
}

func TestStoreBodyAndHasBody(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	hash := common.HexToHash("0xbeef")
	body := &types.Body{}

	assert.False(t, s.HasBody(hash, 3))

	b := s.NewBatch()
	b.PutBody(3, hash, body)
	require.NoError(t, b.Commit())

	assert.True(t, s.HasBody(hash, 3))
	got, err := s.GetBody(hash, uptr(3))
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func uptr(n uint64) *uint64 { return &n }

func TestStoreTdRoundTrip(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	hash := common.HexToHash("0xf00d")
	td := big.NewInt(99999)

	b := s.NewBatch()
	b.PutTd(9, hash, td)
	require.NoError(t, b.Commit())

	got, err := s.GetTd(hash, uptr(9))
	require.NoError(t, err)
	assert.Equal(t, 0, td.Cmp(got))
}

func TestStoreNumberToHashRoundTrip(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	hash := common.HexToHash("0x1234")
	b := s.NewBatch()
	b.PutNumberToHash(12, hash)
	require.NoError(t, b.Commit())

	got, err := s.NumberToHash(12)
	require.NoError(t, err)
	assert.Equal(t, hash, got)

	b2 := s.NewBatch()
	b2.DeleteNumberToHash(12)
	require.NoError(t, b2.Commit())

	_, err = s.NumberToHash(12)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreHeadsRoundTrip(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	empty, err := s.GetHeads()
	require.NoError(t, err)
	assert.Empty(t, empty)

	heads := map[string]common.Hash{
		"chainHeadHeader": common.HexToHash("0x01"),
		"chainHeadBlock":  common.HexToHash("0x02"),
	}
	b := s.NewBatch()
	b.PutHeads(heads)
	require.NoError(t, b.Commit())

	got, err := s.GetHeads()
	require.NoError(t, err)
	assert.Equal(t, heads, got)
}

func TestStoreHeadPointers(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	_, err := s.GetHeadHeader()
	assert.ErrorIs(t, err, ErrNotFound)

	hash := common.HexToHash("0xaa")
	b := s.NewBatch()
	b.PutHeadHeader(hash)
	b.PutHeadBlock(hash)
	require.NoError(t, b.Commit())

	got, err := s.GetHeadHeader()
	require.NoError(t, err)
	assert.Equal(t, hash, got)

	got, err = s.GetHeadBlock()
	require.NoError(t, err)
	assert.Equal(t, hash, got)
}
