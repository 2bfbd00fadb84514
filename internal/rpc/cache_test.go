package rpc_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/tx"
	"github.com/LeJamon/goickb/internal/rpc"
	"github.com/LeJamon/goickb/internal/rpc/mocks"
	"github.com/LeJamon/goickb/internal/storage/headerstore"
)

func header(number uint64) cell.Header {
	return cell.Header{Hash: cell.Hash{byte(number), 0xcc}, Number: number}
}

func newCached(t *testing.T, store *headerstore.Store) (*mocks.MockClient, *rpc.CachedClient) {
	ctrl := gomock.NewController(t)
	inner := mocks.NewMockClient(ctrl)
	c, err := rpc.NewCachedClient(inner, rpc.CacheConfig{Size: 16, Finality: 10, Store: store})
	require.NoError(t, err)
	return inner, c
}

func advanceTip(t *testing.T, inner *mocks.MockClient, c *rpc.CachedClient, number uint64) {
	inner.EXPECT().GetTipHeader(gomock.Any()).Return(header(number), nil)
	_, err := c.GetTipHeader(context.Background())
	require.NoError(t, err)
}

func committed(h cell.Hash, block cell.Header) *tx.TransactionRecord {
	bh := block.Hash
	return &tx.TransactionRecord{Hash: h, Status: tx.StatusCommitted, BlockHash: &bh}
}

func TestCachedClientHeaderByHash(t *testing.T) {
	inner, c := newCached(t, nil)
	h := header(5)
	inner.EXPECT().GetHeaderByHash(gomock.Any(), h.Hash).Return(h, nil).Times(1)

	for range 3 {
		got, err := c.GetHeaderByHash(context.Background(), h.Hash)
		require.NoError(t, err)
		assert.Equal(t, h, got)
	}
	assert.Equal(t, rpc.CacheStats{Hits: 2, Misses: 1}, c.Stats())
}

func TestCachedClientHeaderByNumberNearTip(t *testing.T) {
	inner, c := newCached(t, nil)
	advanceTip(t, inner, c, 100)

	inner.EXPECT().GetHeaderByNumber(gomock.Any(), uint64(95)).Return(header(95), nil).Times(2)
	inner.EXPECT().GetHeaderByNumber(gomock.Any(), uint64(50)).Return(header(50), nil).Times(1)

	for range 2 {
		_, err := c.GetHeaderByNumber(context.Background(), 95)
		require.NoError(t, err)
		got, err := c.GetHeaderByNumber(context.Background(), 50)
		require.NoError(t, err)
		assert.Equal(t, header(50), got)
	}
}

func TestCachedClientPendingTransactionPassesThrough(t *testing.T) {
	inner, c := newCached(t, nil)
	h := cell.Hash{1}
	inner.EXPECT().GetTransaction(gomock.Any(), h).Return(&tx.TransactionRecord{Hash: h, Status: tx.StatusPending}, nil).Times(2)

	for range 2 {
		rec, err := c.GetTransaction(context.Background(), h)
		require.NoError(t, err)
		assert.Equal(t, tx.StatusPending, rec.Status)
	}
}

func TestCachedClientFinalTransactionCached(t *testing.T) {
	inner, c := newCached(t, nil)
	advanceTip(t, inner, c, 100)
	block := header(20)
	h := cell.Hash{2}
	inner.EXPECT().GetTransaction(gomock.Any(), h).Return(committed(h, block), nil).Times(1)
	inner.EXPECT().GetHeaderByHash(gomock.Any(), block.Hash).Return(block, nil).Times(1)

	for range 2 {
		rec, err := c.GetTransaction(context.Background(), h)
		require.NoError(t, err)
		assert.Equal(t, tx.StatusCommitted, rec.Status)
	}
}

func TestCachedClientRecentTransactionRefetched(t *testing.T) {
	inner, c := newCached(t, nil)
	advanceTip(t, inner, c, 100)
	block := header(99)
	h := cell.Hash{3}
	inner.EXPECT().GetTransaction(gomock.Any(), h).Return(committed(h, block), nil).Times(2)
	inner.EXPECT().GetHeaderByHash(gomock.Any(), block.Hash).Return(block, nil).Times(1)

	for range 2 {
		_, err := c.GetTransaction(context.Background(), h)
		require.NoError(t, err)
	}
}

func TestCachedClientPersistsAcrossRestarts(t *testing.T) {
	store, err := headerstore.Open("headers", headerstore.WithFS(vfs.NewMem()))
	require.NoError(t, err)
	defer store.Close()

	inner, c := newCached(t, store)
	advanceTip(t, inner, c, 100)
	block := header(30)
	h := cell.Hash{4}
	inner.EXPECT().GetTransaction(gomock.Any(), h).Return(committed(h, block), nil)
	inner.EXPECT().GetHeaderByHash(gomock.Any(), block.Hash).Return(block, nil)
	_, err = c.GetTransaction(context.Background(), h)
	require.NoError(t, err)

	// A fresh client with no upstream expectations must answer from the store.
	_, restarted := newCached(t, store)
	rec, err := restarted.GetTransaction(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, h, rec.Hash)
	require.NotNil(t, rec.BlockHash)
	assert.Equal(t, block.Hash, *rec.BlockHash)

	got, err := restarted.GetHeaderByHash(context.Background(), block.Hash)
	require.NoError(t, err)
	assert.Equal(t, block.Number, got.Number)
}

func TestCachedClientPassesThroughErrors(t *testing.T) {
	inner, c := newCached(t, nil)
	h := cell.Hash{5}
	inner.EXPECT().GetHeaderByHash(gomock.Any(), h).Return(cell.Header{}, tx.ErrNotFound).Times(2)

	for range 2 {
		_, err := c.GetHeaderByHash(context.Background(), h)
		assert.ErrorIs(t, err, tx.ErrNotFound)
	}
}
