package rpc

import (
	"context"
	"errors"
	"iter"
	"strconv"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
	"github.com/LeJamon/goickb/internal/core/tx"
	"github.com/LeJamon/goickb/internal/storage/headerstore"
)

const (
	// DefaultCacheSize is the number of entries kept per in-memory cache.
	DefaultCacheSize = 65536

	// DefaultFinality is the depth below the tip after which blocks are
	// treated as irreversible and become cacheable by number.
	DefaultFinality = 24
)

// CacheConfig holds configuration for CachedClient.
type CacheConfig struct {
	Size     int
	Finality uint64

	// Store persists final headers and transactions across restarts. Optional.
	Store *headerstore.Store
}

type txCacheEntry struct {
	record *tx.TransactionRecord
}

// CachedClient memoizes immutable ledger data in front of another client.
// Concurrent lookups for the same key share one upstream request.
type CachedClient struct {
	inner    tx.Client
	store    *headerstore.Store
	finality uint64

	byHash   *lru.Cache[cell.Hash, cell.Header]
	byNumber *lru.Cache[uint64, cell.Header]
	txs      *lru.Cache[cell.Hash, txCacheEntry]
	group    singleflight.Group

	tip    atomic.Uint64
	hits   atomic.Uint64
	misses atomic.Uint64
}

var _ tx.Client = (*CachedClient)(nil)

// NewCachedClient wraps inner.
func NewCachedClient(inner tx.Client, config CacheConfig) (*CachedClient, error) {
	if config.Size <= 0 {
		config.Size = DefaultCacheSize
	}
	if config.Finality == 0 {
		config.Finality = DefaultFinality
	}
	byHash, err := lru.New[cell.Hash, cell.Header](config.Size)
	if err != nil {
		return nil, err
	}
	byNumber, err := lru.New[uint64, cell.Header](config.Size)
	if err != nil {
		return nil, err
	}
	txs, err := lru.New[cell.Hash, txCacheEntry](config.Size)
	if err != nil {
		return nil, err
	}
	return &CachedClient{
		inner:    inner,
		store:    config.Store,
		finality: config.Finality,
		byHash:   byHash,
		byNumber: byNumber,
		txs:      txs,
	}, nil
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits   uint64
	Misses uint64
}

// Stats returns hit and miss counts of the in-memory caches.
func (c *CachedClient) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

func (c *CachedClient) final(number uint64) bool {
	return number+c.finality <= c.tip.Load()
}

func (c *CachedClient) observeTip(h cell.Header) {
	for {
		cur := c.tip.Load()
		if h.Number <= cur || c.tip.CompareAndSwap(cur, h.Number) {
			return
		}
	}
}

func (c *CachedClient) remember(h cell.Header) {
	c.byHash.Add(h.Hash, h)
	if !c.final(h.Number) {
		return
	}
	c.byNumber.Add(h.Number, h)
	if c.store != nil {
		// Persistence is best effort; the ledger stays the source of truth.
		_ = c.store.PutHeader(h, true)
	}
}

func (c *CachedClient) FindCells(ctx context.Context, key tx.SearchKey, order tx.SearchOrder, limit int) iter.Seq2[cell.Cell, error] {
	return c.inner.FindCells(ctx, key, order, limit)
}

func (c *CachedClient) GetTipHeader(ctx context.Context) (cell.Header, error) {
	h, err := c.inner.GetTipHeader(ctx)
	if err != nil {
		return cell.Header{}, err
	}
	c.observeTip(h)
	c.byHash.Add(h.Hash, h)
	return h, nil
}

func (c *CachedClient) GetHeaderByHash(ctx context.Context, hash cell.Hash) (cell.Header, error) {
	if h, ok := c.byHash.Get(hash); ok {
		c.hits.Add(1)
		return h, nil
	}
	if c.store != nil {
		if h, err := c.store.Header(hash); err == nil {
			c.hits.Add(1)
			c.byHash.Add(hash, h)
			return h, nil
		}
	}
	c.misses.Add(1)
	v, err, _ := c.group.Do("h"+hash.String(), func() (interface{}, error) {
		return c.inner.GetHeaderByHash(ctx, hash)
	})
	if err != nil {
		return cell.Header{}, err
	}
	h := v.(cell.Header)
	c.remember(h)
	return h, nil
}

// GetHeaderByNumber serves final blocks from cache. Blocks near the tip are
// always fetched since they may still be reorged.
func (c *CachedClient) GetHeaderByNumber(ctx context.Context, number uint64) (cell.Header, error) {
	if c.final(number) {
		if h, ok := c.byNumber.Get(number); ok {
			c.hits.Add(1)
			return h, nil
		}
		if c.store != nil {
			if h, err := c.store.HeaderByNumber(number); err == nil {
				c.hits.Add(1)
				c.byNumber.Add(number, h)
				return h, nil
			}
		}
	}
	c.misses.Add(1)
	v, err, _ := c.group.Do("n"+strconv.FormatUint(number, 10), func() (interface{}, error) {
		return c.inner.GetHeaderByNumber(ctx, number)
	})
	if err != nil {
		return cell.Header{}, err
	}
	h := v.(cell.Header)
	c.remember(h)
	return h, nil
}

// GetTransaction caches transactions committed in final blocks. Pending ones
// pass straight through so status changes stay visible.
func (c *CachedClient) GetTransaction(ctx context.Context, hash cell.Hash) (*tx.TransactionRecord, error) {
	if e, ok := c.txs.Get(hash); ok {
		c.hits.Add(1)
		return e.record, nil
	}
	if c.store != nil {
		rec, h, err := c.store.Transaction(hash)
		if err == nil {
			c.hits.Add(1)
			c.byHash.Add(h.Hash, h)
			c.txs.Add(hash, txCacheEntry{record: rec})
			return rec, nil
		}
		if !errors.Is(err, headerstore.ErrNotFound) && !errors.Is(err, headerstore.ErrClosed) {
			return nil, err
		}
	}
	c.misses.Add(1)
	v, err, _ := c.group.Do("t"+hash.String(), func() (interface{}, error) {
		return c.inner.GetTransaction(ctx, hash)
	})
	if err != nil {
		return nil, err
	}
	rec := v.(*tx.TransactionRecord)
	if rec.Status != tx.StatusCommitted || rec.BlockHash == nil {
		return rec, nil
	}
	h, err := c.GetHeaderByHash(ctx, *rec.BlockHash)
	if err != nil {
		return nil, err
	}
	if c.final(h.Number) {
		c.txs.Add(hash, txCacheEntry{record: rec})
		if c.store != nil {
			_ = c.store.PutTransaction(rec, h)
		}
	}
	return rec, nil
}

func (c *CachedClient) GetFeeRate(ctx context.Context) (ckbamount.FeeRate, error) {
	return c.inner.GetFeeRate(ctx)
}

func (c *CachedClient) SendTransaction(ctx context.Context, t *tx.Transaction) (cell.Hash, error) {
	return c.inner.SendTransaction(ctx, t)
}
