package tx

import (
	"context"
	"fmt"

	"github.com/LeJamon/goickb/internal/core/cell"
)

type headerKeyKind int

const (
	keyHash headerKeyKind = iota
	keyNumber
	keyTxHash
)

// HeaderKey selects a header by block hash, block number or the hash of a
// transaction committed in that block.
type HeaderKey struct {
	kind   headerKeyKind
	hash   cell.Hash
	number uint64
}

func ByHash(h cell.Hash) HeaderKey   { return HeaderKey{kind: keyHash, hash: h} }
func ByNumber(n uint64) HeaderKey    { return HeaderKey{kind: keyNumber, number: n} }
func ByTxHash(h cell.Hash) HeaderKey { return HeaderKey{kind: keyTxHash, hash: h} }

func (k HeaderKey) String() string {
	switch k.kind {
	case keyNumber:
		return fmt.Sprintf("number %d", k.number)
	case keyTxHash:
		return fmt.Sprintf("tx %s", k.hash)
	}
	return fmt.Sprintf("hash %s", k.hash)
}

// LookupHeader fetches a header, memoizing the result on the transaction.
// It does not require the header to be a header dep.
func (t *Transaction) LookupHeader(ctx context.Context, client Client, key HeaderKey) (cell.Header, error) {
	c := t.lookups()
	switch key.kind {
	case keyHash:
		if h, ok := c.header(key.hash); ok {
			return h, nil
		}
		h, err := client.GetHeaderByHash(ctx, key.hash)
		if err != nil {
			return cell.Header{}, fmt.Errorf("fetching header %s: %w", key, err)
		}
		c.putHeader(h)
		return h, nil
	case keyNumber:
		if h, ok := c.headerByNumber(key.number); ok {
			return h, nil
		}
		h, err := client.GetHeaderByNumber(ctx, key.number)
		if err != nil {
			return cell.Header{}, fmt.Errorf("fetching header %s: %w", key, err)
		}
		c.putHeader(h)
		return h, nil
	case keyTxHash:
		e, err := t.lookupTx(ctx, client, key.hash)
		if err != nil {
			return cell.Header{}, err
		}
		return e.header, nil
	}
	return cell.Header{}, fmt.Errorf("unknown header key kind %d", key.kind)
}

// LookupTransaction fetches a committed transaction, memoized like headers.
func (t *Transaction) LookupTransaction(ctx context.Context, client Client, hash cell.Hash) (*TransactionRecord, cell.Header, error) {
	e, err := t.lookupTx(ctx, client, hash)
	if err != nil {
		return nil, cell.Header{}, err
	}
	return e.record, e.header, nil
}

func (t *Transaction) lookupTx(ctx context.Context, client Client, hash cell.Hash) (txEntry, error) {
	c := t.lookups()
	if e, ok := c.tx(hash); ok {
		return e, nil
	}
	rec, err := client.GetTransaction(ctx, hash)
	if err != nil {
		return txEntry{}, fmt.Errorf("fetching transaction %s: %w", hash, err)
	}
	if rec.BlockHash == nil {
		return txEntry{}, fmt.Errorf("%w: %s", ErrTxNotCommitted, hash)
	}
	h, ok := c.header(*rec.BlockHash)
	if !ok {
		h, err = client.GetHeaderByHash(ctx, *rec.BlockHash)
		if err != nil {
			return txEntry{}, fmt.Errorf("fetching block %s of tx %s: %w", rec.BlockHash, hash, err)
		}
	}
	e := txEntry{record: rec, header: h}
	c.putTx(e)
	return e, nil
}

// Header resolves a header that must already be one of the header deps.
func (t *Transaction) Header(ctx context.Context, client Client, key HeaderKey) (cell.Header, error) {
	h, err := t.LookupHeader(ctx, client, key)
	if err != nil {
		return cell.Header{}, err
	}
	if _, ok := t.HeaderDepIndex(h.Hash); !ok {
		return cell.Header{}, fmt.Errorf("%w: %s", ErrHeaderNotInDeps, key)
	}
	return h, nil
}
