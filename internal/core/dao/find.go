package dao

import (
	"context"
	"fmt"
	"iter"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/tx"
)

// FindOptions control DAO cell discovery.
type FindOptions struct {
	// Tip values the cells; the client's tip is fetched when nil.
	Tip *cell.Header

	// OnChain skips cells whose creating transaction is not committed.
	OnChain bool
}

// headerSource resolves the creating block of cells, memoized per scan.
type headerSource struct {
	client  tx.Client
	onChain bool
	byTx    map[cell.Hash]*cell.Header
}

func newHeaderSource(client tx.Client, onChain bool) *headerSource {
	return &headerSource{client: client, onChain: onChain, byTx: make(map[cell.Hash]*cell.Header)}
}

// block returns the header of the block that committed txHash, or nil when
// the transaction must be skipped.
func (s *headerSource) block(ctx context.Context, txHash cell.Hash) (*cell.Header, error) {
	if h, ok := s.byTx[txHash]; ok {
		return h, nil
	}
	rec, err := s.client.GetTransaction(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("fetching transaction %s: %w", txHash, err)
	}
	var h *cell.Header
	if rec.BlockHash != nil && (!s.onChain || rec.Status == tx.StatusCommitted) {
		hdr, err := s.client.GetHeaderByHash(ctx, *rec.BlockHash)
		if err != nil {
			return nil, fmt.Errorf("fetching block %s: %w", rec.BlockHash, err)
		}
		h = &hdr
	}
	s.byTx[txHash] = h
	return h, nil
}

func resolveTip(ctx context.Context, client tx.Client, tip *cell.Header) (cell.Header, error) {
	if tip != nil {
		return *tip, nil
	}
	h, err := client.GetTipHeader(ctx)
	if err != nil {
		return cell.Header{}, fmt.Errorf("fetching tip: %w", err)
	}
	return h, nil
}

func (m *Manager) searchKey(lock cell.Script) tx.SearchKey {
	typ := m.info.Script
	return tx.SearchKey{
		Script:     lock,
		ScriptType: tx.ScriptTypeLock,
		Filter:     &tx.SearchFilter{Script: &typ, OutputDataLen: &[2]uint64{dataSize, dataSize + 1}},
		WithData:   true,
	}
}

// FindDeposits streams the deposits locked by any of locks.
func (m *Manager) FindDeposits(ctx context.Context, client tx.Client, locks []cell.Script, opts FindOptions) iter.Seq2[*Deposit, error] {
	return func(yield func(*Deposit, error) bool) {
		tip, err := resolveTip(ctx, client, opts.Tip)
		if err != nil {
			yield(nil, err)
			return
		}
		src := newHeaderSource(client, opts.OnChain)
		for _, lock := range locks {
			for c, err := range client.FindCells(ctx, m.searchKey(lock), tx.OrderAsc, 0) {
				if err != nil {
					yield(nil, err)
					return
				}
				if !m.IsDeposit(c) || !c.IsCommitted() {
					continue
				}
				h, err := src.block(ctx, c.OutPoint.TxHash)
				if err != nil {
					yield(nil, err)
					return
				}
				if h == nil {
					continue
				}
				d, err := m.NewDeposit(c, *h, tip)
				if err != nil {
					continue
				}
				if !yield(d, nil) {
					return
				}
			}
		}
	}
}

// FindWithdrawalRequests streams the withdrawal requests locked by any of locks.
func (m *Manager) FindWithdrawalRequests(ctx context.Context, client tx.Client, locks []cell.Script, opts FindOptions) iter.Seq2[*WithdrawalRequest, error] {
	return func(yield func(*WithdrawalRequest, error) bool) {
		tip, err := resolveTip(ctx, client, opts.Tip)
		if err != nil {
			yield(nil, err)
			return
		}
		src := newHeaderSource(client, opts.OnChain)
		deposits := make(map[uint64]cell.Header)
		for _, lock := range locks {
			for c, err := range client.FindCells(ctx, m.searchKey(lock), tx.OrderAsc, 0) {
				if err != nil {
					yield(nil, err)
					return
				}
				if !m.IsWithdrawalRequest(c) || !c.IsCommitted() {
					continue
				}
				h, err := src.block(ctx, c.OutPoint.TxHash)
				if err != nil {
					yield(nil, err)
					return
				}
				if h == nil {
					continue
				}
				number, _ := DecodeRequestData(c.Data)
				dh, ok := deposits[number]
				if !ok {
					dh, err = client.GetHeaderByNumber(ctx, number)
					if err != nil {
						yield(nil, fmt.Errorf("fetching deposit header %d: %w", number, err))
						return
					}
					deposits[number] = dh
				}
				r, err := m.NewWithdrawalRequest(c, *h, dh, tip)
				if err != nil {
					continue
				}
				if !yield(r, nil) {
					return
				}
			}
		}
	}
}
