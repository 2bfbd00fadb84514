package ickb

import (
	"context"
	"fmt"
	"iter"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/dao"
	"github.com/LeJamon/goickb/internal/core/tx"
)

func (m *Manager) committedHeader(ctx context.Context, client tx.Client, txHash cell.Hash, onChain bool) (*tx.TransactionRecord, *cell.Header, error) {
	rec, err := client.GetTransaction(ctx, txHash)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching transaction %s: %w", txHash, err)
	}
	if rec.BlockHash == nil || (onChain && rec.Status != tx.StatusCommitted) {
		return rec, nil, nil
	}
	h, err := client.GetHeaderByHash(ctx, *rec.BlockHash)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching block %s: %w", rec.BlockHash, err)
	}
	return rec, &h, nil
}

// FindReceipts streams the receipts locked by any of locks.
func (m *Manager) FindReceipts(ctx context.Context, client tx.Client, locks []cell.Script, opts dao.FindOptions) iter.Seq2[*Receipt, error] {
	return func(yield func(*Receipt, error) bool) {
		typ := m.logic.Script
		for _, lock := range locks {
			key := tx.SearchKey{
				Script:     lock,
				ScriptType: tx.ScriptTypeLock,
				Filter:     &tx.SearchFilter{Script: &typ, OutputDataLen: &[2]uint64{receiptSize, receiptSize + 1}},
				WithData:   true,
			}
			for c, err := range client.FindCells(ctx, key, tx.OrderAsc, 0) {
				if err != nil {
					yield(nil, err)
					return
				}
				if !m.IsReceipt(c) || !c.IsCommitted() {
					continue
				}
				_, h, err := m.committedHeader(ctx, client, c.OutPoint.TxHash, opts.OnChain)
				if err != nil {
					yield(nil, err)
					return
				}
				if h == nil {
					continue
				}
				r, err := m.NewReceipt(c, *h)
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

// FindPoolDeposits streams every deposit held by the pool.
func (m *Manager) FindPoolDeposits(ctx context.Context, client tx.Client, opts dao.FindOptions) iter.Seq2[*dao.Deposit, error] {
	return m.dao.FindDeposits(ctx, client, []cell.Script{m.logic.Script}, opts)
}

// FindOwnedWithdrawals streams the pool withdrawals whose owner cells are
// locked by any of locks.
func (m *Manager) FindOwnedWithdrawals(ctx context.Context, client tx.Client, locks []cell.Script, opts dao.FindOptions) iter.Seq2[*OwnedWithdrawal, error] {
	return func(yield func(*OwnedWithdrawal, error) bool) {
		var tip cell.Header
		if opts.Tip != nil {
			tip = *opts.Tip
		} else {
			h, err := client.GetTipHeader(ctx)
			if err != nil {
				yield(nil, fmt.Errorf("fetching tip: %w", err))
				return
			}
			tip = h
		}
		typ := m.ownedOwner.Script
		for _, lock := range locks {
			key := tx.SearchKey{
				Script:     lock,
				ScriptType: tx.ScriptTypeLock,
				Filter:     &tx.SearchFilter{Script: &typ},
				WithData:   true,
			}
			for owner, err := range client.FindCells(ctx, key, tx.OrderAsc, 0) {
				if err != nil {
					yield(nil, err)
					return
				}
				if !m.IsOwner(owner) || !owner.IsCommitted() {
					continue
				}
				w, err := m.ownedWithdrawal(ctx, client, owner, tip, opts.OnChain)
				if err != nil {
					yield(nil, err)
					return
				}
				if w == nil {
					continue
				}
				if !yield(w, nil) {
					return
				}
			}
		}
	}
}

func (m *Manager) ownedWithdrawal(ctx context.Context, client tx.Client, owner cell.Cell, tip cell.Header, onChain bool) (*OwnedWithdrawal, error) {
	offset, err := DecodeOwner(owner.Data)
	if err != nil {
		return nil, nil
	}
	idx := int64(owner.OutPoint.Index) + int64(offset)
	if idx < 0 {
		return nil, nil
	}
	rec, h, err := m.committedHeader(ctx, client, owner.OutPoint.TxHash, onChain)
	if err != nil || h == nil {
		return nil, err
	}
	c, ok := rec.Cell(uint32(idx))
	if !ok || !m.dao.IsWithdrawalRequest(c) || !c.Lock().Equal(m.ownedOwner.Script) {
		return nil, nil
	}
	number, err := dao.DecodeRequestData(c.Data)
	if err != nil {
		return nil, nil
	}
	dh, err := client.GetHeaderByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("fetching deposit header %d: %w", number, err)
	}
	r, err := m.dao.NewWithdrawalRequest(c, *h, dh, tip)
	if err != nil {
		return nil, nil
	}
	return &OwnedWithdrawal{Owner: owner, Request: r}, nil
}
