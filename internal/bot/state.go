package bot

import (
	"context"
	"fmt"
	"iter"
	"math/big"

	"golang.org/x/sync/errgroup"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
	"github.com/LeJamon/goickb/internal/core/dao"
	"github.com/LeJamon/goickb/internal/core/ickb"
	"github.com/LeJamon/goickb/internal/core/order"
	"github.com/LeJamon/goickb/internal/core/tx"
)

// state is everything a cycle needs, read at one tip.
type state struct {
	tip     cell.Header
	feeRate ckbamount.FeeRate

	capacities  []cell.Cell
	tokens      []cell.Cell
	receipts    []*ickb.Receipt
	withdrawals []*ickb.OwnedWithdrawal

	// orders holds every live order, the bot's own included.
	orders       []*order.Group
	poolDeposits []*dao.Deposit

	udtBalance *big.Int
}

func (s *state) balances() Balances {
	b := Balances{UdtAvailable: new(big.Int).Set(s.udtBalance)}
	for _, c := range s.capacities {
		b.CkbAvailable += c.Capacity()
	}
	for _, w := range s.withdrawals {
		v := w.Request.Cell.Capacity() + w.Request.Interest
		if w.Request.IsReady {
			b.CkbAvailable += v
		} else {
			b.CkbUnavailable += v
		}
	}
	return b
}

// readyWithdrawals returns the owned withdrawals that can be completed now.
func (s *state) readyWithdrawals() []*ickb.OwnedWithdrawal {
	var out []*ickb.OwnedWithdrawal
	for _, w := range s.withdrawals {
		if w.Request.IsReady {
			out = append(out, w)
		}
	}
	return out
}

func collect[T any](dst *[]T, seq iter.Seq2[T, error]) error {
	for v, err := range seq {
		if err != nil {
			return err
		}
		*dst = append(*dst, v)
	}
	return nil
}

// fetchState reads the tip, then everything valued against it in parallel.
func (b *Bot) fetchState(ctx context.Context) (*state, error) {
	tip, err := b.client.GetTipHeader(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching tip: %w", err)
	}
	s := &state{tip: tip, udtBalance: new(big.Int)}
	lock := b.signer.Lock()
	locks := []cell.Script{lock}
	opts := dao.FindOptions{Tip: &tip, OnChain: true}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rate, err := b.client.GetFeeRate(gctx)
		if err != nil {
			return fmt.Errorf("fetching fee rate: %w", err)
		}
		s.feeRate = rate
		return nil
	})
	g.Go(func() error {
		key := tx.SearchKey{Script: lock, ScriptType: tx.ScriptTypeLock, WithData: true}
		udt := b.ickb.UdtScript()
		for c, err := range b.client.FindCells(gctx, key, tx.OrderAsc, 0) {
			if err != nil {
				return fmt.Errorf("fetching wallet cells: %w", err)
			}
			switch {
			case c.Type() == nil && len(c.Data) == 0:
				s.capacities = append(s.capacities, c)
			case c.HasType(udt):
				if _, err := tx.DecodeUdtAmount(c.Data); err == nil {
					s.tokens = append(s.tokens, c)
				}
			}
		}
		return nil
	})
	g.Go(func() error {
		if err := collect(&s.receipts, b.ickb.FindReceipts(gctx, b.client, locks, opts)); err != nil {
			return fmt.Errorf("fetching receipts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := collect(&s.withdrawals, b.ickb.FindOwnedWithdrawals(gctx, b.client, locks, opts)); err != nil {
			return fmt.Errorf("fetching withdrawals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := collect(&s.orders, b.orders.FindOrders(gctx, b.client)); err != nil {
			return fmt.Errorf("fetching orders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := collect(&s.poolDeposits, b.ickb.FindPoolDeposits(gctx, b.client, opts)); err != nil {
			return fmt.Errorf("fetching pool deposits: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, c := range s.tokens {
		amount, _ := tx.DecodeUdtAmount(c.Data)
		s.udtBalance.Add(s.udtBalance, amount)
	}
	for _, r := range s.receipts {
		s.udtBalance.Add(s.udtBalance, r.Value)
	}
	return s, nil
}
