package bot

import (
	"context"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
	"github.com/LeJamon/goickb/internal/core/order"
)

// Status is a read-only snapshot of the bot's funds and of the market.
type Status struct {
	Tip     cell.Header
	FeeRate ckbamount.FeeRate

	Balances Balances

	Receipts           int
	PendingWithdrawals int
	ReadyWithdrawals   int

	// Orders are all live orders; OwnOrders counts those the bot minted.
	Orders    []*order.Group
	OwnOrders int

	PoolDeposits      int
	ReadyPoolDeposits int
}

// Status reads the current state without building anything.
func (b *Bot) Status(ctx context.Context) (*Status, error) {
	s, err := b.fetchState(ctx)
	if err != nil {
		return nil, err
	}
	st := &Status{
		Tip:          s.tip,
		FeeRate:      s.feeRate,
		Balances:     s.balances(),
		Receipts:     len(s.receipts),
		Orders:       s.orders,
		PoolDeposits: len(s.poolDeposits),
	}
	st.ReadyWithdrawals = len(s.readyWithdrawals())
	st.PendingWithdrawals = len(s.withdrawals) - st.ReadyWithdrawals
	lock := b.signer.Lock()
	for _, g := range s.orders {
		if g.IsOwnedBy(lock) {
			st.OwnOrders++
		}
	}
	for _, d := range s.poolDeposits {
		if d.IsReady {
			st.ReadyPoolDeposits++
		}
	}
	return st, nil
}
