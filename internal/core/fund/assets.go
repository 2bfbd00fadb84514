package fund

import (
	"context"
	"math/big"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
	"github.com/LeJamon/goickb/internal/core/tx"
)

// CKBName is the name of the base currency asset.
const CKBName = "CKB"

// Inputs returns one funder per cell, each adding the cell as input.
func Inputs(cells ...cell.Cell) []Funder {
	funders := make([]Funder, len(cells))
	for i, c := range cells {
		funders[i] = func(_ context.Context, t *tx.Transaction) error {
			return t.AddInput(c, 0)
		}
	}
	return funders
}

// CKB balances capacity and the fee at rate, sending change to the
// signer's lock. The signer's witness is prepared before each fee
// estimate so the size is final. An exactly balanced transaction gets no
// change output.
func CKB(client tx.Client, signer tx.Signer, rate ckbamount.FeeRate, funds []Funder) Asset {
	delta := func(ctx context.Context, t *tx.Transaction) (*big.Int, error) {
		in, err := t.InputsCapacity(ctx, client)
		if err != nil {
			return nil, err
		}
		d := in.Big()
		d.Sub(d, t.OutputsCapacity().Big())
		return d.Sub(d, t.Fee(rate).Big()), nil
	}
	return Asset{
		Name: CKBName,
		GetDelta: func(ctx context.Context, t *tx.Transaction) (*big.Int, error) {
			c := t.Clone()
			if err := signer.Prepare(c); err != nil {
				return nil, err
			}
			return delta(ctx, c)
		},
		AddChange: func(ctx context.Context, t *tx.Transaction) (*big.Int, error) {
			if err := signer.Prepare(t); err != nil {
				return nil, err
			}
			d, err := delta(ctx, t)
			if err != nil || d.Sign() == 0 {
				return d, err
			}
			change := cell.Output{Lock: signer.Lock()}
			i := t.AddOutput(change, nil)
			if d, err = delta(ctx, t); err != nil {
				return nil, err
			}
			minChange := change.OccupiedCapacity(0).Big()
			if d.Cmp(minChange) < 0 {
				return d.Sub(d, minChange), nil
			}
			t.Outputs[i].Capacity = ckbamount.FromBig(d)
			return new(big.Int), nil
		},
		AddFunds: funds,
	}
}

// UDT balances the asset accounted by h, sending change to lock.
func UDT(client tx.Client, h tx.AssetHandler, lock cell.Script, funds []Funder) Asset {
	return Asset{
		Name: h.Script().String(),
		GetDelta: func(ctx context.Context, t *tx.Transaction) (*big.Int, error) {
			return t.AssetDelta(ctx, client, h)
		},
		AddChange: func(ctx context.Context, t *tx.Transaction) (*big.Int, error) {
			t.AddUdtHandlers(h)
			d, err := t.AssetDelta(ctx, client, h)
			if err != nil {
				return nil, err
			}
			if d.Sign() <= 0 {
				return d, nil
			}
			out, data, err := h.ChangeOutput(lock, d)
			if err != nil {
				return nil, err
			}
			t.AddOutput(out, data)
			return new(big.Int), nil
		},
		AddFunds: funds,
	}
}
