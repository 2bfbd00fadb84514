package tx

import (
	"context"
	"fmt"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
)

// CapacityResolver values inputs typed with Script at more than their stored
// capacity, such as DAO withdrawal requests that also release interest.
type CapacityResolver interface {
	Script() cell.Script
	ResolveCapacity(ctx context.Context, t *Transaction, client Client, in Input) (ckbamount.Shannons, error)
}

// AddCapacityResolver registers r unless a resolver for the same script exists.
func (t *Transaction) AddCapacityResolver(r CapacityResolver) {
	for _, e := range t.resolvers {
		if e.Script().Equal(r.Script()) {
			return
		}
	}
	t.resolvers = append(t.resolvers, r)
}

// InputsCapacity sums the capacity the inputs release.
func (t *Transaction) InputsCapacity(ctx context.Context, client Client) (ckbamount.Shannons, error) {
	var sum ckbamount.Shannons
	for i, in := range t.Inputs {
		c := in.Cell.Capacity()
		if typ := in.Cell.Type(); typ != nil {
			for _, r := range t.resolvers {
				if !r.Script().Equal(*typ) {
					continue
				}
				v, err := r.ResolveCapacity(ctx, t, client, in)
				if err != nil {
					return 0, fmt.Errorf("input %d: %w", i, err)
				}
				c = v
				break
			}
		}
		sum += c
	}
	return sum, nil
}

// CapacityDelta is inputs capacity minus outputs capacity; negative values
// mean the transaction still needs CKB.
func (t *Transaction) CapacityDelta(ctx context.Context, client Client) (int64, error) {
	in, err := t.InputsCapacity(ctx, client)
	if err != nil {
		return 0, err
	}
	return int64(in) - int64(t.OutputsCapacity()), nil
}

// CompleteFee balances every registered asset with change outputs to the
// signer's lock, then pays the fee at rate and returns the CKB excess to the
// same lock. It returns the fee paid. On error the change outputs it added
// are removed again.
func (t *Transaction) CompleteFee(ctx context.Context, client Client, signer Signer, rate ckbamount.FeeRate) (fee ckbamount.Shannons, err error) {
	n := len(t.Outputs)
	defer func() {
		if err != nil {
			t.truncateOutputs(n)
		}
	}()

	lock := signer.Lock()
	for _, h := range t.handlers {
		h.AddCellDeps(t)
		delta, err := t.AssetDelta(ctx, client, h)
		if err != nil {
			return 0, err
		}
		if delta.Sign() <= 0 {
			continue
		}
		out, data, err := h.ChangeOutput(lock, delta)
		if err != nil {
			return 0, err
		}
		t.AddOutput(out, data)
	}
	for _, h := range t.handlers {
		delta, err := t.AssetDelta(ctx, client, h)
		if err != nil {
			return 0, err
		}
		if delta.Sign() != 0 {
			return 0, fmt.Errorf("%w: %s off by %s", ErrUnbalancedHandlers, h.Script(), delta)
		}
	}

	if err := signer.Prepare(t); err != nil {
		return 0, fmt.Errorf("preparing witnesses: %w", err)
	}

	in, err := t.InputsCapacity(ctx, client)
	if err != nil {
		return 0, err
	}
	change := cell.Output{Lock: lock}
	minChange := change.OccupiedCapacity(0)
	i := t.AddOutput(change, nil)
	fee = t.Fee(rate)
	required := t.OutputsCapacity() + fee + minChange
	if in < required {
		return 0, fmt.Errorf("%w: have %s, need %s", ErrInsufficientCapacity, in, required)
	}
	t.Outputs[i].Capacity = in - t.OutputsCapacity() - fee
	if err := t.CheckOutputsLimit(); err != nil {
		return 0, err
	}
	return fee, nil
}

func (t *Transaction) truncateOutputs(n int) {
	t.Outputs = t.Outputs[:n]
	t.OutputsData = t.OutputsData[:n]
}
