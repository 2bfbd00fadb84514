// Package fund balances a transaction across several assets by pulling in
// funding inputs until each asset can pay for its outputs and its change.
package fund

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/LeJamon/goickb/internal/core/tx"
)

var (
	// ErrNotEnoughFunds matches every *NotEnoughFundsError.
	ErrNotEnoughFunds = errors.New("not enough funds")

	// ErrIncorrectChange matches every *IncorrectChangeError.
	ErrIncorrectChange = errors.New("incorrect change")
)

// NotEnoughFundsError names the asset whose contributions ran out.
type NotEnoughFundsError struct {
	Asset string
}

func (e *NotEnoughFundsError) Error() string {
	return fmt.Sprintf("not enough funds: %s", e.Asset)
}

func (e *NotEnoughFundsError) Is(target error) bool { return target == ErrNotEnoughFunds }

// IncorrectChangeError reports an asset left unbalanced after change.
type IncorrectChangeError struct {
	Asset string
	Delta *big.Int
}

func (e *IncorrectChangeError) Error() string {
	return fmt.Sprintf("incorrect change: %s off by %s", e.Asset, e.Delta)
}

func (e *IncorrectChangeError) Is(target error) bool { return target == ErrIncorrectChange }

// Funder appends one funding contribution, typically inputs, to t.
type Funder func(ctx context.Context, t *tx.Transaction) error

// Asset describes how to balance one asset.
type Asset struct {
	Name string

	// GetDelta returns the surplus of the asset in t: what inputs release
	// minus what outputs hold, net of fees for CKB. It must not mutate t.
	GetDelta func(ctx context.Context, t *tx.Transaction) (*big.Int, error)

	// AddChange appends change outputs for the surplus and returns what
	// remains unbalanced afterwards: zero on success, negative when the
	// surplus cannot cover the change cell itself.
	AddChange func(ctx context.Context, t *tx.Transaction) (*big.Int, error)

	// AddFunds are the available contributions, used in order.
	AddFunds []Funder
}

// Fund balances t and returns the balanced copy; t itself is never changed.
//
// Assets are processed in reverse order, so the first asset (the base
// currency) is funded last and pays for the cells the others added. Unless
// useAll is set, contributions are pulled one at a time until the cheap
// delta clears the asset's minimum change and the exact change succeeds.
// With useAll every contribution is applied before change is computed once.
func Fund(ctx context.Context, t *tx.Transaction, assets []Asset, useAll bool, minChanges map[string]*big.Int) (*tx.Transaction, error) {
	t = t.Clone()
	for i := len(assets) - 1; i >= 0; i-- {
		next, err := fundAsset(ctx, t, assets[i], useAll, minChanges[assets[i].Name])
		if err != nil {
			return nil, err
		}
		t = next
	}
	for _, a := range assets {
		delta, err := a.GetDelta(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("%s delta: %w", a.Name, err)
		}
		if delta.Sign() != 0 {
			return nil, &IncorrectChangeError{Asset: a.Name, Delta: delta}
		}
	}
	if err := t.CheckOutputsLimit(); err != nil {
		return nil, err
	}
	return t, nil
}

func fundAsset(ctx context.Context, t *tx.Transaction, a Asset, useAll bool, minChange *big.Int) (*tx.Transaction, error) {
	if minChange == nil {
		minChange = new(big.Int)
	}
	funds := a.AddFunds
	if useAll {
		for _, f := range funds {
			if err := f(ctx, t); err != nil {
				return nil, fmt.Errorf("%s funds: %w", a.Name, err)
			}
		}
		withChange, ok, err := tryChange(ctx, t, a)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &NotEnoughFundsError{Asset: a.Name}
		}
		return withChange, nil
	}
	for {
		delta, err := a.GetDelta(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("%s delta: %w", a.Name, err)
		}
		if delta.Cmp(minChange) >= 0 {
			withChange, ok, err := tryChange(ctx, t, a)
			if err != nil {
				return nil, err
			}
			if ok {
				return withChange, nil
			}
		}
		if len(funds) == 0 {
			return nil, &NotEnoughFundsError{Asset: a.Name}
		}
		if err := funds[0](ctx, t); err != nil {
			return nil, fmt.Errorf("%s funds: %w", a.Name, err)
		}
		funds = funds[1:]
	}
}

// tryChange applies change on a copy so a failed attempt leaves t intact.
func tryChange(ctx context.Context, t *tx.Transaction, a Asset) (*tx.Transaction, bool, error) {
	c := t.Clone()
	rest, err := a.AddChange(ctx, c)
	if err != nil {
		return nil, false, fmt.Errorf("%s change: %w", a.Name, err)
	}
	return c, rest.Sign() == 0, nil
}
