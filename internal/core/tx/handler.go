package tx

import (
	"context"
	"fmt"
	"math/big"

	"github.com/LeJamon/goickb/internal/core/cell"
)

// AssetHandler accounts one non-CKB asset across the cells of a transaction.
type AssetHandler interface {
	// Script identifies the asset; handlers are deduplicated by it.
	Script() cell.Script

	// AddCellDeps attaches the code deps needed by cells holding the asset.
	AddCellDeps(t *Transaction)

	// BalanceInfo returns the asset amount held by cells. Committed cells may
	// be valued against their creating block, which must be a header dep.
	BalanceInfo(ctx context.Context, t *Transaction, client Client, cells []cell.Cell) (*big.Int, error)

	// ChangeOutput builds an output returning amount to lock.
	ChangeOutput(lock cell.Script, amount *big.Int) (cell.Output, []byte, error)
}

// AddUdtHandlers registers handlers not already present and attaches their deps.
func (t *Transaction) AddUdtHandlers(handlers ...AssetHandler) {
	for _, h := range handlers {
		if _, ok := t.Handler(h.Script()); ok {
			continue
		}
		t.handlers = append(t.handlers, h)
		h.AddCellDeps(t)
	}
}

// Handler returns the registered handler for script.
func (t *Transaction) Handler(script cell.Script) (AssetHandler, bool) {
	for _, h := range t.handlers {
		if h.Script().Equal(script) {
			return h, true
		}
	}
	return nil, false
}

// Handlers returns the registered handlers in registration order.
func (t *Transaction) Handlers() []AssetHandler {
	return append([]AssetHandler(nil), t.handlers...)
}

// AssetDelta returns inputs minus outputs of the asset h accounts.
func (t *Transaction) AssetDelta(ctx context.Context, client Client, h AssetHandler) (*big.Int, error) {
	in, err := h.BalanceInfo(ctx, t, client, t.InputCells())
	if err != nil {
		return nil, fmt.Errorf("input balance of %s: %w", h.Script(), err)
	}
	out, err := h.BalanceInfo(ctx, t, client, t.OutputCells())
	if err != nil {
		return nil, fmt.Errorf("output balance of %s: %w", h.Script(), err)
	}
	return in.Sub(in, out), nil
}
