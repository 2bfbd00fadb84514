package tx

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/LeJamon/goickb/internal/core/cell"
)

// UdtAmountSize is the size of the little-endian u128 amount prefix of UDT data.
const UdtAmountSize = 16

var (
	// ErrInvalidUdtData indicates UDT cell data shorter than the amount prefix.
	ErrInvalidUdtData = errors.New("invalid udt data")

	// ErrUdtAmountRange indicates an amount that does not fit an unsigned 128 bit integer.
	ErrUdtAmountRange = errors.New("udt amount out of range")
)

var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// DecodeUdtAmount reads the amount prefix of UDT cell data. Trailing bytes are ignored.
func DecodeUdtAmount(data []byte) (*big.Int, error) {
	if len(data) < UdtAmountSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidUdtData, len(data))
	}
	return DecodeUint128(data[:UdtAmountSize]), nil
}

// EncodeUdtAmount returns 16-byte UDT data holding amount.
func EncodeUdtAmount(amount *big.Int) ([]byte, error) {
	return EncodeUint128(amount)
}

// DecodeUint128 reads a little-endian u128 from the first 16 bytes of b.
func DecodeUint128(b []byte) *big.Int {
	be := make([]byte, UdtAmountSize)
	for i := 0; i < UdtAmountSize; i++ {
		be[UdtAmountSize-1-i] = b[i]
	}
	return new(big.Int).SetBytes(be)
}

// EncodeUint128 writes v as a little-endian u128.
func EncodeUint128(v *big.Int) ([]byte, error) {
	if v.Sign() < 0 || v.Cmp(maxUint128) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUdtAmountRange, v)
	}
	out := make([]byte, UdtAmountSize)
	be := v.FillBytes(make([]byte, UdtAmountSize))
	for i := 0; i < UdtAmountSize; i++ {
		out[i] = be[UdtAmountSize-1-i]
	}
	return out, nil
}

// UdtHandler accounts a plain UDT: only cells typed with the token script count.
type UdtHandler struct {
	script cell.Script
	deps   []cell.CellDep
}

// NewUdtHandler returns a handler for the token identified by script.
func NewUdtHandler(script cell.Script, deps ...cell.CellDep) *UdtHandler {
	return &UdtHandler{script: script, deps: deps}
}

func (h *UdtHandler) Script() cell.Script { return h.script }

func (h *UdtHandler) AddCellDeps(t *Transaction) {
	t.AddCellDeps(h.deps...)
}

// BalanceInfo sums the token amounts of the cells typed with the handler's script.
func (h *UdtHandler) BalanceInfo(_ context.Context, _ *Transaction, _ Client, cells []cell.Cell) (*big.Int, error) {
	sum := new(big.Int)
	for _, c := range cells {
		if !c.HasType(h.script) {
			continue
		}
		amount, err := DecodeUdtAmount(c.Data)
		if err != nil {
			return nil, err
		}
		sum.Add(sum, amount)
	}
	return sum, nil
}

// ChangeOutput returns a minimal token cell holding amount for lock.
func (h *UdtHandler) ChangeOutput(lock cell.Script, amount *big.Int) (cell.Output, []byte, error) {
	return UdtOutput(h.script, lock, amount)
}

// UdtOutput builds a token cell with exactly its occupied capacity.
func UdtOutput(typ, lock cell.Script, amount *big.Int) (cell.Output, []byte, error) {
	data, err := EncodeUdtAmount(amount)
	if err != nil {
		return cell.Output{}, nil, err
	}
	t := typ
	out := cell.Output{Lock: lock, Type: &t}
	out.Capacity = out.OccupiedCapacity(len(data))
	return out, data, nil
}
