// Package dao manages Nervos DAO cells: deposits, withdrawal requests and
// withdrawals, with the interest and maturity math they need.
package dao

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
	"github.com/LeJamon/goickb/internal/core/scripts"
	"github.com/LeJamon/goickb/internal/core/tx"
)

const (
	// MaxOutputs is the outputs cap the DAO script enforces.
	MaxOutputs = 64

	dataSize = 8

	// DefaultReadyWindow is how many epochs ahead of the tip a deposit's
	// maturity may be for the deposit to count as ready.
	DefaultReadyWindow = 18
)

// DepositData is the data of every deposit cell.
func DepositData() []byte {
	return make([]byte, dataSize)
}

// EncodeRequestData returns the data of a withdrawal request for a deposit
// made at block number.
func EncodeRequestData(number uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, number)
}

// DecodeRequestData returns the deposit block number of a withdrawal request.
func DecodeRequestData(b []byte) (uint64, error) {
	if len(b) != dataSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrInvalidData, len(b))
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Manager builds DAO transactions for one DAO deployment.
type Manager struct {
	info        scripts.Info
	readyWindow uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithReadyWindow sets the deposit readiness window in epochs.
func WithReadyWindow(epochs uint64) Option {
	return func(m *Manager) { m.readyWindow = epochs }
}

func NewManager(info scripts.Info, opts ...Option) *Manager {
	m := &Manager{info: info, readyWindow: DefaultReadyWindow}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Script is the DAO type script.
func (m *Manager) Script() cell.Script { return m.info.Script }

// IsDeposit reports whether c is a DAO deposit.
func (m *Manager) IsDeposit(c cell.Cell) bool {
	return c.HasType(m.info.Script) && len(c.Data) == dataSize && bytes.Equal(c.Data, DepositData())
}

// IsWithdrawalRequest reports whether c is a DAO withdrawal request.
func (m *Manager) IsWithdrawalRequest(c cell.Cell) bool {
	return c.HasType(m.info.Script) && len(c.Data) == dataSize && !bytes.Equal(c.Data, DepositData())
}

// Deposit is a hydrated deposit cell valued at a tip header.
type Deposit struct {
	Cell   cell.Cell
	Header cell.Header

	// Interest accrued up to the tip.
	Interest ckbamount.Shannons
	// Maturity is when the deposit could be withdrawn if requested at the tip.
	Maturity cell.Epoch
	IsReady  bool
}

// WithdrawalRequest is a hydrated withdrawal request cell.
type WithdrawalRequest struct {
	Cell          cell.Cell
	Header        cell.Header
	DepositHeader cell.Header

	// Interest accrued between deposit and request.
	Interest ckbamount.Shannons
	Maturity cell.Epoch
	IsReady  bool
}

// NewDeposit values a deposit cell created in header at tip.
func (m *Manager) NewDeposit(c cell.Cell, header, tip cell.Header) (*Deposit, error) {
	if !m.IsDeposit(c) {
		return nil, fmt.Errorf("%w: %v", ErrNotADeposit, c.OutPoint)
	}
	maturity := Maturity(header.Epoch, tip.Epoch)
	return &Deposit{
		Cell:     c,
		Header:   header,
		Interest: Interest(c.Capacity(), c.OccupiedCapacity(), header, tip),
		Maturity: maturity,
		IsReady:  maturity.Compare(tip.Epoch.AddNumber(m.readyWindow)) <= 0,
	}, nil
}

// NewWithdrawalRequest values a request created in header for a deposit made in depositHeader.
func (m *Manager) NewWithdrawalRequest(c cell.Cell, header, depositHeader, tip cell.Header) (*WithdrawalRequest, error) {
	if !m.IsWithdrawalRequest(c) {
		return nil, fmt.Errorf("%w: %v", ErrNotAWithdrawalRequest, c.OutPoint)
	}
	maturity := Maturity(depositHeader.Epoch, header.Epoch)
	return &WithdrawalRequest{
		Cell:          c,
		Header:        header,
		DepositHeader: depositHeader,
		Interest:      Interest(c.Capacity(), c.OccupiedCapacity(), depositHeader, header),
		Maturity:      maturity,
		IsReady:       tip.Epoch.Compare(maturity) >= 0,
	}, nil
}

// Prepare attaches the DAO deps, the outputs cap and the interest resolver.
func (m *Manager) Prepare(t *tx.Transaction) {
	t.AddCellDeps(m.info.Deps...)
	t.LimitOutputs(MaxOutputs)
	t.AddCapacityResolver(m)
}

func checkRoom(t *tx.Transaction, added int) error {
	if n := len(t.Outputs) + added; n > MaxOutputs {
		return fmt.Errorf("%w: %d > %d", ErrTooManyOutputs, n, MaxOutputs)
	}
	return nil
}

// Deposit appends one deposit output per capacity, locked by lock.
func (m *Manager) Deposit(t *tx.Transaction, capacities []ckbamount.Shannons, lock cell.Script) error {
	if len(capacities) == 0 {
		return nil
	}
	if err := checkRoom(t, len(capacities)); err != nil {
		return err
	}
	m.Prepare(t)
	typ := m.info.Script
	for _, c := range capacities {
		t.AddOutput(cell.Output{Capacity: c, Lock: lock, Type: &typ}, DepositData())
	}
	return nil
}

// Options filter the cells an operation accepts.
type Options struct {
	// SameSizeOnly rejects replacement locks whose size differs from the
	// deposit lock, as some wallets require.
	SameSizeOnly bool

	// IsReadyOnly silently skips cells that are not ready.
	IsReadyOnly bool
}

// RequestWithdrawal consumes deposits and appends one withdrawal request per
// deposit, locked by lock, with the same capacity. The DAO script pairs each
// request with the deposit at the same index, so t must have as many inputs
// as outputs.
func (m *Manager) RequestWithdrawal(t *tx.Transaction, deposits []*Deposit, lock cell.Script, opts Options) error {
	var selected []*Deposit
	for _, d := range deposits {
		if !m.IsDeposit(d.Cell) {
			return fmt.Errorf("%w: %v", ErrNotADeposit, d.Cell.OutPoint)
		}
		if opts.IsReadyOnly && !d.IsReady {
			continue
		}
		if opts.SameSizeOnly && d.Cell.Lock().OccupiedSize() != lock.OccupiedSize() {
			return fmt.Errorf("%w: %d != %d", ErrLockSizeMismatch, d.Cell.Lock().OccupiedSize(), lock.OccupiedSize())
		}
		if _, dup := t.InputIndex(*d.Cell.OutPoint); dup {
			return fmt.Errorf("%w: %s", tx.ErrDuplicateInput, d.Cell.OutPoint)
		}
		selected = append(selected, d)
	}
	if len(selected) == 0 {
		return nil
	}
	if len(t.Inputs) != len(t.Outputs) {
		return fmt.Errorf("%w: %d inputs, %d outputs", ErrIndexMismatch, len(t.Inputs), len(t.Outputs))
	}
	if err := checkRoom(t, len(selected)); err != nil {
		return err
	}
	m.Prepare(t)
	typ := m.info.Script
	for _, d := range selected {
		t.AddHeaderDeps(d.Header)
		if err := t.AddInput(d.Cell, 0); err != nil {
			return err
		}
		out := cell.Output{Capacity: d.Cell.Capacity(), Lock: lock, Type: &typ}
		t.AddOutput(out, EncodeRequestData(d.Header.Number))
	}
	return nil
}

// Withdraw consumes matured withdrawal requests. Each input gets a since of
// its maturity epoch and a witness input type holding the header dep index
// of its deposit header.
func (m *Manager) Withdraw(t *tx.Transaction, requests []*WithdrawalRequest, opts Options) error {
	var selected []*WithdrawalRequest
	for i, r := range requests {
		if !m.IsWithdrawalRequest(r.Cell) {
			return fmt.Errorf("%w: %v", ErrNotAWithdrawalRequest, r.Cell.OutPoint)
		}
		if opts.IsReadyOnly && !r.IsReady {
			continue
		}
		w, err := t.WitnessArgsAt(len(t.Inputs) + len(selected))
		if err != nil {
			return fmt.Errorf("request %d: %w", i, err)
		}
		if w.InputType != nil {
			return fmt.Errorf("%w: input type of request %d", tx.ErrWitnessOccupied, i)
		}
		selected = append(selected, r)
	}
	if len(selected) == 0 {
		return nil
	}
	if err := checkRoom(t, 0); err != nil {
		return err
	}
	m.Prepare(t)
	for _, r := range selected {
		t.AddHeaderDeps(r.DepositHeader, r.Header)
		idx := len(t.Inputs)
		if err := t.AddInput(r.Cell, cell.AbsoluteEpochSince(r.Maturity)); err != nil {
			return err
		}
		dep, _ := t.HeaderDepIndex(r.DepositHeader.Hash)
		w, _ := t.WitnessArgsAt(idx)
		w.InputType = binary.LittleEndian.AppendUint64(nil, uint64(dep))
		t.SetWitnessArgs(idx, w)
	}
	return nil
}

// ResolveCapacity values withdrawal request inputs at capacity plus the
// interest they release. Both headers must be header deps.
func (m *Manager) ResolveCapacity(ctx context.Context, t *tx.Transaction, client tx.Client, in tx.Input) (ckbamount.Shannons, error) {
	c := in.Cell
	if !m.IsWithdrawalRequest(c) {
		return c.Capacity(), nil
	}
	number, err := DecodeRequestData(c.Data)
	if err != nil {
		return 0, err
	}
	deposit, err := t.Header(ctx, client, tx.ByNumber(number))
	if err != nil {
		return 0, fmt.Errorf("deposit header of %s: %w", c.OutPoint, err)
	}
	request, err := t.Header(ctx, client, tx.ByTxHash(c.OutPoint.TxHash))
	if err != nil {
		return 0, fmt.Errorf("request header of %s: %w", c.OutPoint, err)
	}
	if i, ok := t.InputIndex(*c.OutPoint); ok {
		w, err := t.WitnessArgsAt(i)
		if err != nil {
			return 0, err
		}
		if w.InputType != nil {
			if len(w.InputType) != 8 {
				return 0, fmt.Errorf("%w: input type of %s", tx.ErrInvalidWitness, c.OutPoint)
			}
			idx := binary.LittleEndian.Uint64(w.InputType)
			if idx >= uint64(len(t.HeaderDeps)) || t.HeaderDeps[idx] != deposit.Hash {
				return 0, fmt.Errorf("%w: %s", ErrDepositHeaderMismatch, c.OutPoint)
			}
		}
	}
	return WithdrawnCapacity(c.Capacity(), c.OccupiedCapacity(), deposit, request), nil
}
