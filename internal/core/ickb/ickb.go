// Package ickb implements the iCKB liquidity pool: deposits into the pool,
// receipts that mint iCKB once their deposit block is known, owned
// withdrawals out of the pool, and the token accounting tying them together.
package ickb

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
	"github.com/LeJamon/goickb/internal/core/dao"
	"github.com/LeJamon/goickb/internal/core/scripts"
	"github.com/LeJamon/goickb/internal/core/tx"
)

var (
	// ErrNotPoolDeposit indicates a deposit not locked by the pool logic.
	ErrNotPoolDeposit = errors.New("deposit is not held by the pool")

	// ErrInvalidDeposit indicates a deposit request the pool would reject.
	ErrInvalidDeposit = errors.New("invalid pool deposit")
)

// xudtFlags is the xUDT args suffix marking an owner-mode-by-input-type token.
var xudtFlags = []byte{0x00, 0x00, 0x00, 0x80}

// Manager builds pool transactions for one deployment.
type Manager struct {
	dao        *dao.Manager
	logic      scripts.Info
	ownedOwner scripts.Info
	handler    *UdtHandler
}

func NewManager(d scripts.Deployment, daoManager *dao.Manager) *Manager {
	logic := d.Logic.Script
	h := logic.Hash()
	args := append(h[:], xudtFlags...)
	m := &Manager{
		dao:        daoManager,
		logic:      d.Logic,
		ownedOwner: d.OwnedOwner,
	}
	m.handler = &UdtHandler{
		script: d.Xudt.WithArgs(args),
		deps:   append(append([]cell.CellDep(nil), d.Xudt.Deps...), d.Logic.Deps...),
		logic:  logic,
		dao:    daoManager,
	}
	return m
}

// UdtScript is the iCKB token type script.
func (m *Manager) UdtScript() cell.Script { return m.handler.script }

// LogicScript locks pool deposits and types receipts.
func (m *Manager) LogicScript() cell.Script { return m.logic.Script }

// OwnedOwnerScript locks pool withdrawal requests and types their owner cells.
func (m *Manager) OwnedOwnerScript() cell.Script { return m.ownedOwner.Script }

// Handler returns the iCKB balance handler.
func (m *Manager) Handler() *UdtHandler { return m.handler }

// DAO returns the underlying DAO manager.
func (m *Manager) DAO() *dao.Manager { return m.dao }

// IsReceipt reports whether c is a receipt.
func (m *Manager) IsReceipt(c cell.Cell) bool {
	return c.HasType(m.logic.Script) && len(c.Data) == receiptSize
}

// IsPoolDeposit reports whether c is a deposit held by the pool.
func (m *Manager) IsPoolDeposit(c cell.Cell) bool {
	return m.dao.IsDeposit(c) && c.Lock().Equal(m.logic.Script)
}

// IsOwner reports whether c is an owner cell of a pool withdrawal.
func (m *Manager) IsOwner(c cell.Cell) bool {
	return c.HasType(m.ownedOwner.Script) && len(c.Data) >= ownerSize
}

// AddDeposits appends count pool deposits of amount unoccupied capacity each
// and one receipt for them locked by lock.
func (m *Manager) AddDeposits(t *tx.Transaction, count int, amount ckbamount.Shannons, lock cell.Script) error {
	if count <= 0 {
		return nil
	}
	if amount == 0 {
		return fmt.Errorf("%w: zero amount", ErrInvalidDeposit)
	}
	caps := make([]ckbamount.Shannons, count)
	for i := range caps {
		caps[i] = amount + DepositOccupied
	}
	// Receipt output is part of the same room check.
	if n := len(t.Outputs) + count + 1; n > dao.MaxOutputs {
		return fmt.Errorf("%w: %d > %d", dao.ErrTooManyOutputs, n, dao.MaxOutputs)
	}
	if err := m.dao.Deposit(t, caps, m.logic.Script); err != nil {
		return err
	}
	typ := m.logic.Script
	data := ReceiptData{Quantity: uint32(count), Amount: amount}.Encode()
	out := cell.Output{Lock: lock, Type: &typ}
	out.Capacity = out.OccupiedCapacity(len(data))
	t.AddOutput(out, data)
	t.AddCellDeps(m.logic.Deps...)
	t.AddUdtHandlers(m.handler)
	return nil
}

// Receipt is a hydrated receipt cell.
type Receipt struct {
	Cell   cell.Cell
	Header cell.Header
	ReceiptData

	// Value is the iCKB the receipt converts to.
	Value *big.Int
}

// NewReceipt values a receipt created in header.
func (m *Manager) NewReceipt(c cell.Cell, header cell.Header) (*Receipt, error) {
	if !c.HasType(m.logic.Script) {
		return nil, fmt.Errorf("%w: %v is not typed by the pool logic", ErrInvalidReceipt, c.OutPoint)
	}
	data, err := DecodeReceipt(c.Data)
	if err != nil {
		return nil, err
	}
	return &Receipt{Cell: c, Header: header, ReceiptData: data, Value: receiptValue(data, header)}, nil
}

func receiptValue(r ReceiptData, h cell.Header) *big.Int {
	v := DepositValue(r.Amount, h)
	return v.Mul(v, big.NewInt(int64(r.Quantity)))
}

// AddReceipts consumes receipts, converting them into iCKB change.
func (m *Manager) AddReceipts(t *tx.Transaction, receipts []*Receipt) error {
	if len(receipts) == 0 {
		return nil
	}
	for _, r := range receipts {
		if !m.IsReceipt(r.Cell) {
			return fmt.Errorf("%w: %v", ErrInvalidReceipt, r.Cell.OutPoint)
		}
		t.AddHeaderDeps(r.Header)
		if err := t.AddInput(r.Cell, 0); err != nil {
			return err
		}
	}
	t.AddCellDeps(m.logic.Deps...)
	t.AddUdtHandlers(m.handler)
	return nil
}

// AddPoolWithdrawals requests the withdrawal of pool deposits. Each request
// is locked by the owned-owner script and paired with an owner cell for lock,
// placed after all requests and pointing back at its request.
func (m *Manager) AddPoolWithdrawals(t *tx.Transaction, deposits []*dao.Deposit, lock cell.Script, opts dao.Options) error {
	var selected []*dao.Deposit
	for _, d := range deposits {
		if !m.IsPoolDeposit(d.Cell) {
			return fmt.Errorf("%w: %v", ErrNotPoolDeposit, d.Cell.OutPoint)
		}
		if opts.IsReadyOnly && !d.IsReady {
			continue
		}
		selected = append(selected, d)
	}
	n := len(selected)
	if n == 0 {
		return nil
	}
	if total := len(t.Outputs) + 2*n; total > dao.MaxOutputs {
		return fmt.Errorf("%w: %d > %d", dao.ErrTooManyOutputs, total, dao.MaxOutputs)
	}
	first := len(t.Outputs)
	if err := m.dao.RequestWithdrawal(t, selected, m.ownedOwner.Script, dao.Options{}); err != nil {
		return err
	}
	typ := m.ownedOwner.Script
	for i := 0; i < n; i++ {
		owner := first + n + i
		data := EncodeOwner(int32(first + i - owner))
		out := cell.Output{Lock: lock, Type: &typ}
		out.Capacity = out.OccupiedCapacity(len(data))
		t.AddOutput(out, data)
	}
	t.AddCellDeps(m.logic.Deps...)
	t.AddCellDeps(m.ownedOwner.Deps...)
	t.AddUdtHandlers(m.handler)
	return nil
}

// OwnedWithdrawal is a pool withdrawal request together with the owner cell
// that authorizes spending it.
type OwnedWithdrawal struct {
	Owner   cell.Cell
	Request *dao.WithdrawalRequest
}

// WithdrawOwned completes owned withdrawals, consuming each request with its owner.
func (m *Manager) WithdrawOwned(t *tx.Transaction, ws []*OwnedWithdrawal, opts dao.Options) error {
	var requests []*dao.WithdrawalRequest
	var owners []cell.Cell
	for _, w := range ws {
		if !m.IsOwner(w.Owner) {
			return fmt.Errorf("%w: %v", ErrInvalidOwner, w.Owner.OutPoint)
		}
		if opts.IsReadyOnly && !w.Request.IsReady {
			continue
		}
		requests = append(requests, w.Request)
		owners = append(owners, w.Owner)
	}
	if len(requests) == 0 {
		return nil
	}
	if err := m.dao.Withdraw(t, requests, dao.Options{}); err != nil {
		return err
	}
	for _, o := range owners {
		if err := t.AddInput(o, 0); err != nil {
			return err
		}
	}
	t.AddCellDeps(m.ownedOwner.Deps...)
	return nil
}

// UdtHandler accounts iCKB. Besides plain token cells, committed receipts
// count at the value of their deposits and committed pool deposits count
// negatively, both valued at their creating block, which must be a header dep.
type UdtHandler struct {
	script cell.Script
	deps   []cell.CellDep
	logic  cell.Script
	dao    *dao.Manager
}

var _ tx.AssetHandler = (*UdtHandler)(nil)

func (h *UdtHandler) Script() cell.Script { return h.script }

func (h *UdtHandler) AddCellDeps(t *tx.Transaction) {
	t.AddCellDeps(h.deps...)
}

func (h *UdtHandler) BalanceInfo(ctx context.Context, t *tx.Transaction, client tx.Client, cells []cell.Cell) (*big.Int, error) {
	sum := new(big.Int)
	for _, c := range cells {
		switch {
		case c.HasType(h.script):
			amount, err := tx.DecodeUdtAmount(c.Data)
			if err != nil {
				return nil, err
			}
			sum.Add(sum, amount)
		case c.HasType(h.logic) && c.IsCommitted():
			data, err := DecodeReceipt(c.Data)
			if err != nil {
				return nil, err
			}
			header, err := t.Header(ctx, client, tx.ByTxHash(c.OutPoint.TxHash))
			if err != nil {
				return nil, fmt.Errorf("receipt %s: %w", c.OutPoint, err)
			}
			sum.Add(sum, receiptValue(data, header))
		case c.Lock().Equal(h.logic) && h.dao.IsDeposit(c) && c.IsCommitted():
			header, err := t.Header(ctx, client, tx.ByTxHash(c.OutPoint.TxHash))
			if err != nil {
				return nil, fmt.Errorf("deposit %s: %w", c.OutPoint, err)
			}
			sum.Sub(sum, DepositValue(c.FreeCapacity(), header))
		}
	}
	return sum, nil
}

func (h *UdtHandler) ChangeOutput(lock cell.Script, amount *big.Int) (cell.Output, []byte, error) {
	return tx.UdtOutput(h.script, lock, amount)
}
