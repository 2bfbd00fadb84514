package order

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math/big"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
	"github.com/LeJamon/goickb/internal/core/scripts"
	"github.com/LeJamon/goickb/internal/core/tx"
)

// Manager builds order transactions for one limit order deployment and one token.
type Manager struct {
	info scripts.Info
	udt  tx.AssetHandler
}

func NewManager(info scripts.Info, udt tx.AssetHandler) *Manager {
	return &Manager{info: info, udt: udt}
}

// Script is the limit order script, the lock of orders and the type of masters.
func (m *Manager) Script() cell.Script { return m.info.Script }

// IsOrder reports whether c has the shape of an order cell.
func (m *Manager) IsOrder(c cell.Cell) bool {
	return c.Lock().Equal(m.info.Script) && c.HasType(m.udt.Script()) && len(c.Data) == DataSize
}

// IsMaster reports whether c is a master cell.
func (m *Manager) IsMaster(c cell.Cell) bool {
	return c.HasType(m.info.Script)
}

// NewOrder decodes an order cell.
func (m *Manager) NewOrder(c cell.Cell) (*Order, error) {
	if !m.IsOrder(c) {
		return nil, invalid("%v is not an order cell", c.OutPoint)
	}
	return newOrder(c)
}

func (m *Manager) prepare(t *tx.Transaction) {
	t.AddCellDeps(m.info.Deps...)
	t.AddUdtHandlers(m.udt)
}

// Mint appends a fresh order offering ckbAmount unoccupied CKB and
// udtAmount tokens, followed by its master cell locked by owner.
func (m *Manager) Mint(t *tx.Transaction, owner cell.Script, info Info, ckbAmount ckbamount.Shannons, udtAmount *big.Int) error {
	if err := info.Validate(); err != nil {
		return err
	}
	data, err := Data{UdtAmount: udtAmount, Master: RelativeMaster{Distance: 1}, Info: info}.Encode()
	if err != nil {
		return err
	}
	udt := m.udt.Script()
	out := cell.Output{Lock: m.info.Script, Type: &udt}
	out.Capacity = out.OccupiedCapacity(len(data)) + ckbAmount
	t.AddOutput(out, data)

	typ := m.info.Script
	master := cell.Output{Lock: owner, Type: &typ}
	master.Capacity = master.OccupiedCapacity(0)
	t.AddOutput(master, nil)
	m.prepare(t)
	return nil
}

// AddMatch consumes o and appends its state after match, refusing any state
// that would not validate against o.
func (m *Manager) AddMatch(t *tx.Transaction, o *Order, match Match) error {
	next, err := o.Matched(match)
	if err != nil {
		return err
	}
	if err := Validate(o, next); err != nil {
		return err
	}
	if err := t.AddInput(o.Cell, 0); err != nil {
		return err
	}
	t.AddOutput(next.Cell.Output, next.Cell.Data)
	m.prepare(t)
	return nil
}

// Group is a live order together with its master and the order as minted.
type Group struct {
	Master cell.Cell
	Order  *Order
	Origin *Order
}

// IsOwnedBy reports whether lock controls the master.
func (g *Group) IsOwnedBy(lock cell.Script) bool {
	return g.Master.Lock().Equal(lock)
}

// Melt cancels orders, consuming each order with its master.
func (m *Manager) Melt(t *tx.Transaction, groups []*Group) error {
	if len(groups) == 0 {
		return nil
	}
	for _, g := range groups {
		if err := t.AddInput(g.Order.Cell, 0); err != nil {
			return err
		}
		if err := t.AddInput(g.Master, 0); err != nil {
			return err
		}
	}
	m.prepare(t)
	return nil
}

// FindOrders streams every live order lineage: live order cells are grouped
// by master, each master's minting transaction supplies the origin, and the
// best valid descendant among the grouped cells is the live order.
func (m *Manager) FindOrders(ctx context.Context, client tx.Client) iter.Seq2[*Group, error] {
	return func(yield func(*Group, error) bool) {
		udt := m.udt.Script()
		key := tx.SearchKey{
			Script:     m.info.Script,
			ScriptType: tx.ScriptTypeLock,
			Filter:     &tx.SearchFilter{Script: &udt, OutputDataLen: &[2]uint64{DataSize, DataSize + 1}},
			WithData:   true,
		}
		byMaster := make(map[cell.OutPoint][]*Order)
		for c, err := range client.FindCells(ctx, key, tx.OrderAsc, 0) {
			if err != nil {
				yield(nil, err)
				return
			}
			o, err := m.NewOrder(c)
			if err != nil {
				continue
			}
			if mop, ok := o.MasterOutPoint(); ok {
				byMaster[mop] = append(byMaster[mop], o)
			}
		}
		if len(byMaster) == 0 {
			return
		}

		masterKey := tx.SearchKey{Script: m.info.Script, ScriptType: tx.ScriptTypeType, WithData: true}
		for master, err := range client.FindCells(ctx, masterKey, tx.OrderAsc, 0) {
			if err != nil {
				yield(nil, err)
				return
			}
			candidates := byMaster[*master.OutPoint]
			if len(candidates) == 0 {
				continue
			}
			origin, err := m.origin(ctx, client, *master.OutPoint)
			if errors.Is(err, ErrInvalidOrder) {
				continue
			}
			if err != nil {
				yield(nil, err)
				return
			}
			o, err := Resolve(origin, candidates)
			if err != nil {
				continue
			}
			if !yield(&Group{Master: master, Order: o, Origin: origin}, nil) {
				return
			}
		}
	}
}

// origin finds the order minted together with the master at op.
func (m *Manager) origin(ctx context.Context, client tx.Client, op cell.OutPoint) (*Order, error) {
	rec, err := client.GetTransaction(ctx, op.TxHash)
	if err != nil {
		return nil, fmt.Errorf("fetching minting transaction %s: %w", op.TxHash, err)
	}
	for i := range rec.Outputs {
		c, _ := rec.Cell(uint32(i))
		if !m.IsOrder(c) {
			continue
		}
		o, err := newOrder(c)
		if err != nil {
			continue
		}
		if mop, ok := o.MasterOutPoint(); ok && o.IsFresh() && mop == op {
			return o, nil
		}
	}
	return nil, invalid("no origin order for master %s", op)
}
