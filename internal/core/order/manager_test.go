package order_test

import (
	"context"
	"iter"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
	"github.com/LeJamon/goickb/internal/core/fund"
	"github.com/LeJamon/goickb/internal/core/order"
	"github.com/LeJamon/goickb/internal/core/tx"
	jtx "github.com/LeJamon/goickb/internal/testing"
)

func collect[T any](t *testing.T, seq iter.Seq2[T, error]) []T {
	t.Helper()
	var out []T
	for v, err := range seq {
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

type book struct {
	env *jtx.TestEnv
	udt *tx.UdtHandler
	m   *order.Manager
}

func newBook(t *testing.T) *book {
	env := jtx.NewTestEnv(t)
	d := env.Deployment()
	udt := tx.NewUdtHandler(d.Xudt.WithArgs([]byte("token")), d.Xudt.Deps...)
	return &book{env: env, udt: udt, m: order.NewManager(d.Order, udt)}
}

func (b *book) submit(t *testing.T, txn *tx.Transaction, acc *jtx.Account, udtFunds ...cell.Cell) {
	t.Helper()
	funds := b.env.Fund(acc, 2_000)
	assets := []fund.Asset{
		fund.CKB(b.env, acc.Signer(), ckbamount.DefaultFeeRate, fund.Inputs(funds)),
		fund.UDT(b.env, b.udt, acc.Lock, fund.Inputs(udtFunds...)),
	}
	funded, err := fund.Fund(context.Background(), txn, assets, false, nil)
	require.NoError(t, err)
	b.env.Submit(funded, acc)
}

func (b *book) tokens(t *testing.T, lock cell.Script) *big.Int {
	t.Helper()
	sum := new(big.Int)
	for _, c := range b.env.LiveCells(lock) {
		if c.HasType(b.udt.Script()) {
			v, err := tx.DecodeUdtAmount(c.Data)
			require.NoError(t, err)
			sum.Add(sum, v)
		}
	}
	return sum
}

func TestMintLayout(t *testing.T) {
	b := newBook(t)
	alice := jtx.NewAccount("alice")
	info := order.Info{CkbToUdt: order.Ratio{CkbScale: 1, UdtScale: 1}}

	txn := tx.New()
	require.NoError(t, b.m.Mint(txn, alice.Lock, info, ckbamount.FromCKB(1000), big.NewInt(0)))
	require.Len(t, txn.Outputs, 2)
	orderCell := txn.OutputCell(0)
	assert.True(t, b.m.IsOrder(orderCell))
	assert.Equal(t, ckbamount.FromCKB(1000), orderCell.FreeCapacity())
	d, err := order.DecodeData(orderCell.Data)
	require.NoError(t, err)
	assert.Equal(t, order.RelativeMaster{Distance: 1}, d.Master)

	master := txn.OutputCell(1)
	assert.True(t, b.m.IsMaster(master))
	assert.True(t, master.Lock().Equal(alice.Lock))
	assert.Empty(t, master.Data)

	err = b.m.Mint(tx.New(), alice.Lock, order.Info{}, ckbamount.FromCKB(1), big.NewInt(0))
	assert.ErrorIs(t, err, order.ErrInvalidOrder)
}

func TestOrderLifecycle(t *testing.T) {
	b := newBook(t)
	ctx := context.Background()
	alice := jtx.NewAccount("alice")
	bob := jtx.NewAccount("bob")
	info := order.Info{CkbToUdt: order.Ratio{CkbScale: 1, UdtScale: 1}, CkbMinMatchLog: 20}

	txn := tx.New()
	require.NoError(t, b.m.Mint(txn, alice.Lock, info, ckbamount.FromCKB(1000), big.NewInt(0)))
	b.submit(t, txn, alice)

	groups := collect(t, b.m.FindOrders(ctx, b.env))
	require.Len(t, groups, 1)
	g := groups[0]
	assert.True(t, g.IsOwnedBy(alice.Lock))
	assert.False(t, g.IsOwnedBy(bob.Lock))
	assert.Equal(t, g.Origin.Cell.OutPoint, g.Order.Cell.OutPoint)
	assert.True(t, g.Order.IsFresh())

	// Bob buys 100 CKB worth with his tokens.
	out, data, err := b.udt.ChangeOutput(bob.Lock, ckbamount.FromCKB(500).Big())
	require.NoError(t, err)
	bobTokens := b.env.CreateCell(out, data)

	var match order.Match
	for m := range g.Order.Match(true, ckbamount.FromCKB(100).Big()) {
		match = m
		break
	}
	require.False(t, match.IsFulfilled)
	txn = tx.New()
	require.NoError(t, b.m.AddMatch(txn, g.Order, match))
	b.submit(t, txn, bob, bobTokens)
	assert.Equal(t, ckbamount.FromCKB(400).Big(), b.tokens(t, bob.Lock))

	groups = collect(t, b.m.FindOrders(ctx, b.env))
	require.Len(t, groups, 1)
	g = groups[0]
	assert.False(t, g.Order.IsFresh())
	assert.Equal(t, ckbamount.FromCKB(100).Big(), g.Order.UdtAmount)
	assert.True(t, g.Origin.IsFresh())
	require.NoError(t, order.Validate(g.Origin, g.Order))

	// Alice cancels and collects the tokens.
	txn = tx.New()
	require.NoError(t, b.m.Melt(txn, []*order.Group{g}))
	require.Len(t, txn.Inputs, 2)
	b.submit(t, txn, alice)
	jtx.RequireSpent(t, b.env, g.Order.Cell, g.Master)
	assert.Equal(t, ckbamount.FromCKB(100).Big(), b.tokens(t, alice.Lock))
	assert.Empty(t, collect(t, b.m.FindOrders(ctx, b.env)))
}

func TestAddMatchRejectsValueLoss(t *testing.T) {
	b := newBook(t)
	alice := jtx.NewAccount("alice")
	info := order.Info{CkbToUdt: order.Ratio{CkbScale: 1, UdtScale: 1}}
	txn := tx.New()
	require.NoError(t, b.m.Mint(txn, alice.Lock, info, ckbamount.FromCKB(1000), big.NewInt(0)))
	b.submit(t, txn, alice)

	groups := collect(t, b.m.FindOrders(context.Background(), b.env))
	require.Len(t, groups, 1)
	o := groups[0].Order

	steal := order.Match{CkbOut: o.Cell.OccupiedCapacity(), UdtOut: big.NewInt(1)}
	txn = tx.New()
	err := b.m.AddMatch(txn, o, steal)
	assert.ErrorIs(t, err, order.ErrValueDecreased)
	assert.Empty(t, txn.Inputs)
	assert.Empty(t, txn.Outputs)
}

func TestFindOrdersSkipsMalformed(t *testing.T) {
	b := newBook(t)
	alice := jtx.NewAccount("alice")
	typ := b.udt.Script()
	garbage := make([]byte, order.DataSize)
	garbage[16] = 7
	b.env.CreateCell(cell.Output{Capacity: ckbamount.FromCKB(300), Lock: b.m.Script(), Type: &typ}, garbage)

	// A well formed order whose master was never created.
	info := order.Info{UdtToCkb: order.Ratio{CkbScale: 1, UdtScale: 1}}
	data, err := order.Data{UdtAmount: big.NewInt(10), Master: order.RelativeMaster{Distance: 5}, Info: info}.Encode()
	require.NoError(t, err)
	b.env.CreateCell(cell.Output{Capacity: ckbamount.FromCKB(300), Lock: b.m.Script(), Type: &typ}, data)

	txn := tx.New()
	require.NoError(t, b.m.Mint(txn, alice.Lock, info, 0, big.NewInt(50)))
	out, tokenData, err := b.udt.ChangeOutput(alice.Lock, big.NewInt(50))
	require.NoError(t, err)
	b.submit(t, txn, alice, b.env.CreateCell(out, tokenData))

	groups := collect(t, b.m.FindOrders(context.Background(), b.env))
	require.Len(t, groups, 1)
	assert.Equal(t, big.NewInt(50), groups[0].Order.UdtAmount)
}
