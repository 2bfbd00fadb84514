package fund_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
	"github.com/LeJamon/goickb/internal/core/fund"
	"github.com/LeJamon/goickb/internal/core/tx"
	jtx "github.com/LeJamon/goickb/internal/testing"
)

func tokenHandler() *tx.UdtHandler {
	d := jtx.TestDeployment()
	return tx.NewUdtHandler(d.Xudt.WithArgs([]byte("token")), d.Xudt.Deps...)
}

func tokenCell(t *testing.T, env *jtx.TestEnv, h *tx.UdtHandler, lock cell.Script, amount int64) cell.Cell {
	out, data, err := h.ChangeOutput(lock, big.NewInt(amount))
	require.NoError(t, err)
	return env.CreateCell(out, data)
}

func TestFundCKB(t *testing.T) {
	env := jtx.NewTestEnv(t)
	alice := jtx.NewAccount("alice")
	bob := jtx.NewAccount("bob")
	ctx := context.Background()
	var cells []cell.Cell
	for i := 0; i < 5; i++ {
		cells = append(cells, env.Fund(alice, 100))
	}

	txn := tx.New()
	txn.AddOutput(cell.Output{Capacity: ckbamount.FromCKB(150), Lock: bob.Lock}, nil)
	ckb := fund.CKB(env, alice.Signer(), ckbamount.DefaultFeeRate, fund.Inputs(cells...))

	funded, err := fund.Fund(ctx, txn, []fund.Asset{ckb}, false, nil)
	require.NoError(t, err)
	assert.Len(t, txn.Inputs, 0, "the original is untouched")
	// 150 CKB plus a 61 CKB change cell needs three inputs.
	assert.Len(t, funded.Inputs, 3)
	assert.Len(t, funded.Outputs, 2)

	all, err := fund.Fund(ctx, txn, []fund.Asset{ckb}, true, nil)
	require.NoError(t, err)
	assert.Len(t, all.Inputs, 5)

	env.Submit(funded, alice)
	jtx.RequireBalance(t, env, bob.Lock, ckbamount.FromCKB(150))
}

func TestFundIsIdempotent(t *testing.T) {
	env := jtx.NewTestEnv(t)
	alice := jtx.NewAccount("alice")
	h := tokenHandler()
	ctx := context.Background()
	tokens := tokenCell(t, env, h, alice.Lock, 500)
	funds := env.Fund(alice, 1000)

	txn := tx.New()
	out, data, err := h.ChangeOutput(alice.Lock, big.NewInt(200))
	require.NoError(t, err)
	txn.AddOutput(out, data)

	assets := func() []fund.Asset {
		return []fund.Asset{
			fund.CKB(env, alice.Signer(), ckbamount.DefaultFeeRate, fund.Inputs(funds)),
			fund.UDT(env, h, alice.Lock, fund.Inputs(tokens)),
		}
	}
	funded, err := fund.Fund(ctx, txn, assets(), false, nil)
	require.NoError(t, err)

	again, err := fund.Fund(ctx, funded, []fund.Asset{
		fund.CKB(env, alice.Signer(), ckbamount.DefaultFeeRate, nil),
		fund.UDT(env, h, alice.Lock, nil),
	}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, funded.Serialize(), again.Serialize())

	for _, a := range assets() {
		d, err := a.GetDelta(ctx, again)
		require.NoError(t, err)
		assert.Zero(t, d.Sign(), a.Name)
	}
}

func TestFundNotEnoughFunds(t *testing.T) {
	env := jtx.NewTestEnv(t)
	alice := jtx.NewAccount("alice")
	bob := jtx.NewAccount("bob")
	h := tokenHandler()
	ctx := context.Background()
	tokens := tokenCell(t, env, h, alice.Lock, 100)
	funds := env.Fund(alice, 1000)

	t.Run("udt", func(t *testing.T) {
		txn := tx.New()
		out, data, err := h.ChangeOutput(bob.Lock, big.NewInt(101))
		require.NoError(t, err)
		txn.AddOutput(out, data)
		_, err = fund.Fund(ctx, txn, []fund.Asset{
			fund.CKB(env, alice.Signer(), ckbamount.DefaultFeeRate, fund.Inputs(funds)),
			fund.UDT(env, h, alice.Lock, fund.Inputs(tokens)),
		}, false, nil)
		require.ErrorIs(t, err, fund.ErrNotEnoughFunds)
		var nef *fund.NotEnoughFundsError
		require.ErrorAs(t, err, &nef)
		assert.Equal(t, h.Script().String(), nef.Asset)
	})

	t.Run("ckb", func(t *testing.T) {
		txn := tx.New()
		txn.AddOutput(cell.Output{Capacity: ckbamount.FromCKB(1000), Lock: bob.Lock}, nil)
		_, err := fund.Fund(ctx, txn, []fund.Asset{
			fund.CKB(env, alice.Signer(), ckbamount.DefaultFeeRate, fund.Inputs(funds)),
		}, true, nil)
		var nef *fund.NotEnoughFundsError
		require.ErrorAs(t, err, &nef)
		assert.Equal(t, fund.CKBName, nef.Asset)
	})
}

func TestFundMinChange(t *testing.T) {
	env := jtx.NewTestEnv(t)
	alice := jtx.NewAccount("alice")
	ctx := context.Background()
	small := env.Fund(alice, 100)
	large := env.Fund(alice, 1000)

	ckb := fund.CKB(env, alice.Signer(), ckbamount.DefaultFeeRate, fund.Inputs(small, large))
	funded, err := fund.Fund(ctx, tx.New(), []fund.Asset{ckb}, false, map[string]*big.Int{
		fund.CKBName: ckbamount.FromCKB(500).Big(),
	})
	require.NoError(t, err)
	assert.Len(t, funded.Inputs, 2)
}

func TestFundIncorrectChange(t *testing.T) {
	broken := fund.Asset{
		Name:      "broken",
		GetDelta:  func(context.Context, *tx.Transaction) (*big.Int, error) { return big.NewInt(1), nil },
		AddChange: func(context.Context, *tx.Transaction) (*big.Int, error) { return new(big.Int), nil },
	}
	_, err := fund.Fund(context.Background(), tx.New(), []fund.Asset{broken}, false, nil)
	var ice *fund.IncorrectChangeError
	require.ErrorAs(t, err, &ice)
	assert.ErrorIs(t, err, fund.ErrIncorrectChange)
	assert.Equal(t, "broken", ice.Asset)
}

func TestFundOutputsCap(t *testing.T) {
	env := jtx.NewTestEnv(t)
	alice := jtx.NewAccount("alice")
	txn := tx.New()
	txn.LimitOutputs(2)
	txn.AddOutput(cell.Output{Capacity: ckbamount.FromCKB(61), Lock: alice.Lock}, nil)
	txn.AddOutput(cell.Output{Capacity: ckbamount.FromCKB(61), Lock: alice.Lock}, nil)
	ckb := fund.CKB(env, alice.Signer(), ckbamount.DefaultFeeRate, fund.Inputs(env.Fund(alice, 1000)))
	_, err := fund.Fund(context.Background(), txn, []fund.Asset{ckb}, false, nil)
	assert.ErrorIs(t, err, tx.ErrTooManyOutputs)
}
