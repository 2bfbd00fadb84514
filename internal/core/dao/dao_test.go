package dao_test

import (
	"context"
	"encoding/binary"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
	"github.com/LeJamon/goickb/internal/core/dao"
	"github.com/LeJamon/goickb/internal/core/tx"
	jtx "github.com/LeJamon/goickb/internal/testing"
)

func depositCell(env *jtx.TestEnv, m *dao.Manager, lock cell.Script, ckb uint64) cell.Cell {
	typ := m.Script()
	return env.CreateCell(cell.Output{Capacity: ckbamount.FromCKB(ckb), Lock: lock, Type: &typ}, dao.DepositData())
}

func collect[T any](t *testing.T, seq iter.Seq2[T, error]) []T {
	t.Helper()
	var out []T
	for v, err := range seq {
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func TestClassification(t *testing.T) {
	env := jtx.NewTestEnv(t)
	alice := jtx.NewAccount("alice")
	m := dao.NewManager(env.Deployment().DAO)
	typ := m.Script()

	deposit := cell.Cell{Output: cell.Output{Lock: alice.Lock, Type: &typ}, Data: dao.DepositData()}
	request := cell.Cell{Output: cell.Output{Lock: alice.Lock, Type: &typ}, Data: dao.EncodeRequestData(7)}
	plain := cell.Cell{Output: cell.Output{Lock: alice.Lock}, Data: dao.DepositData()}
	short := cell.Cell{Output: cell.Output{Lock: alice.Lock, Type: &typ}, Data: []byte{0}}

	assert.True(t, m.IsDeposit(deposit))
	assert.False(t, m.IsWithdrawalRequest(deposit))
	assert.True(t, m.IsWithdrawalRequest(request))
	assert.False(t, m.IsDeposit(request))
	assert.False(t, m.IsDeposit(plain))
	assert.False(t, m.IsDeposit(short))
	assert.False(t, m.IsWithdrawalRequest(short))
}

func TestDepositOutputsCap(t *testing.T) {
	env := jtx.NewTestEnv(t)
	alice := jtx.NewAccount("alice")
	m := dao.NewManager(env.Deployment().DAO)

	txn := tx.New()
	caps := make([]ckbamount.Shannons, dao.MaxOutputs)
	for i := range caps {
		caps[i] = ckbamount.FromCKB(1000)
	}
	require.NoError(t, m.Deposit(txn, caps, alice.Lock))
	assert.Len(t, txn.Outputs, dao.MaxOutputs)
	assert.Equal(t, env.Deployment().DAO.Deps, txn.CellDeps)
	assert.True(t, m.IsDeposit(txn.OutputCell(0)))

	err := m.Deposit(txn, caps[:1], alice.Lock)
	assert.ErrorIs(t, err, dao.ErrTooManyOutputs)
	assert.Len(t, txn.Outputs, dao.MaxOutputs)
}

func TestRequestWithdrawalRejects(t *testing.T) {
	env := jtx.NewTestEnv(t)
	alice := jtx.NewAccount("alice")
	m := dao.NewManager(env.Deployment().DAO)
	c := depositCell(env, m, alice.Lock, 1000)
	deposits := collect(t, m.FindDeposits(context.Background(), env, []cell.Script{alice.Lock}, dao.FindOptions{}))
	require.Len(t, deposits, 1)

	notDeposit := &dao.Deposit{Cell: env.Fund(alice, 100)}
	err := m.RequestWithdrawal(tx.New(), []*dao.Deposit{notDeposit}, alice.Lock, dao.Options{})
	assert.ErrorIs(t, err, dao.ErrNotADeposit)

	longer := env.Deployment().OwnedOwner.WithArgs(make([]byte, 40))
	txn := tx.New()
	err = m.RequestWithdrawal(txn, deposits, longer, dao.Options{SameSizeOnly: true})
	assert.ErrorIs(t, err, dao.ErrLockSizeMismatch)
	assert.Empty(t, txn.Inputs)

	require.NoError(t, m.RequestWithdrawal(txn, deposits, longer, dao.Options{}))
	require.Len(t, txn.Outputs, 1)
	assert.Equal(t, c.Capacity(), txn.Outputs[0].Capacity)
	n, err := dao.DecodeRequestData(txn.OutputsData[0])
	require.NoError(t, err)
	assert.Equal(t, deposits[0].Header.Number, n)
}

func TestRequestWithdrawalReadyOnly(t *testing.T) {
	env := jtx.NewTestEnv(t)
	alice := jtx.NewAccount("alice")
	m := dao.NewManager(env.Deployment().DAO, dao.WithReadyWindow(0))
	depositCell(env, m, alice.Lock, 1000)
	deposits := collect(t, m.FindDeposits(context.Background(), env, []cell.Script{alice.Lock}, dao.FindOptions{}))
	require.Len(t, deposits, 1)
	assert.False(t, deposits[0].IsReady)

	txn := tx.New()
	require.NoError(t, m.RequestWithdrawal(txn, deposits, alice.Lock, dao.Options{IsReadyOnly: true}))
	assert.Empty(t, txn.Inputs)
}

func TestRequestWithdrawalKeepsIndexes(t *testing.T) {
	env := jtx.NewTestEnv(t)
	alice := jtx.NewAccount("alice")
	m := dao.NewManager(env.Deployment().DAO)
	depositCell(env, m, alice.Lock, 1000)
	wallet := env.Fund(alice, 100)
	deposits := collect(t, m.FindDeposits(context.Background(), env, []cell.Script{alice.Lock}, dao.FindOptions{}))
	require.Len(t, deposits, 1)

	txn := tx.New()
	require.NoError(t, txn.AddInput(wallet, 0))
	err := m.RequestWithdrawal(txn, deposits, alice.Lock, dao.Options{})
	assert.ErrorIs(t, err, dao.ErrIndexMismatch)
	assert.Len(t, txn.Inputs, 1)
	assert.Empty(t, txn.Outputs)

	// Balanced prefixes are fine: the request lands at its deposit's index.
	txn.AddOutput(wallet.Output, nil)
	require.NoError(t, m.RequestWithdrawal(txn, deposits, alice.Lock, dao.Options{}))
	in, ok := txn.InputIndex(*deposits[0].Cell.OutPoint)
	require.True(t, ok)
	assert.Equal(t, 1, in)
	assert.True(t, m.IsWithdrawalRequest(txn.OutputCell(in)))
}

// Two equal deposits at different headers go through request and withdrawal.
func TestDepositLifecycle(t *testing.T) {
	env := jtx.NewTestEnv(t)
	alice := jtx.NewAccount("alice")
	m := dao.NewManager(env.Deployment().DAO)
	ctx := context.Background()

	depositCell(env, m, alice.Lock, 1000)
	depositCell(env, m, alice.Lock, 1000)
	env.Fund(alice, 500)

	deposits := collect(t, m.FindDeposits(ctx, env, []cell.Script{alice.Lock}, dao.FindOptions{}))
	require.Len(t, deposits, 2)
	assert.NotEqual(t, deposits[0].Header.Hash, deposits[1].Header.Hash)
	assert.Greater(t, deposits[0].Interest, deposits[1].Interest, "older deposit accrued more")

	req := tx.New()
	require.NoError(t, m.RequestWithdrawal(req, deposits, alice.Lock, dao.Options{SameSizeOnly: true}))
	assert.Len(t, req.HeaderDeps, 2)
	for _, c := range env.LiveCells(alice.Lock) {
		if c.Type() == nil {
			require.NoError(t, req.AddInput(c, 0))
		}
	}
	_, err := req.CompleteFee(ctx, env, alice.Signer(), ckbamount.DefaultFeeRate)
	require.NoError(t, err)
	env.Submit(req, alice)

	requests := collect(t, m.FindWithdrawalRequests(ctx, env, []cell.Script{alice.Lock}, dao.FindOptions{}))
	require.Len(t, requests, 2)
	assert.False(t, requests[0].IsReady)

	tip := env.AdvanceEpochs(dao.CycleLength + 1)
	requests = collect(t, m.FindWithdrawalRequests(ctx, env, []cell.Script{alice.Lock}, dao.FindOptions{Tip: &tip}))
	require.Len(t, requests, 2)

	w := tx.New()
	require.NoError(t, m.Withdraw(w, requests, dao.Options{IsReadyOnly: true}))
	require.Len(t, w.Inputs, 2)
	// Two deposit headers plus the shared request header.
	assert.Len(t, w.HeaderDeps, 3)

	var want ckbamount.Shannons
	for i, r := range requests {
		assert.True(t, r.IsReady)
		want += r.Cell.Capacity() + r.Interest
		assert.Equal(t, cell.AbsoluteEpochSince(r.Maturity), w.Inputs[i].Since)

		wa, err := w.WitnessArgsAt(i)
		require.NoError(t, err)
		idx := binary.LittleEndian.Uint64(wa.InputType)
		assert.Equal(t, r.DepositHeader.Hash, w.HeaderDeps[idx])
	}
	got, err := w.InputsCapacity(ctx, env)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Greater(t, got, ckbamount.FromCKB(2000))

	_, err = w.CompleteFee(ctx, env, alice.Signer(), ckbamount.DefaultFeeRate)
	require.NoError(t, err)
	wa, err := w.WitnessArgsAt(0)
	require.NoError(t, err)
	assert.NotNil(t, wa.InputType, "signer keeps the input type")
	env.Submit(w, alice)
	assert.Empty(t, collect(t, m.FindWithdrawalRequests(ctx, env, []cell.Script{alice.Lock}, dao.FindOptions{})))
}

func TestRequestWithdrawalSameBlockDedupesHeaders(t *testing.T) {
	env := jtx.NewTestEnv(t)
	alice := jtx.NewAccount("alice")
	m := dao.NewManager(env.Deployment().DAO)
	typ := m.Script()
	out := cell.Output{Capacity: ckbamount.FromCKB(1000), Lock: alice.Lock, Type: &typ}
	env.Create([]cell.Output{out, out}, [][]byte{dao.DepositData(), dao.DepositData()})

	deposits := collect(t, m.FindDeposits(context.Background(), env, []cell.Script{alice.Lock}, dao.FindOptions{}))
	require.Len(t, deposits, 2)
	txn := tx.New()
	require.NoError(t, m.RequestWithdrawal(txn, deposits, alice.Lock, dao.Options{}))
	assert.Len(t, txn.HeaderDeps, 1)
}

func TestWithdrawWitnessOccupied(t *testing.T) {
	env := jtx.NewTestEnv(t)
	alice := jtx.NewAccount("alice")
	m := dao.NewManager(env.Deployment().DAO)
	typ := m.Script()
	dh := env.Close()
	c := env.CreateCell(cell.Output{Capacity: ckbamount.FromCKB(1000), Lock: alice.Lock, Type: &typ}, dao.EncodeRequestData(dh.Number))
	rh := env.Tip()
	r, err := m.NewWithdrawalRequest(c, rh, dh, rh)
	require.NoError(t, err)

	txn := tx.New()
	txn.SetWitnessArgs(0, tx.WitnessArgs{InputType: []byte{1}})
	err = m.Withdraw(txn, []*dao.WithdrawalRequest{r}, dao.Options{})
	assert.ErrorIs(t, err, tx.ErrWitnessOccupied)
	assert.Empty(t, txn.Inputs)
}

func TestResolveCapacityChecksWitness(t *testing.T) {
	env := jtx.NewTestEnv(t)
	alice := jtx.NewAccount("alice")
	m := dao.NewManager(env.Deployment().DAO)
	typ := m.Script()
	dh := env.Close()
	other := env.Close()
	c := env.CreateCell(cell.Output{Capacity: ckbamount.FromCKB(1000), Lock: alice.Lock, Type: &typ}, dao.EncodeRequestData(dh.Number))
	rh := env.Tip()
	r, err := m.NewWithdrawalRequest(c, rh, dh, rh)
	require.NoError(t, err)

	txn := tx.New()
	require.NoError(t, m.Withdraw(txn, []*dao.WithdrawalRequest{r}, dao.Options{}))
	_, err = txn.InputsCapacity(context.Background(), env)
	require.NoError(t, err)

	txn.AddHeaderDeps(other)
	txn.SetWitnessArgs(0, tx.WitnessArgs{InputType: binary.LittleEndian.AppendUint64(nil, 2)})
	_, err = txn.InputsCapacity(context.Background(), env)
	assert.ErrorIs(t, err, dao.ErrDepositHeaderMismatch)

	missing := tx.New()
	require.NoError(t, missing.AddInput(c, 0))
	missing.AddCapacityResolver(m)
	_, err = missing.InputsCapacity(context.Background(), env)
	assert.ErrorIs(t, err, tx.ErrHeaderNotInDeps)
}
