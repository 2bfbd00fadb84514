package signer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
	"github.com/LeJamon/goickb/internal/core/tx"
	"github.com/LeJamon/goickb/internal/crypto"
	"github.com/LeJamon/goickb/internal/signer"
	jtx "github.com/LeJamon/goickb/internal/testing"
)

func TestLockFromKey(t *testing.T) {
	alice := jtx.NewAccount("alice")
	s, err := signer.New(crypto.NewSecretKeyWithCopy(alice.PrivateKey), jtx.TestDeployment().Secp256k1)
	require.NoError(t, err)
	args := crypto.CalcLockArgs(s.PublicKey())
	assert.Equal(t, args[:], s.Lock().Args)
	assert.True(t, s.Lock().Equal(alice.Lock))
}

func TestSignRecoversSigner(t *testing.T) {
	env := jtx.NewTestEnv(t)
	alice := jtx.NewAccount("alice")
	bob := jtx.NewAccount("bob")
	a1 := env.Fund(alice, 100)
	b1 := env.Fund(bob, 100)
	a2 := env.Fund(alice, 100)

	txn := tx.New()
	require.NoError(t, txn.AddInput(a1, 0))
	require.NoError(t, txn.AddInput(b1, 0))
	require.NoError(t, txn.AddInput(a2, 0))
	txn.AddOutput(cell.Output{Capacity: ckbamount.FromCKB(250), Lock: bob.Lock}, nil)

	s := alice.Signer()
	assert.ErrorIs(t, s.Sign(txn), signer.ErrNotPrepared)
	require.NoError(t, s.Prepare(txn))
	require.Len(t, txn.Witnesses, 3)
	assert.Contains(t, txn.CellDeps, jtx.TestDeployment().Secp256k1.Deps[0])

	size := txn.Size()
	require.NoError(t, s.Sign(txn))
	assert.Equal(t, size, txn.Size(), "placeholder must match the signature size")

	w, err := txn.WitnessArgsAt(0)
	require.NoError(t, err)
	// The message is computed over the zeroed placeholder.
	zeroed := txn.Clone()
	zeroed.SetWitnessArgs(0, tx.WitnessArgs{Lock: make([]byte, signer.SignatureSize)})
	msg := signer.SigHash(zeroed, []int{0, 2})
	pub, err := signer.Recover(w.Lock, msg[:])
	require.NoError(t, err)
	assert.Equal(t, alice.PublicKey, pub)
}

func TestPrepareWithoutInputs(t *testing.T) {
	env := jtx.NewTestEnv(t)
	bob := jtx.NewAccount("bob")
	txn := tx.New()
	require.NoError(t, txn.AddInput(env.Fund(bob, 100), 0))
	s := jtx.NewAccount("alice").Signer()
	require.NoError(t, s.Prepare(txn))
	require.NoError(t, s.Sign(txn))
	assert.Empty(t, txn.Witnesses)
	assert.Empty(t, txn.CellDeps)
}

func TestSignAfterFeeCompletion(t *testing.T) {
	env := jtx.NewTestEnv(t)
	alice := jtx.NewAccount("alice")
	txn := tx.New()
	require.NoError(t, txn.AddInput(env.Fund(alice, 1000), 0))
	_, err := txn.CompleteFee(context.Background(), env, alice.Signer(), ckbamount.DefaultFeeRate)
	require.NoError(t, err)
	env.Submit(txn, alice)
	assert.Len(t, env.Sent(), 1)
}
