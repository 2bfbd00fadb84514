package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
	"github.com/LeJamon/goickb/internal/core/tx"
)

// RequireBalance asserts the live capacity held by lock.
func RequireBalance(t *testing.T, env *TestEnv, lock cell.Script, expected ckbamount.Shannons) {
	t.Helper()
	actual := env.Balance(lock)
	require.Equal(t, expected, actual, "balance mismatch: expected %s, got %s", expected, actual)
}

// RequireLive asserts that every cell is still unspent.
func RequireLive(t *testing.T, env *TestEnv, cells ...cell.Cell) {
	t.Helper()
	for _, c := range cells {
		require.NotNil(t, c.OutPoint, "cell is not committed")
		require.True(t, env.IsLive(*c.OutPoint), "cell %s was spent", c.OutPoint)
	}
}

// RequireSpent asserts that every cell has been consumed.
func RequireSpent(t *testing.T, env *TestEnv, cells ...cell.Cell) {
	t.Helper()
	for _, c := range cells {
		require.NotNil(t, c.OutPoint, "cell is not committed")
		require.False(t, env.IsLive(*c.OutPoint), "cell %s is still live", c.OutPoint)
	}
}

// RequireFee asserts that inputs minus outputs equals fee.
func RequireFee(t *testing.T, env *TestEnv, txn *tx.Transaction, fee ckbamount.Shannons) {
	t.Helper()
	in, err := txn.InputsCapacity(context.Background(), env)
	require.NoError(t, err)
	require.Equal(t, fee, in-txn.OutputsCapacity(), "fee mismatch")
}
