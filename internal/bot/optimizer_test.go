package bot

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
	"github.com/LeJamon/goickb/internal/core/dao"
	"github.com/LeJamon/goickb/internal/core/ickb"
	"github.com/LeJamon/goickb/internal/core/order"
	"github.com/LeJamon/goickb/internal/core/tx"
	jtx "github.com/LeJamon/goickb/internal/testing"
)

// createOrder commits an order and its master cell owned by owner.
func createOrder(t *testing.T, env *jtx.TestEnv, im *ickb.Manager, om *order.Manager, owner *jtx.Account, data order.Data, ckb uint64) {
	t.Helper()
	encoded, err := data.Encode()
	require.NoError(t, err)
	udt := im.UdtScript()
	orderScript := om.Script()
	o := cell.Output{Lock: orderScript, Type: &udt}
	o.Capacity = o.OccupiedCapacity(len(encoded)) + ckbamount.FromCKB(ckb)
	m := cell.Output{Lock: owner.Lock, Type: &orderScript}
	m.Capacity = m.OccupiedCapacity(0)
	env.Create([]cell.Output{o, m}, [][]byte{encoded, nil})
}

func TestOptimizeBothDirections(t *testing.T) {
	env := jtx.NewTestEnv(t)
	d := env.Deployment()
	im := ickb.NewManager(d, dao.NewManager(d.DAO))
	om := order.NewManager(d.Order, im.Handler())
	bob, alice := jtx.NewAccount("bob"), jtx.NewAccount("alice")

	env.Fund(bob, 10_000)
	out, data, err := im.Handler().ChangeOutput(bob.Lock, big.NewInt(2_000*100_000_000))
	require.NoError(t, err)
	env.CreateCell(out, data)

	// One order sells 1000 CKB at two CKB per iCKB, the other sells
	// 1000 iCKB at two iCKB per CKB. Both favor the bot at every depth.
	createOrder(t, env, im, om, alice, order.Data{
		UdtAmount: new(big.Int),
		Master:    order.RelativeMaster{Distance: 1},
		Info:      order.Info{CkbToUdt: order.Ratio{CkbScale: 1, UdtScale: 2}},
	}, 1_000)
	createOrder(t, env, im, om, alice, order.Data{
		UdtAmount: big.NewInt(1_000 * 100_000_000),
		Master:    order.RelativeMaster{Distance: 1},
		Info:      order.Info{UdtToCkb: order.Ratio{CkbScale: 2, UdtScale: 1}},
	}, 0)

	cfg := DefaultConfig()
	cfg.MinUdt = new(big.Int)
	cfg.MaxUdt = big.NewInt(10 * ickb.SoftCap)
	cfg.CkbAllowanceStep = ckbamount.FromCKB(100)
	b, err := New(env, bob.Signer(), im, om, cfg)
	require.NoError(t, err)

	ctx := context.Background()
	s, err := b.fetchState(ctx)
	require.NoError(t, err)
	base, matchable := b.baseStep(s, newRecord(time.Now()))
	require.Len(t, matchable, 2)
	root := tx.New()
	require.NoError(t, base(root))

	o := b.newOptimizer(ctx, s, root, base, matchable)
	require.Greater(t, len(o.ckb2udt), 2)
	require.Greater(t, len(o.udt2ckb), 2)

	best := o.optimize()
	require.True(t, best.ok, "%v", best.err)
	assert.Equal(t, len(o.ckb2udt)-1, best.i)
	assert.Equal(t, len(o.udt2ckb)-1, best.j)
	assert.Equal(t, 2, best.matched)
	assert.Positive(t, best.score.Sign())
	assert.Zero(t, best.deposits)
	assert.Zero(t, best.withdrawalRequests)

	for key, c := range o.memo {
		assert.Equal(t, key, [2]int{c.i, c.j})
		if c.ok {
			assert.LessOrEqual(t, c.score.Cmp(best.score), 0, "point %v", key)
		}
	}
	// The climb never scans the whole lattice.
	visited := len(o.memo)
	assert.Less(t, visited, len(o.ckb2udt)*len(o.udt2ckb))

	// Climbing again is answered entirely from the memo.
	assert.Same(t, best, o.optimize())
	assert.Same(t, o.memo[[2]int{0, 0}], o.eval(0, 0))
	assert.Same(t, o.memo[[2]int{1, 1}], o.eval(1, 1))
	assert.Equal(t, visited, len(o.memo))
}
