package bot

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
	"github.com/LeJamon/goickb/internal/core/dao"
	"github.com/LeJamon/goickb/internal/core/ickb"
	"github.com/LeJamon/goickb/internal/core/order"
	jtx "github.com/LeJamon/goickb/internal/testing"
)

var testOrders = func() *order.Manager {
	d := jtx.TestDeployment()
	im := ickb.NewManager(d, dao.NewManager(d.DAO))
	return order.NewManager(d.Order, im.Handler())
}()

// ckb2udtGroup builds an order offering ckb unoccupied CKB at c.
func ckb2udtGroup(t *testing.T, id byte, ckb uint64, c order.Ratio) *order.Group {
	t.Helper()
	data, err := order.Data{
		UdtAmount: new(big.Int),
		Master:    order.RelativeMaster{Distance: 1},
		Info:      order.Info{CkbToUdt: c},
	}.Encode()
	require.NoError(t, err)
	d := jtx.TestDeployment()
	udt := ickb.NewManager(d, dao.NewManager(d.DAO)).UdtScript()
	out := cell.Output{Lock: testOrders.Script(), Type: &udt}
	out.Capacity = out.OccupiedCapacity(len(data)) + ckbamount.FromCKB(ckb)
	op := cell.OutPoint{TxHash: cell.Hash{id}}
	o, err := testOrders.NewOrder(cell.New(out, data, &op))
	require.NoError(t, err)
	return &order.Group{Order: o}
}

func TestSortOrdersBestPriceFirst(t *testing.T) {
	cheap := ckb2udtGroup(t, 1, 100, order.Ratio{CkbScale: 1, UdtScale: 2})
	fair := ckb2udtGroup(t, 2, 100, order.Ratio{CkbScale: 1, UdtScale: 1})
	dear := ckb2udtGroup(t, 3, 100, order.Ratio{CkbScale: 2, UdtScale: 1})

	sorted := sortOrders([]*order.Group{dear, fair, cheap}, true)
	assert.Equal(t, []*order.Group{cheap, fair, dear}, sorted)
	assert.Empty(t, sortOrders([]*order.Group{dear, fair, cheap}, false))
}

func TestSortOrdersTiesAreStable(t *testing.T) {
	r := order.Ratio{CkbScale: 3, UdtScale: 3}
	small := ckb2udtGroup(t, 1, 100, r)
	large := ckb2udtGroup(t, 2, 500, order.Ratio{CkbScale: 1, UdtScale: 1})
	twin := ckb2udtGroup(t, 3, 100, r)

	sorted := sortOrders([]*order.Group{small, twin, large}, true)
	require.Len(t, sorted, 3)
	assert.Same(t, large, sorted[0])
	assert.Same(t, small, sorted[1])
	assert.Same(t, twin, sorted[2])
}

func TestPartialsFrom(t *testing.T) {
	r := order.Ratio{CkbScale: 1, UdtScale: 1}
	a := ckb2udtGroup(t, 1, 250, r)
	b := ckb2udtGroup(t, 2, 100, r)
	step := ckbamount.FromCKB(100).Big()

	partials := partialsFrom([]*order.Group{a, b}, true, step, 100)
	// a fills in 100, 200 and then 250; b in a single fulfilling step.
	require.Len(t, partials, 5)
	assert.Empty(t, partials[0].fills)
	assert.Zero(t, partials[0].ckbGain.Sign())

	for i, want := range []int{1, 1, 1, 2} {
		assert.Len(t, partials[i+1].fills, want, "partial %d", i+1)
	}
	assert.Same(t, a, partials[3].fills[0].group)
	assert.True(t, partials[3].fills[0].match.IsFulfilled)
	assert.Same(t, b, partials[4].fills[1].group)

	gain := ckbamount.FromCKB(350).Big()
	assert.Equal(t, 0, gain.Cmp(partials[4].ckbGain))
	assert.Equal(t, 0, new(big.Int).Neg(gain).Cmp(partials[4].udtGain))
}

func TestPartialsFromLimit(t *testing.T) {
	a := ckb2udtGroup(t, 1, 1_000, order.Ratio{CkbScale: 1, UdtScale: 1})
	partials := partialsFrom([]*order.Group{a}, true, ckbamount.FromCKB(1).Big(), 7)
	assert.Len(t, partials, 8)
}

func TestPartialsFromSkipsMinMatch(t *testing.T) {
	data, err := order.Data{
		UdtAmount: new(big.Int),
		Master:    order.RelativeMaster{Distance: 1},
		// Partial fills must move at least 2^40 shannons.
		Info: order.Info{CkbToUdt: order.Ratio{CkbScale: 1, UdtScale: 1}, CkbMinMatchLog: 40},
	}.Encode()
	require.NoError(t, err)
	d := jtx.TestDeployment()
	udt := ickb.NewManager(d, dao.NewManager(d.DAO)).UdtScript()
	out := cell.Output{Lock: testOrders.Script(), Type: &udt}
	out.Capacity = out.OccupiedCapacity(len(data)) + ckbamount.FromCKB(100_000)
	o, err := testOrders.NewOrder(cell.New(out, data, &cell.OutPoint{}))
	require.NoError(t, err)
	picky := &order.Group{Order: o}
	easy := ckb2udtGroup(t, 2, 100, order.Ratio{CkbScale: 1, UdtScale: 1})

	partials := partialsFrom([]*order.Group{picky, easy}, true, ckbamount.FromCKB(100).Big(), 100)
	require.Len(t, partials, 2)
	assert.Same(t, easy, partials[1].fills[0].group)
}

func TestPartialGainsAreIndependent(t *testing.T) {
	a := ckb2udtGroup(t, 1, 300, order.Ratio{CkbScale: 1, UdtScale: 1})
	partials := partialsFrom([]*order.Group{a}, true, ckbamount.FromCKB(100).Big(), 100)
	require.Len(t, partials, 4)
	assert.Equal(t, 0, ckbamount.FromCKB(100).Big().Cmp(partials[1].ckbGain))
	assert.Equal(t, 0, ckbamount.FromCKB(200).Big().Cmp(partials[2].ckbGain))
	assert.Zero(t, partials[0].ckbGain.Sign())
}
