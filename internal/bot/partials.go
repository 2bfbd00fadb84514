package bot

import (
	"math/big"
	"slices"

	"github.com/LeJamon/goickb/internal/core/order"
)

// fill is one order matched to some depth.
type fill struct {
	group *order.Group
	match order.Match
}

// partial is the set of fills realizing one lattice coordinate, with the
// CKB and iCKB they release to the bot.
type partial struct {
	fills   []fill
	ckbGain *big.Int
	udtGain *big.Int
}

func emptyPartial() partial {
	return partial{ckbGain: new(big.Int), udtGain: new(big.Int)}
}

func (p partial) with(f fill) partial {
	return partial{
		fills:   append(slices.Clip(p.fills), f),
		ckbGain: new(big.Int).Add(p.ckbGain, f.match.CkbDelta),
		udtGain: new(big.Int).Add(p.udtGain, f.match.UdtDelta),
	}
}

// directionScales returns the scale of what an order gives and of what it
// takes when matched in the given direction.
func directionScales(o *order.Order, isCkb2Udt bool) (give, take *big.Int) {
	if isCkb2Udt {
		r := o.Info.CkbToUdt
		return new(big.Int).SetUint64(r.CkbScale), new(big.Int).SetUint64(r.UdtScale)
	}
	r := o.Info.UdtToCkb
	return new(big.Int).SetUint64(r.UdtScale), new(big.Int).SetUint64(r.CkbScale)
}

func remaining(o *order.Order, isCkb2Udt bool) *big.Int {
	if isCkb2Udt {
		return o.CkbUnoccupied
	}
	return o.UdtAmount
}

// sortOrders keeps the orders matchable in the given direction, best price
// first. The price is what the bot pays per unit received, so lower is
// better; ties go to the larger remaining size, then to encounter order.
func sortOrders(groups []*order.Group, isCkb2Udt bool) []*order.Group {
	var out []*order.Group
	for _, g := range groups {
		if g.Order.IsMatchable(isCkb2Udt) {
			out = append(out, g)
		}
	}
	slices.SortStableFunc(out, func(a, b *order.Group) int {
		ag, at := directionScales(a.Order, isCkb2Udt)
		bg, bt := directionScales(b.Order, isCkb2Udt)
		// ag/at vs bg/bt
		if c := new(big.Int).Mul(ag, bt).Cmp(new(big.Int).Mul(bg, at)); c != 0 {
			return c
		}
		return remaining(b.Order, isCkb2Udt).Cmp(remaining(a.Order, isCkb2Udt))
	})
	return out
}

// partialsFrom lists, for each lattice index, the fills reached after that
// many allowance steps across groups in order. Index 0 matches nothing. A
// deeper fill of an order replaces its shallower one; once an order is
// fulfilled the next order starts from its last fill. Orders whose first
// fill cannot clear their minimum match are skipped. At most limit steps
// are taken.
func partialsFrom(groups []*order.Group, isCkb2Udt bool, step *big.Int, limit int) []partial {
	res := []partial{emptyPartial()}
	for _, g := range groups {
		base := res[len(res)-1]
		for m := range g.Order.Match(isCkb2Udt, step) {
			if len(res) > limit {
				return res
			}
			res = append(res, base.with(fill{group: g, match: m}))
		}
	}
	return res
}
