// Package order implements limit orders: the order cell codec, order
// valuation, the partial fill sequence and the lineage checks that keep a
// chain of matches from ever losing value for the order holder.
package order

import (
	"errors"
	"fmt"
	"iter"
	"math/big"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
)

var (
	ErrLockChanged       = errors.New("order lock changed")
	ErrTypeChanged       = errors.New("order type changed")
	ErrInfoChanged       = errors.New("order info changed")
	ErrMasterChanged     = errors.New("order master changed")
	ErrValueDecreased    = errors.New("order value decreased")
	ErrProgressDecreased = errors.New("order progress decreased")

	// ErrNoDescendant indicates that no live order continues a lineage.
	ErrNoDescendant = errors.New("no valid order descendant")
)

// Order is a decoded order cell with its value fields.
type Order struct {
	Cell cell.Cell
	Data

	CkbUnoccupied *big.Int

	// AbsTotal and AbsProgress never decrease along a valid match chain.
	AbsTotal    *big.Int
	AbsProgress *big.Int
}

// newOrder decodes c and computes its value fields.
func newOrder(c cell.Cell) (*Order, error) {
	d, err := DecodeData(c.Data)
	if err != nil {
		return nil, err
	}
	occupied := c.OccupiedCapacity()
	if c.Capacity() < occupied {
		return nil, invalid("capacity %s below occupied %s", c.Capacity(), occupied)
	}
	o := &Order{Cell: c, Data: d, CkbUnoccupied: u64(uint64(c.Capacity() - occupied))}
	o.AbsTotal, o.AbsProgress = values(o.CkbUnoccupied, d.UdtAmount, d.Info)
	return o, nil
}

func values(ckb, udt *big.Int, info Info) (total, progress *big.Int) {
	c, u := info.CkbToUdt, info.UdtToCkb
	c2u := func() *big.Int {
		v := new(big.Int).Mul(ckb, u64(c.CkbScale))
		return v.Add(v, new(big.Int).Mul(udt, u64(c.UdtScale)))
	}
	u2c := func() *big.Int {
		v := new(big.Int).Mul(ckb, u64(u.CkbScale))
		return v.Add(v, new(big.Int).Mul(udt, u64(u.UdtScale)))
	}
	switch {
	case info.IsDualRatio():
		total = new(big.Int).Mul(c2u(), u64(u.CkbScale))
		total.Add(total, new(big.Int).Mul(u2c(), u64(c.CkbScale)))
		total.Rsh(total, 1)
		return total, new(big.Int).Set(total)
	case info.IsCkb2Udt():
		return c2u(), new(big.Int).Mul(udt, u64(c.UdtScale))
	default:
		return u2c(), new(big.Int).Mul(ckb, u64(u.CkbScale))
	}
}

// MasterOutPoint resolves the master cell. Relative masters of uncommitted
// orders cannot be resolved.
func (o *Order) MasterOutPoint() (cell.OutPoint, bool) {
	switch m := o.Master.(type) {
	case AbsoluteMaster:
		return m.Point, true
	case RelativeMaster:
		if o.Cell.OutPoint == nil {
			return cell.OutPoint{}, false
		}
		return m.OutPoint(*o.Cell.OutPoint), true
	}
	return cell.OutPoint{}, false
}

// IsFresh reports whether the order has never been matched.
func (o *Order) IsFresh() bool {
	_, ok := o.Master.(RelativeMaster)
	return ok
}

// IsMatchable reports whether the order can still move in the given direction.
func (o *Order) IsMatchable(isCkb2Udt bool) bool {
	if isCkb2Udt {
		return o.Info.IsCkb2Udt() && o.CkbUnoccupied.Sign() > 0
	}
	return o.Info.IsUdt2Ckb() && o.UdtAmount.Sign() > 0
}

// IsFulfilled reports whether the order cannot be matched any further.
func (o *Order) IsFulfilled() bool {
	return !o.IsMatchable(true) && !o.IsMatchable(false)
}

// Match is one partial fill. Deltas flow from the order to the matcher and
// are negative for the asset the order receives.
type Match struct {
	CkbOut      ckbamount.Shannons
	UdtOut      *big.Int
	CkbDelta    *big.Int
	UdtDelta    *big.Int
	IsFulfilled bool
}

func ceilDiv(a, b *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(a, b, new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// Match yields increasingly large fills of the order in one direction. The
// amount the order receives grows by step each time and the amount it gives
// is the least keeping its value non-decreasing. When the first fill moves
// less CKB than the order's minimum match and does not fulfill it, nothing is
// yielded. The last fill clamps the order to its floor and is fulfilled.
func (o *Order) Match(isCkb2Udt bool, step *big.Int) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		if step.Sign() <= 0 || !o.IsMatchable(isCkb2Udt) {
			return
		}
		ckbIn := u64(uint64(o.Cell.Capacity()))
		var aScale, bScale, aIn, bIn, aMin *big.Int
		if isCkb2Udt {
			r := o.Info.CkbToUdt
			aScale, bScale = u64(r.CkbScale), u64(r.UdtScale)
			aIn, bIn, aMin = ckbIn, o.UdtAmount, u64(uint64(o.Cell.OccupiedCapacity()))
		} else {
			r := o.Info.UdtToCkb
			aScale, bScale = u64(r.UdtScale), u64(r.CkbScale)
			aIn, bIn, aMin = o.UdtAmount, ckbIn, new(big.Int)
		}
		value := new(big.Int).Mul(aScale, aIn)
		value.Add(value, new(big.Int).Mul(bScale, bIn))
		floor := new(big.Int).Mul(aScale, aMin)
		minMatch := o.Info.CkbMinMatch()

		bOut := new(big.Int).Set(bIn)
		for first := true; ; first = false {
			bOut = new(big.Int).Add(bOut, step)
			rest := new(big.Int).Sub(value, new(big.Int).Mul(bScale, bOut))
			if rest.Cmp(floor) <= 0 {
				bOut = ceilDiv(new(big.Int).Sub(value, floor), bScale)
				if m, ok := o.newMatch(isCkb2Udt, aMin, bOut, true); ok {
					yield(m)
				}
				return
			}
			m, ok := o.newMatch(isCkb2Udt, ceilDiv(rest, aScale), bOut, false)
			if !ok {
				return
			}
			if first && new(big.Int).Abs(m.CkbDelta).Cmp(minMatch) < 0 {
				return
			}
			if !yield(m) {
				return
			}
		}
	}
}

func (o *Order) newMatch(isCkb2Udt bool, aOut, bOut *big.Int, fulfilled bool) (Match, bool) {
	ckbOut, udtOut := aOut, bOut
	if !isCkb2Udt {
		ckbOut, udtOut = bOut, aOut
	}
	if !ckbOut.IsUint64() {
		return Match{}, false
	}
	return Match{
		CkbOut:      ckbamount.Shannons(ckbOut.Uint64()),
		UdtOut:      udtOut,
		CkbDelta:    new(big.Int).Sub(u64(uint64(o.Cell.Capacity())), ckbOut),
		UdtDelta:    new(big.Int).Sub(o.UdtAmount, udtOut),
		IsFulfilled: fulfilled,
	}, true
}

// Matched returns the order state after m, pinned to its resolved master.
func (o *Order) Matched(m Match) (*Order, error) {
	master, ok := o.MasterOutPoint()
	if !ok {
		return nil, fmt.Errorf("%w: unresolved master", ErrMasterChanged)
	}
	d := Data{UdtAmount: m.UdtOut, Master: AbsoluteMaster{Point: master}, Info: o.Info}
	data, err := d.Encode()
	if err != nil {
		return nil, err
	}
	out := o.Cell.Output
	out.Capacity = m.CkbOut
	return newOrder(cell.New(out, data, nil))
}

// Validate checks that descendant continues ancestor without losing value.
func Validate(ancestor, descendant *Order) error {
	if !ancestor.Cell.Lock().Equal(descendant.Cell.Lock()) {
		return ErrLockChanged
	}
	if !cell.ScriptEqualPtr(ancestor.Cell.Type(), descendant.Cell.Type()) {
		return ErrTypeChanged
	}
	if ancestor.Info != descendant.Info {
		return ErrInfoChanged
	}
	am, ok := ancestor.MasterOutPoint()
	dm, dok := descendant.MasterOutPoint()
	if !ok || !dok || am != dm {
		return ErrMasterChanged
	}
	if ancestor.AbsTotal.Cmp(descendant.AbsTotal) > 0 {
		return fmt.Errorf("%w: %s > %s", ErrValueDecreased, ancestor.AbsTotal, descendant.AbsTotal)
	}
	if ancestor.AbsProgress.Cmp(descendant.AbsProgress) > 0 {
		return fmt.Errorf("%w: %s > %s", ErrProgressDecreased, ancestor.AbsProgress, descendant.AbsProgress)
	}
	return nil
}

// Resolve picks the live continuation of origin among candidates: the valid
// one with the most progress, preferring an unmatched order on ties.
func Resolve(origin *Order, candidates []*Order) (*Order, error) {
	var best *Order
	for _, c := range candidates {
		if Validate(origin, c) != nil {
			continue
		}
		if best == nil {
			best = c
			continue
		}
		switch c.AbsProgress.Cmp(best.AbsProgress) {
		case 1:
			best = c
		case 0:
			if c.IsFresh() && !best.IsFresh() {
				best = c
			}
		}
	}
	if best == nil {
		return nil, ErrNoDescendant
	}
	return best, nil
}
