package dao

import (
	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
)

// CycleLength is the DAO lock period in epochs.
const CycleLength = 180

// Interest is the reward a deposit accrues between two headers: the counted
// capacity scaled by the growth of the accumulated rate, rounded down.
func Interest(capacity, occupied ckbamount.Shannons, deposit, withdraw cell.Header) ckbamount.Shannons {
	counted := capacity.Sub(occupied)
	arD, arW := deposit.AR(), withdraw.AR()
	if arD == 0 || arW <= arD {
		return 0
	}
	return ckbamount.Shannons(ckbamount.MulDiv(uint64(counted), arW, arD)).Sub(counted)
}

// WithdrawnCapacity is the capacity a withdrawal releases.
func WithdrawnCapacity(capacity, occupied ckbamount.Shannons, deposit, withdraw cell.Header) ckbamount.Shannons {
	return capacity + Interest(capacity, occupied, deposit, withdraw)
}

// Maturity returns the first epoch a deposit requested for withdrawal at
// request can be withdrawn: the deposit epoch plus the whole number of
// cycles covering the deposited time, at least one.
func Maturity(deposit, request cell.Epoch) cell.Epoch {
	var deposited uint64
	if request.Number > deposit.Number {
		deposited = request.Number - deposit.Number
	}
	dl, rl := deposit.Length, request.Length
	if dl == 0 {
		dl = 1
	}
	if rl == 0 {
		rl = 1
	}
	if request.Number >= deposit.Number && request.Index*dl > deposit.Index*rl {
		deposited++
	}
	cycles := (deposited + CycleLength - 1) / CycleLength
	if cycles == 0 {
		cycles = 1
	}
	return deposit.AddNumber(cycles * CycleLength)
}
