package ickb

import (
	"math/big"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
)

const (
	// AR0 is the DAO accumulated rate at genesis.
	AR0 uint64 = 10_000_000_000_000_000

	// DepositOccupied is the occupied capacity of a pool deposit cell.
	DepositOccupied = 82 * ckbamount.ShannonsPerCKB

	// DepositCap is the reference deposit size the ratio discount is spread over.
	DepositCap = 100_000 * ckbamount.ShannonsPerCKB

	// SoftCap is the iCKB value per deposit above which the excess is discounted by 10%.
	SoftCap = 100_000 * 100_000_000
)

// Ratio is a fixed point exchange rate between CKB and a UDT.
type Ratio struct {
	CkbScale uint64
	UdtScale uint64
}

// IsEmpty reports whether the ratio is unset.
func (r Ratio) IsEmpty() bool {
	return r.CkbScale == 0 && r.UdtScale == 0
}

// IsPopulated reports whether both scales are set.
func (r Ratio) IsPopulated() bool {
	return r.CkbScale != 0 && r.UdtScale != 0
}

// RatioAt returns the iCKB exchange ratio at header. With
// accountDepositCapacity the UDT scale grows by the share of a reference
// deposit that its occupied capacity represents.
func RatioAt(h cell.Header, accountDepositCapacity bool) Ratio {
	ar := h.AR()
	udt := ar
	if accountDepositCapacity {
		udt += ckbamount.MulDiv(ar, uint64(DepositOccupied), uint64(DepositCap))
	}
	return Ratio{CkbScale: AR0, UdtScale: udt}
}

// Convert exchanges amount at r, truncating.
func Convert(isCkb2Udt bool, amount *big.Int, r Ratio) *big.Int {
	num, den := r.UdtScale, r.CkbScale
	if isCkb2Udt {
		num, den = r.CkbScale, r.UdtScale
	}
	if den == 0 {
		return new(big.Int)
	}
	v := new(big.Int).Mul(amount, new(big.Int).SetUint64(num))
	return v.Quo(v, new(big.Int).SetUint64(den))
}

// ConvertAtHeader exchanges amount at the ratio of header.
func ConvertAtHeader(isCkb2Udt bool, amount *big.Int, h cell.Header, accountDepositCapacity bool) *big.Int {
	return Convert(isCkb2Udt, amount, RatioAt(h, accountDepositCapacity))
}

// DepositValue is the iCKB a deposit of unoccupied capacity made at header
// is worth, with the excess above SoftCap discounted by 10%.
func DepositValue(unoccupied ckbamount.Shannons, h cell.Header) *big.Int {
	v := ConvertAtHeader(true, unoccupied.Big(), h, false)
	softCap := big.NewInt(SoftCap)
	if v.Cmp(softCap) > 0 {
		excess := new(big.Int).Sub(v, softCap)
		v.Sub(v, excess.Quo(excess, big.NewInt(10)))
	}
	return v
}
