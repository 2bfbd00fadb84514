package ckbamount

// FeeRate is a fee rate in shannons per 1000 bytes of serialized transaction.
type FeeRate uint64

// DefaultFeeRate is the minimum fee rate accepted by default CKB nodes.
const DefaultFeeRate FeeRate = 1000

// serializedSizeOverhead accounts for the 4-byte offset a transaction occupies
// in the block's transaction vector.
const serializedSizeOverhead = 4

// Fee returns the fee required for a transaction of the given molecule size.
func (r FeeRate) Fee(txSize int) Shannons {
	size := uint64(txSize + serializedSizeOverhead)
	return Shannons(MulDivCeil(size, uint64(r), 1000))
}

// Max returns the larger of two fee rates.
func (r FeeRate) Max(o FeeRate) FeeRate {
	if o > r {
		return o
	}
	return r
}
