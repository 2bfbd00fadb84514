package cell

// Since flags: the top byte of a since value.
const (
	sinceAbsoluteEpochFlag uint64 = 0x20 << 56
	sinceFlagMask          uint64 = 0xff << 56
)

// AbsoluteEpochSince returns a since value that is satisfied once the chain
// reaches epoch e.
func AbsoluteEpochSince(e Epoch) uint64 {
	return sinceAbsoluteEpochFlag | e.Pack()
}

// SinceEpoch extracts the epoch from an absolute epoch since value.
func SinceEpoch(since uint64) (Epoch, bool) {
	if since&sinceFlagMask != sinceAbsoluteEpochFlag {
		return Epoch{}, false
	}
	return UnpackEpoch(since &^ sinceFlagMask), true
}
