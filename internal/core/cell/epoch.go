package cell

import "fmt"

// Epoch is a rational block-time position: Number + Index/Length.
type Epoch struct {
	Number uint64
	Index  uint64
	Length uint64
}

const (
	epochNumberMask = 0xffffff
	epochFieldMask  = 0xffff
)

// UnpackEpoch decodes the packed epoch representation used in headers and since values.
func UnpackEpoch(v uint64) Epoch {
	return Epoch{
		Number: v & epochNumberMask,
		Index:  (v >> 24) & epochFieldMask,
		Length: (v >> 40) & epochFieldMask,
	}
}

// Pack encodes the epoch as number | index<<24 | length<<40.
func (e Epoch) Pack() uint64 {
	return (e.Number & epochNumberMask) | (e.Index&epochFieldMask)<<24 | (e.Length&epochFieldMask)<<40
}

func (e Epoch) length() uint64 {
	if e.Length == 0 {
		return 1
	}
	return e.Length
}

// Compare returns -1, 0 or 1 comparing the rational positions of a and b.
func (e Epoch) Compare(o Epoch) int {
	if e.Number != o.Number {
		if e.Number < o.Number {
			return -1
		}
		return 1
	}
	l := e.Index * o.length()
	r := o.Index * e.length()
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	}
	return 0
}

// AddNumber returns the epoch shifted forward by n whole epochs.
func (e Epoch) AddNumber(n uint64) Epoch {
	e.Number += n
	return e
}

func (e Epoch) String() string {
	return fmt.Sprintf("%d+%d/%d", e.Number, e.Index, e.Length)
}
