package tx

import (
	"bytes"
	"fmt"

	"github.com/LeJamon/goickb/internal/codec/molecule"
)

// WitnessArgs is the standard witness layout. A nil field is absent.
type WitnessArgs struct {
	Lock       []byte
	InputType  []byte
	OutputType []byte
}

func optBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return molecule.Bytes(b)
}

// Serialize returns the molecule encoding.
func (w WitnessArgs) Serialize() []byte {
	return molecule.Table(
		molecule.Option(optBytes(w.Lock)),
		molecule.Option(optBytes(w.InputType)),
		molecule.Option(optBytes(w.OutputType)),
	)
}

// IsEmpty reports whether all fields are absent.
func (w WitnessArgs) IsEmpty() bool {
	return w.Lock == nil && w.InputType == nil && w.OutputType == nil
}

// ParseWitnessArgs decodes a serialized WitnessArgs. An empty witness decodes
// to empty WitnessArgs.
func ParseWitnessArgs(b []byte) (WitnessArgs, error) {
	if len(b) == 0 {
		return WitnessArgs{}, nil
	}
	fields, err := molecule.UnpackTable(b, 3)
	if err != nil {
		return WitnessArgs{}, fmt.Errorf("%w: %v", ErrInvalidWitness, err)
	}
	var out [3][]byte
	for i := 0; i < 3; i++ {
		if len(fields[i]) == 0 {
			continue
		}
		v, err := molecule.UnpackBytes(fields[i])
		if err != nil {
			return WitnessArgs{}, fmt.Errorf("%w: field %d: %v", ErrInvalidWitness, i, err)
		}
		out[i] = v
	}
	return WitnessArgs{Lock: out[0], InputType: out[1], OutputType: out[2]}, nil
}

// Equal compares two witness args field by field, distinguishing absent from empty.
func (w WitnessArgs) Equal(o WitnessArgs) bool {
	eq := func(a, b []byte) bool {
		if (a == nil) != (b == nil) {
			return false
		}
		return bytes.Equal(a, b)
	}
	return eq(w.Lock, o.Lock) && eq(w.InputType, o.InputType) && eq(w.OutputType, o.OutputType)
}
