package cell

import (
	"bytes"
	"fmt"

	"github.com/LeJamon/goickb/internal/codec/molecule"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
)

// OutPointSize is the serialized size of an out point.
const OutPointSize = 36

// OutPoint identifies a committed cell.
type OutPoint struct {
	TxHash Hash
	Index  uint32
}

// Serialize returns the molecule struct encoding.
func (o OutPoint) Serialize() []byte {
	return molecule.Struct(o.TxHash[:], molecule.Uint32(o.Index))
}

func (o OutPoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxHash, o.Index)
}

// Output is the capacity, lock and optional type of a cell.
type Output struct {
	Capacity ckbamount.Shannons
	Lock     Script
	Type     *Script
}

// Serialize returns the molecule encoding of the CellOutput table.
func (o Output) Serialize() []byte {
	var typ []byte
	if o.Type != nil {
		typ = o.Type.Serialize()
	}
	return molecule.Table(
		molecule.Uint64(uint64(o.Capacity)),
		o.Lock.Serialize(),
		molecule.Option(typ),
	)
}

// OccupiedCapacity is the minimum capacity an output with dataLen bytes of
// data must hold: one shannon-scaled CKB per occupied byte.
func (o Output) OccupiedCapacity(dataLen int) ckbamount.Shannons {
	size := 8 + o.Lock.OccupiedSize() + dataLen
	if o.Type != nil {
		size += o.Type.OccupiedSize()
	}
	return ckbamount.Shannons(size) * ckbamount.ShannonsPerCKB
}

// Cell is an immutable ledger object. OutPoint is nil for outputs that are
// not committed yet.
type Cell struct {
	Output   Output
	Data     []byte
	OutPoint *OutPoint
}

// New builds a cell owning copies of its variable-size fields.
func New(output Output, data []byte, outPoint *OutPoint) Cell {
	out := Output{Capacity: output.Capacity, Lock: NewScript(output.Lock.CodeHash, output.Lock.HashType, output.Lock.Args)}
	if output.Type != nil {
		t := NewScript(output.Type.CodeHash, output.Type.HashType, output.Type.Args)
		out.Type = &t
	}
	var op *OutPoint
	if outPoint != nil {
		o := *outPoint
		op = &o
	}
	return Cell{Output: out, Data: bytes.Clone(data), OutPoint: op}
}

func (c Cell) Capacity() ckbamount.Shannons {
	return c.Output.Capacity
}

func (c Cell) Lock() Script {
	return c.Output.Lock
}

// Type returns the type script, or nil.
func (c Cell) Type() *Script {
	return c.Output.Type
}

// HasType reports whether the cell's type script equals s.
func (c Cell) HasType(s Script) bool {
	return c.Output.Type != nil && c.Output.Type.Equal(s)
}

func (c Cell) OccupiedCapacity() ckbamount.Shannons {
	return c.Output.OccupiedCapacity(len(c.Data))
}

// FreeCapacity is the capacity above the occupied portion.
func (c Cell) FreeCapacity() ckbamount.Shannons {
	return c.Output.Capacity.Sub(c.OccupiedCapacity())
}

// IsCommitted reports whether the cell carries an origin out point.
func (c Cell) IsCommitted() bool {
	return c.OutPoint != nil
}

// DepType selects whether a cell dep is used directly or expanded as a group.
type DepType byte

const (
	DepTypeCode     DepType = 0
	DepTypeDepGroup DepType = 1
)

func (d DepType) String() string {
	if d == DepTypeDepGroup {
		return "dep_group"
	}
	return "code"
}

// CellDep references a cell carrying script code.
type CellDep struct {
	OutPoint OutPoint
	DepType  DepType
}

// Serialize returns the molecule struct encoding.
func (d CellDep) Serialize() []byte {
	return molecule.Struct(d.OutPoint.Serialize(), []byte{byte(d.DepType)})
}
