package order

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ickb"
	"github.com/LeJamon/goickb/internal/core/tx"
)

const (
	masterSize = 4 + 36
	ratioSize  = 16
	infoSize   = 2*ratioSize + 1

	// DataSize is the size of order cell data.
	DataSize = tx.UdtAmountSize + masterSize + infoSize

	// MaxMinMatchLog bounds the minimum match exponent.
	MaxMinMatchLog = 64
)

const (
	tagRelative uint32 = iota
	tagAbsolute
)

// ErrInvalidOrder indicates order data that cannot be decoded or validated.
var ErrInvalidOrder = errors.New("invalid order")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidOrder, fmt.Sprintf(format, args...))
}

// Ratio is an order exchange rate. Scales are compared by cross
// multiplication; an empty ratio disables its direction.
type Ratio = ickb.Ratio

// Master locates the master cell that owns an order.
type Master interface {
	// OutPoint resolves the master relative to the order at op.
	OutPoint(op cell.OutPoint) cell.OutPoint
	isMaster()
}

// RelativeMaster points Distance outputs away in the order's own transaction.
type RelativeMaster struct {
	Distance int32
}

// AbsoluteMaster points at a fixed out point.
type AbsoluteMaster struct {
	Point cell.OutPoint
}

func (m RelativeMaster) OutPoint(op cell.OutPoint) cell.OutPoint {
	return cell.OutPoint{TxHash: op.TxHash, Index: uint32(int64(op.Index) + int64(m.Distance))}
}

func (m AbsoluteMaster) OutPoint(cell.OutPoint) cell.OutPoint { return m.Point }

func (RelativeMaster) isMaster() {}
func (AbsoluteMaster) isMaster() {}

// Info holds the order terms.
type Info struct {
	CkbToUdt Ratio
	UdtToCkb Ratio

	// CkbMinMatchLog is log2 of the smallest CKB amount a partial match may move.
	CkbMinMatchLog uint8
}

// IsCkb2Udt reports whether the order sells CKB.
func (i Info) IsCkb2Udt() bool { return i.CkbToUdt.IsPopulated() }

// IsUdt2Ckb reports whether the order sells UDT.
func (i Info) IsUdt2Ckb() bool { return i.UdtToCkb.IsPopulated() }

// IsDualRatio reports whether the order trades in both directions.
func (i Info) IsDualRatio() bool { return i.IsCkb2Udt() && i.IsUdt2Ckb() }

// CkbMinMatch is the smallest CKB amount a partial match may move.
func (i Info) CkbMinMatch() *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(i.CkbMinMatchLog))
}

// Validate checks ratio shapes, the exponent range and that dual ratios
// leave no round trip arbitrage.
func (i Info) Validate() error {
	if !i.CkbToUdt.IsEmpty() && !i.CkbToUdt.IsPopulated() {
		return invalid("ckb to udt ratio has a zero scale")
	}
	if !i.UdtToCkb.IsEmpty() && !i.UdtToCkb.IsPopulated() {
		return invalid("udt to ckb ratio has a zero scale")
	}
	if !i.IsCkb2Udt() && !i.IsUdt2Ckb() {
		return invalid("no ratio")
	}
	if i.CkbMinMatchLog > MaxMinMatchLog {
		return invalid("min match exponent %d", i.CkbMinMatchLog)
	}
	if i.IsDualRatio() {
		c, u := i.CkbToUdt, i.UdtToCkb
		lhs := new(big.Int).Mul(u64(c.UdtScale), u64(u.CkbScale))
		rhs := new(big.Int).Mul(u64(c.CkbScale), u64(u.UdtScale))
		if lhs.Cmp(rhs) > 0 {
			return invalid("dual ratio allows arbitrage")
		}
	}
	return nil
}

func u64(v uint64) *big.Int { return new(big.Int).SetUint64(v) }

// Data is the decoded payload of an order cell.
type Data struct {
	UdtAmount *big.Int
	Master    Master
	Info      Info
}

func encodeRatio(b []byte, r Ratio) []byte {
	b = binary.LittleEndian.AppendUint64(b, r.CkbScale)
	return binary.LittleEndian.AppendUint64(b, r.UdtScale)
}

func decodeRatio(b []byte) Ratio {
	return Ratio{CkbScale: binary.LittleEndian.Uint64(b), UdtScale: binary.LittleEndian.Uint64(b[8:])}
}

// Encode serializes d. The master must be one of the two concrete kinds.
func (d Data) Encode() ([]byte, error) {
	amount, err := tx.EncodeUdtAmount(d.UdtAmount)
	if err != nil {
		return nil, err
	}
	b := make([]byte, 0, DataSize)
	b = append(b, amount...)
	switch m := d.Master.(type) {
	case RelativeMaster:
		b = binary.LittleEndian.AppendUint32(b, tagRelative)
		b = append(b, make([]byte, 32)...)
		b = binary.LittleEndian.AppendUint32(b, uint32(m.Distance))
	case AbsoluteMaster:
		b = binary.LittleEndian.AppendUint32(b, tagAbsolute)
		b = append(b, m.Point.Serialize()...)
	default:
		return nil, invalid("unknown master %T", d.Master)
	}
	b = encodeRatio(b, d.Info.CkbToUdt)
	b = encodeRatio(b, d.Info.UdtToCkb)
	return append(b, d.Info.CkbMinMatchLog), nil
}

// DecodeData parses and validates order data.
func DecodeData(b []byte) (Data, error) {
	if len(b) != DataSize {
		return Data{}, invalid("%d bytes", len(b))
	}
	d := Data{UdtAmount: tx.DecodeUint128(b)}
	m := b[tx.UdtAmountSize:]
	switch tag := binary.LittleEndian.Uint32(m); tag {
	case tagRelative:
		for _, x := range m[4:36] {
			if x != 0 {
				return Data{}, invalid("relative master padding")
			}
		}
		d.Master = RelativeMaster{Distance: int32(binary.LittleEndian.Uint32(m[36:]))}
	case tagAbsolute:
		var op cell.OutPoint
		copy(op.TxHash[:], m[4:36])
		op.Index = binary.LittleEndian.Uint32(m[36:])
		d.Master = AbsoluteMaster{Point: op}
	default:
		return Data{}, invalid("master tag %d", tag)
	}
	info := m[masterSize:]
	d.Info = Info{
		CkbToUdt:       decodeRatio(info),
		UdtToCkb:       decodeRatio(info[ratioSize:]),
		CkbMinMatchLog: info[2*ratioSize],
	}
	if err := d.Info.Validate(); err != nil {
		return Data{}, err
	}
	return d, nil
}
