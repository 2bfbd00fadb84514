// Package molecule implements the subset of the molecule serialization format
// used by CKB transactions, scripts and witnesses.
//
// Every composite type is built from five primitives: structs (plain
// concatenation), fixvecs (item count followed by fixed-size items), dynvecs
// and tables (total size and offset header followed by items) and options
// (absent or the inner value).
package molecule

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const headerUnit = 4

var (
	// ErrTruncated indicates the input ended before the declared size.
	ErrTruncated = errors.New("molecule: truncated input")

	// ErrInvalidHeader indicates inconsistent size or offset fields.
	ErrInvalidHeader = errors.New("molecule: invalid header")

	// ErrFieldCount indicates a table with fewer fields than required.
	ErrFieldCount = errors.New("molecule: unexpected field count")
)

// Uint32 encodes v as 4 little-endian bytes.
func Uint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// Uint64 encodes v as 8 little-endian bytes.
func Uint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// Struct concatenates fixed-size fields.
func Struct(fields ...[]byte) []byte {
	size := 0
	for _, f := range fields {
		size += len(f)
	}
	out := make([]byte, 0, size)
	for _, f := range fields {
		out = append(out, f...)
	}
	return out
}

// Bytes encodes a byte fixvec.
func Bytes(b []byte) []byte {
	out := make([]byte, 0, headerUnit+len(b))
	out = append(out, Uint32(uint32(len(b)))...)
	return append(out, b...)
}

// FixVec encodes a vector of fixed-size items.
func FixVec(items [][]byte) []byte {
	out := Uint32(uint32(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

// DynVec encodes a vector of variable-size items.
func DynVec(items [][]byte) []byte {
	headerSize := headerUnit * (1 + len(items))
	total := headerSize
	for _, it := range items {
		total += len(it)
	}
	out := make([]byte, 0, total)
	out = append(out, Uint32(uint32(total))...)
	offset := headerSize
	for _, it := range items {
		out = append(out, Uint32(uint32(offset))...)
		offset += len(it)
	}
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

// Table encodes a table; its layout is identical to a dynvec of its fields.
func Table(fields ...[]byte) []byte {
	return DynVec(fields)
}

// Option encodes an optional value; nil means absent.
func Option(item []byte) []byte {
	if item == nil {
		return []byte{}
	}
	return item
}

// UnpackBytes decodes a byte fixvec and returns its payload.
func UnpackBytes(b []byte) ([]byte, error) {
	if len(b) < headerUnit {
		return nil, ErrTruncated
	}
	n := int(binary.LittleEndian.Uint32(b))
	if len(b) != headerUnit+n {
		return nil, fmt.Errorf("%w: bytes length %d, declared %d", ErrInvalidHeader, len(b)-headerUnit, n)
	}
	out := make([]byte, n)
	copy(out, b[headerUnit:])
	return out, nil
}

// UnpackDynVec splits a dynvec (or table) into its items.
func UnpackDynVec(b []byte) ([][]byte, error) {
	if len(b) < headerUnit {
		return nil, ErrTruncated
	}
	total := int(binary.LittleEndian.Uint32(b))
	if total != len(b) {
		return nil, fmt.Errorf("%w: total size %d, have %d", ErrInvalidHeader, total, len(b))
	}
	if total == headerUnit {
		return nil, nil
	}
	if total < 2*headerUnit {
		return nil, ErrTruncated
	}
	first := int(binary.LittleEndian.Uint32(b[headerUnit:]))
	if first%headerUnit != 0 || first < 2*headerUnit || first > total {
		return nil, fmt.Errorf("%w: first offset %d", ErrInvalidHeader, first)
	}
	count := first/headerUnit - 1
	offsets := make([]int, count+1)
	for i := 0; i < count; i++ {
		offsets[i] = int(binary.LittleEndian.Uint32(b[headerUnit*(i+1):]))
	}
	offsets[count] = total
	items := make([][]byte, count)
	for i := 0; i < count; i++ {
		start, end := offsets[i], offsets[i+1]
		if start > end || end > total {
			return nil, fmt.Errorf("%w: offsets %d..%d", ErrInvalidHeader, start, end)
		}
		items[i] = b[start:end]
	}
	return items, nil
}

// UnpackTable splits a table into at least fieldCount fields. Extra trailing
// fields, allowed by compatible schema evolution, are returned as well.
func UnpackTable(b []byte, fieldCount int) ([][]byte, error) {
	fields, err := UnpackDynVec(b)
	if err != nil {
		return nil, err
	}
	if len(fields) < fieldCount {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(fields), fieldCount)
	}
	return fields, nil
}
