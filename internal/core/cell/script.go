// Package cell defines the ledger primitives shared by every other package:
// scripts, out points, cells, headers, epochs and since values.
package cell

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/LeJamon/goickb/internal/codec/molecule"
	"github.com/LeJamon/goickb/internal/crypto"
)

// Hash is a 32-byte blake2b digest.
type Hash [32]byte

// String returns the 0x-prefixed hex form used by CKB RPC.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ParseHash parses a 0x-prefixed (or bare) 32-byte hex string.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return h, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("invalid hash %q: length %d", s, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// HashType selects how a script's code hash is matched against cell deps.
type HashType byte

const (
	HashTypeData  HashType = 0
	HashTypeType  HashType = 1
	HashTypeData1 HashType = 2
	HashTypeData2 HashType = 4
)

var hashTypeNames = map[HashType]string{
	HashTypeData:  "data",
	HashTypeType:  "type",
	HashTypeData1: "data1",
	HashTypeData2: "data2",
}

func (t HashType) String() string {
	if n, ok := hashTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("HashType(%d)", byte(t))
}

// ErrInvalidHashType is returned when parsing an unknown hash type name.
var ErrInvalidHashType = errors.New("invalid hash type")

// ParseHashType parses the RPC name of a hash type.
func ParseHashType(s string) (HashType, error) {
	for t, n := range hashTypeNames {
		if n == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidHashType, s)
}

// Script is a lock or type predicate.
type Script struct {
	CodeHash Hash
	HashType HashType
	Args     []byte
}

// NewScript returns a script owning a copy of args.
func NewScript(codeHash Hash, hashType HashType, args []byte) Script {
	return Script{CodeHash: codeHash, HashType: hashType, Args: bytes.Clone(args)}
}

// Serialize returns the molecule encoding of the script.
func (s Script) Serialize() []byte {
	return molecule.Table(s.CodeHash[:], []byte{byte(s.HashType)}, molecule.Bytes(s.Args))
}

// Hash returns the script hash used for identity across the protocol.
func (s Script) Hash() Hash {
	return Hash(crypto.Blake2b256(s.Serialize()))
}

// Equal reports whether two scripts are the same predicate.
func (s Script) Equal(o Script) bool {
	return s.CodeHash == o.CodeHash && s.HashType == o.HashType && bytes.Equal(s.Args, o.Args)
}

// SameCode reports whether two scripts run the same code, ignoring args.
func (s Script) SameCode(o Script) bool {
	return s.CodeHash == o.CodeHash && s.HashType == o.HashType
}

// Key returns a comparable identity suitable for map keys.
func (s Script) Key() string {
	return string(s.Serialize())
}

// OccupiedSize is the number of bytes the script occupies in a cell.
func (s Script) OccupiedSize() int {
	return len(s.CodeHash) + 1 + len(s.Args)
}

func (s Script) String() string {
	return fmt.Sprintf("{%s %s 0x%s}", s.CodeHash, s.HashType, hex.EncodeToString(s.Args))
}

// ScriptEqualPtr compares optional scripts.
func ScriptEqualPtr(a, b *Script) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
