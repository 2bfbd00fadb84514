package crypto

import (
	"hash"

	"github.com/minio/blake2b-simd"
)

// HashSize is the size of a CKB blake2b digest in bytes.
const HashSize = 32

// LockArgsSize is the size of a blake160 lock argument in bytes.
const LockArgsSize = 20

// personalization used by every CKB hash (transactions, scripts, sighash).
var ckbPersonal = []byte("ckb-default-hash")

// NewBlake2b returns a streaming blake2b-256 hasher with the CKB personalization.
func NewBlake2b() hash.Hash {
	h, err := blake2b.New(&blake2b.Config{Size: HashSize, Person: ckbPersonal})
	if err != nil {
		// The config is static; an error here is a programming mistake.
		panic(err)
	}
	return h
}

// Blake2b256 hashes the concatenation of parts.
func Blake2b256(parts ...[]byte) [HashSize]byte {
	h := NewBlake2b()
	for _, p := range parts {
		h.Write(p)
	}
	var out [HashSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

// CalcLockArgs computes the blake160 lock argument of a compressed public key:
// the first 20 bytes of its blake2b-256 digest.
//
// The secp256k1 sighash-all lock identifies its owner by this value.
func CalcLockArgs(publicKey []byte) [LockArgsSize]byte {
	digest := Blake2b256(publicKey)
	var result [LockArgsSize]byte
	copy(result[:], digest[:LockArgsSize])
	return result
}

// LockArgsFromBytes creates lock args from a byte slice.
// Returns zero args if the slice is not exactly 20 bytes.
func LockArgsFromBytes(b []byte) [LockArgsSize]byte {
	var result [LockArgsSize]byte
	if len(b) == LockArgsSize {
		copy(result[:], b)
	}
	return result
}
