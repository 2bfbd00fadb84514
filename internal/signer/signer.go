// Package signer seals transactions for the default secp256k1 blake160
// sighash-all lock.
package signer

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/scripts"
	"github.com/LeJamon/goickb/internal/core/tx"
	"github.com/LeJamon/goickb/internal/crypto"
)

// SignatureSize is the size of a recoverable signature: r ‖ s ‖ recovery id.
const SignatureSize = 65

var (
	// ErrNotPrepared is returned when Sign runs before Prepare sized the witness.
	ErrNotPrepared = errors.New("witness not prepared")
)

// Secp256k1 signs every input locked by one secp256k1 key.
type Secp256k1 struct {
	key  *crypto.SecretKey
	pub  []byte
	lock cell.Script
	deps []cell.CellDep
}

var _ tx.Signer = (*Secp256k1)(nil)

// New builds a signer owning key. The lock is info's script bound to the
// blake160 of the public key.
func New(key *crypto.SecretKey, info scripts.Info) (*Secp256k1, error) {
	pub, err := crypto.PublicKey(key)
	if err != nil {
		return nil, err
	}
	args := crypto.CalcLockArgs(pub)
	return &Secp256k1{
		key:  key,
		pub:  pub,
		lock: info.WithArgs(args[:]),
		deps: info.Deps,
	}, nil
}

func (s *Secp256k1) Lock() cell.Script { return s.lock }

// PublicKey returns the compressed public key.
func (s *Secp256k1) PublicKey() []byte { return append([]byte(nil), s.pub...) }

// Close erases the private key.
func (s *Secp256k1) Close() { s.key.Close() }

func (s *Secp256k1) group(t *tx.Transaction) []int {
	var idx []int
	for i, in := range t.Inputs {
		if in.Cell.Lock().Equal(s.lock) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Prepare adds the lock's cell deps and reserves a zeroed signature in the
// witness of the group's first input, keeping any input/output type fields.
// A transaction without inputs locked by the signer is left as is.
func (s *Secp256k1) Prepare(t *tx.Transaction) error {
	group := s.group(t)
	if len(group) == 0 {
		return nil
	}
	t.AddCellDeps(s.deps...)
	first := group[0]
	w, err := t.WitnessArgsAt(first)
	if err != nil {
		return fmt.Errorf("witness %d: %w", first, err)
	}
	w.Lock = make([]byte, SignatureSize)
	t.SetWitnessArgs(first, w)
	for len(t.Witnesses) < len(t.Inputs) {
		t.Witnesses = append(t.Witnesses, []byte{})
	}
	return nil
}

// SigHash computes the sighash-all message for the group starting at the
// first index: the tx hash followed by every group witness and every
// witness past the inputs, each prefixed by its u64 length.
func SigHash(t *tx.Transaction, group []int) [crypto.HashSize]byte {
	h := crypto.NewBlake2b()
	txHash := t.Hash()
	h.Write(txHash[:])
	write := func(w []byte) {
		var l [8]byte
		binary.LittleEndian.PutUint64(l[:], uint64(len(w)))
		h.Write(l[:])
		h.Write(w)
	}
	for _, i := range group {
		if i < len(t.Witnesses) {
			write(t.Witnesses[i])
		} else {
			write(nil)
		}
	}
	for i := len(t.Inputs); i < len(t.Witnesses); i++ {
		write(t.Witnesses[i])
	}
	var out [crypto.HashSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Sign fills the prepared signature placeholder.
func (s *Secp256k1) Sign(t *tx.Transaction) error {
	group := s.group(t)
	if len(group) == 0 {
		return nil
	}
	first := group[0]
	w, err := t.WitnessArgsAt(first)
	if err != nil {
		return fmt.Errorf("witness %d: %w", first, err)
	}
	if len(w.Lock) != SignatureSize {
		return ErrNotPrepared
	}
	msg := SigHash(t, group)
	sig, err := s.signRecoverable(msg[:])
	if err != nil {
		return err
	}
	w.Lock = sig
	t.SetWitnessArgs(first, w)
	return nil
}

func (s *Secp256k1) signRecoverable(msg []byte) ([]byte, error) {
	if s.key.IsClosed() {
		return nil, crypto.ErrInvalidPrivateKey
	}
	priv, _ := btcec.PrivKeyFromBytes(s.key.Data())
	compact := ecdsa.SignCompact(priv, msg, true)
	// compact is header ‖ r ‖ s with header = 27 + 4 + recovery id.
	out := make([]byte, SignatureSize)
	copy(out, compact[1:])
	out[64] = compact[0] - 27 - 4
	return out, nil
}

// Recover returns the compressed public key that produced sig over msg.
func Recover(sig, msg []byte) ([]byte, error) {
	if len(sig) != SignatureSize {
		return nil, fmt.Errorf("signature must be %d bytes, got %d", SignatureSize, len(sig))
	}
	compact := make([]byte, SignatureSize)
	compact[0] = sig[64] + 27 + 4
	copy(compact[1:], sig[:64])
	pub, _, err := ecdsa.RecoverCompact(compact, msg)
	if err != nil {
		return nil, err
	}
	return pub.SerializeCompressed(), nil
}
