// Package headerstore persists immutable ledger data, block headers and
// committed transactions, so restarts do not refetch them.
package headerstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/ugorji/go/codec"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/tx"
	"github.com/LeJamon/goickb/internal/storage/compression"
)

var (
	// ErrNotFound indicates that a requested entry was not stored.
	ErrNotFound = errors.New("entry not found")

	// ErrClosed indicates that the store is closed.
	ErrClosed = errors.New("store is closed")

	// ErrNotCommitted indicates an attempt to store a transaction without a block.
	ErrNotCommitted = errors.New("transaction not committed")
)

const (
	prefixHeader byte = 'h'
	prefixNumber byte = 'n'
	prefixTx     byte = 't'
)

// Stats counts store operations.
type Stats struct {
	Reads  int64
	Writes int64
	Misses int64
}

// Store is a pebble backed header and transaction store. Values are
// msgpack encoded and compressed.
type Store struct {
	db         *pebble.DB
	compressor compression.Compressor
	handle     *codec.MsgpackHandle
	closed     atomic.Bool

	reads, writes, misses atomic.Int64
}

type options struct {
	fs         vfs.FS
	compressor string
}

// Option configures Open.
type Option func(*options)

// WithFS opens the store on fs, such as vfs.NewMem() in tests.
func WithFS(fs vfs.FS) Option {
	return func(o *options) { o.fs = fs }
}

// WithCompressor selects a registered compressor; lz4 by default.
func WithCompressor(name string) Option {
	return func(o *options) { o.compressor = name }
}

// Open opens or creates the store at path.
func Open(path string, opts ...Option) (*Store, error) {
	o := options{compressor: "lz4"}
	for _, opt := range opts {
		opt(&o)
	}
	comp, err := compression.Get(o.compressor)
	if err != nil {
		return nil, err
	}
	po := &pebble.Options{FS: o.fs}
	db, err := pebble.Open(path, po)
	if err != nil {
		return nil, fmt.Errorf("failed to open header store at %s: %w", path, err)
	}
	h := &codec.MsgpackHandle{}
	h.WriteExt = true
	return &Store{db: db, compressor: comp, handle: h}, nil
}

// Close closes the store; later calls return ErrClosed.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return s.db.Close()
}

// Stats returns the operation counters.
func (s *Store) Stats() Stats {
	return Stats{Reads: s.reads.Load(), Writes: s.writes.Load(), Misses: s.misses.Load()}
}

func headerKey(hash cell.Hash) []byte {
	return append([]byte{prefixHeader}, hash[:]...)
}

func numberKey(n uint64) []byte {
	return binary.BigEndian.AppendUint64([]byte{prefixNumber}, n)
}

func txKey(hash cell.Hash) []byte {
	return append([]byte{prefixTx}, hash[:]...)
}

func (s *Store) encode(v interface{}) ([]byte, error) {
	var raw []byte
	if err := codec.NewEncoderBytes(&raw, s.handle).Encode(v); err != nil {
		return nil, err
	}
	return s.compressor.Compress(raw)
}

func (s *Store) decode(block []byte, v interface{}) error {
	raw, err := s.compressor.Decompress(block)
	if err != nil {
		return err
	}
	return codec.NewDecoderBytes(raw, s.handle).Decode(v)
}

func (s *Store) get(key []byte, v interface{}) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.reads.Add(1)
	val, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		s.misses.Add(1)
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	defer closer.Close()
	return s.decode(val, v)
}

// PutHeader stores h by hash. With canonical set it is also indexed by
// number, which callers should only do once the block cannot be reorged.
func (s *Store) PutHeader(h cell.Header, canonical bool) error {
	if s.closed.Load() {
		return ErrClosed
	}
	val, err := s.encode(h)
	if err != nil {
		return fmt.Errorf("encoding header %s: %w", h.Hash, err)
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(headerKey(h.Hash), val, nil); err != nil {
		return err
	}
	if canonical {
		if err := b.Set(numberKey(h.Number), h.Hash[:], nil); err != nil {
			return err
		}
	}
	s.writes.Add(1)
	return b.Commit(pebble.NoSync)
}

// Header returns the header with hash.
func (s *Store) Header(hash cell.Hash) (cell.Header, error) {
	var h cell.Header
	if err := s.get(headerKey(hash), &h); err != nil {
		return cell.Header{}, err
	}
	return h, nil
}

// HeaderByNumber returns the canonical header at number.
func (s *Store) HeaderByNumber(number uint64) (cell.Header, error) {
	if s.closed.Load() {
		return cell.Header{}, ErrClosed
	}
	s.reads.Add(1)
	val, closer, err := s.db.Get(numberKey(number))
	if errors.Is(err, pebble.ErrNotFound) {
		s.misses.Add(1)
		return cell.Header{}, ErrNotFound
	}
	if err != nil {
		return cell.Header{}, err
	}
	var hash cell.Hash
	copy(hash[:], val)
	closer.Close()
	return s.Header(hash)
}

// txEntry is the stored form of a committed transaction.
type txEntry struct {
	Record tx.TransactionRecord
	Header cell.Header
}

// PutTransaction stores a committed transaction with the header of its block.
func (s *Store) PutTransaction(rec *tx.TransactionRecord, header cell.Header) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if rec.Status != tx.StatusCommitted || rec.BlockHash == nil {
		return fmt.Errorf("%w: %s", ErrNotCommitted, rec.Hash)
	}
	val, err := s.encode(txEntry{Record: *rec, Header: header})
	if err != nil {
		return fmt.Errorf("encoding transaction %s: %w", rec.Hash, err)
	}
	s.writes.Add(1)
	return s.db.Set(txKey(rec.Hash), val, pebble.NoSync)
}

// Transaction returns a stored transaction and the header of its block.
func (s *Store) Transaction(hash cell.Hash) (*tx.TransactionRecord, cell.Header, error) {
	var e txEntry
	if err := s.get(txKey(hash), &e); err != nil {
		return nil, cell.Header{}, err
	}
	return &e.Record, e.Header, nil
}
