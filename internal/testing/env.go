package testing

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"iter"
	"sync"
	"testing"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
	"github.com/LeJamon/goickb/internal/core/scripts"
	"github.com/LeJamon/goickb/internal/core/tx"
	"github.com/LeJamon/goickb/internal/crypto"
)

const (
	// GenesisAR is the DAO accumulated rate of the genesis block.
	GenesisAR uint64 = 10_000_000_000_000_000

	// DefaultARStep is the accumulated rate growth per block.
	DefaultARStep uint64 = 10_000_000_000

	// DefaultEpochLength is the number of blocks per epoch.
	DefaultEpochLength uint64 = 10
)

// TestEnv is an in-memory ledger implementing tx.Client.
type TestEnv struct {
	t testing.TB

	mu      sync.Mutex
	headers []cell.Header
	byHash  map[cell.Hash]int
	txs     map[cell.Hash]*tx.TransactionRecord
	live    []cell.Cell
	sent    []*tx.Transaction

	feeRate     ckbamount.FeeRate
	arStep      uint64
	epochLength uint64
	nonce       uint64

	// sendErr, when set, fails the next SendTransaction.
	sendErr error
	// pending leaves sent transactions uncommitted until Commit.
	pending bool
}

var _ tx.Client = (*TestEnv)(nil)

// NewTestEnv returns a ledger holding only the genesis block.
func NewTestEnv(t testing.TB) *TestEnv {
	t.Helper()
	e := &TestEnv{
		t:           t,
		byHash:      make(map[cell.Hash]int),
		txs:         make(map[cell.Hash]*tx.TransactionRecord),
		feeRate:     ckbamount.DefaultFeeRate,
		arStep:      DefaultARStep,
		epochLength: DefaultEpochLength,
	}
	e.appendHeader()
	return e
}

// Deployment returns the script set the environment's cells use.
func (e *TestEnv) Deployment() scripts.Deployment {
	return TestDeployment()
}

// TestDeployment is a deterministic deployment. The DAO and default lock use
// their public type hashes; protocol scripts use synthetic code hashes.
func TestDeployment() scripts.Deployment {
	info := func(name string, h cell.Hash) scripts.Info {
		if h.IsZero() {
			h = cell.Hash(crypto.Blake2b256([]byte("code"), []byte(name)))
		}
		dep := cell.CellDep{OutPoint: cell.OutPoint{TxHash: cell.Hash(crypto.Blake2b256([]byte("dep"), []byte(name)))}}
		return scripts.Info{Script: cell.NewScript(h, cell.HashTypeType, nil), Deps: []cell.CellDep{dep}}
	}
	return scripts.Deployment{
		DAO:        info("dao", scripts.DAOTypeHash),
		Secp256k1:  info("secp256k1", scripts.Secp256k1Blake160TypeHash),
		Xudt:       info("xudt", cell.Hash{}),
		Logic:      info("ickb_logic", cell.Hash{}),
		OwnedOwner: info("owned_owner", cell.Hash{}),
		Order:      info("limit_order", cell.Hash{}),
	}
}

func (e *TestEnv) appendHeader() cell.Header {
	n := uint64(len(e.headers))
	e.nonce++
	var seed [16]byte
	binary.LittleEndian.PutUint64(seed[:], n)
	binary.LittleEndian.PutUint64(seed[8:], e.nonce)
	h := cell.Header{
		Hash:      cell.Hash(crypto.Blake2b256([]byte("header"), seed[:])),
		Number:    n,
		Epoch:     cell.Epoch{Number: n / e.epochLength, Index: n % e.epochLength, Length: e.epochLength},
		Timestamp: 1573862400000 + n*8000,
		Dao:       cell.DaoField(0, e.ar(n), 0, 0),
	}
	if n > 0 {
		h.ParentHash = e.headers[n-1].Hash
	}
	e.headers = append(e.headers, h)
	e.byHash[h.Hash] = int(n)
	return h
}

func (e *TestEnv) ar(n uint64) uint64 {
	return GenesisAR + n*e.arStep
}

// SetARStep changes the accumulated rate growth of future blocks. The rate
// is recomputed from genesis, so call it before mining.
func (e *TestEnv) SetARStep(step uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.arStep = step
}

// SetFeeRate sets the fee rate GetFeeRate reports.
func (e *TestEnv) SetFeeRate(r ckbamount.FeeRate) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.feeRate = r
}

// FailNextSend makes the next SendTransaction return err.
func (e *TestEnv) FailNextSend(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sendErr = err
}

// HoldCommits keeps sent transactions pending until Commit is called.
func (e *TestEnv) HoldCommits(hold bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = hold
}

// Tip returns the latest header.
func (e *TestEnv) Tip() cell.Header {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.headers[len(e.headers)-1]
}

// Close mines one empty block and returns its header.
func (e *TestEnv) Close() cell.Header {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.appendHeader()
}

// AdvanceEpochs mines blocks until the tip epoch number grows by n.
func (e *TestEnv) AdvanceEpochs(n uint64) cell.Header {
	e.mu.Lock()
	defer e.mu.Unlock()
	target := e.headers[len(e.headers)-1].Epoch.Number + n
	h := e.headers[len(e.headers)-1]
	for h.Epoch.Number < target {
		h = e.appendHeader()
	}
	return h
}

// Create commits a transaction with the given outputs in a new block and
// returns the created cells.
func (e *TestEnv) Create(outputs []cell.Output, data [][]byte) []cell.Cell {
	e.t.Helper()
	if len(data) != len(outputs) {
		e.t.Fatalf("Create: %d outputs but %d data entries", len(outputs), len(data))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nonce++
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], e.nonce)
	rec := &tx.TransactionRecord{
		Hash:        cell.Hash(crypto.Blake2b256([]byte("create"), seed[:])),
		Outputs:     outputs,
		OutputsData: data,
	}
	return e.commit(rec)
}

// CreateCell commits a single cell.
func (e *TestEnv) CreateCell(out cell.Output, data []byte) cell.Cell {
	return e.Create([]cell.Output{out}, [][]byte{data})[0]
}

// Fund gives acc a plain cell of ckb CKB.
func (e *TestEnv) Fund(acc *Account, ckb uint64) cell.Cell {
	return e.CreateCell(cell.Output{Capacity: ckbamount.FromCKB(ckb), Lock: acc.Lock}, nil)
}

// commit mines a block holding rec; e.mu must be held.
func (e *TestEnv) commit(rec *tx.TransactionRecord) []cell.Cell {
	h := e.appendHeader()
	rec.Status = tx.StatusCommitted
	bh := h.Hash
	rec.BlockHash = &bh
	e.txs[rec.Hash] = rec

	spent := make(map[cell.OutPoint]bool, len(rec.Inputs))
	for _, op := range rec.Inputs {
		spent[op] = true
	}
	kept := e.live[:0]
	for _, c := range e.live {
		if !spent[*c.OutPoint] {
			kept = append(kept, c)
		}
	}
	e.live = kept

	created := make([]cell.Cell, len(rec.Outputs))
	for i := range rec.Outputs {
		c, _ := rec.Cell(uint32(i))
		created[i] = c
		e.live = append(e.live, c)
	}
	return created
}

// Commit mines every transaction held back by HoldCommits.
func (e *TestEnv) Commit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, rec := range e.txs {
		if rec.Status == tx.StatusPending {
			e.commit(rec)
		}
	}
}

// Submit signs txn with the given accounts and sends it, failing the test on error.
func (e *TestEnv) Submit(txn *tx.Transaction, signers ...*Account) cell.Hash {
	e.t.Helper()
	for _, a := range signers {
		s := a.Signer()
		if err := s.Sign(txn); err != nil {
			e.t.Fatalf("Submit: signing for %s: %v", a, err)
		}
	}
	h, err := e.SendTransaction(context.Background(), txn)
	if err != nil {
		e.t.Fatalf("Submit: %v", err)
	}
	return h
}

// Sent returns every transaction accepted by SendTransaction.
func (e *TestEnv) Sent() []*tx.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*tx.Transaction(nil), e.sent...)
}

// IsLive reports whether op is an unspent cell.
func (e *TestEnv) IsLive(op cell.OutPoint) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.live {
		if *c.OutPoint == op {
			return true
		}
	}
	return false
}

// LiveCells returns the live cells locked by lock.
func (e *TestEnv) LiveCells(lock cell.Script) []cell.Cell {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []cell.Cell
	for _, c := range e.live {
		if c.Lock().Equal(lock) {
			out = append(out, c)
		}
	}
	return out
}

// Balance sums the capacity of the live cells locked by lock.
func (e *TestEnv) Balance(lock cell.Script) ckbamount.Shannons {
	var sum ckbamount.Shannons
	for _, c := range e.LiveCells(lock) {
		sum += c.Capacity()
	}
	return sum
}

func matchScript(pattern cell.Script, s *cell.Script) bool {
	return s != nil && pattern.SameCode(*s) && bytes.HasPrefix(s.Args, pattern.Args)
}

func matchKey(key tx.SearchKey, c cell.Cell) bool {
	var primary, other *cell.Script
	lock := c.Lock()
	if key.ScriptType == tx.ScriptTypeType {
		primary, other = c.Type(), &lock
	} else {
		primary, other = &lock, c.Type()
	}
	if !matchScript(key.Script, primary) {
		return false
	}
	if key.Filter == nil {
		return true
	}
	if key.Filter.Script != nil && !matchScript(*key.Filter.Script, other) {
		return false
	}
	if r := key.Filter.OutputDataLen; r != nil {
		n := uint64(len(c.Data))
		if n < r[0] || n >= r[1] {
			return false
		}
	}
	return true
}

func (e *TestEnv) FindCells(ctx context.Context, key tx.SearchKey, order tx.SearchOrder, limit int) iter.Seq2[cell.Cell, error] {
	return func(yield func(cell.Cell, error) bool) {
		e.mu.Lock()
		var found []cell.Cell
		for _, c := range e.live {
			if matchKey(key, c) {
				found = append(found, c)
			}
		}
		e.mu.Unlock()
		if order == tx.OrderDesc {
			for i, j := 0, len(found)-1; i < j; i, j = i+1, j-1 {
				found[i], found[j] = found[j], found[i]
			}
		}
		for _, c := range found {
			if err := ctx.Err(); err != nil {
				yield(cell.Cell{}, err)
				return
			}
			if !yield(c, nil) {
				return
			}
		}
	}
}

func (e *TestEnv) GetTipHeader(context.Context) (cell.Header, error) {
	return e.Tip(), nil
}

func (e *TestEnv) GetHeaderByNumber(_ context.Context, number uint64) (cell.Header, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if number >= uint64(len(e.headers)) {
		return cell.Header{}, fmt.Errorf("%w: header %d", tx.ErrNotFound, number)
	}
	return e.headers[number], nil
}

func (e *TestEnv) GetHeaderByHash(_ context.Context, hash cell.Hash) (cell.Header, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok := e.byHash[hash]
	if !ok {
		return cell.Header{}, fmt.Errorf("%w: header %s", tx.ErrNotFound, hash)
	}
	return e.headers[i], nil
}

func (e *TestEnv) GetTransaction(_ context.Context, hash cell.Hash) (*tx.TransactionRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.txs[hash]
	if !ok {
		return nil, fmt.Errorf("%w: transaction %s", tx.ErrNotFound, hash)
	}
	cp := *rec
	return &cp, nil
}

func (e *TestEnv) GetFeeRate(context.Context) (ckbamount.FeeRate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.feeRate, nil
}

// SendTransaction accepts txn if every input is live and commits it in a new
// block, unless commits are held.
func (e *TestEnv) SendTransaction(_ context.Context, txn *tx.Transaction) (cell.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.sendErr; err != nil {
		e.sendErr = nil
		return cell.Hash{}, err
	}
	live := make(map[cell.OutPoint]bool, len(e.live))
	for _, c := range e.live {
		live[*c.OutPoint] = true
	}
	inputs := make([]cell.OutPoint, len(txn.Inputs))
	for i, in := range txn.Inputs {
		op := in.OutPoint()
		if !live[op] {
			return cell.Hash{}, fmt.Errorf("input %d %s is not live", i, op)
		}
		inputs[i] = op
	}
	rec := &tx.TransactionRecord{
		Hash:        txn.Hash(),
		Inputs:      inputs,
		Outputs:     append([]cell.Output(nil), txn.Outputs...),
		OutputsData: append([][]byte(nil), txn.OutputsData...),
		Status:      tx.StatusPending,
	}
	e.sent = append(e.sent, txn)
	if e.pending {
		e.txs[rec.Hash] = rec
		return rec.Hash, nil
	}
	e.commit(rec)
	return rec.Hash, nil
}
