// Package tx implements the transaction accumulator every protocol component
// appends to: ordered inputs with their resolved cells, outputs with data, cell
// and header deps, witnesses, and a registry of asset balance handlers.
package tx

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/LeJamon/goickb/internal/codec/molecule"
	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
	"github.com/LeJamon/goickb/internal/crypto"
)

// Input is a consumed cell together with its since constraint.
type Input struct {
	Cell  cell.Cell
	Since uint64
}

// OutPoint returns the previous output the input consumes.
func (in Input) OutPoint() cell.OutPoint {
	return *in.Cell.OutPoint
}

// Serialize returns the molecule CellInput struct.
func (in Input) Serialize() []byte {
	return molecule.Struct(molecule.Uint64(in.Since), in.OutPoint().Serialize())
}

// Transaction is the mutable accumulator. Components only ever append to it;
// the finished value is consumed by fee completion and signing.
type Transaction struct {
	Version     uint32
	CellDeps    []cell.CellDep
	HeaderDeps  []cell.Hash
	Inputs      []Input
	Outputs     []cell.Output
	OutputsData [][]byte
	Witnesses   [][]byte

	handlers  []AssetHandler
	resolvers []CapacityResolver

	// outputsLimit is the tightest outputs cap requested by any component, 0 if none.
	outputsLimit int

	cache *lookupCache
}

// New returns an empty transaction.
func New() *Transaction {
	return &Transaction{cache: newLookupCache()}
}

// Clone returns a copy that can be extended independently. Header and
// transaction lookups stay shared since they only hold immutable ledger data.
func (t *Transaction) Clone() *Transaction {
	c := &Transaction{
		Version:      t.Version,
		CellDeps:     append([]cell.CellDep(nil), t.CellDeps...),
		HeaderDeps:   append([]cell.Hash(nil), t.HeaderDeps...),
		Inputs:       append([]Input(nil), t.Inputs...),
		Outputs:      append([]cell.Output(nil), t.Outputs...),
		OutputsData:  make([][]byte, len(t.OutputsData)),
		Witnesses:    make([][]byte, len(t.Witnesses)),
		handlers:     append([]AssetHandler(nil), t.handlers...),
		resolvers:    append([]CapacityResolver(nil), t.resolvers...),
		outputsLimit: t.outputsLimit,
		cache:        t.lookups(),
	}
	for i, d := range t.OutputsData {
		c.OutputsData[i] = bytes.Clone(d)
	}
	for i, w := range t.Witnesses {
		c.Witnesses[i] = bytes.Clone(w)
	}
	return c
}

// Fresh returns an empty transaction sharing t's header and transaction lookups.
func (t *Transaction) Fresh() *Transaction {
	return &Transaction{cache: t.lookups()}
}

// AddCellDeps appends deps not already present.
func (t *Transaction) AddCellDeps(deps ...cell.CellDep) {
	for _, d := range deps {
		found := false
		for _, e := range t.CellDeps {
			if e == d {
				found = true
				break
			}
		}
		if !found {
			t.CellDeps = append(t.CellDeps, d)
		}
	}
}

// AddHeaderDeps appends headers not already present and memoizes them.
func (t *Transaction) AddHeaderDeps(headers ...cell.Header) {
	for _, h := range headers {
		t.lookups().putHeader(h)
		if _, ok := t.HeaderDepIndex(h.Hash); !ok {
			t.HeaderDeps = append(t.HeaderDeps, h.Hash)
		}
	}
}

// HeaderDepIndex returns the position of hash in the header deps.
func (t *Transaction) HeaderDepIndex(hash cell.Hash) (int, bool) {
	for i, h := range t.HeaderDeps {
		if h == hash {
			return i, true
		}
	}
	return 0, false
}

// AddInput appends a committed cell as input.
func (t *Transaction) AddInput(c cell.Cell, since uint64) error {
	if c.OutPoint == nil {
		return ErrUncommittedInput
	}
	for _, in := range t.Inputs {
		if in.OutPoint() == *c.OutPoint {
			return fmt.Errorf("%w: %s", ErrDuplicateInput, c.OutPoint)
		}
	}
	t.Inputs = append(t.Inputs, Input{Cell: c, Since: since})
	return nil
}

// InputIndex returns the position of the input consuming op.
func (t *Transaction) InputIndex(op cell.OutPoint) (int, bool) {
	for i, in := range t.Inputs {
		if in.OutPoint() == op {
			return i, true
		}
	}
	return 0, false
}

// AddOutput appends an output and returns its index.
func (t *Transaction) AddOutput(out cell.Output, data []byte) int {
	c := cell.New(out, data, nil)
	t.Outputs = append(t.Outputs, c.Output)
	t.OutputsData = append(t.OutputsData, c.Data)
	return len(t.Outputs) - 1
}

// OutputCell returns output i with its data as an uncommitted cell.
func (t *Transaction) OutputCell(i int) cell.Cell {
	return cell.Cell{Output: t.Outputs[i], Data: t.OutputsData[i]}
}

// OutputCells returns all outputs as uncommitted cells.
func (t *Transaction) OutputCells() []cell.Cell {
	cells := make([]cell.Cell, len(t.Outputs))
	for i := range t.Outputs {
		cells[i] = t.OutputCell(i)
	}
	return cells
}

// InputCells returns the resolved input cells.
func (t *Transaction) InputCells() []cell.Cell {
	cells := make([]cell.Cell, len(t.Inputs))
	for i, in := range t.Inputs {
		cells[i] = in.Cell
	}
	return cells
}

// LimitOutputs records an outputs cap; the tightest cap wins.
func (t *Transaction) LimitOutputs(max int) {
	if t.outputsLimit == 0 || max < t.outputsLimit {
		t.outputsLimit = max
	}
}

// CheckOutputsLimit verifies the outputs count against the recorded cap.
func (t *Transaction) CheckOutputsLimit() error {
	if t.outputsLimit > 0 && len(t.Outputs) > t.outputsLimit {
		return fmt.Errorf("%w: %d > %d", ErrTooManyOutputs, len(t.Outputs), t.outputsLimit)
	}
	return nil
}

// WitnessArgsAt decodes witness i; missing witnesses decode as empty.
func (t *Transaction) WitnessArgsAt(i int) (WitnessArgs, error) {
	if i >= len(t.Witnesses) {
		return WitnessArgs{}, nil
	}
	return ParseWitnessArgs(t.Witnesses[i])
}

// SetWitnessArgs stores w at position i, padding with empty witnesses.
func (t *Transaction) SetWitnessArgs(i int, w WitnessArgs) {
	t.SetWitness(i, w.Serialize())
}

// SetWitness stores raw witness bytes at position i.
func (t *Transaction) SetWitness(i int, b []byte) {
	for len(t.Witnesses) <= i {
		t.Witnesses = append(t.Witnesses, []byte{})
	}
	t.Witnesses[i] = b
}

// RawSerialize returns the molecule RawTransaction encoding.
func (t *Transaction) RawSerialize() []byte {
	deps := make([][]byte, len(t.CellDeps))
	for i, d := range t.CellDeps {
		deps[i] = d.Serialize()
	}
	headers := make([][]byte, len(t.HeaderDeps))
	for i, h := range t.HeaderDeps {
		headers[i] = append([]byte(nil), h[:]...)
	}
	inputs := make([][]byte, len(t.Inputs))
	for i, in := range t.Inputs {
		inputs[i] = in.Serialize()
	}
	outputs := make([][]byte, len(t.Outputs))
	for i, o := range t.Outputs {
		outputs[i] = o.Serialize()
	}
	data := make([][]byte, len(t.OutputsData))
	for i, d := range t.OutputsData {
		data[i] = molecule.Bytes(d)
	}
	return molecule.Table(
		molecule.Uint32(t.Version),
		molecule.FixVec(deps),
		molecule.FixVec(headers),
		molecule.FixVec(inputs),
		molecule.DynVec(outputs),
		molecule.DynVec(data),
	)
}

// Serialize returns the molecule Transaction encoding.
func (t *Transaction) Serialize() []byte {
	witnesses := make([][]byte, len(t.Witnesses))
	for i, w := range t.Witnesses {
		witnesses[i] = molecule.Bytes(w)
	}
	return molecule.Table(t.RawSerialize(), molecule.DynVec(witnesses))
}

// Hash returns the transaction hash.
func (t *Transaction) Hash() cell.Hash {
	return cell.Hash(crypto.Blake2b256(t.RawSerialize()))
}

// Size returns the serialized size in bytes.
func (t *Transaction) Size() int {
	return len(t.Serialize())
}

// Fee returns the fee for the current size at rate.
func (t *Transaction) Fee(rate ckbamount.FeeRate) ckbamount.Shannons {
	return rate.Fee(t.Size())
}

// OutputsCapacity sums the output capacities.
func (t *Transaction) OutputsCapacity() ckbamount.Shannons {
	var sum ckbamount.Shannons
	for _, o := range t.Outputs {
		sum += o.Capacity
	}
	return sum
}

func (t *Transaction) lookups() *lookupCache {
	if t.cache == nil {
		t.cache = newLookupCache()
	}
	return t.cache
}

// lookupCache memoizes ledger reads for a transaction and its clones.
type lookupCache struct {
	mu      sync.Mutex
	headers map[cell.Hash]cell.Header
	txs     map[cell.Hash]txEntry
}

type txEntry struct {
	record *TransactionRecord
	header cell.Header
}

func newLookupCache() *lookupCache {
	return &lookupCache{
		headers: make(map[cell.Hash]cell.Header),
		txs:     make(map[cell.Hash]txEntry),
	}
}

func (c *lookupCache) putHeader(h cell.Header) {
	c.mu.Lock()
	c.headers[h.Hash] = h
	c.mu.Unlock()
}

func (c *lookupCache) header(hash cell.Hash) (cell.Header, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.headers[hash]
	return h, ok
}

func (c *lookupCache) headerByNumber(n uint64) (cell.Header, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, h := range c.headers {
		if h.Number == n {
			return h, true
		}
	}
	return cell.Header{}, false
}

func (c *lookupCache) putTx(e txEntry) {
	c.mu.Lock()
	c.txs[e.record.Hash] = e
	c.headers[e.header.Hash] = e.header
	c.mu.Unlock()
}

func (c *lookupCache) tx(hash cell.Hash) (txEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.txs[hash]
	return e, ok
}
