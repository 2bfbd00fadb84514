package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
	"github.com/LeJamon/goickb/internal/core/tx"
)

// JSON-RPC 2.0 Request
type JsonRpcRequest struct {
	JsonRpc string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      uint64        `json:"id"`
}

// JSON-RPC 2.0 Response
type JsonRpcResponse struct {
	JsonRpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RpcError       `json:"error,omitempty"`
	ID      uint64          `json:"id"`
}

// RpcError is an error object returned by the node.
type RpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// hexUint64 is a 0x-prefixed hex quantity.
type hexUint64 uint64

func (h hexUint64) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + strconv.FormatUint(uint64(h), 16))
}

func (h *hexUint64) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if !strings.HasPrefix(s, "0x") {
		return fmt.Errorf("quantity %q lacks 0x prefix", s)
	}
	v, err := strconv.ParseUint(s[2:], 16, 64)
	if err != nil {
		return fmt.Errorf("quantity %q: %w", s, err)
	}
	*h = hexUint64(v)
	return nil
}

// hexBytes is 0x-prefixed hex data.
type hexBytes []byte

func (h hexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + hex.EncodeToString(h))
}

func (h *hexBytes) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if !strings.HasPrefix(s, "0x") {
		return fmt.Errorf("data %q lacks 0x prefix", s)
	}
	out, err := hex.DecodeString(s[2:])
	if err != nil {
		return fmt.Errorf("data %q: %w", s, err)
	}
	*h = out
	return nil
}

// hash is a 0x-prefixed 32-byte hash.
type hash cell.Hash

func (h hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(cell.Hash(h).String())
}

func (h *hash) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := cell.ParseHash(s)
	if err != nil {
		return err
	}
	*h = hash(v)
	return nil
}

type scriptView struct {
	CodeHash hash     `json:"code_hash"`
	HashType string   `json:"hash_type"`
	Args     hexBytes `json:"args"`
}

func newScriptView(s cell.Script) scriptView {
	return scriptView{CodeHash: hash(s.CodeHash), HashType: s.HashType.String(), Args: s.Args}
}

func (v scriptView) script() (cell.Script, error) {
	ht, err := cell.ParseHashType(v.HashType)
	if err != nil {
		return cell.Script{}, err
	}
	return cell.NewScript(cell.Hash(v.CodeHash), ht, v.Args), nil
}

type outPointView struct {
	TxHash hash      `json:"tx_hash"`
	Index  hexUint64 `json:"index"`
}

func newOutPointView(op cell.OutPoint) outPointView {
	return outPointView{TxHash: hash(op.TxHash), Index: hexUint64(op.Index)}
}

func (v outPointView) outPoint() cell.OutPoint {
	return cell.OutPoint{TxHash: cell.Hash(v.TxHash), Index: uint32(v.Index)}
}

type outputView struct {
	Capacity hexUint64   `json:"capacity"`
	Lock     scriptView  `json:"lock"`
	Type     *scriptView `json:"type"`
}

func newOutputView(o cell.Output) outputView {
	v := outputView{Capacity: hexUint64(o.Capacity), Lock: newScriptView(o.Lock)}
	if o.Type != nil {
		t := newScriptView(*o.Type)
		v.Type = &t
	}
	return v
}

func (v outputView) output() (cell.Output, error) {
	lock, err := v.Lock.script()
	if err != nil {
		return cell.Output{}, err
	}
	out := cell.Output{Capacity: ckbamount.Shannons(v.Capacity), Lock: lock}
	if v.Type != nil {
		typ, err := v.Type.script()
		if err != nil {
			return cell.Output{}, err
		}
		out.Type = &typ
	}
	return out, nil
}

type headerView struct {
	Hash       hash      `json:"hash"`
	ParentHash hash      `json:"parent_hash"`
	Number     hexUint64 `json:"number"`
	Epoch      hexUint64 `json:"epoch"`
	Timestamp  hexUint64 `json:"timestamp"`
	Dao        hash      `json:"dao"`
}

func newHeaderView(h cell.Header) headerView {
	return headerView{
		Hash:       hash(h.Hash),
		ParentHash: hash(h.ParentHash),
		Number:     hexUint64(h.Number),
		Epoch:      hexUint64(h.Epoch.Pack()),
		Timestamp:  hexUint64(h.Timestamp),
		Dao:        hash(h.Dao),
	}
}

func (v headerView) header() cell.Header {
	return cell.Header{
		Hash:       cell.Hash(v.Hash),
		ParentHash: cell.Hash(v.ParentHash),
		Number:     uint64(v.Number),
		Epoch:      cell.UnpackEpoch(uint64(v.Epoch)),
		Timestamp:  uint64(v.Timestamp),
		Dao:        [32]byte(v.Dao),
	}
}

type cellDepView struct {
	OutPoint outPointView `json:"out_point"`
	DepType  string       `json:"dep_type"`
}

type inputView struct {
	Since          hexUint64    `json:"since"`
	PreviousOutput outPointView `json:"previous_output"`
}

type transactionView struct {
	Version     hexUint64     `json:"version"`
	CellDeps    []cellDepView `json:"cell_deps"`
	HeaderDeps  []hash        `json:"header_deps"`
	Inputs      []inputView   `json:"inputs"`
	Outputs     []outputView  `json:"outputs"`
	OutputsData []hexBytes    `json:"outputs_data"`
	Witnesses   []hexBytes    `json:"witnesses"`
	Hash        *hash         `json:"hash,omitempty"`
}

func newTransactionView(t *tx.Transaction) transactionView {
	v := transactionView{
		Version:     hexUint64(t.Version),
		CellDeps:    make([]cellDepView, len(t.CellDeps)),
		HeaderDeps:  make([]hash, len(t.HeaderDeps)),
		Inputs:      make([]inputView, len(t.Inputs)),
		Outputs:     make([]outputView, len(t.Outputs)),
		OutputsData: make([]hexBytes, len(t.OutputsData)),
		Witnesses:   make([]hexBytes, len(t.Witnesses)),
	}
	for i, d := range t.CellDeps {
		v.CellDeps[i] = cellDepView{OutPoint: newOutPointView(d.OutPoint), DepType: d.DepType.String()}
	}
	for i, h := range t.HeaderDeps {
		v.HeaderDeps[i] = hash(h)
	}
	for i, in := range t.Inputs {
		v.Inputs[i] = inputView{Since: hexUint64(in.Since), PreviousOutput: newOutPointView(in.OutPoint())}
	}
	for i, o := range t.Outputs {
		v.Outputs[i] = newOutputView(o)
	}
	for i, d := range t.OutputsData {
		v.OutputsData[i] = d
	}
	for i, w := range t.Witnesses {
		v.Witnesses[i] = w
	}
	return v
}

type txStatusView struct {
	Status    string  `json:"status"`
	BlockHash *hash   `json:"block_hash"`
	Reason    *string `json:"reason"`
}

type transactionWithStatusView struct {
	Transaction *transactionView `json:"transaction"`
	TxStatus    txStatusView     `json:"tx_status"`
}

func (v transactionWithStatusView) record(h cell.Hash) (*tx.TransactionRecord, error) {
	rec := &tx.TransactionRecord{Hash: h, Status: tx.TxStatus(v.TxStatus.Status)}
	if v.TxStatus.BlockHash != nil {
		bh := cell.Hash(*v.TxStatus.BlockHash)
		rec.BlockHash = &bh
	}
	if v.TxStatus.Reason != nil {
		rec.Reason = *v.TxStatus.Reason
	}
	if v.Transaction == nil {
		return rec, nil
	}
	t := v.Transaction
	for _, in := range t.Inputs {
		rec.Inputs = append(rec.Inputs, in.PreviousOutput.outPoint())
	}
	for i, o := range t.Outputs {
		out, err := o.output()
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		rec.Outputs = append(rec.Outputs, out)
	}
	for _, d := range t.OutputsData {
		rec.OutputsData = append(rec.OutputsData, []byte(d))
	}
	return rec, nil
}

type searchFilterView struct {
	Script             *scriptView   `json:"script,omitempty"`
	OutputDataLenRange *[2]hexUint64 `json:"output_data_len_range,omitempty"`
}

type searchKeyView struct {
	Script           scriptView        `json:"script"`
	ScriptType       string            `json:"script_type"`
	ScriptSearchMode string            `json:"script_search_mode"`
	Filter           *searchFilterView `json:"filter,omitempty"`
	WithData         bool              `json:"with_data"`
}

func newSearchKeyView(k tx.SearchKey) searchKeyView {
	v := searchKeyView{
		Script:           newScriptView(k.Script),
		ScriptType:       string(k.ScriptType),
		ScriptSearchMode: "prefix",
		WithData:         k.WithData,
	}
	if f := k.Filter; f != nil {
		v.Filter = &searchFilterView{}
		if f.Script != nil {
			s := newScriptView(*f.Script)
			v.Filter.Script = &s
		}
		if r := f.OutputDataLen; r != nil {
			v.Filter.OutputDataLenRange = &[2]hexUint64{hexUint64(r[0]), hexUint64(r[1])}
		}
	}
	return v
}

type indexerCellView struct {
	Output     outputView   `json:"output"`
	OutputData *hexBytes    `json:"output_data"`
	OutPoint   outPointView `json:"out_point"`
}

type getCellsResult struct {
	Objects    []indexerCellView `json:"objects"`
	LastCursor string            `json:"last_cursor"`
}

type feeRateStatistics struct {
	Mean   hexUint64 `json:"mean"`
	Median hexUint64 `json:"median"`
}
