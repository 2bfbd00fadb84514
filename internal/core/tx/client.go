package tx

import (
	"context"
	"iter"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
)

//go:generate mockgen -destination=../../rpc/mocks/mock_client.go -package=mocks github.com/LeJamon/goickb/internal/core/tx Client

// ScriptType selects which script of a cell a search key matches.
type ScriptType string

const (
	ScriptTypeLock ScriptType = "lock"
	ScriptTypeType ScriptType = "type"
)

// SearchOrder is the order cells are returned in.
type SearchOrder string

const (
	OrderAsc  SearchOrder = "asc"
	OrderDesc SearchOrder = "desc"
)

// SearchFilter narrows a search by the other script of the cell.
type SearchFilter struct {
	// Script must match the cell's other script (type when searching by lock
	// and vice versa). Args act as a prefix.
	Script *cell.Script

	// OutputDataLen, when set, restricts the data length to [Min, Max).
	OutputDataLen *[2]uint64
}

// SearchKey selects live cells through the indexer.
type SearchKey struct {
	Script     cell.Script
	ScriptType ScriptType
	Filter     *SearchFilter
	WithData   bool
}

// TxStatus is the lifecycle state of a submitted transaction.
type TxStatus string

const (
	StatusPending   TxStatus = "pending"
	StatusProposed  TxStatus = "proposed"
	StatusCommitted TxStatus = "committed"
	StatusUnknown   TxStatus = "unknown"
	StatusRejected  TxStatus = "rejected"
)

// TransactionRecord is a transaction as reported by the ledger.
type TransactionRecord struct {
	Hash        cell.Hash
	Inputs      []cell.OutPoint
	Outputs     []cell.Output
	OutputsData [][]byte
	Status      TxStatus
	BlockHash   *cell.Hash
	Reason      string
}

// Cell returns output index as a committed cell.
func (r *TransactionRecord) Cell(index uint32) (cell.Cell, bool) {
	if int(index) >= len(r.Outputs) {
		return cell.Cell{}, false
	}
	var data []byte
	if int(index) < len(r.OutputsData) {
		data = r.OutputsData[index]
	}
	op := cell.OutPoint{TxHash: r.Hash, Index: index}
	return cell.New(r.Outputs[index], data, &op), true
}

// Client is the ledger access the builders consume.
type Client interface {
	// FindCells streams live cells matching key.
	FindCells(ctx context.Context, key SearchKey, order SearchOrder, limit int) iter.Seq2[cell.Cell, error]
	GetTipHeader(ctx context.Context) (cell.Header, error)
	GetHeaderByNumber(ctx context.Context, number uint64) (cell.Header, error)
	GetHeaderByHash(ctx context.Context, hash cell.Hash) (cell.Header, error)
	GetTransaction(ctx context.Context, hash cell.Hash) (*TransactionRecord, error)
	GetFeeRate(ctx context.Context) (ckbamount.FeeRate, error)
	SendTransaction(ctx context.Context, tx *Transaction) (cell.Hash, error)
}

// Signer seals a transaction for one lock.
type Signer interface {
	// Lock is the script the signer can unlock; change is sent there.
	Lock() cell.Script

	// Prepare sizes the witness placeholders of the signer's input group so
	// fee estimation sees the final transaction size.
	Prepare(tx *Transaction) error

	// Sign writes signatures into the prepared witnesses.
	Sign(tx *Transaction) error
}
