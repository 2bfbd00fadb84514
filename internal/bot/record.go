package bot

import (
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
)

// Balances is a snapshot of the bot's funds. Unavailable amounts are locked
// in withdrawal requests that have not matured yet.
type Balances struct {
	CkbAvailable   ckbamount.Shannons
	CkbUnavailable ckbamount.Shannons
	UdtAvailable   *big.Int
}

// CkbTotal is the available plus the unavailable CKB.
func (b Balances) CkbTotal() ckbamount.Shannons {
	return b.CkbAvailable + b.CkbUnavailable
}

// Record is the execution log entry of one cycle.
type Record struct {
	ID      uuid.UUID
	Start   time.Time
	Elapsed time.Duration

	Balances Balances

	MatchedOrders      int
	Deposits           int
	WithdrawalRequests int
	Withdrawals        int
	Receipts           int
	Melted             int

	Fee  ckbamount.Shannons
	Gain *big.Int

	TxHash *cell.Hash
	Error  string
}

func newRecord(start time.Time) *Record {
	return &Record{
		ID:       uuid.New(),
		Start:    start,
		Balances: Balances{UdtAvailable: new(big.Int)},
		Gain:     new(big.Int),
	}
}

// Submitted reports whether the cycle sent a transaction.
func (r *Record) Submitted() bool { return r.TxHash != nil }

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (r *Record) MarshalZerologObject(e *zerolog.Event) {
	e.Str("id", r.ID.String()).
		Time("start", r.Start).
		Dur("elapsed", r.Elapsed).
		Str("ckb_available", r.Balances.CkbAvailable.String()).
		Str("ckb_unavailable", r.Balances.CkbUnavailable.String()).
		Str("ickb_available", r.Balances.UdtAvailable.String()).
		Int("matched_orders", r.MatchedOrders).
		Int("deposits", r.Deposits).
		Int("withdrawal_requests", r.WithdrawalRequests).
		Int("withdrawals", r.Withdrawals).
		Int("receipts", r.Receipts).
		Int("melted", r.Melted).
		Str("fee", r.Fee.String()).
		Str("gain", r.Gain.String())
	if r.TxHash != nil {
		e.Str("tx_hash", r.TxHash.String())
	}
	if r.Error != "" {
		e.Str("error", r.Error)
	}
}
