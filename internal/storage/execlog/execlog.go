// Package execlog persists the bot's per-cycle execution log in sqlite or,
// for postgres:// DSNs, in PostgreSQL.
package execlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite"

	"github.com/LeJamon/goickb/internal/bot"
	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
)

var (
	// ErrDatabaseClosed indicates the store was closed.
	ErrDatabaseClosed = errors.New("database connection is closed")

	// ErrInvalidDataFormat indicates a stored row that cannot be decoded.
	ErrInvalidDataFormat = errors.New("invalid data format")
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS cycles (
		id TEXT PRIMARY KEY,
		start_ns BIGINT NOT NULL,
		elapsed_ns BIGINT NOT NULL,
		ckb_available BIGINT NOT NULL,
		ckb_unavailable BIGINT NOT NULL,
		ickb_available TEXT NOT NULL,
		matched_orders INTEGER NOT NULL,
		deposits INTEGER NOT NULL,
		withdrawal_requests INTEGER NOT NULL,
		withdrawals INTEGER NOT NULL,
		receipts INTEGER NOT NULL,
		melted INTEGER NOT NULL,
		fee BIGINT NOT NULL,
		gain TEXT NOT NULL,
		tx_hash TEXT,
		error TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cycles_start ON cycles(start_ns)`,
}

// Store records cycles. It implements bot.Recorder.
type Store struct {
	db *sql.DB
	// numbered is set for drivers using $n placeholders.
	numbered bool
}

var _ bot.Recorder = (*Store)(nil)

// driverFor picks the database driver for dsn.
func driverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

// Open opens the database at dsn and creates the schema. Any dsn that is
// not a postgres URL is a sqlite path, ":memory:" included.
func Open(ctx context.Context, dsn string) (*Store, error) {
	driver := driverFor(dsn)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening execution log: %w", err)
	}
	if driver == "sqlite" {
		// A single connection keeps in-memory databases shared.
		db.SetMaxOpenConns(1)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}
	return &Store{db: db, numbered: driver == "postgres"}, nil
}

// rebind rewrites ? placeholders for the store's driver.
func (s *Store) rebind(query string) string {
	if !s.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return ErrDatabaseClosed
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Record stores r.
func (s *Store) Record(ctx context.Context, r *bot.Record) error {
	if s.db == nil {
		return ErrDatabaseClosed
	}
	var txHash sql.NullString
	if r.TxHash != nil {
		txHash = sql.NullString{String: r.TxHash.String(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO cycles (id, start_ns, elapsed_ns, ckb_available, ckb_unavailable, ickb_available,
			matched_orders, deposits, withdrawal_requests, withdrawals, receipts, melted, fee, gain, tx_hash, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		r.ID.String(), r.Start.UnixNano(), int64(r.Elapsed),
		int64(r.Balances.CkbAvailable), int64(r.Balances.CkbUnavailable), r.Balances.UdtAvailable.String(),
		r.MatchedOrders, r.Deposits, r.WithdrawalRequests, r.Withdrawals, r.Receipts, r.Melted,
		int64(r.Fee), r.Gain.String(), txHash, r.Error,
	)
	if err != nil {
		return fmt.Errorf("recording cycle %s: %w", r.ID, err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*bot.Record, error) {
	if s.db == nil {
		return nil, ErrDatabaseClosed
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, start_ns, elapsed_ns, ckb_available, ckb_unavailable, ickb_available,
			matched_orders, deposits, withdrawal_requests, withdrawals, receipts, melted, fee, gain, tx_hash, error
		FROM cycles ORDER BY start_ns DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("querying cycles: %w", err)
	}
	defer rows.Close()

	var out []*bot.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRecord(rows *sql.Rows) (*bot.Record, error) {
	var (
		id, udt, gain, errMsg string
		start, elapsed        int64
		ckbAvail, ckbUnavail  int64
		fee                   int64
		txHash                sql.NullString
		r                     bot.Record
	)
	err := rows.Scan(&id, &start, &elapsed, &ckbAvail, &ckbUnavail, &udt,
		&r.MatchedOrders, &r.Deposits, &r.WithdrawalRequests, &r.Withdrawals, &r.Receipts, &r.Melted,
		&fee, &gain, &txHash, &errMsg)
	if err != nil {
		return nil, fmt.Errorf("scanning cycle: %w", err)
	}
	if r.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: id %q", ErrInvalidDataFormat, id)
	}
	var ok bool
	if r.Balances.UdtAvailable, ok = new(big.Int).SetString(udt, 10); !ok {
		return nil, fmt.Errorf("%w: ickb balance %q", ErrInvalidDataFormat, udt)
	}
	if r.Gain, ok = new(big.Int).SetString(gain, 10); !ok {
		return nil, fmt.Errorf("%w: gain %q", ErrInvalidDataFormat, gain)
	}
	if txHash.Valid {
		h, err := cell.ParseHash(txHash.String)
		if err != nil {
			return nil, fmt.Errorf("%w: tx hash: %v", ErrInvalidDataFormat, err)
		}
		r.TxHash = &h
	}
	r.Start = time.Unix(0, start).UTC()
	r.Elapsed = time.Duration(elapsed)
	r.Balances.CkbAvailable = ckbamount.Shannons(ckbAvail)
	r.Balances.CkbUnavailable = ckbamount.Shannons(ckbUnavail)
	r.Fee = ckbamount.Shannons(fee)
	r.Error = errMsg
	return &r, nil
}

// Summary aggregates every recorded cycle.
type Summary struct {
	Cycles    int
	Submitted int
	Failed    int
	Matched   int
	Fees      ckbamount.Shannons
}

// Summary returns totals over all cycles.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	if s.db == nil {
		return Summary{}, ErrDatabaseClosed
	}
	var sum Summary
	var fees int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN tx_hash IS NOT NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN error <> '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(matched_orders), 0),
			COALESCE(SUM(fee), 0)
		FROM cycles`).Scan(&sum.Cycles, &sum.Submitted, &sum.Failed, &sum.Matched, &fees)
	if err != nil {
		return Summary{}, fmt.Errorf("summarizing cycles: %w", err)
	}
	sum.Fees = ckbamount.Shannons(fees)
	return sum, nil
}
