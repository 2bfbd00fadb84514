// Package bot runs the iCKB matching bot: each cycle it reads the pool and
// the order book, searches for the most profitable set of order matches,
// keeps its iCKB balance inside a band through pool deposits and
// withdrawals, and submits the result as one transaction.
package bot

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"math/rand/v2"
	"time"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/dao"
	"github.com/LeJamon/goickb/internal/core/ickb"
	"github.com/LeJamon/goickb/internal/core/order"
	"github.com/LeJamon/goickb/internal/core/tx"
	"github.com/LeJamon/goickb/internal/log"
)

var (
	// ErrCommitTimeout is returned when a submitted transaction is not
	// committed within the commit timeout.
	ErrCommitTimeout = errors.New("transaction not committed in time")

	// ErrRejected is returned when the ledger rejects a submitted transaction.
	ErrRejected = errors.New("transaction rejected")
)

// Recorder persists execution log records.
type Recorder interface {
	Record(ctx context.Context, r *Record) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, r *Record) error

func (f RecorderFunc) Record(ctx context.Context, r *Record) error { return f(ctx, r) }

// Bot is a matching bot bound to one wallet.
type Bot struct {
	client tx.Client
	signer tx.Signer
	ickb   *ickb.Manager
	orders *order.Manager
	config *Config

	logger   log.Logger
	metrics  *Metrics
	clock    Clock
	recorder Recorder
}

// BotOption sets an optional parameter on the Bot.
type BotOption func(*Bot)

// WithLogger sets the logger.
func WithLogger(logger log.Logger) BotOption {
	return func(b *Bot) {
		b.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) BotOption {
	return func(b *Bot) {
		b.metrics = metrics
	}
}

// WithClock replaces the wall clock.
func WithClock(clock Clock) BotOption {
	return func(b *Bot) {
		b.clock = clock
	}
}

// WithRecorder persists every cycle record.
func WithRecorder(r Recorder) BotOption {
	return func(b *Bot) {
		b.recorder = r
	}
}

// New returns a bot spending the cells of signer's lock.
func New(client tx.Client, signer tx.Signer, im *ickb.Manager, om *order.Manager, config *Config, opts ...BotOption) (*Bot, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bot config: %w", err)
	}
	b := &Bot{
		client:  client,
		signer:  signer,
		ickb:    im,
		orders:  om,
		config:  config,
		logger:  log.NewNopLogger(),
		metrics: NopMetrics(),
		clock:   SystemClock(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Run executes cycles until ctx is done, pausing a randomized interval
// between them. Cycle errors are logged and never stop the loop.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("bot started", "lock", b.signer.Lock().String())
	for {
		if _, err := b.Cycle(ctx); err != nil && ctx.Err() == nil {
			b.logger.Error("cycle failed", "err", err)
		}
		if err := b.clock.Sleep(ctx, b.pause()); err != nil {
			b.logger.Info("bot stopped")
			return err
		}
	}
}

// pause is uniform in [interval/2, 3*interval/2).
func (b *Bot) pause() time.Duration {
	d := b.config.SleepInterval
	return d/2 + rand.N(d)
}

// Cycle runs one iteration and returns its record, which is also logged
// and handed to the recorder. The record carries the error, if any.
func (b *Bot) Cycle(ctx context.Context) (*Record, error) {
	start := b.clock.Now()
	rec := newRecord(start)
	err := b.cycle(ctx, rec)
	rec.Elapsed = b.clock.Now().Sub(start)
	b.metrics.Cycles.Add(1)
	if err != nil {
		rec.Error = err.Error()
		b.metrics.Errors.Add(1)
	}
	if !log.Object(b.logger, "cycle", "record", rec) {
		b.logger.Info("cycle", "id", rec.ID, "matched", rec.MatchedOrders, "tx", rec.TxHash, "err", rec.Error)
	}
	if b.recorder != nil {
		if rerr := b.recorder.Record(ctx, rec); rerr != nil {
			b.logger.Error("recording cycle", "id", rec.ID, "err", rerr)
		}
	}
	return rec, err
}

func (b *Bot) cycle(ctx context.Context, rec *Record) error {
	s, err := b.fetchState(ctx)
	if err != nil {
		return err
	}
	rec.Balances = s.balances()
	b.metrics.CkbBalance.Set(rec.Balances.CkbTotal().CKB().InexactFloat64())
	udt, _ := new(big.Float).Quo(new(big.Float).SetInt(rec.Balances.UdtAvailable), big.NewFloat(1e8)).Float64()
	b.metrics.UdtBalance.Set(udt)

	base, matchable := b.baseStep(s, rec)
	root := tx.New()
	if err := base(root); err != nil {
		return err
	}

	buildStart := b.clock.Now()
	best := b.newOptimizer(ctx, s, root, base, matchable).optimize()
	b.metrics.BuildSeconds.Observe(b.clock.Now().Sub(buildStart).Seconds())
	if !best.ok {
		return fmt.Errorf("%w: %w", ErrNoCandidate, best.err)
	}
	if best.matched == 0 && best.deposits == 0 && best.withdrawalRequests == 0 && rec.Receipts == 0 && rec.Withdrawals == 0 && rec.Melted == 0 {
		b.logger.Debug("nothing to do", "tip", s.tip.Number)
		return nil
	}
	if best.score.Sign() < 0 {
		b.logger.Debug("best candidate loses value", "score", best.score)
		return nil
	}
	rec.MatchedOrders = best.matched
	rec.Deposits = best.deposits
	rec.WithdrawalRequests = best.withdrawalRequests
	rec.Fee = best.fee
	rec.Gain = best.score
	b.metrics.MatchedOrders.Set(float64(best.matched))
	b.metrics.Deposits.Set(float64(best.deposits))
	b.metrics.WithdrawalRequests.Set(float64(best.withdrawalRequests))
	b.metrics.Fee.Set(float64(best.fee))

	return b.submit(ctx, best.tx, rec)
}

// baseStep collects what every cycle does regardless of matches:
// converting receipts, completing matured withdrawals and melting the
// bot's own fulfilled orders. It returns the step appending them and the
// orders open to matching.
func (b *Bot) baseStep(s *state, rec *Record) (step, []*order.Group) {
	lock := b.signer.Lock()
	ready := s.readyWithdrawals()
	var melt, matchable []*order.Group
	for _, g := range s.orders {
		switch {
		case !g.IsOwnedBy(lock):
			matchable = append(matchable, g)
		case g.Order.IsFulfilled():
			melt = append(melt, g)
		}
	}
	rec.Receipts = len(s.receipts)
	rec.Withdrawals = len(ready)
	rec.Melted = len(melt)

	return func(t *tx.Transaction) error {
		if err := b.ickb.AddReceipts(t, s.receipts); err != nil {
			return fmt.Errorf("adding receipts: %w", err)
		}
		if err := b.ickb.WithdrawOwned(t, ready, dao.Options{IsReadyOnly: true}); err != nil {
			return fmt.Errorf("adding withdrawals: %w", err)
		}
		if err := b.orders.Melt(t, melt); err != nil {
			return fmt.Errorf("melting orders: %w", err)
		}
		return nil
	}, matchable
}

func (b *Bot) submit(ctx context.Context, t *tx.Transaction, rec *Record) error {
	if err := b.signer.Sign(t); err != nil {
		return fmt.Errorf("signing: %w", err)
	}
	hash, err := b.client.SendTransaction(ctx, t)
	if err != nil {
		return fmt.Errorf("sending: %w", err)
	}
	rec.TxHash = &hash
	b.metrics.Submitted.Add(1)
	b.logger.Info("transaction sent", "hash", hash.String(), "matched", rec.MatchedOrders, "fee", rec.Fee.String())
	return b.waitCommit(ctx, hash)
}

// waitCommit polls the transaction status until it is committed, rejected,
// or the commit timeout elapses.
func (b *Bot) waitCommit(ctx context.Context, hash cell.Hash) error {
	deadline := b.clock.Now().Add(b.config.CommitTimeout)
	for {
		r, err := b.client.GetTransaction(ctx, hash)
		switch {
		case err == nil && r.Status == tx.StatusCommitted:
			return nil
		case err == nil && r.Status == tx.StatusRejected:
			return fmt.Errorf("%w: %s: %s", ErrRejected, hash, r.Reason)
		case err != nil && !errors.Is(err, tx.ErrNotFound):
			return fmt.Errorf("polling %s: %w", hash, err)
		}
		if !b.clock.Now().Before(deadline) {
			return fmt.Errorf("%w: %s after %s", ErrCommitTimeout, hash, b.config.CommitTimeout)
		}
		if err := b.clock.Sleep(ctx, b.config.PollInterval); err != nil {
			return err
		}
	}
}
