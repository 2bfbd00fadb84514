package bot

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sort"

	"github.com/LeJamon/goickb/internal/core/ckbamount"
	"github.com/LeJamon/goickb/internal/core/dao"
	"github.com/LeJamon/goickb/internal/core/fund"
	"github.com/LeJamon/goickb/internal/core/ickb"
	"github.com/LeJamon/goickb/internal/core/order"
	"github.com/LeJamon/goickb/internal/core/tx"
)

// ErrNoCandidate is returned when no lattice point yields a fundable transaction.
var ErrNoCandidate = errors.New("no fundable transaction")

// step appends one group of inputs and outputs to a transaction.
type step func(*tx.Transaction) error

// candidate is one evaluated lattice point.
type candidate struct {
	i, j int

	tx  *tx.Transaction
	ok  bool
	err error

	score *big.Int
	fee   ckbamount.Shannons

	matched            int
	deposits           int
	withdrawalRequests int
}

// better reports whether c should replace o as the best point.
func (c *candidate) better(o *candidate) bool {
	return c.ok && (!o.ok || c.score.Cmp(o.score) > 0)
}

type optimizer struct {
	ctx context.Context
	bot *Bot
	s   *state
	// root shares its ledger lookups with every candidate.
	root *tx.Transaction
	base step

	ratio   ickb.Ratio
	ckb2udt []partial
	udt2ckb []partial

	// depositAmount is the unoccupied capacity of one rebalancing deposit.
	depositAmount ckbamount.Shannons
	// withdrawable are the ready pool deposits, earliest maturity first.
	withdrawable []*dao.Deposit

	memo map[[2]int]*candidate
}

func (b *Bot) newOptimizer(ctx context.Context, s *state, root *tx.Transaction, base step, matchable []*order.Group) *optimizer {
	o := &optimizer{
		ctx:   ctx,
		bot:   b,
		s:     s,
		root:  root,
		base:  base,
		ratio: ickb.RatioAt(s.tip, true),
		memo:  make(map[[2]int]*candidate),
	}
	ckbStep := b.config.CkbAllowanceStep.Big()
	udtStep := ickb.Convert(true, ckbStep, o.ratio)
	o.ckb2udt = partialsFrom(sortOrders(matchable, true), true, udtStep, b.config.MaxPartials)
	o.udt2ckb = partialsFrom(sortOrders(matchable, false), false, ckbStep, b.config.MaxPartials)

	o.depositAmount = ckbamount.FromBig(ickb.ConvertAtHeader(false, big.NewInt(ickb.SoftCap), s.tip, false))

	for _, d := range s.poolDeposits {
		if d.IsReady {
			o.withdrawable = append(o.withdrawable, d)
		}
	}
	slices.SortStableFunc(o.withdrawable, func(a, b *dao.Deposit) int {
		return a.Maturity.Compare(b.Maturity)
	})
	if len(o.withdrawable) > b.config.MaxWithdrawals {
		o.withdrawable = o.withdrawable[:b.config.MaxWithdrawals]
	}
	return o
}

// optimize hill-climbs the lattice from (0,0), moving to the best of the
// neighbors (i+1,j), (i,j+1) and (i+1,j+1) while it strictly improves.
func (o *optimizer) optimize() *candidate {
	best := o.eval(0, 0)
	for {
		next := best
		for _, d := range [...][2]int{{1, 0}, {0, 1}, {1, 1}} {
			i, j := best.i+d[0], best.j+d[1]
			if i >= len(o.ckb2udt) || j >= len(o.udt2ckb) {
				continue
			}
			if c := o.eval(i, j); c.better(next) {
				next = c
			}
		}
		if next == best {
			return best
		}
		best = next
	}
}

func (o *optimizer) eval(i, j int) *candidate {
	key := [2]int{i, j}
	if c, ok := o.memo[key]; ok {
		return c
	}
	c := o.evaluate(i, j)
	o.memo[key] = c
	return c
}

func (o *optimizer) evaluate(i, j int) *candidate {
	c := &candidate{i: i, j: j, score: new(big.Int)}
	p, q := o.ckb2udt[i], o.udt2ckb[j]

	fills := slices.Concat(p.fills, q.fills)
	matches := func(t *tx.Transaction) error {
		for _, f := range fills {
			if err := o.bot.orders.AddMatch(t, f.group.Order, f.match); err != nil {
				return err
			}
		}
		return nil
	}
	c.matched = len(fills)
	ckbGain := new(big.Int).Add(p.ckbGain, q.ckbGain)
	udtGain := new(big.Int).Add(p.udtGain, q.udtGain)

	projected := new(big.Int).Add(o.s.udtBalance, udtGain)
	funded, deposits, requests, err := o.rebalance(matches, projected)
	if err != nil {
		c.err = err
		return c
	}
	c.tx, c.ok = funded, true
	c.deposits, c.withdrawalRequests = deposits, requests

	in, err := funded.InputsCapacity(o.ctx, o.bot.client)
	if err != nil {
		c.ok, c.err = false, err
		return c
	}
	c.fee = in - funded.OutputsCapacity()

	if c.matched == 0 {
		return c
	}
	c.score.Add(ickb.Convert(false, udtGain, o.ratio), ckbGain)
	c.score.Sub(c.score, new(big.Int).Mul(big.NewInt(3), c.fee.Big()))
	return c
}

// rebalance funds t together with the deposits or pool withdrawal requests
// that move the projected iCKB balance toward the configured band. The
// count is the largest one that can still be funded.
func (o *optimizer) rebalance(matches step, projected *big.Int) (*tx.Transaction, int, int, error) {
	cfg := o.bot.config
	switch {
	case projected.Cmp(cfg.MinUdt) < 0:
		deficit := new(big.Int).Sub(cfg.MinUdt, projected)
		maxK := ceilDiv(deficit, big.NewInt(ickb.SoftCap))
		k := o.search(maxK, func(n int) (*tx.Transaction, error) {
			return o.build(matches, n, 0)
		})
		funded, err := o.build(matches, k, 0)
		return funded, k, 0, err

	case projected.Cmp(cfg.MaxUdt) > 0:
		excess := new(big.Int).Sub(projected, cfg.MaxUdt)
		cum := new(big.Int)
		maxN := 0
		for _, d := range o.withdrawable {
			cum.Add(cum, ickb.DepositValue(d.Cell.FreeCapacity(), d.Header))
			if cum.Cmp(excess) > 0 {
				break
			}
			maxN++
		}
		n := o.search(maxN, func(n int) (*tx.Transaction, error) {
			return o.build(matches, 0, n)
		})
		funded, err := o.build(matches, 0, n)
		return funded, 0, n, err

	default:
		funded, err := o.build(matches, 0, 0)
		return funded, 0, 0, err
	}
}

// search returns the largest n in [0, limit] for which build succeeds.
// Success must be monotone: once a count fails, every larger one does.
func (o *optimizer) search(limit int, build func(n int) (*tx.Transaction, error)) int {
	return sort.Search(limit, func(x int) bool {
		_, err := build(x + 1)
		return err != nil
	})
}

// build assembles and funds one candidate. Pool withdrawal requests come
// first so each request shares its index with the deposit it consumes; the
// base step, matches and deposits follow.
func (o *optimizer) build(matches step, deposits, withdrawals int) (*tx.Transaction, error) {
	b := o.bot
	lock := b.signer.Lock()
	c := o.root.Fresh()
	if withdrawals > 0 {
		if err := b.ickb.AddPoolWithdrawals(c, o.withdrawable[:withdrawals], lock, dao.Options{}); err != nil {
			return nil, err
		}
	}
	if err := o.base(c); err != nil {
		return nil, err
	}
	if err := matches(c); err != nil {
		return nil, err
	}
	if deposits > 0 {
		if err := b.ickb.AddDeposits(c, deposits, o.depositAmount, lock); err != nil {
			return nil, err
		}
	}
	assets := []fund.Asset{
		fund.CKB(b.client, b.signer, o.s.feeRate, fund.Inputs(o.s.capacities...)),
		fund.UDT(b.client, b.ickb.Handler(), lock, fund.Inputs(o.s.tokens...)),
	}
	funded, err := fund.Fund(o.ctx, c, assets, false, nil)
	if err != nil {
		return nil, fmt.Errorf("funding %d deposits and %d withdrawals: %w", deposits, withdrawals, err)
	}
	return funded, nil
}

func ceilDiv(a, b *big.Int) int {
	q, r := new(big.Int).QuoRem(a, b, new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	if !q.IsInt64() || q.Int64() > dao.MaxOutputs {
		return dao.MaxOutputs
	}
	return int(q.Int64())
}
