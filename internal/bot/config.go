package bot

import (
	"errors"
	"math/big"
	"time"

	"github.com/LeJamon/goickb/internal/core/ckbamount"
	"github.com/LeJamon/goickb/internal/core/ickb"
)

const (
	// DefaultMaxWithdrawals caps the pool deposits considered for withdrawal per cycle.
	DefaultMaxWithdrawals = 30

	// DefaultCommitTimeout bounds how long a submitted transaction may take to commit.
	DefaultCommitTimeout = 10 * time.Minute
)

// Config holds the bot's tunables.
type Config struct {
	// SleepInterval is the mean pause between cycles; each pause is
	// randomized within half of it either way.
	SleepInterval time.Duration

	// CkbAllowanceStep is how much CKB each partial fill step moves.
	CkbAllowanceStep ckbamount.Shannons

	// MinUdt and MaxUdt bound the iCKB balance the bot rebalances toward.
	MinUdt *big.Int
	MaxUdt *big.Int

	MaxWithdrawals int

	// MaxPartials bounds the fill depth explored per direction.
	MaxPartials int

	CommitTimeout time.Duration
	PollInterval  time.Duration
}

// DefaultConfig returns the settings the daemon runs with.
func DefaultConfig() *Config {
	return &Config{
		SleepInterval:    time.Minute,
		CkbAllowanceStep: ckbamount.FromCKB(1_000),
		MinUdt:           big.NewInt(ickb.SoftCap),
		MaxUdt:           big.NewInt(2 * ickb.SoftCap),
		MaxWithdrawals:   DefaultMaxWithdrawals,
		MaxPartials:      1_000,
		CommitTimeout:    DefaultCommitTimeout,
		PollInterval:     10 * time.Second,
	}
}

// Validate checks the config for obvious mistakes.
func (c *Config) Validate() error {
	if c.SleepInterval <= 0 {
		return errors.New("sleep interval must be positive")
	}
	if c.CkbAllowanceStep == 0 {
		return errors.New("ckb allowance step must be positive")
	}
	if c.MinUdt == nil || c.MaxUdt == nil || c.MinUdt.Sign() < 0 || c.MinUdt.Cmp(c.MaxUdt) > 0 {
		return errors.New("udt band must satisfy 0 <= min <= max")
	}
	if c.MaxWithdrawals <= 0 || c.MaxPartials <= 0 {
		return errors.New("withdrawal and partial caps must be positive")
	}
	if c.CommitTimeout <= 0 || c.PollInterval <= 0 {
		return errors.New("commit timeout and poll interval must be positive")
	}
	return nil
}
