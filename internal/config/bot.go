package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/LeJamon/goickb/internal/bot"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
	"github.com/LeJamon/goickb/internal/crypto"
)

// BotConfig represents the [bot] section
type BotConfig struct {
	// PrivateKey is the hex secp256k1 key; PrivateKeyFile is read when it is empty.
	PrivateKey     string `toml:"private_key" mapstructure:"private_key"`
	PrivateKeyFile string `toml:"private_key_file" mapstructure:"private_key_file"`

	SleepInterval time.Duration `toml:"sleep_interval" mapstructure:"sleep_interval"`

	// Amounts are decimal CKB/iCKB strings such as "1000" or "0.5".
	CkbAllowanceStep string `toml:"ckb_allowance_step" mapstructure:"ckb_allowance_step"`
	MinUdt           string `toml:"min_udt" mapstructure:"min_udt"`
	MaxUdt           string `toml:"max_udt" mapstructure:"max_udt"`

	MaxWithdrawals int `toml:"max_withdrawals" mapstructure:"max_withdrawals"`
	MaxPartials    int `toml:"max_partials" mapstructure:"max_partials"`

	// ReadyWindowEpochs is how close to maturity a deposit must be to count as ready.
	ReadyWindowEpochs uint64 `toml:"ready_window_epochs" mapstructure:"ready_window_epochs"`

	CommitTimeout time.Duration `toml:"commit_timeout" mapstructure:"commit_timeout"`
	PollInterval  time.Duration `toml:"poll_interval" mapstructure:"poll_interval"`
}

// ErrNoPrivateKey is returned when neither private_key nor private_key_file is set.
var ErrNoPrivateKey = errors.New("no private key configured")

// Options converts the section into bot tunables.
func (b *BotConfig) Options() (*bot.Config, error) {
	step, err := ckbamount.ParseUnits(b.CkbAllowanceStep)
	if err != nil {
		return nil, fmt.Errorf("ckb_allowance_step: %w", err)
	}
	minUdt, err := ckbamount.ParseUnits(b.MinUdt)
	if err != nil {
		return nil, fmt.Errorf("min_udt: %w", err)
	}
	maxUdt, err := ckbamount.ParseUnits(b.MaxUdt)
	if err != nil {
		return nil, fmt.Errorf("max_udt: %w", err)
	}
	if !step.IsUint64() {
		return nil, fmt.Errorf("ckb_allowance_step: %w: out of range", ckbamount.ErrInvalidAmount)
	}
	c := &bot.Config{
		SleepInterval:    b.SleepInterval,
		CkbAllowanceStep: ckbamount.Shannons(step.Uint64()),
		MinUdt:           minUdt,
		MaxUdt:           maxUdt,
		MaxWithdrawals:   b.MaxWithdrawals,
		MaxPartials:      b.MaxPartials,
		CommitTimeout:    b.CommitTimeout,
		PollInterval:     b.PollInterval,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// SecretKey loads the configured key. The caller owns and must Close it.
func (b *BotConfig) SecretKey() (*crypto.SecretKey, error) {
	raw := b.PrivateKey
	if raw == "" {
		if b.PrivateKeyFile == "" {
			return nil, ErrNoPrivateKey
		}
		data, err := os.ReadFile(b.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key file: %w", err)
		}
		raw = strings.TrimSpace(string(data))
	}
	return crypto.ParseSecretKey(raw)
}

// Validate performs validation on the bot configuration
func (b *BotConfig) Validate() error {
	if _, err := b.Options(); err != nil {
		return err
	}
	if b.ReadyWindowEpochs == 0 {
		return fmt.Errorf("ready_window_epochs must be positive")
	}
	return nil
}
