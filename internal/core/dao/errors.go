package dao

import (
	"errors"

	"github.com/LeJamon/goickb/internal/core/tx"
)

var (
	// ErrNotADeposit indicates a cell passed as deposit that is not one.
	ErrNotADeposit = errors.New("not a dao deposit")

	// ErrNotAWithdrawalRequest indicates a cell passed as withdrawal request that is not one.
	ErrNotAWithdrawalRequest = errors.New("not a dao withdrawal request")

	// ErrLockSizeMismatch indicates a same-size request whose new lock differs in size.
	ErrLockSizeMismatch = errors.New("withdrawal lock size differs from deposit lock size")

	// ErrInvalidData indicates dao cell data that is not 8 bytes.
	ErrInvalidData = errors.New("invalid dao cell data")

	// ErrIndexMismatch indicates a withdrawal request that would not sit at
	// the output index of its deposit input.
	ErrIndexMismatch = errors.New("inputs and outputs differ in length")

	// ErrDepositHeaderMismatch indicates a withdrawal witness pointing at the wrong header dep.
	ErrDepositHeaderMismatch = errors.New("witness header dep is not the deposit header")

	// ErrTooManyOutputs is the outputs cap of any DAO transaction.
	ErrTooManyOutputs = tx.ErrTooManyOutputs
)
