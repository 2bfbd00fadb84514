package tx

import "errors"

var (
	// ErrNotFound is returned by clients when a header, transaction or cell does not exist.
	ErrNotFound = errors.New("not found")

	// ErrHeaderNotInDeps indicates a header lookup for a header that was not added to header deps.
	ErrHeaderNotInDeps = errors.New("header not in header deps")

	// ErrTxNotCommitted indicates a transaction has no block yet, so it has no header.
	ErrTxNotCommitted = errors.New("transaction not committed")

	// ErrUncommittedInput indicates an input cell without an out point.
	ErrUncommittedInput = errors.New("input cell has no out point")

	// ErrDuplicateInput indicates the same out point was added twice as input.
	ErrDuplicateInput = errors.New("duplicate input")

	// ErrTooManyOutputs indicates the transaction exceeds its outputs limit.
	ErrTooManyOutputs = errors.New("too many outputs")

	// ErrUnbalancedHandlers indicates an asset still needs funds after change completion.
	ErrUnbalancedHandlers = errors.New("unbalanced asset handlers")

	// ErrInsufficientCapacity indicates inputs cannot cover outputs plus fee and change.
	ErrInsufficientCapacity = errors.New("insufficient capacity")

	// ErrWitnessOccupied indicates a witness field that must be empty is already set.
	ErrWitnessOccupied = errors.New("witness field already occupied")

	// ErrInvalidWitness indicates a witness that does not decode as WitnessArgs.
	ErrInvalidWitness = errors.New("invalid witness args")
)
