package engine

import "errors"

// Error definitions for zero-tolerance error handling. Every error is
// surfaced synchronously to the caller of the failing operation; nothing is
// retried internally and no partial state survives an error.
var (
	// ErrLimitExceeded is a business-rule bound violation. Always recoverable
	// by requesting a smaller amount.
	ErrLimitExceeded = errors.New("allocation limit exceeded")

	// ErrArithmeticFault covers overflow, underflow and non-positive
	// divisors. It indicates a logic or configuration error; the enclosing
	// transition is aborted with no state written.
	ErrArithmeticFault = errors.New("arithmetic fault")

	// ErrNotAccepting means the asset is not enabled for inbound operations.
	ErrNotAccepting = errors.New("asset is not accepting deposits")

	// ErrNotInitialized means the mandatory initial deposit has not happened.
	ErrNotInitialized = errors.New("pool is not initialized")

	// ErrAlreadyInitialized means the one-shot initial deposit was repeated.
	ErrAlreadyInitialized = errors.New("pool is already initialized")

	// ErrInvalidAmount rejects nil or negative request amounts.
	ErrInvalidAmount = errors.New("amount is invalid")

	// ErrInvalidFeeRate rejects fee rates outside [0, 1e9].
	ErrInvalidFeeRate = errors.New("fee rate is invalid")
)
